package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"imgcap/pkg/config"
	"imgcap/pkg/store"
	"imgcap/process/pipeline"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Println("usage: go run ./cmd/create_client <name> <secret>")
		os.Exit(2)
	}
	name := os.Args[1]
	secret := os.Args[2]

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	st, err := pipeline.OpenStore(cfg)
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}
	if st == nil {
		log.Fatal("DB_DSN not set in environment")
	}
	defer st.Close()

	c, err := st.CreateClient(name, secret)
	if errors.Is(err, store.ErrClientExists) {
		fmt.Printf("client %s already exists\n", name)
		os.Exit(0)
	}
	if err != nil {
		log.Fatalf("failed to create client: %v", err)
	}
	fmt.Printf("created client %s id=%d\n", c.Name, c.ID)
}
