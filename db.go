package main

import (
	"log"
	"os"

	"imgcap/pkg/store"
)

func initDB() {
	if cfg.DBDSN == "" {
		log.Fatal("DB_DSN is not set. The server requires a database DSN in DB_DSN.")
	}
	var err error
	st, err = store.Open(cfg.DBDriver, cfg.DBDSN, cfg.DBAutoMigrate)
	if err != nil {
		log.Fatal("failed to connect database: ", err)
	}
	ensureUploadBase()
}

// ensureUploadBase creates the base uploads directory.
func ensureUploadBase() {
	if err := os.MkdirAll(cfg.UploadBase, 0o755); err != nil {
		log.Printf("failed to create upload base dir %s: %v", cfg.UploadBase, err)
	}
}
