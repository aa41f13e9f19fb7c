package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"imgcap/pkg/config"
	"imgcap/pkg/feed"
	"imgcap/pkg/store"
	"imgcap/process/pipeline"
)

const shutdownGrace = 10 * time.Second

var (
	cfg       *config.Config
	jwtSecret []byte
	st        *store.Store
	describer pipeline.Describer
	hub       *feed.Hub
)

func main() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.UsingDevSecret() {
		log.Println("WARN JWT_SECRET not set; using the development fallback")
	}
	jwtSecret = []byte(cfg.JWTSecret)

	// `./imgcap migrate` creates the tables and exits. Useful for CI or manual DB setup.
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		cfg.DBAutoMigrate = true
		initDB()
		fmt.Println("migration completed")
		return
	}

	initDB()
	d, err := pipeline.NewDescriber(cfg)
	if err != nil {
		log.Fatalf("backend: %v", err)
	}
	describer = d

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	hub = feed.NewHub()
	go hub.Run(ctx)

	r := gin.Default()
	setupRoutes(r)
	srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Port), Handler: r}
	if err := serve(ctx, srv); err != nil {
		log.Fatalf("server: %v", err)
	}
}

// serve runs srv until ctx is done, then drains in-flight requests.
func serve(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Println("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
