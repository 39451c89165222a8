package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"giveledger.org/internal/core"
	"giveledger.org/internal/httpapi"
	"giveledger.org/internal/obs"
	"giveledger.org/internal/store/pg"
)

var version = "0.3.0"

func main() {
	// Observability first: metric registration, JSON logger.
	obs.Init()
	obs.InitBuildInfo(version, os.Getenv("GIVELEDGER_COMMIT"))

	authority := os.Getenv("GIVELEDGER_ADMIN_ADDR")
	if authority == "" {
		log.Fatal("GIVELEDGER_ADMIN_ADDR is required (initial administrative authority)")
	}

	// Optional durable archive; /readyz pings it when configured.
	var archive *pg.Store
	var opts []core.Option
	if dsn := os.Getenv("GIVELEDGER_PG_DSN"); dsn != "" {
		var err error
		archive, err = pg.Open(dsn)
		if err != nil {
			log.Fatalf("open archive db: %v", err)
		}
		opts = append(opts, core.WithArchiver(archive))
	}

	ledger, err := core.New(authority, opts...)
	if err != nil {
		log.Fatalf("init ledger core: %v", err)
	}

	rp := httpapi.ReadyProbe{}
	if archive != nil {
		rp.DB = archive.DB()
	}
	api := httpapi.New(rp, version, ledger)

	srv := &http.Server{
		Addr:              ":8080",
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting giveledger-api %s on %s", version, srv.Addr)

	// graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if archive != nil {
		_ = archive.Close()
	}
	log.Println("Stopped")
}
