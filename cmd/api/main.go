package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IvanYanishevskyi/pandora-backend/internal/audit"
	"github.com/IvanYanishevskyi/pandora-backend/internal/auth"
	"github.com/IvanYanishevskyi/pandora-backend/internal/httpapi"
	"github.com/IvanYanishevskyi/pandora-backend/internal/obs"
	"github.com/IvanYanishevskyi/pandora-backend/internal/proxy"
	"github.com/IvanYanishevskyi/pandora-backend/internal/resolver"
	"github.com/IvanYanishevskyi/pandora-backend/internal/store/pg"
	"github.com/IvanYanishevskyi/pandora-backend/internal/tenancy"
)

var version = "0.3.0"

func main() {
	obs.Init()
	obs.InitBuildInfo(version, os.Getenv("PANDORA_COMMIT"))

	dsn := os.Getenv("PANDORA_PG_DSN")
	if dsn == "" {
		log.Fatal("missing PANDORA_PG_DSN")
	}
	secret := os.Getenv("PANDORA_JWT_SECRET")
	if secret == "" {
		log.Fatal("missing PANDORA_JWT_SECRET")
	}
	addr := os.Getenv("PANDORA_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	store, err := pg.Open(dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer store.Close()

	recorder := audit.NewRecorder(store)
	signer := auth.NewTokenSigner([]byte(secret), 0)
	authSvc := auth.NewService(store, store, signer, recorder)
	tenants := tenancy.NewService(store, recorder, auth.HashPassword)
	res := resolver.New(store)
	dispatcher := proxy.New(store, res, recorder)

	api := httpapi.New(tenants, authSvc, dispatcher, res, store, httpapi.ReadyProbe{DB: store.DB()}, version)

	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      45 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting pandora-backend %s on %s", version, srv.Addr)

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
	log.Println("Stopped")
}
