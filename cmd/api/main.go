package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"opsdesk.org/internal/audit"
	"opsdesk.org/internal/auth"
	"opsdesk.org/internal/config"
	"opsdesk.org/internal/httpapi"
	"opsdesk.org/internal/migrate"
	"opsdesk.org/internal/obs"
	"opsdesk.org/internal/store/pg"
	"opsdesk.org/internal/vault"
)

var (
	version = "0.3.0"
	commit  = "dev"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	obs.Init()
	obs.InitBuildInfo(version, commit)

	db, err := pg.Open(cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), 30*time.Second)
	if err := migrate.Apply(migrateCtx, db); err != nil {
		cancelMigrate()
		log.Fatalf("migrate: %v", err)
	}
	cancelMigrate()

	tokens, err := auth.NewTokens([]byte(cfg.AuthSecret))
	if err != nil {
		log.Fatalf("tokens: %v", err)
	}
	accounts, err := auth.NewService(auth.NewPGAccountStore(db), tokens,
		auth.WithTokenTTL(cfg.TokenTTL))
	if err != nil {
		log.Fatalf("auth: %v", err)
	}

	key, err := cfg.VaultKey()
	if err != nil {
		log.Fatalf("vault key: %v", err)
	}
	box, err := vault.NewSecretBox(key)
	if err != nil {
		log.Fatalf("vault: %v", err)
	}
	recorder := audit.NewPGRecorder(db)
	vaultSvc, err := vault.NewService(vault.NewPGStore(db), box, recorder)
	if err != nil {
		log.Fatalf("vault: %v", err)
	}

	api := httpapi.New(httpapi.Deps{
		Accounts:       accounts,
		Tokens:         tokens,
		Vault:          vaultSvc,
		Recorder:       recorder,
		ReadyProbe:     httpapi.ReadyProbe{DB: db},
		Version:        version,
		LoginBurst:     cfg.RateLimitBurst,
		LoginPerSecond: cfg.RateLimitPerSecond,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting opsdesk-api %s on %s", version, srv.Addr)

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
