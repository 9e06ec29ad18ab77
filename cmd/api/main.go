package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"colschool.org/internal/auth"
	"colschool.org/internal/config"
	"colschool.org/internal/httpapi"
	"colschool.org/internal/notify"
	"colschool.org/internal/obs"
	"colschool.org/internal/payments"
)

var version = "0.3.1"

func main() {
	obs.Init()
	obs.InitBuildInfo(version, os.Getenv("GIT_COMMIT"))

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	var (
		db        *sql.DB
		authStore auth.Store
		payStore  payments.Store
	)
	if cfg.PGDSN != "" {
		db, err = sql.Open("pgx", cfg.PGDSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
		authStore = auth.NewPGStore(db)
		payStore = payments.NewPGStore(db)
	} else {
		// In-memory stores for local development. The auth store doubles as
		// the registration marker for the payment store.
		mem := auth.NewInMemory()
		authStore = mem
		payStore = payments.NewInMemory(mem)
	}

	authSvc, err := auth.NewService(authStore, cfg.AuthSecret,
		auth.WithIssuer(cfg.Issuer),
		auth.WithAccessTTL(cfg.AccessTTL),
		auth.WithRefreshTTL(cfg.RefreshTTL),
		auth.WithActionTTL(cfg.ActionTTL),
		auth.WithNotifier(notify.LogNotifier{}),
	)
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}

	provider := payments.NewPaystackClient(cfg.ProviderSecret,
		payments.WithBaseURL(cfg.ProviderBaseURL))
	initiator := payments.NewInitiator(payStore, provider)
	reconciler, err := payments.NewReconciler(payStore, cfg.ProviderSecret)
	if err != nil {
		log.Fatalf("reconciler: %v", err)
	}

	api := httpapi.New(httpapi.ReadyProbe{DB: db}, version, authSvc, initiator, reconciler)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting colschool-api %s on %s", version, srv.Addr)

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
	if db != nil {
		_ = db.Close()
	}
	log.Println("Stopped")
}
