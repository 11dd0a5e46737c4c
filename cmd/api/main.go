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

	"github.com/elnino282/acm-backend/internal/access"
	"github.com/elnino282/acm-backend/internal/auth"
	"github.com/elnino282/acm-backend/internal/farm"
	"github.com/elnino282/acm-backend/internal/httpapi"
	"github.com/elnino282/acm-backend/internal/obs"
)

var (
	version = "0.3.0"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// Postgres when a DSN is configured, in-memory stores otherwise. The
	// in-memory mode is for local development; state does not survive restarts.
	var (
		db     *sql.DB
		users  auth.UserStore
		ledger auth.RevocationLedger
		store  farm.Store
	)
	if cfg.pgDSN != "" {
		db, err = sql.Open("pgx", cfg.pgDSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
		users = auth.NewPGUserStore(db)
		ledger = auth.NewPGRevocationLedger(db)
		store = farm.NewPGStore(db)
	} else {
		users = auth.NewMemoryUserStore()
		ledger = auth.NewMemoryLedger()
		store = farm.NewMemoryStore()
	}

	tokens, err := auth.NewManager(cfg.auth, ledger, users)
	if err != nil {
		log.Fatalf("token manager: %v", err)
	}
	authn := auth.NewAuthenticator(users, tokens)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.adminUser != "" && cfg.adminPassword != "" {
		bootCtx, bootCancel := context.WithTimeout(ctx, 10*time.Second)
		if err := authn.EnsureAdmin(bootCtx, cfg.adminUser, cfg.adminPassword); err != nil {
			bootCancel()
			log.Fatalf("bootstrap admin: %v", err)
		}
		bootCancel()
	}

	farms := farm.NewService(store, access.NewEvaluator(store))
	api := httpapi.New(authn, tokens, users, farms, httpapi.ReadyProbe{DB: db}, version)

	// Expired revocation rows are safe to drop once the refresh window has
	// passed; prune on a fixed cadence.
	go pruneLoop(ctx, tokens, time.Hour)

	srv := &http.Server{
		Addr:              cfg.httpAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting acm-api %s on %s", version, srv.Addr)
	obs.SetReady(true)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")
	obs.SetReady(false)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)
	if db != nil {
		_ = db.Close()
	}
	log.Println("Stopped")
}

func pruneLoop(ctx context.Context, tokens *auth.Manager, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pruneCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			n, err := tokens.PruneRevoked(pruneCtx)
			cancel()
			if err != nil {
				obs.LogEntry(map[string]any{
					"level": "error",
					"msg":   "revocation_prune_failed",
					"error": err.Error(),
				})
				continue
			}
			if n > 0 {
				obs.LogEntry(map[string]any{
					"level":  "info",
					"msg":    "revocation_pruned",
					"pruned": n,
				})
			}
		}
	}
}
