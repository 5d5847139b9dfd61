package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"shoplane.dev/internal/audit"
	"shoplane.dev/internal/auth"
	"shoplane.dev/internal/httpapi"
	"shoplane.dev/internal/notify"
	"shoplane.dev/internal/obs"
)

var (
	version = "0.3.0"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	dsn := os.Getenv("SHOPLANE_PG_DSN")
	if dsn == "" {
		log.Fatal("missing SHOPLANE_PG_DSN")
	}
	repo, err := auth.Open(dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer repo.Close()

	cfg := auth.LoadConfigFromEnv()
	mgr := auth.NewConfigManager(cfg)

	recorder := audit.NewRecorder(repo.Audit())
	sender := notify.NewSender(cfg.EmailProvider)

	svc, err := auth.NewService(repo, mgr,
		auth.WithAuditSink(recorder),
		auth.WithNotifier(sender),
	)
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}

	api := httpapi.New(svc, httpapi.ReadyProbe{DB: repo.DB()}, version)

	addr := os.Getenv("SHOPLANE_HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting shoplane-identity %s on %s", version, srv.Addr)

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
