package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wintech119/DisasterRecoveryInventoryManagementSystem-sub000/internal/event"
	"github.com/wintech119/DisasterRecoveryInventoryManagementSystem-sub000/internal/httpapi"
	"github.com/wintech119/DisasterRecoveryInventoryManagementSystem-sub000/internal/hub"
	"github.com/wintech119/DisasterRecoveryInventoryManagementSystem-sub000/internal/identity"
	"github.com/wintech119/DisasterRecoveryInventoryManagementSystem-sub000/internal/needs"
	"github.com/wintech119/DisasterRecoveryInventoryManagementSystem-sub000/internal/obs"
	"github.com/wintech119/DisasterRecoveryInventoryManagementSystem-sub000/internal/stock"
	"github.com/wintech119/DisasterRecoveryInventoryManagementSystem-sub000/internal/store/pg"
	"github.com/wintech119/DisasterRecoveryInventoryManagementSystem-sub000/internal/stream"
)

var (
	version = "1.0.0"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	var (
		ledger    stock.Service
		catalog   stock.Catalog
		needStore needs.Store
		committer needs.Committer
		hubs      hub.Directory
		disasters event.Directory
		users     identity.Registry
		probe     httpapi.ReadyProbe
		closeFn   = func() {}
	)

	if dsn := os.Getenv("RELIEF_PG_DSN"); dsn != "" {
		store, err := pg.Open(dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		ledger = store
		catalog = store
		needStore = store
		committer = store
		hubs = store.Hubs()
		disasters = store.Events()
		users = store.Users()
		probe = httpapi.ReadyProbe{DB: store.DB()}
		closeFn = func() { _ = store.Close() }
	} else {
		// Without a DSN everything runs in process, for local development.
		log.Print("RELIEF_PG_DSN not set, using in-memory stores")
		memLedger := stock.NewInMemory()
		memStore := needs.NewInMemoryStore()
		ledger = memLedger
		catalog = memLedger
		needStore = memStore
		committer = needs.NewInMemoryCommitter(memStore, memLedger)
		hubs = hub.NewInMemory()
		disasters = event.NewInMemory()
		users = identity.NewInMemory()
	}

	events := stream.New()
	engine := needs.NewEngine(ledger, hubs)
	locks := needs.NewLockManager(needStore)
	wf := needs.NewWorkflow(needStore, engine, locks, hubs, events, committer)

	api := httpapi.New(probe, version, wf, ledger, catalog, hubs, disasters, users, events)

	addr := os.Getenv("RELIEF_ADDR")
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

	log.Printf("Starting relief-api %s on %s", version, srv.Addr)

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
	closeFn()
	log.Println("Stopped")
}
