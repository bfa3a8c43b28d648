package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/bardofig/roozterfaceapp/internal/auth"
	"github.com/bardofig/roozterfaceapp/internal/billing"
	"github.com/bardofig/roozterfaceapp/internal/config"
	"github.com/bardofig/roozterfaceapp/internal/events"
	"github.com/bardofig/roozterfaceapp/internal/identity"
	"github.com/bardofig/roozterfaceapp/internal/server"
	"github.com/bardofig/roozterfaceapp/internal/service"
	"github.com/bardofig/roozterfaceapp/internal/store"
	"github.com/bardofig/roozterfaceapp/internal/store/sqlite"
	"github.com/bardofig/roozterfaceapp/pkg/logging"
)

func main() {
	logging.Setup()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	docs, err := sqlite.New(cfg.DBPath)
	if err != nil {
		slog.Error("failed to initialize document store", "error", err)
		os.Exit(1)
	}
	defer docs.Close()
	slog.Info("document store initialized", "database", cfg.DBPath)

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)
	provider := identity.NewStoreProvider(docs)
	verifier := billing.NewHTTPVerifier(cfg.VerifierBaseURL, nil)

	ledgerSync := service.NewLedgerSync(docs)
	projector := service.NewListingProjector(docs, ledgerSync)
	cascade := service.NewNameCascade(docs)
	membership := service.NewMembershipService(docs, provider)
	ledger := service.NewLedgerService(docs)
	billingSvc := service.NewBillingService(docs, verifier)
	reconciler := service.NewReconciler(docs, projector, ledgerSync)

	// Rooster events fan out to the projector and the ledger synchronizer
	// independently; rename events go to the cascade.
	dispatcher := events.NewDispatcher()
	dispatcher.On(store.CollectionRoosters, projector.HandleRoosterEvent)
	dispatcher.On(store.CollectionRoosters, ledgerSync.HandleRoosterEvent)
	dispatcher.On(store.CollectionUsers, cascade.HandleUserEvent)
	dispatcher.On(store.CollectionGroups, cascade.HandleGroupEvent)

	srv := server.New(jwtManager, cfg.EventsToken, cfg.AdminUID,
		dispatcher, membership, ledger, ledgerSync, billingSvc, reconciler)

	slog.Info("server starting", "address", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, srv.Handler()); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
