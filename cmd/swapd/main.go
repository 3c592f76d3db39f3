package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/TrainProtocol/swapd/internal/config"
	"github.com/TrainProtocol/swapd/internal/core/application"
	"github.com/TrainProtocol/swapd/internal/core/ports"
	badgerdb "github.com/TrainProtocol/swapd/internal/infrastructure/db/badger"
	scheduler "github.com/TrainProtocol/swapd/internal/infrastructure/scheduler/gocron"
	"github.com/TrainProtocol/swapd/internal/infrastructure/solver"
)

// nolint:all
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.WithError(err).Fatal("invalid config")
	}

	log.SetLevel(log.Level(cfg.LogLevel))
	log.Infof("swapd %s (%s, %s)", version, commit, date)

	entropySvc, err := cfg.EntropyService()
	if err != nil {
		log.WithError(err).Fatal("failed to init entropy source")
	}

	repo, err := badgerdb.NewCommitStateRepository(cfg.Datadir, nil)
	if err != nil {
		log.WithError(err).Fatal("failed to open commit store")
	}
	defer repo.Close()

	solverSvc := solver.NewClient(cfg.SolverURL, cfg.SolverID)
	schedulerSvc := scheduler.NewScheduler()
	schedulerSvc.Start()

	// adapter and light-client registries are populated by the deployment's
	// chain integrations; the daemon runs with whatever families are linked
	// in at build time
	adapters := ports.NewAdapterRegistry()
	lightClients := ports.NewLightClientRegistry()

	svc := application.NewService(
		repo, adapters, solverSvc, lightClients, schedulerSvc, entropySvc,
		application.Options{
			PollInterval:        cfg.PollIntervalDuration(),
			TimelockGrace:       cfg.TimelockGraceDuration(),
			ManualClaimAfter:    cfg.ManualClaimAfterDuration(),
			LightClientAttempts: uint64(cfg.LightClientAttempts),
			LightClientDelay:    cfg.LightClientDelayDuration(),
			NoAutoRelayNetworks: cfg.NoAutoRelaySet(),
		},
	)

	if err := svc.Resume(context.Background()); err != nil {
		log.WithError(err).Warn("failed to resume open swaps")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("shutting down...")
	svc.Stop()
	log.Info("service stopped")
}
