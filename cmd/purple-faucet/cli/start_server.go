package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
	"github.com/spf13/cobra"

	"github.com/purplefaucet/purple-faucet/internal/api"
	"github.com/purplefaucet/purple-faucet/internal/clients/chainclient"
	"github.com/purplefaucet/purple-faucet/internal/config"
	"github.com/purplefaucet/purple-faucet/internal/db"
	dbmodel "github.com/purplefaucet/purple-faucet/internal/db/model"
	"github.com/purplefaucet/purple-faucet/internal/observability/metrics"
	"github.com/purplefaucet/purple-faucet/internal/observability/tracing"
	"github.com/purplefaucet/purple-faucet/internal/queue"
	"github.com/purplefaucet/purple-faucet/internal/services"
)

func StartServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start-server",
		Short: "Starts the faucet api server, deposit watcher and owner top-up job",
		Args:  cobra.ExactArgs(0),
		RunE:  startServer,
	}

	return cmd
}

func startServer(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctx = tracing.InjectTraceID(ctx)
	log := log.Ctx(ctx)

	// load config
	cfgPath := GetConfigPath()
	cfg, err := config.New(cfgPath)
	if err != nil {
		return fmt.Errorf("error while loading config file %s: %w", cfgPath, err)
	}

	err = dbmodel.Setup(ctx, &cfg.Db)
	if err != nil {
		return fmt.Errorf("error while setting up faucet db model: %w", err)
	}

	// create new db client
	dbClient, err := db.New(ctx, cfg.Db)
	if err != nil {
		return fmt.Errorf("error while creating db client: %w", err)
	}
	defer func() {
		if err := dbClient.Disconnect(context.WithoutCancel(ctx)); err != nil {
			log.Error().Err(err).Msg("error while disconnecting db client")
		}
	}()
	dbWithMetrics := db.NewDbWithMetrics(dbClient)

	chain, closeChain, err := chainclient.New(ctx, &cfg.Chain)
	if err != nil {
		return fmt.Errorf("error while creating chain client: %w", err)
	}
	defer closeChain()
	log.Info().
		Str("backend", string(cfg.Chain.Backend)).
		Str("wallet", chain.Address().Hex()).
		Msg("chain client ready")

	var publisher services.EventPublisher
	if cfg.Queue != nil {
		qm, err := queue.NewQueueManager(cfg.Queue)
		if err != nil {
			return fmt.Errorf("error while creating queue manager: %w", err)
		}
		defer qm.Shutdown()
		publisher = qm
	} else {
		log.Info().Msg("queue not configured, faucet events are only stored in db")
	}

	service, err := services.NewService(ctx, cfg, dbWithMetrics, chain, publisher)
	if err != nil {
		return fmt.Errorf("error while creating service: %w", err)
	}

	// initialize metrics with the metrics port from config
	metricsPort := cfg.Metrics.GetMetricsPort()
	metrics.Init(metricsPort)

	if cfg.Scheduler.OwnerTopUpEnabled() {
		scheduler, err := service.StartOwnerTopUpScheduler(ctx)
		if err != nil {
			return err
		}
		defer func() {
			<-scheduler.Stop().Done()
		}()
	}

	var devChain api.DevChain
	if memory, ok := chainclient.AsMemoryChain(chain); ok {
		devChain = memory
		log.Warn().Msg("memory chain backend, POST /v1/dev/deposit mints deposits")
	}
	server := api.NewServer(&cfg.Server, service.Engine(), dbWithMetrics, devChain)

	var wg conc.WaitGroup
	var serverErr error
	wg.Go(func() {
		service.StartDepositWatcher(ctx)
	})
	wg.Go(func() {
		if serverErr = server.Start(ctx); serverErr != nil {
			// take the deposit watcher down with the server
			stop()
		}
	})
	wg.Wait()

	log.Info().Msg("faucet stopped")
	return serverErr
}
