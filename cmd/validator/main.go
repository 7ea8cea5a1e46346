package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/moderntensor/mtnode/internal/config"
	"github.com/moderntensor/mtnode/internal/consensus"
	"github.com/moderntensor/mtnode/internal/core"
	"github.com/moderntensor/mtnode/internal/registry"
	"github.com/moderntensor/mtnode/internal/scheduler"
	"github.com/moderntensor/mtnode/internal/synapse"
	"github.com/moderntensor/mtnode/internal/utils/logger"
	"github.com/moderntensor/mtnode/internal/utils/redis"
	"github.com/moderntensor/mtnode/pkg/signature"
)

func main() {
	logger.Init()
	log.Info().Msg("Starting validator...")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load environment configuration")
	}

	reg, err := registry.NewRegistry(&cfg.ChainEnvConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init registry client")
	}

	r, err := redis.NewRedis(&cfg.RedisEnvConfig)
	if err != nil {
		log.Error().Err(err).Msg("failed to init redis client, continuing without telemetry")
		r = nil
	}

	keypair, err := signature.LoadKeypair(cfg.KeystorePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.KeystorePath).Msg("failed to load validator keypair")
	}
	signer, err := signature.NewProvider(keypair)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create signature provider")
	}
	log.Info().Str("address", signer.Address()).Msg("validator keypair loaded")

	pub, err := registry.NewPublisher(&cfg.ChainEnvConfig, signer)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init publisher")
	}

	// the controller may stretch the batch timeout up to 1.5x the initial
	// value; the transport timeout has to stay above it
	sender := synapse.NewClient(synapse.Config{
		ClientTimeout: 2 * cfg.ConsensusEnvConfig.BatchTimeoutInitial,
		RetryMax:      0,
	})

	var telemetry redis.RedisInterface
	if r != nil {
		telemetry = r
	}
	driver := consensus.NewDriver(
		cfg.ConsensusEnvConfig,
		cfg.SubnetID,
		signer.Address(),
		reg,
		sender,
		pub,
		telemetry,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	slotCfg := scheduler.DefaultSlotConfig()
	node := core.NewNode(reg)
	node.RegisterCallback(scheduler.NewSlotCallback(1, func() error {
		slot := node.ChainState.GetSlot()
		deadline := slotCfg.AssignmentDeadline(node.ChainState.GetSlotStarted())
		if time.Until(deadline) <= 0 {
			log.Info().Int64("slot", slot).Msg("task assignment window already over, skipping phase")
			return nil
		}

		scores, err := driver.RunPhase(ctx, slot, deadline)
		if err != nil {
			log.Warn().Err(err).Int64("slot", slot).Msg("phase finished with warning")
		}
		log.Info().Int64("slot", slot).Int("miners_scored", len(scores)).Msg("phase scores ready")
		return nil
	}))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sigChan
		log.Info().Str("signal", s.String()).Msg("shutdown signal received")
		cancel()
	}()

	node.SlotUpdater(ctx)
	log.Info().Msg("validator stopped")
}
