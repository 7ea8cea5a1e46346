package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/moderntensor/mtnode/internal/config"
	"github.com/moderntensor/mtnode/internal/minersim"
	"github.com/moderntensor/mtnode/internal/utils/logger"
)

func main() {
	logger.Init()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load environment configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	var wg sync.WaitGroup
	for i := 0; i < cfg.MinerSimCount; i++ {
		name := fmt.Sprintf("sim-%d", i)
		addr := fmt.Sprintf(":%d", cfg.MinerSimPort+i)
		sim := minersim.NewSim(name, addr, minersim.Behavior{
			Delay:         cfg.MinerSimDelay,
			FailureRate:   cfg.MinerSimFailureRate,
			ModelVersion:  "sim-1.0",
			ResultURLBase: "http://localhost" + addr + "/results",
		})

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := sim.Run(ctx); err != nil {
				log.Error().Err(err).Str("miner", name).Msg("simulated miner exited")
			}
		}()
	}

	log.Info().Int("miners", cfg.MinerSimCount).Int("base_port", cfg.MinerSimPort).Msg("miner simulators running")
	wg.Wait()
}
