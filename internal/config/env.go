// Package config defines environment configuration structs and loaders.
package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type AppConfig struct {
	ChainEnvConfig
	WalletEnvConfig
	RedisEnvConfig
	ConsensusEnvConfig
	MinerSimEnvConfig
}

func LoadConfig() (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ChainEnvConfig holds chain-specific environment values.
type ChainEnvConfig struct {
	SubnetID    int    `env:"SUBNET_ID" envDefault:"1"`
	FullnodeURL string `env:"FULLNODE_URL" envDefault:"http://127.0.0.1:8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"dev"`
}

// WalletEnvConfig holds validator key configuration.
type WalletEnvConfig struct {
	KeystorePath  string `env:"KEYSTORE_PATH" envDefault:"~/.moderntensor/validator.json"`
	ValidatorName string `env:"VALIDATOR_NAME"`
}

// RedisEnvConfig configures the optional telemetry Redis connection.
type RedisEnvConfig struct {
	RedisHost     string `env:"REDIS_HOST" envDefault:"127.0.0.1"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
}

// ConsensusEnvConfig configures the per-phase task assignment engine.
type ConsensusEnvConfig struct {
	BatchSizeInitial     int           `env:"BATCH_SIZE_INITIAL" envDefault:"5"`
	BatchSizeMin         int           `env:"BATCH_SIZE_MIN" envDefault:"2"`
	BatchSizeMax         int           `env:"BATCH_SIZE_MAX" envDefault:"10"`
	BatchTimeoutInitial  time.Duration `env:"BATCH_TIMEOUT_INITIAL_SECS" envDefault:"30s"`
	MinBreak             time.Duration `env:"MIN_BREAK_SECS" envDefault:"2s"`
	MaxConcurrent        int           `env:"MAX_CONCURRENT" envDefault:"10"`
	ScoreAggregation     string        `env:"SCORE_AGGREGATION" envDefault:"average"`
	RetryFailed          bool          `env:"RETRY_FAILED" envDefault:"true"`
	AdaptiveBatch        bool          `env:"ADAPTIVE_BATCH" envDefault:"true"`
	DeterministicScoring bool          `env:"DETERMINISTIC_SCORING" envDefault:"false"`
	// PhaseGuard falls back to the initial batch timeout when left unset.
	PhaseGuard time.Duration `env:"PHASE_GUARD_SECS" envDefault:"0s"`
}

// MinerSimEnvConfig configures the local miner simulator.
type MinerSimEnvConfig struct {
	MinerSimPort        int           `env:"MINERSIM_PORT" envDefault:"9100"`
	MinerSimCount       int           `env:"MINERSIM_COUNT" envDefault:"3"`
	MinerSimDelay       time.Duration `env:"MINERSIM_DELAY" envDefault:"1s"`
	MinerSimFailureRate float64       `env:"MINERSIM_FAILURE_RATE" envDefault:"0"`
}

// EffectivePhaseGuard resolves the deadline guard margin.
func (c ConsensusEnvConfig) EffectivePhaseGuard() time.Duration {
	if c.PhaseGuard > 0 {
		return c.PhaseGuard
	}
	return c.BatchTimeoutInitial
}
