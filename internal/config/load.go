package config

import (
	"os"
	"strconv"
	"time"
)

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoiWithDefault(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func durationWithDefault(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		// try seconds as int
		if i, err2 := strconv.Atoi(s); err2 == nil {
			return time.Duration(i) * time.Second
		}
		return def
	}
	return d
}

func LoadChainEnv() (*ChainEnvConfig, error) {
	cfg := &ChainEnvConfig{
		SubnetID:    atoiWithDefault(getenv("SUBNET_ID", "1"), 1),
		FullnodeURL: getenv("FULLNODE_URL", "http://127.0.0.1:8080"),
		Environment: getenv("ENVIRONMENT", "dev"),
	}
	return cfg, nil
}

func LoadConsensusEnv() (*ConsensusEnvConfig, error) {
	cfg := &ConsensusEnvConfig{
		BatchSizeInitial:     atoiWithDefault(getenv("BATCH_SIZE_INITIAL", "5"), 5),
		BatchSizeMin:         atoiWithDefault(getenv("BATCH_SIZE_MIN", "2"), 2),
		BatchSizeMax:         atoiWithDefault(getenv("BATCH_SIZE_MAX", "10"), 10),
		BatchTimeoutInitial:  durationWithDefault(getenv("BATCH_TIMEOUT_INITIAL_SECS", "30s"), 30*time.Second),
		MinBreak:             durationWithDefault(getenv("MIN_BREAK_SECS", "2s"), 2*time.Second),
		MaxConcurrent:        atoiWithDefault(getenv("MAX_CONCURRENT", "10"), 10),
		ScoreAggregation:     getenv("SCORE_AGGREGATION", "average"),
		RetryFailed:          getenv("RETRY_FAILED", "true") == "true",
		AdaptiveBatch:        getenv("ADAPTIVE_BATCH", "true") == "true",
		DeterministicScoring: getenv("DETERMINISTIC_SCORING", "false") == "true",
		PhaseGuard:           durationWithDefault(getenv("PHASE_GUARD_SECS", ""), 0),
	}
	return cfg, nil
}

func LoadRedisEnv() (*RedisEnvConfig, error) {
	cfg := &RedisEnvConfig{
		RedisHost:     getenv("REDIS_HOST", "127.0.0.1"),
		RedisPort:     atoiWithDefault(getenv("REDIS_PORT", "6379"), 6379),
		RedisPassword: getenv("REDIS_PASSWORD", ""),
		RedisDB:       atoiWithDefault(getenv("REDIS_DB", "0"), 0),
	}
	return cfg, nil
}
