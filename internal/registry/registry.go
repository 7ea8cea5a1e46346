package registry

import (
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"github.com/moderntensor/mtnode/internal/config"
)

// Registry is a client wrapper for the fullnode REST gateway.
type Registry struct {
	client  *resty.Client
	BaseURL string
}

// NewRegistry creates a registry client from the chain environment configuration.
func NewRegistry(cfg *config.ChainEnvConfig) (*Registry, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}

	client := resty.New().
		SetBaseURL(cfg.FullnodeURL).
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal).
		SetTimeout(15 * time.Second)

	return &Registry{
		client:  client,
		BaseURL: cfg.FullnodeURL,
	}, nil
}

func getJSON[T any](client *resty.Client, path string) (Response[T], error) {
	var result Response[T]
	resp, err := client.R().
		SetResult(&result).
		Get(path)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("get request failed")
		return Response[T]{}, fmt.Errorf("get %s: %w", path, err)
	}
	if resp.IsError() {
		log.Error().Int("status", resp.StatusCode()).Str("body", resp.String()).Str("path", path).Msg("get non-2xx")
		return Response[T]{}, fmt.Errorf("request returned status %d: %s", resp.StatusCode(), resp.String())
	}
	if result.Error != nil {
		log.Error().Interface("error", result.Error).Str("path", path).Msg("response contains error")
		return Response[T]{}, fmt.Errorf("response error: %v", result.Error)
	}
	return result, nil
}

// FetchActiveMiners returns the subnet's miners with status = active.
func (r *Registry) FetchActiveMiners(subnetID int) ([]MinerInfo, error) {
	path := fmt.Sprintf("/registry/subnet/%d/miners", subnetID)
	resp, err := getJSON[[]MinerInfo](r.client, path)
	if err != nil {
		return nil, err
	}

	active := make([]MinerInfo, 0, len(resp.Data))
	for _, m := range resp.Data {
		if m.Status == StatusActive {
			active = append(active, m)
		}
	}
	return active, nil
}

// GetLatestSlot retrieves the chain's current slot.
func (r *Registry) GetLatestSlot() (SlotInfo, error) {
	resp, err := getJSON[SlotInfo](r.client, "/chain/latest-slot")
	if err != nil {
		return SlotInfo{}, err
	}
	return resp.Data, nil
}
