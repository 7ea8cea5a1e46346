package registry

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog/log"

	"github.com/moderntensor/mtnode/internal/config"
	"github.com/moderntensor/mtnode/pkg/signature"
)

// Publisher submits aggregated score vectors to the fullnode gateway. Retries
// and backoff live here; the consensus core calls PublishScores at most once
// per phase, and not at all when no miner was scored.
type Publisher struct {
	httpClient *retryablehttp.Client
	baseURL    string
	subnetID   int
	signer     *signature.Provider
	address    string
}

func NewPublisher(cfg *config.ChainEnvConfig, signer *signature.Provider) (*Publisher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}

	client := retryablehttp.NewClient()
	client.RetryMax = 5
	client.HTTPClient.Timeout = 30 * time.Second
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 20 * time.Second
	client.Logger = nil

	address := ""
	if signer != nil {
		address = signer.Address()
	}

	return &Publisher{
		httpClient: client,
		baseURL:    cfg.FullnodeURL,
		subnetID:   cfg.SubnetID,
		signer:     signer,
		address:    address,
	}, nil
}

// PublishScores submits one final score vector for the given slot.
func (p *Publisher) PublishScores(slot int64, scores map[string]float64) error {
	params := PublishScoresParams{
		SubnetID:  p.subnetID,
		Slot:      slot,
		Validator: p.address,
		Scores:    scores,
	}

	if p.signer != nil {
		payload, err := sonic.Marshal(params)
		if err != nil {
			return fmt.Errorf("marshal scores payload: %w", err)
		}
		sig, err := p.signer.Sign(string(payload))
		if err != nil {
			return fmt.Errorf("sign scores payload: %w", err)
		}
		params.Signature = sig
	}

	body, err := sonic.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal request body: %w", err)
	}

	url := p.baseURL + "/consensus/submit-scores"
	req, err := retryablehttp.NewRequest(http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		log.Error().Err(err).Str("url", url).Msg("publish scores request failed")
		return fmt.Errorf("publish scores: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("publish scores returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var out SubmitResponse
	if err := sonic.Unmarshal(respBody, &out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	if out.Error != nil {
		return fmt.Errorf("response error: %v", out.Error)
	}

	log.Info().Int64("slot", slot).Int("miners", len(scores)).Str("tx", out.Data).Msg("published scores")
	return nil
}
