// Package synapse implements the validator<->miner wire protocol: a JSON task
// request over HTTP with optional zstd compression on the response.
package synapse

import "time"

type Config struct {
	Address       string
	BodySizeLimit int
	ClientTimeout time.Duration
	RetryMax      int
	RetryWait     time.Duration
}

// TaskRequest is sent to a miner's /task endpoint.
type TaskRequest struct {
	TaskID    string `json:"task_id"`
	Slot      int64  `json:"slot"`
	Round     int    `json:"round"`
	Validator string `json:"validator,omitempty"`
	// Payload is the subnet-defined task body, passed through opaquely.
	Payload map[string]any `json:"payload,omitempty"`
	Raw     []byte         `json:"raw,omitempty"`
}

// TaskResponse is the miner's reply. Everything beyond the task id is
// optional; the scorer rewards whichever capability fields are present.
type TaskResponse struct {
	TaskID       string            `json:"task_id"`
	ResultURL    string            `json:"result_url,omitempty"`
	ModelVersion string            `json:"model_version,omitempty"`
	LatencySecs  float64           `json:"latency_secs,omitempty"`
	Extra        map[string]string `json:"extra,omitempty"`
}
