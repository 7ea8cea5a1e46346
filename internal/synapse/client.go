package synapse

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"
)

// ErrMalformedReply marks replies that arrived but could not be parsed. The
// collector scores these differently from transport failures.
var ErrMalformedReply = errors.New("malformed reply")

type Client struct {
	httpClient *resty.Client
	cfg        Config
}

func NewClient(cfg Config) *Client {
	cli := resty.New()

	cli.SetRetryCount(cfg.RetryMax)
	cli.SetTimeout(cfg.ClientTimeout)
	cli.SetRetryWaitTime(cfg.RetryWait)
	cli.SetRetryMaxWaitTime(cfg.RetryWait * 2)
	cli.SetHeader("Accept-Encoding", "zstd")
	return &Client{httpClient: cli, cfg: cfg}
}

// SendTask posts one task to a miner endpoint and waits for its reply. The
// caller owns the context; cancelling it aborts the in-flight request.
func (c *Client) SendTask(ctx context.Context, url string, task TaskRequest) (TaskResponse, error) {
	var resp TaskResponse
	b, err := sonic.Marshal(task)
	if err != nil {
		return resp, fmt.Errorf("marshal task: %w", err)
	}

	req := c.httpClient.R().SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(b)

	restyResp, err := req.Post(strings.TrimSuffix(url, "/") + "/task")
	if err != nil {
		return resp, err
	}

	if restyResp.StatusCode() >= 400 {
		return resp, fmt.Errorf("bad status %d: %s", restyResp.StatusCode(), string(restyResp.Body()))
	}

	data := restyResp.Body()
	if strings.Contains(strings.ToLower(restyResp.Header().Get("Content-Encoding")), "zstd") {
		r, err := zstd.NewReader(bytes.NewReader(data))
		if err != nil {
			return resp, fmt.Errorf("zstd: failed to create reader: %w", err)
		}
		defer r.Close()

		out, err := io.ReadAll(r)
		if err != nil {
			return resp, fmt.Errorf("zstd: failed to decompress response: %w", err)
		}
		data = out
	}

	if err := sonic.Unmarshal(data, &resp); err != nil {
		log.Debug().Err(err).Str("url", url).Msg("miner reply did not parse")
		return resp, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	return resp, nil
}
