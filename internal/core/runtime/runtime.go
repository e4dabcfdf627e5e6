// Package runtime talks to the Florence-2 inference sidecar over HTTP.
// The sidecar owns the model weights; this package owns the wire contract
// and request serialization.
package runtime

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"florence-server-go/internal/domain/schema"
	"florence-server-go/internal/platform/config"
	"florence-server-go/internal/platform/errors"
	"florence-server-go/internal/utils"
)

// Inferencer runs a composed prompt against an image and returns the raw
// token-keyed model output.
type Inferencer interface {
	Infer(ctx context.Context, imageBase64, prompt string) (schema.RawOutput, error)
}

// inferRequest is the sidecar wire request.
type inferRequest struct {
	Model       string `json:"model"`
	Prompt      string `json:"prompt"`
	ImageBase64 string `json:"image_base64"`
}

// inferResponse is the sidecar wire response. Result is keyed by the task
// token that prefixed the prompt.
type inferResponse struct {
	Result schema.RawOutput `json:"result"`
	Error  string           `json:"error,omitempty"`
}

// Client is an HTTP client for the inference sidecar.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *utils.Logger

	// serialize guards single-GPU sidecars that cannot run concurrent
	// inference. Nil when concurrent requests are allowed.
	serialize *sync.Mutex
}

// NewClient builds a sidecar client from the runtime configuration.
func NewClient(cfg *config.RuntimeConfig, logger *utils.Logger) (*Client, error) {
	if cfg == nil || cfg.BaseURL == "" {
		return nil, errors.New(errors.KindConfig, "runtime.new", "runtime base URL is required")
	}
	if logger == nil {
		logger = utils.DefaultLogger
	}

	timeout := cfg.Timeout.Std()
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	client := &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		model:   cfg.Model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
	if cfg.Serialize {
		client.serialize = &sync.Mutex{}
	}

	return client, nil
}

// Infer sends one prompt+image pair to the sidecar and returns the raw
// output map. The map is keyed by task token; parsing it is the caller's
// concern.
func (c *Client) Infer(ctx context.Context, imageBase64, prompt string) (schema.RawOutput, error) {
	if c.serialize != nil {
		c.serialize.Lock()
		defer c.serialize.Unlock()
	}

	body, err := json.Marshal(inferRequest{
		Model:       c.model,
		Prompt:      prompt,
		ImageBase64: imageBase64,
	})
	if err != nil {
		return nil, errors.Wrap(errors.KindModel, "runtime.infer", "marshal inference request", err)
	}

	url := c.baseURL + "/run_task"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return nil, errors.Wrap(errors.KindModel, "runtime.infer", "create inference request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(errors.KindModel, "runtime.infer", "call inference runtime", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, errors.New(errors.KindModel, "runtime.infer",
			fmt.Sprintf("runtime returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(detail))))
	}

	var parsed inferResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, errors.Wrap(errors.KindModel, "runtime.infer", "decode runtime response", err)
	}
	if parsed.Error != "" {
		return nil, errors.New(errors.KindModel, "runtime.infer",
			fmt.Sprintf("runtime reported error: %s", parsed.Error))
	}
	if parsed.Result == nil {
		return nil, errors.New(errors.KindModel, "runtime.infer", "runtime response has no result")
	}

	c.logger.DebugTag("RUNTIME", "inference completed", map[string]interface{}{
		"model":      c.model,
		"elapsed_ms": time.Since(started).Milliseconds(),
	})

	return parsed.Result, nil
}
