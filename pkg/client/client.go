// Package client is a typed HTTP client for the florence-server API.
package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"florence-server-go/internal/domain/schema"
	"florence-server-go/internal/domain/task"
	"florence-server-go/internal/platform/errors"
)

// Client talks to a florence-server instance.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option customises the client.
type Option func(*Client)

// WithToken sets the bearer token sent on every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithTimeout overrides the request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithHTTPClient swaps the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// New creates a client for the server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 150 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ImageFromFile loads a local file as an inline image payload.
func ImageFromFile(path string) (schema.ImagePayload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return schema.ImagePayload{}, errors.Wrap(errors.KindValidation, "client.image", "read image file", err)
	}
	return ImageFromBytes(data), nil
}

// ImageFromBytes wraps raw image bytes as an inline payload.
func ImageFromBytes(data []byte) schema.ImagePayload {
	return schema.ImagePayload{
		Data: base64.StdEncoding.EncodeToString(data),
	}
}

// ImageFromURL references a remote image the server will download.
func ImageFromURL(url string) schema.ImagePayload {
	return schema.ImagePayload{URL: url}
}

// CaptionOptions selects the caption verbosity.
type CaptionOptions struct {
	Verbosity task.CaptionVerbosity
}

// DetectOptions selects a detection variant and its conditional fields.
type DetectOptions struct {
	Mode   task.DetectionMode
	Prompt string
	Region *schema.Region
}

// SegmentOptions selects a segmentation variant and its conditional fields.
type SegmentOptions struct {
	Mode   task.SegmentationMode
	Prompt string
	Region *schema.Region
}

// OCROptions selects plain text or text with region boxes.
type OCROptions struct {
	Mode task.OCRMode
}

// Caption requests a whole-image caption.
func (c *Client) Caption(ctx context.Context, image schema.ImagePayload, opts CaptionOptions) (*schema.TaskResponse, error) {
	t, err := opts.Verbosity.Task()
	if err != nil {
		return nil, err
	}
	if err := validate(t, image, "", nil); err != nil {
		return nil, err
	}

	return c.post(ctx, "/api/caption", map[string]interface{}{
		"image":     image,
		"verbosity": string(opts.Verbosity),
	})
}

// Detect requests object detection, grounding or region description.
func (c *Client) Detect(ctx context.Context, image schema.ImagePayload, opts DetectOptions) (*schema.TaskResponse, error) {
	t, err := opts.Mode.Task()
	if err != nil {
		return nil, err
	}
	if err := validate(t, image, opts.Prompt, opts.Region); err != nil {
		return nil, err
	}

	return c.post(ctx, "/api/detect", map[string]interface{}{
		"image":  image,
		"mode":   string(opts.Mode),
		"prompt": opts.Prompt,
		"region": opts.Region,
	})
}

// Segment requests referring-expression or region segmentation.
func (c *Client) Segment(ctx context.Context, image schema.ImagePayload, opts SegmentOptions) (*schema.TaskResponse, error) {
	t, err := opts.Mode.Task()
	if err != nil {
		return nil, err
	}
	if err := validate(t, image, opts.Prompt, opts.Region); err != nil {
		return nil, err
	}

	return c.post(ctx, "/api/segment", map[string]interface{}{
		"image":  image,
		"mode":   string(opts.Mode),
		"prompt": opts.Prompt,
		"region": opts.Region,
	})
}

// OCR requests text extraction.
func (c *Client) OCR(ctx context.Context, image schema.ImagePayload, opts OCROptions) (*schema.TaskResponse, error) {
	t, err := opts.Mode.Task()
	if err != nil {
		return nil, err
	}
	if err := validate(t, image, "", nil); err != nil {
		return nil, err
	}

	return c.post(ctx, "/api/ocr", map[string]interface{}{
		"image": image,
		"mode":  string(opts.Mode),
	})
}

// Status reports the server health and active model.
func (c *Client) Status(ctx context.Context) (map[string]interface{}, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/florence", nil)
	if err != nil {
		return nil, errors.Wrap(errors.KindTransport, "client.status", "create request", err)
	}

	envelope, err := c.do(req)
	if err != nil {
		return nil, err
	}

	status, ok := envelope.Data.(map[string]interface{})
	if !ok {
		return nil, errors.New(errors.KindTransport, "client.status", "unexpected status payload")
	}
	return status, nil
}

// validate runs the same request checks the server applies, so malformed
// requests fail before any bytes hit the wire.
func validate(t task.Task, image schema.ImagePayload, prompt string, region *schema.Region) error {
	req := schema.TaskRequest{
		Task:   t,
		Image:  image,
		Prompt: prompt,
		Region: region,
	}
	return req.Validate()
}

type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Message string      `json:"message"`
	Code    int         `json:"code"`
}

func (c *Client) post(ctx context.Context, path string, body map[string]interface{}) (*schema.TaskResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(errors.KindTransport, "client.post", "marshal request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(errors.KindTransport, "client.post", "create request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	env, err := c.do(req)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(env.Data)
	if err != nil {
		return nil, errors.Wrap(errors.KindTransport, "client.post", "re-encode response data", err)
	}
	var result schema.TaskResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, errors.Wrap(errors.KindTransport, "client.post", "decode task response", err)
	}
	return &result, nil
}

func (c *Client) do(req *http.Request) (*envelope, error) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(errors.KindTransport, "client.do", "send request", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16*1024*1024))
	if err != nil {
		return nil, errors.Wrap(errors.KindTransport, "client.do", "read response", err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, errors.New(errors.KindTransport, "client.do",
			fmt.Sprintf("unexpected response (HTTP %d): %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	if !env.Success {
		return nil, errors.New(errors.KindTransport, "client.do",
			fmt.Sprintf("server rejected request (HTTP %d): %s", resp.StatusCode, env.Message))
	}
	return &env, nil
}
