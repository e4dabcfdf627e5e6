package image

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"florence-server-go/internal/domain/schema"
	"florence-server-go/internal/platform/config"
	"florence-server-go/internal/platform/errors"
	"florence-server-go/internal/utils"
)

// Pipeline orchestrates streaming ingestion, validation, and base64 encoding
// of image payloads. Everything it produces is scoped to one request.
type Pipeline struct {
	validator *Validator
	fetcher   *Fetcher
	logger    *utils.Logger
	security  *config.SecurityConfig
}

// Options configures the pipeline behaviour.
type Options struct {
	Security *config.SecurityConfig
	Logger   *utils.Logger
}

// Input describes a streaming image payload.
type Input struct {
	Reader         io.Reader
	DeclaredFormat string
	Source         string
}

// Output contains the sanitised artefacts produced by the pipeline.
type Output struct {
	Base64     string
	Bytes      []byte
	Format     string
	Validation ValidationResult
}

// NewPipeline constructs a streaming image pipeline.
func NewPipeline(opts Options) (*Pipeline, error) {
	if opts.Security == nil {
		return nil, errors.New(errors.KindConfig, "image.pipeline", "security config is required")
	}
	if opts.Logger == nil {
		opts.Logger = utils.DefaultLogger
	}

	return &Pipeline{
		validator: NewValidator(opts.Security, opts.Logger),
		fetcher:   NewFetcher(opts.Security, opts.Logger),
		logger:    opts.Logger,
		security:  opts.Security,
	}, nil
}

// Resolve turns a wire-level image payload (inline base64 or URL) into
// validated bytes plus their base64 form.
func (p *Pipeline) Resolve(ctx context.Context, payload schema.ImagePayload) (*Output, error) {
	var (
		reader     io.ReadCloser
		formatHint = payload.Format
		source     string
		err        error
	)

	switch {
	case payload.URL != "":
		source = payload.URL
		reader, formatHint, err = p.fetcher.Fetch(ctx, payload.URL)
		if err != nil {
			return nil, err
		}
	case payload.Data != "":
		source = "inline"
		reader = io.NopCloser(base64.NewDecoder(base64.StdEncoding, strings.NewReader(payload.Data)))
	default:
		return nil, errors.New(errors.KindValidation, "image.resolve", "missing image payload")
	}
	defer reader.Close()

	return p.Process(ctx, Input{
		Reader:         reader,
		DeclaredFormat: formatHint,
		Source:         source,
	})
}

// Process streams the input through validation and base64 encoding.
func (p *Pipeline) Process(ctx context.Context, input Input) (*Output, error) {
	if input.Reader == nil {
		return nil, errors.New(errors.KindValidation, "image.process", "image reader is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	maxSize := p.security.MaxFileSize
	if maxSize <= 0 {
		maxSize = 5 * 1024 * 1024
	}

	limited := &io.LimitedReader{
		R: input.Reader,
		N: maxSize + 1,
	}

	rawBuf := bytes.NewBuffer(make([]byte, 0, 32*1024))
	base64Buf := bytes.NewBuffer(make([]byte, 0, 64*1024))

	encoder := base64.NewEncoder(base64.StdEncoding, base64Buf)
	writer := io.MultiWriter(rawBuf, encoder)

	if _, err := io.Copy(writer, limited); err != nil {
		return nil, errors.Wrap(errors.KindValidation, "image.process", "stream image bytes", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, errors.Wrap(errors.KindValidation, "image.process", "finalise base64 encoding", err)
	}

	if limited.N <= 0 {
		return nil, errors.New(errors.KindValidation, "image.process",
			fmt.Sprintf("image exceeds maximum size of %d bytes", maxSize))
	}

	rawBytes := rawBuf.Bytes()
	validation := p.validator.ValidateBytes(rawBytes, input.DeclaredFormat)
	if !validation.IsValid {
		if validation.Error != nil {
			return nil, errors.Wrap(errors.KindValidation, "image.process", "image validation failed", validation.Error)
		}
		return nil, errors.New(errors.KindValidation, "image.process", "image validation failed")
	}

	sanitised := make([]byte, len(rawBytes))
	copy(sanitised, rawBytes)

	return &Output{
		Base64:     base64Buf.String(),
		Bytes:      sanitised,
		Format:     validation.Format,
		Validation: validation,
	}, nil
}
