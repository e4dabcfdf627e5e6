package image

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"florence-server-go/internal/platform/config"
	"florence-server-go/internal/platform/errors"
	"florence-server-go/internal/utils"
)

// Fetcher downloads remote images with size and content-type guards.
type Fetcher struct {
	client   *http.Client
	security *config.SecurityConfig
	logger   *utils.Logger
}

// NewFetcher creates a fetcher bound to the given security limits.
func NewFetcher(security *config.SecurityConfig, logger *utils.Logger) *Fetcher {
	if logger == nil {
		logger = utils.DefaultLogger
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		security: security,
		logger:   logger,
	}
}

// Fetch downloads the image at rawURL and returns its body together with a
// format hint derived from the Content-Type header. The caller owns the
// returned ReadCloser.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (io.ReadCloser, string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, "", errors.New(errors.KindValidation, "image.fetch",
			fmt.Sprintf("invalid image URL: %s", rawURL))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", errors.Wrap(errors.KindValidation, "image.fetch", "build image request", err)
	}
	req.Header.Set("User-Agent", "florence-server/1.0")
	req.Header.Set("Accept", "image/*")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", errors.Wrap(errors.KindTransport, "image.fetch", "download image", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, "", errors.New(errors.KindTransport, "image.fetch",
			fmt.Sprintf("image download failed with HTTP %d", resp.StatusCode))
	}

	contentType := resp.Header.Get("Content-Type")
	if !isImageContentType(contentType) {
		resp.Body.Close()
		return nil, "", errors.New(errors.KindValidation, "image.fetch",
			fmt.Sprintf("unexpected content type %q for image URL", contentType))
	}

	if resp.ContentLength > 0 && f.security != nil && f.security.MaxFileSize > 0 &&
		resp.ContentLength > f.security.MaxFileSize {
		resp.Body.Close()
		return nil, "", errors.New(errors.KindValidation, "image.fetch",
			fmt.Sprintf("remote image is %d bytes, limit is %d", resp.ContentLength, f.security.MaxFileSize))
	}

	f.logger.DebugTag("IMAGE", "downloaded image", map[string]interface{}{
		"url":          rawURL,
		"content_type": contentType,
	})

	return resp.Body, formatFromContentType(contentType), nil
}

func isImageContentType(contentType string) bool {
	mediaType := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	switch mediaType {
	case "image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp", "image/bmp":
		return true
	case "application/octet-stream", "":
		// Some hosts serve images without a proper media type; let the
		// signature check decide.
		return true
	default:
		return false
	}
}

func formatFromContentType(contentType string) string {
	mediaType := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	switch mediaType {
	case "image/jpeg", "image/jpg":
		return "jpeg"
	case "image/png":
		return "png"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	case "image/bmp":
		return "bmp"
	default:
		return ""
	}
}
