package image

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"florence-server-go/internal/domain/schema"
	"florence-server-go/internal/platform/config"
	"florence-server-go/internal/platform/errors"
)

func testSecurityConfig() *config.SecurityConfig {
	return &config.SecurityConfig{
		MaxFileSize:    1024 * 1024,
		MaxWidth:       4096,
		MaxHeight:      4096,
		MaxPixels:      4096 * 4096,
		AllowedFormats: []string{"jpeg", "png", "gif", "webp", "bmp"},
		EnableDeepScan: true,
	}
}

func encodeTestPNG(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestPipeline(t *testing.T, security *config.SecurityConfig) *Pipeline {
	t.Helper()

	pipeline, err := NewPipeline(Options{Security: security})
	require.NoError(t, err)
	return pipeline
}

func TestValidator_ValidateBytes(t *testing.T) {
	validator := NewValidator(testSecurityConfig(), nil)
	pngBytes := encodeTestPNG(t, 8, 6)

	result := validator.ValidateBytes(pngBytes, "png")
	assert.True(t, result.IsValid)
	assert.Equal(t, "png", result.Format)
	assert.Equal(t, 8, result.Width)
	assert.Equal(t, 6, result.Height)
}

func TestValidator_RejectsEmptyPayload(t *testing.T) {
	validator := NewValidator(testSecurityConfig(), nil)

	result := validator.ValidateBytes(nil, "")
	assert.False(t, result.IsValid)
}

func TestValidator_RejectsExecutableContent(t *testing.T) {
	validator := NewValidator(testSecurityConfig(), nil)
	payload := append([]byte("MZ"), bytes.Repeat([]byte{0x00}, 64)...)

	result := validator.ValidateBytes(payload, "png")
	assert.False(t, result.IsValid)
}

func TestPipeline_Process(t *testing.T) {
	pipeline := newTestPipeline(t, testSecurityConfig())
	pngBytes := encodeTestPNG(t, 16, 16)

	out, err := pipeline.Process(context.Background(), Input{
		Reader:         bytes.NewReader(pngBytes),
		DeclaredFormat: "png",
		Source:         "test",
	})
	require.NoError(t, err)

	assert.Equal(t, "png", out.Format)
	assert.Equal(t, pngBytes, out.Bytes)

	decoded, err := base64.StdEncoding.DecodeString(out.Base64)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, decoded)
}

func TestPipeline_RejectsOversizedStream(t *testing.T) {
	security := testSecurityConfig()
	security.MaxFileSize = 64
	pipeline := newTestPipeline(t, security)

	_, err := pipeline.Process(context.Background(), Input{
		Reader: bytes.NewReader(encodeTestPNG(t, 32, 32)),
	})
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindValidation))
}

func TestPipeline_ResolveInline(t *testing.T) {
	pipeline := newTestPipeline(t, testSecurityConfig())
	pngBytes := encodeTestPNG(t, 4, 4)

	out, err := pipeline.Resolve(context.Background(), schema.ImagePayload{
		Data:   base64.StdEncoding.EncodeToString(pngBytes),
		Format: "png",
	})
	require.NoError(t, err)
	assert.Equal(t, pngBytes, out.Bytes)
}

func TestPipeline_ResolveMissingPayload(t *testing.T) {
	pipeline := newTestPipeline(t, testSecurityConfig())

	_, err := pipeline.Resolve(context.Background(), schema.ImagePayload{})
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindValidation))
}

func TestFetcher_Fetch(t *testing.T) {
	pngBytes := encodeTestPNG(t, 4, 4)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(pngBytes)
	}))
	defer server.Close()

	pipeline := newTestPipeline(t, testSecurityConfig())
	out, err := pipeline.Resolve(context.Background(), schema.ImagePayload{URL: server.URL})
	require.NoError(t, err)
	assert.Equal(t, "png", out.Format)
	assert.Equal(t, pngBytes, out.Bytes)
}

func TestFetcher_RejectsNonImageContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html></html>"))
	}))
	defer server.Close()

	fetcher := NewFetcher(testSecurityConfig(), nil)
	_, _, err := fetcher.Fetch(context.Background(), server.URL)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindValidation))
}

func TestFetcher_RejectsBadScheme(t *testing.T) {
	fetcher := NewFetcher(testSecurityConfig(), nil)
	_, _, err := fetcher.Fetch(context.Background(), "ftp://example.com/cat.png")
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindValidation))
}
