package remix

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/flate"

	"github.com/koios/frame-renderer/pkg/models"
)

// Prefix versions the encoded form.
const Prefix = "f1."

// maxInflated bounds the decompressed size of an encoded config.
const maxInflated = 1 << 20

// Decode stages reported by ConfigParseError.
const (
	StagePrefix   = "prefix"
	StageBase64   = "base64"
	StageInflate  = "inflate"
	StageJSON     = "json"
	StageValidate = "validate"
)

// ConfigParseError reports a serialized config that could not be restored.
type ConfigParseError struct {
	Stage string
	Err   error
}

func (e *ConfigParseError) Error() string {
	return fmt.Sprintf("config parse failed at %s: %v", e.Stage, e.Err)
}

func (e *ConfigParseError) Unwrap() error {
	return e.Err
}

// Encode serializes cfg into a URL-safe string.
func Encode(cfg models.FrameConfig) (string, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}

	var buf bytes.Buffer
	zw, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		return "", fmt.Errorf("failed to create compressor: %w", err)
	}
	if _, err := zw.Write(data); err != nil {
		return "", fmt.Errorf("failed to compress config: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("failed to compress config: %w", err)
	}

	return Prefix + base64.RawURLEncoding.EncodeToString(buf.Bytes()), nil
}

// Decode restores a config produced by Encode. Any failure is a
// *ConfigParseError and the returned config is the zero value.
func Decode(s string, sizes models.RenderSizes) (models.FrameConfig, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, Prefix) {
		return models.FrameConfig{}, &ConfigParseError{Stage: StagePrefix, Err: errors.New("missing version prefix")}
	}

	compressed, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(s, Prefix))
	if err != nil {
		return models.FrameConfig{}, &ConfigParseError{Stage: StageBase64, Err: err}
	}

	zr := flate.NewReader(bytes.NewReader(compressed))
	defer zr.Close()
	data, err := io.ReadAll(io.LimitReader(zr, maxInflated+1))
	if err != nil {
		return models.FrameConfig{}, &ConfigParseError{Stage: StageInflate, Err: err}
	}
	if len(data) > maxInflated {
		return models.FrameConfig{}, &ConfigParseError{Stage: StageInflate, Err: errors.New("config too large")}
	}

	return DecodeJSON(data, sizes)
}

// DecodeJSON strictly parses and validates a JSON config document.
func DecodeJSON(data []byte, sizes models.RenderSizes) (models.FrameConfig, error) {
	raw, err := models.DecodeRaw(data)
	if err != nil {
		return models.FrameConfig{}, &ConfigParseError{Stage: StageJSON, Err: err}
	}
	cfg, err := models.Build(raw, sizes)
	if err != nil {
		return models.FrameConfig{}, &ConfigParseError{Stage: StageValidate, Err: err}
	}
	return cfg, nil
}
