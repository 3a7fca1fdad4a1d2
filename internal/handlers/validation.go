package handlers

import (
	"errors"

	"github.com/koios/frame-renderer/pkg/models"
)

// CodeInvalidJSON marks a body that is not a well-formed config document.
const CodeInvalidJSON = "invalid_json"

// ValidateResponse represents the response from config validation
type ValidateResponse struct {
	Valid  bool                     `json:"valid"`
	Errors []models.ValidationError `json:"errors,omitempty"`
}

// ParseConfig strictly decodes body and builds a config. Malformed JSON is a
// hard error; a well-formed but invalid config is returned together with its
// validation errors so callers can render it fail-closed.
func ParseConfig(body []byte, sizes models.RenderSizes) (models.FrameConfig, ValidateResponse, error) {
	raw, err := models.DecodeRaw(body)
	if err != nil {
		return models.FrameConfig{}, ValidateResponse{
			Errors: []models.ValidationError{{
				Field:   "",
				Message: "Body must be a JSON frame config: " + err.Error(),
				Code:    CodeInvalidJSON,
			}},
		}, err
	}

	cfg, err := models.Build(raw, sizes)
	if err != nil {
		var verr *models.ConfigValidationError
		if errors.As(err, &verr) {
			return cfg, ValidateResponse{Errors: verr.Errors}, nil
		}
		return cfg, ValidateResponse{}, err
	}
	return cfg, ValidateResponse{Valid: true}, nil
}
