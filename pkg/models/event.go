package models

import (
	"encoding/json"
	"time"
)

// ExportRequest represents a request to export a frame at canvas size
type ExportRequest struct {
	UUID      string          `json:"uuid"`
	Config    json.RawMessage `json:"config"`
	AvatarURL string          `json:"avatar_url"`
}

// AssetFailure names an element whose external image could not be used.
type AssetFailure struct {
	Element string `json:"element"`
	URL     string `json:"url,omitempty"`
	Error   string `json:"error"`
}

// ExportResult represents the result of an export operation
type ExportResult struct {
	UUID        string         `json:"uuid"`
	PNG         string         `json:"png,omitempty"` // base64 encoded PNG
	Width       int            `json:"width"`
	Height      int            `json:"height"`
	Failures    []AssetFailure `json:"failures,omitempty"`
	Error       string         `json:"error,omitempty"`
	ProcessedAt time.Time      `json:"processed_at"`
}

// FrameRecord is a stored frame as returned by the frame store.
type FrameRecord struct {
	ID     string          `json:"id"`
	Config json.RawMessage `json:"config"`
}
