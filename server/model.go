package server

import "github.com/esimov/bitsvg"

// VectorizeData is the outcome of vectorizing one uploaded image.
type VectorizeData struct {
	Filename   string         `json:"filename"`
	Key        string         `json:"key"`
	SVG        string         `json:"svg"`
	Layers     int            `json:"layers"`
	Primitives int            `json:"primitives"`
	Metrics    bitsvg.Metrics `json:"metrics"`
	Warning    string         `json:"warning,omitempty"`
}

// BatchItem reports either the data or the error of one image of a batch.
type BatchItem struct {
	Filename string         `json:"filename"`
	Data     *VectorizeData `json:"data,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// VectorizeResponse is returned by the single image endpoint.
type VectorizeResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Data    *VectorizeData `json:"data,omitempty"`
}

// BatchResponse is returned by the batch endpoint.
type BatchResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    []BatchItem `json:"data"`
}

// HealthResponse reports the service status and the trace cache counters.
type HealthResponse struct {
	Status string            `json:"status"`
	Cache  bitsvg.CacheStats `json:"cache"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}
