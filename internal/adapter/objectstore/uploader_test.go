package objectstore

import (
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/grid-capacity-etl/internal/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeys(t *testing.T) {
	runID := uuid.MustParse("6f1c1f0e-8a0b-4a57-9b64-0f1f1e0d2c3b")
	at := time.Date(2024, 3, 1, 23, 30, 0, 0, time.FixedZone("CET", 3600))

	tests := []struct {
		name   string
		prefix string
		run    string
		latest string
	}{
		{"no prefix", "", "runs/2024-03-01/6f1c1f0e-8a0b-4a57-9b64-0f1f1e0d2c3b/data.csv", "latest/data.csv"},
		{"prefix", "grid", "grid/runs/2024-03-01/6f1c1f0e-8a0b-4a57-9b64-0f1f1e0d2c3b/data.csv", "grid/latest/data.csv"},
		{"slashes trimmed", "/grid/", "grid/runs/2024-03-01/6f1c1f0e-8a0b-4a57-9b64-0f1f1e0d2c3b/data.csv", "grid/latest/data.csv"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.run, RunKey(tt.prefix, at, runID, "data.csv"))
			assert.Equal(t, tt.latest, LatestKey(tt.prefix, "data.csv"))
		})
	}
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "text/csv", contentType("data.csv"))
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", contentType("DATA.XLSX"))
	assert.Equal(t, "application/octet-stream", contentType("data"))
}

func TestNewUploader(t *testing.T) {
	cfg := &config.Config{S3Endpoint: "localhost:9000", S3Bucket: "grid-capacity", S3AccessKey: "k", S3SecretKey: "s"}

	u, err := NewUploader(cfg, slog.New(slog.DiscardHandler))

	require.NoError(t, err)
	assert.Equal(t, "grid-capacity", u.bucket)
}

func TestNewUploader_InvalidEndpoint(t *testing.T) {
	cfg := &config.Config{S3Endpoint: "http://localhost:9000", S3Bucket: "b"}

	_, err := NewUploader(cfg, slog.New(slog.DiscardHandler))

	require.Error(t, err)
}
