package observability

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playarena/chat-sync/internal/config"
)

func TestNormalizeEndpoint(t *testing.T) {
	tests := []struct {
		raw          string
		wantEndpoint string
		wantInsecure bool
	}{
		{"http://collector:4318", "collector:4318", true},
		{"https://collector.example.com", "collector.example.com", false},
		{"collector:4318", "collector:4318", true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			endpoint, insecure := normalizeEndpoint(tt.raw)
			assert.Equal(t, tt.wantEndpoint, endpoint)
			assert.Equal(t, tt.wantInsecure, insecure)
		})
	}
}

func TestSetup_Disabled(t *testing.T) {
	cfg := &config.Config{ServiceName: "chat-sync", Environment: "test"}

	shutdown, err := Setup(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	_, span := Tracer().Start(context.Background(), "test")
	span.End()

	assert.NoError(t, shutdown(context.Background()))
}
