package tracer

import (
	"context"
	"testing"

	"brainstorm-be/internal/config"
	"brainstorm-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
)

func TestInitTracer_DisabledIsNoop(t *testing.T) {
	shutdown := InitTracer(config.TracingConfig{Enabled: false}, logger.NewNopLogger())
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitTracer_Enabled(t *testing.T) {
	// the exporter connects lazily, so no collector is needed here
	shutdown := InitTracer(config.TracingConfig{Enabled: true, Endpoint: "127.0.0.1:1", ServiceName: "test"}, logger.NewNopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = shutdown(ctx)
}
