package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

func TestInitTracer(t *testing.T) {
	ctx := context.Background()

	tp, err := InitTracer(ctx, "powerlunch-test", "127.0.0.1:4318")
	require.NoError(t, err)
	assert.Same(t, tp, otel.GetTracerProvider())

	tracer := otel.Tracer("test")
	assert.NotNil(t, tracer)

	assert.NoError(t, Shutdown(ctx, tp))
}

func TestNewResource(t *testing.T) {
	tests := []struct {
		name    string
		service string
	}{
		{name: "api", service: "powerlunch-api"},
		{name: "empty name", service: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := newResource(context.Background(), tt.service)
			require.NoError(t, err)

			got, ok := res.Set().Value(semconv.ServiceNameKey)
			require.True(t, ok)
			assert.Equal(t, tt.service, got.AsString())

			_, ok = res.Set().Value(attribute.Key("telemetry.sdk.language"))
			assert.True(t, ok)
		})
	}
}
