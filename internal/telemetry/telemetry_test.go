package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_NoopWhenDisabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), Options{Endpoint: "http://192.0.2.1:4318"})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetup_NoopWhenEndpointEmpty(t *testing.T) {
	shutdown, err := Setup(context.Background(), Options{Enabled: true})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, shutdown(ctx), "noop shutdown ignores cancelled context")
}

func TestSetup_CreatesProvider(t *testing.T) {
	// Non-routable address: nothing is exported before shutdown.
	shutdown, err := Setup(context.Background(), Options{
		ServiceName: "dealroom-test",
		Endpoint:    "http://192.0.2.1:4318",
		Enabled:     true,
	})
	require.NoError(t, err)
	assert.NotNil(t, Tracer())
	assert.NoError(t, shutdown(context.Background()))
}
