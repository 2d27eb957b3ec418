package telemetry

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestInitServesMetrics(t *testing.T) {
	tel, err := Init("thoughtd-test", "0.0.0")
	require.NoError(t, err)
	defer tel.Shutdown(context.Background())

	meter := otel.Meter("test")
	counter, err := meter.Int64Counter("test_operations_total")
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	tel.Handler().ServeHTTP(rec, req)

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "test_operations_total")
}
