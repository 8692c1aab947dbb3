package tracing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/NikhilSetiya/dexanalyzer/pkg/logging"
)

func newRecordingService(t *testing.T) (*TracingService, *tracetest.SpanRecorder) {
	recorder := tracetest.NewSpanRecorder()
	ts, err := NewTracingServiceWithProcessor(DefaultConfig(), recorder)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ts.Shutdown(context.Background()) })
	return ts, recorder
}

func TestNewTracingService_Disabled(t *testing.T) {
	ts, err := NewTracingService(nil)
	require.NoError(t, err)
	assert.False(t, ts.Enabled())

	ctx, span := ts.StartAnalysisSpan(context.Background(), "ranking", "solana")
	span.End()
	assert.Empty(t, GetTraceID(ctx))
	assert.NoError(t, ts.Shutdown(context.Background()))

	client := &http.Client{}
	assert.Same(t, client, ts.InstrumentHTTPClient(client))
}

func TestTraceFunc_RecordsSpans(t *testing.T) {
	ts, recorder := newRecordingService(t)

	err := ts.TraceFunc(context.Background(), "analysis.ranking", func(ctx context.Context) error {
		assert.NotEmpty(t, GetTraceID(ctx))
		fields := logging.NewNopLogger().WithContext(WithTraceContext(ctx)).Data
		assert.Equal(t, GetTraceID(ctx), fields["trace_id"])
		return nil
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = ts.TraceFunc(context.Background(), "llm.openai", func(ctx context.Context) error { return boom })
	require.ErrorIs(t, err, boom)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "analysis.ranking", spans[0].Name())
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Len(t, spans[1].Events(), 1)
}

func TestInstrumentHTTPClient(t *testing.T) {
	ts, recorder := newRecordingService(t)

	var traceparent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceparent = r.Header.Get("traceparent")
		w.WriteHeader(http.StatusTeapot)
	}))
	defer srv.Close()

	client := ts.InstrumentHTTPClient(&http.Client{})
	defer client.CloseIdleConnections()

	resp, err := client.Get(srv.URL + "/v2/blockchain")
	require.NoError(t, err)
	resp.Body.Close()

	assert.NotEmpty(t, traceparent)
	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "HTTP GET", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}

func TestTracingMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ts, recorder := newRecordingService(t)

	router := gin.New()
	router.Use(ts.TracingMiddleware())
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /health", spans[0].Name())
}
