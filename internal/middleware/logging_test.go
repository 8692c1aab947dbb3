package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NikhilSetiya/dexanalyzer/pkg/logging"
)

func newRouter(t *testing.T) (*gin.Engine, *bytes.Buffer) {
	gin.SetMode(gin.TestMode)

	logger, err := logging.NewLogger(&logging.Config{Level: "debug", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	var buf bytes.Buffer
	logger.SetOutput(&buf)

	router := gin.New()
	router.Use(Recovery(logger), Logging(logger))
	router.GET("/livez", func(c *gin.Context) {
		c.String(http.StatusOK, logging.GetCorrelationID(c.Request.Context()))
	})
	router.GET("/boom", func(c *gin.Context) { panic("boom") })
	return router, &buf
}

func TestLogging_CorrelationID(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{name: "propagated", header: "run-42"},
		{name: "generated"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, buf := newRouter(t)

			req := httptest.NewRequest(http.MethodGet, "/livez", nil)
			if tt.header != "" {
				req.Header.Set(headerCorrelationID, tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			id := w.Header().Get(headerCorrelationID)
			require.NotEmpty(t, id)
			assert.Equal(t, id, w.Body.String())
			if tt.header != "" {
				assert.Equal(t, tt.header, id)
			}

			var entry map[string]interface{}
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
			assert.Equal(t, "Telemetry request", entry["message"])
			assert.Equal(t, logrus.DebugLevel.String(), entry["level"])
			assert.Equal(t, id, entry["correlation_id"])
			assert.Equal(t, "/livez", entry["path"])
		})
	}
}

func TestRecovery(t *testing.T) {
	router, buf := newRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set(headerCorrelationID, "run-7")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal server error","correlation_id":"run-7"}`, w.Body.String())
	assert.Contains(t, buf.String(), "Telemetry handler panicked")
}
