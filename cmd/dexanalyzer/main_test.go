package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/NikhilSetiya/dexanalyzer/pkg/errors"
	"github.com/NikhilSetiya/dexanalyzer/pkg/health"
	"github.com/NikhilSetiya/dexanalyzer/pkg/logging"
	"github.com/NikhilSetiya/dexanalyzer/pkg/metrics"
	"github.com/NikhilSetiya/dexanalyzer/pkg/tracing"
)

const gainersBody = `{"statusCode":200,"data":[
	{"rank":1,"address":"pool1","exchange":{"name":"Raydium"},"price":0.5,"variation24h":250,"volume24h":1200,"liquidity":800,
	 "mainToken":{"name":"Moon","symbol":"MOON","address":"mint1"},"sideToken":{"symbol":"SOL"}},
	{"rank":2,"address":"pool2","exchange":{"name":"Orca"},"price":2,"variation24h":40,"volume24h":90000,"liquidity":150000,
	 "mainToken":{"name":"Steady","symbol":"STD","address":"mint2"},"sideToken":{"symbol":"USDC"}}
]}`

func marketServer(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("X-API-Key"))
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/ranking/solana/gainers":
			_, _ = w.Write([]byte(gainersBody))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// setEnv points the CLI at srv with no pacing delays.
func setEnv(t *testing.T, srv *httptest.Server) string {
	dir := t.TempDir()
	t.Setenv("DEXTOOLS_API_KEY", "test-key")
	t.Setenv("DEXTOOLS_CHAIN", "solana")
	t.Setenv("DEXTOOLS_BASE_URLS", srv.URL)
	t.Setenv("RETRY_MAX_RETRIES", "0")
	t.Setenv("RETRY_PRE_DELAY_MIN", "0s")
	t.Setenv("RETRY_PRE_DELAY_MAX", "0s")
	t.Setenv("RETRY_MAX_JITTER", "0s")
	t.Setenv("LLM_MIN_INTERVAL", "0s")
	t.Setenv("OUTPUT_DIR", dir)
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("METRICS_ADDR", "")
	t.Setenv("TRACING_ENABLED", "false")
	return dir
}

// resetFlags restores every flag to its default between runs.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--env-file", ""}, args...))

	err := rootCmd.ExecuteContext(context.Background())
	if rt != nil {
		_ = rt.Close(context.Background())
		rt = nil
	}
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "dexanalyzer dev\n", out)
}

func TestFetchGainers(t *testing.T) {
	srv := marketServer(t)
	setEnv(t, srv)

	out, err := execute(t, "fetch", "gainers", "--limit", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "MOON/SOL")
	assert.Contains(t, out, "Raydium")
	assert.NotContains(t, out, "STD/USDC")
}

func TestFetchGainers_JSON(t *testing.T) {
	srv := marketServer(t)
	setEnv(t, srv)

	out, err := execute(t, "fetch", "gainers", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"address": "pool1"`)
	assert.Contains(t, out, `"address": "pool2"`)
}

func TestAnalyzeRanking_Mock(t *testing.T) {
	srv := marketServer(t)
	dir := setEnv(t, srv)

	out, err := execute(t, "analyze", "ranking", "--kind", "gainers", "--mock")
	require.NoError(t, err)
	assert.Contains(t, out, "solana gainers: 2 tokens analyzed by mock")

	files, err := filepath.Glob(filepath.Join(dir, "solana_gainers_analysis_*.md"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "Top Gainers")
	assert.Contains(t, string(data), "Moon (MOON)")
}

func TestAnalyzeRanking_UnknownKind(t *testing.T) {
	srv := marketServer(t)
	setEnv(t, srv)

	_, err := execute(t, "analyze", "ranking", "--kind", "sideways", "--mock")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeValidation, apperrors.GetType(err))
}

func TestMissingKey(t *testing.T) {
	srv := marketServer(t)
	setEnv(t, srv)
	t.Setenv("DEXTOOLS_API_KEY", "")

	tests := []struct {
		name string
		args []string
	}{
		{"fetch", []string{"fetch", "gainers"}},
		{"analyze", []string{"analyze", "token", "mint1", "--mock"}},
		{"probe", []string{"probe", "plans"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.True(t, apperrors.IsConfiguration(err))
		})
	}
}

func TestAnalyzeRecent_RequiresLLMKeyWithoutMock(t *testing.T) {
	srv := marketServer(t)
	setEnv(t, srv)
	t.Setenv("OPENAI_API_KEY", "")

	_, err := execute(t, "analyze", "recent")
	require.Error(t, err)
	assert.True(t, apperrors.IsConfiguration(err))
}

func TestTelemetryRouter(t *testing.T) {
	m := metrics.NewMetrics(&metrics.Config{Namespace: "dexanalyzer_test", Enabled: true})
	hs := health.NewService(logging.NewNopLogger(), nil)
	router := telemetryRouter(logging.NewNopLogger(), m, hs, tracing.NewNoopTracingService())

	tests := []struct {
		path string
		want string
	}{
		{"/livez", "alive"},
		{"/health", "healthy"},
		{"/metrics", "dexanalyzer_test_http_requests_total"},
	}
	for _, tt := range tests {
		t.Run(strings.TrimPrefix(tt.path, "/"), func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Body.String(), tt.want)
		})
	}
}
