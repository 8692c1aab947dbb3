package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/NikhilSetiya/dexanalyzer/pkg/errors"
	"github.com/NikhilSetiya/dexanalyzer/pkg/resilience"
)

// planServer accepts the key on the "trial" plan, answers an embedded 401 on
// "free" and serves only blockchains on "standard".
func planServer(t *testing.T) (*httptest.Server, func() []string) {
	var (
		mu    sync.Mutex
		paths []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()

		assert.Equal(t, "probe-key", r.Header.Get("X-API-Key"))
		w.Header().Set("Content-Type", "application/json")

		plan := strings.Split(strings.TrimPrefix(r.URL.Path, "/"), "/")[0]
		switch {
		case plan == "trial":
			_, _ = w.Write([]byte(`{"statusCode":200,"data":[{"rank":1}]}`))
		case plan == "standard" && strings.HasSuffix(r.URL.Path, "/blockchain"):
			_, _ = w.Write([]byte(`{"statusCode":200,"data":{"results":[{"id":"ether"}]}}`))
		case plan == "free":
			_, _ = w.Write([]byte(`{"statusCode":401,"message":"Unauthorized"}`))
		default:
			w.WriteHeader(http.StatusForbidden)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), paths...)
	}
}

func newTestProber(t *testing.T, srv *httptest.Server, plans []string) *Prober {
	rc := resty.New()
	t.Cleanup(func() { rc.GetClient().CloseIdleConnections() })
	exec := resilience.NewExecutor(resilience.Config{MaxRetries: 0, AttemptTimeout: 5 * time.Second},
		resilience.WithTransport(resilience.NewRestyTransport(rc)))

	p := NewProber(exec, &Config{
		APIKey:  "probe-key",
		Chain:   "ether",
		Plans:   plans,
		Pause:   time.Minute,
		BaseURL: func(plan string) string { return srv.URL + "/" + plan + "/v2" },
	}, nil)
	p.sleep = func(context.Context, time.Duration) error { return nil }
	return p
}

func TestProber_Run(t *testing.T) {
	srv, paths := planServer(t)
	p := newTestProber(t, srv, []string{"free", "trial", "standard"})

	report, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Plans, 3)

	assert.Equal(t, []string{"trial"}, report.WorkingPlans())

	free := report.Plans[0]
	assert.Empty(t, free.Succeeded())
	assert.Len(t, free.Failed(), 4)
	assert.Contains(t, free.Endpoints[0].Error, "embedded status 401")

	standard := report.Plans[2]
	assert.Equal(t, []string{"blockchains"}, standard.Succeeded())
	assert.Equal(t, []string{"ranking_hotpools", "ranking_gainers", "ranking_losers"}, standard.Failed())
	assert.False(t, standard.Works())

	// one attempt per endpoint per plan
	got := paths()
	assert.Len(t, got, 12)
	assert.Contains(t, got, "/trial/v2/ranking/ether/gainers")
	assert.Contains(t, got, "/free/v2/blockchain")
}

func TestProber_RequiresKey(t *testing.T) {
	p := NewProber(resilience.NewExecutor(resilience.Config{}), &Config{}, nil)
	_, err := p.Run(context.Background())
	assert.True(t, apperrors.IsConfiguration(err))
}

func TestProber_CancelledBetweenPlans(t *testing.T) {
	srv, _ := planServer(t)
	p := newTestProber(t, srv, []string{"trial", "pro"})
	p.sleep = func(ctx context.Context, d time.Duration) error {
		assert.Equal(t, time.Minute, d)
		return context.Canceled
	}

	report, err := p.Run(context.Background())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, report.Plans, 1)
}

func TestPlanResult_Works(t *testing.T) {
	assert.False(t, PlanResult{}.Works())
	assert.True(t, PlanResult{Endpoints: []EndpointResult{{Endpoint: "blockchains", OK: true}}}.Works())
}
