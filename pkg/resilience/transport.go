package resilience

import (
	"context"
	"net/http"

	"github.com/go-resty/resty/v2"
)

// Request is one HTTP GET issued for a candidate.
type Request struct {
	URL     string
	Query   map[string]string
	Headers map[string]string
}

// Response is the raw outcome of a Request.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Transport performs a single request with no retries of its own.
type Transport interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// RestyTransport sends requests through a shared resty client.
type RestyTransport struct {
	client *resty.Client
}

// NewRestyTransport wraps client, disabling resty's own retry loop so the
// executor stays the only place that decides about retries.
func NewRestyTransport(client *resty.Client) *RestyTransport {
	if client == nil {
		client = resty.New()
	}
	client.SetRetryCount(0)
	return &RestyTransport{client: client}
}

// Do issues a GET and returns the status and body unparsed.
func (t *RestyTransport) Do(ctx context.Context, req *Request) (*Response, error) {
	resp, err := t.client.R().
		SetContext(ctx).
		SetHeaders(req.Headers).
		SetQueryParams(req.Query).
		Get(req.URL)
	if err != nil {
		return nil, err
	}

	return &Response{
		StatusCode: resp.StatusCode(),
		Header:     resp.Header(),
		Body:       resp.Body(),
	}, nil
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, req *Request) (*Response, error)

func (f TransportFunc) Do(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}
