package offcache

import (
	"context"
	"io"
	"net/http"
	"strings"
)

// Fetcher performs the real network request for the worker. Implementations
// must honor ctx cancellation; the worker bounds every call with its
// configured fetch timeout.
type Fetcher interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// HTTPFetcher resolves requests against an HTTP origin.
type HTTPFetcher struct {
	// Base is the origin prefix, e.g. "https://app.example.com". Required.
	Base string
	// Client defaults to http.DefaultClient.
	Client *http.Client
}

var _ Fetcher = (*HTTPFetcher)(nil)

func (f *HTTPFetcher) Do(ctx context.Context, req *Request) (*Response, error) {
	url := strings.TrimSuffix(f.Base, "/") + req.Path
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, url, nil)
	if err != nil {
		return nil, err
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	res, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}

	header := make(map[string]string, len(res.Header))
	for k := range res.Header {
		header[k] = res.Header.Get(k)
	}
	return &Response{Status: res.StatusCode, Header: header, Body: body}, nil
}
