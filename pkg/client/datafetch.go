package client

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vango-dev/ssrpages/internal/errors"
	"github.com/vango-dev/ssrpages/pkg/pagecontext"
)

// HTTPDataFetcher fetches serialized page contexts from the server.
type HTTPDataFetcher struct {
	Client  *http.Client
	BaseURL string
}

// NewHTTPDataFetcher creates a fetcher for the server at baseURL.
func NewHTTPDataFetcher(baseURL string) *HTTPDataFetcher {
	return &HTTPDataFetcher{
		Client:  &http.Client{Timeout: 30 * time.Second},
		BaseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// FetchPageContext implements DataFetcher.
func (f *HTTPDataFetcher) FetchPageContext(ctx context.Context, url string) (*pagecontext.Serialized, error) {
	target := f.BaseURL + pagecontext.JSONURL(url)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, errors.New("E261").WithDetail(target).Wrap(err)
	}
	req.Header.Set("Accept", "application/json")

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.New("E261").WithDetail(target).Wrap(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.New("E261").WithDetailf("%s: %s", target, resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.New("E261").WithDetail(target).Wrap(err)
	}
	return pagecontext.ParseSerialized(body)
}
