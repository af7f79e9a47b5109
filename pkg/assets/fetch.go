package assets

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vango-dev/ssrpages/internal/errors"
)

// ErrStaleAsset reports that an asset referenced by the running client no
// longer exists on the server.
var ErrStaleAsset = stderrors.New("static asset no longer exists")

// IsErrorFetchingStaticAssets reports whether err was caused by a stale
// asset reference.
func IsErrorFetchingStaticAssets(err error) bool {
	return stderrors.Is(err, ErrStaleAsset)
}

// Fetcher retrieves a built asset by path.
type Fetcher interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
}

// FetcherFunc adapts a function to a Fetcher.
type FetcherFunc func(ctx context.Context, path string) ([]byte, error)

// Fetch implements Fetcher.
func (f FetcherFunc) Fetch(ctx context.Context, path string) ([]byte, error) {
	return f(ctx, path)
}

// staleError wraps ErrStaleAsset with the asset path.
func staleError(path string, cause error) error {
	err := errors.New("E260").WithDetailf("%s is missing", path).
		WithSuggestion("The client was built for a previous deployment; reload the page")
	if cause != nil {
		return err.Wrap(fmt.Errorf("%w: %w", ErrStaleAsset, cause))
	}
	return err.Wrap(ErrStaleAsset)
}

// HTTPFetcher fetches assets over HTTP. 404 and 410 responses are stale.
type HTTPFetcher struct {
	Client  *http.Client
	BaseURL string
}

// NewHTTPFetcher creates a fetcher for assets below baseURL.
func NewHTTPFetcher(baseURL string) *HTTPFetcher {
	return &HTTPFetcher{
		Client:  &http.Client{Timeout: 30 * time.Second},
		BaseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, path string) ([]byte, error) {
	url := f.BaseURL + "/" + strings.TrimPrefix(path, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.New("E260").WithDetail(url).Wrap(err)
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.New("E260").WithDetail(url).Wrap(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return nil, staleError(path, nil)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, errors.New("E260").WithDetailf("%s: %s", url, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.New("E260").WithDetail(url).Wrap(err)
	}
	return body, nil
}
