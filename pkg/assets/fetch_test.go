package assets

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/vango-dev/ssrpages/internal/errors"
)

func TestHTTPFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/assets/ok.js":
			_, _ = w.Write([]byte("export default 1"))
		case "/assets/gone.js":
			w.WriteHeader(http.StatusGone)
		case "/assets/boom.js":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewHTTPFetcher(srv.URL + "/assets/")
	ctx := context.Background()

	body, err := f.Fetch(ctx, "/ok.js")
	if err != nil || string(body) != "export default 1" {
		t.Fatalf("Fetch(ok.js) = %q, %v", body, err)
	}

	for _, path := range []string{"missing.js", "gone.js"} {
		_, err := f.Fetch(ctx, path)
		if !IsErrorFetchingStaticAssets(err) {
			t.Errorf("Fetch(%s) error = %v, want stale", path, err)
		}
		if !errors.HasCode(err, "E260") {
			t.Errorf("Fetch(%s) error = %v, want E260", path, err)
		}
	}

	_, err = f.Fetch(ctx, "boom.js")
	if err == nil || IsErrorFetchingStaticAssets(err) {
		t.Errorf("Fetch(boom.js) error = %v, want non-stale failure", err)
	}
}

type fakeS3 struct {
	objects map[string]string
	err     error
	lastKey string
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.lastKey = *in.Key
	if f.err != nil {
		return nil, f.err
	}
	body, ok := f.objects[*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader([]byte(body)))}, nil
}

func TestS3Fetcher(t *testing.T) {
	client := &fakeS3{objects: map[string]string{"dist/client/entries/a.js": "a"}}
	f := NewS3Fetcher(client, "bucket", "dist/client/")
	ctx := context.Background()

	body, err := f.Fetch(ctx, "/entries/a.js")
	if err != nil || string(body) != "a" {
		t.Fatalf("Fetch = %q, %v", body, err)
	}
	if client.lastKey != "dist/client/entries/a.js" {
		t.Errorf("key = %q", client.lastKey)
	}

	_, err = f.Fetch(ctx, "entries/b.js")
	if !IsErrorFetchingStaticAssets(err) {
		t.Errorf("missing key error = %v, want stale", err)
	}

	client.err = context.DeadlineExceeded
	_, err = f.Fetch(ctx, "entries/a.js")
	if err == nil || IsErrorFetchingStaticAssets(err) {
		t.Errorf("transport error = %v, want non-stale failure", err)
	}
}
