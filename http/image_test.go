package http_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/fwojciec/b2bsync"
	b2bhttp "github.com/fwojciec/b2bsync/http"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseURL = "https://portal.example.com"

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func imageResponder(contentType string, body []byte) httpmock.Responder {
	return func(_ *http.Request) (*http.Response, error) {
		resp := httpmock.NewBytesResponse(http.StatusOK, body)
		if contentType != "" {
			resp.Header.Set("Content-Type", contentType)
		}
		return resp, nil
	}
}

// slowResponder answers after a second unless the request is canceled first.
func slowResponder(req *http.Request) (*http.Response, error) {
	select {
	case <-time.After(time.Second):
		return httpmock.NewBytesResponse(http.StatusOK, pngBytes), nil
	case <-req.Context().Done():
		return nil, req.Context().Err()
	}
}

func newFetcher(t *testing.T, transport http.RoundTripper) *b2bhttp.ImageFetcher {
	t.Helper()

	f, err := b2bhttp.NewImageFetcher(baseURL, b2bhttp.WithTransport(transport))
	require.NoError(t, err)
	return f
}

func TestNewImageFetcher_RejectsInvalidBaseURL(t *testing.T) {
	t.Parallel()

	_, err := b2bhttp.NewImageFetcher("not a url")

	assert.Equal(t, b2bsync.EINVALID, b2bsync.ErrorCode(err))
}

func TestImageFetcher_Resolve(t *testing.T) {
	t.Parallel()

	f, err := b2bhttp.NewImageFetcher(baseURL)
	require.NoError(t, err)

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"absolute", "https://cdn.example.com/a.jpg", "https://cdn.example.com/a.jpg"},
		{"root relative", "/Resimler/a.jpg", baseURL + "/Resimler/a.jpg"},
		{"backslashes", `\Resimler\Urun\a.jpg`, baseURL + "/Resimler/Urun/a.jpg"},
		{"relative", "Resimler/a.jpg", baseURL + "/Resimler/a.jpg"},
		{"surrounding space", "  /a.png ", baseURL + "/a.png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := f.Resolve(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("empty", func(t *testing.T) {
		t.Parallel()

		_, err := f.Resolve("   ")
		assert.Equal(t, b2bsync.EINVALID, b2bsync.ErrorCode(err))
	})
}

func TestImageFetcher_Fetch(t *testing.T) {
	t.Parallel()

	t.Run("returns body and content type", func(t *testing.T) {
		t.Parallel()

		transport := httpmock.NewMockTransport()
		transport.RegisterResponder("GET", baseURL+"/Resimler/V-1.png", imageResponder("image/png", pngBytes))
		f := newFetcher(t, transport)

		img, err := f.Fetch(context.Background(), `\Resimler\V-1.png`)

		require.NoError(t, err)
		assert.Equal(t, baseURL+"/Resimler/V-1.png", img.URL)
		assert.Equal(t, "image/png", img.ContentType)
		assert.Equal(t, pngBytes, img.Data)
		assert.Equal(t, 1, transport.GetTotalCallCount())
	})

	t.Run("detects content type when header is missing", func(t *testing.T) {
		t.Parallel()

		transport := httpmock.NewMockTransport()
		transport.RegisterResponder("GET", baseURL+"/a", imageResponder("", pngBytes))
		f := newFetcher(t, transport)

		img, err := f.Fetch(context.Background(), "/a")

		require.NoError(t, err)
		assert.Equal(t, "image/png", img.ContentType)
	})

	t.Run("non-2xx status is an error", func(t *testing.T) {
		t.Parallel()

		transport := httpmock.NewMockTransport()
		transport.RegisterResponder("GET", baseURL+"/missing.jpg", httpmock.NewStringResponder(http.StatusNotFound, "not found"))
		f := newFetcher(t, transport)

		_, err := f.Fetch(context.Background(), "/missing.jpg")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "HTTP 404")
	})

	t.Run("transport error is returned", func(t *testing.T) {
		t.Parallel()

		transport := httpmock.NewMockTransport()
		transport.RegisterResponder("GET", baseURL+"/a.jpg", httpmock.NewErrorResponder(errors.New("connection reset")))
		f := newFetcher(t, transport)

		_, err := f.Fetch(context.Background(), "/a.jpg")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection reset")
	})

	t.Run("sends user agent", func(t *testing.T) {
		t.Parallel()

		var got string
		transport := httpmock.NewMockTransport()
		transport.RegisterResponder("GET", baseURL+"/a.jpg", func(req *http.Request) (*http.Response, error) {
			got = req.Header.Get("User-Agent")
			return httpmock.NewBytesResponse(http.StatusOK, pngBytes), nil
		})
		f, err := b2bhttp.NewImageFetcher(baseURL,
			b2bhttp.WithTransport(transport),
			b2bhttp.WithUserAgent("b2bsync/1.0"),
		)
		require.NoError(t, err)

		_, err = f.Fetch(context.Background(), "/a.jpg")

		require.NoError(t, err)
		assert.Equal(t, "b2bsync/1.0", got)
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		t.Parallel()

		transport := httpmock.NewMockTransport()
		transport.RegisterResponder("GET", baseURL+"/a.jpg", slowResponder)
		f := newFetcher(t, transport)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := f.Fetch(ctx, "/a.jpg")

		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("respects timeout option", func(t *testing.T) {
		t.Parallel()

		transport := httpmock.NewMockTransport()
		transport.RegisterResponder("GET", baseURL+"/slow.jpg", slowResponder)
		f, err := b2bhttp.NewImageFetcher(baseURL,
			b2bhttp.WithTransport(transport),
			b2bhttp.WithTimeout(10*time.Millisecond),
		)
		require.NoError(t, err)

		_, err = f.Fetch(context.Background(), "/slow.jpg")

		require.Error(t, err)
	})
}
