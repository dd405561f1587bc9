package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/apibillme/cache"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "tok-123-secret"

func testApi(baseUrl, token string) *GyazoApi {
	return &GyazoApi{
		token:   token,
		baseUrl: baseUrl,
		cache:   cache.New(16, cache.WithTTL(time.Minute)),
		log:     zerolog.Nop(),
	}
}

func TestFetchRoutesSearchEndpoint(t *testing.T) {
	var gotPath string
	var gotQuery map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	api := testApi(srv.URL, testToken)
	_, err := api.FetchImages(context.Background(), "cat", 2, 20)
	require.NoError(t, err)

	assert.Equal(t, "/api/search", gotPath)
	assert.Equal(t, []string{"cat"}, gotQuery["query"])
	assert.Equal(t, []string{"2"}, gotQuery["page"])
	assert.Equal(t, []string{"20"}, gotQuery["per"], "search endpoint uses per, not per_page")
	assert.Equal(t, []string{testToken}, gotQuery["access_token"])
	assert.NotContains(t, gotQuery, "per_page")
}

func TestFetchRoutesListEndpoint(t *testing.T) {
	for _, query := range []string{"", "   ", "\t "} {
		var gotPath string
		var gotQuery map[string][]string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotQuery = r.URL.Query()
			w.Write([]byte(`[]`))
		}))

		api := testApi(srv.URL, testToken)
		_, err := api.FetchImages(context.Background(), query, 1, 20)
		srv.Close()
		require.NoError(t, err)

		assert.Equal(t, "/api/images", gotPath, "blank query must hit the list endpoint")
		assert.Equal(t, []string{"20"}, gotQuery["per_page"], "list endpoint uses per_page")
		assert.NotContains(t, gotQuery, "query")
		assert.NotContains(t, gotQuery, "per")
	}
}

func TestFetchWithoutTokenMakesNoCall(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	api := testApi(srv.URL, "")
	images, err := api.FetchImages(context.Background(), "cat", 1, 20)
	assert.ErrorIs(t, err, ErrNoToken)
	assert.Empty(t, images)
	assert.Equal(t, 0, calls, "no network call without a token")
}

func TestFetchApiError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"invalid token"}`))
	}))
	defer srv.Close()

	api := testApi(srv.URL, testToken)
	images, err := api.FetchImages(context.Background(), "cat", 1, 20)
	assert.Empty(t, images)

	var aerr *ApiError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, http.StatusUnauthorized, aerr.Status)
	assert.Contains(t, aerr.Body, "invalid token")
}

func TestFetchTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	api := testApi(srv.URL, testToken)
	images, err := api.FetchImages(context.Background(), "cat", 1, 20)
	assert.Empty(t, images)

	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.NotContains(t, err.Error(), testToken, "transport errors must not leak the token")
}

func TestFetchDecodesRecords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{
			"image_id": "abc123",
			"permalink_url": "https://gyazo.com/abc123",
			"url": "https://i.gyazo.com/abc123.png",
			"thumb_url": "https://thumb.gyazo.com/abc123.png",
			"type": "png",
			"created_at": "2024-05-01T12:00:00Z",
			"metadata": {"app": "Firefox", "title": "release notes", "url": "https://example.com", "desc": "notes"},
			"ocr": {"locale": "en", "description": "hello world"}
		}]`))
	}))
	defer srv.Close()

	api := testApi(srv.URL, testToken)
	images, err := api.FetchImages(context.Background(), "", 1, 20)
	require.NoError(t, err)
	require.Len(t, images, 1)

	rec := images[0]
	assert.Equal(t, "abc123", rec.Id)
	assert.Equal(t, "https://gyazo.com/abc123", rec.PermalinkUrl)
	assert.Equal(t, "https://i.gyazo.com/abc123.png", rec.RawUrl)
	assert.Equal(t, "https://thumb.gyazo.com/abc123.png", rec.ThumbnailUrl)
	assert.Equal(t, "png", rec.Kind)
	assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), rec.CreatedAt)
	require.NotNil(t, rec.Metadata)
	assert.Equal(t, "Firefox", rec.Metadata.App)
	assert.Equal(t, "release notes", rec.Metadata.Title)
	assert.Equal(t, "https://example.com", rec.Metadata.SourceUrl)
	assert.Equal(t, "notes", rec.Metadata.Description)
	require.NotNil(t, rec.OCR)
	assert.Equal(t, "en", rec.OCR.Locale)
	assert.Equal(t, "hello world", rec.OCR.Text)
}

func TestFetchEmptyBodyIsZeroResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	api := testApi(srv.URL, testToken)
	images, err := api.FetchImages(context.Background(), "nomatches", 1, 20)
	require.NoError(t, err, "a genuine empty result is not an error")
	assert.NotNil(t, images)
	assert.Len(t, images, 0)
}

func TestFetchUsesPageCache(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`[{"image_id": "a"}]`))
	}))
	defer srv.Close()

	api := testApi(srv.URL, testToken)
	_, err := api.FetchImages(context.Background(), "cat", 1, 20)
	require.NoError(t, err)
	images, err := api.FetchImages(context.Background(), "cat", 1, 20)
	require.NoError(t, err)
	assert.Len(t, images, 1)
	assert.Equal(t, 1, calls, "identical request served from cache")

	_, err = api.FetchImages(context.Background(), "cat", 2, 20)
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "different page misses the cache")
}

func TestRedactStripsToken(t *testing.T) {
	api := testApi("https://api.gyazo.com", testToken)

	assert.NotContains(t, api.redact(api.listUrl(1, 20)), testToken)
	assert.NotContains(t, api.redact(api.searchUrl("cat", 1, 20)), testToken)
	assert.Contains(t, api.redact(api.searchUrl("cat", 1, 20)), "REDACTED")
}
