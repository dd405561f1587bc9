package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/apibillme/cache"
	"github.com/rs/zerolog"
)

const gyazoBaseUrl = "https://api.gyazo.com"

// ErrNoToken is returned before any request is built when no access token
// is configured.
var ErrNoToken = errors.New("gyazo: access token not configured")

// ApiError is a non-2xx response from the Gyazo API.
type ApiError struct {
	Status int
	Body   string
}

func (e *ApiError) Error() string {
	return fmt.Sprintf("gyazo: unexpected status %d: %s", e.Status, e.Body)
}

// TransportError is a DNS/connection/timeout style failure, or a response
// body that could not be decoded.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "gyazo: request failed: " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

type ImageMetadata struct {
	App         string `json:"app"`
	Title       string `json:"title"`
	SourceUrl   string `json:"url"`
	Description string `json:"desc"`
}

type ImageOCR struct {
	Locale string `json:"locale"`
	Text   string `json:"description"`
}

type ImageRecord struct {
	Id           string         `json:"image_id"`
	PermalinkUrl string         `json:"permalink_url"`
	RawUrl       string         `json:"url"`
	ThumbnailUrl string         `json:"thumb_url"`
	Kind         string         `json:"type"`
	CreatedAt    time.Time      `json:"created_at"`
	Metadata     *ImageMetadata `json:"metadata,omitempty"`
	OCR          *ImageOCR      `json:"ocr,omitempty"`
}

type GyazoApi struct {
	Http    http.Client
	token   string
	baseUrl string
	cache   cache.Cache
	log     zerolog.Logger
}

func NewGyazoApi(cfg *Config, log zerolog.Logger) *GyazoApi {
	return &GyazoApi{
		token:   cfg.AccessToken,
		baseUrl: gyazoBaseUrl,
		cache:   cache.New(128, cache.WithTTL(cfg.CacheTTL)),
		log:     log.With().Str("component", "gyazo").Logger(),
	}
}

func (api *GyazoApi) listUrl(page, pageSize int) string {
	qParam := url.Values{}
	qParam.Add("access_token", api.token)
	qParam.Add("page", strconv.Itoa(page))
	qParam.Add("per_page", strconv.Itoa(pageSize))
	return api.baseUrl + "/api/images?" + qParam.Encode()
}

func (api *GyazoApi) searchUrl(query string, page, pageSize int) string {
	qParam := url.Values{}
	qParam.Add("access_token", api.token)
	qParam.Add("query", query)
	qParam.Add("page", strconv.Itoa(page))
	qParam.Add("per", strconv.Itoa(pageSize))
	return api.baseUrl + "/api/search?" + qParam.Encode()
}

// redact strips the access token from any string destined for logs,
// errors, or the screen.
func (api *GyazoApi) redact(s string) string {
	if api.token == "" {
		return s
	}
	return strings.ReplaceAll(s, api.token, "REDACTED")
}

// FetchImages retrieves one page of the account's captures. A blank or
// whitespace-only query hits the list endpoint (reverse-chronological);
// anything else hits the search endpoint. The two endpoints name their
// page-size parameter differently (per_page vs per), so the URLs are
// built independently rather than patched from one another.
//
// A nil error with an empty slice is a genuine "no matches"; failures are
// always reported as ErrNoToken, *ApiError or *TransportError, never
// folded into an empty result.
func (api *GyazoApi) FetchImages(ctx context.Context, query string, page, pageSize int) ([]ImageRecord, error) {
	if strings.TrimSpace(api.token) == "" {
		return nil, ErrNoToken
	}

	var reqUrl string
	if strings.TrimSpace(query) == "" {
		reqUrl = api.listUrl(page, pageSize)
	} else {
		reqUrl = api.searchUrl(query, page, pageSize)
	}

	if hit, ok := api.cache.Get(reqUrl); ok {
		records := hit.([]ImageRecord)
		api.log.Debug().Str("url", api.redact(reqUrl)).Int("count", len(records)).Msg("cache hit")
		return records, nil
	}

	getReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqUrl, nil)
	if err != nil {
		return nil, &TransportError{Err: errors.New(api.redact(err.Error()))}
	}
	res, err := api.Http.Do(getReq)
	if err != nil {
		// url.Error strings embed the full request URL, token included.
		terr := &TransportError{Err: errors.New(api.redact(err.Error()))}
		api.log.Error().Str("url", api.redact(reqUrl)).Msg(terr.Error())
		return nil, terr
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		aerr := &ApiError{Status: res.StatusCode, Body: strings.TrimSpace(api.redact(string(body)))}
		api.log.Error().Int("status", res.StatusCode).Str("url", api.redact(reqUrl)).Msg("unexpected status")
		return nil, aerr
	}

	var records []ImageRecord
	if err := json.NewDecoder(res.Body).Decode(&records); err != nil {
		api.log.Error().Str("url", api.redact(reqUrl)).Msg("failed to decode response: " + api.redact(err.Error()))
		return nil, &TransportError{Err: errors.New(api.redact(err.Error()))}
	}
	if records == nil {
		records = []ImageRecord{}
	}

	api.cache.Set(reqUrl, records)
	api.log.Debug().Str("url", api.redact(reqUrl)).Int("count", len(records)).Msg("fetched")
	return records, nil
}
