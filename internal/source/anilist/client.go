// Package anilist implements source.MediaSource against the AniList GraphQL API.
package anilist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/timmy/amtracker/internal/domain"
	"github.com/timmy/amtracker/internal/logger"
	"github.com/timmy/amtracker/internal/source"
)

const (
	// SourceID prefixes every item id produced by this source.
	SourceID = "anilist"

	// DefaultEndpoint is the public AniList GraphQL endpoint.
	DefaultEndpoint = "https://graphql.anilist.co"
)

// Config holds AniList client settings.
type Config struct {
	Endpoint  string
	Timeout   time.Duration
	UserAgent string
}

// Client talks to AniList. It never retries; callers decide what to do with failures.
type Client struct {
	client   *resty.Client
	endpoint string
}

var _ source.MediaSource = (*Client)(nil)

// NewClient creates an AniList client.
func NewClient(cfg Config) *Client {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	client := resty.New()
	client.SetTimeout(timeout)
	client.SetRetryCount(0)
	client.SetHeader("Content-Type", "application/json")
	client.SetHeader("Accept", "application/json")
	if cfg.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.UserAgent)
	}

	return &Client{client: client, endpoint: endpoint}
}

// GetSourceID returns "anilist".
func (c *Client) GetSourceID() string {
	return SourceID
}

// FetchPage fetches one page of media of a single kind. Unsafe records are
// dropped before normalization, so a page may hold fewer items than requested.
func (c *Client) FetchPage(ctx context.Context, req source.PageRequest) (*source.Page, error) {
	if err := source.ValidatePageRequest(req); err != nil {
		return nil, err
	}
	sortMode := req.Sort
	if sortMode == "" {
		sortMode = domain.DefaultSortMode
	}

	var data mediaPageData
	err := c.query(ctx, mediaPageQuery, map[string]interface{}{
		"type":    string(req.Kind),
		"sort":    []string{string(sortMode)},
		"page":    req.Page,
		"perPage": req.PerPage,
	}, &data)
	if err != nil {
		return nil, err
	}

	items := make([]domain.CatalogItem, 0, len(data.Page.Media))
	for i := range data.Page.Media {
		m := &data.Page.Media[i]
		if !m.safe() {
			continue
		}
		items = append(items, normalize(m, req.Kind))
	}

	current := data.Page.PageInfo.CurrentPage
	if current < 1 {
		current = req.Page
	}

	return &source.Page{
		Items:       items,
		HasNextPage: data.Page.PageInfo.HasNextPage,
		CurrentPage: current,
	}, nil
}

// FetchAiringWindow collects scheduled episodes airing strictly between
// req.From and req.To, page by page, sorted soonest first.
func (c *Client) FetchAiringWindow(ctx context.Context, req source.AiringRequest) ([]domain.AiringSlot, error) {
	if req.PerPage < 1 || req.PerPage > source.MaxPageSize {
		return nil, fmt.Errorf("%w: page size must be within 1..%d, got %d", domain.ErrInvalidArgument, source.MaxPageSize, req.PerPage)
	}
	if req.From >= req.To {
		return nil, fmt.Errorf("%w: empty airing window %d..%d", domain.ErrInvalidArgument, req.From, req.To)
	}

	out := make([]domain.AiringSlot, 0, req.PerPage)
	for page := 1; page <= req.MaxPages; page++ {
		var data airingData
		err := c.query(ctx, airingQuery, map[string]interface{}{
			"page":    page,
			"perPage": req.PerPage,
			"from":    req.From,
			"to":      req.To,
		}, &data)
		if err != nil {
			return nil, fmt.Errorf("airing page %d: %w", page, err)
		}

		for _, a := range data.Page.AiringSchedules {
			if a.Media == nil || !a.Media.safe() {
				continue
			}
			if a.AiringAt <= req.From || a.AiringAt >= req.To {
				continue
			}
			out = append(out, domain.AiringSlot{
				ID:       fmt.Sprintf("airing:%d", a.ID),
				Episode:  a.Episode,
				AiringAt: a.AiringAt,
				Media:    normalize(a.Media, domain.KindAnime),
			})
		}

		if !data.Page.PageInfo.HasNextPage {
			break
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AiringAt < out[j].AiringAt
	})
	return out, nil
}

// FetchByID fetches a single record by its AniList id.
func (c *Client) FetchByID(ctx context.Context, nativeID int) (*domain.CatalogItem, error) {
	if nativeID <= 0 {
		return nil, fmt.Errorf("%w: anilist id must be positive, got %d", domain.ErrInvalidArgument, nativeID)
	}

	var data mediaByIDData
	err := c.query(ctx, mediaByIDQuery, map[string]interface{}{"id": nativeID}, &data)
	if err != nil {
		// AniList answers unknown ids with a 404 error payload
		var rfe *domain.RemoteFetchError
		if errors.As(err, &rfe) && rfe.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("anilist media %d: %w", nativeID, domain.ErrNotFound)
		}
		return nil, err
	}
	if data.Media == nil {
		return nil, fmt.Errorf("anilist media %d: %w", nativeID, domain.ErrNotFound)
	}
	if !data.Media.safe() {
		return nil, fmt.Errorf("anilist media %d: %w", nativeID, domain.ErrFiltered)
	}

	item := normalize(data.Media, domain.KindAnime)
	return &item, nil
}

// query posts one GraphQL request and decodes its data member into out.
func (c *Client) query(ctx context.Context, query string, variables map[string]interface{}, out interface{}) error {
	start := time.Now()

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(graphQLRequest{Query: query, Variables: variables}).
		Post(c.endpoint)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &domain.RemoteFetchError{Message: "request failed", Err: err}
	}

	var envelope graphQLResponse
	decodeErr := json.Unmarshal(resp.Body(), &envelope)

	if !resp.IsSuccess() {
		msg := joinErrors(envelope.Errors)
		if msg == "" {
			msg = http.StatusText(resp.StatusCode())
		}
		return &domain.RemoteFetchError{StatusCode: resp.StatusCode(), Message: msg}
	}
	if decodeErr != nil {
		return &domain.RemoteFetchError{StatusCode: resp.StatusCode(), Message: "decode response", Err: decodeErr}
	}
	if len(envelope.Errors) > 0 {
		return &domain.RemoteFetchError{StatusCode: resp.StatusCode(), Message: joinErrors(envelope.Errors)}
	}

	logger.With(logger.Fields{
		logger.FieldSource:     SourceID,
		logger.FieldDurationMs: time.Since(start).Milliseconds(),
	}).Debug(ctx, "AniList query completed: status=%d, bytes=%d", resp.StatusCode(), len(resp.Body()))

	if out == nil || len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return &domain.RemoteFetchError{StatusCode: resp.StatusCode(), Message: "decode data", Err: err}
	}
	return nil
}

func joinErrors(errs []graphQLError) string {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		if e.Message != "" {
			msgs = append(msgs, e.Message)
		}
	}
	return strings.Join(msgs, "; ")
}
