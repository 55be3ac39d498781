package ops

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/muzhenpeng-1998/bluecone-console/internal/gateway"
)

// recentPageLimit is fixed; the backend caps larger requests anyway.
const recentPageLimit = 50

// Event is one cache-invalidation record from the recent-events feed.
type Event struct {
	ID                 int64  `json:"id"`
	TenantID           string `json:"tenantId"`
	Scope              string `json:"scope"`
	Namespace          string `json:"namespace"`
	CacheKey           string `json:"cacheKey"`
	Decision           string `json:"decision"`
	CountPerMinute     int    `json:"countPerMinute"`
	ThresholdPerMinute int    `json:"thresholdPerMinute"`
	OccurredAt         string `json:"occurredAt"`
}

// IsStorm reports whether an event's rate is at or above its per-minute
// threshold. Equality counts as a storm.
func IsStorm(countPerMinute, thresholdPerMinute int) bool {
	return countPerMinute >= thresholdPerMinute
}

// Storm is the per-event badge predicate.
func (e Event) Storm() bool {
	return IsStorm(e.CountPerMinute, e.ThresholdPerMinute)
}

// Summary aggregates invalidation activity for one time window.
type Summary struct {
	Total          int64           `json:"total"`
	ScopeStats     []ScopeStat     `json:"scopeStats"`
	NamespaceStats []NamespaceStat `json:"namespaceStats"`
	TenantStats    []TenantStat    `json:"tenantStats"`
	Storms         []StormItem     `json:"storms"`
	DecisionStats  []DecisionStat  `json:"decisionStats"`
}

type ScopeStat struct {
	Scope string `json:"scope"`
	Count int64  `json:"count"`
}

type NamespaceStat struct {
	Namespace string `json:"namespace"`
	Count     int64  `json:"count"`
}

type TenantStat struct {
	TenantID string `json:"tenantId"`
	Count    int64  `json:"count"`
}

type StormItem struct {
	TenantID           string `json:"tenantId"`
	Scope              string `json:"scope"`
	Namespace          string `json:"namespace"`
	CountPerMinute     int    `json:"countPerMinute"`
	ThresholdPerMinute int    `json:"thresholdPerMinute"`
}

type DecisionStat struct {
	Decision string `json:"decision"`
	Count    int64  `json:"count"`
}

// CacheInvalService reads the /ops cache-invalidation endpoints.
type CacheInvalService struct {
	client *gateway.Client
}

func NewCacheInvalService(client *gateway.Client) *CacheInvalService {
	return &CacheInvalService{client: client}
}

// Summary fetches aggregated stats for the window ("5m", "1h", ...).
func (s *CacheInvalService) Summary(ctx context.Context, window string) (*Summary, error) {
	params := url.Values{}
	if w := strings.TrimSpace(window); w != "" {
		params.Set("window", w)
	}
	payload, err := s.client.Get(ctx, "/ops/api/cache-inval/summary?"+params.Encode())
	if err != nil {
		return nil, err
	}
	var out Summary
	if err := payload.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}
	return &out, nil
}

// Feed accumulates recent invalidation events page by page. It is the
// cursor side of the recent-events panel: filters are plain fields, the
// cursor is an opaque server string, and insertion order is the server's
// relevance order — the feed never re-sorts.
type Feed struct {
	client *gateway.Client

	Window    string
	TenantID  string
	Scope     string
	Namespace string

	items  []Event
	cursor *string
	loaded bool
}

func NewFeed(client *gateway.Client) *Feed {
	return &Feed{client: client, Window: "5m"}
}

// Items returns the accumulated events in arrival order.
func (f *Feed) Items() []Event { return f.items }

// Cursor returns the last continuation marker verbatim; nil once exhausted
// (or before any load).
func (f *Feed) Cursor() *string { return f.cursor }

// Exhausted is true once a completed load returned no continuation cursor.
// Callers suppress further load-more calls when it is true.
func (f *Feed) Exhausted() bool { return f.loaded && f.cursor == nil }

// LoadRecent fetches one page. reset clears the accumulated sequence and
// cursor before the fetch; a non-reset load appends. A failed fetch leaves
// whatever was accumulated at call time intact.
func (f *Feed) LoadRecent(ctx context.Context, reset bool) error {
	if reset {
		f.items = nil
		f.cursor = nil
		f.loaded = false
	}

	params := url.Values{}
	if w := strings.TrimSpace(f.Window); w != "" {
		params.Set("window", w)
	}
	if f.cursor != nil {
		params.Set("cursor", *f.cursor)
	}
	params.Set("limit", strconv.Itoa(recentPageLimit))
	if t := strings.TrimSpace(f.TenantID); t != "" {
		params.Set("tenantId", t)
	}
	if sc := strings.TrimSpace(f.Scope); sc != "" {
		params.Set("scope", sc)
	}
	if ns := strings.TrimSpace(f.Namespace); ns != "" {
		params.Set("namespace", ns)
	}

	payload, err := f.client.Get(ctx, "/ops/api/cache-inval/recent?"+params.Encode())
	if err != nil {
		return err
	}
	page, err := gateway.DecodeList[Event](payload)
	if err != nil {
		return err
	}

	if reset {
		f.items = page
	} else {
		f.items = append(f.items, page...)
	}
	// The cursor comes from the raw envelope, not the normalized list.
	f.cursor = payload.NextCursor()
	f.loaded = true
	return nil
}
