package ops

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/muzhenpeng-1998/bluecone-console/internal/gateway"
)

func TestIsStormBoundary(t *testing.T) {
	t.Parallel()

	require.False(t, IsStorm(99, 100))
	require.True(t, IsStorm(100, 100), "hitting the threshold exactly is a storm")
	require.True(t, IsStorm(101, 100))

	require.True(t, Event{CountPerMinute: 50, ThresholdPerMinute: 50}.Storm())
	require.False(t, Event{CountPerMinute: 49, ThresholdPerMinute: 50}.Storm())
}

func eventPage(ids []int, cursor string) string {
	items := make([]string, 0, len(ids))
	for _, id := range ids {
		items = append(items, fmt.Sprintf(`{"id":%d,"tenantId":"t1","scope":"TENANT","countPerMinute":%d,"thresholdPerMinute":100}`, id, id))
	}
	body := `{"items":[` + strings.Join(items, ",") + `]`
	if cursor != "" {
		body += `,"nextCursor":"` + cursor + `"`
	}
	return body + `}`
}

func TestFeedResetAndAppend(t *testing.T) {
	t.Parallel()

	var gotQueries []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQueries = append(gotQueries, r.URL.RawQuery)
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("cursor") {
		case "":
			_, _ = w.Write([]byte(eventPage([]int{1, 2}, "c1")))
		case "c1":
			_, _ = w.Write([]byte(eventPage([]int{3}, "")))
		default:
			http.Error(w, "bad cursor", http.StatusBadRequest)
		}
	}))
	t.Cleanup(srv.Close)

	feed := NewFeed(gateway.New(srv.URL, nil).WithHTTPClient(srv.Client()))
	ctx := context.Background()

	require.False(t, feed.Exhausted(), "an unloaded feed is not exhausted")

	require.NoError(t, feed.LoadRecent(ctx, true))
	require.Len(t, feed.Items(), 2)
	require.NotNil(t, feed.Cursor())
	require.Equal(t, "c1", *feed.Cursor())
	require.False(t, feed.Exhausted())

	// append preserves arrival order and exhausts on the missing cursor
	require.NoError(t, feed.LoadRecent(ctx, false))
	require.Len(t, feed.Items(), 3)
	require.Equal(t, []int64{1, 2, 3}, itemIDs(feed.Items()))
	require.Nil(t, feed.Cursor())
	require.True(t, feed.Exhausted())

	// reset starts over from page one
	require.NoError(t, feed.LoadRecent(ctx, true))
	require.Len(t, feed.Items(), 2)
	require.Equal(t, []int64{1, 2}, itemIDs(feed.Items()))
	require.False(t, feed.Exhausted())

	require.Len(t, gotQueries, 3)
	require.NotContains(t, gotQueries[0], "cursor=")
	require.Contains(t, gotQueries[1], "cursor=c1")
	require.NotContains(t, gotQueries[2], "cursor=", "reset clears the cursor before the fetch")
}

func itemIDs(items []Event) []int64 {
	out := make([]int64, 0, len(items))
	for _, ev := range items {
		out = append(out, ev.ID)
	}
	return out
}

func TestFeedFailureKeepsItems(t *testing.T) {
	t.Parallel()

	var fail bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(eventPage([]int{1, 2}, "c1")))
	}))
	t.Cleanup(srv.Close)

	feed := NewFeed(gateway.New(srv.URL, nil).WithHTTPClient(srv.Client()))
	ctx := context.Background()

	require.NoError(t, feed.LoadRecent(ctx, true))
	require.Len(t, feed.Items(), 2)

	fail = true
	err := feed.LoadRecent(ctx, false)
	require.Error(t, err)
	require.Len(t, feed.Items(), 2, "a failed load leaves the accumulated items intact")
	require.NotNil(t, feed.Cursor())
	require.False(t, feed.Exhausted())
}

func TestFeedQueryParameters(t *testing.T) {
	t.Parallel()

	var gotQuery map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[]}`))
	}))
	t.Cleanup(srv.Close)

	feed := NewFeed(gateway.New(srv.URL, nil).WithHTTPClient(srv.Client()))
	feed.Window = " 1h "
	feed.TenantID = "t9"
	feed.Scope = ""
	feed.Namespace = "  "

	require.NoError(t, feed.LoadRecent(context.Background(), true))
	require.Equal(t, []string{"1h"}, gotQuery["window"])
	require.Equal(t, []string{"t9"}, gotQuery["tenantId"])
	require.Equal(t, []string{"50"}, gotQuery["limit"])
	_, present := gotQuery["scope"]
	require.False(t, present, "blank filters are omitted entirely")
	_, present = gotQuery["namespace"]
	require.False(t, present)
}

func TestSummary(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"total": 42,
			"scopeStats": [{"scope":"TENANT","count":30},{"scope":"GLOBAL","count":12}],
			"storms": [{"tenantId":"t1","scope":"TENANT","namespace":"menu","countPerMinute":120,"thresholdPerMinute":100}]
		}`))
	}))
	t.Cleanup(srv.Close)

	svc := NewCacheInvalService(gateway.New(srv.URL, nil).WithHTTPClient(srv.Client()))
	sum, err := svc.Summary(context.Background(), "5m")
	require.NoError(t, err)
	require.Equal(t, int64(42), sum.Total)
	require.Len(t, sum.ScopeStats, 2)
	require.Len(t, sum.Storms, 1)
	require.Equal(t, "menu", sum.Storms[0].Namespace)
}
