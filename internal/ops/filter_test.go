package ops

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func props(keys ...string) []ConfigProperty {
	out := make([]ConfigProperty, 0, len(keys))
	for _, k := range keys {
		out = append(out, ConfigProperty{Key: k, Value: "v"})
	}
	return out
}

func keys(items []ConfigProperty) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.Key)
	}
	return out
}

func TestFilterPropertiesBlankQuery(t *testing.T) {
	t.Parallel()

	input := props("a.b", "c.d")
	require.Equal(t, input, FilterProperties(input, "   "))
}

func TestFilterPropertiesSubstring(t *testing.T) {
	t.Parallel()

	input := props("app.datasource.url", "app.cache.ttl", "notify.retry.max")
	got := FilterProperties(input, "CACHE")
	require.Equal(t, []string{"app.cache.ttl"}, keys(got))
}

func TestFilterPropertiesFuzzySegments(t *testing.T) {
	t.Parallel()

	input := props("app.datasource.url", "app.cache.ttl", "scheduler-pool_size")

	// one-letter typo still finds the segment
	got := FilterProperties(input, "datasorce")
	require.Equal(t, []string{"app.datasource.url"}, keys(got))

	// dash and underscore both split segments
	got = FilterProperties(input, "schedular")
	require.Equal(t, []string{"scheduler-pool_size"}, keys(got))

	// far-off queries match nothing, and the result is still non-nil
	got = FilterProperties(input, "zzzzzz")
	require.NotNil(t, got)
	require.Empty(t, got)
}
