package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

type cseItem struct {
	Link    string `json:"link"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

func newTestCSE(t *testing.T, total int, requests *[]string) *GoogleCSE {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		*requests = append(*requests, q.Get("start")+"|"+q.Get("gl"))

		start, _ := strconv.Atoi(q.Get("start"))
		var items []cseItem
		for i := start; i < start+10 && i <= total; i++ {
			items = append(items, cseItem{Link: fmt.Sprintf("https://biz%d.example", i), Title: fmt.Sprintf("Biz %d", i)})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"items": items})
	}))
	t.Cleanup(server.Close)

	src, err := NewGoogleCSE(context.Background(), "", "cx-test", "pl-pl",
		option.WithEndpoint(server.URL+"/"),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)
	return src
}

func TestGoogleCSE_PagesUntilCap(t *testing.T) {
	var requests []string
	src := newTestCSE(t, 100, &requests)

	got, err := src.Discover(context.Background(), "hotels lisbon", "", 8)
	require.NoError(t, err)

	assert.Len(t, got, 16)
	assert.Equal(t, "https://biz1.example", got[0].Handle)
	assert.Equal(t, []string{"1|pl", "11|pl"}, requests)
}

func TestGoogleCSE_StopsWhenExhausted(t *testing.T) {
	var requests []string
	src := newTestCSE(t, 4, &requests)

	got, err := src.Discover(context.Background(), "rare query", "", 10)
	require.NoError(t, err)
	assert.Len(t, got, 4)
	assert.Len(t, requests, 1)
}

func TestGoogleCSE_Unavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	src, err := NewGoogleCSE(context.Background(), "", "cx", "", option.WithEndpoint(server.URL+"/"), option.WithoutAuthentication())
	require.NoError(t, err)

	_, err = src.Discover(context.Background(), "q", "", 2)
	assert.True(t, errors.Is(err, ErrSourceUnavailable))
}

func TestCountryFromRegion(t *testing.T) {
	assert.Equal(t, "pl", countryFromRegion("pl-pl"))
	assert.Equal(t, "us", countryFromRegion("us-en"))
	assert.Equal(t, "", countryFromRegion("wt-wt"))
	assert.Equal(t, "", countryFromRegion(""))
}

func TestNewSource(t *testing.T) {
	src, err := NewSource(context.Background(), "duckduckgo", "de-de", "", "")
	require.NoError(t, err)
	assert.Equal(t, "duckduckgo", src.Name())

	_, err = NewSource(context.Background(), "bing", "", "", "")
	assert.Error(t, err)
}
