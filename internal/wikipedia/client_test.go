package wikipedia

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wikirag/internal/domain"
)

const disambiguationHTML = `<div class="mw-parser-output">
<p><b>Mercury</b> may refer to:</p>
<div id="toc"><ul><li class="toclevel-1 tocsection-1"><a href="#Science">Science</a></li></ul></div>
<ul>
<li><a href="/wiki/Mercury_(planet)">Mercury (planet)</a>, the closest planet to the Sun</li>
<li><a href="/wiki/Mercury_(element)">Mercury (element)</a>, a chemical element</li>
<li>The <a href="/wiki/Mercury_(mythology)">Roman god</a> of commerce</li>
<li>Plain entry without a link</li>
</ul></div>`

// fakeWiki is a tiny MediaWiki action API.
func fakeWiki(t *testing.T, handle func(w http.ResponseWriter, r *http.Request)) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "2", r.URL.Query().Get("formatversion"))
		assert.Equal(t, "wikirag-test", r.Header.Get("User-Agent"))
		handle(w, r)
	}))
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL, UserAgent: "wikirag-test", AutoSuggest: true}, zerolog.Nop())
}

func TestClient_Fetch_ResolvesAndReturnsContent(t *testing.T) {
	c := fakeWiki(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("list") == "search":
			assert.Equal(t, "alan turing", q.Get("srsearch"))
			_, _ = w.Write([]byte(`{"query":{"search":[{"title":"Alan Turing"}]}}`))
		case q.Get("prop") == "extracts|pageprops|info":
			assert.Equal(t, "Alan Turing", q.Get("titles"))
			assert.Equal(t, "1", q.Get("redirects"))
			_, _ = w.Write([]byte(`{"query":{"pages":[{"pageid":1208,"title":"Alan Turing","fullurl":"https://en.wikipedia.org/wiki/Alan_Turing","extract":"Alan Mathison Turing was an English mathematician."}]}}`))
		default:
			t.Errorf("unexpected request %s", r.URL.RawQuery)
		}
	})

	art, err := c.Fetch(context.Background(), "  alan turing ")
	require.NoError(t, err)

	assert.Equal(t, "alan turing", art.Topic)
	assert.Equal(t, "Alan Turing", art.Title)
	assert.Equal(t, 1208, art.PageID)
	assert.Equal(t, "https://en.wikipedia.org/wiki/Alan_Turing", art.URL)
	assert.Equal(t, "Alan Mathison Turing was an English mathematician.", art.Content)
}

func TestClient_Fetch_UsesSuggestionWhenNoHits(t *testing.T) {
	var titles []string
	c := fakeWiki(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("list") == "search" {
			_, _ = w.Write([]byte(`{"query":{"searchinfo":{"suggestion":"alan turing"},"search":[]}}`))
			return
		}
		titles = append(titles, q.Get("titles"))
		_, _ = w.Write([]byte(`{"query":{"pages":[{"pageid":1,"title":"Alan Turing","extract":"text"}]}}`))
	})

	_, err := c.Fetch(context.Background(), "alan turnig")
	require.NoError(t, err)
	assert.Equal(t, []string{"alan turing"}, titles)
}

func TestClient_Fetch_PrefersTopHitOverSuggestion(t *testing.T) {
	var titles []string
	c := fakeWiki(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("list") == "search" {
			_, _ = w.Write([]byte(`{"query":{"searchinfo":{"suggestion":"pyton"},"search":[{"title":"Python (programming language)"}]}}`))
			return
		}
		titles = append(titles, q.Get("titles"))
		_, _ = w.Write([]byte(`{"query":{"pages":[{"pageid":2,"title":"Python (programming language)","extract":"text"}]}}`))
	})

	_, err := c.Fetch(context.Background(), "python")
	require.NoError(t, err)
	assert.Equal(t, []string{"Python (programming language)"}, titles)
}

func TestClient_Fetch_NotFound(t *testing.T) {
	tests := map[string]string{
		"no search results": `{"query":{"search":[]}}`,
		"missing page":      `{"query":{"pages":[{"title":"Xyzzy","missing":true}]}}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			c := fakeWiki(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Query().Get("list") == "search" && name == "missing page" {
					_, _ = w.Write([]byte(`{"query":{"search":[{"title":"Xyzzy"}]}}`))
					return
				}
				_, _ = w.Write([]byte(body))
			})

			_, err := c.Fetch(context.Background(), "xyzzy")
			assert.ErrorIs(t, err, domain.ErrArticleNotFound)
		})
	}
}

func TestClient_Fetch_Disambiguation(t *testing.T) {
	c := fakeWiki(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("list") == "search":
			_, _ = w.Write([]byte(`{"query":{"search":[{"title":"Mercury"}]}}`))
		case q.Get("action") == "parse":
			assert.Equal(t, "Mercury", q.Get("page"))
			_, _ = w.Write([]byte(`{"parse":{"title":"Mercury","text":` + jsonString(disambiguationHTML) + `}}`))
		default:
			_, _ = w.Write([]byte(`{"query":{"pages":[{"pageid":5,"title":"Mercury","pageprops":{"disambiguation":""},"extract":"Mercury may refer to:"}]}}`))
		}
	})

	_, err := c.Fetch(context.Background(), "mercury")
	require.Error(t, err)

	var de *domain.DisambiguationError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "mercury", de.Topic)
	assert.Equal(t, "Mercury", de.Title)
	assert.Equal(t, []string{"Mercury (planet)", "Mercury (element)", "Roman god"}, de.Options)
}

func TestClient_Fetch_WithoutAutoSuggest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.Query().Get("list"))
		assert.Equal(t, "Python", r.URL.Query().Get("titles"))
		_, _ = w.Write([]byte(`{"query":{"pages":[{"pageid":2,"title":"Python","extract":"snake"}]}}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, zerolog.Nop())
	art, err := c.Fetch(context.Background(), "Python")
	require.NoError(t, err)
	assert.Equal(t, "snake", art.Content)
}

func TestClient_Fetch_EmptyTopic(t *testing.T) {
	c := NewClient(Config{BaseURL: "http://127.0.0.1:0"}, zerolog.Nop())
	_, err := c.Fetch(context.Background(), "   ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestClient_Fetch_APIError(t *testing.T) {
	c := fakeWiki(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":{"code":"ratelimited","info":"slow down"}}`))
	})

	_, err := c.Fetch(context.Background(), "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "slow down")
}

func TestClient_Fetch_HTTPError(t *testing.T) {
	c := fakeWiki(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := c.Fetch(context.Background(), "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func jsonString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
