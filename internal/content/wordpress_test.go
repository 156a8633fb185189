package content

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/cmsshowcase/internal/model"
)

const wordpressPostsJSON = `[
  {
    "id": 1001,
    "title": {"rendered": "Live &#8211; Post"},
    "content": {"rendered": "<p>Live content</p>"},
    "excerpt": {"rendered": "<p>Live</p>"},
    "date": "2024-05-02T08:30:00",
    "_embedded": {"wp:featuredmedia": [{"source_url": "https://wptavern.com/cover.jpg"}]}
  }
]`

func TestWordPressSource_ListArticles_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/wp-json/wp/v2/posts" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("per_page"); got != "3" {
			t.Errorf("per_page = %q, want 3", got)
		}
		if _, ok := r.URL.Query()["_embed"]; !ok {
			t.Error("_embed パラメータがない")
		}
		w.Write([]byte(wordpressPostsJSON))
	}))
	defer server.Close()

	items := newTestWordPressSource(t, server.URL, "").ListArticles(context.Background(), 3)
	if len(items) != 1 {
		t.Fatalf("len(items) = %d, want 1", len(items))
	}
	if items[0].ID != "1001" || items[0].Title != "Live – Post" {
		t.Errorf("items[0] = %+v", items[0])
	}
	if items[0].ImageURL != "https://wptavern.com/cover.jpg" {
		t.Errorf("ImageURL = %q", items[0].ImageURL)
	}
}

func TestWordPressSource_ListArticles_FallbackToSamples(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":"rest_no_route"}`))
	}))
	defer server.Close()

	items := newTestWordPressSource(t, server.URL, "").ListArticles(context.Background(), 10)
	if len(items) != 3 {
		t.Fatalf("len(items) = %d, want 3", len(items))
	}
	if items[0].Title != "Building Headless WordPress with REST API" {
		t.Errorf("items[0].Title = %q", items[0].Title)
	}
}

const rssFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>WP Tavern</title>
  <item>
    <title>Feed &amp; Post</title>
    <guid isPermaLink="false">https://wptavern.com/?p=777</guid>
    <description><![CDATA[<p>From the feed</p>]]></description>
    <pubDate>Thu, 02 May 2024 08:30:00 +0000</pubDate>
  </item>
  <item>
    <title>Second</title>
    <guid>urn:uuid:abc</guid>
    <description>Second body</description>
  </item>
</channel>
</rss>`

// TestWordPressSource_ListArticles_FeedFallback はREST失敗時にRSSフィードで代替することを検証する。
func TestWordPressSource_ListArticles_FeedFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/feed/":
			w.Header().Set("Content-Type", "application/rss+xml")
			w.Write([]byte(rssFeed))
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer server.Close()

	items := newTestWordPressSource(t, server.URL, server.URL+"/feed/").ListArticles(context.Background(), 10)
	if len(items) != 2 {
		t.Fatalf("len(items) = %d, want 2", len(items))
	}
	if items[0].ID != "777" || items[0].Title != "Feed & Post" {
		t.Errorf("items[0] = %+v", items[0])
	}
	if items[0].CreatedAt.IsZero() {
		t.Error("pubDate が CreatedAt に反映されていない")
	}
	if items[1].ID != "-2" {
		t.Errorf("items[1].ID = %q, want -2", items[1].ID)
	}
	if items[1].BodyRendered != "Second body" {
		t.Errorf("items[1].BodyRendered = %q", items[1].BodyRendered)
	}
}

func TestWordPressSource_ListArticles_FeedAlsoFailsUsesSamples(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	items := newTestWordPressSource(t, server.URL, server.URL+"/feed/").ListArticles(context.Background(), 2)
	if len(items) != 2 || items[0].ID != "1" || items[1].ID != "2" {
		t.Errorf("items = %+v", items)
	}
}

func TestWordPressSource_ListEvents_AlwaysSamples(t *testing.T) {
	items := newTestWordPressSource(t, unreachableURL(), "").ListEvents(context.Background(), 1)
	if len(items) != 1 || items[0].ID != "201" {
		t.Errorf("events = %+v", items)
	}
}

func TestWordPressSource_GetByID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/wp-json/wp/v2/posts/1001":
			w.Write([]byte(`{"id":1001,"title":{"rendered":"One"},"content":{"rendered":"<p>x</p>"},"date":"2024-05-02T08:30:00"}`))
		case "/wp-json/wp/v2/posts/404":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	src := newTestWordPressSource(t, server.URL, "")
	ctx := context.Background()

	item, err := src.GetByID(ctx, model.ContentKindArticle, "1001")
	if err != nil || item == nil || item.Title != "One" {
		t.Errorf("GetByID(1001) = %+v, %v", item, err)
	}

	item, err = src.GetByID(ctx, model.ContentKindArticle, "404")
	if err != nil || item != nil {
		t.Errorf("GetByID(404) = %+v, %v, want nil, nil", item, err)
	}

	// 500はサンプルから探す
	item, err = src.GetByID(ctx, model.ContentKindArticle, "3")
	if err != nil || item == nil || item.Title != "Custom Post Types in WordPress REST API" {
		t.Errorf("GetByID(3) = %+v, %v", item, err)
	}

	// 数値以外のIDは存在しない
	item, err = src.GetByID(ctx, model.ContentKindArticle, "abc")
	if err != nil || item != nil {
		t.Errorf("GetByID(abc) = %+v, %v, want nil, nil", item, err)
	}
}
