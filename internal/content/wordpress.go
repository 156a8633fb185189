package content

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/hitoshi/cmsshowcase/internal/model"
	"github.com/hitoshi/cmsshowcase/internal/upstream"
)

// wordpressPostsPath は投稿コレクションのパス。
const wordpressPostsPath = "/wp-json/wp/v2/posts"

// WordPressSource はWordPress REST API（ソースB）からコンテンツを取得する。
// feedURLが設定されている場合、REST APIの失敗時にRSSフィードを試してからサンプルを使う。
type WordPressSource struct {
	client     *upstream.Client
	normalizer *Normalizer
	logger     *slog.Logger
	feedURL    string
}

// NewWordPressSource はWordPressSourceを生成する。feedURLは空でもよい。
func NewWordPressSource(client *upstream.Client, normalizer *Normalizer, logger *slog.Logger, feedURL string) *WordPressSource {
	return &WordPressSource{
		client:     client,
		normalizer: normalizer,
		logger:     logger,
		feedURL:    feedURL,
	}
}

// Platform は取得元を返す。
func (s *WordPressSource) Platform() model.Platform {
	return model.PlatformWordPress
}

// ListArticles は投稿を最大limit件取得する。失敗時はRSS、サンプルの順に代替する。
func (s *WordPressSource) ListArticles(ctx context.Context, limit int) []model.ContentItem {
	limit = normalizeLimit(limit)

	path := wordpressPostsPath + "?per_page=" + strconv.Itoa(limit) + "&_embed"
	items, err := s.fetchPosts(ctx, path)
	if err == nil {
		return firstN(items, limit)
	}
	s.logger.Warn("WordPress投稿の取得に失敗しました",
		slog.String("error", err.Error()),
	)

	if s.feedURL != "" {
		items, feedErr := s.fetchFeed(ctx, limit)
		if feedErr == nil {
			return firstN(items, limit)
		}
		s.logger.Warn("WordPressフィードの取得に失敗しました",
			slog.String("feed_url", s.feedURL),
			slog.String("error", feedErr.Error()),
		)
	}

	s.client.RecordFallback(string(model.ContentKindArticle))
	return firstN(s.normalizer.sampleItems(model.PlatformWordPress, model.ContentKindArticle), limit)
}

// ListEvents はイベントを返す。多くのWordPressサイトにはイベントのエンドポイントがないため常にサンプル。
func (s *WordPressSource) ListEvents(ctx context.Context, limit int) []model.ContentItem {
	s.client.RecordFallback(string(model.ContentKindEvent))
	return firstN(s.normalizer.sampleItems(model.PlatformWordPress, model.ContentKindEvent), normalizeLimit(limit))
}

// GetByID は1件取得する。404の場合は(nil, nil)。
func (s *WordPressSource) GetByID(ctx context.Context, kind model.ContentKind, id string) (*model.ContentItem, error) {
	if kind == model.ContentKindEvent {
		return s.normalizer.sampleByID(model.PlatformWordPress, kind, id), nil
	}
	// WordPressの投稿IDは整数。数値でなければ取得元に存在しない
	if _, err := strconv.Atoi(id); err != nil {
		return nil, nil
	}

	resp, err := s.client.Get(ctx, wordpressPostsPath+"/"+url.PathEscape(id)+"?_embed", "")
	if err == nil && resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if err == nil && !resp.OK() {
		err = fmt.Errorf("WordPress APIがステータス %d を返しました", resp.StatusCode)
	}

	var post WordPressPost
	if err == nil {
		if jsonErr := json.Unmarshal(resp.Body, &post); jsonErr != nil {
			s.client.RecordFailure("parse")
			err = fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", jsonErr)
		}
	}
	if err != nil {
		s.logger.Warn("WordPress投稿の取得に失敗したためサンプルから検索します",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		s.client.RecordFallback(string(kind))
		return s.normalizer.sampleByID(model.PlatformWordPress, kind, id), nil
	}

	item := s.normalizer.WordPress(post, kind)
	return &item, nil
}

func (s *WordPressSource) fetchPosts(ctx context.Context, path string) ([]model.ContentItem, error) {
	resp, err := s.client.Get(ctx, path, "")
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, fmt.Errorf("WordPress APIがステータス %d を返しました", resp.StatusCode)
	}

	var posts []WordPressPost
	if err := json.Unmarshal(resp.Body, &posts); err != nil {
		s.client.RecordFailure("parse")
		return nil, fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}

	items := make([]model.ContentItem, 0, len(posts))
	for _, post := range posts {
		items = append(items, s.normalizer.WordPress(post, model.ContentKindArticle))
	}
	return items, nil
}

// fetchFeed はRSS/Atomフィードを取得してContentItemに変換する。
func (s *WordPressSource) fetchFeed(ctx context.Context, limit int) ([]model.ContentItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("リクエスト作成に失敗: %w", err)
	}
	req.Header.Set("User-Agent", upstream.UserAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml, */*")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, fmt.Errorf("フィードがステータス %d を返しました", resp.StatusCode)
	}

	parser := gofeed.NewParser()
	feed, err := parser.ParseString(string(resp.Body))
	if err != nil {
		s.client.RecordFailure("parse")
		return nil, fmt.Errorf("フィードのパースに失敗: %w", err)
	}

	items := make([]model.ContentItem, 0, len(feed.Items))
	for i, fi := range feed.Items {
		if i >= limit {
			break
		}
		items = append(items, s.normalizer.WordPress(feedItemToPost(fi, i), model.ContentKindArticle))
	}
	return items, nil
}

// feedItemToPost はフィードの記事をWordPressPost形に写して同じ正規化を通す。
// WordPressのRSSはguidに"?p=<ID>"を含むため、取れればそれをIDとする。
func feedItemToPost(fi *gofeed.Item, index int) WordPressPost {
	post := WordPressPost{
		ID:      postIDFromGUID(fi.GUID, index),
		Title:   WordPressRendered{Rendered: fi.Title},
		Content: WordPressRendered{Rendered: fi.Content},
		Excerpt: WordPressRendered{Rendered: fi.Description},
	}
	if post.Content.Rendered == "" {
		post.Content.Rendered = fi.Description
	}
	if fi.PublishedParsed != nil {
		post.Date = fi.PublishedParsed.UTC().Format(time.RFC3339)
	}
	if fi.Image != nil && fi.Image.URL != "" {
		post.Embedded = &WordPressEmbedded{
			FeaturedMedia: []WordPressMedia{{SourceURL: fi.Image.URL}},
		}
	}
	return post
}

func postIDFromGUID(guid string, index int) int {
	if i := strings.LastIndex(guid, "p="); i >= 0 {
		if id, err := strconv.Atoi(guid[i+2:]); err == nil {
			return id
		}
	}
	// IDが取れない場合はフィード内の順序から負の仮IDを振る
	return -(index + 1)
}

var _ Source = (*WordPressSource)(nil)
