package content

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/hitoshi/cmsshowcase/internal/model"
	"github.com/hitoshi/cmsshowcase/internal/upstream"
)

// JSONAPIMediaType はJSON:APIのメディアタイプ。
const JSONAPIMediaType = "application/vnd.api+json"

// DrupalArticlePath は記事コレクションのパス。
const DrupalArticlePath = "/jsonapi/node/article"

// DrupalSource はDrupal JSON:API（ソースA）からコンテンツを取得する。
type DrupalSource struct {
	client     *upstream.Client
	normalizer *Normalizer
	logger     *slog.Logger
}

// NewDrupalSource はDrupalSourceを生成する。
func NewDrupalSource(client *upstream.Client, normalizer *Normalizer, logger *slog.Logger) *DrupalSource {
	return &DrupalSource{
		client:     client,
		normalizer: normalizer,
		logger:     logger,
	}
}

// Platform は取得元を返す。
func (s *DrupalSource) Platform() model.Platform {
	return model.PlatformDrupal
}

// ListArticles は記事を最大limit件取得する。失敗時はサンプルを返す。
func (s *DrupalSource) ListArticles(ctx context.Context, limit int) []model.ContentItem {
	limit = normalizeLimit(limit)

	q := url.Values{}
	q.Set("page[limit]", strconv.Itoa(limit))
	q.Set("include", "field_image")
	path := DrupalArticlePath + "?" + q.Encode()

	items, err := s.fetchList(ctx, path, model.ContentKindArticle)
	if err != nil {
		s.logger.Warn("Drupal記事の取得に失敗したためサンプルを使用します",
			slog.String("error", err.Error()),
		)
		s.client.RecordFallback(string(model.ContentKindArticle))
		return firstN(s.normalizer.sampleItems(model.PlatformDrupal, model.ContentKindArticle), limit)
	}
	return firstN(items, limit)
}

// ListEvents はイベントを返す。イベントのエンドポイントは存在しないため常にサンプル。
func (s *DrupalSource) ListEvents(ctx context.Context, limit int) []model.ContentItem {
	s.client.RecordFallback(string(model.ContentKindEvent))
	return firstN(s.normalizer.sampleItems(model.PlatformDrupal, model.ContentKindEvent), normalizeLimit(limit))
}

// GetByID は1件取得する。404の場合は(nil, nil)。
// 通信失敗・不正な応答の場合はサンプルからIDで探す。
func (s *DrupalSource) GetByID(ctx context.Context, kind model.ContentKind, id string) (*model.ContentItem, error) {
	if kind == model.ContentKindEvent {
		return s.normalizer.sampleByID(model.PlatformDrupal, kind, id), nil
	}

	doc, status, err := s.FetchNode(ctx, id)
	if status == http.StatusNotFound {
		return nil, nil
	}
	if err != nil {
		s.logger.Warn("Drupal記事の取得に失敗したためサンプルから検索します",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		s.client.RecordFallback(string(kind))
		return s.normalizer.sampleByID(model.PlatformDrupal, kind, id), nil
	}

	images := drupalImageURLs(doc.Included, s.client.BaseURL())
	item := s.normalizer.Drupal(*doc.Data, kind, drupalNodeImage(*doc.Data, images))
	return &item, nil
}

// FetchNode は記事ノードを1件取得する。
// 戻り値のstatusは取得元のHTTPステータス（通信失敗時は0）。
// 変更クライアントが既存の本文書式を読むためにも使う。
func (s *DrupalSource) FetchNode(ctx context.Context, id string) (*DrupalSingleDocument, int, error) {
	path := DrupalArticlePath + "/" + url.PathEscape(id)
	resp, err := s.client.Get(ctx, path, JSONAPIMediaType)
	if err != nil {
		return nil, 0, err
	}
	if !resp.OK() {
		return nil, resp.StatusCode, fmt.Errorf("Drupal APIがステータス %d を返しました", resp.StatusCode)
	}

	var doc DrupalSingleDocument
	if err := json.Unmarshal(resp.Body, &doc); err != nil {
		s.client.RecordFailure("parse")
		return nil, resp.StatusCode, fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}
	if doc.Data == nil {
		s.client.RecordFailure("parse")
		return nil, resp.StatusCode, fmt.Errorf("レスポンスにdataが含まれていません")
	}
	return &doc, resp.StatusCode, nil
}

func (s *DrupalSource) fetchList(ctx context.Context, path string, kind model.ContentKind) ([]model.ContentItem, error) {
	resp, err := s.client.Get(ctx, path, JSONAPIMediaType)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, fmt.Errorf("Drupal APIがステータス %d を返しました", resp.StatusCode)
	}

	var doc DrupalListDocument
	if err := json.Unmarshal(resp.Body, &doc); err != nil {
		s.client.RecordFailure("parse")
		return nil, fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}
	if doc.Data == nil {
		s.client.RecordFailure("parse")
		return nil, fmt.Errorf("レスポンスにdataが含まれていません")
	}

	images := drupalImageURLs(doc.Included, s.client.BaseURL())
	items := make([]model.ContentItem, 0, len(doc.Data))
	for _, node := range doc.Data {
		items = append(items, s.normalizer.Drupal(node, kind, drupalNodeImage(node, images)))
	}
	return items, nil
}

var _ Source = (*DrupalSource)(nil)
