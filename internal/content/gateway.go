// Package content は取得元CMSからの読み取り専用コンテンツ取得を提供する。
//
// 2つの取得元（Drupal JSON:API、WordPress REST API）の応答形を
// model.ContentItem に正規化する。一覧取得は決してエラーを返さず、
// 通信失敗・非2xx・不正な応答の場合は固定のサンプルデータで代替する。
package content

import (
	"context"

	"github.com/hitoshi/cmsshowcase/internal/model"
)

// DefaultLimit はlimitが正でない場合に使う件数。
const DefaultLimit = 10

// Source は1つの取得元に対する読み取り操作。
type Source interface {
	Platform() model.Platform
	// ListArticles は記事を最大limit件返す。エラーは返さない。
	ListArticles(ctx context.Context, limit int) []model.ContentItem
	// ListEvents はイベントを最大limit件返す。エラーは返さない。
	ListEvents(ctx context.Context, limit int) []model.ContentItem
	// GetByID は1件返す。見つからない場合は(nil, nil)。
	GetByID(ctx context.Context, kind model.ContentKind, id string) (*model.ContentItem, error)
}

// Gateway は取得元名でSourceを振り分ける。
type Gateway struct {
	sources map[model.Platform]Source
}

// NewGateway はGatewayを生成する。
func NewGateway(sources ...Source) *Gateway {
	g := &Gateway{sources: make(map[model.Platform]Source, len(sources))}
	for _, s := range sources {
		g.sources[s.Platform()] = s
	}
	return g
}

// source は取得元を引く。未登録の場合はUNKNOWN_PLATFORMエラー。
func (g *Gateway) source(platform model.Platform) (Source, error) {
	s, ok := g.sources[platform]
	if !ok {
		return nil, model.NewUnknownPlatformError(string(platform))
	}
	return s, nil
}

// ListArticles は指定取得元の記事一覧を返す。
func (g *Gateway) ListArticles(ctx context.Context, platform model.Platform, limit int) ([]model.ContentItem, error) {
	s, err := g.source(platform)
	if err != nil {
		return nil, err
	}
	return s.ListArticles(ctx, limit), nil
}

// ListEvents は指定取得元のイベント一覧を返す。
func (g *Gateway) ListEvents(ctx context.Context, platform model.Platform, limit int) ([]model.ContentItem, error) {
	s, err := g.source(platform)
	if err != nil {
		return nil, err
	}
	return s.ListEvents(ctx, limit), nil
}

// GetByID は指定取得元から1件返す。見つからない場合はCONTENT_NOT_FOUND。
func (g *Gateway) GetByID(ctx context.Context, platform model.Platform, kind model.ContentKind, id string) (*model.ContentItem, error) {
	s, err := g.source(platform)
	if err != nil {
		return nil, err
	}
	item, err := s.GetByID(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, model.NewContentNotFoundError(id)
	}
	return item, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return limit
}
