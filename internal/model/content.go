// Package model はドメインモデルを定義する。
package model

import "time"

// Platform はコンテンツの取得元CMSを表す。
type Platform string

const (
	// PlatformDrupal はJSON:API形式のリソースAPI（ソースA）。
	PlatformDrupal Platform = "drupal"
	// PlatformWordPress は従来型のREST API（ソースB）。
	PlatformWordPress Platform = "wordpress"
)

// ContentKind はコンテンツの種別を表す。
type ContentKind string

const (
	// ContentKindArticle は記事（WordPressでは投稿）。
	ContentKindArticle ContentKind = "article"
	// ContentKindEvent はイベント。
	ContentKindEvent ContentKind = "event"
)

// ContentItem は取得元の違いを吸収した正規化済みコンテンツを表す。
// 正規化処理でのみ生成され、生成後は変更しない。再取得時は新しい値で置き換える。
type ContentItem struct {
	ID           string      // 取得元スコープのID
	Source       Platform
	Kind         ContentKind
	Title        string      // プレーンテキスト
	BodyRaw      string      // 編集用の元本文
	BodyRendered string      // サニタイズ済みHTML
	BodyFormat   string      // テキストフォーマットタグ（Drupalのみ）
	Excerpt      string      // 本文から生成したプレーンテキストの抜粋
	ImageURL     string
	CreatedAt    time.Time
	EventAt      *time.Time
	Location     string
}

// ParsePlatform は文字列をPlatformに変換する。未知の値の場合はfalseを返す。
func ParsePlatform(s string) (Platform, bool) {
	switch Platform(s) {
	case PlatformDrupal, PlatformWordPress:
		return Platform(s), true
	default:
		return "", false
	}
}

// ParseContentKind は文字列をContentKindに変換する。
// URLパスでは複数形（articles, events）も受け付ける。
func ParseContentKind(s string) (ContentKind, bool) {
	switch s {
	case "article", "articles", "post", "posts":
		return ContentKindArticle, true
	case "event", "events":
		return ContentKindEvent, true
	default:
		return "", false
	}
}
