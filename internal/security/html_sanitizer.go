// Package security はアプリケーションのセキュリティ機能を提供する。
//
// HTMLSanitizer はCMSから取得した本文HTMLをサニタイズし、
// 取得元に埋め込まれたスクリプト等からUIを保護する。
// bluemondayライブラリを使用した許可リストベースのポリシーで、
// 記事本文に必要なタグと属性のみを通過させる。
package security

import (
	"net/url"

	"github.com/microcosm-cc/bluemonday"
)

// HTMLSanitizer はHTMLサニタイズ機能のインターフェースを定義する。
// コンテンツの正規化時と商品説明の正規化時に使用される。
type HTMLSanitizer interface {
	// Sanitize はHTMLをサニタイズして安全なHTMLを返す。
	// 許可タグ（p, br, a, ul, ol, li, blockquote, pre, code, strong, em, h2-h4, figure, figcaption, img）のみを通過させ、
	// script, iframe, styleタグおよびon*イベント属性を除去する。
	// imgタグのsrc属性はhttpsスキームのみ許可される。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(rawHTML string) string
}

// htmlSanitizer はHTMLSanitizerの実装。
// bluemondayのポリシーはスレッドセーフなので共有して使う。
type htmlSanitizer struct {
	policy *bluemonday.Policy
}

// NewHTMLSanitizer はHTMLSanitizerの新しいインスタンスを生成する。
func NewHTMLSanitizer() *htmlSanitizer {
	p := bluemonday.NewPolicy()

	// Drupalのbasic_htmlとWordPressのブロックエディタが出力する範囲に合わせる
	p.AllowElements(
		"p", "br", "ul", "ol", "li",
		"blockquote", "pre", "code",
		"strong", "em", "b", "i",
		"h2", "h3", "h4",
		"figure", "figcaption",
	)

	// リンクは絶対URLのみ。新しいタブで開き、リファラを送らない
	p.AllowAttrs("href").OnElements("a")
	p.AllowRelativeURLs(false)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)

	// 画像はhttpsのみ
	p.AllowAttrs("src", "alt").OnElements("img")
	p.AllowURLSchemeWithCustomPolicy("https", func(u *url.URL) bool {
		return true
	})

	return &htmlSanitizer{
		policy: p,
	}
}

// Sanitize はHTMLをサニタイズして安全なHTMLを返す。
func (s *htmlSanitizer) Sanitize(rawHTML string) string {
	return s.policy.Sanitize(rawHTML)
}
