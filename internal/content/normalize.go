package content

import (
	"strconv"
	"strings"
	"time"

	"github.com/hitoshi/cmsshowcase/internal/model"
	"github.com/hitoshi/cmsshowcase/internal/security"
)

// DefaultBodyFormat はDrupalの本文に既定で付与するテキスト書式。
const DefaultBodyFormat = "basic_html"

// wordpressTimeLayout はWordPressのdateフィールドの書式（タイムゾーンなし、UTCとして扱う）。
const wordpressTimeLayout = "2006-01-02T15:04:05"

// Normalizer は取得元ごとの応答形をmodel.ContentItemに変換する。
//
// 本文の優先順位:
//   - Drupal: body.processed → body.value → ""
//   - WordPress: content.rendered → ""
//
// 表示用本文は常にサニタイズされ、抜粋は表示用本文のテキスト先頭200文字から作られる。
// パースできない日時はゼロ値になり、エラーにはしない。
type Normalizer struct {
	sanitizer security.HTMLSanitizer
}

// NewNormalizer はNormalizerを生成する。
func NewNormalizer(sanitizer security.HTMLSanitizer) *Normalizer {
	return &Normalizer{sanitizer: sanitizer}
}

// Drupal はJSON:APIのノードを正規化する。imageURLは解決済みの画像URL（なければ空）。
func (n *Normalizer) Drupal(node DrupalNode, kind model.ContentKind, imageURL string) model.ContentItem {
	attrs := node.Attributes

	var raw, format, rendered string
	if attrs.Body != nil {
		raw = attrs.Body.Value
		format = attrs.Body.Format
		rendered = drupalRenderedBody(*attrs.Body)
	}
	rendered = n.sanitizer.Sanitize(rendered)

	item := model.ContentItem{
		ID:           node.ID,
		Source:       model.PlatformDrupal,
		Kind:         kind,
		Title:        strings.TrimSpace(attrs.Title),
		BodyRaw:      raw,
		BodyRendered: rendered,
		BodyFormat:   format,
		Excerpt:      excerptOf(rendered),
		ImageURL:     imageURL,
		CreatedAt:    parseTime(attrs.Created, time.RFC3339),
		Location:     attrs.FieldLocation,
	}
	if attrs.FieldEventDate != "" {
		if at := parseTime(attrs.FieldEventDate, time.RFC3339); !at.IsZero() {
			item.EventAt = &at
		}
	}
	return item
}

// drupalRenderedBody は表示用本文を優先順位に従って選ぶ。
func drupalRenderedBody(body DrupalBody) string {
	if body.Processed != "" {
		return body.Processed
	}
	return body.Value
}

// WordPress は/wp/v2/postsの要素を正規化する。
func (n *Normalizer) WordPress(post WordPressPost, kind model.ContentKind) model.ContentItem {
	rendered := n.sanitizer.Sanitize(post.Content.Rendered)

	item := model.ContentItem{
		ID:           strconv.Itoa(post.ID),
		Source:       model.PlatformWordPress,
		Kind:         kind,
		Title:        unescapeTitle(post.Title.Rendered),
		BodyRaw:      post.Content.Rendered,
		BodyRendered: rendered,
		Excerpt:      excerptOf(rendered),
		ImageURL:     featuredImage(post.Embedded),
		CreatedAt:    parseTime(post.Date, wordpressTimeLayout, time.RFC3339),
	}

	// イベント情報はACF → metaの順
	event := post.ACF
	if event == nil || (event.EventDate == "" && event.Location == "") {
		event = post.Meta
	}
	if event != nil {
		item.Location = event.Location
		if at := parseTime(event.EventDate, wordpressTimeLayout, time.RFC3339); !at.IsZero() {
			item.EventAt = &at
		}
	}
	return item
}

func featuredImage(embedded *WordPressEmbedded) string {
	if embedded == nil || len(embedded.FeaturedMedia) == 0 {
		return ""
	}
	return embedded.FeaturedMedia[0].SourceURL
}

// parseTime はlayoutsを順に試す。いずれにも一致しない場合はゼロ値を返す。
func parseTime(value string, layouts ...string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// drupalImageURLs はincludedのfile--fileから画像URLの索引を作る。
// 相対URLはbaseURLを前置して絶対URLにする。
func drupalImageURLs(included []DrupalIncluded, baseURL string) map[string]string {
	urls := make(map[string]string, len(included))
	for _, inc := range included {
		if inc.Type != "file--file" || inc.Attributes.URI.URL == "" {
			continue
		}
		u := inc.Attributes.URI.URL
		if strings.HasPrefix(u, "/") {
			u = baseURL + u
		}
		urls[inc.ID] = u
	}
	return urls
}

// drupalNodeImage はノードのfield_imageリレーションシップから画像URLを引く。
func drupalNodeImage(node DrupalNode, images map[string]string) string {
	rel := node.Relationships.FieldImage
	if rel == nil || rel.Data == nil {
		return ""
	}
	return images[rel.Data.ID]
}
