package content

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// excerptRunes は抜粋の最大文字数。
const excerptRunes = 200

// plainText はHTML断片からテキストのみを取り出す。
// エンティティは展開され、連続する空白は1つにまとめられる。
func plainText(fragment string) string {
	if fragment == "" {
		return ""
	}

	tokenizer := html.NewTokenizer(strings.NewReader(fragment))
	var sb strings.Builder
	skip := 0

	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return collapseSpace(sb.String())
		case html.StartTagToken, html.EndTagToken:
			name, _ := tokenizer.TagName()
			tag := string(name)
			if tag == "script" || tag == "style" {
				if tt == html.StartTagToken {
					skip++
				} else if skip > 0 {
					skip--
				}
				continue
			}
			// ブロック要素の境界で単語が連結しないようにする
			if isBlockTag(tag) {
				sb.WriteByte(' ')
			}
		case html.SelfClosingTagToken:
			name, _ := tokenizer.TagName()
			if string(name) == "br" {
				sb.WriteByte(' ')
			}
		case html.TextToken:
			if skip == 0 {
				sb.Write(tokenizer.Text())
			}
		}
	}
}

func isBlockTag(tag string) bool {
	switch tag {
	case "p", "br", "div", "li", "ul", "ol", "blockquote", "pre",
		"h1", "h2", "h3", "h4", "h5", "h6", "figure", "figcaption":
		return true
	}
	return false
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// unescapeTitle はWordPressのtitle.rendered（エンティティ・インラインタグを含む）をプレーンテキストにする。
func unescapeTitle(rendered string) string {
	return plainText(rendered)
}

// truncateRunes はsを先頭からn文字に切り詰める。
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// excerptOf は本文HTMLから抜粋を作る。
func excerptOf(bodyHTML string) string {
	return truncateRunes(plainText(bodyHTML), excerptRunes)
}
