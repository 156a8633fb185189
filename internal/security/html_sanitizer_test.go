package security

import (
	"strings"
	"testing"
)

// TestSanitize_DrupalBasicHTML はDrupalのbasic_html相当のマークアップが通過することを検証する。
func TestSanitize_DrupalBasicHTML(t *testing.T) {
	sanitizer := NewHTMLSanitizer()

	tests := []struct {
		name         string
		input        string
		wantContains []string
	}{
		{
			name:         "段落と強調",
			input:        "<p>Discover <strong>JSON:API</strong> and <em>includes</em></p>",
			wantContains: []string{"<p>", "<strong>JSON:API</strong>", "<em>includes</em>"},
		},
		{
			name:         "見出しh2-h4",
			input:        "<h2>Setup</h2><h3>Step</h3><h4>Note</h4>",
			wantContains: []string{"<h2>Setup</h2>", "<h3>Step</h3>", "<h4>Note</h4>"},
		},
		{
			name:         "リストとコード",
			input:        "<ul><li>one</li></ul><pre><code>curl /jsonapi</code></pre>",
			wantContains: []string{"<ul><li>one</li></ul>", "<pre><code>curl /jsonapi</code></pre>"},
		},
		{
			name:         "WordPressのfigure",
			input:        `<figure><img src="https://example.com/a.jpg" alt="cover"><figcaption>Cover</figcaption></figure>`,
			wantContains: []string{"<figure>", "https://example.com/a.jpg", `alt="cover"`, "<figcaption>Cover</figcaption>"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizer.Sanitize(tt.input)
			for _, want := range tt.wantContains {
				if !strings.Contains(got, want) {
					t.Errorf("Sanitize(%q) = %q, expected to contain %q", tt.input, got, want)
				}
			}
		})
	}
}

// TestSanitize_RemovesActiveContent は取得元に埋め込まれた能動的コンテンツが除去されることを検証する。
func TestSanitize_RemovesActiveContent(t *testing.T) {
	sanitizer := NewHTMLSanitizer()

	tests := []struct {
		name       string
		input      string
		wantAbsent []string
	}{
		{
			name:       "script",
			input:      `<p>ok</p><script>document.cookie</script>`,
			wantAbsent: []string{"<script", "document.cookie"},
		},
		{
			name:       "iframe埋め込み",
			input:      `<iframe src="https://www.youtube.com/embed/x"></iframe>`,
			wantAbsent: []string{"<iframe", "youtube"},
		},
		{
			name:       "on*属性",
			input:      `<img src="https://example.com/i.png" onerror="alert(1)">`,
			wantAbsent: []string{"onerror", "alert"},
		},
		{
			name:       "javascript URI",
			input:      `<a href="javascript:alert(1)">x</a>`,
			wantAbsent: []string{"javascript:"},
		},
		{
			name:       "http画像",
			input:      `<img src="http://example.com/i.png">`,
			wantAbsent: []string{"http://example.com/i.png"},
		},
		{
			name:       "style属性",
			input:      `<p style="display:none">x</p>`,
			wantAbsent: []string{"style=", "display:none"},
		},
		{
			name:       "h1はページ見出しと衝突するため除去",
			input:      `<h1>Title</h1>`,
			wantAbsent: []string{"<h1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizer.Sanitize(tt.input)
			for _, absent := range tt.wantAbsent {
				if strings.Contains(strings.ToLower(got), strings.ToLower(absent)) {
					t.Errorf("Sanitize(%q) = %q, should NOT contain %q", tt.input, got, absent)
				}
			}
		})
	}
}

func TestSanitize_LinksOpenInNewTab(t *testing.T) {
	sanitizer := NewHTMLSanitizer()

	got := sanitizer.Sanitize(`<a href="https://www.drupal.org" target="_self">Drupal</a>`)
	for _, want := range []string{`target="_blank"`, "noopener", "noreferrer"} {
		if !strings.Contains(got, want) {
			t.Errorf("Sanitize() = %q, expected to contain %q", got, want)
		}
	}
	if strings.Contains(got, `target="_self"`) {
		t.Errorf("Sanitize() = %q, should NOT contain target=\"_self\"", got)
	}
}

func TestSanitize_EmptyAndPlain(t *testing.T) {
	sanitizer := NewHTMLSanitizer()

	if got := sanitizer.Sanitize(""); got != "" {
		t.Errorf("Sanitize(\"\") = %q, want empty", got)
	}
	plain := "プレーンテキストの本文"
	if got := sanitizer.Sanitize(plain); got != plain {
		t.Errorf("Sanitize(%q) = %q, want unchanged", plain, got)
	}
}

// TestSanitize_Idempotent は二重サニタイズで結果が変わらないことを検証する。
func TestSanitize_Idempotent(t *testing.T) {
	sanitizer := NewHTMLSanitizer()

	input := `<p>本文<strong>太字</strong></p><a href="https://example.com">リンク</a>`
	once := sanitizer.Sanitize(input)
	twice := sanitizer.Sanitize(once)
	if once != twice {
		t.Errorf("二重サニタイズで結果が変わった: 1回目=%q, 2回目=%q", once, twice)
	}
}

func TestHTMLSanitizerInterface(t *testing.T) {
	var _ HTMLSanitizer = NewHTMLSanitizer()
}
