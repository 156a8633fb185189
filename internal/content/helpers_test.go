package content

import (
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/hitoshi/cmsshowcase/internal/security"
	"github.com/hitoshi/cmsshowcase/internal/upstream"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testNormalizer() *Normalizer {
	return NewNormalizer(security.NewHTMLSanitizer())
}

func newTestDrupalSource(t *testing.T, baseURL string) *DrupalSource {
	t.Helper()
	client := upstream.NewClient(&http.Client{Timeout: 2 * time.Second}, "drupal", baseURL, 1<<20, nil, testLogger())
	return NewDrupalSource(client, testNormalizer(), testLogger())
}

func newTestWordPressSource(t *testing.T, baseURL, feedURL string) *WordPressSource {
	t.Helper()
	client := upstream.NewClient(&http.Client{Timeout: 2 * time.Second}, "wordpress", baseURL, 1<<20, nil, testLogger())
	return NewWordPressSource(client, testNormalizer(), testLogger(), feedURL)
}

// unreachableURL は接続を拒否するURLを返す。
func unreachableURL() string {
	return "http://127.0.0.1:1"
}
