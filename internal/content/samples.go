package content

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/hitoshi/cmsshowcase/internal/model"
)

//go:embed samples.yaml
var samplesYAML []byte

// sampleSet はsamples.yamlの構造。
type sampleSet struct {
	Drupal struct {
		Articles []DrupalNode `yaml:"articles"`
		Events   []DrupalNode `yaml:"events"`
	} `yaml:"drupal"`
	WordPress struct {
		Posts  []WordPressPost `yaml:"posts"`
		Events []WordPressPost `yaml:"events"`
	} `yaml:"wordpress"`
}

var samples = mustLoadSamples(samplesYAML)

// mustLoadSamples は埋め込みサンプルを読み込む。ビルドに含まれる固定データなので失敗はpanicとする。
func mustLoadSamples(data []byte) sampleSet {
	var set sampleSet
	if err := yaml.Unmarshal(data, &set); err != nil {
		panic(fmt.Sprintf("invalid embedded samples.yaml: %v", err))
	}
	if len(set.Drupal.Articles) == 0 || len(set.WordPress.Posts) == 0 {
		panic("embedded samples.yaml has no articles")
	}
	return set
}

// sampleItems はサンプルを正規化して返す。呼び出しごとに新しいスライスを作る。
func (n *Normalizer) sampleItems(platform model.Platform, kind model.ContentKind) []model.ContentItem {
	switch platform {
	case model.PlatformDrupal:
		nodes := samples.Drupal.Articles
		if kind == model.ContentKindEvent {
			nodes = samples.Drupal.Events
		}
		items := make([]model.ContentItem, 0, len(nodes))
		for _, node := range nodes {
			items = append(items, n.Drupal(node, kind, ""))
		}
		return items
	case model.PlatformWordPress:
		posts := samples.WordPress.Posts
		if kind == model.ContentKindEvent {
			posts = samples.WordPress.Events
		}
		items := make([]model.ContentItem, 0, len(posts))
		for _, post := range posts {
			items = append(items, n.WordPress(post, kind))
		}
		return items
	}
	return nil
}

// sampleByID はサンプルからIDで1件探す。見つからない場合はnil。
func (n *Normalizer) sampleByID(platform model.Platform, kind model.ContentKind, id string) *model.ContentItem {
	for _, item := range n.sampleItems(platform, kind) {
		if item.ID == id {
			found := item
			return &found
		}
	}
	return nil
}

// firstN はitemsの先頭最大limit件を返す。
func firstN(items []model.ContentItem, limit int) []model.ContentItem {
	if limit < len(items) {
		return items[:limit]
	}
	return items
}
