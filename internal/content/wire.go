package content

// Drupal JSON:API の応答形。サンプルデータ(samples.yaml)も同じ形で保持する。

// DrupalListDocument は一覧エンドポイントの応答。
type DrupalListDocument struct {
	Data     []DrupalNode       `json:"data"`
	Included []DrupalIncluded   `json:"included,omitempty"`
	Errors   []DrupalErrorEntry `json:"errors,omitempty"`
}

// DrupalSingleDocument は単一リソースの応答。
type DrupalSingleDocument struct {
	Data     *DrupalNode        `json:"data"`
	Included []DrupalIncluded   `json:"included,omitempty"`
	Errors   []DrupalErrorEntry `json:"errors,omitempty"`
}

// DrupalNode はnode--article, node--eventリソース。
type DrupalNode struct {
	ID            string              `json:"id" yaml:"id"`
	Type          string              `json:"type" yaml:"type"`
	Attributes    DrupalAttributes    `json:"attributes" yaml:"attributes"`
	Relationships DrupalRelationships `json:"relationships,omitempty" yaml:"relationships,omitempty"`
}

// DrupalAttributes はノードの属性。
type DrupalAttributes struct {
	Title          string      `json:"title" yaml:"title"`
	Body           *DrupalBody `json:"body,omitempty" yaml:"body,omitempty"`
	Created        string      `json:"created" yaml:"created"`
	Changed        string      `json:"changed,omitempty" yaml:"changed,omitempty"`
	FieldEventDate string      `json:"field_event_date,omitempty" yaml:"field_event_date,omitempty"`
	FieldLocation  string      `json:"field_location,omitempty" yaml:"field_location,omitempty"`
}

// DrupalBody はテキスト(書式付き)フィールド。
type DrupalBody struct {
	Value     string `json:"value" yaml:"value"`
	Format    string `json:"format,omitempty" yaml:"format,omitempty"`
	Processed string `json:"processed,omitempty" yaml:"processed,omitempty"`
}

// DrupalRelationships はノードのリレーションシップ。画像のみ扱う。
type DrupalRelationships struct {
	FieldImage *DrupalRelationship `json:"field_image,omitempty" yaml:"field_image,omitempty"`
}

// DrupalRelationship は単一参照のリレーションシップ。
type DrupalRelationship struct {
	Data *DrupalResourceID `json:"data" yaml:"data"`
}

// DrupalResourceID はリソース識別子。
type DrupalResourceID struct {
	Type string `json:"type" yaml:"type"`
	ID   string `json:"id" yaml:"id"`
}

// DrupalIncluded はinclude=field_image で同梱されるfile--fileリソース。
type DrupalIncluded struct {
	Type       string `json:"type"`
	ID         string `json:"id"`
	Attributes struct {
		URI struct {
			URL string `json:"url"`
		} `json:"uri"`
	} `json:"attributes"`
}

// DrupalErrorEntry はJSON:APIのエラーオブジェクト。
type DrupalErrorEntry struct {
	Status string `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

// WordPress REST API の応答形。

// WordPressPost は/wp/v2/posts の要素。イベントのサンプルもacfフィールド付きの同じ形で保持する。
type WordPressPost struct {
	ID       int                `json:"id" yaml:"id"`
	Title    WordPressRendered  `json:"title" yaml:"title"`
	Content  WordPressRendered  `json:"content" yaml:"content"`
	Excerpt  WordPressRendered  `json:"excerpt" yaml:"excerpt"`
	Date     string             `json:"date" yaml:"date"`
	Modified string             `json:"modified,omitempty" yaml:"modified,omitempty"`
	Embedded *WordPressEmbedded `json:"_embedded,omitempty" yaml:"_embedded,omitempty"`
	ACF      *WordPressEvent    `json:"acf,omitempty" yaml:"acf,omitempty"`
	Meta     *WordPressEvent    `json:"meta,omitempty" yaml:"meta,omitempty"`
}

// WordPressRendered はrenderedを持つフィールド。
type WordPressRendered struct {
	Rendered string `json:"rendered" yaml:"rendered"`
}

// WordPressEmbedded は_embed指定時に同梱される関連リソース。
type WordPressEmbedded struct {
	FeaturedMedia []WordPressMedia `json:"wp:featuredmedia,omitempty" yaml:"wp:featuredmedia,omitempty"`
}

// WordPressMedia はアイキャッチ画像。
type WordPressMedia struct {
	SourceURL string `json:"source_url" yaml:"source_url"`
	AltText   string `json:"alt_text,omitempty" yaml:"alt_text,omitempty"`
}

// WordPressEvent はACF等で付与されるイベント情報。
type WordPressEvent struct {
	EventDate string `json:"event_date,omitempty" yaml:"event_date,omitempty"`
	Location  string `json:"location,omitempty" yaml:"location,omitempty"`
}
