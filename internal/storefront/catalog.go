// Package storefront はストアフロントの商品カタログと模擬注文を提供する。
package storefront

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hitoshi/cmsshowcase/internal/model"
	"github.com/hitoshi/cmsshowcase/internal/security"
	"github.com/hitoshi/cmsshowcase/internal/upstream"
)

// ProductsPath はWooCommerce REST APIの商品コレクションのパス。
const ProductsPath = "/wp-json/wc/v3/products"

// DefaultLimit は件数が指定されない場合の取得件数。
const DefaultLimit = 10

// WooProduct はWooCommerce REST APIの商品。サンプルデータも同じ形で保持する。
type WooProduct struct {
	ID               int           `json:"id" yaml:"id"`
	Name             string        `json:"name" yaml:"name"`
	Slug             string        `json:"slug" yaml:"slug"`
	Description      string        `json:"description" yaml:"description"`
	ShortDescription string        `json:"short_description" yaml:"short_description"`
	Price            string        `json:"price" yaml:"price"`
	RegularPrice     string        `json:"regular_price" yaml:"regular_price"`
	SalePrice        string        `json:"sale_price" yaml:"sale_price"`
	OnSale           bool          `json:"on_sale" yaml:"on_sale"`
	Status           string        `json:"status" yaml:"status"`
	StockStatus      string        `json:"stock_status" yaml:"stock_status"`
	StockQuantity    *int          `json:"stock_quantity" yaml:"stock_quantity"`
	Images           []WooImage    `json:"images" yaml:"images"`
	Categories       []WooCategory `json:"categories" yaml:"categories"`
}

// WooImage は商品画像。
type WooImage struct {
	ID  int    `json:"id" yaml:"id"`
	Src string `json:"src" yaml:"src"`
	Alt string `json:"alt" yaml:"alt"`
}

// WooCategory は商品カテゴリ。
type WooCategory struct {
	ID   int    `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	Slug string `json:"slug" yaml:"slug"`
}

//go:embed products.yaml
var productsYAML []byte

var sampleProducts = mustLoadProducts(productsYAML)

func mustLoadProducts(data []byte) []WooProduct {
	var set struct {
		Products []WooProduct `yaml:"products"`
	}
	if err := yaml.Unmarshal(data, &set); err != nil {
		panic(fmt.Sprintf("invalid embedded products.yaml: %v", err))
	}
	if len(set.Products) == 0 {
		panic("embedded products.yaml has no products")
	}
	return set.Products
}

// Catalog はWooCommerceから商品を取得する。失敗時はサンプル商品で代替する。
type Catalog struct {
	client    *upstream.Client
	sanitizer security.HTMLSanitizer
	logger    *slog.Logger
}

// NewCatalog はCatalogを生成する。
func NewCatalog(client *upstream.Client, sanitizer security.HTMLSanitizer, logger *slog.Logger) *Catalog {
	return &Catalog{
		client:    client,
		sanitizer: sanitizer,
		logger:    logger,
	}
}

// ListProducts は公開中の商品を最大limit件返す。エラーは返さない。
func (c *Catalog) ListProducts(ctx context.Context, limit int) []model.Product {
	if limit <= 0 {
		limit = DefaultLimit
	}

	path := ProductsPath + "?per_page=" + strconv.Itoa(limit) + "&status=publish"
	products, err := c.fetchList(ctx, path)
	if err != nil {
		c.logger.Warn("商品の取得に失敗したためサンプルを使用します",
			slog.String("error", err.Error()),
		)
		c.client.RecordFallback("product")
		products = c.samples()
	}
	if limit < len(products) {
		products = products[:limit]
	}
	return products
}

// GetProduct は商品を1件返す。取得元が404を返した場合は(nil, nil)。
// 通信失敗・不正な応答の場合はサンプルからIDで探す。
func (c *Catalog) GetProduct(ctx context.Context, id int) (*model.Product, error) {
	if id <= 0 {
		return nil, model.NewValidationError(fmt.Sprintf("商品IDが不正です: %d", id))
	}

	resp, err := c.client.Get(ctx, ProductsPath+"/"+strconv.Itoa(id), "")
	if err == nil && resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if err == nil && !resp.OK() {
		err = fmt.Errorf("WooCommerce APIがステータス %d を返しました", resp.StatusCode)
	}
	var wp WooProduct
	if err == nil {
		if jerr := json.Unmarshal(resp.Body, &wp); jerr != nil {
			c.client.RecordFailure("parse")
			err = fmt.Errorf("商品JSONのパースに失敗しました: %w", jerr)
		} else if wp.ID == 0 {
			c.client.RecordFailure("parse")
			err = fmt.Errorf("商品JSONにidが含まれていません")
		}
	}
	if err != nil {
		c.logger.Warn("商品の取得に失敗したためサンプルから検索します",
			slog.Int("id", id),
			slog.String("error", err.Error()),
		)
		c.client.RecordFallback("product")
		for _, p := range c.samples() {
			if p.ID == id {
				found := p
				return &found, nil
			}
		}
		return nil, nil
	}

	p := c.normalize(wp)
	return &p, nil
}

func (c *Catalog) fetchList(ctx context.Context, path string) ([]model.Product, error) {
	resp, err := c.client.Get(ctx, path, "")
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, fmt.Errorf("WooCommerce APIがステータス %d を返しました", resp.StatusCode)
	}

	var raw []WooProduct
	if err := json.Unmarshal(resp.Body, &raw); err != nil {
		c.client.RecordFailure("parse")
		return nil, fmt.Errorf("商品一覧JSONのパースに失敗しました: %w", err)
	}

	products := make([]model.Product, 0, len(raw))
	for _, wp := range raw {
		products = append(products, c.normalize(wp))
	}
	return products, nil
}

func (c *Catalog) samples() []model.Product {
	products := make([]model.Product, 0, len(sampleProducts))
	for _, wp := range sampleProducts {
		products = append(products, c.normalize(wp))
	}
	return products
}

// normalize はWooCommerceの商品を内部表現に変換する。説明文はサニタイズする。
func (c *Catalog) normalize(wp WooProduct) model.Product {
	p := model.Product{
		ID:               wp.ID,
		Name:             strings.TrimSpace(wp.Name),
		Slug:             wp.Slug,
		Description:      c.sanitizer.Sanitize(wp.Description),
		ShortDescription: c.sanitizer.Sanitize(wp.ShortDescription),
		Price:            wp.Price,
		RegularPrice:     wp.RegularPrice,
		SalePrice:        wp.SalePrice,
		OnSale:           wp.OnSale,
		StockStatus:      wp.StockStatus,
	}
	if wp.StockQuantity != nil {
		q := *wp.StockQuantity
		p.StockQuantity = &q
	}
	for _, img := range wp.Images {
		p.Images = append(p.Images, model.ProductImage{ID: img.ID, Src: img.Src, Alt: img.Alt})
	}
	for _, cat := range wp.Categories {
		p.Categories = append(p.Categories, model.ProductCategory{ID: cat.ID, Name: cat.Name, Slug: cat.Slug})
	}
	return p
}
