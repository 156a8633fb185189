package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/hitoshi/cmsshowcase/internal/cart"
	"github.com/hitoshi/cmsshowcase/internal/model"
)

// --- レスポンス型 ---

// contentItemResponse は正規化済みコンテンツのAPIレスポンス。
type contentItemResponse struct {
	ID           string     `json:"id"`
	Source       string     `json:"source"`
	Kind         string     `json:"kind"`
	Title        string     `json:"title"`
	BodyRaw      string     `json:"body_raw,omitempty"`
	BodyRendered string     `json:"body_rendered"`
	BodyFormat   string     `json:"body_format,omitempty"`
	Excerpt      string     `json:"excerpt"`
	ImageURL     string     `json:"image_url,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	EventAt      *time.Time `json:"event_at,omitempty"`
	Location     string     `json:"location,omitempty"`
}

type sessionResponse struct {
	State         string     `json:"state"`
	Authenticated bool       `json:"authenticated"`
	Username      string     `json:"username,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
}

type productImageResponse struct {
	ID  int    `json:"id"`
	Src string `json:"src"`
	Alt string `json:"alt"`
}

type productCategoryResponse struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type productResponse struct {
	ID               int                       `json:"id"`
	Name             string                    `json:"name"`
	Slug             string                    `json:"slug"`
	Description      string                    `json:"description"`
	ShortDescription string                    `json:"short_description"`
	Price            string                    `json:"price"`
	RegularPrice     string                    `json:"regular_price"`
	SalePrice        string                    `json:"sale_price"`
	OnSale           bool                      `json:"on_sale"`
	StockStatus      string                    `json:"stock_status"`
	StockQuantity    *int                      `json:"stock_quantity"`
	Images           []productImageResponse    `json:"images"`
	Categories       []productCategoryResponse `json:"categories"`
}

type cartLineResponse struct {
	ProductID int    `json:"product_id"`
	Name      string `json:"name"`
	ImageURL  string `json:"image_url,omitempty"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	Subtotal  string `json:"subtotal"`
}

type cartResponse struct {
	Lines     []cartLineResponse `json:"lines"`
	Total     string             `json:"total"`
	ItemCount int                `json:"item_count"`
}

type orderResponse struct {
	ID            string             `json:"id"`
	OrderKey      string             `json:"order_key"`
	Status        string             `json:"status"`
	Total         string             `json:"total"`
	Billing       model.Address      `json:"billing"`
	Shipping      model.Address      `json:"shipping"`
	LineItems     []cartLineResponse `json:"line_items"`
	PaymentMethod string             `json:"payment_method"`
	CreatedAt     time.Time          `json:"created_at"`
}

// --- 変換 ---

func toContentItemResponse(item model.ContentItem) contentItemResponse {
	return contentItemResponse{
		ID:           item.ID,
		Source:       string(item.Source),
		Kind:         string(item.Kind),
		Title:        item.Title,
		BodyRaw:      item.BodyRaw,
		BodyRendered: item.BodyRendered,
		BodyFormat:   item.BodyFormat,
		Excerpt:      item.Excerpt,
		ImageURL:     item.ImageURL,
		CreatedAt:    item.CreatedAt,
		EventAt:      item.EventAt,
		Location:     item.Location,
	}
}

func toContentItemResponses(items []model.ContentItem) []contentItemResponse {
	out := make([]contentItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, toContentItemResponse(item))
	}
	return out
}

func toProductResponse(p model.Product) productResponse {
	resp := productResponse{
		ID:               p.ID,
		Name:             p.Name,
		Slug:             p.Slug,
		Description:      p.Description,
		ShortDescription: p.ShortDescription,
		Price:            p.Price,
		RegularPrice:     p.RegularPrice,
		SalePrice:        p.SalePrice,
		OnSale:           p.OnSale,
		StockStatus:      p.StockStatus,
		StockQuantity:    p.StockQuantity,
		Images:           make([]productImageResponse, 0, len(p.Images)),
		Categories:       make([]productCategoryResponse, 0, len(p.Categories)),
	}
	for _, img := range p.Images {
		resp.Images = append(resp.Images, productImageResponse{ID: img.ID, Src: img.Src, Alt: img.Alt})
	}
	for _, c := range p.Categories {
		resp.Categories = append(resp.Categories, productCategoryResponse{ID: c.ID, Name: c.Name, Slug: c.Slug})
	}
	return resp
}

// formatMoney は金額を小数点以下2桁の文字列にする。
func formatMoney(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func toCartLineResponses(lines []model.CartLine) []cartLineResponse {
	out := make([]cartLineResponse, 0, len(lines))
	for _, l := range lines {
		out = append(out, cartLineResponse{
			ProductID: l.ProductID,
			Name:      l.Name,
			ImageURL:  l.ImageURL,
			Quantity:  l.Quantity,
			UnitPrice: formatMoney(l.UnitPrice),
			Subtotal:  formatMoney(l.Subtotal()),
		})
	}
	return out
}

func toCartResponse(s cart.Snapshot) cartResponse {
	return cartResponse{
		Lines:     toCartLineResponses(s.Lines),
		Total:     formatMoney(s.Total),
		ItemCount: s.ItemCount,
	}
}

func toOrderResponse(o *model.Order) orderResponse {
	return orderResponse{
		ID:            o.ID,
		OrderKey:      o.OrderKey,
		Status:        string(o.Status),
		Total:         formatMoney(o.Total),
		Billing:       o.Billing,
		Shipping:      o.Shipping,
		LineItems:     toCartLineResponses(o.LineItems),
		PaymentMethod: o.PaymentMethod,
		CreatedAt:     o.CreatedAt,
	}
}
