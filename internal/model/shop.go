// Package model はドメインモデルを定義する。
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product はストアフロントの商品を表す。
// 価格は取得元と同じく10進数の文字列で保持する。
type Product struct {
	ID               int
	Name             string
	Slug             string
	Description      string // サニタイズ済みHTML
	ShortDescription string
	Price            string
	RegularPrice     string
	SalePrice        string
	OnSale           bool
	StockStatus      string
	StockQuantity    *int
	Images           []ProductImage
	Categories       []ProductCategory
}

// ProductImage は商品画像を表す。
type ProductImage struct {
	ID  int
	Src string
	Alt string
}

// ProductCategory は商品カテゴリを表す。
type ProductCategory struct {
	ID   int
	Name string
	Slug string
}

// PrimaryImage は先頭の画像URLを返す。画像がない場合は空文字列を返す。
func (p *Product) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0].Src
}

// CartLine はカート内の1行を表す。
// 同一ProductIDの行は最大1つで、Quantityは常に正の値。
type CartLine struct {
	ProductID int
	Quantity  int
	UnitPrice decimal.Decimal // カート追加時点の価格スナップショット
	Name      string
	ImageURL  string
}

// Subtotal は行の小計（単価×数量）を返す。
func (l CartLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Address は請求先・配送先の住所を表す。
type Address struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Email     string `json:"email,omitempty" validate:"omitempty,email"`
	Phone     string `json:"phone,omitempty"`
	Address1  string `json:"address_1" validate:"required"`
	City      string `json:"city" validate:"required"`
	State     string `json:"state,omitempty"`
	Postcode  string `json:"postcode" validate:"required"`
	Country   string `json:"country" validate:"required,len=2"`
}

// OrderStatus は注文のステータスを表す。
type OrderStatus string

// OrderStatusPending は作成直後の注文ステータス。
const OrderStatusPending OrderStatus = "pending"

// Order は模擬チェックアウトで生成される注文を表す。
// 生成後は変更せず、プロセスの生存期間を超えて永続化しない。
type Order struct {
	ID            string
	OrderKey      string
	Status        OrderStatus
	Total         decimal.Decimal
	Billing       Address
	Shipping      Address
	LineItems     []CartLine // 送信時点のカートのコピー
	PaymentMethod string
	CreatedAt     time.Time
}
