// Package cart はストアフロントのカートを管理する。
//
// 同一商品の行は最大1つで、数量は常に1以上MaxQuantity以下に保たれる。
// 合計は呼び出しごとに行から計算し直し、集計値をキャッシュしない。
package cart

import (
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/hitoshi/cmsshowcase/internal/model"
)

// MaxQuantity は1行あたりの数量の上限。
const MaxQuantity = model.MaxLineQuantity

// Snapshot はある時点のカート内容。
type Snapshot struct {
	Lines     []model.CartLine
	Total     decimal.Decimal
	ItemCount int
}

// Cart はプロセス内で共有されるカート。
type Cart struct {
	mu    sync.Mutex
	lines []model.CartLine // 追加順
}

// New は空のCartを生成する。
func New() *Cart {
	return &Cart{}
}

// Add は商品をquantity個追加する。既に行がある場合は数量を加算し、価格は追加時点のものを維持する。
// 加算後の数量がMaxQuantityを超える場合は行を変更せずINVALID_QUANTITYを返す。
func (c *Cart) Add(product model.Product, quantity int) error {
	if quantity <= 0 || quantity > MaxQuantity {
		return model.NewInvalidQuantityError(quantity)
	}
	price, err := decimal.NewFromString(strings.TrimSpace(product.Price))
	if err != nil || price.IsNegative() {
		return model.NewInvalidPriceError(product.Price)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if i := c.indexLocked(product.ID); i >= 0 {
		if quantity > MaxQuantity-c.lines[i].Quantity {
			return model.NewInvalidQuantityError(c.lines[i].Quantity + quantity)
		}
		c.lines[i].Quantity += quantity
		return nil
	}
	c.lines = append(c.lines, model.CartLine{
		ProductID: product.ID,
		Quantity:  quantity,
		UnitPrice: price,
		Name:      product.Name,
		ImageURL:  product.PrimaryImage(),
	})
	return nil
}

// Remove は行を削除する。行がなければ何もしない。
func (c *Cart) Remove(productID int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(productID)
}

// SetQuantity は行の数量を置き換える。0以下はRemoveと同じ。
// MaxQuantityを超える場合はINVALID_QUANTITY、行が存在しない場合はfalseを返す。
func (c *Cart) SetQuantity(productID, quantity int) (bool, error) {
	if quantity > MaxQuantity {
		return false, model.NewInvalidQuantityError(quantity)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexLocked(productID)
	if i < 0 {
		return false, nil
	}
	if quantity <= 0 {
		c.removeLocked(productID)
		return true, nil
	}
	c.lines[i].Quantity = quantity
	return true, nil
}

// Clear はすべての行を削除する。
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = nil
}

// Total は単価×数量の合計を返す。
func (c *Cart) Total() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return totalOf(c.lines)
}

// ItemCount は数量の合計を返す（行数ではない）。
func (c *Cart) ItemCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return countOf(c.lines)
}

// Lines は行のコピーを追加順で返す。
func (c *Cart) Lines() []model.CartLine {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.CartLine(nil), c.lines...)
}

// Snapshot は行・合計・個数を一貫した状態で返す。
func (c *Cart) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Lines:     append([]model.CartLine(nil), c.lines...),
		Total:     totalOf(c.lines),
		ItemCount: countOf(c.lines),
	}
}

// Drain は現在の内容を返してカートを空にする。チェックアウト時に使う。
func (c *Cart) Drain() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Snapshot{
		Lines:     c.lines,
		Total:     totalOf(c.lines),
		ItemCount: countOf(c.lines),
	}
	c.lines = nil
	return s
}

func (c *Cart) indexLocked(productID int) int {
	for i, l := range c.lines {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) removeLocked(productID int) {
	if i := c.indexLocked(productID); i >= 0 {
		c.lines = append(c.lines[:i], c.lines[i+1:]...)
	}
}

func totalOf(lines []model.CartLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

func countOf(lines []model.CartLine) int {
	n := 0
	for _, l := range lines {
		n += l.Quantity
	}
	return n
}
