package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/cmsshowcase/internal/cart"
	"github.com/hitoshi/cmsshowcase/internal/model"
	"github.com/hitoshi/cmsshowcase/internal/storefront"
)

// ProductCatalogInterface は商品カタログのインターフェース。storefront.Catalogが実装する。
type ProductCatalogInterface interface {
	ListProducts(ctx context.Context, limit int) []model.Product
	// GetProduct は商品を返す。存在しない場合は(nil, nil)。
	GetProduct(ctx context.Context, id int) (*model.Product, error)
}

// CartInterface はカート操作のインターフェース。cart.Cartが実装する。
type CartInterface interface {
	Add(product model.Product, quantity int) error
	Remove(productID int)
	SetQuantity(productID, quantity int) (bool, error)
	Clear()
	Snapshot() cart.Snapshot
}

// OrderServiceInterface は模擬注文のインターフェース。storefront.OrderServiceが実装する。
type OrderServiceInterface interface {
	Submit(ctx context.Context, req storefront.CheckoutRequest) (*model.Order, error)
	Get(id string) (*model.Order, bool)
}

// ShopHandler は商品・カート・注文のHTTPハンドラー。
type ShopHandler struct {
	catalog ProductCatalogInterface
	cart    CartInterface
	orders  OrderServiceInterface
}

// NewShopHandler はShopHandlerを生成する。
func NewShopHandler(catalog ProductCatalogInterface, c CartInterface, orders OrderServiceInterface) *ShopHandler {
	return &ShopHandler{
		catalog: catalog,
		cart:    c,
		orders:  orders,
	}
}

// addCartItemRequest はカート追加リクエストのボディ。quantity省略時は1。
type addCartItemRequest struct {
	ProductID int  `json:"product_id"`
	Quantity  *int `json:"quantity"`
}

// setQuantityRequest は数量変更リクエストのボディ。0以下は行の削除。
type setQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// ListProducts は商品一覧を返す。
// GET /api/shop/products?limit=
func (h *ShopHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	limit, apiErr := parseLimit(r)
	if apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	products := h.catalog.ListProducts(r.Context(), limit)
	resp := make([]productResponse, 0, len(products))
	for _, p := range products {
		resp = append(resp, toProductResponse(p))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetProduct は商品詳細を返す。
// GET /api/shop/products/{id}
func (h *ShopHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, apiErr := parseIntID(chi.URLParam(r, "id"), "商品ID")
	if apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	product, ok := h.lookupProduct(w, r, id)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(*product))
}

// GetCart はカートの内容を返す。
// GET /api/cart
func (h *ShopHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toCartResponse(h.cart.Snapshot()))
}

// AddCartItem は商品をカートに追加する。価格はカタログから取得した時点のものを使う。
// POST /api/cart/items
func (h *ShopHandler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var req addCartItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ProductID <= 0 {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("product_idは正の整数で指定してください"))
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	product, ok := h.lookupProduct(w, r, req.ProductID)
	if !ok {
		return
	}
	if err := h.cart.Add(*product, quantity); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toCartResponse(h.cart.Snapshot()))
}

// SetCartItemQuantity はカート行の数量を置き換える。
// PUT /api/cart/items/{id}
func (h *ShopHandler) SetCartItemQuantity(w http.ResponseWriter, r *http.Request) {
	id, apiErr := parseIntID(chi.URLParam(r, "id"), "商品ID")
	if apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}
	var req setQuantityRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	found, err := h.cart.SetQuantity(id, req.Quantity)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if !found {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewProductNotFoundError(id))
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(h.cart.Snapshot()))
}

// RemoveCartItem はカート行を削除する。行がなくても成功とする。
// DELETE /api/cart/items/{id}
func (h *ShopHandler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	id, apiErr := parseIntID(chi.URLParam(r, "id"), "商品ID")
	if apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	h.cart.Remove(id)
	writeJSON(w, http.StatusOK, toCartResponse(h.cart.Snapshot()))
}

// ClearCart はカートを空にする。
// DELETE /api/cart
func (h *ShopHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	h.cart.Clear()
	w.WriteHeader(http.StatusNoContent)
}

// Checkout はカートの内容で模擬注文を作成する。
// POST /api/checkout
func (h *ShopHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req storefront.CheckoutRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	order, err := h.orders.Submit(r.Context(), req)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(order))
}

// GetOrder は作成済みの模擬注文を返す。
// GET /api/orders/{id}
func (h *ShopHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	order, ok := h.orders.Get(id)
	if !ok {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewOrderNotFoundError(id))
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

// lookupProduct はカタログから商品を取得する。見つからない場合はエラーを書き込みfalseを返す。
func (h *ShopHandler) lookupProduct(w http.ResponseWriter, r *http.Request, id int) (*model.Product, bool) {
	product, err := h.catalog.GetProduct(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return nil, false
	}
	if product == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewProductNotFoundError(id))
		return nil, false
	}
	return product, true
}
