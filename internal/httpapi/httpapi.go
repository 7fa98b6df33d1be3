// Package httpapi exposes the POS service over JSON HTTP with bearer-token
// auth. The cart session id travels in the X-Session-ID header; the rest of
// session handling is the client's concern.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"kudipos/backend/internal/cart"
	"kudipos/backend/internal/domain"
	"kudipos/backend/internal/service"
	"kudipos/backend/internal/store"
)

const maxBodyBytes = 1 << 20

type API struct {
	svc          *service.Service
	auth         *AuthManager
	log          *logrus.Logger
	validate     *validator.Validate
	loginLimiter *attemptLimiter
}

func New(svc *service.Service, auth *AuthManager, log *logrus.Logger) *API {
	if log == nil {
		log = logrus.New()
	}
	return &API{
		svc:          svc,
		auth:         auth,
		log:          log,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		loginLimiter: newAttemptLimiter(10, time.Minute),
	}
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("POST /api/login", a.handleLogin)

	staff := []string{domain.RoleCashier, domain.RoleAdmin}
	admin := []string{domain.RoleAdmin}

	mux.HandleFunc("GET /api/products", a.requireAuth(a.handleListProducts, staff...))
	mux.HandleFunc("POST /api/products", a.requireAuth(a.handleCreateProduct, admin...))
	mux.HandleFunc("GET /api/products/low-stock", a.requireAuth(a.handleLowStock, staff...))
	mux.HandleFunc("GET /api/products/sku/{sku}", a.requireAuth(a.handleGetProductBySKU, staff...))
	mux.HandleFunc("GET /api/products/{id}", a.requireAuth(a.handleGetProduct, staff...))
	mux.HandleFunc("PUT /api/products/{id}", a.requireAuth(a.handleUpdateProduct, admin...))
	mux.HandleFunc("DELETE /api/products/{id}", a.requireAuth(a.handleDeleteProduct, admin...))
	mux.HandleFunc("GET /api/categories", a.requireAuth(a.handleListCategories, staff...))

	mux.HandleFunc("GET /api/cart", a.requireAuth(a.handleGetCart, staff...))
	mux.HandleFunc("DELETE /api/cart", a.requireAuth(a.handleClearCart, staff...))
	mux.HandleFunc("POST /api/cart/items", a.requireAuth(a.handleAddCartItem, staff...))
	mux.HandleFunc("PUT /api/cart/items/{productID}", a.requireAuth(a.handleUpdateCartItem, staff...))
	mux.HandleFunc("POST /api/cart/hold", a.requireAuth(a.handleHoldCart, staff...))
	mux.HandleFunc("POST /api/cart/resume", a.requireAuth(a.handleResumeCart, staff...))
	mux.HandleFunc("GET /api/cart/holds", a.requireAuth(a.handleListHolds, staff...))

	mux.HandleFunc("POST /api/checkout", a.requireAuth(a.handleCheckout, staff...))
	mux.HandleFunc("GET /api/sales", a.requireAuth(a.handleListSales, staff...))
	mux.HandleFunc("GET /api/sales/{id}", a.requireAuth(a.handleGetSale, staff...))
	mux.HandleFunc("POST /api/sales/{id}/refund", a.requireAuth(a.handleRefundSale, admin...))
	mux.HandleFunc("GET /api/sales/{id}/receipt", a.requireAuth(a.handleReceipt, staff...))

	mux.HandleFunc("POST /api/adjustments", a.requireAuth(a.handleCreateAdjustment, admin...))
	mux.HandleFunc("GET /api/adjustments", a.requireAuth(a.handleListAdjustments, admin...))

	mux.HandleFunc("GET /api/suppliers", a.requireAuth(a.handleListSuppliers, admin...))
	mux.HandleFunc("POST /api/suppliers", a.requireAuth(a.handleCreateSupplier, admin...))
	mux.HandleFunc("GET /api/suppliers/{id}", a.requireAuth(a.handleGetSupplier, admin...))
	mux.HandleFunc("PUT /api/suppliers/{id}", a.requireAuth(a.handleUpdateSupplier, admin...))

	mux.HandleFunc("GET /api/purchase-orders", a.requireAuth(a.handleListPurchaseOrders, admin...))
	mux.HandleFunc("POST /api/purchase-orders", a.requireAuth(a.handleCreatePurchaseOrder, admin...))
	mux.HandleFunc("GET /api/purchase-orders/{id}", a.requireAuth(a.handleGetPurchaseOrder, admin...))
	mux.HandleFunc("POST /api/purchase-orders/{id}/receive", a.requireAuth(a.handleReceivePurchaseOrder, admin...))
	mux.HandleFunc("POST /api/purchase-orders/{id}/cancel", a.requireAuth(a.handleCancelPurchaseOrder, admin...))

	mux.HandleFunc("GET /api/customers", a.requireAuth(a.handleSearchCustomers, staff...))
	mux.HandleFunc("POST /api/customers", a.requireAuth(a.handleCreateCustomer, admin...))
	mux.HandleFunc("GET /api/customers/{id}", a.requireAuth(a.handleGetCustomer, staff...))
	mux.HandleFunc("PUT /api/customers/{id}", a.requireAuth(a.handleUpdateCustomer, admin...))
	mux.HandleFunc("GET /api/customers/{id}/credit", a.requireAuth(a.handleCreditHistory, staff...))
	mux.HandleFunc("POST /api/customers/{id}/credit", a.requireAuth(a.handleAddCredit, admin...))
	mux.HandleFunc("POST /api/customers/{id}/payments", a.requireAuth(a.handleRecordPayment, admin...))

	mux.HandleFunc("GET /api/users", a.requireAuth(a.handleListUsers, admin...))
	mux.HandleFunc("POST /api/users", a.requireAuth(a.handleCreateUser, admin...))
	mux.HandleFunc("PUT /api/users/password", a.requireAuth(a.handleChangePassword, staff...))

	mux.HandleFunc("GET /api/reports/daily", a.requireAuth(a.handleDailyReport, staff...))
	mux.HandleFunc("GET /api/activity", a.requireAuth(a.handleListActivity, admin...))
	mux.HandleFunc("GET /api/settings", a.requireAuth(a.handleGetSettings, staff...))
	mux.HandleFunc("PUT /api/settings", a.requireAuth(a.handleUpdateSettings, admin...))

	return a.withMiddleware(mux)
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Cache-Control", "no-store")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		a.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).String(),
		}).Info("request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// requireAuth parses the bearer token and attaches the actor to the request
// context when its role is allowed.
func (a *API) requireAuth(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}
		claims, err := a.auth.ParseToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, errors.New("invalid token"))
			return
		}
		allowed := false
		for _, role := range roles {
			if claims.Role == role {
				allowed = true
				break
			}
		}
		if !allowed {
			writeError(w, http.StatusForbidden, errors.New("insufficient role"))
			return
		}
		ctx := service.WithActor(r.Context(), service.Actor{
			ID:       claims.UserID,
			Username: claims.Subject,
			Role:     claims.Role,
		})
		next(w, r.WithContext(ctx))
	}
}

// attemptLimiter caps login attempts per client address inside a sliding
// window.
type attemptLimiter struct {
	mu        sync.Mutex
	max       int
	window    time.Duration
	entries   map[string][]time.Time
	lastSweep time.Time
	now       func() time.Time
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	return &attemptLimiter{max: max, window: window, entries: map[string][]time.Time{}, now: time.Now}
}

func (l *attemptLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= l.window {
		l.sweepLocked(now)
	}
	recent := l.entries[key][:0]
	for _, t := range l.entries[key] {
		if now.Sub(t) < l.window {
			recent = append(recent, t)
		}
	}
	if len(recent) >= l.max {
		l.entries[key] = recent
		return false
	}
	l.entries[key] = append(recent, now)
	return true
}

// sweepLocked drops keys whose attempts have all aged out, so one-off client
// addresses do not accumulate.
func (l *attemptLimiter) sweepLocked(now time.Time) {
	for key, times := range l.entries {
		keep := times[:0]
		for _, t := range times {
			if now.Sub(t) < l.window {
				keep = append(keep, t)
			}
		}
		if len(keep) == 0 {
			delete(l.entries, key)
		} else {
			l.entries[key] = keep
		}
	}
	l.lastSweep = now
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Auth

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !a.loginLimiter.allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many login attempts"))
		return
	}
	var req loginRequest
	if !a.decode(w, r, &req) {
		return
	}
	user, err := a.auth.Authenticate(r.Context(), req.Username, req.Password)
	if errors.Is(err, ErrInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, err)
		return
	}
	if err != nil {
		a.serverError(w, err)
		return
	}
	token, err := a.auth.IssueToken(user)
	if err != nil {
		a.serverError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": token, "user": user})
}

// Users

type createUserRequest struct {
	Username string `json:"username" validate:"required,min=3"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"required,oneof=admin cashier"`
}

func (a *API) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := a.auth.ListUsers(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (a *API) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !a.decode(w, r, &req) {
		return
	}
	user, err := a.auth.Register(r.Context(), req.Username, req.Password, req.Role)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

// handleChangePassword lets the authenticated user rotate their own password
// after re-proving the current one.
func (a *API) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if !a.decode(w, r, &req) {
		return
	}
	actor, _ := service.ActorFromContext(r.Context())
	err := a.auth.ChangePassword(r.Context(), actor.Username, req.CurrentPassword, req.NewPassword)
	if errors.Is(err, ErrInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, err)
		return
	}
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Catalog

type productRequest struct {
	SKU               string          `json:"sku" validate:"required"`
	Barcode           string          `json:"barcode"`
	Name              string          `json:"name" validate:"required"`
	Category          string          `json:"category"`
	SupplierID        int64           `json:"supplier_id"`
	Price             decimal.Decimal `json:"price"`
	CostPrice         decimal.Decimal `json:"cost_price"`
	StockQuantity     int             `json:"stock_quantity" validate:"gte=0"`
	LowStockThreshold int             `json:"low_stock_threshold" validate:"gte=0"`
}

func (req productRequest) toDomain() domain.Product {
	return domain.Product{
		SKU:               req.SKU,
		Barcode:           req.Barcode,
		Name:              req.Name,
		Category:          req.Category,
		SupplierID:        req.SupplierID,
		Price:             req.Price,
		CostPrice:         req.CostPrice,
		StockQuantity:     req.StockQuantity,
		LowStockThreshold: req.LowStockThreshold,
	}
}

func (a *API) handleListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	products, err := a.svc.ListProducts(r.Context(), q.Get("search"), q.Get("category"), parseLimit(q.Get("limit")))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (a *API) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if !a.decode(w, r, &req) {
		return
	}
	created, err := a.svc.CreateProduct(r.Context(), req.toDomain())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (a *API) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	p, err := a.svc.GetProduct(r.Context(), id)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) handleGetProductBySKU(w http.ResponseWriter, r *http.Request) {
	p, err := a.svc.GetProductBySKU(r.Context(), r.PathValue("sku"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req productRequest
	if !a.decode(w, r, &req) {
		return
	}
	p := req.toDomain()
	p.ID = id
	updated, err := a.svc.UpdateProduct(r.Context(), p)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (a *API) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := a.svc.DeleteProduct(r.Context(), id); err != nil {
		a.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := a.svc.ListCategories(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (a *API) handleLowStock(w http.ResponseWriter, r *http.Request) {
	products, err := a.svc.LowStockProducts(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

// Cart

func sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(r.Header.Get("X-Session-ID"))
	if id == "" {
		writeError(w, http.StatusBadRequest, errors.New("X-Session-ID header is required"))
		return "", false
	}
	return id, true
}

type cartItemRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gt=0"`
}

func (a *API) handleGetCart(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}
	c, err := a.svc.GetCart(r.Context(), sid)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (a *API) handleClearCart(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}
	if err := a.svc.ClearCart(r.Context(), sid); err != nil {
		a.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleAddCartItem(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}
	var req cartItemRequest
	if !a.decode(w, r, &req) {
		return
	}
	c, err := a.svc.AddToCart(r.Context(), sid, req.ProductID, req.Quantity)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (a *API) handleUpdateCartItem(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}
	productID, ok := pathID(w, r, "productID")
	if !ok {
		return
	}
	var req struct {
		Quantity int `json:"quantity"`
	}
	if !a.decode(w, r, &req) {
		return
	}
	c, err := a.svc.UpdateCartItem(r.Context(), sid, productID, req.Quantity)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (a *API) handleHoldCart(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}
	held, err := a.svc.HoldCart(r.Context(), sid)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, held)
}

func (a *API) handleResumeCart(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}
	var req struct {
		HoldID string `json:"hold_id" validate:"required"`
	}
	if !a.decode(w, r, &req) {
		return
	}
	c, err := a.svc.ResumeCart(r.Context(), sid, req.HoldID)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (a *API) handleListHolds(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}
	holds, err := a.svc.ListHolds(r.Context(), sid)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, holds)
}

// Checkout and sales

type checkoutRequest struct {
	PaymentMethod  string          `json:"payment_method" validate:"required"`
	CustomerID     int64           `json:"customer_id"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	CreditSale     bool            `json:"credit_sale"`
}

func (a *API) handleCheckout(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}
	var req checkoutRequest
	if !a.decode(w, r, &req) {
		return
	}
	resp, err := a.svc.Checkout(r.Context(), domain.CheckoutRequest{
		SessionID:      sid,
		PaymentMethod:  req.PaymentMethod,
		CustomerID:     req.CustomerID,
		DiscountAmount: req.DiscountAmount,
		CreditSale:     req.CreditSale,
	})
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (a *API) handleListSales(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	customerID, _ := strconv.ParseInt(q.Get("customer_id"), 10, 64)
	sales, err := a.svc.ListSales(r.Context(), store.SaleFilter{
		CustomerID: customerID,
		Limit:      parseLimit(q.Get("limit")),
	})
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sales)
}

func (a *API) handleGetSale(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	sale, err := a.svc.GetSale(r.Context(), id)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sale)
}

func (a *API) handleRefundSale(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if !a.decode(w, r, &req) {
		return
	}
	sale, err := a.svc.RefundSale(r.Context(), id, req.Reason)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sale)
}

func (a *API) handleReceipt(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	text, err := a.svc.ReceiptText(r.Context(), id)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, text)
}

// Stock adjustments

type adjustmentRequest struct {
	ProductID int64  `json:"product_id" validate:"required,gt=0"`
	Type      string `json:"type" validate:"required,oneof=damage return manual"`
	Quantity  int    `json:"quantity" validate:"required"`
	Note      string `json:"note"`
}

func (a *API) handleCreateAdjustment(w http.ResponseWriter, r *http.Request) {
	var req adjustmentRequest
	if !a.decode(w, r, &req) {
		return
	}
	created, err := a.svc.CreateAdjustment(r.Context(), domain.StockAdjustment{
		ProductID: req.ProductID,
		Type:      req.Type,
		Quantity:  req.Quantity,
		Note:      req.Note,
	})
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (a *API) handleListAdjustments(w http.ResponseWriter, r *http.Request) {
	adjustments, err := a.svc.ListAdjustments(r.Context(), parseLimit(r.URL.Query().Get("limit")))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, adjustments)
}

// Suppliers

type supplierRequest struct {
	Name          string `json:"name" validate:"required"`
	ContactPerson string `json:"contact_person"`
	Phone         string `json:"phone"`
	Email         string `json:"email" validate:"omitempty,email"`
	Address       string `json:"address"`
}

func (a *API) handleListSuppliers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	suppliers, err := a.svc.ListSuppliers(r.Context(), q.Get("search"), parseLimit(q.Get("limit")))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, suppliers)
}

func (a *API) handleCreateSupplier(w http.ResponseWriter, r *http.Request) {
	var req supplierRequest
	if !a.decode(w, r, &req) {
		return
	}
	created, err := a.svc.CreateSupplier(r.Context(), domain.Supplier{
		Name:          req.Name,
		ContactPerson: req.ContactPerson,
		Phone:         req.Phone,
		Email:         req.Email,
		Address:       req.Address,
	})
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (a *API) handleGetSupplier(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	sup, err := a.svc.GetSupplier(r.Context(), id)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sup)
}

func (a *API) handleUpdateSupplier(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req supplierRequest
	if !a.decode(w, r, &req) {
		return
	}
	updated, err := a.svc.UpdateSupplier(r.Context(), domain.Supplier{
		ID:            id,
		Name:          req.Name,
		ContactPerson: req.ContactPerson,
		Phone:         req.Phone,
		Email:         req.Email,
		Address:       req.Address,
	})
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// Purchase orders

type purchaseOrderRequest struct {
	SupplierID int64 `json:"supplier_id" validate:"required,gt=0"`
	Items      []struct {
		ProductID int64           `json:"product_id" validate:"required,gt=0"`
		Quantity  int             `json:"quantity"`
		CostPrice decimal.Decimal `json:"cost_price"`
	} `json:"items" validate:"required,min=1,dive"`
}

func (a *API) handleCreatePurchaseOrder(w http.ResponseWriter, r *http.Request) {
	var req purchaseOrderRequest
	if !a.decode(w, r, &req) {
		return
	}
	po := domain.PurchaseOrder{SupplierID: req.SupplierID}
	for _, item := range req.Items {
		po.Items = append(po.Items, domain.PurchaseItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			CostPrice: item.CostPrice,
		})
	}
	created, err := a.svc.CreatePurchaseOrder(r.Context(), po)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (a *API) handleListPurchaseOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	orders, err := a.svc.ListPurchaseOrders(r.Context(), q.Get("status"), parseLimit(q.Get("limit")))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (a *API) handleGetPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	po, err := a.svc.GetPurchaseOrder(r.Context(), id)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, po)
}

func (a *API) handleReceivePurchaseOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	po, err := a.svc.ReceivePurchaseOrder(r.Context(), id)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, po)
}

func (a *API) handleCancelPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	po, err := a.svc.CancelPurchaseOrder(r.Context(), id)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, po)
}

// Customers

type customerRequest struct {
	Name  string `json:"name" validate:"required"`
	Phone string `json:"phone"`
	Email string `json:"email" validate:"omitempty,email"`
}

func (a *API) handleSearchCustomers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	customers, err := a.svc.SearchCustomers(r.Context(), q.Get("q"), parseLimit(q.Get("limit")))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, customers)
}

func (a *API) handleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if !a.decode(w, r, &req) {
		return
	}
	created, err := a.svc.CreateCustomer(r.Context(), domain.Customer{
		Name:  req.Name,
		Phone: req.Phone,
		Email: req.Email,
	})
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (a *API) handleGetCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	c, err := a.svc.GetCustomer(r.Context(), id)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (a *API) handleUpdateCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req customerRequest
	if !a.decode(w, r, &req) {
		return
	}
	updated, err := a.svc.UpdateCustomer(r.Context(), domain.Customer{
		ID:    id,
		Name:  req.Name,
		Phone: req.Phone,
		Email: req.Email,
	})
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

type ledgerRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required"`
	Note   string          `json:"note"`
}

func (a *API) handleCreditHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	txns, err := a.svc.CreditHistory(r.Context(), id)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, txns)
}

func (a *API) handleAddCredit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req ledgerRequest
	if !a.decode(w, r, &req) {
		return
	}
	txn, err := a.svc.AddCredit(r.Context(), id, req.Amount, req.Note)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, txn)
}

func (a *API) handleRecordPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req ledgerRequest
	if !a.decode(w, r, &req) {
		return
	}
	txn, err := a.svc.RecordPayment(r.Context(), id, req.Amount, req.Note)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, txn)
}

// Reports, activity, settings

func (a *API) handleDailyReport(w http.ResponseWriter, r *http.Request) {
	day := time.Now().UTC()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, errors.New("date must be YYYY-MM-DD"))
			return
		}
		day = parsed
	}
	summary, err := a.svc.DailySummary(r.Context(), day)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (a *API) handleListActivity(w http.ResponseWriter, r *http.Request) {
	entries, err := a.svc.ListActivity(r.Context(), parseLimit(r.URL.Query().Get("limit")))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (a *API) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := a.svc.GetSettings(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

type settingsRequest struct {
	BusinessName   string          `json:"business_name" validate:"required"`
	Currency       string          `json:"currency"`
	TaxRate        decimal.Decimal `json:"tax_rate"`
	ReceiptFooter  string          `json:"receipt_footer"`
	LowStockAlerts bool            `json:"low_stock_alerts"`
}

func (a *API) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if !a.decode(w, r, &req) {
		return
	}
	updated, err := a.svc.UpdateSettings(r.Context(), domain.BusinessSettings{
		BusinessName:   req.BusinessName,
		Currency:       req.Currency,
		TaxRate:        req.TaxRate,
		ReceiptFooter:  req.ReceiptFooter,
		LowStockAlerts: req.LowStockAlerts,
	})
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// Helpers

func (a *API) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	if err := a.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("validation failed: %w", err))
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid %s", name))
		return 0, false
	}
	return id, true
}

func parseLimit(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0
	}
	if n > 500 {
		return 500
	}
	return n
}

// writeServiceError maps business errors to status codes and hides internal
// failures behind a generic message.
func (a *API) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, cart.ErrHoldNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, store.ErrInsufficientStock),
		errors.Is(err, store.ErrInvalidState),
		errors.Is(err, store.ErrDuplicate),
		errors.Is(err, store.ErrExceedsBalance):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, store.ErrInvalidAmount),
		errors.Is(err, store.ErrEmptyOrder),
		errors.Is(err, cart.ErrEmptyCart),
		errors.Is(err, service.ErrPaymentMethodRequired),
		errors.Is(err, service.ErrUnsupportedPayment),
		errors.Is(err, service.ErrCustomerRequired),
		errors.Is(err, service.ErrValidation):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, service.ErrActorRequired):
		writeError(w, http.StatusUnauthorized, err)
	case errors.Is(err, service.ErrAdminRequired):
		writeError(w, http.StatusForbidden, err)
	default:
		a.serverError(w, err)
	}
}

func (a *API) serverError(w http.ResponseWriter, err error) {
	a.log.WithError(err).Error("request failed")
	writeError(w, http.StatusInternalServerError, errors.New("internal error"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
