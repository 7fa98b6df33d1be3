// Package service implements the business rules on top of the Repository and
// the cart arena: checkout, refunds, stock adjustments, purchase orders and
// the customer credit ledger.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"kudipos/backend/internal/cart"
	"kudipos/backend/internal/domain"
	"kudipos/backend/internal/report"
	"kudipos/backend/internal/store"
)

var (
	// ErrPaymentMethodRequired is returned when checkout is attempted
	// without a payment method.
	ErrPaymentMethodRequired = errors.New("payment method is required")
	// ErrUnsupportedPayment is returned for unknown payment methods.
	ErrUnsupportedPayment = errors.New("unsupported payment method")
	// ErrAdminRequired is returned when a cashier calls an admin-only
	// operation.
	ErrAdminRequired = errors.New("admin role required")
	// ErrCustomerRequired is returned for a credit sale without a
	// customer.
	ErrCustomerRequired = errors.New("credit sale requires a customer")
	// ErrValidation wraps malformed-input failures.
	ErrValidation = errors.New("validation failed")
	// ErrActorRequired is returned when an operation needs an
	// authenticated actor and none is attached to the context.
	ErrActorRequired = errors.New("authenticated cashier required")
)

// Actor identifies the authenticated user a request runs as.
type Actor struct {
	ID       int64
	Username string
	Role     string
}

type actorContextKey struct{}

// WithActor attaches the authenticated actor to the context.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext returns the actor attached by WithActor.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}

type Service struct {
	repo    store.Repository
	carts   cart.Arena
	reports report.Cache
	log     *logrus.Logger
}

func New(repo store.Repository, carts cart.Arena, reports report.Cache, log *logrus.Logger) *Service {
	if reports == nil {
		reports = report.NoopCache{}
	}
	if log == nil {
		log = logrus.New()
	}
	return &Service{repo: repo, carts: carts, reports: reports, log: log}
}

func (s *Service) requireAdmin(ctx context.Context) (Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return Actor{}, ErrAdminRequired
	}
	return actor, nil
}

func (s *Service) actor(ctx context.Context) Actor {
	actor, _ := ActorFromContext(ctx)
	return actor
}

// logActivity appends an audit row. Audit failures never fail the operation
// that triggered them.
func (s *Service) logActivity(ctx context.Context, format string, args ...any) {
	actor := s.actor(ctx)
	action := fmt.Sprintf(format, args...)
	if err := s.repo.AppendActivity(ctx, actor.ID, action); err != nil {
		s.log.WithError(err).Warn("activity log append failed")
	}
	s.log.WithFields(logrus.Fields{"actor": actor.Username, "action": action}).Info("activity")
}

// Catalog

func (s *Service) CreateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return domain.Product{}, err
	}
	if strings.TrimSpace(p.SKU) == "" || strings.TrimSpace(p.Name) == "" {
		return domain.Product{}, fmt.Errorf("%w: product name and sku are required", ErrValidation)
	}
	if p.Price.IsNegative() || p.CostPrice.IsNegative() {
		return domain.Product{}, fmt.Errorf("%w: price must not be negative", ErrValidation)
	}
	created, err := s.repo.CreateProduct(ctx, p)
	if err != nil {
		return domain.Product{}, err
	}
	s.logActivity(ctx, "Created product: %s (SKU: %s)", created.Name, created.SKU)
	return created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return domain.Product{}, err
	}
	if strings.TrimSpace(p.SKU) == "" || strings.TrimSpace(p.Name) == "" {
		return domain.Product{}, fmt.Errorf("%w: product name and sku are required", ErrValidation)
	}
	updated, err := s.repo.UpdateProduct(ctx, p)
	if err != nil {
		return domain.Product{}, err
	}
	s.logActivity(ctx, "Updated product: %s (SKU: %s)", updated.Name, updated.SKU)
	return updated, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	if _, err := s.requireAdmin(ctx); err != nil {
		return err
	}
	p, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.logActivity(ctx, "Deleted product: %s (SKU: %s)", p.Name, p.SKU)
	return nil
}

func (s *Service) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	return s.repo.GetProduct(ctx, id)
}

// GetProductBySKU is the exact-match lookup used at the till for scanned or
// typed codes.
func (s *Service) GetProductBySKU(ctx context.Context, sku string) (domain.Product, error) {
	return s.repo.GetProductBySKU(ctx, sku)
}

func (s *Service) ListProducts(ctx context.Context, search, category string, limit int) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx, search, category, limit)
}

func (s *Service) ListCategories(ctx context.Context) ([]string, error) {
	return s.repo.ListCategories(ctx)
}

func (s *Service) LowStockProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.LowStockProducts(ctx)
}

// Suppliers

func (s *Service) CreateSupplier(ctx context.Context, sup domain.Supplier) (domain.Supplier, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return domain.Supplier{}, err
	}
	if strings.TrimSpace(sup.Name) == "" {
		return domain.Supplier{}, fmt.Errorf("%w: supplier name is required", ErrValidation)
	}
	created, err := s.repo.CreateSupplier(ctx, sup)
	if err != nil {
		return domain.Supplier{}, err
	}
	s.logActivity(ctx, "Created supplier: %s", created.Name)
	return created, nil
}

func (s *Service) UpdateSupplier(ctx context.Context, sup domain.Supplier) (domain.Supplier, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return domain.Supplier{}, err
	}
	updated, err := s.repo.UpdateSupplier(ctx, sup)
	if err != nil {
		return domain.Supplier{}, err
	}
	s.logActivity(ctx, "Updated supplier: %s", updated.Name)
	return updated, nil
}

func (s *Service) GetSupplier(ctx context.Context, id int64) (domain.Supplier, error) {
	return s.repo.GetSupplier(ctx, id)
}

func (s *Service) ListSuppliers(ctx context.Context, search string, limit int) ([]domain.Supplier, error) {
	return s.repo.ListSuppliers(ctx, search, limit)
}

// Cart session

// AddToCart merges qty into the session cart line for the product, checking
// requested quantity against live stock.
func (s *Service) AddToCart(ctx context.Context, sessionID string, productID int64, qty int) (domain.Cart, error) {
	if qty <= 0 {
		return domain.Cart{}, fmt.Errorf("%w: quantity must be positive", ErrValidation)
	}
	p, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return domain.Cart{}, err
	}
	c, err := s.carts.Get(ctx, sessionID)
	if err != nil {
		return domain.Cart{}, err
	}

	idx := cartLineIndex(c, productID)
	requested := qty
	if idx >= 0 {
		requested += c.Items[idx].Quantity
	}
	if requested > p.StockQuantity {
		return domain.Cart{}, fmt.Errorf("%s: %w", p.Name, store.ErrInsufficientStock)
	}

	line := domain.CartItem{
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Quantity:  requested,
		Total:     p.Price.Mul(decimal.NewFromInt(int64(requested))),
	}
	if idx >= 0 {
		c.Items[idx] = line
	} else {
		c.Items = append(c.Items, line)
	}
	if err := s.carts.Save(ctx, c); err != nil {
		return domain.Cart{}, err
	}
	return c, nil
}

// UpdateCartItem sets the quantity of an existing line; qty <= 0 removes it.
func (s *Service) UpdateCartItem(ctx context.Context, sessionID string, productID int64, qty int) (domain.Cart, error) {
	c, err := s.carts.Get(ctx, sessionID)
	if err != nil {
		return domain.Cart{}, err
	}
	idx := cartLineIndex(c, productID)
	if idx < 0 {
		return domain.Cart{}, store.ErrNotFound
	}
	if qty <= 0 {
		c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
	} else {
		p, err := s.repo.GetProduct(ctx, productID)
		if err != nil {
			return domain.Cart{}, err
		}
		if qty > p.StockQuantity {
			return domain.Cart{}, fmt.Errorf("%s: %w", p.Name, store.ErrInsufficientStock)
		}
		c.Items[idx].Quantity = qty
		c.Items[idx].Price = p.Price
		c.Items[idx].Total = p.Price.Mul(decimal.NewFromInt(int64(qty)))
	}
	if err := s.carts.Save(ctx, c); err != nil {
		return domain.Cart{}, err
	}
	return c, nil
}

func (s *Service) GetCart(ctx context.Context, sessionID string) (domain.Cart, error) {
	return s.carts.Get(ctx, sessionID)
}

func (s *Service) ClearCart(ctx context.Context, sessionID string) error {
	return s.carts.Clear(ctx, sessionID)
}

func (s *Service) HoldCart(ctx context.Context, sessionID string) (domain.HeldCart, error) {
	held, err := s.carts.Hold(ctx, sessionID)
	if err != nil {
		return domain.HeldCart{}, err
	}
	s.logActivity(ctx, "Held cart %s (%d items)", held.HoldID, len(held.Cart.Items))
	return held, nil
}

func (s *Service) ResumeCart(ctx context.Context, sessionID, holdID string) (domain.Cart, error) {
	c, err := s.carts.Resume(ctx, sessionID, holdID)
	if err != nil {
		return domain.Cart{}, err
	}
	s.logActivity(ctx, "Resumed held cart %s", holdID)
	return c, nil
}

func (s *Service) ListHolds(ctx context.Context, sessionID string) ([]domain.HeldCart, error) {
	return s.carts.ListHolds(ctx, sessionID)
}

func cartLineIndex(c domain.Cart, productID int64) int {
	for i, item := range c.Items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}

// Checkout

// Checkout turns the session cart into a completed sale. Prices and stock are
// re-read from the catalog; the sale, its items, the receipt, the stock
// decrement and any credit posting commit as one unit in the store. The cart
// is cleared only after the sale commits.
func (s *Service) Checkout(ctx context.Context, req domain.CheckoutRequest) (domain.CheckoutResponse, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.CheckoutResponse{}, ErrActorRequired
	}
	switch req.PaymentMethod {
	case "":
		return domain.CheckoutResponse{}, ErrPaymentMethodRequired
	case domain.PaymentCash, domain.PaymentCard, domain.PaymentMobileMoney, domain.PaymentSplit:
	default:
		return domain.CheckoutResponse{}, fmt.Errorf("%w: %s", ErrUnsupportedPayment, req.PaymentMethod)
	}
	if req.CreditSale && req.CustomerID == 0 {
		return domain.CheckoutResponse{}, ErrCustomerRequired
	}

	c, err := s.carts.Get(ctx, req.SessionID)
	if err != nil {
		return domain.CheckoutResponse{}, err
	}
	if len(c.Items) == 0 {
		return domain.CheckoutResponse{}, cart.ErrEmptyCart
	}

	// Recompute every line from the catalog; the session snapshot is
	// display-only.
	items := make([]domain.SaleItem, 0, len(c.Items))
	subtotal := decimal.Zero
	for _, line := range c.Items {
		p, err := s.repo.GetProduct(ctx, line.ProductID)
		if err != nil {
			return domain.CheckoutResponse{}, fmt.Errorf("product %d: %w", line.ProductID, err)
		}
		total := p.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		items = append(items, domain.SaleItem{
			ProductID:  p.ID,
			Name:       p.Name,
			Quantity:   line.Quantity,
			UnitPrice:  p.Price,
			TotalPrice: total,
		})
		subtotal = subtotal.Add(total)
	}

	discount := req.DiscountAmount
	note := ""
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	if discount.GreaterThan(subtotal) {
		discount = subtotal
		note = "discount capped at subtotal"
	}

	sale := domain.Sale{
		CashierID:      actor.ID,
		CustomerID:     req.CustomerID,
		TotalAmount:    subtotal.Sub(discount),
		DiscountAmount: discount,
		PaymentMethod:  req.PaymentMethod,
		Items:          items,
	}
	created, err := s.repo.CreateSale(ctx, sale, req.CreditSale)
	if err != nil {
		return domain.CheckoutResponse{}, err
	}

	if err := s.carts.Clear(ctx, req.SessionID); err != nil {
		// The sale is committed; a stale cart is recoverable, a lost
		// sale is not.
		s.log.WithError(err).WithField("session", req.SessionID).Warn("cart clear failed after checkout")
	}
	s.logActivity(ctx, "Completed sale %s for %s", created.ReceiptNumber, created.TotalAmount.StringFixed(2))

	return domain.CheckoutResponse{
		Sale:          created,
		ReceiptNumber: created.ReceiptNumber,
		Note:          note,
	}, nil
}

// Refunds

func (s *Service) RefundSale(ctx context.Context, saleID int64, reason string) (domain.Sale, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return domain.Sale{}, err
	}
	refunded, err := s.repo.RefundSale(ctx, saleID, reason)
	if err != nil {
		return domain.Sale{}, err
	}
	s.logActivity(ctx, "Refunded sale %s: %s", refunded.ReceiptNumber, reason)
	return refunded, nil
}

func (s *Service) GetSale(ctx context.Context, id int64) (domain.Sale, error) {
	return s.repo.GetSale(ctx, id)
}

func (s *Service) ListSales(ctx context.Context, filter store.SaleFilter) ([]domain.Sale, error) {
	return s.repo.ListSales(ctx, filter)
}

// ReceiptText renders the plain-text receipt handed to the printer.
func (s *Service) ReceiptText(ctx context.Context, saleID int64) (string, error) {
	sale, err := s.repo.GetSale(ctx, saleID)
	if err != nil {
		return "", err
	}
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return "", err
	}
	return buildReceiptText(sale, settings), nil
}

func buildReceiptText(sale domain.Sale, settings domain.BusinessSettings) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", settings.BusinessName)
	fmt.Fprintf(&b, "Receipt %s\n", sale.ReceiptNumber)
	fmt.Fprintf(&b, "%s\n", sale.CreatedAt.Format("2006-01-02 15:04"))
	b.WriteString(strings.Repeat("-", 32) + "\n")
	for _, item := range sale.Items {
		fmt.Fprintf(&b, "%-20.20s %2dx %8s\n", item.Name, item.Quantity, item.UnitPrice.StringFixed(2))
		fmt.Fprintf(&b, "%24s %8s\n", "", item.TotalPrice.StringFixed(2))
	}
	b.WriteString(strings.Repeat("-", 32) + "\n")
	if sale.DiscountAmount.IsPositive() {
		fmt.Fprintf(&b, "Discount %24s\n", sale.DiscountAmount.Neg().StringFixed(2))
	}
	fmt.Fprintf(&b, "TOTAL %3s %23s\n", settings.Currency, sale.TotalAmount.StringFixed(2))
	fmt.Fprintf(&b, "Paid by %s\n", sale.PaymentMethod)
	if sale.Status == domain.SaleStatusRefunded {
		b.WriteString("*** REFUNDED ***\n")
	}
	if settings.ReceiptFooter != "" {
		fmt.Fprintf(&b, "%s\n", settings.ReceiptFooter)
	}
	return b.String()
}

// Stock adjustments

func (s *Service) CreateAdjustment(ctx context.Context, adj domain.StockAdjustment) (domain.StockAdjustment, error) {
	actor, err := s.requireAdmin(ctx)
	if err != nil {
		return domain.StockAdjustment{}, err
	}
	adj.CreatedBy = actor.ID
	created, err := s.repo.CreateAdjustment(ctx, adj)
	if err != nil {
		return domain.StockAdjustment{}, err
	}
	s.logActivity(ctx, "Stock adjustment for product %d: %s %d units", created.ProductID, created.Type, created.Quantity)
	return created, nil
}

func (s *Service) ListAdjustments(ctx context.Context, limit int) ([]domain.StockAdjustment, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.repo.ListAdjustments(ctx, limit)
}

// Purchase orders

func (s *Service) CreatePurchaseOrder(ctx context.Context, po domain.PurchaseOrder) (domain.PurchaseOrder, error) {
	actor, err := s.requireAdmin(ctx)
	if err != nil {
		return domain.PurchaseOrder{}, err
	}
	po.CreatedBy = actor.ID
	created, err := s.repo.CreatePurchaseOrder(ctx, po)
	if err != nil {
		return domain.PurchaseOrder{}, err
	}
	s.logActivity(ctx, "Created purchase order #%d for %s", created.ID, created.TotalCost.StringFixed(2))
	return created, nil
}

func (s *Service) ReceivePurchaseOrder(ctx context.Context, id int64) (domain.PurchaseOrder, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return domain.PurchaseOrder{}, err
	}
	po, err := s.repo.ReceivePurchaseOrder(ctx, id)
	if err != nil {
		return domain.PurchaseOrder{}, err
	}
	s.logActivity(ctx, "Received purchase order #%d", po.ID)
	return po, nil
}

func (s *Service) CancelPurchaseOrder(ctx context.Context, id int64) (domain.PurchaseOrder, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return domain.PurchaseOrder{}, err
	}
	po, err := s.repo.CancelPurchaseOrder(ctx, id)
	if err != nil {
		return domain.PurchaseOrder{}, err
	}
	s.logActivity(ctx, "Cancelled purchase order #%d", po.ID)
	return po, nil
}

func (s *Service) GetPurchaseOrder(ctx context.Context, id int64) (domain.PurchaseOrder, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return domain.PurchaseOrder{}, err
	}
	return s.repo.GetPurchaseOrder(ctx, id)
}

func (s *Service) ListPurchaseOrders(ctx context.Context, status string, limit int) ([]domain.PurchaseOrder, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.repo.ListPurchaseOrders(ctx, status, limit)
}

// Customers and credit ledger

func (s *Service) CreateCustomer(ctx context.Context, c domain.Customer) (domain.Customer, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return domain.Customer{}, err
	}
	if strings.TrimSpace(c.Name) == "" {
		return domain.Customer{}, fmt.Errorf("%w: customer name is required", ErrValidation)
	}
	created, err := s.repo.CreateCustomer(ctx, c)
	if err != nil {
		return domain.Customer{}, err
	}
	s.logActivity(ctx, "Created customer: %s", created.Name)
	return created, nil
}

func (s *Service) UpdateCustomer(ctx context.Context, c domain.Customer) (domain.Customer, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return domain.Customer{}, err
	}
	updated, err := s.repo.UpdateCustomer(ctx, c)
	if err != nil {
		return domain.Customer{}, err
	}
	s.logActivity(ctx, "Updated customer: %s", updated.Name)
	return updated, nil
}

func (s *Service) GetCustomer(ctx context.Context, id int64) (domain.Customer, error) {
	return s.repo.GetCustomer(ctx, id)
}

func (s *Service) SearchCustomers(ctx context.Context, query string, limit int) ([]domain.Customer, error) {
	return s.repo.SearchCustomers(ctx, query, limit)
}

func (s *Service) AddCredit(ctx context.Context, customerID int64, amount decimal.Decimal, note string) (domain.CreditTransaction, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return domain.CreditTransaction{}, err
	}
	txn, err := s.repo.AddCredit(ctx, customerID, amount, note)
	if err != nil {
		return domain.CreditTransaction{}, err
	}
	s.logActivity(ctx, "Added credit for customer %d: %s", customerID, amount.StringFixed(2))
	return txn, nil
}

func (s *Service) RecordPayment(ctx context.Context, customerID int64, amount decimal.Decimal, note string) (domain.CreditTransaction, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return domain.CreditTransaction{}, err
	}
	txn, err := s.repo.RecordPayment(ctx, customerID, amount, note)
	if err != nil {
		return domain.CreditTransaction{}, err
	}
	s.logActivity(ctx, "Recorded payment for customer %d: %s", customerID, amount.StringFixed(2))
	return txn, nil
}

func (s *Service) CreditHistory(ctx context.Context, customerID int64) ([]domain.CreditTransaction, error) {
	if _, err := s.repo.GetCustomer(ctx, customerID); err != nil {
		return nil, err
	}
	return s.repo.ListCreditTransactions(ctx, customerID)
}

// Reporting and settings

func (s *Service) DailySummary(ctx context.Context, day time.Time) (domain.DailySummary, error) {
	key := day.UTC().Format("2006-01-02")
	if cached, ok, err := s.reports.Get(ctx, key); err == nil && ok {
		return cached, nil
	} else if err != nil {
		s.log.WithError(err).Warn("report cache get failed")
	}
	summary, err := s.repo.DailySummary(ctx, day)
	if err != nil {
		return domain.DailySummary{}, err
	}
	if err := s.reports.Set(ctx, key, summary); err != nil {
		s.log.WithError(err).Warn("report cache set failed")
	}
	return summary, nil
}

func (s *Service) ListActivity(ctx context.Context, limit int) ([]domain.ActivityLog, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.repo.ListActivity(ctx, limit)
}

func (s *Service) GetSettings(ctx context.Context) (domain.BusinessSettings, error) {
	return s.repo.GetSettings(ctx)
}

func (s *Service) UpdateSettings(ctx context.Context, settings domain.BusinessSettings) (domain.BusinessSettings, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return domain.BusinessSettings{}, err
	}
	updated, err := s.repo.UpdateSettings(ctx, settings)
	if err != nil {
		return domain.BusinessSettings{}, err
	}
	s.logActivity(ctx, "Updated business settings")
	return updated, nil
}
