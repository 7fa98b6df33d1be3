// Package memory provides an in-memory Repository used by tests and by the
// server when no database is configured.
package memory

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"kudipos/backend/internal/domain"
	"kudipos/backend/internal/store"
)

type Store struct {
	mu sync.RWMutex

	products       map[int64]domain.Product
	suppliers      map[int64]domain.Supplier
	customers      map[int64]domain.Customer
	sales          map[int64]domain.Sale
	purchaseOrders map[int64]domain.PurchaseOrder
	adjustments    []domain.StockAdjustment
	creditTxns     []domain.CreditTransaction
	users          map[int64]domain.UserAccount
	activity       []domain.ActivityLog
	settings       domain.BusinessSettings

	nextProductID  int64
	nextSupplierID int64
	nextCustomerID int64
	nextSaleID     int64
	nextOrderID    int64
	nextAdjID      int64
	nextCreditID   int64
	nextUserID     int64
	nextActivityID int64
}

func New() *Store {
	return &Store{
		products:       map[int64]domain.Product{},
		suppliers:      map[int64]domain.Supplier{},
		customers:      map[int64]domain.Customer{},
		sales:          map[int64]domain.Sale{},
		purchaseOrders: map[int64]domain.PurchaseOrder{},
		users:          map[int64]domain.UserAccount{},
		settings: domain.BusinessSettings{
			BusinessName:   "Kudi POS",
			Currency:       "GHS",
			TaxRate:        decimal.NewFromFloat(5.0),
			LowStockAlerts: true,
		},
	}
}

// NewSeeded returns a store preloaded with demo catalog data and the
// bootstrap users. Seed passwords come from SEED_ADMIN_PASSWORD and
// SEED_CASHIER_PASSWORD; accounts without a password are skipped.
func NewSeeded() *Store {
	s := New()
	ctx := context.Background()

	sup, _ := s.CreateSupplier(ctx, domain.Supplier{Name: "Accra Wholesale", ContactPerson: "K. Mensah", Phone: "+233200000001"})
	seed := []domain.Product{
		{SKU: "BEV-001", Barcode: "6001001", Name: "Bottled Water 500ml", Category: "beverage", SupplierID: sup.ID, Price: decimal.NewFromFloat(2.50), CostPrice: decimal.NewFromFloat(1.20), StockQuantity: 120, LowStockThreshold: 20},
		{SKU: "BEV-002", Barcode: "6001002", Name: "Cola 330ml", Category: "beverage", SupplierID: sup.ID, Price: decimal.NewFromFloat(5.00), CostPrice: decimal.NewFromFloat(3.10), StockQuantity: 80, LowStockThreshold: 15},
		{SKU: "GRO-001", Barcode: "6002001", Name: "Rice 5kg", Category: "grocery", SupplierID: sup.ID, Price: decimal.NewFromFloat(85.00), CostPrice: decimal.NewFromFloat(62.00), StockQuantity: 30, LowStockThreshold: 5},
		{SKU: "GRO-002", Name: "Cooking Oil 1L", Category: "grocery", Price: decimal.NewFromFloat(32.00), CostPrice: decimal.NewFromFloat(24.50), StockQuantity: 25, LowStockThreshold: 5},
	}
	for _, p := range seed {
		if _, err := s.CreateProduct(ctx, p); err != nil {
			panic(err)
		}
	}

	seedUser := func(username, role, envKey string) {
		password := os.Getenv(envKey)
		if password == "" {
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			panic(err)
		}
		if _, err := s.CreateUser(ctx, domain.UserAccount{Username: username, PasswordHash: string(hash), Role: role}); err != nil {
			panic(err)
		}
	}
	seedUser("admin", domain.RoleAdmin, "SEED_ADMIN_PASSWORD")
	seedUser("cashier", domain.RoleCashier, "SEED_CASHIER_PASSWORD")
	return s
}

var _ store.Repository = (*Store)(nil)

// Catalog

func (s *Store) CreateProduct(_ context.Context, p domain.Product) (domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(p.SKU) == "" || strings.TrimSpace(p.Name) == "" {
		return domain.Product{}, store.ErrInvalidAmount
	}
	if p.StockQuantity < 0 {
		return domain.Product{}, store.ErrInsufficientStock
	}
	for _, existing := range s.products {
		if existing.SKU == p.SKU {
			return domain.Product{}, store.ErrDuplicate
		}
		if p.Barcode != "" && existing.Barcode == p.Barcode {
			return domain.Product{}, store.ErrDuplicate
		}
	}
	if p.SupplierID != 0 {
		if _, ok := s.suppliers[p.SupplierID]; !ok {
			return domain.Product{}, store.ErrNotFound
		}
	}
	if p.LowStockThreshold == 0 {
		p.LowStockThreshold = 5
	}
	s.nextProductID++
	p.ID = s.nextProductID
	p.CreatedAt = time.Now().UTC()
	s.products[p.ID] = p
	return p, nil
}

func (s *Store) UpdateProduct(_ context.Context, p domain.Product) (domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.products[p.ID]
	if !ok {
		return domain.Product{}, store.ErrNotFound
	}
	for id, existing := range s.products {
		if id == p.ID {
			continue
		}
		if existing.SKU == p.SKU {
			return domain.Product{}, store.ErrDuplicate
		}
		if p.Barcode != "" && existing.Barcode == p.Barcode {
			return domain.Product{}, store.ErrDuplicate
		}
	}
	if p.SupplierID != 0 {
		if _, ok := s.suppliers[p.SupplierID]; !ok {
			return domain.Product{}, store.ErrNotFound
		}
	}
	// Stock is only mutated through sales, adjustments, refunds and
	// purchase receipts.
	p.StockQuantity = current.StockQuantity
	p.CreatedAt = current.CreatedAt
	if p.LowStockThreshold == 0 {
		p.LowStockThreshold = 5
	}
	s.products[p.ID] = p
	return p, nil
}

func (s *Store) DeleteProduct(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return store.ErrNotFound
	}
	for _, sale := range s.sales {
		for _, item := range sale.Items {
			if item.ProductID == id {
				return store.ErrInvalidState
			}
		}
	}
	delete(s.products, id)
	return nil
}

func (s *Store) GetProduct(_ context.Context, id int64) (domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return domain.Product{}, store.ErrNotFound
	}
	return p, nil
}

func (s *Store) GetProductBySKU(_ context.Context, sku string) (domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.products {
		if p.SKU == sku {
			return p, nil
		}
	}
	return domain.Product{}, store.ErrNotFound
}

func (s *Store) ListProducts(_ context.Context, search, category string, limit int) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(strings.TrimSpace(search))
	out := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if category != "" && p.Category != category {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(p.Name), needle) &&
			!strings.Contains(strings.ToLower(p.SKU), needle) &&
			!strings.Contains(strings.ToLower(p.Barcode), needle) {
			continue
		}
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b domain.Product) int {
		return strings.Compare(a.Name, b.Name)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) ListCategories(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := map[string]struct{}{}
	var out []string
	for _, p := range s.products {
		if p.Category == "" {
			continue
		}
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		out = append(out, p.Category)
	}
	slices.Sort(out)
	return out, nil
}

func (s *Store) LowStockProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Product
	for _, p := range s.products {
		if p.LowStock() {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b domain.Product) int {
		if a.StockQuantity != b.StockQuantity {
			return a.StockQuantity - b.StockQuantity
		}
		return strings.Compare(a.Name, b.Name)
	})
	return out, nil
}

// Suppliers

func (s *Store) CreateSupplier(_ context.Context, sup domain.Supplier) (domain.Supplier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(sup.Name) == "" {
		return domain.Supplier{}, store.ErrInvalidAmount
	}
	s.nextSupplierID++
	sup.ID = s.nextSupplierID
	sup.CreatedAt = time.Now().UTC()
	s.suppliers[sup.ID] = sup
	return sup, nil
}

func (s *Store) UpdateSupplier(_ context.Context, sup domain.Supplier) (domain.Supplier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.suppliers[sup.ID]
	if !ok {
		return domain.Supplier{}, store.ErrNotFound
	}
	sup.CreatedAt = current.CreatedAt
	s.suppliers[sup.ID] = sup
	return sup, nil
}

func (s *Store) GetSupplier(_ context.Context, id int64) (domain.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sup, ok := s.suppliers[id]
	if !ok {
		return domain.Supplier{}, store.ErrNotFound
	}
	return sup, nil
}

func (s *Store) ListSuppliers(_ context.Context, search string, limit int) ([]domain.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(strings.TrimSpace(search))
	out := make([]domain.Supplier, 0, len(s.suppliers))
	for _, sup := range s.suppliers {
		if needle != "" &&
			!strings.Contains(strings.ToLower(sup.Name), needle) &&
			!strings.Contains(strings.ToLower(sup.ContactPerson), needle) &&
			!strings.Contains(sup.Phone, needle) {
			continue
		}
		out = append(out, sup)
	}
	slices.SortFunc(out, func(a, b domain.Supplier) int {
		return strings.Compare(a.Name, b.Name)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Sales

func (s *Store) CreateSale(_ context.Context, sale domain.Sale, creditSale bool) (domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(sale.Items) == 0 {
		return domain.Sale{}, store.ErrInvalidState
	}

	// Validate everything before touching any state so a failure leaves
	// stock and the ledger untouched.
	for _, item := range sale.Items {
		p, ok := s.products[item.ProductID]
		if !ok {
			return domain.Sale{}, store.ErrNotFound
		}
		if item.Quantity <= 0 {
			return domain.Sale{}, store.ErrInvalidAmount
		}
		if p.StockQuantity < item.Quantity {
			return domain.Sale{}, fmt.Errorf("%s: %w", p.Name, store.ErrInsufficientStock)
		}
	}
	if creditSale {
		if sale.CustomerID == 0 {
			return domain.Sale{}, store.ErrNotFound
		}
		if _, ok := s.customers[sale.CustomerID]; !ok {
			return domain.Sale{}, store.ErrNotFound
		}
	}

	for _, item := range sale.Items {
		p := s.products[item.ProductID]
		p.StockQuantity -= item.Quantity
		s.products[item.ProductID] = p
	}

	s.nextSaleID++
	sale.ID = s.nextSaleID
	sale.Status = domain.SaleStatusCompleted
	sale.ReceiptNumber = domain.ReceiptNumber(sale.ID)
	sale.CreatedAt = time.Now().UTC()
	sale.Items = slices.Clone(sale.Items)
	s.sales[sale.ID] = sale

	if creditSale {
		c := s.customers[sale.CustomerID]
		c.CreditBalance = c.CreditBalance.Add(sale.TotalAmount)
		s.customers[sale.CustomerID] = c
		s.nextCreditID++
		s.creditTxns = append(s.creditTxns, domain.CreditTransaction{
			ID:         s.nextCreditID,
			CustomerID: sale.CustomerID,
			Type:       domain.CreditTypeCredit,
			Amount:     sale.TotalAmount,
			SaleID:     sale.ID,
			Note:       "credit sale " + sale.ReceiptNumber,
			CreatedAt:  sale.CreatedAt,
		})
	}
	return cloneSale(sale), nil
}

func (s *Store) RefundSale(_ context.Context, saleID int64, reason string) (domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sale, ok := s.sales[saleID]
	if !ok {
		return domain.Sale{}, store.ErrNotFound
	}
	if sale.Status != domain.SaleStatusCompleted {
		return domain.Sale{}, store.ErrInvalidState
	}
	for _, item := range sale.Items {
		if p, ok := s.products[item.ProductID]; ok {
			p.StockQuantity += item.Quantity
			s.products[item.ProductID] = p
		}
	}
	sale.Status = domain.SaleStatusRefunded
	sale.RefundReason = reason
	s.sales[saleID] = sale
	return cloneSale(sale), nil
}

func (s *Store) GetSale(_ context.Context, id int64) (domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sale, ok := s.sales[id]
	if !ok {
		return domain.Sale{}, store.ErrNotFound
	}
	return cloneSale(sale), nil
}

func (s *Store) ListSales(_ context.Context, filter store.SaleFilter) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Sale, 0, len(s.sales))
	for _, sale := range s.sales {
		if filter.CustomerID != 0 && sale.CustomerID != filter.CustomerID {
			continue
		}
		out = append(out, cloneSale(sale))
	}
	slices.SortFunc(out, func(a, b domain.Sale) int {
		return int(b.ID - a.ID)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// Stock adjustments

func (s *Store) CreateAdjustment(_ context.Context, adj domain.StockAdjustment) (domain.StockAdjustment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[adj.ProductID]
	if !ok {
		return domain.StockAdjustment{}, store.ErrNotFound
	}
	delta, err := adjustmentDelta(adj.Type, adj.Quantity)
	if err != nil {
		return domain.StockAdjustment{}, err
	}
	if p.StockQuantity+delta < 0 {
		return domain.StockAdjustment{}, store.ErrInsufficientStock
	}
	p.StockQuantity += delta
	s.products[adj.ProductID] = p

	s.nextAdjID++
	adj.ID = s.nextAdjID
	adj.CreatedAt = time.Now().UTC()
	s.adjustments = append(s.adjustments, adj)
	return adj, nil
}

func adjustmentDelta(adjType string, qty int) (int, error) {
	switch adjType {
	case domain.AdjustmentDamage:
		if qty <= 0 {
			return 0, store.ErrInvalidAmount
		}
		return -qty, nil
	case domain.AdjustmentReturn:
		if qty <= 0 {
			return 0, store.ErrInvalidAmount
		}
		return qty, nil
	case domain.AdjustmentManual:
		if qty == 0 {
			return 0, store.ErrInvalidAmount
		}
		return qty, nil
	default:
		return 0, store.ErrInvalidState
	}
}

func (s *Store) ListAdjustments(_ context.Context, limit int) ([]domain.StockAdjustment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := slices.Clone(s.adjustments)
	slices.Reverse(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Purchase orders

func (s *Store) CreatePurchaseOrder(_ context.Context, po domain.PurchaseOrder) (domain.PurchaseOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.suppliers[po.SupplierID]; !ok {
		return domain.PurchaseOrder{}, store.ErrNotFound
	}
	// Triples with non-positive quantity or cost are dropped, not
	// rejected.
	valid := make([]domain.PurchaseItem, 0, len(po.Items))
	total := decimal.Zero
	for _, item := range po.Items {
		if item.Quantity <= 0 || !item.CostPrice.IsPositive() {
			continue
		}
		if _, ok := s.products[item.ProductID]; !ok {
			return domain.PurchaseOrder{}, store.ErrNotFound
		}
		item.Subtotal = item.CostPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		valid = append(valid, item)
		total = total.Add(item.Subtotal)
	}
	if len(valid) == 0 {
		return domain.PurchaseOrder{}, store.ErrEmptyOrder
	}

	s.nextOrderID++
	po.ID = s.nextOrderID
	po.Status = domain.PurchaseOrderPending
	po.Items = valid
	po.TotalCost = total
	po.OrderDate = time.Now().UTC()
	po.ReceivedDate = nil
	s.purchaseOrders[po.ID] = po
	return clonePurchaseOrder(po), nil
}

func (s *Store) GetPurchaseOrder(_ context.Context, id int64) (domain.PurchaseOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	po, ok := s.purchaseOrders[id]
	if !ok {
		return domain.PurchaseOrder{}, store.ErrNotFound
	}
	return clonePurchaseOrder(po), nil
}

func (s *Store) ListPurchaseOrders(_ context.Context, status string, limit int) ([]domain.PurchaseOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.PurchaseOrder, 0, len(s.purchaseOrders))
	for _, po := range s.purchaseOrders {
		if status != "" && po.Status != status {
			continue
		}
		out = append(out, clonePurchaseOrder(po))
	}
	slices.SortFunc(out, func(a, b domain.PurchaseOrder) int {
		return int(b.ID - a.ID)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) ReceivePurchaseOrder(_ context.Context, id int64) (domain.PurchaseOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	po, ok := s.purchaseOrders[id]
	if !ok {
		return domain.PurchaseOrder{}, store.ErrNotFound
	}
	if po.Status != domain.PurchaseOrderPending {
		return domain.PurchaseOrder{}, store.ErrInvalidState
	}
	for _, item := range po.Items {
		p, ok := s.products[item.ProductID]
		if !ok {
			continue
		}
		p.StockQuantity += item.Quantity
		p.CostPrice = item.CostPrice
		s.products[item.ProductID] = p
	}
	now := time.Now().UTC()
	po.Status = domain.PurchaseOrderReceived
	po.ReceivedDate = &now
	s.purchaseOrders[id] = po
	return clonePurchaseOrder(po), nil
}

func (s *Store) CancelPurchaseOrder(_ context.Context, id int64) (domain.PurchaseOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	po, ok := s.purchaseOrders[id]
	if !ok {
		return domain.PurchaseOrder{}, store.ErrNotFound
	}
	if po.Status != domain.PurchaseOrderPending {
		return domain.PurchaseOrder{}, store.ErrInvalidState
	}
	po.Status = domain.PurchaseOrderCancelled
	s.purchaseOrders[id] = po
	return clonePurchaseOrder(po), nil
}

// Customers and credit ledger

func (s *Store) CreateCustomer(_ context.Context, c domain.Customer) (domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(c.Name) == "" {
		return domain.Customer{}, store.ErrInvalidAmount
	}
	s.nextCustomerID++
	c.ID = s.nextCustomerID
	c.CreditBalance = decimal.Zero
	c.CreatedAt = time.Now().UTC()
	s.customers[c.ID] = c
	return c, nil
}

func (s *Store) UpdateCustomer(_ context.Context, c domain.Customer) (domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.customers[c.ID]
	if !ok {
		return domain.Customer{}, store.ErrNotFound
	}
	// Balance only moves through the ledger.
	c.CreditBalance = current.CreditBalance
	c.CreatedAt = current.CreatedAt
	s.customers[c.ID] = c
	return c, nil
}

func (s *Store) GetCustomer(_ context.Context, id int64) (domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.customers[id]
	if !ok {
		return domain.Customer{}, store.ErrNotFound
	}
	return c, nil
}

func (s *Store) SearchCustomers(_ context.Context, query string, limit int) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(strings.TrimSpace(query))
	out := make([]domain.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		if needle != "" &&
			!strings.Contains(strings.ToLower(c.Name), needle) &&
			!strings.Contains(c.Phone, needle) &&
			!strings.Contains(strings.ToLower(c.Email), needle) {
			continue
		}
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b domain.Customer) int {
		return strings.Compare(a.Name, b.Name)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) AddCredit(_ context.Context, customerID int64, amount decimal.Decimal, note string) (domain.CreditTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.customers[customerID]
	if !ok {
		return domain.CreditTransaction{}, store.ErrNotFound
	}
	if !amount.IsPositive() {
		return domain.CreditTransaction{}, store.ErrInvalidAmount
	}
	c.CreditBalance = c.CreditBalance.Add(amount)
	s.customers[customerID] = c

	s.nextCreditID++
	txn := domain.CreditTransaction{
		ID:         s.nextCreditID,
		CustomerID: customerID,
		Type:       domain.CreditTypeCredit,
		Amount:     amount,
		Note:       note,
		CreatedAt:  time.Now().UTC(),
	}
	s.creditTxns = append(s.creditTxns, txn)
	return txn, nil
}

func (s *Store) RecordPayment(_ context.Context, customerID int64, amount decimal.Decimal, note string) (domain.CreditTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.customers[customerID]
	if !ok {
		return domain.CreditTransaction{}, store.ErrNotFound
	}
	if !amount.IsPositive() {
		return domain.CreditTransaction{}, store.ErrInvalidAmount
	}
	if amount.GreaterThan(c.CreditBalance) {
		return domain.CreditTransaction{}, store.ErrExceedsBalance
	}
	c.CreditBalance = c.CreditBalance.Sub(amount)
	s.customers[customerID] = c

	s.nextCreditID++
	txn := domain.CreditTransaction{
		ID:         s.nextCreditID,
		CustomerID: customerID,
		Type:       domain.CreditTypePayment,
		Amount:     amount,
		Note:       note,
		CreatedAt:  time.Now().UTC(),
	}
	s.creditTxns = append(s.creditTxns, txn)
	return txn, nil
}

func (s *Store) ListCreditTransactions(_ context.Context, customerID int64) ([]domain.CreditTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.CreditTransaction
	for _, txn := range s.creditTxns {
		if txn.CustomerID == customerID {
			out = append(out, txn)
		}
	}
	slices.Reverse(out)
	return out, nil
}

// Users

func (s *Store) CreateUser(_ context.Context, u domain.UserAccount) (domain.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Username == u.Username {
			return domain.UserAccount{}, store.ErrDuplicate
		}
	}
	s.nextUserID++
	u.ID = s.nextUserID
	u.CreatedAt = time.Now().UTC()
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return domain.UserAccount{}, store.ErrNotFound
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.UserAccount, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	slices.SortFunc(out, func(a, b domain.UserAccount) int {
		return strings.Compare(a.Username, b.Username)
	})
	return out, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, id int64, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.PasswordHash = passwordHash
	s.users[id] = u
	return nil
}

// Activity log

func (s *Store) AppendActivity(_ context.Context, userID int64, action string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextActivityID++
	s.activity = append(s.activity, domain.ActivityLog{
		ID:        s.nextActivityID,
		UserID:    userID,
		Action:    action,
		CreatedAt: time.Now().UTC(),
	})
	return nil
}

func (s *Store) ListActivity(_ context.Context, limit int) ([]domain.ActivityLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := slices.Clone(s.activity)
	slices.Reverse(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Settings

func (s *Store) GetSettings(_ context.Context) (domain.BusinessSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings, nil
}

func (s *Store) UpdateSettings(_ context.Context, settings domain.BusinessSettings) (domain.BusinessSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if settings.Currency == "" {
		settings.Currency = s.settings.Currency
	}
	s.settings = settings
	return s.settings, nil
}

// Reporting

func (s *Store) DailySummary(_ context.Context, day time.Time) (domain.DailySummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dayKey := day.UTC().Format("2006-01-02")
	summary := domain.DailySummary{
		Date:          dayKey,
		GrossAmount:   decimal.Zero,
		DiscountTotal: decimal.Zero,
		NetAmount:     decimal.Zero,
	}
	for _, sale := range s.sales {
		if sale.Status != domain.SaleStatusCompleted {
			continue
		}
		if sale.CreatedAt.UTC().Format("2006-01-02") != dayKey {
			continue
		}
		summary.SaleCount++
		summary.GrossAmount = summary.GrossAmount.Add(sale.TotalAmount).Add(sale.DiscountAmount)
		summary.DiscountTotal = summary.DiscountTotal.Add(sale.DiscountAmount)
		summary.NetAmount = summary.NetAmount.Add(sale.TotalAmount)
	}
	return summary, nil
}

func cloneSale(sale domain.Sale) domain.Sale {
	sale.Items = slices.Clone(sale.Items)
	return sale
}

func clonePurchaseOrder(po domain.PurchaseOrder) domain.PurchaseOrder {
	po.Items = slices.Clone(po.Items)
	if po.ReceivedDate != nil {
		d := *po.ReceivedDate
		po.ReceivedDate = &d
	}
	return po
}
