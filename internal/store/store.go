// Package store defines the persistence contract for the POS core and the
// sentinel errors business rules are signalled with.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"kudipos/backend/internal/domain"
)

var (
	// ErrNotFound is returned when a referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInsufficientStock is returned when a mutation would drive a
	// product's stock below zero.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrInvalidState is returned on an illegal state transition, such as
	// refunding a refunded sale or receiving a cancelled purchase order.
	ErrInvalidState = errors.New("invalid state")
	// ErrDuplicate is returned when a unique field (SKU, barcode,
	// username) collides with an existing row.
	ErrDuplicate = errors.New("duplicate value")
	// ErrExceedsBalance is returned when a payment is larger than the
	// customer's credit balance.
	ErrExceedsBalance = errors.New("payment exceeds credit balance")
	// ErrInvalidAmount is returned for non-positive ledger amounts.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrEmptyOrder is returned when a purchase order has no valid items.
	ErrEmptyOrder = errors.New("purchase order has no valid items")
)

// SaleFilter narrows ListSales.
type SaleFilter struct {
	CustomerID int64
	Limit      int
}

// Repository is the storage boundary. CreateSale, RefundSale,
// CreateAdjustment and ReceivePurchaseOrder are atomic: stock checks, stock
// mutations and row writes inside them commit together or not at all, and
// stock never goes negative.
type Repository interface {
	// Catalog
	CreateProduct(ctx context.Context, p domain.Product) (domain.Product, error)
	UpdateProduct(ctx context.Context, p domain.Product) (domain.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	GetProduct(ctx context.Context, id int64) (domain.Product, error)
	GetProductBySKU(ctx context.Context, sku string) (domain.Product, error)
	ListProducts(ctx context.Context, search, category string, limit int) ([]domain.Product, error)
	ListCategories(ctx context.Context) ([]string, error)
	LowStockProducts(ctx context.Context) ([]domain.Product, error)

	// Suppliers
	CreateSupplier(ctx context.Context, s domain.Supplier) (domain.Supplier, error)
	UpdateSupplier(ctx context.Context, s domain.Supplier) (domain.Supplier, error)
	GetSupplier(ctx context.Context, id int64) (domain.Supplier, error)
	ListSuppliers(ctx context.Context, search string, limit int) ([]domain.Supplier, error)

	// Sales. CreateSale assigns the sale id and receipt number, validates
	// and decrements stock for every item, and, when creditSale is set,
	// posts a credit transaction for the sale total, all in one unit.
	CreateSale(ctx context.Context, sale domain.Sale, creditSale bool) (domain.Sale, error)
	RefundSale(ctx context.Context, saleID int64, reason string) (domain.Sale, error)
	GetSale(ctx context.Context, id int64) (domain.Sale, error)
	ListSales(ctx context.Context, filter SaleFilter) ([]domain.Sale, error)

	// Stock adjustments
	CreateAdjustment(ctx context.Context, adj domain.StockAdjustment) (domain.StockAdjustment, error)
	ListAdjustments(ctx context.Context, limit int) ([]domain.StockAdjustment, error)

	// Purchase orders
	CreatePurchaseOrder(ctx context.Context, po domain.PurchaseOrder) (domain.PurchaseOrder, error)
	GetPurchaseOrder(ctx context.Context, id int64) (domain.PurchaseOrder, error)
	ListPurchaseOrders(ctx context.Context, status string, limit int) ([]domain.PurchaseOrder, error)
	ReceivePurchaseOrder(ctx context.Context, id int64) (domain.PurchaseOrder, error)
	CancelPurchaseOrder(ctx context.Context, id int64) (domain.PurchaseOrder, error)

	// Customers and credit ledger
	CreateCustomer(ctx context.Context, c domain.Customer) (domain.Customer, error)
	UpdateCustomer(ctx context.Context, c domain.Customer) (domain.Customer, error)
	GetCustomer(ctx context.Context, id int64) (domain.Customer, error)
	SearchCustomers(ctx context.Context, query string, limit int) ([]domain.Customer, error)
	AddCredit(ctx context.Context, customerID int64, amount decimal.Decimal, note string) (domain.CreditTransaction, error)
	RecordPayment(ctx context.Context, customerID int64, amount decimal.Decimal, note string) (domain.CreditTransaction, error)
	ListCreditTransactions(ctx context.Context, customerID int64) ([]domain.CreditTransaction, error)

	// Users
	CreateUser(ctx context.Context, u domain.UserAccount) (domain.UserAccount, error)
	GetUserByUsername(ctx context.Context, username string) (domain.UserAccount, error)
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error

	// Activity log
	AppendActivity(ctx context.Context, userID int64, action string) error
	ListActivity(ctx context.Context, limit int) ([]domain.ActivityLog, error)

	// Settings
	GetSettings(ctx context.Context) (domain.BusinessSettings, error)
	UpdateSettings(ctx context.Context, s domain.BusinessSettings) (domain.BusinessSettings, error)

	// Reporting
	DailySummary(ctx context.Context, day time.Time) (domain.DailySummary, error)
}
