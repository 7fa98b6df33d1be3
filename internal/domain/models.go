package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ReceiptNumber derives the printed receipt number from a sale id.
func ReceiptNumber(saleID int64) string {
	return fmt.Sprintf("R%06d", saleID)
}

// Sale status values. A sale is created as completed and may move to
// refunded exactly once.
const (
	SaleStatusCompleted = "completed"
	SaleStatusRefunded  = "refunded"
)

// Payment methods accepted at checkout.
const (
	PaymentCash        = "cash"
	PaymentCard        = "card"
	PaymentMobileMoney = "mobile_money"
	PaymentSplit       = "split"
)

// Stock adjustment types.
const (
	AdjustmentDamage = "damage"
	AdjustmentReturn = "return"
	AdjustmentManual = "manual"
)

// Purchase order states.
const (
	PurchaseOrderPending   = "pending"
	PurchaseOrderReceived  = "received"
	PurchaseOrderCancelled = "cancelled"
)

// Credit transaction types.
const (
	CreditTypeCredit  = "credit"
	CreditTypePayment = "payment"
)

// User roles.
const (
	RoleAdmin   = "admin"
	RoleCashier = "cashier"
)

type Product struct {
	ID                int64           `json:"id"`
	SKU               string          `json:"sku"`
	Barcode           string          `json:"barcode,omitempty"`
	Name              string          `json:"name"`
	Category          string          `json:"category,omitempty"`
	SupplierID        int64           `json:"supplier_id,omitempty"`
	Price             decimal.Decimal `json:"price"`
	CostPrice         decimal.Decimal `json:"cost_price"`
	StockQuantity     int             `json:"stock_quantity"`
	LowStockThreshold int             `json:"low_stock_threshold"`
	ExpiryDate        *time.Time      `json:"expiry_date,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

// LowStock reports whether the product is at or below its reorder threshold.
func (p Product) LowStock() bool {
	return p.StockQuantity <= p.LowStockThreshold
}

type Supplier struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	ContactPerson string    `json:"contact_person,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	Email         string    `json:"email,omitempty"`
	Address       string    `json:"address,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type Customer struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Phone         string          `json:"phone,omitempty"`
	Email         string          `json:"email,omitempty"`
	CreditBalance decimal.Decimal `json:"credit_balance"`
	CreatedAt     time.Time       `json:"created_at"`
}

type CreditTransaction struct {
	ID         int64           `json:"id"`
	CustomerID int64           `json:"customer_id"`
	Type       string          `json:"type"`
	Amount     decimal.Decimal `json:"amount"`
	SaleID     int64           `json:"sale_id,omitempty"`
	Note       string          `json:"note,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

type SaleItem struct {
	ProductID  int64           `json:"product_id"`
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

type Sale struct {
	ID             int64           `json:"id"`
	CashierID      int64           `json:"cashier_id"`
	CustomerID     int64           `json:"customer_id,omitempty"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	PaymentMethod  string          `json:"payment_method"`
	Status         string          `json:"status"`
	Items          []SaleItem      `json:"items"`
	ReceiptNumber  string          `json:"receipt_number"`
	RefundReason   string          `json:"refund_reason,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

type StockAdjustment struct {
	ID        int64     `json:"id"`
	ProductID int64     `json:"product_id"`
	Type      string    `json:"type"`
	Quantity  int       `json:"quantity"`
	Note      string    `json:"note,omitempty"`
	CreatedBy int64     `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

type PurchaseItem struct {
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	CostPrice decimal.Decimal `json:"cost_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type PurchaseOrder struct {
	ID           int64           `json:"id"`
	SupplierID   int64           `json:"supplier_id"`
	Status       string          `json:"status"`
	TotalCost    decimal.Decimal `json:"total_cost"`
	Items        []PurchaseItem  `json:"items"`
	CreatedBy    int64           `json:"created_by"`
	OrderDate    time.Time       `json:"order_date"`
	ReceivedDate *time.Time      `json:"received_date,omitempty"`
}

// CartItem is one pending line in a session cart. Price is snapshotted at add
// time for display; checkout recomputes from the catalog.
type CartItem struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Total     decimal.Decimal `json:"total"`
}

type Cart struct {
	SessionID string     `json:"session_id"`
	Items     []CartItem `json:"items"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Subtotal sums the line totals of the cart.
func (c Cart) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range c.Items {
		sum = sum.Add(it.Total)
	}
	return sum
}

// HeldCart is a parked cart retrievable by its short hold identifier until it
// expires.
type HeldCart struct {
	HoldID    string    `json:"hold_id"`
	SessionID string    `json:"session_id"`
	Cart      Cart      `json:"cart"`
	HeldAt    time.Time `json:"held_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type UserAccount struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

type ActivityLog struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Action    string    `json:"action"`
	CreatedAt time.Time `json:"created_at"`
}

type BusinessSettings struct {
	BusinessName   string          `json:"business_name"`
	Currency       string          `json:"currency"`
	TaxRate        decimal.Decimal `json:"tax_rate"`
	ReceiptFooter  string          `json:"receipt_footer,omitempty"`
	LowStockAlerts bool            `json:"low_stock_alerts"`
}

// CheckoutRequest is the service-level input for a checkout. Discount below
// zero is treated as zero; above the subtotal it is capped, which is reported
// in the response note rather than failing the sale.
type CheckoutRequest struct {
	SessionID      string          `json:"session_id"`
	PaymentMethod  string          `json:"payment_method"`
	CustomerID     int64           `json:"customer_id,omitempty"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	CreditSale     bool            `json:"credit_sale,omitempty"`
}

type CheckoutResponse struct {
	Sale          Sale   `json:"sale"`
	ReceiptNumber string `json:"receipt_number"`
	Note          string `json:"note,omitempty"`
}

// DailySummary aggregates one day of completed sales.
type DailySummary struct {
	Date          string          `json:"date"`
	SaleCount     int             `json:"sale_count"`
	GrossAmount   decimal.Decimal `json:"gross_amount"`
	DiscountTotal decimal.Decimal `json:"discount_total"`
	NetAmount     decimal.Decimal `json:"net_amount"`
}
