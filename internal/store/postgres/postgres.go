// Package postgres implements the Repository over PostgreSQL. Stock-mutating
// operations run in a single transaction with the affected product rows
// locked, so concurrent checkouts cannot jointly oversell and stock can never
// go negative.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"kudipos/backend/internal/domain"
	"kudipos/backend/internal/store"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

var _ store.Repository = (*Store)(nil)

func (s *Store) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS suppliers (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			contact_person TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			address TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS products (
			id BIGSERIAL PRIMARY KEY,
			sku TEXT NOT NULL UNIQUE,
			barcode TEXT UNIQUE,
			name TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			supplier_id BIGINT REFERENCES suppliers(id),
			price NUMERIC(12,2) NOT NULL DEFAULT 0,
			cost_price NUMERIC(12,2) NOT NULL DEFAULT 0,
			stock_quantity INT NOT NULL DEFAULT 0 CHECK (stock_quantity >= 0),
			low_stock_threshold INT NOT NULL DEFAULT 5,
			expiry_date DATE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS customers (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			phone TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			credit_balance NUMERIC(12,2) NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS sales (
			id BIGSERIAL PRIMARY KEY,
			cashier_id BIGINT NOT NULL,
			customer_id BIGINT REFERENCES customers(id),
			total_amount NUMERIC(12,2) NOT NULL,
			discount_amount NUMERIC(12,2) NOT NULL DEFAULT 0,
			payment_method TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'completed',
			receipt_number TEXT NOT NULL UNIQUE,
			refund_reason TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS sale_items (
			id BIGSERIAL PRIMARY KEY,
			sale_id BIGINT NOT NULL REFERENCES sales(id) ON DELETE CASCADE,
			product_id BIGINT NOT NULL REFERENCES products(id),
			name TEXT NOT NULL,
			quantity INT NOT NULL,
			unit_price NUMERIC(12,2) NOT NULL,
			total_price NUMERIC(12,2) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS stock_adjustments (
			id BIGSERIAL PRIMARY KEY,
			product_id BIGINT NOT NULL REFERENCES products(id),
			adjustment_type TEXT NOT NULL,
			quantity INT NOT NULL,
			note TEXT NOT NULL DEFAULT '',
			created_by BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS purchase_orders (
			id BIGSERIAL PRIMARY KEY,
			supplier_id BIGINT NOT NULL REFERENCES suppliers(id),
			status TEXT NOT NULL DEFAULT 'pending',
			total_cost NUMERIC(12,2) NOT NULL DEFAULT 0,
			created_by BIGINT NOT NULL,
			order_date TIMESTAMPTZ NOT NULL DEFAULT now(),
			received_date TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS purchase_items (
			id BIGSERIAL PRIMARY KEY,
			purchase_order_id BIGINT NOT NULL REFERENCES purchase_orders(id) ON DELETE CASCADE,
			product_id BIGINT NOT NULL REFERENCES products(id),
			quantity INT NOT NULL,
			cost_price NUMERIC(12,2) NOT NULL,
			subtotal NUMERIC(12,2) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS credit_transactions (
			id BIGSERIAL PRIMARY KEY,
			customer_id BIGINT NOT NULL REFERENCES customers(id),
			txn_type TEXT NOT NULL,
			amount NUMERIC(12,2) NOT NULL,
			sale_id BIGINT REFERENCES sales(id),
			note TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			role TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS activity_log (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL,
			action TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS business_settings (
			id INT PRIMARY KEY CHECK (id = 1),
			business_name TEXT NOT NULL DEFAULT 'Kudi POS',
			currency TEXT NOT NULL DEFAULT 'GHS',
			tax_rate NUMERIC(5,2) NOT NULL DEFAULT 5.0,
			receipt_footer TEXT NOT NULL DEFAULT '',
			low_stock_alerts BOOLEAN NOT NULL DEFAULT TRUE
		)`,
		`INSERT INTO business_settings (id) VALUES (1) ON CONFLICT (id) DO NOTHING`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isCheckViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23514"
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullIfZero(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// Catalog

const productColumns = `id, sku, COALESCE(barcode, ''), name, category, COALESCE(supplier_id, 0),
	price, cost_price, stock_quantity, low_stock_threshold, expiry_date, created_at`

func scanProduct(row interface{ Scan(...any) error }) (domain.Product, error) {
	var p domain.Product
	var expiry sql.NullTime
	err := row.Scan(&p.ID, &p.SKU, &p.Barcode, &p.Name, &p.Category, &p.SupplierID,
		&p.Price, &p.CostPrice, &p.StockQuantity, &p.LowStockThreshold, &expiry, &p.CreatedAt)
	if err != nil {
		return domain.Product{}, err
	}
	if expiry.Valid {
		t := expiry.Time
		p.ExpiryDate = &t
	}
	return p, nil
}

func (s *Store) CreateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	if p.StockQuantity < 0 {
		return domain.Product{}, store.ErrInsufficientStock
	}
	if p.LowStockThreshold == 0 {
		p.LowStockThreshold = 5
	}
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO products (sku, barcode, name, category, supplier_id, price, cost_price,
			stock_quantity, low_stock_threshold, expiry_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+productColumns,
		p.SKU, nullIfEmpty(p.Barcode), p.Name, p.Category, nullIfZero(p.SupplierID),
		p.Price, p.CostPrice, p.StockQuantity, p.LowStockThreshold, nullTime(p.ExpiryDate))
	created, err := scanProduct(row)
	if isUniqueViolation(err) {
		return domain.Product{}, store.ErrDuplicate
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("create product: %w", err)
	}
	return created, nil
}

func (s *Store) UpdateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	if p.LowStockThreshold == 0 {
		p.LowStockThreshold = 5
	}
	row := s.db.QueryRowContext(ctx, `
		UPDATE products
		SET sku = $2, barcode = $3, name = $4, category = $5, supplier_id = $6,
			price = $7, cost_price = $8, low_stock_threshold = $9, expiry_date = $10
		WHERE id = $1
		RETURNING `+productColumns,
		p.ID, p.SKU, nullIfEmpty(p.Barcode), p.Name, p.Category, nullIfZero(p.SupplierID),
		p.Price, p.CostPrice, p.LowStockThreshold, nullTime(p.ExpiryDate))
	updated, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, store.ErrNotFound
	}
	if isUniqueViolation(err) {
		return domain.Product{}, store.ErrDuplicate
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("update product: %w", err)
	}
	return updated, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	var hasSales bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM sale_items WHERE product_id = $1)`, id).Scan(&hasSales)
	if err != nil {
		return fmt.Errorf("check sale history: %w", err)
	}
	if hasSales {
		return store.ErrInvalidState
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, store.ErrNotFound
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

func (s *Store) GetProductBySKU(ctx context.Context, sku string) (domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE sku = $1`, sku)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, store.ErrNotFound
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("get product by sku: %w", err)
	}
	return p, nil
}

func (s *Store) ListProducts(ctx context.Context, search, category string, limit int) ([]domain.Product, error) {
	if limit <= 0 {
		limit = 200
	}
	query := `SELECT ` + productColumns + ` FROM products WHERE 1=1`
	args := []any{}
	if search = strings.TrimSpace(search); search != "" {
		args = append(args, "%"+search+"%")
		n := fmt.Sprintf("$%d", len(args))
		query += ` AND (name ILIKE ` + n + ` OR sku ILIKE ` + n + ` OR barcode ILIKE ` + n + `)`
	}
	if category != "" {
		args = append(args, category)
		query += fmt.Sprintf(` AND category = $%d`, len(args))
	}
	args = append(args, limit)
	query += fmt.Sprintf(` ORDER BY name LIMIT $%d`, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var out []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) ListCategories(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT category FROM products WHERE category <> '' ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) LowStockProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+productColumns+`
		FROM products WHERE stock_quantity <= low_stock_threshold
		ORDER BY stock_quantity, name`)
	if err != nil {
		return nil, fmt.Errorf("low stock products: %w", err)
	}
	defer rows.Close()

	var out []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Suppliers

func (s *Store) CreateSupplier(ctx context.Context, sup domain.Supplier) (domain.Supplier, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO suppliers (name, contact_person, phone, email, address)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		sup.Name, sup.ContactPerson, sup.Phone, sup.Email, sup.Address).
		Scan(&sup.ID, &sup.CreatedAt)
	if err != nil {
		return domain.Supplier{}, fmt.Errorf("create supplier: %w", err)
	}
	return sup, nil
}

func (s *Store) UpdateSupplier(ctx context.Context, sup domain.Supplier) (domain.Supplier, error) {
	err := s.db.QueryRowContext(ctx, `
		UPDATE suppliers
		SET name = $2, contact_person = $3, phone = $4, email = $5, address = $6
		WHERE id = $1
		RETURNING created_at`,
		sup.ID, sup.Name, sup.ContactPerson, sup.Phone, sup.Email, sup.Address).
		Scan(&sup.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Supplier{}, store.ErrNotFound
	}
	if err != nil {
		return domain.Supplier{}, fmt.Errorf("update supplier: %w", err)
	}
	return sup, nil
}

func (s *Store) GetSupplier(ctx context.Context, id int64) (domain.Supplier, error) {
	var sup domain.Supplier
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, contact_person, phone, email, address, created_at
		FROM suppliers WHERE id = $1`, id).
		Scan(&sup.ID, &sup.Name, &sup.ContactPerson, &sup.Phone, &sup.Email, &sup.Address, &sup.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Supplier{}, store.ErrNotFound
	}
	if err != nil {
		return domain.Supplier{}, fmt.Errorf("get supplier: %w", err)
	}
	return sup, nil
}

func (s *Store) ListSuppliers(ctx context.Context, search string, limit int) ([]domain.Supplier, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT id, name, contact_person, phone, email, address, created_at FROM suppliers`
	args := []any{}
	if search = strings.TrimSpace(search); search != "" {
		args = append(args, "%"+search+"%")
		query += ` WHERE name ILIKE $1 OR contact_person ILIKE $1 OR phone ILIKE $1`
	}
	args = append(args, limit)
	query += fmt.Sprintf(` ORDER BY name LIMIT $%d`, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list suppliers: %w", err)
	}
	defer rows.Close()

	var out []domain.Supplier
	for rows.Next() {
		var sup domain.Supplier
		if err := rows.Scan(&sup.ID, &sup.Name, &sup.ContactPerson, &sup.Phone, &sup.Email, &sup.Address, &sup.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, sup)
	}
	return out, rows.Err()
}

// Sales

func (s *Store) CreateSale(ctx context.Context, sale domain.Sale, creditSale bool) (domain.Sale, error) {
	if len(sale.Items) == 0 {
		return domain.Sale{}, store.ErrInvalidState
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return domain.Sale{}, fmt.Errorf("begin checkout: %w", err)
	}
	defer tx.Rollback()

	// Lock product rows in id order so concurrent checkouts cannot
	// deadlock, then validate before any write.
	ids := make([]int64, 0, len(sale.Items))
	need := map[int64]int{}
	for _, item := range sale.Items {
		if item.Quantity <= 0 {
			return domain.Sale{}, store.ErrInvalidAmount
		}
		if need[item.ProductID] == 0 {
			ids = append(ids, item.ProductID)
		}
		need[item.ProductID] += item.Quantity
	}
	slices.Sort(ids)
	names := make(map[int64]string, len(ids))
	for _, id := range ids {
		var name string
		var stock int
		err := tx.QueryRowContext(ctx,
			`SELECT name, stock_quantity FROM products WHERE id = $1 FOR UPDATE`, id).Scan(&name, &stock)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Sale{}, store.ErrNotFound
		}
		if err != nil {
			return domain.Sale{}, fmt.Errorf("lock product %d: %w", id, err)
		}
		names[id] = name
		if stock < need[id] {
			return domain.Sale{}, fmt.Errorf("%s: %w", name, store.ErrInsufficientStock)
		}
	}

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx,
			`UPDATE products SET stock_quantity = stock_quantity - $2 WHERE id = $1`,
			id, need[id]); err != nil {
			if isCheckViolation(err) {
				return domain.Sale{}, fmt.Errorf("%s: %w", names[id], store.ErrInsufficientStock)
			}
			return domain.Sale{}, fmt.Errorf("decrement stock: %w", err)
		}
	}

	sale.Status = domain.SaleStatusCompleted
	err = tx.QueryRowContext(ctx, `
		INSERT INTO sales (cashier_id, customer_id, total_amount, discount_amount,
			payment_method, status, receipt_number)
		VALUES ($1, $2, $3, $4, $5, $6, '')
		RETURNING id, created_at`,
		sale.CashierID, nullIfZero(sale.CustomerID), sale.TotalAmount, sale.DiscountAmount,
		sale.PaymentMethod, sale.Status).
		Scan(&sale.ID, &sale.CreatedAt)
	if err != nil {
		return domain.Sale{}, fmt.Errorf("insert sale: %w", err)
	}

	sale.ReceiptNumber = domain.ReceiptNumber(sale.ID)
	if _, err := tx.ExecContext(ctx,
		`UPDATE sales SET receipt_number = $2 WHERE id = $1`, sale.ID, sale.ReceiptNumber); err != nil {
		return domain.Sale{}, fmt.Errorf("set receipt number: %w", err)
	}

	for _, item := range sale.Items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO sale_items (sale_id, product_id, name, quantity, unit_price, total_price)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			sale.ID, item.ProductID, item.Name, item.Quantity, item.UnitPrice, item.TotalPrice); err != nil {
			return domain.Sale{}, fmt.Errorf("insert sale item: %w", err)
		}
	}

	if creditSale {
		if sale.CustomerID == 0 {
			return domain.Sale{}, store.ErrNotFound
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE customers SET credit_balance = credit_balance + $2 WHERE id = $1`,
			sale.CustomerID, sale.TotalAmount)
		if err != nil {
			return domain.Sale{}, fmt.Errorf("post credit balance: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.Sale{}, store.ErrNotFound
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO credit_transactions (customer_id, txn_type, amount, sale_id, note)
			VALUES ($1, $2, $3, $4, $5)`,
			sale.CustomerID, domain.CreditTypeCredit, sale.TotalAmount, sale.ID,
			"credit sale "+sale.ReceiptNumber); err != nil {
			return domain.Sale{}, fmt.Errorf("post credit transaction: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.Sale{}, fmt.Errorf("commit checkout: %w", err)
	}
	return sale, nil
}

func (s *Store) RefundSale(ctx context.Context, saleID int64, reason string) (domain.Sale, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return domain.Sale{}, fmt.Errorf("begin refund: %w", err)
	}
	defer tx.Rollback()

	var status string
	err = tx.QueryRowContext(ctx,
		`SELECT status FROM sales WHERE id = $1 FOR UPDATE`, saleID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Sale{}, store.ErrNotFound
	}
	if err != nil {
		return domain.Sale{}, fmt.Errorf("lock sale: %w", err)
	}
	if status != domain.SaleStatusCompleted {
		return domain.Sale{}, store.ErrInvalidState
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE products p
		SET stock_quantity = p.stock_quantity + si.quantity
		FROM sale_items si
		WHERE si.sale_id = $1 AND si.product_id = p.id`, saleID); err != nil {
		return domain.Sale{}, fmt.Errorf("restore stock: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE sales SET status = $2, refund_reason = $3 WHERE id = $1`,
		saleID, domain.SaleStatusRefunded, reason); err != nil {
		return domain.Sale{}, fmt.Errorf("mark refunded: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.Sale{}, fmt.Errorf("commit refund: %w", err)
	}
	return s.GetSale(ctx, saleID)
}

func (s *Store) GetSale(ctx context.Context, id int64) (domain.Sale, error) {
	sale, err := s.scanSaleRow(ctx, s.db.QueryRowContext(ctx, `
		SELECT id, cashier_id, COALESCE(customer_id, 0), total_amount, discount_amount,
			payment_method, status, receipt_number, refund_reason, created_at
		FROM sales WHERE id = $1`, id))
	if err != nil {
		return domain.Sale{}, err
	}
	items, err := s.saleItems(ctx, id)
	if err != nil {
		return domain.Sale{}, err
	}
	sale.Items = items
	return sale, nil
}

func (s *Store) scanSaleRow(_ context.Context, row *sql.Row) (domain.Sale, error) {
	var sale domain.Sale
	err := row.Scan(&sale.ID, &sale.CashierID, &sale.CustomerID, &sale.TotalAmount,
		&sale.DiscountAmount, &sale.PaymentMethod, &sale.Status, &sale.ReceiptNumber,
		&sale.RefundReason, &sale.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Sale{}, store.ErrNotFound
	}
	if err != nil {
		return domain.Sale{}, fmt.Errorf("scan sale: %w", err)
	}
	return sale, nil
}

func (s *Store) saleItems(ctx context.Context, saleID int64) ([]domain.SaleItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, name, quantity, unit_price, total_price
		FROM sale_items WHERE sale_id = $1 ORDER BY id`, saleID)
	if err != nil {
		return nil, fmt.Errorf("sale items: %w", err)
	}
	defer rows.Close()

	var out []domain.SaleItem
	for rows.Next() {
		var item domain.SaleItem
		if err := rows.Scan(&item.ProductID, &item.Name, &item.Quantity, &item.UnitPrice, &item.TotalPrice); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (s *Store) ListSales(ctx context.Context, filter store.SaleFilter) ([]domain.Sale, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT id, cashier_id, COALESCE(customer_id, 0), total_amount, discount_amount,
		payment_method, status, receipt_number, refund_reason, created_at FROM sales`
	args := []any{}
	if filter.CustomerID != 0 {
		args = append(args, filter.CustomerID)
		query += ` WHERE customer_id = $1`
	}
	args = append(args, limit)
	query += fmt.Sprintf(` ORDER BY id DESC LIMIT $%d`, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	defer rows.Close()

	var out []domain.Sale
	for rows.Next() {
		var sale domain.Sale
		if err := rows.Scan(&sale.ID, &sale.CashierID, &sale.CustomerID, &sale.TotalAmount,
			&sale.DiscountAmount, &sale.PaymentMethod, &sale.Status, &sale.ReceiptNumber,
			&sale.RefundReason, &sale.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		items, err := s.saleItems(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Items = items
	}
	return out, nil
}

// Stock adjustments

func (s *Store) CreateAdjustment(ctx context.Context, adj domain.StockAdjustment) (domain.StockAdjustment, error) {
	var delta int
	switch adj.Type {
	case domain.AdjustmentDamage:
		if adj.Quantity <= 0 {
			return domain.StockAdjustment{}, store.ErrInvalidAmount
		}
		delta = -adj.Quantity
	case domain.AdjustmentReturn:
		if adj.Quantity <= 0 {
			return domain.StockAdjustment{}, store.ErrInvalidAmount
		}
		delta = adj.Quantity
	case domain.AdjustmentManual:
		if adj.Quantity == 0 {
			return domain.StockAdjustment{}, store.ErrInvalidAmount
		}
		delta = adj.Quantity
	default:
		return domain.StockAdjustment{}, store.ErrInvalidState
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.StockAdjustment{}, fmt.Errorf("begin adjustment: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE products SET stock_quantity = stock_quantity + $2
		WHERE id = $1 AND stock_quantity + $2 >= 0`, adj.ProductID, delta)
	if err != nil {
		if isCheckViolation(err) {
			return domain.StockAdjustment{}, store.ErrInsufficientStock
		}
		return domain.StockAdjustment{}, fmt.Errorf("apply adjustment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, adj.ProductID).Scan(&exists); err != nil {
			return domain.StockAdjustment{}, fmt.Errorf("check product: %w", err)
		}
		if !exists {
			return domain.StockAdjustment{}, store.ErrNotFound
		}
		return domain.StockAdjustment{}, store.ErrInsufficientStock
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO stock_adjustments (product_id, adjustment_type, quantity, note, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		adj.ProductID, adj.Type, adj.Quantity, adj.Note, adj.CreatedBy).
		Scan(&adj.ID, &adj.CreatedAt)
	if err != nil {
		return domain.StockAdjustment{}, fmt.Errorf("insert adjustment: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.StockAdjustment{}, fmt.Errorf("commit adjustment: %w", err)
	}
	return adj, nil
}

func (s *Store) ListAdjustments(ctx context.Context, limit int) ([]domain.StockAdjustment, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_id, adjustment_type, quantity, note, created_by, created_at
		FROM stock_adjustments ORDER BY id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list adjustments: %w", err)
	}
	defer rows.Close()

	var out []domain.StockAdjustment
	for rows.Next() {
		var adj domain.StockAdjustment
		if err := rows.Scan(&adj.ID, &adj.ProductID, &adj.Type, &adj.Quantity, &adj.Note, &adj.CreatedBy, &adj.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, adj)
	}
	return out, rows.Err()
}

// Purchase orders

func (s *Store) CreatePurchaseOrder(ctx context.Context, po domain.PurchaseOrder) (domain.PurchaseOrder, error) {
	valid := make([]domain.PurchaseItem, 0, len(po.Items))
	total := decimal.Zero
	for _, item := range po.Items {
		if item.Quantity <= 0 || !item.CostPrice.IsPositive() {
			continue
		}
		item.Subtotal = item.CostPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		valid = append(valid, item)
		total = total.Add(item.Subtotal)
	}
	if len(valid) == 0 {
		return domain.PurchaseOrder{}, store.ErrEmptyOrder
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.PurchaseOrder{}, fmt.Errorf("begin purchase order: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM suppliers WHERE id = $1)`, po.SupplierID).Scan(&exists); err != nil {
		return domain.PurchaseOrder{}, fmt.Errorf("check supplier: %w", err)
	}
	if !exists {
		return domain.PurchaseOrder{}, store.ErrNotFound
	}

	po.Status = domain.PurchaseOrderPending
	po.TotalCost = total
	po.Items = valid
	po.ReceivedDate = nil
	err = tx.QueryRowContext(ctx, `
		INSERT INTO purchase_orders (supplier_id, status, total_cost, created_by)
		VALUES ($1, $2, $3, $4)
		RETURNING id, order_date`,
		po.SupplierID, po.Status, po.TotalCost, po.CreatedBy).
		Scan(&po.ID, &po.OrderDate)
	if err != nil {
		return domain.PurchaseOrder{}, fmt.Errorf("insert purchase order: %w", err)
	}
	for _, item := range valid {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO purchase_items (purchase_order_id, product_id, quantity, cost_price, subtotal)
			VALUES ($1, $2, $3, $4, $5)`,
			po.ID, item.ProductID, item.Quantity, item.CostPrice, item.Subtotal); err != nil {
			return domain.PurchaseOrder{}, fmt.Errorf("insert purchase item: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return domain.PurchaseOrder{}, fmt.Errorf("commit purchase order: %w", err)
	}
	return po, nil
}

func (s *Store) GetPurchaseOrder(ctx context.Context, id int64) (domain.PurchaseOrder, error) {
	var po domain.PurchaseOrder
	var received sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT id, supplier_id, status, total_cost, created_by, order_date, received_date
		FROM purchase_orders WHERE id = $1`, id).
		Scan(&po.ID, &po.SupplierID, &po.Status, &po.TotalCost, &po.CreatedBy, &po.OrderDate, &received)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.PurchaseOrder{}, store.ErrNotFound
	}
	if err != nil {
		return domain.PurchaseOrder{}, fmt.Errorf("get purchase order: %w", err)
	}
	if received.Valid {
		t := received.Time
		po.ReceivedDate = &t
	}
	items, err := s.purchaseItems(ctx, id)
	if err != nil {
		return domain.PurchaseOrder{}, err
	}
	po.Items = items
	return po, nil
}

func (s *Store) purchaseItems(ctx context.Context, orderID int64) ([]domain.PurchaseItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, quantity, cost_price, subtotal
		FROM purchase_items WHERE purchase_order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("purchase items: %w", err)
	}
	defer rows.Close()

	var out []domain.PurchaseItem
	for rows.Next() {
		var item domain.PurchaseItem
		if err := rows.Scan(&item.ProductID, &item.Quantity, &item.CostPrice, &item.Subtotal); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (s *Store) ListPurchaseOrders(ctx context.Context, status string, limit int) ([]domain.PurchaseOrder, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT id, supplier_id, status, total_cost, created_by, order_date, received_date
		FROM purchase_orders`
	args := []any{}
	if status != "" {
		args = append(args, status)
		query += ` WHERE status = $1`
	}
	args = append(args, limit)
	query += fmt.Sprintf(` ORDER BY id DESC LIMIT $%d`, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list purchase orders: %w", err)
	}
	defer rows.Close()

	var out []domain.PurchaseOrder
	for rows.Next() {
		var po domain.PurchaseOrder
		var received sql.NullTime
		if err := rows.Scan(&po.ID, &po.SupplierID, &po.Status, &po.TotalCost, &po.CreatedBy, &po.OrderDate, &received); err != nil {
			return nil, err
		}
		if received.Valid {
			t := received.Time
			po.ReceivedDate = &t
		}
		out = append(out, po)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		items, err := s.purchaseItems(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Items = items
	}
	return out, nil
}

func (s *Store) ReceivePurchaseOrder(ctx context.Context, id int64) (domain.PurchaseOrder, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return domain.PurchaseOrder{}, fmt.Errorf("begin receive: %w", err)
	}
	defer tx.Rollback()

	var status string
	err = tx.QueryRowContext(ctx,
		`SELECT status FROM purchase_orders WHERE id = $1 FOR UPDATE`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.PurchaseOrder{}, store.ErrNotFound
	}
	if err != nil {
		return domain.PurchaseOrder{}, fmt.Errorf("lock purchase order: %w", err)
	}
	if status != domain.PurchaseOrderPending {
		return domain.PurchaseOrder{}, store.ErrInvalidState
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT product_id, quantity, cost_price
		FROM purchase_items WHERE purchase_order_id = $1 ORDER BY id`, id)
	if err != nil {
		return domain.PurchaseOrder{}, fmt.Errorf("receive items: %w", err)
	}
	type recv struct {
		productID int64
		qty       int
		cost      decimal.Decimal
	}
	var items []recv
	for rows.Next() {
		var r recv
		if err := rows.Scan(&r.productID, &r.qty, &r.cost); err != nil {
			rows.Close()
			return domain.PurchaseOrder{}, err
		}
		items = append(items, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return domain.PurchaseOrder{}, err
	}

	// Duplicate products apply in item order, so the last cost wins.
	for _, r := range items {
		if _, err := tx.ExecContext(ctx, `
			UPDATE products SET stock_quantity = stock_quantity + $2, cost_price = $3
			WHERE id = $1`, r.productID, r.qty, r.cost); err != nil {
			return domain.PurchaseOrder{}, fmt.Errorf("apply receipt: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE purchase_orders SET status = $2, received_date = now() WHERE id = $1`,
		id, domain.PurchaseOrderReceived); err != nil {
		return domain.PurchaseOrder{}, fmt.Errorf("mark received: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.PurchaseOrder{}, fmt.Errorf("commit receive: %w", err)
	}
	return s.GetPurchaseOrder(ctx, id)
}

func (s *Store) CancelPurchaseOrder(ctx context.Context, id int64) (domain.PurchaseOrder, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE purchase_orders SET status = $2
		WHERE id = $1 AND status = $3`,
		id, domain.PurchaseOrderCancelled, domain.PurchaseOrderPending)
	if err != nil {
		return domain.PurchaseOrder{}, fmt.Errorf("cancel purchase order: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := s.GetPurchaseOrder(ctx, id); err != nil {
			return domain.PurchaseOrder{}, err
		}
		return domain.PurchaseOrder{}, store.ErrInvalidState
	}
	return s.GetPurchaseOrder(ctx, id)
}

// Customers and credit ledger

func (s *Store) CreateCustomer(ctx context.Context, c domain.Customer) (domain.Customer, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO customers (name, phone, email)
		VALUES ($1, $2, $3)
		RETURNING id, credit_balance, created_at`,
		c.Name, c.Phone, c.Email).
		Scan(&c.ID, &c.CreditBalance, &c.CreatedAt)
	if err != nil {
		return domain.Customer{}, fmt.Errorf("create customer: %w", err)
	}
	return c, nil
}

func (s *Store) UpdateCustomer(ctx context.Context, c domain.Customer) (domain.Customer, error) {
	err := s.db.QueryRowContext(ctx, `
		UPDATE customers SET name = $2, phone = $3, email = $4
		WHERE id = $1
		RETURNING credit_balance, created_at`,
		c.ID, c.Name, c.Phone, c.Email).
		Scan(&c.CreditBalance, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Customer{}, store.ErrNotFound
	}
	if err != nil {
		return domain.Customer{}, fmt.Errorf("update customer: %w", err)
	}
	return c, nil
}

func (s *Store) GetCustomer(ctx context.Context, id int64) (domain.Customer, error) {
	var c domain.Customer
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, phone, email, credit_balance, created_at
		FROM customers WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.CreditBalance, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Customer{}, store.ErrNotFound
	}
	if err != nil {
		return domain.Customer{}, fmt.Errorf("get customer: %w", err)
	}
	return c, nil
}

func (s *Store) SearchCustomers(ctx context.Context, query string, limit int) ([]domain.Customer, error) {
	if limit <= 0 {
		limit = 50
	}
	sqlQuery := `SELECT id, name, phone, email, credit_balance, created_at FROM customers`
	args := []any{}
	if query = strings.TrimSpace(query); query != "" {
		args = append(args, "%"+query+"%")
		sqlQuery += ` WHERE name ILIKE $1 OR phone ILIKE $1 OR email ILIKE $1`
	}
	args = append(args, limit)
	sqlQuery += fmt.Sprintf(` ORDER BY name LIMIT $%d`, len(args))

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("search customers: %w", err)
	}
	defer rows.Close()

	var out []domain.Customer
	for rows.Next() {
		var c domain.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.CreditBalance, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) AddCredit(ctx context.Context, customerID int64, amount decimal.Decimal, note string) (domain.CreditTransaction, error) {
	if !amount.IsPositive() {
		return domain.CreditTransaction{}, store.ErrInvalidAmount
	}
	return s.postLedger(ctx, customerID, domain.CreditTypeCredit, amount, note)
}

func (s *Store) RecordPayment(ctx context.Context, customerID int64, amount decimal.Decimal, note string) (domain.CreditTransaction, error) {
	if !amount.IsPositive() {
		return domain.CreditTransaction{}, store.ErrInvalidAmount
	}
	return s.postLedger(ctx, customerID, domain.CreditTypePayment, amount, note)
}

func (s *Store) postLedger(ctx context.Context, customerID int64, txnType string, amount decimal.Decimal, note string) (domain.CreditTransaction, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.CreditTransaction{}, fmt.Errorf("begin ledger post: %w", err)
	}
	defer tx.Rollback()

	var balance decimal.Decimal
	err = tx.QueryRowContext(ctx,
		`SELECT credit_balance FROM customers WHERE id = $1 FOR UPDATE`, customerID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CreditTransaction{}, store.ErrNotFound
	}
	if err != nil {
		return domain.CreditTransaction{}, fmt.Errorf("lock customer: %w", err)
	}

	delta := amount
	if txnType == domain.CreditTypePayment {
		if amount.GreaterThan(balance) {
			return domain.CreditTransaction{}, store.ErrExceedsBalance
		}
		delta = amount.Neg()
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE customers SET credit_balance = credit_balance + $2 WHERE id = $1`,
		customerID, delta); err != nil {
		return domain.CreditTransaction{}, fmt.Errorf("update balance: %w", err)
	}

	txn := domain.CreditTransaction{CustomerID: customerID, Type: txnType, Amount: amount, Note: note}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO credit_transactions (customer_id, txn_type, amount, note)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		customerID, txnType, amount, note).
		Scan(&txn.ID, &txn.CreatedAt)
	if err != nil {
		return domain.CreditTransaction{}, fmt.Errorf("insert credit transaction: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.CreditTransaction{}, fmt.Errorf("commit ledger post: %w", err)
	}
	return txn, nil
}

func (s *Store) ListCreditTransactions(ctx context.Context, customerID int64) ([]domain.CreditTransaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, customer_id, txn_type, amount, COALESCE(sale_id, 0), note, created_at
		FROM credit_transactions WHERE customer_id = $1 ORDER BY id DESC`, customerID)
	if err != nil {
		return nil, fmt.Errorf("list credit transactions: %w", err)
	}
	defer rows.Close()

	var out []domain.CreditTransaction
	for rows.Next() {
		var txn domain.CreditTransaction
		if err := rows.Scan(&txn.ID, &txn.CustomerID, &txn.Type, &txn.Amount, &txn.SaleID, &txn.Note, &txn.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, txn)
	}
	return out, rows.Err()
}

// Users

func (s *Store) CreateUser(ctx context.Context, u domain.UserAccount) (domain.UserAccount, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (username, password_hash, role)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		u.Username, u.PasswordHash, u.Role).
		Scan(&u.ID, &u.CreatedAt)
	if isUniqueViolation(err) {
		return domain.UserAccount{}, store.ErrDuplicate
	}
	if err != nil {
		return domain.UserAccount{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (domain.UserAccount, error) {
	var u domain.UserAccount
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, role, created_at
		FROM users WHERE username = $1`, username).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.UserAccount{}, store.ErrNotFound
	}
	if err != nil {
		return domain.UserAccount{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, password_hash, role, created_at
		FROM users ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()
	var out []domain.UserAccount
	for rows.Next() {
		var u domain.UserAccount
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *Store) UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $2 WHERE id = $1`, id, passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Activity log

func (s *Store) AppendActivity(ctx context.Context, userID int64, action string) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO activity_log (user_id, action) VALUES ($1, $2)`, userID, action); err != nil {
		return fmt.Errorf("append activity: %w", err)
	}
	return nil
}

func (s *Store) ListActivity(ctx context.Context, limit int) ([]domain.ActivityLog, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, action, created_at
		FROM activity_log ORDER BY id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()

	var out []domain.ActivityLog
	for rows.Next() {
		var entry domain.ActivityLog
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.Action, &entry.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

// Settings

func (s *Store) GetSettings(ctx context.Context) (domain.BusinessSettings, error) {
	var settings domain.BusinessSettings
	err := s.db.QueryRowContext(ctx, `
		SELECT business_name, currency, tax_rate, receipt_footer, low_stock_alerts
		FROM business_settings WHERE id = 1`).
		Scan(&settings.BusinessName, &settings.Currency, &settings.TaxRate,
			&settings.ReceiptFooter, &settings.LowStockAlerts)
	if err != nil {
		return domain.BusinessSettings{}, fmt.Errorf("get settings: %w", err)
	}
	return settings, nil
}

func (s *Store) UpdateSettings(ctx context.Context, settings domain.BusinessSettings) (domain.BusinessSettings, error) {
	if settings.Currency == "" {
		settings.Currency = "GHS"
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE business_settings
		SET business_name = $1, currency = $2, tax_rate = $3, receipt_footer = $4, low_stock_alerts = $5
		WHERE id = 1`,
		settings.BusinessName, settings.Currency, settings.TaxRate,
		settings.ReceiptFooter, settings.LowStockAlerts)
	if err != nil {
		return domain.BusinessSettings{}, fmt.Errorf("update settings: %w", err)
	}
	return s.GetSettings(ctx)
}

// Reporting

func (s *Store) DailySummary(ctx context.Context, day time.Time) (domain.DailySummary, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	summary := domain.DailySummary{Date: start.Format("2006-01-02")}
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(total_amount + discount_amount), 0),
			COALESCE(SUM(discount_amount), 0),
			COALESCE(SUM(total_amount), 0)
		FROM sales
		WHERE status = $1 AND created_at >= $2 AND created_at < $3`,
		domain.SaleStatusCompleted, start, end).
		Scan(&summary.SaleCount, &summary.GrossAmount, &summary.DiscountTotal, &summary.NetAmount)
	if err != nil {
		return domain.DailySummary{}, fmt.Errorf("daily summary: %w", err)
	}
	return summary, nil
}
