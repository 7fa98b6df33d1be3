package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"kudipos/backend/internal/domain"
	"kudipos/backend/internal/store"
)

// These tests need a real database. Point TEST_DATABASE_URL at a throwaway
// postgres instance to run them.
func newIntegrationStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s, err := New(ctx, url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedProduct(t *testing.T, s *Store, stock int) domain.Product {
	t.Helper()
	p, err := s.CreateProduct(context.Background(), domain.Product{
		SKU:           fmt.Sprintf("it-%d", time.Now().UnixNano()),
		Name:          "Integration Widget",
		Price:         decimal.NewFromInt(3),
		StockQuantity: stock,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	return p
}

func saleFor(p domain.Product, qty int) domain.Sale {
	price := p.Price.Mul(decimal.NewFromInt(int64(qty)))
	return domain.Sale{
		CashierID:     1,
		TotalAmount:   price,
		PaymentMethod: domain.PaymentCash,
		Status:        domain.SaleStatusCompleted,
		Items: []domain.SaleItem{
			{ProductID: p.ID, Name: p.Name, Quantity: qty, UnitPrice: p.Price, TotalPrice: price},
		},
	}
}

func TestCreateSaleDecrementsStock(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()
	p := seedProduct(t, s, 10)

	sale, err := s.CreateSale(ctx, saleFor(p, 4), false)
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	if sale.ReceiptNumber == "" {
		t.Fatal("receipt number not assigned")
	}

	got, err := s.GetProduct(ctx, p.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if got.StockQuantity != 6 {
		t.Fatalf("stock = %d, want 6", got.StockQuantity)
	}
}

func TestConcurrentCheckoutsNeverOversell(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()
	p := seedProduct(t, s, 5)

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.CreateSale(ctx, saleFor(p, 2), false)
		}(i)
	}
	wg.Wait()

	sold := 0
	for _, err := range errs {
		if err == nil {
			sold++
		} else if !errors.Is(err, store.ErrInsufficientStock) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if sold != 2 {
		t.Fatalf("completed sales = %d, want 2", sold)
	}

	got, err := s.GetProduct(ctx, p.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if got.StockQuantity != 1 {
		t.Fatalf("stock = %d, want 1", got.StockQuantity)
	}
}

func TestRefundRestoresStockOnce(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()
	p := seedProduct(t, s, 10)

	sale, err := s.CreateSale(ctx, saleFor(p, 3), false)
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	if _, err := s.RefundSale(ctx, sale.ID, "damaged"); err != nil {
		t.Fatalf("refund: %v", err)
	}
	if _, err := s.RefundSale(ctx, sale.ID, "again"); !errors.Is(err, store.ErrInvalidState) {
		t.Fatalf("double refund: got %v", err)
	}

	got, err := s.GetProduct(ctx, p.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if got.StockQuantity != 10 {
		t.Fatalf("stock = %d, want 10", got.StockQuantity)
	}
}
