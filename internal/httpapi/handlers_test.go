package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"kudipos/backend/internal/cart"
	"kudipos/backend/internal/domain"
	"kudipos/backend/internal/report"
	"kudipos/backend/internal/service"
	"kudipos/backend/internal/store/memory"
)

type testEnv struct {
	server       *httptest.Server
	adminToken   string
	cashierToken string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repo := memory.New()
	ctx := context.Background()

	for _, u := range []struct{ name, role string }{
		{"admin", domain.RoleAdmin},
		{"cashier", domain.RoleCashier},
	} {
		hash, err := HashPassword(u.name + "-password")
		if err != nil {
			t.Fatalf("hash: %v", err)
		}
		if _, err := repo.CreateUser(ctx, domain.UserAccount{Username: u.name, PasswordHash: hash, Role: u.role}); err != nil {
			t.Fatalf("seed user: %v", err)
		}
	}

	log := logrus.New()
	log.SetOutput(io.Discard)
	svc := service.New(repo, cart.NewMemoryArena(time.Hour), report.NoopCache{}, log)
	auth := NewAuthManager(repo, strings.Repeat("s", 32), time.Hour)
	api := New(svc, auth, log)

	server := httptest.NewServer(api.Handler())
	t.Cleanup(server.Close)

	env := &testEnv{server: server}
	env.adminToken = env.login(t, "admin", "admin-password")
	env.cashierToken = env.login(t, "cashier", "cashier-password")
	return env
}

func (e *testEnv) login(t *testing.T, username, password string) string {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/api/login", "", "", map[string]string{
		"username": username,
		"password": password,
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login %s: status %d", username, resp.StatusCode)
	}
	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return body.Token
}

func (e *testEnv) do(t *testing.T, method, path, token, session string, payload any) *http.Response {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, e.server.URL+path, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if session != "" {
		req.Header.Set("X-Session-ID", session)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := e.server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return v
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/products", "", "", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("no token: status %d, want 401", resp.StatusCode)
	}

	resp = env.do(t, http.MethodGet, "/api/products", "garbage", "", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad token: status %d, want 401", resp.StatusCode)
	}
}

func TestCashierCannotCreateProducts(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/products", env.cashierToken, "", map[string]any{
		"sku": "A-001", "name": "Water", "price": 2.5,
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status %d, want 403", resp.StatusCode)
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/login", "", "", map[string]string{
		"username": "admin", "password": "nope",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", resp.StatusCode)
	}
}

func TestCartRequiresSessionHeader(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/cart", env.cashierToken, "", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", resp.StatusCode)
	}
}

func TestCheckoutFlow(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/products", env.adminToken, "", map[string]any{
		"sku": "A-001", "name": "Bottled Water", "price": 2.5, "stock_quantity": 10,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create product: status %d", resp.StatusCode)
	}
	product := decodeBody[domain.Product](t, resp)

	resp = env.do(t, http.MethodPost, "/api/cart/items", env.cashierToken, "till-1", map[string]any{
		"product_id": product.ID, "quantity": 4,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("add to cart: status %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = env.do(t, http.MethodPost, "/api/checkout", env.cashierToken, "till-1", map[string]any{
		"payment_method": "cash",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("checkout: status %d", resp.StatusCode)
	}
	checkout := decodeBody[domain.CheckoutResponse](t, resp)
	if checkout.ReceiptNumber != "R000001" {
		t.Fatalf("receipt = %q", checkout.ReceiptNumber)
	}
	if checkout.Sale.TotalAmount.String() != "10" {
		t.Fatalf("total = %s, want 10", checkout.Sale.TotalAmount)
	}

	resp = env.do(t, http.MethodGet, fmt.Sprintf("/api/sales/%d/receipt", checkout.Sale.ID), env.cashierToken, "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("receipt: status %d", resp.StatusCode)
	}
	text, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(text), "R000001") {
		t.Fatalf("receipt text missing number:\n%s", text)
	}

	resp = env.do(t, http.MethodGet, fmt.Sprintf("/api/products/%d", product.ID), env.cashierToken, "", nil)
	got := decodeBody[domain.Product](t, resp)
	if got.StockQuantity != 6 {
		t.Fatalf("stock = %d, want 6", got.StockQuantity)
	}

	// Refund is admin-only and one-way.
	refundPath := fmt.Sprintf("/api/sales/%d/refund", checkout.Sale.ID)
	resp = env.do(t, http.MethodPost, refundPath, env.cashierToken, "", map[string]string{"reason": "test"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("cashier refund: status %d, want 403", resp.StatusCode)
	}
	resp = env.do(t, http.MethodPost, refundPath, env.adminToken, "", map[string]string{"reason": "customer returned"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("refund: status %d", resp.StatusCode)
	}
	resp = env.do(t, http.MethodPost, refundPath, env.adminToken, "", map[string]string{"reason": "again"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("double refund: status %d, want 409", resp.StatusCode)
	}
}

func TestCheckoutEmptyCartRejected(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/checkout", env.cashierToken, "till-9", map[string]any{
		"payment_method": "cash",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", resp.StatusCode)
	}
}

func TestHoldAndResumeOverHTTP(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/products", env.adminToken, "", map[string]any{
		"sku": "A-001", "name": "Cola", "price": 5.0, "stock_quantity": 10,
	})
	product := decodeBody[domain.Product](t, resp)

	resp = env.do(t, http.MethodPost, "/api/cart/items", env.cashierToken, "till-1", map[string]any{
		"product_id": product.ID, "quantity": 2,
	})
	resp.Body.Close()

	resp = env.do(t, http.MethodPost, "/api/cart/hold", env.cashierToken, "till-1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("hold: status %d", resp.StatusCode)
	}
	held := decodeBody[domain.HeldCart](t, resp)

	resp = env.do(t, http.MethodPost, "/api/cart/resume", env.cashierToken, "till-1", map[string]string{
		"hold_id": held.HoldID,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("resume: status %d", resp.StatusCode)
	}
	c := decodeBody[domain.Cart](t, resp)
	if len(c.Items) != 1 || c.Items[0].Quantity != 2 {
		t.Fatalf("resumed cart = %+v", c.Items)
	}

	resp = env.do(t, http.MethodPost, "/api/cart/resume", env.cashierToken, "till-1", map[string]string{
		"hold_id": held.HoldID,
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("consumed hold: status %d, want 404", resp.StatusCode)
	}
}

func TestUserManagement(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/users", env.cashierToken, "", map[string]string{
		"username": "till2", "password": "till2-password", "role": "cashier",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("cashier create user: status %d, want 403", resp.StatusCode)
	}

	resp = env.do(t, http.MethodPost, "/api/users", env.adminToken, "", map[string]string{
		"username": "till2", "password": "till2-password", "role": "cashier",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create user: status %d", resp.StatusCode)
	}
	created := decodeBody[domain.UserAccount](t, resp)
	if created.Role != domain.RoleCashier {
		t.Fatalf("role = %q", created.Role)
	}
	_ = env.login(t, "till2", "till2-password")

	resp = env.do(t, http.MethodPost, "/api/users", env.adminToken, "", map[string]string{
		"username": "till2", "password": "another-password", "role": "cashier",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate username: status %d, want 409", resp.StatusCode)
	}

	resp = env.do(t, http.MethodGet, "/api/users", env.adminToken, "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list users: status %d", resp.StatusCode)
	}
	users := decodeBody[[]domain.UserAccount](t, resp)
	if len(users) != 3 {
		t.Fatalf("users = %d, want 3", len(users))
	}
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPut, "/api/users/password", env.cashierToken, "", map[string]string{
		"current_password": "wrong", "new_password": "fresh-password",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("wrong current password: status %d, want 401", resp.StatusCode)
	}

	resp = env.do(t, http.MethodPut, "/api/users/password", env.cashierToken, "", map[string]string{
		"current_password": "cashier-password", "new_password": "fresh-password",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("change password: status %d", resp.StatusCode)
	}

	resp = env.do(t, http.MethodPost, "/api/login", "", "", map[string]string{
		"username": "cashier", "password": "cashier-password",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("old password still accepted: status %d", resp.StatusCode)
	}
	env.login(t, "cashier", "fresh-password")
}

func TestProductLookupBySKU(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/products", env.adminToken, "", map[string]any{
		"sku": "A-001", "name": "Bottled Water", "price": 2.5, "stock_quantity": 10,
	})
	product := decodeBody[domain.Product](t, resp)

	resp = env.do(t, http.MethodGet, "/api/products/sku/A-001", env.cashierToken, "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("lookup: status %d", resp.StatusCode)
	}
	got := decodeBody[domain.Product](t, resp)
	if got.ID != product.ID {
		t.Fatalf("got product %d, want %d", got.ID, product.ID)
	}

	resp = env.do(t, http.MethodGet, "/api/products/sku/NOPE", env.cashierToken, "", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown sku: status %d, want 404", resp.StatusCode)
	}
}

func TestAttemptLimiterSweepsStaleClients(t *testing.T) {
	limiter := newAttemptLimiter(2, time.Minute)
	current := time.Now()
	limiter.now = func() time.Time { return current }

	if !limiter.allow("1.2.3.4") || !limiter.allow("1.2.3.4") {
		t.Fatal("attempts under the cap denied")
	}
	if limiter.allow("1.2.3.4") {
		t.Fatal("attempt over the cap allowed")
	}
	for i := 0; i < 50; i++ {
		limiter.allow(fmt.Sprintf("10.0.0.%d", i))
	}

	current = current.Add(2 * time.Minute)
	if !limiter.allow("1.2.3.4") {
		t.Fatal("attempt denied after the window passed")
	}
	if len(limiter.entries) != 1 {
		t.Fatalf("stale client entries retained: %d", len(limiter.entries))
	}
}

func TestCreditLedgerOverHTTP(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/customers", env.adminToken, "", map[string]string{
		"name": "Ama",
	})
	customer := decodeBody[domain.Customer](t, resp)

	path := fmt.Sprintf("/api/customers/%d/credit", customer.ID)
	resp = env.do(t, http.MethodPost, path, env.adminToken, "", map[string]any{"amount": 50})
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add credit: status %d", resp.StatusCode)
	}

	resp = env.do(t, http.MethodPost, fmt.Sprintf("/api/customers/%d/payments", customer.ID), env.adminToken, "", map[string]any{"amount": 80})
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("overpayment: status %d, want 409", resp.StatusCode)
	}
}
