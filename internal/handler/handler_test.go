package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anditama/go-shop-backend/internal/domain/auth"
	"github.com/anditama/go-shop-backend/internal/domain/order"
	"github.com/anditama/go-shop-backend/internal/domain/payment"
	"github.com/anditama/go-shop-backend/internal/domain/product"
	"github.com/anditama/go-shop-backend/internal/domain/user"
	"github.com/anditama/go-shop-backend/internal/midtrans"
)

// --- In-memory backing state shared by all fakes ---

type memState struct {
	users    map[int64]*user.User
	products map[int64]*product.Product
	orders   map[int64]*order.Order
	items    map[int64]*order.Item

	nextUserID    int64
	nextProductID int64
	nextOrderID   int64
	nextItemID    int64
}

func newMemState() *memState {
	return &memState{
		users:    make(map[int64]*user.User),
		products: make(map[int64]*product.Product),
		orders:   make(map[int64]*order.Order),
		items:    make(map[int64]*order.Item),
	}
}

type memUsers struct{ st *memState }

func (r *memUsers) Create(_ context.Context, u *user.User) error {
	for _, existing := range r.st.users {
		if existing.Email == u.Email {
			return user.ErrEmailTaken
		}
	}
	r.st.nextUserID++
	u.ID = r.st.nextUserID
	u.CreatedAt = time.Now()
	r.st.users[u.ID] = u
	return nil
}

func (r *memUsers) GetByID(_ context.Context, id int64) (*user.User, error) {
	u, ok := r.st.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return u, nil
}

func (r *memUsers) GetByEmail(_ context.Context, email string) (*user.User, error) {
	for _, u := range r.st.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, user.ErrNotFound
}

type memProducts struct{ st *memState }

func (r *memProducts) List(_ context.Context) ([]product.Product, error) {
	out := make([]product.Product, 0, len(r.st.products))
	for _, p := range r.st.products {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memProducts) GetByID(_ context.Context, id int64) (*product.Product, error) {
	p, ok := r.st.products[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memProducts) Create(_ context.Context, p *product.Product) error {
	r.st.nextProductID++
	p.ID = r.st.nextProductID
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	cp := *p
	r.st.products[p.ID] = &cp
	return nil
}

func (r *memProducts) Update(_ context.Context, p *product.Product) error {
	if _, ok := r.st.products[p.ID]; !ok {
		return product.ErrNotFound
	}
	cp := *p
	r.st.products[p.ID] = &cp
	return nil
}

func (r *memProducts) Delete(_ context.Context, id int64) error {
	if _, ok := r.st.products[id]; !ok {
		return product.ErrNotFound
	}
	delete(r.st.products, id)
	return nil
}

type memStore struct{ st *memState }

func (s *memStore) CreateOrder(_ context.Context, o *order.Order) error {
	s.st.nextOrderID++
	o.ID = s.st.nextOrderID
	o.CreatedAt = time.Now()
	cp := *o
	s.st.orders[o.ID] = &cp
	return nil
}

func (s *memStore) loadOrder(o *order.Order) *order.Order {
	cp := *o
	cp.Items = nil
	for _, it := range s.st.items {
		if it.OrderID == o.ID {
			cp.Items = append(cp.Items, *it)
		}
	}
	sort.Slice(cp.Items, func(i, j int) bool { return cp.Items[i].ID < cp.Items[j].ID })
	return &cp
}

func (s *memStore) OwnedOrderForUpdate(_ context.Context, id, userID int64) (*order.Order, error) {
	o, ok := s.st.orders[id]
	if !ok || o.UserID != userID {
		return nil, order.ErrNotFound
	}
	return s.loadOrder(o), nil
}

func (s *memStore) OrderByPaymentRef(_ context.Context, ref string) (*order.Order, error) {
	for _, o := range s.st.orders {
		if o.PaymentRef == ref {
			return s.loadOrder(o), nil
		}
	}
	return nil, order.ErrNotFound
}

func (s *memStore) SetOrderStatus(_ context.Context, id int64, st order.Status, ps order.PaymentStatus) error {
	o, ok := s.st.orders[id]
	if !ok {
		return order.ErrNotFound
	}
	o.Status = st
	o.PaymentStatus = ps
	return nil
}

func (s *memStore) SetPaymentSession(_ context.Context, id int64, snapToken, paymentRef string, total decimal.Decimal) error {
	o, ok := s.st.orders[id]
	if !ok {
		return order.ErrNotFound
	}
	o.SnapToken = snapToken
	o.PaymentRef = paymentRef
	o.TotalAmount = total
	return nil
}

func (s *memStore) SetPaymentResult(_ context.Context, id int64, paymentType, transactionID string) error {
	o, ok := s.st.orders[id]
	if !ok {
		return order.ErrNotFound
	}
	o.PaymentType = paymentType
	o.TransactionID = transactionID
	return nil
}

func (s *memStore) DeleteOrder(_ context.Context, id int64) error {
	delete(s.st.orders, id)
	for itemID, it := range s.st.items {
		if it.OrderID == id {
			delete(s.st.items, itemID)
		}
	}
	return nil
}

func (s *memStore) ProductForUpdate(_ context.Context, productID int64) (*product.Product, error) {
	p, ok := s.st.products[productID]
	if !ok {
		return nil, product.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *memStore) ReserveStock(_ context.Context, productID int64, qty int) error {
	p := s.st.products[productID]
	if p.Stock < qty {
		return &order.InsufficientStockError{
			ProductID: p.ID, Product: p.Name, Available: p.Stock, Requested: qty,
		}
	}
	p.Stock -= qty
	return nil
}

func (s *memStore) ReleaseStock(_ context.Context, productID int64, qty int) error {
	s.st.products[productID].Stock += qty
	return nil
}

func (s *memStore) AddItem(_ context.Context, it *order.Item) error {
	s.st.nextItemID++
	it.ID = s.st.nextItemID
	it.CreatedAt = time.Now()
	cp := *it
	s.st.items[it.ID] = &cp
	return nil
}

func (s *memStore) OwnedItemForUpdate(_ context.Context, itemID, userID int64) (*order.Item, error) {
	it, ok := s.st.items[itemID]
	if !ok {
		return nil, order.ErrItemNotFound
	}
	if o, ok := s.st.orders[it.OrderID]; !ok || o.UserID != userID {
		return nil, order.ErrItemNotFound
	}
	cp := *it
	return &cp, nil
}

func (s *memStore) UpdateItemQuantity(_ context.Context, itemID int64, qty int, subtotal decimal.Decimal) error {
	it, ok := s.st.items[itemID]
	if !ok {
		return order.ErrItemNotFound
	}
	it.Quantity = qty
	it.Subtotal = subtotal
	return nil
}

func (s *memStore) DeleteItem(_ context.Context, itemID int64) error {
	delete(s.st.items, itemID)
	return nil
}

// No rollback here: handler tests only exercise commit paths and error paths
// whose writes happen before the failing statement is reached.
type memUOW struct{ store *memStore }

func (u *memUOW) Within(ctx context.Context, fn func(context.Context, order.Store) error) error {
	return fn(ctx, u.store)
}

type memOrderRepo struct{ store *memStore }

func (r *memOrderRepo) ListByUser(_ context.Context, userID int64) ([]order.Order, error) {
	var out []order.Order
	for _, o := range r.store.st.orders {
		if o.UserID == userID {
			out = append(out, *r.store.loadOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *memOrderRepo) GetOwned(ctx context.Context, id, userID int64) (*order.Order, error) {
	return r.store.OwnedOrderForUpdate(ctx, id, userID)
}

func (r *memOrderRepo) ListItemsByUser(_ context.Context, userID int64) ([]order.Item, error) {
	var out []order.Item
	for _, it := range r.store.st.items {
		if o, ok := r.store.st.orders[it.OrderID]; ok && o.UserID == userID {
			out = append(out, *it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memOrderRepo) ListItemsByOrder(_ context.Context, orderID, userID int64) ([]order.Item, error) {
	o, ok := r.store.st.orders[orderID]
	if !ok || o.UserID != userID {
		return nil, order.ErrNotFound
	}
	var out []order.Item
	for _, it := range r.store.st.items {
		if it.OrderID == orderID {
			out = append(out, *it)
		}
	}
	return out, nil
}

func (r *memOrderRepo) GetItemOwned(ctx context.Context, itemID, userID int64) (*order.Item, error) {
	return r.store.OwnedItemForUpdate(ctx, itemID, userID)
}

type stubGateway struct{}

func (stubGateway) CreateSession(_ context.Context, req order.SessionRequest) (*order.PaymentSession, error) {
	return &order.PaymentSession{
		Token:       "tok-" + req.OrderRef,
		RedirectURL: "https://pay.example.com/tok-" + req.OrderRef,
	}, nil
}

// --- Test server ---

const serverKey = "test-server-key"

type testEnv struct {
	srv *httptest.Server
	st  *memState
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st := newMemState()
	users := &memUsers{st: st}
	products := &memProducts{st: st}
	store := &memStore{st: st}
	uow := &memUOW{store: store}

	authSvc := auth.NewService(users, []byte("test-secret"), time.Hour)
	orderSvc := order.NewService(uow, &memOrderRepo{store: store}, products, users, stubGateway{})
	reconciler := payment.NewReconciler(uow, midtrans.NewSignatureVerifier(serverKey))

	r := chi.NewRouter()
	r.Route("/api", New(authSvc, orderSvc, products, reconciler).Routes)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, st: st}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (*http.Response, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp, env
}

func (e *testEnv) registerUser(t *testing.T) string {
	t.Helper()
	resp, env := e.do(t, http.MethodPost, "/api/register", "", map[string]string{
		"name":     "Budi",
		"email":    fmt.Sprintf("budi%d@example.com", len(e.st.users)+1),
		"password": "sup3rsecret",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	data := env.Data.(map[string]any)
	return data["token"].(string)
}

func (e *testEnv) addProduct(name string, price string, stock int) int64 {
	e.st.nextProductID++
	id := e.st.nextProductID
	e.st.products[id] = &product.Product{
		ID: id, Name: name, Price: decimal.RequireFromString(price), Stock: stock,
	}
	return id
}

// --- Auth ---

func TestRegisterLoginFlow(t *testing.T) {
	e := newTestEnv(t)

	resp, env := e.do(t, http.MethodPost, "/api/register", "", map[string]string{
		"name": "Budi", "email": "budi@example.com", "password": "sup3rsecret",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.True(t, env.Success)
	token := env.Data.(map[string]any)["token"].(string)

	// Token works on a protected route.
	resp, env = e.do(t, http.MethodGet, "/api/user", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "budi@example.com", env.Data.(map[string]any)["email"])

	// Login succeeds with the right password, fails with the wrong one.
	resp, _ = e.do(t, http.MethodPost, "/api/login", "", map[string]string{
		"email": "budi@example.com", "password": "sup3rsecret",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, env = e.do(t, http.MethodPost, "/api/login", "", map[string]string{
		"email": "budi@example.com", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.False(t, env.Success)
}

func TestRegister_Validation(t *testing.T) {
	e := newTestEnv(t)

	resp, env := e.do(t, http.MethodPost, "/api/register", "", map[string]string{
		"name": "", "email": "nope", "password": "short",
	})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	fields := env.Errors.(map[string]any)
	assert.Contains(t, fields, "name")
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "password")
}

func TestRegister_DuplicateEmail(t *testing.T) {
	e := newTestEnv(t)
	body := map[string]string{"name": "Budi", "email": "budi@example.com", "password": "sup3rsecret"}

	resp, _ := e.do(t, http.MethodPost, "/api/register", "", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, env := e.do(t, http.MethodPost, "/api/register", "", body)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, env.Errors.(map[string]any), "email")
}

func TestProtectedRoutes_RequireToken(t *testing.T) {
	e := newTestEnv(t)

	resp, _ := e.do(t, http.MethodGet, "/api/products", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = e.do(t, http.MethodGet, "/api/products", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

// --- Products ---

func TestProductCRUD(t *testing.T) {
	e := newTestEnv(t)
	token := e.registerUser(t)

	resp, env := e.do(t, http.MethodPost, "/api/products", token, map[string]any{
		"name": "Widget", "description": "A widget", "price": 10.5, "stock": 7,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := env.Data.(map[string]any)
	assert.Equal(t, "Widget", created["name"])
	assert.Equal(t, 10.5, created["price"])
	id := int64(created["id"].(float64))

	resp, env = e.do(t, http.MethodGet, fmt.Sprintf("/api/products/%d", id), token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(7), env.Data.(map[string]any)["stock"])

	resp, _ = e.do(t, http.MethodPut, fmt.Sprintf("/api/products/%d", id), token, map[string]any{
		"name": "Widget v2", "price": 12.0, "stock": 9,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, env = e.do(t, http.MethodGet, "/api/products", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := env.Data.([]any)
	require.Len(t, list, 1)
	assert.Equal(t, "Widget v2", list[0].(map[string]any)["name"])

	resp, _ = e.do(t, http.MethodDelete, fmt.Sprintf("/api/products/%d", id), token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = e.do(t, http.MethodGet, fmt.Sprintf("/api/products/%d", id), token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateProduct_Validation(t *testing.T) {
	e := newTestEnv(t)
	token := e.registerUser(t)

	resp, env := e.do(t, http.MethodPost, "/api/products", token, map[string]any{
		"name": "", "price": -1.0, "stock": -2,
	})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	fields := env.Errors.(map[string]any)
	assert.Contains(t, fields, "name")
	assert.Contains(t, fields, "price")
	assert.Contains(t, fields, "stock")
}

// --- Checkout and orders ---

func TestCheckoutFlow(t *testing.T) {
	e := newTestEnv(t)
	token := e.registerUser(t)
	p1 := e.addProduct("Widget", "10.00", 5)
	p2 := e.addProduct("Gadget", "25.50", 3)

	resp, env := e.do(t, http.MethodPost, "/api/checkout", token, map[string]any{
		"items": []map[string]any{
			{"product_id": p1, "quantity": 2},
			{"product_id": p2, "quantity": 1},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	data := env.Data.(map[string]any)
	o := data["order"].(map[string]any)
	assert.Equal(t, "pending", o["status"])
	assert.Equal(t, "unpaid", o["payment_status"])
	assert.Equal(t, 45.5, o["total_price"])
	assert.Len(t, o["items"].([]any), 2)

	pay := data["payment"].(map[string]any)
	assert.NotEmpty(t, pay["snap_token"])
	assert.NotEmpty(t, pay["payment_url"])

	// Stock decremented.
	assert.Equal(t, 3, e.st.products[p1].Stock)
	assert.Equal(t, 2, e.st.products[p2].Stock)
}

func TestCheckout_InsufficientStock(t *testing.T) {
	e := newTestEnv(t)
	token := e.registerUser(t)
	p1 := e.addProduct("Widget", "10.00", 1)

	resp, env := e.do(t, http.MethodPost, "/api/checkout", token, map[string]any{
		"items": []map[string]any{{"product_id": p1, "quantity": 5}},
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.False(t, env.Success)
	assert.Contains(t, env.Message, "insufficient stock")
}

func TestCheckout_EmptyItems(t *testing.T) {
	e := newTestEnv(t)
	token := e.registerUser(t)

	resp, env := e.do(t, http.MethodPost, "/api/checkout", token, map[string]any{
		"items": []map[string]any{},
	})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, env.Errors.(map[string]any), "items")
}

func TestCheckoutSummary(t *testing.T) {
	e := newTestEnv(t)
	token := e.registerUser(t)
	p1 := e.addProduct("Widget", "10.00", 2)

	resp, env := e.do(t, http.MethodPost, "/api/checkout/summary", token, map[string]any{
		"items": []map[string]any{{"product_id": p1, "quantity": 5}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data := env.Data.(map[string]any)
	assert.Equal(t, 50.0, data["total_price"])
	line := data["items"].([]any)[0].(map[string]any)
	assert.Equal(t, false, line["stock_sufficient"])

	// Dry run: stock untouched, no order created.
	assert.Equal(t, 2, e.st.products[p1].Stock)
	assert.Empty(t, e.st.orders)
}

func (e *testEnv) checkout(t *testing.T, token string, productID int64, qty int) int64 {
	t.Helper()
	resp, env := e.do(t, http.MethodPost, "/api/checkout", token, map[string]any{
		"items": []map[string]any{{"product_id": productID, "quantity": qty}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	o := env.Data.(map[string]any)["order"].(map[string]any)
	return int64(o["id"].(float64))
}

func TestCancelOrder(t *testing.T) {
	e := newTestEnv(t)
	token := e.registerUser(t)
	p1 := e.addProduct("Widget", "10.00", 5)
	orderID := e.checkout(t, token, p1, 3)

	resp, env := e.do(t, http.MethodPost, fmt.Sprintf("/api/orders/%d/cancel", orderID), token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	o := env.Data.(map[string]any)
	assert.Equal(t, "cancelled", o["status"])
	assert.Equal(t, "failed", o["payment_status"])
	assert.Equal(t, 5, e.st.products[p1].Stock)
}

func TestCompletePaymentAndGuards(t *testing.T) {
	e := newTestEnv(t)
	token := e.registerUser(t)
	p1 := e.addProduct("Widget", "10.00", 5)
	orderID := e.checkout(t, token, p1, 1)

	resp, env := e.do(t, http.MethodPost, fmt.Sprintf("/api/payment/%d/complete", orderID), token,
		map[string]string{"payment_type": "bank_transfer", "transaction_id": "txn-1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	o := env.Data.(map[string]any)
	assert.Equal(t, "completed", o["status"])
	assert.Equal(t, "paid", o["payment_status"])
	assert.Equal(t, "bank_transfer", o["payment_type"])

	// Completing again is rejected.
	resp, _ = e.do(t, http.MethodPost, fmt.Sprintf("/api/payment/%d/complete", orderID), token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// So is cancelling a paid order.
	resp, _ = e.do(t, http.MethodPost, fmt.Sprintf("/api/orders/%d/cancel", orderID), token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Payment status endpoint reflects the result.
	resp, env = e.do(t, http.MethodGet, fmt.Sprintf("/api/payment/%d/status", orderID), token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "paid", env.Data.(map[string]any)["payment_status"])
}

func TestOrderOwnershipScoping(t *testing.T) {
	e := newTestEnv(t)
	alice := e.registerUser(t)
	bob := e.registerUser(t)
	p1 := e.addProduct("Widget", "10.00", 5)
	orderID := e.checkout(t, alice, p1, 1)

	resp, _ := e.do(t, http.MethodGet, fmt.Sprintf("/api/orders/%d", orderID), bob, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, env := e.do(t, http.MethodGet, "/api/orders", bob, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, env.Data)
}

func TestDeleteOrder_ReleasesStock(t *testing.T) {
	e := newTestEnv(t)
	token := e.registerUser(t)
	p1 := e.addProduct("Widget", "10.00", 5)
	orderID := e.checkout(t, token, p1, 2)
	require.Equal(t, 3, e.st.products[p1].Stock)

	resp, _ := e.do(t, http.MethodDelete, fmt.Sprintf("/api/orders/%d", orderID), token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 5, e.st.products[p1].Stock)
	assert.Empty(t, e.st.orders)
}

// --- Order items ---

func TestOrderItemEndpoints(t *testing.T) {
	e := newTestEnv(t)
	token := e.registerUser(t)
	p1 := e.addProduct("Widget", "10.00", 10)
	p2 := e.addProduct("Gadget", "25.50", 10)
	orderID := e.checkout(t, token, p1, 1)

	resp, env := e.do(t, http.MethodPost, "/api/order-items", token, map[string]any{
		"order_id": orderID, "product_id": p2, "quantity": 2,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	itemID := int64(env.Data.(map[string]any)["id"].(float64))
	assert.Equal(t, 8, e.st.products[p2].Stock)

	resp, env = e.do(t, http.MethodPut, fmt.Sprintf("/api/order-items/%d", itemID), token,
		map[string]any{"quantity": 4})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 102.0, env.Data.(map[string]any)["subtotal"])
	assert.Equal(t, 6, e.st.products[p2].Stock)

	resp, env = e.do(t, http.MethodGet, fmt.Sprintf("/api/order-items?order_id=%d", orderID), token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, env.Data.([]any), 2)

	resp, _ = e.do(t, http.MethodDelete, fmt.Sprintf("/api/order-items/%d", itemID), token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 10, e.st.products[p2].Stock)
}

// --- Webhook ---

func webhookPayload(ref, status string) map[string]any {
	return map[string]any{
		"order_id":           ref,
		"status_code":        "200",
		"gross_amount":       "10.00",
		"transaction_status": status,
		"fraud_status":       "accept",
		"payment_type":       "qris",
		"transaction_id":     "txn-hook",
		"signature_key":      midtrans.Signature(ref, "200", "10.00", serverKey),
	}
}

func TestWebhook_SettlementMarksPaid(t *testing.T) {
	e := newTestEnv(t)
	token := e.registerUser(t)
	p1 := e.addProduct("Widget", "10.00", 5)
	orderID := e.checkout(t, token, p1, 1)
	ref := e.st.orders[orderID].PaymentRef

	resp, _ := e.do(t, http.MethodPost, "/api/webhooks/midtrans", "", webhookPayload(ref, "settlement"))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, order.StatusCompleted, e.st.orders[orderID].Status)
	assert.Equal(t, order.PaymentPaid, e.st.orders[orderID].PaymentStatus)
	assert.Equal(t, "qris", e.st.orders[orderID].PaymentType)
}

func TestWebhook_ExpireReleasesStock(t *testing.T) {
	e := newTestEnv(t)
	token := e.registerUser(t)
	p1 := e.addProduct("Widget", "10.00", 5)
	orderID := e.checkout(t, token, p1, 2)
	require.Equal(t, 3, e.st.products[p1].Stock)
	ref := e.st.orders[orderID].PaymentRef

	resp, _ := e.do(t, http.MethodPost, "/api/webhooks/midtrans", "", webhookPayload(ref, "expire"))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, order.StatusCancelled, e.st.orders[orderID].Status)
	assert.Equal(t, 5, e.st.products[p1].Stock)

	// Replaying the same notification never releases stock twice.
	resp, _ = e.do(t, http.MethodPost, "/api/webhooks/midtrans", "", webhookPayload(ref, "expire"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 5, e.st.products[p1].Stock)
}

func TestWebhook_BadSignature(t *testing.T) {
	e := newTestEnv(t)
	token := e.registerUser(t)
	p1 := e.addProduct("Widget", "10.00", 5)
	orderID := e.checkout(t, token, p1, 1)
	ref := e.st.orders[orderID].PaymentRef

	payload := webhookPayload(ref, "settlement")
	payload["signature_key"] = "forged"

	resp, env := e.do(t, http.MethodPost, "/api/webhooks/midtrans", "", payload)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.False(t, env.Success)
	assert.Equal(t, order.PaymentUnpaid, e.st.orders[orderID].PaymentStatus)
}

func TestWebhook_UnknownRef(t *testing.T) {
	e := newTestEnv(t)

	resp, _ := e.do(t, http.MethodPost, "/api/webhooks/midtrans", "", webhookPayload("nope", "settlement"))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
