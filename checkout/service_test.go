package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verdant/models"
	"verdant/payments"
)

type memCartStore struct {
	carts map[string]*models.Cart
}

func newMemCartStore() *memCartStore {
	return &memCartStore{carts: make(map[string]*models.Cart)}
}

func (m *memCartStore) Find(_ context.Context, userID string) (*models.Cart, error) {
	return m.carts[userID], nil
}

func (m *memCartStore) Clear(_ context.Context, userID string) error {
	if cart, ok := m.carts[userID]; ok {
		cart.Items = []models.CartLine{}
	}
	return nil
}

type memProductStore struct {
	products map[string]*models.Product
	// takeFails forces TakeStock to report a lost race for a product id.
	takeFails map[string]bool
	// takeErrAfter makes TakeStock error after the decrement has landed, as
	// when a follow-up write fails.
	takeErrAfter map[string]error
}

func newMemProductStore(products ...*models.Product) *memProductStore {
	m := &memProductStore{
		products:     make(map[string]*models.Product),
		takeFails:    make(map[string]bool),
		takeErrAfter: make(map[string]error),
	}
	for _, p := range products {
		m.products[p.ProductID] = p
	}
	return m
}

func (m *memProductStore) FindByID(_ context.Context, productID string) (*models.Product, error) {
	p, ok := m.products[productID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *memProductStore) TakeStock(_ context.Context, productID string, qty int) (bool, error) {
	if m.takeFails[productID] {
		return false, nil
	}
	p, ok := m.products[productID]
	if !ok || !p.IsAvailable || p.Quantity < qty {
		return false, nil
	}
	p.Quantity -= qty
	if p.Quantity == 0 {
		p.IsAvailable = false
	}
	if err := m.takeErrAfter[productID]; err != nil {
		return true, err
	}
	return true, nil
}

func (m *memProductStore) ReturnStock(_ context.Context, productID string, qty int) error {
	if p, ok := m.products[productID]; ok {
		p.Quantity += qty
		p.IsAvailable = true
	}
	return nil
}

type memOrderStore struct {
	orders    []*models.Order
	seq       int
	insertErr error
}

func (m *memOrderStore) NextOrderID(_ context.Context) (string, error) {
	m.seq++
	return fmt.Sprintf("ORD-%06d", m.seq), nil
}

func (m *memOrderStore) Insert(_ context.Context, order *models.Order) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.orders = append(m.orders, order)
	return nil
}

type fakeProvider struct {
	createCalls   int
	retrieveCalls int
	intents       map[string]*payments.ProviderIntent
	createErr     error
	lastAmount    int64
	lastCurrency  string
	lastMetadata  map[string]string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{intents: make(map[string]*payments.ProviderIntent)}
}

func (f *fakeProvider) CreateIntent(_ context.Context, amountMinor int64, currency string, metadata map[string]string) (*payments.ProviderIntent, error) {
	f.createCalls++
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.lastAmount = amountMinor
	f.lastCurrency = currency
	f.lastMetadata = metadata
	pi := &payments.ProviderIntent{
		ID:           fmt.Sprintf("pi_test_%d", f.createCalls),
		ClientSecret: fmt.Sprintf("pi_test_%d_secret", f.createCalls),
		Status:       payments.IntentStatusRequiresPayment,
		Metadata:     metadata,
	}
	f.intents[pi.ID] = pi
	return pi, nil
}

func (f *fakeProvider) RetrieveIntent(_ context.Context, id string) (*payments.ProviderIntent, error) {
	f.retrieveCalls++
	pi, ok := f.intents[id]
	if !ok {
		return nil, errors.New("no such payment_intent")
	}
	return pi, nil
}

var fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc      *Service
	carts    *memCartStore
	products *memProductStore
	orders   *memOrderStore
	provider *fakeProvider
}

// newFixture seeds two farmer-1 products and one farmer-2 product.
func newFixture(withProvider bool) *fixture {
	carts := newMemCartStore()
	products := newMemProductStore(
		&models.Product{ProductID: "p1", FarmerID: "f1", Name: "Tomatoes", Price: 100, Quantity: 5, Unit: "kg", IsAvailable: true},
		&models.Product{ProductID: "p2", FarmerID: "f1", Name: "Spinach", Price: 50, Quantity: 10, Unit: "bunch", IsAvailable: true},
		&models.Product{ProductID: "p3", FarmerID: "f2", Name: "Honey", Price: 400, Quantity: 3, Unit: "jar", IsAvailable: true},
	)
	orders := &memOrderStore{}

	var provider *fakeProvider
	var p payments.Provider
	if withProvider {
		provider = newFakeProvider()
		p = provider
	}

	svc := NewService(carts, products, orders, p)
	svc.now = func() time.Time { return fixedNow }

	return &fixture{svc: svc, carts: carts, products: products, orders: orders, provider: provider}
}

func (f *fixture) setCart(userID string, lines ...models.CartLine) {
	f.carts.carts[userID] = &models.Cart{UserID: userID, Items: lines}
}

func line(productID, name string, price float64, qty int) models.CartLine {
	return models.CartLine{ProductID: productID, Name: name, Price: price, Quantity: qty}
}

func TestCreateIntentCash(t *testing.T) {
	f := newFixture(true)
	f.setCart("u1", line("p1", "Tomatoes", 100, 2))

	intent, err := f.svc.CreatePaymentIntent(context.Background(), "u1", "cash")
	require.NoError(t, err)

	assert.Equal(t, models.IntentCash, intent.Kind)
	assert.Equal(t, payments.CashClientSecret, intent.ClientSecret)
	assert.True(t, strings.HasPrefix(intent.PaymentIntentID, "cash_"))
	assert.True(t, strings.HasSuffix(intent.PaymentIntentID, "_u1"))

	// Dry run only: no provider call, no stock movement, no order.
	assert.Zero(t, f.provider.createCalls)
	assert.Equal(t, 5, f.products.products["p1"].Quantity)
	assert.Empty(t, f.orders.orders)
}

func TestCreateIntentEmptyCart(t *testing.T) {
	f := newFixture(true)

	_, err := f.svc.CreatePaymentIntent(context.Background(), "u1", "cash")
	assert.ErrorIs(t, err, ErrEmptyCart)

	f.setCart("u1")
	_, err = f.svc.CreatePaymentIntent(context.Background(), "u1", "cash")
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestCreateIntentInsufficientStock(t *testing.T) {
	f := newFixture(true)
	f.products.products["p1"].Quantity = 1
	f.setCart("u1", line("p1", "Tomatoes", 100, 2))

	_, err := f.svc.CreatePaymentIntent(context.Background(), "u1", "cash")

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 1, stockErr.Available)
	assert.Equal(t, "Insufficient stock for Tomatoes. Only 1 available", err.Error())
	assert.Equal(t, 1, f.products.products["p1"].Quantity)
	assert.Empty(t, f.orders.orders)
}

func TestCreateIntentProductGone(t *testing.T) {
	f := newFixture(true)
	f.setCart("u1", line("deleted", "Carrots", 30, 1))

	_, err := f.svc.CreatePaymentIntent(context.Background(), "u1", "cash")

	var notFound *ProductNotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestCreateIntentProductUnavailable(t *testing.T) {
	f := newFixture(true)
	f.products.products["p1"].IsAvailable = false
	f.setCart("u1", line("p1", "Tomatoes", 100, 1))

	_, err := f.svc.CreatePaymentIntent(context.Background(), "u1", "cash")

	var unavailable *ProductUnavailableError
	assert.ErrorAs(t, err, &unavailable)
}

func TestCreateIntentValidationIsRepeatable(t *testing.T) {
	f := newFixture(true)
	f.setCart("u1", line("p1", "Tomatoes", 100, 2))

	// No state change between calls: both passes must agree.
	first, err := f.svc.CreatePaymentIntent(context.Background(), "u1", "cash")
	require.NoError(t, err)
	second, err := f.svc.CreatePaymentIntent(context.Background(), "u1", "cash")
	require.NoError(t, err)
	assert.Equal(t, first.ClientSecret, second.ClientSecret)

	f.products.products["p1"].Quantity = 1
	_, err1 := f.svc.CreatePaymentIntent(context.Background(), "u1", "cash")
	_, err2 := f.svc.CreatePaymentIntent(context.Background(), "u1", "cash")
	assert.Error(t, err1)
	assert.Equal(t, err1.Error(), err2.Error())
}

func TestCreateIntentCardWithoutProvider(t *testing.T) {
	f := newFixture(false)
	f.setCart("u1", line("p1", "Tomatoes", 100, 2))

	_, err := f.svc.CreatePaymentIntent(context.Background(), "u1", "card")
	assert.ErrorIs(t, err, ErrPaymentUnavailable)
}

func TestCreateIntentCardAmountTooSmall(t *testing.T) {
	f := newFixture(true)
	f.products.products["p2"].Price = 10
	// 10 INR → 12 cents, below the 50 cent minimum.
	f.setCart("u1", line("p2", "Spinach", 10, 1))

	_, err := f.svc.CreatePaymentIntent(context.Background(), "u1", "card")
	assert.ErrorIs(t, err, ErrAmountTooSmall)
	assert.Zero(t, f.provider.createCalls)
}

func TestCreateIntentCard(t *testing.T) {
	f := newFixture(true)
	f.setCart("u1", line("p1", "Tomatoes", 100, 2))

	intent, err := f.svc.CreatePaymentIntent(context.Background(), "u1", "card")
	require.NoError(t, err)

	assert.Equal(t, models.IntentCard, intent.Kind)
	assert.Equal(t, "pi_test_1", intent.PaymentIntentID)
	assert.Equal(t, "pi_test_1_secret", intent.ClientSecret)

	// 200 INR at 0.012 → 240 US cents.
	assert.Equal(t, int64(240), f.provider.lastAmount)
	assert.Equal(t, "usd", f.provider.lastCurrency)
	assert.Equal(t, "u1", f.provider.lastMetadata["userId"])
	assert.Equal(t, "200.00", f.provider.lastMetadata["amountInr"])
}

func TestCreateIntentProviderFailure(t *testing.T) {
	f := newFixture(true)
	f.provider.createErr = errors.New("api_connection_error")
	f.setCart("u1", line("p1", "Tomatoes", 100, 2))

	_, err := f.svc.CreatePaymentIntent(context.Background(), "u1", "card")

	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.ErrorContains(t, err, "api_connection_error")
}

func TestConfirmCashOrder(t *testing.T) {
	f := newFixture(true)
	f.setCart("u1", line("p1", "Tomatoes", 100, 2))

	intent, err := f.svc.CreatePaymentIntent(context.Background(), "u1", "cash")
	require.NoError(t, err)

	order, err := f.svc.ConfirmPayment(context.Background(), "u1", intent.PaymentIntentID, "12 Farm Lane")
	require.NoError(t, err)

	assert.Equal(t, "ORD-000001", order.OrderID)
	assert.Equal(t, "u1", order.CustomerID)
	assert.Equal(t, "f1", order.FarmerID)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, "cash", order.PaymentMethod)
	assert.Equal(t, 200.0, order.TotalAmount)
	assert.Equal(t, "12 Farm Lane", order.ShippingAddress)

	require.Len(t, order.Items, 1)
	assert.Equal(t, "Tomatoes", order.Items[0].ProductName)
	assert.Equal(t, 2, order.Items[0].Quantity)
	assert.Equal(t, 200.0, order.Items[0].Total)

	// Stock committed, cart emptied, provider never involved.
	assert.Equal(t, 3, f.products.products["p1"].Quantity)
	assert.Empty(t, f.carts.carts["u1"].Items)
	assert.Zero(t, f.provider.createCalls)
	assert.Zero(t, f.provider.retrieveCalls)
	require.Len(t, f.orders.orders, 1)
}

func TestConfirmCardOrder(t *testing.T) {
	f := newFixture(true)
	f.setCart("u1", line("p1", "Tomatoes", 100, 2), line("p2", "Spinach", 50, 4))

	intent, err := f.svc.CreatePaymentIntent(context.Background(), "u1", "card")
	require.NoError(t, err)
	f.provider.intents[intent.PaymentIntentID].Status = payments.IntentStatusSucceeded

	order, err := f.svc.ConfirmPayment(context.Background(), "u1", intent.PaymentIntentID, "12 Farm Lane")
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusConfirmed, order.Status)
	assert.Equal(t, "card", order.PaymentMethod)
	assert.Equal(t, 400.0, order.TotalAmount)
	assert.Equal(t, intent.PaymentIntentID, order.PaymentIntentID)
	assert.Equal(t, 3, f.products.products["p1"].Quantity)
	assert.Equal(t, 6, f.products.products["p2"].Quantity)
}

func TestConfirmCardNotCompleted(t *testing.T) {
	f := newFixture(true)
	f.setCart("u1", line("p1", "Tomatoes", 100, 2))

	intent, err := f.svc.CreatePaymentIntent(context.Background(), "u1", "card")
	require.NoError(t, err)
	// Status stays requires_payment_method.

	_, err = f.svc.ConfirmPayment(context.Background(), "u1", intent.PaymentIntentID, "addr")
	assert.ErrorIs(t, err, ErrPaymentNotCompleted)
	assert.Equal(t, 5, f.products.products["p1"].Quantity)
	assert.Empty(t, f.orders.orders)
}

func TestConfirmCardWrongUser(t *testing.T) {
	f := newFixture(true)
	f.setCart("u1", line("p1", "Tomatoes", 100, 2))
	f.setCart("u2", line("p2", "Spinach", 50, 1))

	intent, err := f.svc.CreatePaymentIntent(context.Background(), "u1", "card")
	require.NoError(t, err)
	f.provider.intents[intent.PaymentIntentID].Status = payments.IntentStatusSucceeded

	_, err = f.svc.ConfirmPayment(context.Background(), "u2", intent.PaymentIntentID, "addr")
	assert.ErrorIs(t, err, ErrIntentMismatch)
	assert.Empty(t, f.orders.orders)
}

func TestConfirmMultiFarmerCart(t *testing.T) {
	f := newFixture(true)
	f.setCart("u1", line("p1", "Tomatoes", 100, 1), line("p3", "Honey", 400, 1))

	intent, err := f.svc.CreatePaymentIntent(context.Background(), "u1", "cash")
	require.NoError(t, err)

	_, err = f.svc.ConfirmPayment(context.Background(), "u1", intent.PaymentIntentID, "addr")
	assert.ErrorIs(t, err, ErrMultiFarmerCart)

	assert.Empty(t, f.orders.orders)
	assert.Equal(t, 5, f.products.products["p1"].Quantity)
	assert.Equal(t, 3, f.products.products["p3"].Quantity)
	assert.NotEmpty(t, f.carts.carts["u1"].Items)
}

func TestConfirmInsufficientStock(t *testing.T) {
	f := newFixture(true)
	f.products.products["p1"].Quantity = 1
	f.setCart("u1", line("p1", "Tomatoes", 100, 2))

	_, err := f.svc.ConfirmPayment(context.Background(), "u1", "cash_123_u1", "addr")

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 1, f.products.products["p1"].Quantity)
	assert.Empty(t, f.orders.orders)
	assert.NotEmpty(t, f.carts.carts["u1"].Items)
}

func TestConfirmStockDrainsToZero(t *testing.T) {
	f := newFixture(true)
	f.setCart("u1", line("p1", "Tomatoes", 100, 5))

	_, err := f.svc.ConfirmPayment(context.Background(), "u1", "cash_123_u1", "addr")
	require.NoError(t, err)

	assert.Equal(t, 0, f.products.products["p1"].Quantity)
	assert.False(t, f.products.products["p1"].IsAvailable)
}

func TestConfirmLostRaceCompensates(t *testing.T) {
	f := newFixture(true)
	f.setCart("u1", line("p1", "Tomatoes", 100, 2), line("p2", "Spinach", 50, 3))
	// p2 passes validation but loses the conditional decrement.
	f.products.takeFails["p2"] = true

	_, err := f.svc.ConfirmPayment(context.Background(), "u1", "cash_123_u1", "addr")

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	// p1's decrement was rolled back; nothing committed.
	assert.Equal(t, 5, f.products.products["p1"].Quantity)
	assert.Equal(t, 10, f.products.products["p2"].Quantity)
	assert.Empty(t, f.orders.orders)
}

func TestConfirmErrorAfterDecrementCompensates(t *testing.T) {
	f := newFixture(true)
	f.setCart("u1", line("p1", "Tomatoes", 100, 2), line("p2", "Spinach", 50, 3))
	// p2's decrement lands but the store reports an error afterwards; both
	// lines must be put back.
	f.products.takeErrAfter["p2"] = errors.New("write concern error")

	_, err := f.svc.ConfirmPayment(context.Background(), "u1", "cash_123_u1", "addr")
	require.Error(t, err)

	assert.Equal(t, 5, f.products.products["p1"].Quantity)
	assert.Equal(t, 10, f.products.products["p2"].Quantity)
	assert.Empty(t, f.orders.orders)
	assert.NotEmpty(t, f.carts.carts["u1"].Items)
}

func TestConfirmInsertFailureRestoresStock(t *testing.T) {
	f := newFixture(true)
	f.orders.insertErr = errors.New("write failed")
	f.setCart("u1", line("p1", "Tomatoes", 100, 2))

	_, err := f.svc.ConfirmPayment(context.Background(), "u1", "cash_123_u1", "addr")
	require.Error(t, err)

	assert.Equal(t, 5, f.products.products["p1"].Quantity)
	assert.Empty(t, f.orders.orders)
	assert.NotEmpty(t, f.carts.carts["u1"].Items)
}
