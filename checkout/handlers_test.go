package checkout

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verdant/globals"
	"verdant/models"
)

func confirmRequest(userID, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/checkout/confirm", strings.NewReader(body))
	ctx := context.WithValue(req.Context(), globals.UserIDKey, userID)
	return req.WithContext(ctx)
}

// testHandler wires a handler over the in-memory fixture with a controllable
// lock.
func testHandler(f *fixture, lockOK bool, lockErr error) (*Handler, *[]string) {
	released := &[]string{}
	h := &Handler{
		svc: f.svc,
		lock: func(key string, _ time.Duration) (bool, error) {
			return lockOK, lockErr
		},
		unlock: func(key string) {
			*released = append(*released, key)
		},
	}
	return h, released
}

func TestConfirmLockStoreDown(t *testing.T) {
	f := newFixture(true)
	f.setCart("u1", line("p1", "Tomatoes", 100, 2))
	h, released := testHandler(f, false, errors.New("connection refused"))

	rec := httptest.NewRecorder()
	h.Confirm(rec, confirmRequest("u1", `{"paymentIntentId":"cash_123_u1"}`), nil)

	// An outage is not contention; nothing was committed.
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, 5, f.products.products["p1"].Quantity)
	assert.Empty(t, f.orders.orders)
	assert.Empty(t, *released)
}

func TestConfirmLockHeld(t *testing.T) {
	f := newFixture(true)
	f.setCart("u1", line("p1", "Tomatoes", 100, 2))
	h, released := testHandler(f, false, nil)

	rec := httptest.NewRecorder()
	h.Confirm(rec, confirmRequest("u1", `{"paymentIntentId":"cash_123_u1"}`), nil)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Empty(t, f.orders.orders)
	assert.Empty(t, *released)
}

func TestConfirmReleasesLock(t *testing.T) {
	f := newFixture(true)
	f.setCart("u1", line("p1", "Tomatoes", 100, 2))
	h, released := testHandler(f, true, nil)

	rec := httptest.NewRecorder()
	h.Confirm(rec, confirmRequest("u1", `{"paymentIntentId":"cash_123_u1","shippingAddress":"12 Farm Lane"}`), nil)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, f.orders.orders, 1)
	assert.Equal(t, models.OrderStatusPending, f.orders.orders[0].Status)
	assert.Equal(t, []string{"checkout_lock:u1"}, *released)
}
