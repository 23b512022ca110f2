package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"verdant/rdx"
	"verdant/utils"

	"github.com/julienschmidt/httprouter"
)

// confirmLockTTL bounds the per-user double-submit guard on confirmation.
const confirmLockTTL = 10 * time.Second

type Handler struct {
	svc    *Service
	lock   func(key string, ttl time.Duration) (bool, error)
	unlock func(key string)
}

func NewHandler(svc *Service) *Handler {
	return &Handler{
		svc: svc,
		lock: func(key string, ttl time.Duration) (bool, error) {
			return rdx.RdxSetNX(key, "1", ttl)
		},
		unlock: func(key string) {
			if err := rdx.RdxDel(key); err != nil {
				log.Println("checkout lock release failed:", err)
			}
		},
	}
}

// CreateIntent handles POST /api/checkout/payment-intent.
func (h *Handler) CreateIntent(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var body struct {
		ShippingAddress string `json:"shippingAddress"`
		PaymentMethod   string `json:"paymentMethod"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		log.Println("CreateIntent decode error:", err)
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}
	if body.PaymentMethod != "cash" && body.PaymentMethod != "card" {
		utils.RespondWithError(w, http.StatusBadRequest, "paymentMethod must be \"cash\" or \"card\"")
		return
	}

	intent, err := h.svc.CreatePaymentIntent(ctx, userID, body.PaymentMethod)
	if err != nil {
		writeCheckoutError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"clientSecret":    intent.ClientSecret,
		"paymentIntentId": intent.PaymentIntentID,
	})
}

// Confirm handles POST /api/checkout/confirm.
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var body struct {
		PaymentIntentID string `json:"paymentIntentId"`
		ShippingAddress string `json:"shippingAddress"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		log.Println("Confirm decode error:", err)
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}
	if body.PaymentIntentID == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "paymentIntentId is required")
		return
	}

	// Per-user lock against double submits while the commit is in flight. A
	// lock-store failure is an outage, not contention.
	acquired, err := h.lock("checkout_lock:"+userID, confirmLockTTL)
	if err != nil {
		log.Println("checkout lock error:", err)
		http.Error(w, "Checkout temporarily unavailable, please retry", http.StatusServiceUnavailable)
		return
	}
	if !acquired {
		http.Error(w, "Checkout already in progress, please retry", http.StatusTooManyRequests)
		return
	}
	defer h.unlock("checkout_lock:" + userID)

	order, err := h.svc.ConfirmPayment(ctx, userID, body.PaymentIntentID, body.ShippingAddress)
	if err != nil {
		writeCheckoutError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, utils.M{"order": order})
}

// writeCheckoutError maps the checkout error taxonomy onto HTTP statuses.
// The error text is surfaced verbatim to the shopper.
func writeCheckoutError(w http.ResponseWriter, err error) {
	var notFound *ProductNotFoundError
	var unavailable *ProductUnavailableError
	var stock *InsufficientStockError
	var provider *ProviderError

	switch {
	case errors.Is(err, ErrEmptyCart):
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &notFound):
		utils.RespondWithError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &unavailable), errors.As(err, &stock):
		utils.RespondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrMultiFarmerCart), errors.Is(err, ErrAmountTooSmall):
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrPaymentUnavailable):
		utils.RespondWithError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, ErrPaymentNotCompleted):
		utils.RespondWithError(w, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, ErrIntentMismatch):
		utils.RespondWithError(w, http.StatusForbidden, err.Error())
	case errors.As(err, &provider):
		utils.RespondWithError(w, http.StatusBadGateway, err.Error())
	default:
		log.Println("checkout error:", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Checkout failed")
	}
}
