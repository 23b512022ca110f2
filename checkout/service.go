package checkout

import (
	"context"
	"log"
	"strconv"
	"time"

	"verdant/models"
	"verdant/payments"
)

// CartStore loads and clears per-user carts.
type CartStore interface {
	// Find returns the user's cart, or nil when none exists.
	Find(ctx context.Context, userID string) (*models.Cart, error)
	Clear(ctx context.Context, userID string) error
}

// ProductStore reads live product state and commits stock.
type ProductStore interface {
	// FindByID returns the product, or nil when it does not exist.
	FindByID(ctx context.Context, productID string) (*models.Product, error)
	// TakeStock decrements quantity by qty only while quantity >= qty and the
	// product is available. It reports false when the condition did not hold.
	TakeStock(ctx context.Context, productID string, qty int) (bool, error)
	// ReturnStock re-increments quantity; used to compensate a partial commit.
	ReturnStock(ctx context.Context, productID string, qty int) error
}

// OrderStore persists finalized orders.
type OrderStore interface {
	NextOrderID(ctx context.Context) (string, error)
	Insert(ctx context.Context, order *models.Order) error
}

// Service runs the two-phase checkout: a dry-run validation at intent
// creation, and the authoritative re-validation plus commit at confirmation.
// All collaborators are injected; Provider may be nil when the processor is
// not configured.
type Service struct {
	carts    CartStore
	products ProductStore
	orders   OrderStore
	provider payments.Provider
	now      func() time.Time
}

func NewService(carts CartStore, products ProductStore, orders OrderStore, provider payments.Provider) *Service {
	return &Service{
		carts:    carts,
		products: products,
		orders:   orders,
		provider: provider,
		now:      time.Now,
	}
}

// CreatePaymentIntent validates the cart against live product state and
// returns a payment handle. No order is created and no stock moves here:
// stock can change before confirmation, so this pass is advisory only.
func (s *Service) CreatePaymentIntent(ctx context.Context, userID, method string) (*models.PaymentIntent, error) {
	if method == "card" && s.provider == nil {
		return nil, ErrPaymentUnavailable
	}

	cart, err := s.loadCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	_, total, err := s.validateLines(ctx, cart)
	if err != nil {
		return nil, err
	}

	if method == "cash" {
		return payments.NewCashIntent(s.now(), userID), nil
	}

	amountMinor := payments.ToSettlementMinorUnits(total)
	if amountMinor < payments.MinChargeMinorUnits {
		return nil, ErrAmountTooSmall
	}

	// The INR amount and rate ride along as metadata for audit/refund math.
	metadata := map[string]string{
		"userId":    userID,
		"amountInr": strconv.FormatFloat(total, 'f', 2, 64),
		"fxRate":    strconv.FormatFloat(payments.INRToUSDRate, 'f', -1, 64),
	}
	pi, err := s.provider.CreateIntent(ctx, amountMinor, payments.SettlementCurrency, metadata)
	if err != nil {
		return nil, &ProviderError{Err: err}
	}

	return &models.PaymentIntent{
		Kind:            models.IntentCard,
		PaymentIntentID: pi.ID,
		ClientSecret:    pi.ClientSecret,
	}, nil
}

// ConfirmPayment is the order materializer. The cart and product state at
// confirmation time are authoritative, not whatever was seen at intent
// creation.
func (s *Service) ConfirmPayment(ctx context.Context, userID, intentID, shippingAddress string) (*models.Order, error) {
	ref := payments.ParseIntentRef(intentID)

	cart, err := s.loadCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	if ref.Kind == models.IntentCard {
		if s.provider == nil {
			return nil, ErrPaymentUnavailable
		}
		pi, err := s.provider.RetrieveIntent(ctx, ref.ID)
		if err != nil {
			return nil, &ProviderError{Err: err}
		}
		if pi.Status != payments.IntentStatusSucceeded {
			return nil, ErrPaymentNotCompleted
		}
		if pi.Metadata["userId"] != userID {
			return nil, ErrIntentMismatch
		}
	}

	items, total, err := s.validateLines(ctx, cart)
	if err != nil {
		return nil, err
	}
	farmerID, err := s.singleFarmer(ctx, cart)
	if err != nil {
		return nil, err
	}

	// Commit stock line by line with conditional decrements. A line that
	// fails its condition sold out since validation; every decrement already
	// applied is returned before reporting the failure.
	taken := make([]models.CartLine, 0, len(cart.Items))
	for _, line := range cart.Items {
		ok, takeErr := s.products.TakeStock(ctx, line.ProductID, line.Quantity)
		if ok {
			// The decrement landed even if takeErr is set; count the line so a
			// failure below puts its stock back.
			taken = append(taken, line)
		}
		if takeErr != nil || !ok {
			s.releaseStock(ctx, taken)
			if takeErr != nil {
				return nil, takeErr
			}
			return nil, s.stockConflict(ctx, line)
		}
	}

	status := models.OrderStatusConfirmed
	method := "card"
	if ref.Kind == models.IntentCash {
		status = models.OrderStatusPending
		method = "cash"
	}

	orderID, err := s.orders.NextOrderID(ctx)
	if err != nil {
		s.releaseStock(ctx, taken)
		return nil, err
	}

	now := s.now()
	order := &models.Order{
		OrderID:         orderID,
		CustomerID:      userID,
		FarmerID:        farmerID,
		Items:           items,
		TotalAmount:     total,
		Status:          status,
		ShippingAddress: shippingAddress,
		PaymentMethod:   method,
		PaymentIntentID: ref.ID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.orders.Insert(ctx, order); err != nil {
		s.releaseStock(ctx, taken)
		return nil, err
	}

	// The order is committed; a failed cart clear is recoverable noise.
	if err := s.carts.Clear(ctx, userID); err != nil {
		log.Printf("ConfirmPayment: cart clear failed for user %s: %v", userID, err)
	}

	return order, nil
}

func (s *Service) loadCart(ctx context.Context, userID string) (*models.Cart, error) {
	cart, err := s.carts.Find(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart == nil || len(cart.Items) == 0 {
		return nil, ErrEmptyCart
	}
	return cart, nil
}

// validateLines re-fetches each line's product and checks existence,
// availability and stock. It returns order-item snapshots priced from live
// product state and their sum.
func (s *Service) validateLines(ctx context.Context, cart *models.Cart) ([]models.OrderItem, float64, error) {
	items := make([]models.OrderItem, 0, len(cart.Items))
	var total float64

	for _, line := range cart.Items {
		product, err := s.products.FindByID(ctx, line.ProductID)
		if err != nil {
			return nil, 0, err
		}
		if product == nil {
			return nil, 0, &ProductNotFoundError{Name: line.Name}
		}
		if !product.IsAvailable {
			return nil, 0, &ProductUnavailableError{Name: product.Name}
		}
		if product.Quantity < line.Quantity {
			return nil, 0, &InsufficientStockError{Name: product.Name, Available: product.Quantity}
		}

		lineTotal := product.Price * float64(line.Quantity)
		items = append(items, models.OrderItem{
			ProductID:   product.ProductID,
			ProductName: product.Name,
			Quantity:    line.Quantity,
			Unit:        product.Unit,
			Price:       product.Price,
			Total:       lineTotal,
		})
		total += lineTotal
	}

	return items, total, nil
}

// singleFarmer derives the order's farmer from the first line and requires
// every other line to match.
func (s *Service) singleFarmer(ctx context.Context, cart *models.Cart) (string, error) {
	var farmerID string
	for _, line := range cart.Items {
		product, err := s.products.FindByID(ctx, line.ProductID)
		if err != nil {
			return "", err
		}
		if product == nil {
			return "", &ProductNotFoundError{Name: line.Name}
		}
		if farmerID == "" {
			farmerID = product.FarmerID
			continue
		}
		if product.FarmerID != farmerID {
			return "", ErrMultiFarmerCart
		}
	}
	return farmerID, nil
}

func (s *Service) releaseStock(ctx context.Context, taken []models.CartLine) {
	for _, line := range taken {
		if err := s.products.ReturnStock(ctx, line.ProductID, line.Quantity); err != nil {
			log.Printf("releaseStock: failed to return %d of %s: %v", line.Quantity, line.ProductID, err)
		}
	}
}

// stockConflict builds the user-facing error for a line that lost its stock
// between validation and commit.
func (s *Service) stockConflict(ctx context.Context, line models.CartLine) error {
	available := 0
	if product, err := s.products.FindByID(ctx, line.ProductID); err == nil && product != nil {
		available = product.Quantity
	}
	return &InsufficientStockError{Name: line.Name, Available: available}
}
