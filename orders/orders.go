package orders

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"verdant/db"
	"verdant/models"
	"verdant/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Allowed fulfillment transitions, keyed by current status.
var transitions = map[string][]string{
	models.OrderStatusPending:   {models.OrderStatusConfirmed, models.OrderStatusCancelled},
	models.OrderStatusConfirmed: {models.OrderStatusShipped, models.OrderStatusCancelled},
	models.OrderStatusShipped:   {models.OrderStatusDelivered},
}

func canTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// GetMyOrders lists orders placed by the authenticated customer, newest
// first.
func GetMyOrders(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	listOrders(ctx, w, bson.M{"customerId": userID})
}

// GetIncomingOrders lists orders received by the authenticated farmer.
func GetIncomingOrders(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	farmerID := utils.GetUserIDFromRequest(r)
	if farmerID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	listOrders(ctx, w, bson.M{"farmerId": farmerID})
}

func listOrders(ctx context.Context, w http.ResponseWriter, filter bson.M) {
	findOptions := options.Find().SetSort(bson.M{"createdAt": -1}).SetLimit(100)
	cursor, err := db.OrderCollection.Find(ctx, filter, findOptions)
	if err != nil {
		log.Println("listOrders Find error:", err)
		http.Error(w, "Failed to fetch orders", http.StatusInternalServerError)
		return
	}
	defer cursor.Close(ctx)

	var orders []models.Order
	if err := cursor.All(ctx, &orders); err != nil {
		log.Println("listOrders decode error:", err)
		http.Error(w, "Failed to decode orders", http.StatusInternalServerError)
		return
	}
	if len(orders) == 0 {
		orders = []models.Order{}
	}

	utils.RespondWithJSON(w, http.StatusOK, orders)
}

// GetOrder returns one order to its customer or its farmer.
func GetOrder(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	order, err := loadOrderFor(ctx, ps.ByName("orderid"), userID)
	if err != nil {
		writeOrderError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, order)
}

// UpdateStatus moves an order along the fulfillment flow. Only the order's
// farmer may do this; cancellation puts the stock back.
func UpdateStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	farmerID := utils.GetUserIDFromRequest(r)
	if farmerID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	orderID := ps.ByName("orderid")

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}

	var order models.Order
	err := db.OrderCollection.FindOne(ctx, bson.M{"orderId": orderID}).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		utils.RespondWithError(w, http.StatusNotFound, "Order not found")
		return
	}
	if err != nil {
		log.Println("UpdateStatus FindOne error:", err)
		http.Error(w, "Failed to fetch order", http.StatusInternalServerError)
		return
	}
	if order.FarmerID != farmerID {
		utils.RespondWithError(w, http.StatusForbidden, "Not your order")
		return
	}
	if !canTransition(order.Status, body.Status) {
		utils.RespondWithError(w, http.StatusBadRequest,
			"Cannot move order from "+order.Status+" to "+body.Status)
		return
	}

	_, err = db.OrderCollection.UpdateOne(ctx,
		bson.M{"orderId": orderID},
		bson.M{"$set": bson.M{"status": body.Status, "updatedAt": time.Now()}},
	)
	if err != nil {
		log.Println("UpdateStatus update error:", err)
		http.Error(w, "Failed to update order", http.StatusInternalServerError)
		return
	}

	if body.Status == models.OrderStatusCancelled {
		restoreStock(ctx, order.Items)
	}

	order.Status = body.Status
	BroadcastStatus(order.OrderID, order.Status)

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"orderId": orderID, "status": body.Status})
}

// restoreStock puts cancelled quantities back on the shelf.
func restoreStock(ctx context.Context, items []models.OrderItem) {
	for _, item := range items {
		_, err := db.ProductCollection.UpdateOne(ctx,
			bson.M{"productid": item.ProductID},
			bson.M{
				"$inc": bson.M{"quantity": item.Quantity},
				"$set": bson.M{"isAvailable": true, "updatedAt": time.Now()},
			},
		)
		if err != nil {
			log.Printf("restoreStock: failed for %s: %v", item.ProductID, err)
		}
	}
}

var errOrderNotFound = errors.New("Order not found")
var errOrderForbidden = errors.New("Not your order")

// loadOrderFor fetches an order and checks the requester is a party to it.
func loadOrderFor(ctx context.Context, orderID, userID string) (*models.Order, error) {
	var order models.Order
	err := db.OrderCollection.FindOne(ctx, bson.M{"orderId": orderID}).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	if order.CustomerID != userID && order.FarmerID != userID {
		return nil, errOrderForbidden
	}
	return &order, nil
}

func writeOrderError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errOrderNotFound):
		utils.RespondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, errOrderForbidden):
		utils.RespondWithError(w, http.StatusForbidden, err.Error())
	default:
		log.Println("order error:", err)
		http.Error(w, "Failed to fetch order", http.StatusInternalServerError)
	}
}
