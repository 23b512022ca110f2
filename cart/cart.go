package cart

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

// AddToCart merges a line into the user's cart document, snapshotting the
// product's current name/price/unit. Quantities accumulate for repeat adds.
func AddToCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var body struct {
		ProductID string `json:"productId"`
		Quantity  int    `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		log.Println("AddToCart decode error:", err)
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}
	if body.ProductID == "" || body.Quantity <= 0 {
		http.Error(w, "Missing or invalid fields", http.StatusBadRequest)
		return
	}

	var product models.Product
	err := db.ProductCollection.FindOne(ctx, bson.M{"productid": body.ProductID}).Decode(&product)
	if errors.Is(err, mongo.ErrNoDocuments) {
		utils.RespondWithError(w, http.StatusNotFound, "Product not found")
		return
	}
	if err != nil {
		log.Println("AddToCart product lookup error:", err)
		http.Error(w, "Failed to add to cart", http.StatusInternalServerError)
		return
	}
	if !product.IsAvailable {
		utils.RespondWithError(w, http.StatusConflict, product.Name+" is currently unavailable")
		return
	}

	// Bump the existing line if present, otherwise push a new snapshot.
	result, err := db.CartCollection.UpdateOne(ctx,
		bson.M{"userId": userID, "items.productid": body.ProductID},
		bson.M{
			"$inc": bson.M{"items.$.quantity": body.Quantity},
			"$set": bson.M{"updatedAt": time.Now()},
		},
	)
	if err != nil {
		log.Println("AddToCart UpdateOne error:", err)
		http.Error(w, "Failed to add to cart", http.StatusInternalServerError)
		return
	}
	if result.MatchedCount == 0 {
		line := models.CartLine{
			ProductID: product.ProductID,
			Name:      product.Name,
			Price:     product.Price,
			Quantity:  body.Quantity,
			Unit:      product.Unit,
			FarmerID:  product.FarmerID,
		}
		_, err = db.CartCollection.UpdateOne(ctx,
			bson.M{"userId": userID},
			bson.M{
				"$push": bson.M{"items": line},
				"$set":  bson.M{"updatedAt": time.Now()},
			},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			log.Println("AddToCart push error:", err)
			http.Error(w, "Failed to add to cart", http.StatusInternalServerError)
			return
		}
	}

	utils.RespondWithJSON(w, http.StatusCreated, map[string]string{"status": "added"})
}

// GetCart returns the user's cart, creating nothing; an absent cart reads as
// empty.
func GetCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var cart models.Cart
	err := db.CartCollection.FindOne(ctx, bson.M{"userId": userID}).Decode(&cart)
	if errors.Is(err, mongo.ErrNoDocuments) {
		cart = models.Cart{UserID: userID, Items: []models.CartLine{}}
	} else if err != nil {
		log.Println("GetCart FindOne error:", err)
		http.Error(w, "Could not retrieve cart", http.StatusInternalServerError)
		return
	}
	if cart.Items == nil {
		cart.Items = []models.CartLine{}
	}

	utils.RespondWithJSON(w, http.StatusOK, cart)
}

// UpdateLine sets the quantity of one cart line; quantity 0 removes it.
func UpdateLine(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	productID := ps.ByName("productid")

	var body struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Quantity < 0 {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}

	if body.Quantity == 0 {
		removeLine(ctx, w, userID, productID)
		return
	}

	result, err := db.CartCollection.UpdateOne(ctx,
		bson.M{"userId": userID, "items.productid": productID},
		bson.M{
			"$set": bson.M{"items.$.quantity": body.Quantity, "updatedAt": time.Now()},
		},
	)
	if err != nil {
		log.Println("UpdateLine error:", err)
		http.Error(w, "Failed to update cart", http.StatusInternalServerError)
		return
	}
	if result.MatchedCount == 0 {
		utils.RespondWithError(w, http.StatusNotFound, "Item not in cart")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// RemoveLine deletes one line from the cart.
func RemoveLine(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	removeLine(ctx, w, userID, ps.ByName("productid"))
}

func removeLine(ctx context.Context, w http.ResponseWriter, userID, productID string) {
	_, err := db.CartCollection.UpdateOne(ctx,
		bson.M{"userId": userID},
		bson.M{
			"$pull": bson.M{"items": bson.M{"productid": productID}},
			"$set":  bson.M{"updatedAt": time.Now()},
		},
	)
	if err != nil {
		log.Println("removeLine error:", err)
		http.Error(w, "Failed to update cart", http.StatusInternalServerError)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

// ClearCart empties the cart without deleting the document.
func ClearCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if _, err := db.CartCollection.UpdateOne(ctx,
		bson.M{"userId": userID},
		bson.M{"$set": bson.M{"items": []models.CartLine{}, "updatedAt": time.Now()}},
	); err != nil {
		log.Println("ClearCart error:", err)
		http.Error(w, "Failed to clear cart", http.StatusInternalServerError)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}
