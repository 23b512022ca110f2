package products

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"verdant/db"
	"verdant/models"
	"verdant/rdx"
	"verdant/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type productPayload struct {
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
	Unit        string  `json:"unit"`
	FarmName    string  `json:"farmName"`
}

// CreateProduct lists a new product under the authenticated farmer.
func CreateProduct(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	farmerID := utils.GetUserIDFromRequest(r)
	if farmerID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var body productPayload
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		log.Println("CreateProduct decode error:", err)
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}
	if body.Name == "" || body.Price <= 0 || body.Quantity < 0 || body.Unit == "" {
		http.Error(w, "Missing or invalid fields", http.StatusBadRequest)
		return
	}

	now := time.Now()
	product := models.Product{
		ProductID:   utils.GetUUID(),
		FarmerID:    farmerID,
		FarmName:    body.FarmName,
		Name:        body.Name,
		Category:    body.Category,
		Description: body.Description,
		Price:       body.Price,
		Quantity:    body.Quantity,
		Unit:        body.Unit,
		IsAvailable: body.Quantity > 0,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if _, err := db.ProductCollection.InsertOne(ctx, product); err != nil {
		log.Println("CreateProduct InsertOne error:", err)
		http.Error(w, "Failed to create product", http.StatusInternalServerError)
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, product)
}

// UpdateProduct edits a farmer's own listing. Setting quantity also resyncs
// the availability flag.
func UpdateProduct(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	farmerID := utils.GetUserIDFromRequest(r)
	if farmerID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	productID := ps.ByName("productid")

	var body productPayload
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}

	update := bson.M{"updatedAt": time.Now()}
	if body.Name != "" {
		update["name"] = body.Name
	}
	if body.Category != "" {
		update["category"] = body.Category
	}
	if body.Description != "" {
		update["description"] = body.Description
	}
	if body.Price > 0 {
		update["price"] = body.Price
	}
	if body.Unit != "" {
		update["unit"] = body.Unit
	}
	if body.Quantity >= 0 {
		update["quantity"] = body.Quantity
		update["isAvailable"] = body.Quantity > 0
	}

	result, err := db.ProductCollection.UpdateOne(ctx,
		bson.M{"productid": productID, "farmerid": farmerID},
		bson.M{"$set": update},
	)
	if err != nil {
		log.Println("UpdateProduct error:", err)
		http.Error(w, "Failed to update product", http.StatusInternalServerError)
		return
	}
	if result.MatchedCount == 0 {
		utils.RespondWithError(w, http.StatusNotFound, "Product not found")
		return
	}

	InvalidateCache(productID)
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// DeleteProduct removes a farmer's own listing.
func DeleteProduct(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	farmerID := utils.GetUserIDFromRequest(r)
	if farmerID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	productID := ps.ByName("productid")

	result, err := db.ProductCollection.DeleteOne(ctx, bson.M{"productid": productID, "farmerid": farmerID})
	if err != nil {
		log.Println("DeleteProduct error:", err)
		http.Error(w, "Failed to delete product", http.StatusInternalServerError)
		return
	}
	if result.DeletedCount == 0 {
		utils.RespondWithError(w, http.StatusNotFound, "Product not found")
		return
	}

	InvalidateCache(productID)
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// GetMyProducts lists the authenticated farmer's own products, including
// out-of-stock ones.
func GetMyProducts(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	farmerID := utils.GetUserIDFromRequest(r)
	if farmerID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	cursor, err := db.ProductCollection.Find(ctx, bson.M{"farmerid": farmerID})
	if err != nil {
		http.Error(w, "Failed to fetch products", http.StatusInternalServerError)
		return
	}
	defer cursor.Close(ctx)

	var items []models.Product
	if err := cursor.All(ctx, &items); err != nil {
		http.Error(w, "Failed to decode products", http.StatusInternalServerError)
		return
	}
	if len(items) == 0 {
		items = []models.Product{}
	}

	utils.RespondWithJSON(w, http.StatusOK, items)
}

// InvalidateCache drops the cached copy of a product; callers that mutate
// quantity or availability outside this package use it too.
func InvalidateCache(productID string) {
	if err := rdx.RdxDel(cacheKey(productID)); err != nil {
		log.Println("product cache invalidation failed:", err)
	}
}

func lookupProduct(ctx context.Context, productID string) (*models.Product, error) {
	var product models.Product
	err := db.ProductCollection.FindOne(ctx, bson.M{"productid": productID}).Decode(&product)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}
