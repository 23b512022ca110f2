package products

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"verdant/db"
	"verdant/models"
	"verdant/rdx"
	"verdant/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const cacheTTL = 60 * time.Second

func cacheKey(productID string) string {
	return "product:" + productID
}

// ListProducts is the public catalog listing with search, category filter,
// sorting and pagination.
func ListProducts(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	search := r.URL.Query().Get("search")
	category := r.URL.Query().Get("category")
	sortParam := r.URL.Query().Get("sort")

	limit := int64(20)
	offset := int64(0)
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 && l <= 100 {
		limit = int64(l)
	}
	if o, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && o >= 0 {
		offset = int64(o)
	}

	filter := bson.M{"isAvailable": true}
	if category != "" {
		filter["category"] = category
	}
	if search != "" {
		filter["name"] = bson.M{"$regex": primitive.Regex{Pattern: search, Options: "i"}}
	}

	sort := bson.D{{Key: "name", Value: 1}} // default
	switch sortParam {
	case "price_asc":
		sort = bson.D{{Key: "price", Value: 1}}
	case "price_desc":
		sort = bson.D{{Key: "price", Value: -1}}
	case "newest":
		sort = bson.D{{Key: "createdAt", Value: -1}}
	case "name_desc":
		sort = bson.D{{Key: "name", Value: -1}}
	}

	findOptions := options.Find().
		SetLimit(limit).
		SetSkip(offset).
		SetSort(sort)

	cursor, err := db.ProductCollection.Find(ctx, filter, findOptions)
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

	count, err := db.ProductCollection.CountDocuments(ctx, filter)
	if err != nil {
		http.Error(w, "Failed to count products", http.StatusInternalServerError)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"items": items,
		"total": count,
	})
}

// GetProduct returns one product, served from the redis cache when fresh.
func GetProduct(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	productID := ps.ByName("productid")

	if cached, err := rdx.RdxGet(cacheKey(productID)); err == nil && cached != "" {
		var product models.Product
		if err := json.Unmarshal([]byte(cached), &product); err == nil {
			utils.RespondWithJSON(w, http.StatusOK, product)
			return
		}
	}

	product, err := lookupProduct(ctx, productID)
	if err != nil {
		log.Println("GetProduct lookup error:", err)
		http.Error(w, "Failed to fetch product", http.StatusInternalServerError)
		return
	}
	if product == nil {
		utils.RespondWithError(w, http.StatusNotFound, "Product not found")
		return
	}

	if data, err := json.Marshal(product); err == nil {
		if err := rdx.RdxSet(cacheKey(productID), string(data), cacheTTL); err != nil {
			log.Println("product cache write failed:", err)
		}
	}

	utils.RespondWithJSON(w, http.StatusOK, product)
}
