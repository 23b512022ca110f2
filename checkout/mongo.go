package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"verdant/db"
	"verdant/models"
	"verdant/products"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mongo-backed stores over the shared collections.

type mongoCartStore struct {
	coll *mongo.Collection
}

func NewMongoCartStore() CartStore {
	return &mongoCartStore{coll: db.CartCollection}
}

func (s *mongoCartStore) Find(ctx context.Context, userID string) (*models.Cart, error) {
	var cart models.Cart
	err := s.coll.FindOne(ctx, bson.M{"userId": userID}).Decode(&cart)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (s *mongoCartStore) Clear(ctx context.Context, userID string) error {
	_, err := s.coll.UpdateOne(ctx, bson.M{"userId": userID}, bson.M{
		"$set": bson.M{"items": []models.CartLine{}, "updatedAt": time.Now()},
	})
	return err
}

type mongoProductStore struct {
	coll *mongo.Collection
}

func NewMongoProductStore() ProductStore {
	return &mongoProductStore{coll: db.ProductCollection}
}

func (s *mongoProductStore) FindByID(ctx context.Context, productID string) (*models.Product, error) {
	var product models.Product
	err := s.coll.FindOne(ctx, bson.M{"productid": productID}).Decode(&product)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// TakeStock is a single conditional update: the quantity check and the
// decrement are one document write, so stock cannot go negative under
// concurrent checkouts.
func (s *mongoProductStore) TakeStock(ctx context.Context, productID string, qty int) (bool, error) {
	filter := bson.M{
		"productid":   productID,
		"quantity":    bson.M{"$gte": qty},
		"isAvailable": true,
	}
	update := bson.M{
		"$inc": bson.M{"quantity": -qty},
		"$set": bson.M{"updatedAt": time.Now()},
	}
	result, err := s.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	if result.ModifiedCount == 0 {
		return false, nil
	}

	// The stock is committed at this point. The availability flip is a
	// follow-up write; a failure here must not read as a failed decrement.
	_, err = s.coll.UpdateOne(ctx,
		bson.M{"productid": productID, "quantity": 0},
		bson.M{"$set": bson.M{"isAvailable": false}},
	)
	if err != nil {
		log.Printf("TakeStock: availability flip failed for %s: %v", productID, err)
	}

	products.InvalidateCache(productID)
	return true, nil
}

func (s *mongoProductStore) ReturnStock(ctx context.Context, productID string, qty int) error {
	_, err := s.coll.UpdateOne(ctx, bson.M{"productid": productID}, bson.M{
		"$inc": bson.M{"quantity": qty},
		"$set": bson.M{"isAvailable": true, "updatedAt": time.Now()},
	})
	if err == nil {
		products.InvalidateCache(productID)
	}
	return err
}

type mongoOrderStore struct {
	orders   *mongo.Collection
	counters *mongo.Collection
}

func NewMongoOrderStore() OrderStore {
	return &mongoOrderStore{orders: db.OrderCollection, counters: db.CounterCollection}
}

// NextOrderID draws the next value from an atomic counter document, so the
// human-facing id is final at creation time.
func (s *mongoOrderStore) NextOrderID(ctx context.Context) (string, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": "orders"},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ORD-%06d", counter.Seq), nil
}

func (s *mongoOrderStore) Insert(ctx context.Context, order *models.Order) error {
	_, err := s.orders.InsertOne(ctx, order)
	return err
}
