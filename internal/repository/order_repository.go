package repository

import (
	"context"
	"time"

	"github.com/01moynul/refuel-storefront/internal/database"
	"github.com/01moynul/refuel-storefront/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// OrderRepository is the order store. Orders are never deleted.
type OrderRepository struct {
	Collection *mongo.Collection
}

func NewOrderRepository(db *mongo.Database) *OrderRepository {
	return &OrderRepository{Collection: db.Collection(database.OrdersCollection)}
}

func (r *OrderRepository) Insert(ctx context.Context, o *models.Order) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if o.ID.IsZero() {
		o.ID = primitive.NewObjectID()
	}
	if o.Date.IsZero() {
		o.Date = time.Now()
	}
	if o.Status == "" {
		o.Status = models.OrderStatusProcessing
	}

	_, err := r.Collection.InsertOne(ctx, o)
	return err
}

func (r *OrderRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var o models.Order
	if err := r.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&o); err != nil {
		return nil, notFound(err)
	}
	return &o, nil
}

func orderQuery(f models.OrderFilter) bson.M {
	query := bson.M{}
	if f.UserID != nil {
		query["user"] = *f.UserID
	}
	if f.Status != "" {
		query["status"] = f.Status
	}
	if f.Searched {
		var or bson.A
		if f.OrderID != nil {
			or = append(or, bson.M{"_id": *f.OrderID})
		}
		if len(f.UserIDs) > 0 {
			or = append(or, bson.M{"user": bson.M{"$in": f.UserIDs}})
		}
		if len(or) == 0 {
			// Nothing matched the search term; return no orders rather than all of them.
			query["_id"] = primitive.NilObjectID
		} else {
			query["$or"] = or
		}
	}
	return query
}

// List returns one page of orders, newest first, plus the total count.
func (r *OrderRepository) List(ctx context.Context, f models.OrderFilter, page Page) ([]models.Order, int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := orderQuery(f)

	total, err := r.Collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	cur, err := r.Collection.Find(ctx, query, page.findOptions().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: -1}}))
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	orders := []models.Order{}
	if err := cur.All(ctx, &orders); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// Recent returns the n newest orders.
func (r *OrderRepository) Recent(ctx context.Context, n int64) ([]models.Order, error) {
	orders, _, err := r.List(ctx, models.OrderFilter{}, Page{Number: 1, Limit: n})
	return orders, err
}

// Update applies the mutable fields of upd. Items, total and owner are never touched.
func (r *OrderRepository) Update(ctx context.Context, id primitive.ObjectID, upd models.OrderUpdate) (*models.Order, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	set := bson.M{}
	if upd.Status != nil {
		set["status"] = *upd.Status
	}
	if upd.ShippingAddress != nil {
		set["shippingAddress"] = *upd.ShippingAddress
	}
	if upd.PaymentMethod != nil {
		set["paymentMethod"] = *upd.PaymentMethod
	}
	if upd.PaymentDetails != nil {
		set["paymentDetails"] = upd.PaymentDetails
	}
	if len(set) == 0 {
		return r.GetByID(ctx, id)
	}

	var o models.Order
	err := r.Collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, afterUpdate()).Decode(&o)
	if err != nil {
		return nil, notFound(err)
	}
	return &o, nil
}

func (r *OrderRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	return r.Collection.CountDocuments(ctx, bson.M{})
}

// TotalAmounts streams the totalAmount of every order. Summing happens in the
// caller with decimal arithmetic.
func (r *OrderRepository) TotalAmounts(ctx context.Context) ([]float64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	cur, err := r.Collection.Find(ctx, bson.M{}, options.Find().SetProjection(bson.M{"totalAmount": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var amounts []float64
	for cur.Next(ctx) {
		var row struct {
			TotalAmount float64 `bson:"totalAmount"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		amounts = append(amounts, row.TotalAmount)
	}
	return amounts, cur.Err()
}
