package repository

import (
	"context"
	"sort"
	"time"

	"github.com/01moynul/refuel-storefront/internal/database"
	"github.com/01moynul/refuel-storefront/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ProductRepository is the catalog store.
type ProductRepository struct {
	Collection *mongo.Collection
}

func NewProductRepository(db *mongo.Database) *ProductRepository {
	return &ProductRepository{Collection: db.Collection(database.ProductsCollection)}
}

func (r *ProductRepository) Insert(ctx context.Context, p *models.Product) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	now := time.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	p.Reslug()

	_, err := r.Collection.InsertOne(ctx, p)
	return err
}

func (r *ProductRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var p models.Product
	if err := r.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// GetByIDs loads the given products keyed by id. Ids that no longer resolve
// are simply absent, which is how dangling cart references are detected.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.Product, error) {
	out := make(map[primitive.ObjectID]*models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	cur, err := r.Collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var products []models.Product
	if err := cur.All(ctx, &products); err != nil {
		return nil, err
	}
	for i := range products {
		out[products[i].ID] = &products[i]
	}
	return out, nil
}

// Update replaces the editable fields of a product and returns the stored record.
func (r *ProductRepository) Update(ctx context.Context, p *models.Product) (*models.Product, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	p.Reslug()
	set := bson.M{
		"name":        p.Name,
		"slug":        p.Slug,
		"price":       p.Price,
		"image":       p.Image,
		"category":    p.Category,
		"stock":       p.Stock,
		"description": p.Description,
		"updatedAt":   time.Now(),
	}

	var out models.Product
	err := r.Collection.FindOneAndUpdate(ctx, bson.M{"_id": p.ID}, bson.M{"$set": set}, afterUpdate()).Decode(&out)
	if err != nil {
		return nil, notFound(err)
	}
	return &out, nil
}

// Delete removes a product. References held by carts, wishlists and orders
// are left in place.
func (r *ProductRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res, err := r.Collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func productQuery(f models.ProductFilter) bson.M {
	query := bson.M{}
	if f.Search != "" {
		query["name"] = containsFold(f.Search)
	}
	if f.Category != "" && f.Category != "All" {
		query["category"] = f.Category
	}
	if f.MinPrice != nil || f.MaxPrice != nil {
		price := bson.M{}
		if f.MinPrice != nil {
			price["$gte"] = *f.MinPrice
		}
		if f.MaxPrice != nil {
			price["$lte"] = *f.MaxPrice
		}
		query["price"] = price
	}
	return query
}

func productSort(key string) bson.D {
	switch key {
	case models.SortPriceAsc:
		return bson.D{{Key: "price", Value: 1}, {Key: "_id", Value: -1}}
	case models.SortPriceDesc:
		return bson.D{{Key: "price", Value: -1}, {Key: "_id", Value: -1}}
	case models.SortNameAsc:
		return bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: -1}}
	case models.SortNameDesc:
		return bson.D{{Key: "name", Value: -1}, {Key: "_id", Value: -1}}
	default:
		return bson.D{{Key: "_id", Value: -1}}
	}
}

// List returns one page of products plus the total count for the same filter.
func (r *ProductRepository) List(ctx context.Context, f models.ProductFilter, page Page) ([]models.Product, int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := productQuery(f)

	total, err := r.Collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	cur, err := r.Collection.Find(ctx, query, page.findOptions().SetSort(productSort(f.Sort)))
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	products := []models.Product{}
	if err := cur.All(ctx, &products); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// Categories lists the distinct non-empty categories in name order.
func (r *ProductRepository) Categories(ctx context.Context) ([]string, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	values, err := r.Collection.Distinct(ctx, "category", bson.M{"category": bson.M{"$nin": bson.A{"", nil}}})
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (r *ProductRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	return r.Collection.CountDocuments(ctx, bson.M{})
}
