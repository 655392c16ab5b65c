package models

import (
	"time"

	"github.com/gosimple/slug"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Product is the document stored in the 'products' collection.
type Product struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name        string             `json:"name" bson:"name"`
	Slug        string             `json:"slug" bson:"slug"`
	Price       float64            `json:"price" bson:"price"`
	Image       string             `json:"image" bson:"image"`
	Category    string             `json:"category" bson:"category"`
	Stock       int                `json:"stock" bson:"stock"`
	Description string             `json:"description" bson:"description"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Reslug recomputes the URL slug from the product name.
func (p *Product) Reslug() {
	p.Slug = slug.Make(p.Name)
}

// ProductFilter describes a catalog listing query.
// Nil price bounds are open.
type ProductFilter struct {
	Search   string
	Category string
	MinPrice *float64
	MaxPrice *float64
	Sort     string
}

// Catalog sort keys accepted on GET /products.
const (
	SortPriceAsc  = "price-asc"
	SortPriceDesc = "price-desc"
	SortNameAsc   = "name-asc"
	SortNameDesc  = "name-desc"
)
