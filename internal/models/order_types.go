package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Order statuses. Any status may move to any other; no transition table is enforced.
const (
	OrderStatusProcessing = "Processing"
	OrderStatusPaid       = "Paid"
	OrderStatusShipped    = "Shipped"
	OrderStatusDelivered  = "Delivered"
	OrderStatusCancelled  = "Cancelled"
)

var orderStatuses = map[string]bool{
	OrderStatusProcessing: true,
	OrderStatusPaid:       true,
	OrderStatusShipped:    true,
	OrderStatusDelivered:  true,
	OrderStatusCancelled:  true,
}

// ValidOrderStatus reports whether s is one of the order status values.
func ValidOrderStatus(s string) bool {
	return orderStatuses[s]
}

// Order is the document stored in the 'orders' collection.
// Items are a frozen snapshot taken at checkout and never re-read from the catalog.
type Order struct {
	ID              primitive.ObjectID     `json:"id" bson:"_id,omitempty"`
	UserID          primitive.ObjectID     `json:"user" bson:"user"`
	Items           []OrderItem            `json:"items" bson:"items"`
	TotalAmount     float64                `json:"totalAmount" bson:"totalAmount"`
	ShippingAddress ShippingAddress        `json:"shippingAddress" bson:"shippingAddress"`
	PaymentMethod   string                 `json:"paymentMethod" bson:"paymentMethod"`
	PaymentDetails  map[string]interface{} `json:"paymentDetails,omitempty" bson:"paymentDetails,omitempty"`
	Status          string                 `json:"status" bson:"status"`
	Date            time.Time              `json:"date" bson:"date"`
}

// OrderItem captures product name, image and price at the time of purchase.
type OrderItem struct {
	ProductID primitive.ObjectID `json:"product" bson:"product"`
	Name      string             `json:"name" bson:"name"`
	Image     string             `json:"image" bson:"image"`
	Quantity  int                `json:"quantity" bson:"quantity"`
	Price     float64            `json:"price" bson:"price"`
}

type ShippingAddress struct {
	Address    string `json:"address" bson:"address"`
	City       string `json:"city" bson:"city"`
	State      string `json:"state,omitempty" bson:"state,omitempty"`
	PostalCode string `json:"postalCode" bson:"postalCode"`
	Country    string `json:"country" bson:"country"`
}

// DefaultShippingAddress is stored when checkout omits an address.
func DefaultShippingAddress() ShippingAddress {
	return ShippingAddress{
		Address:    "Not provided",
		City:       "Not provided",
		PostalCode: "000000",
		Country:    "India",
	}
}

// OrderFilter describes an order listing query.
// A non-nil UserID restricts the result to that customer's orders.
type OrderFilter struct {
	UserID   *primitive.ObjectID
	OrderID  *primitive.ObjectID
	UserIDs  []primitive.ObjectID
	Status   string
	Searched bool
}

// OrderUpdate carries the mutable fields of an order. Nil fields are left untouched.
type OrderUpdate struct {
	Status          *string
	ShippingAddress *ShippingAddress
	PaymentMethod   *string
	PaymentDetails  map[string]interface{}
}
