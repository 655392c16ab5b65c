package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// CartItem is one embedded cart entry on a user document.
type CartItem struct {
	ProductID primitive.ObjectID `json:"productId" bson:"productId"`
	Quantity  int                `json:"quantity" bson:"quantity"`
}

// WishlistItem is one embedded wishlist entry on a user document.
type WishlistItem struct {
	ProductID primitive.ObjectID `json:"productId" bson:"productId"`
}

// Cart is an unordered list of product references with quantities.
// A product appears at most once.
type Cart []CartItem

// Wishlist is a set of product references.
type Wishlist []WishlistItem

// Add increments the entry for id by qty, or appends a new entry.
// qty < 1 is treated as 1.
func (c Cart) Add(id primitive.ObjectID, qty int) Cart {
	if qty < 1 {
		qty = 1
	}
	for i := range c {
		if c[i].ProductID == id {
			c[i].Quantity += qty
			return c
		}
	}
	return append(c, CartItem{ProductID: id, Quantity: qty})
}

// Decrement reduces the entry for id by one and drops it once it reaches zero.
func (c Cart) Decrement(id primitive.ObjectID) Cart {
	out := c[:0]
	for _, item := range c {
		if item.ProductID == id {
			item.Quantity--
		}
		if item.Quantity > 0 {
			out = append(out, item)
		}
	}
	return out
}

// Remove drops the entry for id.
func (c Cart) Remove(id primitive.ObjectID) Cart {
	out := c[:0]
	for _, item := range c {
		if item.ProductID != id {
			out = append(out, item)
		}
	}
	return out
}

// Clone returns a copy that does not share the backing array.
func (c Cart) Clone() Cart {
	out := make(Cart, len(c))
	copy(out, c)
	return out
}

// ProductIDs lists the referenced products in cart order.
func (c Cart) ProductIDs() []primitive.ObjectID {
	ids := make([]primitive.ObjectID, 0, len(c))
	for _, item := range c {
		ids = append(ids, item.ProductID)
	}
	return ids
}

// Contains reports whether id is in the wishlist.
func (w Wishlist) Contains(id primitive.ObjectID) bool {
	for _, item := range w {
		if item.ProductID == id {
			return true
		}
	}
	return false
}

// Add is a set-union. The second result is false when id was already present.
func (w Wishlist) Add(id primitive.ObjectID) (Wishlist, bool) {
	if w.Contains(id) {
		return w, false
	}
	return append(w, WishlistItem{ProductID: id}), true
}

// Remove drops id from the wishlist.
func (w Wishlist) Remove(id primitive.ObjectID) Wishlist {
	out := w[:0]
	for _, item := range w {
		if item.ProductID != id {
			out = append(out, item)
		}
	}
	return out
}

// Toggle removes id if present and adds it otherwise.
func (w Wishlist) Toggle(id primitive.ObjectID) Wishlist {
	if w.Contains(id) {
		return w.Remove(id)
	}
	next, _ := w.Add(id)
	return next
}

func (w Wishlist) Clone() Wishlist {
	out := make(Wishlist, len(w))
	copy(out, w)
	return out
}

func (w Wishlist) ProductIDs() []primitive.ObjectID {
	ids := make([]primitive.ObjectID, 0, len(w))
	for _, item := range w {
		ids = append(ids, item.ProductID)
	}
	return ids
}

// CartEntryInput is a client-supplied cart entry whose product reference
// has not been validated yet.
type CartEntryInput struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// WishlistEntryInput is a client-supplied wishlist entry.
type WishlistEntryInput struct {
	ProductID string `json:"productId"`
}

// SanitizeCart converts client entries into a Cart. Entries whose product
// reference is not a valid ObjectID are silently dropped, duplicate references
// are merged and quantities below one become one.
func SanitizeCart(in []CartEntryInput) Cart {
	out := make(Cart, 0, len(in))
	for _, entry := range in {
		id, err := primitive.ObjectIDFromHex(entry.ProductID)
		if err != nil {
			continue
		}
		out = out.Add(id, entry.Quantity)
	}
	return out
}

// SanitizeWishlist converts client entries into a Wishlist, dropping invalid
// references and duplicates.
func SanitizeWishlist(in []WishlistEntryInput) Wishlist {
	out := make(Wishlist, 0, len(in))
	for _, entry := range in {
		id, err := primitive.ObjectIDFromHex(entry.ProductID)
		if err != nil {
			continue
		}
		out, _ = out.Add(id)
	}
	return out
}

// PopulatedCartItem is a cart entry joined with its live product.
type PopulatedCartItem struct {
	Product  *Product `json:"productId"`
	Quantity int      `json:"quantity"`
}

// PopulatedWishlistItem is a wishlist entry joined with its live product.
type PopulatedWishlistItem struct {
	Product *Product `json:"productId"`
}

// PopulateCart joins cart entries with products. Entries whose product no
// longer exists are omitted. The result is never nil.
func PopulateCart(c Cart, products map[primitive.ObjectID]*Product) []PopulatedCartItem {
	out := make([]PopulatedCartItem, 0, len(c))
	for _, item := range c {
		p, ok := products[item.ProductID]
		if !ok || p == nil {
			continue
		}
		out = append(out, PopulatedCartItem{Product: p, Quantity: item.Quantity})
	}
	return out
}

// PopulateWishlist joins wishlist entries with products, omitting dangling ones.
func PopulateWishlist(w Wishlist, products map[primitive.ObjectID]*Product) []PopulatedWishlistItem {
	out := make([]PopulatedWishlistItem, 0, len(w))
	for _, item := range w {
		p, ok := products[item.ProductID]
		if !ok || p == nil {
			continue
		}
		out = append(out, PopulatedWishlistItem{Product: p})
	}
	return out
}
