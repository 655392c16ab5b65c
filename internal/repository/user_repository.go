package repository

import (
	"context"
	"errors"
	"time"

	"github.com/01moynul/refuel-storefront/internal/database"
	"github.com/01moynul/refuel-storefront/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UserRepository is the credential store. Carts and wishlists live on the
// user document, so list writes are single-document updates.
type UserRepository struct {
	Collection *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{Collection: db.Collection(database.UsersCollection)}
}

func (r *UserRepository) Insert(ctx context.Context, u *models.User) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	now := time.Now()
	u.CreatedAt, u.UpdatedAt = now, now
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	if u.Cart == nil {
		u.Cart = models.Cart{}
	}
	if u.Wishlist == nil {
		u.Wishlist = models.Wishlist{}
	}

	if _, err := r.Collection.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateEmail
		}
		return err
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var u models.User
	if err := r.Collection.FindOne(ctx, filter).Decode(&u); err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// GetByIDs loads the given users keyed by id. Missing ids are absent from the map.
func (r *UserRepository) GetByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.User, error) {
	out := make(map[primitive.ObjectID]*models.User, len(ids))
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

	var users []models.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}
	for i := range users {
		out[users[i].ID] = &users[i]
	}
	return out, nil
}

func searchFilter(search string) bson.M {
	if search == "" {
		return bson.M{}
	}
	re := containsFold(search)
	return bson.M{"$or": bson.A{
		bson.M{"name": re},
		bson.M{"email": re},
	}}
}

// List returns one page of users matching search on name or e-mail,
// newest first, plus the total match count.
func (r *UserRepository) List(ctx context.Context, search string, page Page) ([]models.User, int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	filter := searchFilter(search)

	total, err := r.Collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	cur, err := r.Collection.Find(ctx, filter, page.findOptions().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}))
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	users := []models.User{}
	if err := cur.All(ctx, &users); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// MatchingIDs returns the ids of users whose name or e-mail contains search.
func (r *UserRepository) MatchingIDs(ctx context.Context, search string) ([]primitive.ObjectID, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	cur, err := r.Collection.Find(ctx, searchFilter(search), options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var rows []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	return ids, nil
}

func (r *UserRepository) Update(ctx context.Context, id primitive.ObjectID, upd models.UserUpdate) (*models.User, error) {
	set := bson.M{"updatedAt": time.Now()}
	if upd.Name != nil {
		set["name"] = *upd.Name
	}
	if upd.Number != nil {
		set["number"] = *upd.Number
	}
	if upd.Email != nil {
		set["email"] = *upd.Email
	}
	if upd.Blocked != nil {
		set["blocked"] = *upd.Blocked
	}
	if upd.IsAdmin != nil {
		set["isAdmin"] = *upd.IsAdmin
	}

	u, err := r.updateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if mongo.IsDuplicateKeyError(err) {
		return nil, ErrDuplicateEmail
	}
	return u, err
}

func (r *UserRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
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

func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	return r.Collection.CountDocuments(ctx, bson.M{})
}

// SetCart overwrites the whole cart. Concurrent writers race with last-write-wins.
func (r *UserRepository) SetCart(ctx context.Context, id primitive.ObjectID, cart models.Cart) (*models.User, error) {
	if cart == nil {
		cart = models.Cart{}
	}
	return r.updateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"cart": cart, "updatedAt": time.Now()}})
}

// AddCartItem increments the quantity of an existing entry, or pushes a new
// one when the product is not yet in the cart. Each step is atomic.
func (r *UserRepository) AddCartItem(ctx context.Context, id, productID primitive.ObjectID, qty int) (*models.User, error) {
	if qty < 1 {
		qty = 1
	}

	u, err := r.updateOne(ctx,
		bson.M{"_id": id, "cart.productId": productID},
		bson.M{"$inc": bson.M{"cart.$.quantity": qty}, "$set": bson.M{"updatedAt": time.Now()}},
	)
	if !errors.Is(err, ErrNotFound) {
		return u, err
	}

	// Not in the cart yet. The $ne guard keeps a concurrent push from duplicating the entry.
	u, err = r.updateOne(ctx,
		bson.M{"_id": id, "cart.productId": bson.M{"$ne": productID}},
		bson.M{
			"$push": bson.M{"cart": models.CartItem{ProductID: productID, Quantity: qty}},
			"$set":  bson.M{"updatedAt": time.Now()},
		},
	)
	if errors.Is(err, ErrNotFound) {
		// Either the user is gone, or another request pushed the product first.
		return r.updateOne(ctx,
			bson.M{"_id": id, "cart.productId": productID},
			bson.M{"$inc": bson.M{"cart.$.quantity": qty}},
		)
	}
	return u, err
}

func (r *UserRepository) RemoveCartItem(ctx context.Context, id, productID primitive.ObjectID) (*models.User, error) {
	return r.updateOne(ctx, bson.M{"_id": id}, bson.M{"$pull": bson.M{"cart": bson.M{"productId": productID}}})
}

func (r *UserRepository) SetWishlist(ctx context.Context, id primitive.ObjectID, w models.Wishlist) (*models.User, error) {
	if w == nil {
		w = models.Wishlist{}
	}
	return r.updateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"wishlist": w, "updatedAt": time.Now()}})
}

// AddWishlistItem is an atomic set-union.
func (r *UserRepository) AddWishlistItem(ctx context.Context, id, productID primitive.ObjectID) (*models.User, error) {
	return r.updateOne(ctx, bson.M{"_id": id}, bson.M{"$addToSet": bson.M{"wishlist": models.WishlistItem{ProductID: productID}}})
}

func (r *UserRepository) RemoveWishlistItem(ctx context.Context, id, productID primitive.ObjectID) (*models.User, error) {
	return r.updateOne(ctx, bson.M{"_id": id}, bson.M{"$pull": bson.M{"wishlist": bson.M{"productId": productID}}})
}

// PromoteByEmail grants the administrator flag to the account with the given
// e-mail. It is used by the one-time migration only.
func (r *UserRepository) PromoteByEmail(ctx context.Context, email string) (int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res, err := r.Collection.UpdateMany(ctx,
		bson.M{"email": email, "isAdmin": bson.M{"$ne": true}},
		bson.M{"$set": bson.M{"isAdmin": true, "updatedAt": time.Now()}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// SetPasswordHash replaces the stored bcrypt hash.
func (r *UserRepository) SetPasswordHash(ctx context.Context, id primitive.ObjectID, hash string) error {
	_, err := r.updateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"password": hash, "updatedAt": time.Now()}})
	return err
}

func (r *UserRepository) updateOne(ctx context.Context, filter, update bson.M) (*models.User, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var u models.User
	if err := r.Collection.FindOneAndUpdate(ctx, filter, update, afterUpdate()).Decode(&u); err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}
