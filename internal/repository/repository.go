// Package repository holds the MongoDB-backed stores for users, products and orders.
package repository

import (
	"context"
	"errors"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateEmail = errors.New("duplicate email")
)

const opTimeout = 5 * time.Second

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, opTimeout)
}

// Page is a 1-based page request.
type Page struct {
	Number int64
	Limit  int64
}

func (p Page) findOptions() *options.FindOptions {
	return options.Find().SetSkip((p.Number - 1) * p.Limit).SetLimit(p.Limit)
}

// containsFold builds a case-insensitive substring match. The term is
// escaped so user input is never interpreted as a pattern.
func containsFold(term string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(term), Options: "i"}
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

// afterUpdate is shared by every FindOneAndUpdate call that returns the new document.
func afterUpdate() *options.FindOneAndUpdateOptions {
	return options.FindOneAndUpdate().SetReturnDocument(options.After)
}
