// Package repository declares the storage contracts used by the service
// layer. Implementations live in the sqlite and postgres subpackages.
//
// Error contract for every implementation:
//   - a missing row (or a row owned by someone else) is apperror.ErrNotFound
//   - a unique-constraint violation is apperror.ErrConflict
//   - anything else is wrapped and treated as internal
package repository

import (
	"context"

	"github.com/sakif/contact-book/internal/model"
	"github.com/sakif/contact-book/internal/pagination"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
	// Delete removes the user and every contact they own.
	Delete(ctx context.Context, id string) error
}

// ContactRepository methods are all scoped to an owner: a contact belonging
// to another owner is indistinguishable from one that does not exist.
type ContactRepository interface {
	Create(ctx context.Context, contact *model.Contact) error
	GetByID(ctx context.Context, ownerID, id string) (*model.Contact, error)
	GetByEmail(ctx context.Context, ownerID, email string) (*model.Contact, error)
	Update(ctx context.Context, contact *model.Contact) error
	Delete(ctx context.Context, ownerID, id string) error
	// List returns one page of the owner's contacts plus the total number
	// of contacts matching q.Search. q must already be normalized.
	List(ctx context.Context, ownerID string, q pagination.Query) ([]model.Contact, int, error)
}
