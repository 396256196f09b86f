package contacts

import (
	"context"

	"github.com/ignite/bulletin-sync/internal/domain"
)

// Directory is the contact directory as seen by the import path. Every call
// after Login takes the session it returned.
type Directory interface {
	// Login authenticates with the configured credentials.
	Login(ctx context.Context) (domain.Session, error)

	// FindByEmail returns the contact with exactly this email, or nil.
	FindByEmail(ctx context.Context, sess domain.Session, email string) (*domain.ContactRecord, error)

	// Create creates a contact and returns its id.
	Create(ctx context.Context, sess domain.Session, fields domain.ContactFields) (string, error)

	// Update writes only the given fields of an existing contact.
	Update(ctx context.Context, sess domain.Session, id string, fields domain.ContactFields) error

	// FindCategoryByName returns the category with exactly this name, or nil.
	FindCategoryByName(ctx context.Context, sess domain.Session, name string) (*domain.Category, error)

	// CreateCategory creates a category and returns its id.
	CreateCategory(ctx context.Context, sess domain.Session, name string) (string, error)

	// AttachCategory adds a category to a contact. Attaching a category the
	// contact already carries must succeed without duplicating it.
	AttachCategory(ctx context.Context, sess domain.Session, contactID, categoryID string) error
}
