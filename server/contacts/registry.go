package contacts

import (
	"context"
	"strings"

	"github.com/IMINABO1/Vault/server/logger"
	"github.com/IMINABO1/Vault/server/models"
	"github.com/IMINABO1/Vault/server/store"
	"github.com/IMINABO1/Vault/server/validation"
)

var logg = logger.NewLogger("contacts")

type NewContact struct {
	Name         string `json:"name" validate:"not_blank" message:"Contact name is required."`
	Phone        string `json:"phone" validate:"not_blank" message:"Phone number is required."`
	Email        string `json:"email"`
	Relationship string `json:"relationship"`
}

// Registry keeps each owner's ordered list of emergency contacts.
type Registry struct {
	store store.Store
}

func NewRegistry(st store.Store) *Registry {
	return &Registry{store: st}
}

func (r *Registry) Add(ctx context.Context, ownerID string, input NewContact) (*models.Contact, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Phone = strings.TrimSpace(input.Phone)

	if err := validation.Struct(&input); err != nil {
		return nil, err
	}

	contact := models.Contact{
		ID:           models.NewID(),
		Name:         input.Name,
		Phone:        input.Phone,
		Email:        optional(input.Email),
		Relationship: optional(input.Relationship),
		CreatedAt:    models.Now(),
	}

	err := r.store.Update(ctx, func(db *models.Database) error {
		db.AddContact(ownerID, contact)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logg.Infof("Emergency contact %v added for %v", contact.ID, ownerID)
	return &contact, nil
}

// List returns the owner's contacts in insertion order, never nil.
func (r *Registry) List(ctx context.Context, ownerID string) ([]models.Contact, error) {
	db, err := r.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	return db.ContactsFor(ownerID), nil
}

// Remove reports whether the contact existed. Removing an unknown id is
// not an error.
func (r *Registry) Remove(ctx context.Context, ownerID, contactID string) (bool, error) {
	removed := false

	err := r.store.Update(ctx, func(db *models.Database) error {
		removed = db.RemoveContact(ownerID, contactID)
		return nil
	})
	if err != nil {
		return false, err
	}

	if removed {
		logg.Infof("Emergency contact %v removed for %v", contactID, ownerID)
	}
	return removed, nil
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
