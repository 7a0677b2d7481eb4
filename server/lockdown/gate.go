package lockdown

import (
	"context"

	"github.com/IMINABO1/Vault/server/apperrors"
	"github.com/IMINABO1/Vault/server/auth"
	"github.com/IMINABO1/Vault/server/logger"
	"github.com/IMINABO1/Vault/server/models"
	"github.com/IMINABO1/Vault/server/store"
	"github.com/IMINABO1/Vault/server/validation"
)

var logg = logger.NewLogger("lockdown")

var (
	ErrPinRequired = apperrors.New(apperrors.BadRequest, "PIN is required.")
	ErrPinNotSet   = apperrors.New(apperrors.NotConfigured, "No PIN has been set. Set a PIN first.")
)

type pinInput struct {
	Pin string `json:"pin" validate:"pin" message:"PIN must be 4 digits."`
}

// Gate guards leaving lockdown mode with a per-owner 4 digit PIN. Only a
// salted hash of the PIN is ever stored.
type Gate struct {
	store store.Store
	cost  int
}

func NewGate(st store.Store, bcryptCost int) *Gate {
	return &Gate{store: st, cost: bcryptCost}
}

// SetPin stores the PIN's hash, replacing any previous one.
func (g *Gate) SetPin(ctx context.Context, ownerID, pin string) error {
	if err := validation.Struct(&pinInput{Pin: pin}); err != nil {
		return err
	}

	hash, err := auth.HashSecret(pin, g.cost)
	if err != nil {
		return apperrors.Wrap(apperrors.Internal, err, apperrors.GenericFailureMessage)
	}

	err = g.store.Update(ctx, func(db *models.Database) error {
		db.Pins[ownerID] = hash
		return nil
	})
	if err != nil {
		return err
	}

	logg.Infof("Lockdown PIN set for %v", ownerID)
	return nil
}

// Verify reports whether pin matches the stored hash. A wrong PIN is a
// false result, not an error.
func (g *Gate) Verify(ctx context.Context, ownerID, pin string) (bool, error) {
	if pin == "" {
		return false, ErrPinRequired
	}

	db, err := g.store.Load(ctx)
	if err != nil {
		return false, err
	}

	hash, ok := db.Pins[ownerID]
	if !ok || hash == "" {
		return false, ErrPinNotSet
	}

	return auth.CheckSecretHash(pin, hash), nil
}
