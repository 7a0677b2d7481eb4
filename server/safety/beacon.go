package safety

import (
	"context"
	"math"

	"github.com/IMINABO1/Vault/server/apperrors"
	"github.com/IMINABO1/Vault/server/logger"
	"github.com/IMINABO1/Vault/server/models"
	"github.com/IMINABO1/Vault/server/store"
	"github.com/IMINABO1/Vault/server/work"
)

var logg = logger.NewLogger("safety")

var (
	ErrCoordinatesRequired   = apperrors.New(apperrors.ValidationError, "Location coordinates (latitude, longitude) are required.")
	ErrCoordinatesNotNumbers = apperrors.New(apperrors.ValidationError, "Latitude and longitude must be numbers.")
	ErrLatitudeOutOfRange    = apperrors.New(apperrors.ValidationError, "Latitude must be between -90 and 90.")
	ErrLongitudeOutOfRange   = apperrors.New(apperrors.ValidationError, "Longitude must be between -180 and 180.")
)

// Dispatcher queues background jobs.
type Dispatcher interface {
	Perform(job work.JobParams) error
}

type TriggerResult struct {
	Beacon models.Beacon
	// ContactsSnapshotted is how many contacts were registered when the
	// beacon fired. Delivery to them happens in the background and is not
	// reflected here.
	ContactsSnapshotted int
}

// BeaconService records emergency beacons and fans out notifications.
type BeaconService struct {
	store      store.Store
	dispatcher Dispatcher
}

func NewBeaconService(st store.Store, dispatcher Dispatcher) *BeaconService {
	return &BeaconService{store: st, dispatcher: dispatcher}
}

// ParseCoordinates checks decoded JSON values: both must be present,
// numeric and in range.
func ParseCoordinates(latitude, longitude interface{}) (models.Coordinates, error) {
	if latitude == nil || longitude == nil {
		return models.Coordinates{}, ErrCoordinatesRequired
	}

	lat, latOk := latitude.(float64)
	lng, lngOk := longitude.(float64)
	if !latOk || !lngOk {
		return models.Coordinates{}, ErrCoordinatesNotNumbers
	}

	coords := models.Coordinates{Latitude: lat, Longitude: lng}
	return coords, ValidateCoordinates(coords)
}

func ValidateCoordinates(coords models.Coordinates) error {
	if math.IsNaN(coords.Latitude) || math.IsNaN(coords.Longitude) ||
		math.IsInf(coords.Latitude, 0) || math.IsInf(coords.Longitude, 0) {
		return ErrCoordinatesNotNumbers
	}

	if coords.Latitude < -90 || coords.Latitude > 90 {
		return ErrLatitudeOutOfRange
	}

	if coords.Longitude < -180 || coords.Longitude > 180 {
		return ErrLongitudeOutOfRange
	}

	return nil
}

// Trigger persists a beacon together with a snapshot of the owner's
// contacts, then queues a notification per contact. Queueing failures
// are logged and never fail the trigger.
func (bs *BeaconService) Trigger(ctx context.Context, owner models.Owner, coords models.Coordinates) (*TriggerResult, error) {
	if err := ValidateCoordinates(coords); err != nil {
		return nil, err
	}

	beacon := models.Beacon{
		ID:          models.NewID(),
		UserID:      owner.ID,
		Latitude:    coords.Latitude,
		Longitude:   coords.Longitude,
		TriggeredAt: models.Now(),
	}

	var snapshot []models.Contact
	err := bs.store.Update(ctx, func(db *models.Database) error {
		snapshot = db.ContactsFor(owner.ID)

		beacon.ContactsNotified = make([]string, 0, len(snapshot))
		for _, contact := range snapshot {
			beacon.ContactsNotified = append(beacon.ContactsNotified, contact.ID)
		}

		db.Beacons = append(db.Beacons, beacon)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logg.Warnf("Safety beacon %v triggered by %v at (%v, %v), %d contacts",
		beacon.ID, owner.ID, beacon.Latitude, beacon.Longitude, len(snapshot))

	bs.notify(owner, beacon, snapshot)

	return &TriggerResult{Beacon: beacon, ContactsSnapshotted: len(snapshot)}, nil
}

func (bs *BeaconService) notify(owner models.Owner, beacon models.Beacon, contacts []models.Contact) {
	if bs.dispatcher == nil {
		return
	}

	for _, contact := range contacts {
		for _, job := range notificationJobs(owner, beacon, contact) {
			if err := bs.dispatcher.Perform(job); err != nil {
				logg.Errorf("unable to queue %v for contact %v: %v", job.Handler, contact.ID, err)
			}
		}
	}
}
