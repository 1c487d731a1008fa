package store

import (
	"context"
	"time"

	"github.com/overklassniy/stankin-schedule/internal/profile"
)

// DeliveryDateLayout is the layout of Delivery.Date.
const DeliveryDateLayout = "2006-01-02"

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	return s.driver.Close()
}

// Migrate prepares the database schema.
func (s *Store) Migrate(ctx context.Context) error {
	return s.driver.Migrate(ctx)
}

func (s *Store) CreateDelivery(ctx context.Context, create *Delivery) (*Delivery, error) {
	if create.SentTs == 0 {
		create.SentTs = time.Now().Unix()
	}
	return s.driver.CreateDelivery(ctx, create)
}

func (s *Store) ListDeliveries(ctx context.Context, find *FindDelivery) ([]*Delivery, error) {
	return s.driver.ListDeliveries(ctx, find)
}

// HasDelivered reports whether a message of kind for date already went to chatID.
func (s *Store) HasDelivered(ctx context.Context, chatID int64, date time.Time, kind DeliveryKind) (bool, error) {
	day := date.Format(DeliveryDateLayout)
	limit := 1
	list, err := s.driver.ListDeliveries(ctx, &FindDelivery{
		ChatID: &chatID,
		Date:   &day,
		Kind:   &kind,
		Limit:  &limit,
	})
	if err != nil {
		return false, err
	}
	return len(list) > 0, nil
}

// PruneDeliveries removes deliveries sent before cutoff and returns how many went.
func (s *Store) PruneDeliveries(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.driver.DeleteDeliveries(ctx, &DeleteDelivery{SentBefore: cutoff.Unix()})
}
