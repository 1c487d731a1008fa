package db

import (
	"github.com/pkg/errors"

	"github.com/overklassniy/stankin-schedule/internal/profile"
	"github.com/overklassniy/stankin-schedule/store"
	"github.com/overklassniy/stankin-schedule/store/db/sqlite"
)

// NewDBDriver creates the delivery log driver for profile.
// The delivery log is small and local to one bot, so SQLite is the only driver.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	driver, err := sqlite.NewDB(profile)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create db driver")
	}
	return driver, nil
}
