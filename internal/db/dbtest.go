package db

import (
	"errors"
	"os"
)

var TestStore Store

// InitTestDB connects to TEST_DATABASE_URL and migrates it. Integration tests
// skip themselves when it returns an error.
func InitTestDB() error {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		return errors.New("TEST_DATABASE_URL environment variable is not set")
	}

	if err := Init(dbURL); err != nil {
		return err
	}

	if err := RunMigrations(dbURL); err != nil {
		return err
	}

	TestStore = NewStore(DB)
	return nil
}

// ResetTestDB empties every table the store writes to.
func ResetTestDB() error {
	_, err := DB.Exec(`TRUNCATE events, recurrence_rules, items, users RESTART IDENTITY CASCADE;`)
	return err
}
