package db

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/almanac/internal/model"
)

const userColumns = `id, email, hashed_password, name, is_superuser, is_active, can_publish, created_at, updated_at`

// inserts new user into table, returns new user ID.
func (s *pgStore) CreateUser(ctx context.Context, email, hashedPassword string, name *string) (int, error) {
	query := `
	INSERT INTO users (email, hashed_password, name, created_at, updated_at)
	VALUES ($1, $2, $3, now(), now())
	RETURNING id;
	`
	var newID int
	if err := s.db.QueryRowContext(ctx, query, email, hashedPassword, name).Scan(&newID); err != nil {
		log.Error().Err(err).Str("email", email).Msg("failed to create user")
		return 0, err
	}
	return newID, nil
}

// fetches user by email. returns model.ErrNotFound if missing.
func (s *pgStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1;`
	if err := s.db.GetContext(ctx, &u, query, email); err != nil {
		err = mapError(err)
		if !errors.Is(err, model.ErrNotFound) {
			log.Error().Err(err).Msg("failed to get user by email")
		}
		return nil, err
	}
	return &u, nil
}

// fetches a user by ID. returns model.ErrNotFound if missing.
func (s *pgStore) GetUserByID(ctx context.Context, id int) (*model.User, error) {
	var u model.User
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1;`
	if err := s.db.GetContext(ctx, &u, query, id); err != nil {
		err = mapError(err)
		if !errors.Is(err, model.ErrNotFound) {
			log.Error().Err(err).Int("user_id", id).Msg("failed to get user by id")
		}
		return nil, err
	}
	return &u, nil
}

// updates a user's email and name, and bumps updated_at.
func (s *pgStore) UpdateUserProfile(ctx context.Context, id int, email string, name *string) error {
	query := `
	UPDATE users
	   SET email = $2,
	       name = $3,
	       updated_at = now()
	 WHERE id = $1;
	`
	res, err := s.db.ExecContext(ctx, query, id, email, name)
	if err != nil {
		log.Error().Err(err).Int("user_id", id).Msg("failed to update user profile - exec")
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		log.Error().Err(err).Msg("failed to update user profile - rows affected")
		return err
	}
	if rows == 0 {
		return model.ErrNotFound
	}
	return nil
}
