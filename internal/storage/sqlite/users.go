package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"github.com/jodli/geizhalsbot/internal/models"
	apperrors "github.com/jodli/geizhalsbot/pkg/errors"
)

// UpsertUser inserts the user if the id is new
func (s *Store) UpsertUser(ctx context.Context, user models.User) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (user_id, first_name, username, lang_code) VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id) DO NOTHING`,
		user.ID, user.FirstName, user.Username, user.LanguageCode)
	if err != nil {
		return false, apperrors.NewStorage(userKey(user.ID), "failed to insert user", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, apperrors.NewStorage(userKey(user.ID), "failed to read affected rows", err)
	}
	return affected > 0, nil
}

// GetUser loads a stored user
func (s *Store) GetUser(ctx context.Context, id int64) (models.User, error) {
	var user models.User
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, first_name, username, lang_code FROM users WHERE user_id = ?`, id).
		Scan(&user.ID, &user.FirstName, &user.Username, &user.LanguageCode)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, apperrors.ErrUserNotFound
	}
	if err != nil {
		return models.User{}, apperrors.NewStorage(userKey(id), "failed to load user", err)
	}
	return user, nil
}

func userKey(id int64) string {
	return "user:" + strconv.FormatInt(id, 10)
}
