package sqlite

import (
	"context"
	"fmt"

	"github.com/jodli/geizhalsbot/internal/models"
	apperrors "github.com/jodli/geizhalsbot/pkg/errors"
)

// Subscribe links a user to an item
func (s *Store) Subscribe(ctx context.Context, userID int64, variant models.Variant, itemID int64) error {
	t, err := tablesFor(variant)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr(variant, itemID, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	var exists bool
	query := fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE %s = ?)`, t.items, t.idColumn)
	if err := tx.QueryRowContext(ctx, query, itemID).Scan(&exists); err != nil {
		return storageErr(variant, itemID, "failed to check item", err)
	}
	if !exists {
		return variant.NotFoundErr()
	}

	query = fmt.Sprintf(
		`INSERT INTO %s (%s, user_id) VALUES (?, ?) ON CONFLICT(%s, user_id) DO NOTHING`,
		t.subscribers, t.idColumn, t.idColumn)
	res, err := tx.ExecContext(ctx, query, itemID, userID)
	if err != nil {
		return storageErr(variant, itemID, "failed to subscribe", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return storageErr(variant, itemID, "failed to read affected rows", err)
	}
	if affected == 0 {
		return apperrors.ErrAlreadySubscribed
	}

	if err := tx.Commit(); err != nil {
		return storageErr(variant, itemID, "failed to commit subscription", err)
	}
	return nil
}

// Unsubscribe removes the link between a user and an item
func (s *Store) Unsubscribe(ctx context.Context, userID int64, variant models.Variant, itemID int64) error {
	t, err := tablesFor(variant)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = ? AND user_id = ?`, t.subscribers, t.idColumn)
	res, err := s.db.ExecContext(ctx, query, itemID, userID)
	if err != nil {
		return storageErr(variant, itemID, "failed to unsubscribe", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return storageErr(variant, itemID, "failed to read affected rows", err)
	}
	if affected == 0 {
		return apperrors.ErrNotSubscribed
	}
	return nil
}

// IsSubscriber reports whether the user follows the item
func (s *Store) IsSubscriber(ctx context.Context, userID int64, variant models.Variant, itemID int64) (bool, error) {
	t, err := tablesFor(variant)
	if err != nil {
		return false, err
	}

	var exists bool
	query := fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE %s = ? AND user_id = ?)`, t.subscribers, t.idColumn)
	if err := s.db.QueryRowContext(ctx, query, itemID, userID).Scan(&exists); err != nil {
		return false, storageErr(variant, itemID, "failed to check subscription", err)
	}
	return exists, nil
}

// ListSubscribers returns the ids of all users following the item
func (s *Store) ListSubscribers(ctx context.Context, variant models.Variant, itemID int64) ([]int64, error) {
	t, err := tablesFor(variant)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT user_id FROM %s WHERE %s = ? ORDER BY user_id`, t.subscribers, t.idColumn)
	rows, err := s.db.QueryContext(ctx, query, itemID)
	if err != nil {
		return nil, storageErr(variant, itemID, "failed to list subscribers", err)
	}
	defer rows.Close()

	var userIDs []int64
	for rows.Next() {
		var userID int64
		if err := rows.Scan(&userID); err != nil {
			return nil, storageErr(variant, itemID, "failed to scan subscriber", err)
		}
		userIDs = append(userIDs, userID)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(variant, itemID, "failed to read subscribers", err)
	}
	return userIDs, nil
}

// CountSubscriptions returns how many items of a variant the user follows
func (s *Store) CountSubscriptions(ctx context.Context, userID int64, variant models.Variant) (int, error) {
	t, err := tablesFor(variant)
	if err != nil {
		return 0, err
	}

	var count int
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE user_id = ?`, t.subscribers)
	if err := s.db.QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		return 0, storageErr(variant, 0, "failed to count subscriptions", err)
	}
	return count, nil
}

// ListItemsForUser returns the items of a variant the user follows
func (s *Store) ListItemsForUser(ctx context.Context, userID int64, variant models.Variant) ([]models.TrackedItem, error) {
	t, err := tablesFor(variant)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(
		`SELECT i.%s, i.name, i.price, i.url FROM %s i
		 JOIN %s s ON s.%s = i.%s
		 WHERE s.user_id = ?
		 ORDER BY i.%s`,
		t.idColumn, t.items, t.subscribers, t.idColumn, t.idColumn, t.idColumn)
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, storageErr(variant, 0, "failed to list user items", err)
	}
	defer rows.Close()

	return scanItems(variant, rows)
}
