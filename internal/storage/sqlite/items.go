package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jodli/geizhalsbot/internal/models"
)

// UpsertItem inserts the item if it is not stored yet
func (s *Store) UpsertItem(ctx context.Context, item models.TrackedItem) (bool, error) {
	t, err := tablesFor(item.Variant)
	if err != nil {
		return false, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, storageErr(item.Variant, item.ID, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	query := fmt.Sprintf(
		`INSERT INTO %s (%s, name, price, url) VALUES (?, ?, ?, ?) ON CONFLICT(%s) DO NOTHING`,
		t.items, t.idColumn, t.idColumn)
	res, err := tx.ExecContext(ctx, query, item.ID, item.Name, encodePrice(item.Price), item.URL)
	if err != nil {
		return false, storageErr(item.Variant, item.ID, "failed to insert item", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, storageErr(item.Variant, item.ID, "failed to read affected rows", err)
	}
	created := affected > 0

	// The first known price starts the history
	if created && item.Price.State != models.PriceUnknown {
		if err := appendHistory(ctx, tx, t, item.ID, item.Price); err != nil {
			return false, storageErr(item.Variant, item.ID, "failed to record price", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, storageErr(item.Variant, item.ID, "failed to commit item", err)
	}
	return created, nil
}

// IsItemSaved reports whether the item exists
func (s *Store) IsItemSaved(ctx context.Context, variant models.Variant, id int64) (bool, error) {
	t, err := tablesFor(variant)
	if err != nil {
		return false, err
	}

	var exists bool
	query := fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE %s = ?)`, t.items, t.idColumn)
	if err := s.db.QueryRowContext(ctx, query, id).Scan(&exists); err != nil {
		return false, storageErr(variant, id, "failed to check item", err)
	}
	return exists, nil
}

// GetItem loads a stored item
func (s *Store) GetItem(ctx context.Context, variant models.Variant, id int64) (models.TrackedItem, error) {
	t, err := tablesFor(variant)
	if err != nil {
		return models.TrackedItem{}, err
	}

	query := fmt.Sprintf(`SELECT %s, name, price, url FROM %s WHERE %s = ?`, t.idColumn, t.items, t.idColumn)
	item, err := scanItem(variant, s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.TrackedItem{}, variant.NotFoundErr()
	}
	if err != nil {
		return models.TrackedItem{}, storageErr(variant, id, "failed to load item", err)
	}
	return item, nil
}

// UpdateItemPrice stores a new price and appends it to the history
func (s *Store) UpdateItemPrice(ctx context.Context, variant models.Variant, id int64, price models.Price) error {
	return s.UpdateItem(ctx, variant, id, "", &price)
}

// UpdateItemName stores a new display name
func (s *Store) UpdateItemName(ctx context.Context, variant models.Variant, id int64, name string) error {
	return s.UpdateItem(ctx, variant, id, name, nil)
}

// UpdateItem stores a new name and price in one transaction. An empty name
// or a nil price keeps the stored value. A new price is appended to the
// history.
func (s *Store) UpdateItem(ctx context.Context, variant models.Variant, id int64, name string, price *models.Price) error {
	t, err := tablesFor(variant)
	if err != nil {
		return err
	}
	if name == "" && price == nil {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr(variant, id, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	var (
		sets []string
		args []any
	)
	if name != "" {
		sets = append(sets, "name = ?")
		args = append(args, name)
	}
	if price != nil {
		sets = append(sets, "price = ?")
		args = append(args, encodePrice(*price))
	}
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE %s SET %s WHERE %s = ?`, t.items, strings.Join(sets, ", "), t.idColumn)
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return storageErr(variant, id, "failed to update item", err)
	}
	if affected, err := res.RowsAffected(); err != nil {
		return storageErr(variant, id, "failed to read affected rows", err)
	} else if affected == 0 {
		return variant.NotFoundErr()
	}

	if price != nil && price.State != models.PriceUnknown {
		if err := appendHistory(ctx, tx, t, id, *price); err != nil {
			return storageErr(variant, id, "failed to record price", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return storageErr(variant, id, "failed to commit item", err)
	}
	return nil
}

// RemoveItem deletes an item. Subscriptions and history go with it.
func (s *Store) RemoveItem(ctx context.Context, variant models.Variant, id int64) error {
	t, err := tablesFor(variant)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = ?`, t.items, t.idColumn)
	res, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return storageErr(variant, id, "failed to delete item", err)
	}
	if affected, err := res.RowsAffected(); err != nil {
		return storageErr(variant, id, "failed to read affected rows", err)
	} else if affected == 0 {
		return variant.NotFoundErr()
	}
	return nil
}

// ListItems returns all items of a variant ordered by id
func (s *Store) ListItems(ctx context.Context, variant models.Variant) ([]models.TrackedItem, error) {
	t, err := tablesFor(variant)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s, name, price, url FROM %s ORDER BY %s`, t.idColumn, t.items, t.idColumn)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, storageErr(variant, 0, "failed to list items", err)
	}
	defer rows.Close()

	return scanItems(variant, rows)
}

// PriceHistory returns the recorded prices of an item, oldest first
func (s *Store) PriceHistory(ctx context.Context, variant models.Variant, id int64) ([]models.PricePoint, error) {
	t, err := tablesFor(variant)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT price, recorded_at FROM %s WHERE %s = ? ORDER BY recorded_at, rowid`, t.prices, t.idColumn)
	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, storageErr(variant, id, "failed to load price history", err)
	}
	defer rows.Close()

	var history []models.PricePoint
	for rows.Next() {
		var raw string
		var recordedAt int64
		if err := rows.Scan(&raw, &recordedAt); err != nil {
			return nil, storageErr(variant, id, "failed to scan price history", err)
		}
		price, err := models.ParsePrice(raw)
		if err != nil {
			return nil, storageErr(variant, id, "corrupt price in history", err)
		}
		history = append(history, models.PricePoint{
			Price:      price,
			RecordedAt: time.Unix(0, recordedAt).UTC(),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(variant, id, "failed to read price history", err)
	}
	return history, nil
}

func appendHistory(ctx context.Context, tx *sql.Tx, t tables, id int64, price models.Price) error {
	query := fmt.Sprintf(`INSERT INTO %s (%s, price, recorded_at) VALUES (?, ?, ?)`, t.prices, t.idColumn)
	_, err := tx.ExecContext(ctx, query, id, encodePrice(price), time.Now().UnixNano())
	return err
}

// encodePrice stores unknown prices as the empty string
func encodePrice(p models.Price) string {
	if p.State == models.PriceUnknown {
		return ""
	}
	return p.String()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(variant models.Variant, row rowScanner) (models.TrackedItem, error) {
	item := models.TrackedItem{Variant: variant}
	var rawPrice string
	if err := row.Scan(&item.ID, &item.Name, &rawPrice, &item.URL); err != nil {
		return models.TrackedItem{}, err
	}
	price, err := models.ParsePrice(rawPrice)
	if err != nil {
		return models.TrackedItem{}, fmt.Errorf("corrupt price %q: %w", rawPrice, err)
	}
	item.Price = price
	return item, nil
}

func scanItems(variant models.Variant, rows *sql.Rows) ([]models.TrackedItem, error) {
	var items []models.TrackedItem
	for rows.Next() {
		item, err := scanItem(variant, rows)
		if err != nil {
			return nil, storageErr(variant, 0, "failed to scan item", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(variant, 0, "failed to read items", err)
	}
	return items, nil
}
