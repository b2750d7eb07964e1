package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rl1809/storefront/internal/core/domain"
)

// MySQLAdapter is the hosted backend data service: remote cart store,
// product lookup, settings store, and privilege resolver.
type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

func (m *MySQLAdapter) ListByUser(ctx context.Context, userID string) ([]domain.CartLine, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT c.product_id, c.quantity, p.id, p.name, p.price, p.image_url
		FROM carts c
		JOIN products p ON p.id = c.product_id
		WHERE c.user_id = ?
		ORDER BY c.created_at, c.product_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query cart: %w", err)
	}
	defer rows.Close()

	var lines []domain.CartLine
	for rows.Next() {
		var line domain.CartLine
		if err := rows.Scan(&line.ProductID, &line.Quantity,
			&line.Product.ID, &line.Product.Name, &line.Product.Price, &line.Product.ImageURL); err != nil {
			return nil, fmt.Errorf("scan cart line: %w", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read cart rows: %w", err)
	}
	return lines, nil
}

// Insert collapses a duplicate (user_id, product_id) into a quantity
// increment so the one-line-per-product invariant holds even when two
// sessions race.
func (m *MySQLAdapter) Insert(ctx context.Context, userID, productID string, quantity int) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO carts (user_id, product_id, quantity)
		VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE quantity = quantity + VALUES(quantity)`,
		userID, productID, quantity)
	if err != nil {
		return fmt.Errorf("insert cart line: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) Update(ctx context.Context, userID, productID string, quantity int) error {
	_, err := m.db.ExecContext(ctx, `
		UPDATE carts SET quantity = ?
		WHERE user_id = ? AND product_id = ?`,
		quantity, userID, productID)
	if err != nil {
		return fmt.Errorf("update cart line: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) Delete(ctx context.Context, userID, productID string) error {
	_, err := m.db.ExecContext(ctx, `
		DELETE FROM carts WHERE user_id = ? AND product_id = ?`,
		userID, productID)
	if err != nil {
		return fmt.Errorf("delete cart line: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) DeleteAll(ctx context.Context, userID string) error {
	_, err := m.db.ExecContext(ctx, `DELETE FROM carts WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) Get(ctx context.Context, productID string) (*domain.ProductSnapshot, error) {
	var p domain.ProductSnapshot
	err := m.db.QueryRowContext(ctx, `
		SELECT id, name, price, image_url FROM products WHERE id = ?`, productID,
	).Scan(&p.ID, &p.Name, &p.Price, &p.ImageURL)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query product: %w", err)
	}
	return &p, nil
}

func (m *MySQLAdapter) Fetch(ctx context.Context, admin bool) (map[string]string, error) {
	query := `SELECT setting_key, COALESCE(setting_value, '') FROM site_settings`
	if !admin {
		query += ` WHERE is_public = 1`
	}

	rows, err := m.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query settings: %w", err)
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		settings[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read setting rows: %w", err)
	}
	return settings, nil
}

func (m *MySQLAdapter) Upsert(ctx context.Context, key, value string) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO site_settings (setting_key, setting_value)
		VALUES (?, ?)
		ON DUPLICATE KEY UPDATE setting_value = VALUES(setting_value)`,
		key, value)
	if err != nil {
		return fmt.Errorf("upsert setting: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) IsAdmin(ctx context.Context, userID string) (bool, error) {
	var count int
	err := m.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM user_roles WHERE user_id = ? AND role = 'admin'`, userID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("query role: %w", err)
	}
	return count > 0, nil
}
