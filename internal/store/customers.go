package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// CreateCustomer adds a customer at the end of the list.
func (s *Store) CreateCustomer(ctx context.Context, name string) (Customer, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Customer{}, errors.New("store: customer name is required")
	}
	order, err := nextSortOrder(ctx, s.db, "SELECT MAX(sort_order) FROM customers")
	if err != nil {
		return Customer{}, fmt.Errorf("store: next sort order: %w", err)
	}
	c := Customer{ID: newID(), Name: name, SortOrder: order}
	created := now()
	if _, err := s.db.ExecContext(ctx,
		"INSERT INTO customers (id, name, sort_order, created_at) VALUES (?, ?, ?, ?)",
		c.ID, c.Name, c.SortOrder, created); err != nil {
		return Customer{}, fmt.Errorf("store: insert customer: %w", err)
	}
	c.CreatedAt = parseTime(created)
	return c, nil
}

// GetCustomer loads one customer.
func (s *Store) GetCustomer(ctx context.Context, id string) (Customer, error) {
	var c Customer
	var created string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, sort_order, created_at FROM customers WHERE id = ?", id).
		Scan(&c.ID, &c.Name, &c.SortOrder, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Customer{}, fmt.Errorf("%w: customer %s", ErrNotFound, id)
	}
	if err != nil {
		return Customer{}, fmt.Errorf("store: get customer: %w", err)
	}
	c.CreatedAt = parseTime(created)
	return c, nil
}

// ListCustomers returns customers by sort order, then creation time.
func (s *Store) ListCustomers(ctx context.Context) ([]Customer, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, sort_order, created_at FROM customers ORDER BY sort_order, created_at")
	if err != nil {
		return nil, fmt.Errorf("store: list customers: %w", err)
	}
	defer rows.Close()
	var out []Customer
	for rows.Next() {
		var c Customer
		var created string
		if err := rows.Scan(&c.ID, &c.Name, &c.SortOrder, &created); err != nil {
			return nil, fmt.Errorf("store: scan customer: %w", err)
		}
		c.CreatedAt = parseTime(created)
		out = append(out, c)
	}
	return out, rows.Err()
}

// RenameCustomer changes a customer's name.
func (s *Store) RenameCustomer(ctx context.Context, id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("store: customer name is required")
	}
	res, err := s.db.ExecContext(ctx, "UPDATE customers SET name = ? WHERE id = ?", name, id)
	if err != nil {
		return fmt.Errorf("store: rename customer: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: customer %s", ErrNotFound, id)
	}
	return nil
}

// DeleteCustomer removes a customer and all of its presets.
func (s *Store) DeleteCustomer(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, "DELETE FROM presets WHERE customer_id = ?", id); err != nil {
		return fmt.Errorf("store: delete presets: %w", err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM customers WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("store: delete customer: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: customer %s", ErrNotFound, id)
	}
	return tx.Commit()
}

// ReorderCustomers sets the order to ids.
func (s *Store) ReorderCustomers(ctx context.Context, ids []string) error {
	return s.reorder(ctx, "customers", "", nil, ids)
}
