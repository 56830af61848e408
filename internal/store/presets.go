package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

const presetColumns = "id, customer_id, name, goal, issues, tasks, sort_order, created_at"

type scanner interface {
	Scan(dest ...any) error
}

func scanPreset(row scanner) (Preset, error) {
	var p Preset
	var created string
	if err := row.Scan(&p.ID, &p.CustomerID, &p.Name, &p.Goal, &p.Issues, &p.Tasks, &p.SortOrder, &created); err != nil {
		return Preset{}, err
	}
	p.CreatedAt = parseTime(created)
	return p, nil
}

// CreatePreset adds a preset at the end of the customer's list. ID,
// SortOrder and CreatedAt are assigned here.
func (s *Store) CreatePreset(ctx context.Context, p Preset) (Preset, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return Preset{}, errors.New("store: preset name is required")
	}
	if _, err := s.GetCustomer(ctx, p.CustomerID); err != nil {
		return Preset{}, err
	}
	order, err := nextSortOrder(ctx, s.db, "SELECT MAX(sort_order) FROM presets WHERE customer_id = ?", p.CustomerID)
	if err != nil {
		return Preset{}, fmt.Errorf("store: next sort order: %w", err)
	}
	p.ID = newID()
	p.SortOrder = order
	created := now()
	if _, err := s.db.ExecContext(ctx,
		"INSERT INTO presets ("+presetColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		p.ID, p.CustomerID, p.Name, p.Goal, p.Issues, p.Tasks, p.SortOrder, created); err != nil {
		return Preset{}, fmt.Errorf("store: insert preset: %w", err)
	}
	p.CreatedAt = parseTime(created)
	return p, nil
}

// GetPreset loads one preset.
func (s *Store) GetPreset(ctx context.Context, id string) (Preset, error) {
	p, err := scanPreset(s.db.QueryRowContext(ctx, "SELECT "+presetColumns+" FROM presets WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return Preset{}, fmt.Errorf("%w: preset %s", ErrNotFound, id)
	}
	if err != nil {
		return Preset{}, fmt.Errorf("store: get preset: %w", err)
	}
	return p, nil
}

// ListPresets returns a customer's presets in order.
func (s *Store) ListPresets(ctx context.Context, customerID string) ([]Preset, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+presetColumns+" FROM presets WHERE customer_id = ? ORDER BY sort_order, created_at", customerID)
	if err != nil {
		return nil, fmt.Errorf("store: list presets: %w", err)
	}
	defer rows.Close()
	var out []Preset
	for rows.Next() {
		p, err := scanPreset(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan preset: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdatePreset overwrites name, goal, issues and tasks.
func (s *Store) UpdatePreset(ctx context.Context, p Preset) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return errors.New("store: preset name is required")
	}
	res, err := s.db.ExecContext(ctx,
		"UPDATE presets SET name = ?, goal = ?, issues = ?, tasks = ? WHERE id = ?",
		p.Name, p.Goal, p.Issues, p.Tasks, p.ID)
	if err != nil {
		return fmt.Errorf("store: update preset: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: preset %s", ErrNotFound, p.ID)
	}
	return nil
}

// DeletePreset removes one preset.
func (s *Store) DeletePreset(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM presets WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("store: delete preset: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: preset %s", ErrNotFound, id)
	}
	return nil
}

// ReorderPresets sets the order of a customer's presets to ids.
func (s *Store) ReorderPresets(ctx context.Context, customerID string, ids []string) error {
	return s.reorder(ctx, "presets", " AND customer_id = ?", []any{customerID}, ids)
}
