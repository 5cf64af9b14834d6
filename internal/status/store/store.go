package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/coopsolar/backoffice/internal/status"
)

// Table names the table holding a status-tracked entity and the derived
// columns the transitions of that entity may write.
//
// The table must have the columns id, status, historico_status (jsonb),
// version, updated_at and deleted_at.
type Table struct {
	Name    string
	Derived []string
}

// Store implements status.Store over a single table.
type Store[S status.Value] struct {
	db    *sql.DB
	table Table
}

func New[S status.Value](db *sql.DB, table Table) *Store[S] {
	return &Store[S]{db: db, table: table}
}

// DecodeHistory parses a historico_status column value.
func DecodeHistory[S status.Value](raw []byte) ([]status.Transition[S], error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var history []status.Transition[S]
	if err := json.Unmarshal(raw, &history); err != nil {
		return nil, fmt.Errorf("decoding status history: %w", err)
	}

	return history, nil
}

// RestoreTracker rebuilds a tracker from the status and historico_status columns.
func RestoreTracker[S status.Value](current string, rawHistory []byte) (status.Tracker[S], error) {
	history, err := DecodeHistory[S](rawHistory)
	if err != nil {
		return status.Tracker[S]{}, err
	}

	return status.Restore(S(current), history)
}

// EncodeHistory renders a tracker's log for insertion into historico_status.
func EncodeHistory[S status.Value](t status.Tracker[S]) ([]byte, error) {
	history := t.History()
	if history == nil {
		history = []status.Transition[S]{}
	}

	return json.Marshal(history)
}

func (s *Store[S]) LoadStatus(ctx context.Context, id uuid.UUID) (status.Snapshot[S], error) {
	query := fmt.Sprintf(`
		SELECT status, historico_status, version
		FROM %s
		WHERE id = $1 AND deleted_at IS NULL`, s.table.Name)

	var (
		current string
		raw     []byte
		version int64
	)

	err := s.db.QueryRowContext(ctx, query, id).Scan(&current, &raw, &version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return status.Snapshot[S]{}, status.Persistence("loading status", status.ErrNotFound)
		}

		return status.Snapshot[S]{}, status.Persistence("loading status", err)
	}

	tracker, err := RestoreTracker[S](current, raw)
	if err != nil {
		return status.Snapshot[S]{}, fmt.Errorf("%s %s: %w", s.table.Name, id, err)
	}

	return status.Snapshot[S]{ID: id, Version: version, Tracker: tracker}, nil
}

// SaveTransition appends res.Appended to historico_status inside one
// conditional UPDATE keyed on the snapshot's version and status.
func (s *Store[S]) SaveTransition(ctx context.Context, snap status.Snapshot[S], res status.Result[S]) error {
	if res.NoOp() {
		return nil
	}

	entry, err := json.Marshal([]status.Transition[S]{*res.Appended})
	if err != nil {
		return fmt.Errorf("encoding transition: %w", err)
	}

	var sb strings.Builder

	fmt.Fprintf(&sb, `
		UPDATE %s
		SET status = $1,
			historico_status = COALESCE(historico_status, '[]'::jsonb) || $2::jsonb,
			version = version + 1,
			updated_at = NOW()`, s.table.Name)

	args := []any{string(res.Status), string(entry)}

	for _, c := range res.Derived {
		if !slices.Contains(s.table.Derived, c.Field) {
			return fmt.Errorf("column %q is not a derived column of %s", c.Field, s.table.Name)
		}

		args = append(args, c.Value)
		fmt.Fprintf(&sb, ",\n\t\t\t%s = $%d", c.Field, len(args))
	}

	args = append(args, snap.ID, snap.Version, string(res.Previous))
	fmt.Fprintf(&sb, `
		WHERE id = $%d AND version = $%d AND status = $%d AND deleted_at IS NULL`,
		len(args)-2, len(args)-1, len(args))

	result, err := s.db.ExecContext(ctx, sb.String(), args...)
	if err != nil {
		return status.Persistence("saving transition", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return status.Persistence("saving transition", err)
	}

	if n == 1 {
		return nil
	}

	exists, err := s.exists(ctx, snap.ID)
	if err != nil {
		return status.Persistence("saving transition", err)
	}

	if !exists {
		return status.Persistence("saving transition", status.ErrNotFound)
	}

	return status.Persistence("saving transition", status.ErrConflict)
}

func (s *Store[S]) exists(ctx context.Context, id uuid.UUID) (bool, error) {
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1 AND deleted_at IS NULL)`, s.table.Name)

	var ok bool
	if err := s.db.QueryRowContext(ctx, query, id).Scan(&ok); err != nil {
		return false, err
	}

	return ok, nil
}
