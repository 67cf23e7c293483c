// ABOUTME: Route record persistence and filtered queries for SQLiteStore
// ABOUTME: Each recipient key routes to exactly one connection

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const routeColumns = `record_id, connection_id, recipient_key, role, created_at, updated_at`

// SaveRouteRecord inserts a route record.
// Returns ErrDuplicateRecipientKey if the recipient key is already routed.
func (s *SQLiteStore) SaveRouteRecord(ctx context.Context, rec *RouteRecord) error {
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = rec.CreatedAt
	}
	if rec.Role == "" {
		rec.Role = string(MediationRoleServer)
	}

	query := `INSERT INTO route_records (` + routeColumns + `) VALUES (?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		rec.RecordID,
		rec.ConnectionID,
		rec.RecipientKey,
		rec.Role,
		rec.CreatedAt.UTC().Format(time.RFC3339Nano),
		rec.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return ErrDuplicateRecipientKey
		}
		return fmt.Errorf("saving route record: %w", err)
	}

	s.logger.Debug("saved route record", "record_id", rec.RecordID, "connection_id", rec.ConnectionID)
	return nil
}

// QueryRouteRecords returns the route records matching every filter field,
// in insertion order.
func (s *SQLiteStore) QueryRouteRecords(ctx context.Context, filter Filter) ([]*RouteRecord, error) {
	where, args, err := whereClause(filter, routeFilterColumns)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + routeColumns + ` FROM route_records` + where + ` ORDER BY rowid`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying route records: %w", err)
	}
	defer rows.Close()

	records := []*RouteRecord{}
	for rows.Next() {
		rec, err := scanRouteRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating route records: %w", err)
	}

	return records, nil
}

func scanRouteRecord(rows *sql.Rows) (*RouteRecord, error) {
	var rec RouteRecord
	var createdAt, updatedAt string
	if err := rows.Scan(
		&rec.RecordID,
		&rec.ConnectionID,
		&rec.RecipientKey,
		&rec.Role,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, fmt.Errorf("scanning route record: %w", err)
	}

	var err error
	if rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if rec.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return &rec, nil
}
