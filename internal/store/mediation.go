// ABOUTME: Mediation record persistence and filtered queries for SQLiteStore
// ABOUTME: Routing keys are stored as a JSON array column

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

const mediationColumns = `mediation_id, connection_id, state, role, routing_keys_json, endpoint, created_at, updated_at`

// SaveMediationRecord inserts or replaces a mediation record.
// CreatedAt and UpdatedAt default to now when zero.
func (s *SQLiteStore) SaveMediationRecord(ctx context.Context, rec *MediationRecord) error {
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = rec.CreatedAt
	}
	if rec.Role == "" {
		rec.Role = MediationRoleServer
	}

	keys := rec.RoutingKeys
	if keys == nil {
		keys = []string{}
	}
	keysJSON, err := json.Marshal(keys)
	if err != nil {
		return fmt.Errorf("encoding routing keys: %w", err)
	}

	query := `
		INSERT INTO mediation_records (` + mediationColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(mediation_id) DO UPDATE SET
			connection_id = excluded.connection_id,
			state = excluded.state,
			role = excluded.role,
			routing_keys_json = excluded.routing_keys_json,
			endpoint = excluded.endpoint,
			updated_at = excluded.updated_at
	`

	_, err = s.db.ExecContext(ctx, query,
		rec.MediationID,
		rec.ConnectionID,
		rec.State,
		rec.Role,
		string(keysJSON),
		nullString(rec.Endpoint),
		rec.CreatedAt.UTC().Format(time.RFC3339Nano),
		rec.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("saving mediation record: %w", err)
	}

	s.logger.Debug("saved mediation record", "mediation_id", rec.MediationID, "state", rec.State)
	return nil
}

// QueryMediationRecords returns the mediation records matching every filter
// field, in insertion order.
func (s *SQLiteStore) QueryMediationRecords(ctx context.Context, filter Filter) ([]*MediationRecord, error) {
	where, args, err := whereClause(filter, mediationFilterColumns)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + mediationColumns + ` FROM mediation_records` + where + ` ORDER BY rowid`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying mediation records: %w", err)
	}
	defer rows.Close()

	records := []*MediationRecord{}
	for rows.Next() {
		rec, err := scanMediationRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating mediation records: %w", err)
	}

	return records, nil
}

func scanMediationRecord(rows *sql.Rows) (*MediationRecord, error) {
	var (
		rec                  MediationRecord
		keysJSON             string
		endpoint             sql.NullString
		createdAt, updatedAt string
	)
	if err := rows.Scan(
		&rec.MediationID,
		&rec.ConnectionID,
		&rec.State,
		&rec.Role,
		&keysJSON,
		&endpoint,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, fmt.Errorf("scanning mediation record: %w", err)
	}

	if err := json.Unmarshal([]byte(keysJSON), &rec.RoutingKeys); err != nil {
		return nil, fmt.Errorf("decoding routing keys for %s: %w", rec.MediationID, err)
	}
	rec.Endpoint = endpoint.String

	var err error
	if rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if rec.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return &rec, nil
}
