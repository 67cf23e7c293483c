// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows tests to run without SQLite and to count record queries

package store

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// MockStore is an in-memory Store implementation for testing.
// Records are kept in insertion order.
type MockStore struct {
	mu        sync.RWMutex
	mediation []*MediationRecord
	routes    []*RouteRecord
	roles     map[string]map[RoleName]struct{} // keyed by "subjectType:subjectID"

	mediationQueries atomic.Int64
	routeQueries     atomic.Int64

	// QueryErr, when set, is returned by every record query
	QueryErr error
}

var _ Store = (*MockStore)(nil)

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		roles: make(map[string]map[RoleName]struct{}),
	}
}

// SaveMediationRecord stores a copy of the record, replacing one with the same ID.
func (m *MockStore) SaveMediationRecord(ctx context.Context, rec *MediationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = rec.CreatedAt
	}
	if rec.Role == "" {
		rec.Role = MediationRoleServer
	}

	c := *rec
	c.RoutingKeys = append([]string(nil), rec.RoutingKeys...)
	for i, existing := range m.mediation {
		if existing.MediationID == rec.MediationID {
			m.mediation[i] = &c
			return nil
		}
	}
	m.mediation = append(m.mediation, &c)
	return nil
}

// SaveRouteRecord stores a copy of the record.
func (m *MockStore) SaveRouteRecord(ctx context.Context, rec *RouteRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.routes {
		if existing.RecipientKey == rec.RecipientKey {
			return ErrDuplicateRecipientKey
		}
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = rec.CreatedAt
	}
	if rec.Role == "" {
		rec.Role = string(MediationRoleServer)
	}

	c := *rec
	m.routes = append(m.routes, &c)
	return nil
}

// QueryMediationRecords returns copies of the matching mediation records.
func (m *MockStore) QueryMediationRecords(ctx context.Context, filter Filter) ([]*MediationRecord, error) {
	m.mediationQueries.Add(1)
	if m.QueryErr != nil {
		return nil, m.QueryErr
	}
	if err := checkFields(filter, mediationFilterColumns); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []*MediationRecord{}
	for _, rec := range m.mediation {
		fields := map[string]string{
			"mediation_id":  rec.MediationID,
			"connection_id": rec.ConnectionID,
			"state":         string(rec.State),
			"role":          string(rec.Role),
		}
		if matches(filter, fields) {
			c := *rec
			c.RoutingKeys = append([]string(nil), rec.RoutingKeys...)
			result = append(result, &c)
		}
	}
	return result, nil
}

// QueryRouteRecords returns copies of the matching route records.
func (m *MockStore) QueryRouteRecords(ctx context.Context, filter Filter) ([]*RouteRecord, error) {
	m.routeQueries.Add(1)
	if m.QueryErr != nil {
		return nil, m.QueryErr
	}
	if err := checkFields(filter, routeFilterColumns); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []*RouteRecord{}
	for _, rec := range m.routes {
		fields := map[string]string{
			"record_id":     rec.RecordID,
			"connection_id": rec.ConnectionID,
			"recipient_key": rec.RecipientKey,
			"role":          rec.Role,
		}
		if matches(filter, fields) {
			c := *rec
			result = append(result, &c)
		}
	}
	return result, nil
}

// MediationQueries returns how many times QueryMediationRecords was called.
func (m *MockStore) MediationQueries() int {
	return int(m.mediationQueries.Load())
}

// RouteQueries returns how many times QueryRouteRecords was called.
func (m *MockStore) RouteQueries() int {
	return int(m.routeQueries.Load())
}

// matches reports whether every filter field equals the record's field.
func matches(filter Filter, fields map[string]string) bool {
	for k, v := range filter {
		if fields[k] != v {
			return false
		}
	}
	return true
}

func roleKey(subjectType RoleSubjectType, subjectID string) string {
	return string(subjectType) + ":" + subjectID
}

// AddRole adds a role to a subject (idempotent).
func (m *MockStore) AddRole(ctx context.Context, subjectType RoleSubjectType, subjectID string, role RoleName) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := roleKey(subjectType, subjectID)
	if m.roles[key] == nil {
		m.roles[key] = make(map[RoleName]struct{})
	}
	m.roles[key][role] = struct{}{}
	return nil
}

// RemoveRole removes a role from a subject (idempotent).
func (m *MockStore) RemoveRole(ctx context.Context, subjectType RoleSubjectType, subjectID string, role RoleName) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.roles[roleKey(subjectType, subjectID)], role)
	return nil
}

// HasRole checks if a subject has a role.
func (m *MockStore) HasRole(ctx context.Context, subjectType RoleSubjectType, subjectID string, role RoleName) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.roles[roleKey(subjectType, subjectID)][role]
	return ok, nil
}

// ListRoles returns a subject's roles.
func (m *MockStore) ListRoles(ctx context.Context, subjectType RoleSubjectType, subjectID string) ([]RoleName, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	roles := []RoleName{}
	for _, r := range ValidRoleNames {
		if _, ok := m.roles[roleKey(subjectType, subjectID)][r]; ok {
			roles = append(roles, r)
		}
	}
	return roles, nil
}

// Close is a no-op.
func (m *MockStore) Close() error {
	return nil
}
