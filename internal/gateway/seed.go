// ABOUTME: Writes the configured seed roles, mediation records, and routes to the store
// ABOUTME: Safe to run on every start; existing routes are skipped and records upserted

package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/2389/mediator-admin/internal/config"
	"github.com/2389/mediator-admin/internal/store"
)

// SeedStore is the subset of the store seeding writes to.
type SeedStore interface {
	store.RecordWriter
	AddRole(ctx context.Context, subjectType store.RoleSubjectType, subjectID string, role store.RoleName) error
}

// Seed applies seed to s. Roles default to admin and mediation state
// defaults to request_received.
func Seed(ctx context.Context, s SeedStore, seed config.SeedConfig, logger *slog.Logger) error {
	for _, a := range seed.Admins {
		roleName := a.Role
		if roleName == "" {
			roleName = string(store.RoleAdmin)
		}
		role, err := store.ParseRoleName(roleName)
		if err != nil {
			return fmt.Errorf("seeding role for %s: %w", a.SubjectID, err)
		}
		if err := s.AddRole(ctx, store.RoleSubjectType(a.SubjectType), a.SubjectID, role); err != nil {
			return fmt.Errorf("seeding role for %s: %w", a.SubjectID, err)
		}
	}

	for _, m := range seed.MediationRecords {
		state, err := parseMediationState(m.State)
		if err != nil {
			return fmt.Errorf("seeding mediation %s: %w", m.MediationID, err)
		}
		rec := &store.MediationRecord{
			MediationID:  m.MediationID,
			ConnectionID: m.ConnectionID,
			State:        state,
			Role:         store.MediationRole(m.Role),
			RoutingKeys:  m.RoutingKeys,
			Endpoint:     m.Endpoint,
		}
		if err := s.SaveMediationRecord(ctx, rec); err != nil {
			return fmt.Errorf("seeding mediation %s: %w", m.MediationID, err)
		}
	}

	for _, r := range seed.Routes {
		rec := &store.RouteRecord{
			RecordID:     r.RecordID,
			ConnectionID: r.ConnectionID,
			RecipientKey: r.RecipientKey,
		}
		err := s.SaveRouteRecord(ctx, rec)
		if errors.Is(err, store.ErrDuplicateRecipientKey) {
			logger.Debug("route already seeded", "record_id", r.RecordID)
			continue
		}
		if err != nil {
			return fmt.Errorf("seeding route %s: %w", r.RecordID, err)
		}
	}

	if n := len(seed.Admins) + len(seed.MediationRecords) + len(seed.Routes); n > 0 {
		logger.Info("seeded store",
			"roles", len(seed.Admins),
			"mediation_records", len(seed.MediationRecords),
			"routes", len(seed.Routes),
		)
	}
	return nil
}

func parseMediationState(s string) (store.MediationState, error) {
	switch store.MediationState(s) {
	case "":
		return store.MediationStateRequestReceived, nil
	case store.MediationStateRequestReceived, store.MediationStateGranted, store.MediationStateDenied:
		return store.MediationState(s), nil
	default:
		return "", fmt.Errorf("invalid mediation state %q", s)
	}
}
