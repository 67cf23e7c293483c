// ABOUTME: Routing manager that summarizes the recipient keys this mediator routes for
// ABOUTME: Backs the deprecated routes-list query

package routing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/2389/mediator-admin/internal/store"
)

// RouteSummary is the public view of one route record.
type RouteSummary struct {
	RecordID     string    `json:"record_id"`
	RecipientKey string    `json:"recipient_key"`
	ConnectionID string    `json:"connection_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// RouteQuerier is the subset of the record store the manager reads.
type RouteQuerier interface {
	QueryRouteRecords(ctx context.Context, filter store.Filter) ([]*store.RouteRecord, error)
}

// Manager reads routing state.
type Manager struct {
	routes RouteQuerier
	logger *slog.Logger
}

// NewManager creates a Manager over the given route store.
func NewManager(routes RouteQuerier, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		routes: routes,
		logger: logger.With("component", "routing"),
	}
}

// GetRoutes returns a summary of every route, in store order.
func (m *Manager) GetRoutes(ctx context.Context) ([]RouteSummary, error) {
	records, err := m.routes.QueryRouteRecords(ctx, store.Filter{})
	if err != nil {
		return nil, fmt.Errorf("listing routes: %w", err)
	}

	summaries := make([]RouteSummary, 0, len(records))
	for _, r := range records {
		summaries = append(summaries, RouteSummary{
			RecordID:     r.RecordID,
			RecipientKey: r.RecipientKey,
			ConnectionID: r.ConnectionID,
			CreatedAt:    r.CreatedAt,
		})
	}

	m.logger.Debug("listed routes", "count", len(summaries))
	return summaries, nil
}
