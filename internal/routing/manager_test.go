// ABOUTME: Tests for the routing manager's route summaries
// ABOUTME: Uses the in-memory mock store

package routing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/mediator-admin/internal/store"
)

func TestManager_GetRoutes(t *testing.T) {
	ctx := context.Background()
	s := store.NewMockStore()
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, s.SaveRouteRecord(ctx, &store.RouteRecord{RecordID: "r1", ConnectionID: "c1", RecipientKey: "k1", CreatedAt: created}))
	require.NoError(t, s.SaveRouteRecord(ctx, &store.RouteRecord{RecordID: "r2", ConnectionID: "c2", RecipientKey: "k2", CreatedAt: created}))

	routes, err := NewManager(s, nil).GetRoutes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []RouteSummary{
		{RecordID: "r1", RecipientKey: "k1", ConnectionID: "c1", CreatedAt: created},
		{RecordID: "r2", RecipientKey: "k2", ConnectionID: "c2", CreatedAt: created},
	}, routes)
}

func TestManager_GetRoutes_Empty(t *testing.T) {
	routes, err := NewManager(store.NewMockStore(), nil).GetRoutes(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, routes)
	assert.Empty(t, routes)
}

func TestManager_GetRoutes_StoreError(t *testing.T) {
	s := store.NewMockStore()
	boom := errors.New("disk on fire")
	s.QueryErr = boom

	_, err := NewManager(s, nil).GetRoutes(context.Background())
	assert.ErrorIs(t, err, boom)
}
