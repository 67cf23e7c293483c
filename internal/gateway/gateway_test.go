// ABOUTME: Tests for gateway wiring, seeding, health endpoints, and lifecycle
// ABOUTME: Runs the full stack on a loopback listener against a temp SQLite database

package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/mediator-admin/internal/auth"
	"github.com/2389/mediator-admin/internal/config"
	"github.com/2389/mediator-admin/internal/mediator"
	"github.com/2389/mediator-admin/internal/protocol"
	"github.com/2389/mediator-admin/internal/store"
	"github.com/2389/mediator-admin/internal/transport"
)

const testSecret = "gateway-test-secret-32-bytes!!!!"

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Server:   config.ServerConfig{GRPCAddr: "127.0.0.1:0"},
		Database: config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "mediator.db")},
		Auth:     config.AuthConfig{JWTSecret: testSecret, TokenTTL: time.Hour},
		Dedupe:   config.DedupeConfig{TTL: time.Minute, MaxSize: 100},
		Logging:  config.LoggingConfig{Level: "info", Format: "text"},
		Seed: config.SeedConfig{
			Admins: []config.SeedRole{{SubjectType: "principal", SubjectID: "ops"}},
			MediationRecords: []config.SeedMediation{
				{MediationID: "med-1", ConnectionID: "conn-a", State: "granted", RoutingKeys: []string{"key-1"}},
				{MediationID: "med-2", ConnectionID: "conn-b", State: "denied"},
				{MediationID: "med-3", ConnectionID: "conn-b", State: "granted"},
			},
			Routes: []config.SeedRoute{
				{RecordID: "route-1", ConnectionID: "conn-a", RecipientKey: "recip-1"},
			},
		},
	}
}

// startGateway serves gw on loopback and returns the transport address.
func startGateway(t *testing.T, gw *Gateway) string {
	t.Helper()
	grpcLn, httpLn, err := gw.setupListeners(context.Background())
	require.NoError(t, err)
	gw.startServers(grpcLn, httpLn)
	t.Cleanup(func() {
		_ = gw.gracefulShutdown()
	})
	return grpcLn.Addr().String()
}

func tokenFor(t *testing.T, principal string) string {
	t.Helper()
	v, err := auth.NewJWTVerifier([]byte(testSecret))
	require.NoError(t, err)
	token, err := v.Generate(principal, time.Hour)
	require.NoError(t, err)
	return token
}

func TestGateway_AdminQueryOverLoopback(t *testing.T) {
	gw, err := New(context.Background(), testConfig(t), slog.Default())
	require.NoError(t, err)
	addr := startGateway(t, gw)

	c, err := transport.Dial(addr, transport.ClientOptions{Token: tokenFor(t, "ops")})
	require.NoError(t, err)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	connB := "conn-b"
	reply, err := c.Request(ctx, &mediator.MediationRequestsGet{State: "granted", ConnectionID: &connB})
	require.NoError(t, err)
	assert.Equal(t, mediator.TypeMediationRequests, reply.Header.Type)

	var body struct {
		Requests []store.MediationRecord `json:"requests"`
	}
	require.NoError(t, json.Unmarshal(reply.Envelope, &body))
	require.Len(t, body.Requests, 1)
	assert.Equal(t, "med-3", body.Requests[0].MediationID)

	reply, err = c.Request(ctx, &mediator.RoutesListGet{})
	require.NoError(t, err)
	assert.Equal(t, mediator.TypeRoutesList, reply.Header.Type)
	assert.Contains(t, string(reply.Envelope), "recip-1")
}

func TestGateway_NonAdminGetsNoReply(t *testing.T) {
	gw, err := New(context.Background(), testConfig(t), slog.Default())
	require.NoError(t, err)
	addr := startGateway(t, gw)

	c, err := transport.Dial(addr, transport.ClientOptions{Token: tokenFor(t, "guest")})
	require.NoError(t, err)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	_, err = c.Request(ctx, &mediator.KeylistsGet{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	rejected := gw.metrics.outcomes.WithLabelValues("rejected", string(mediator.TypeKeylistsGet))
	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(rejected) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Zero(t, testutil.ToFloat64(gw.metrics.outcomes.WithLabelValues("completed", string(mediator.TypeKeylistsGet))))
}

func TestNew_SeedsStore(t *testing.T) {
	cfg := testConfig(t)
	gw, err := New(context.Background(), cfg, slog.Default())
	require.NoError(t, err)
	defer gw.Shutdown(context.Background())

	ctx := context.Background()
	recs, err := gw.store.QueryMediationRecords(ctx, store.Filter{"state": "granted"})
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	roles, err := gw.store.ListRoles(ctx, store.RoleSubjectPrincipal, "ops")
	require.NoError(t, err)
	assert.Equal(t, []store.RoleName{store.RoleAdmin}, roles)
}

func TestNew_ReseedIsIdempotent(t *testing.T) {
	cfg := testConfig(t)

	first, err := New(context.Background(), cfg, slog.Default())
	require.NoError(t, err)
	require.NoError(t, first.Shutdown(context.Background()))

	second, err := New(context.Background(), cfg, slog.Default())
	require.NoError(t, err)
	defer second.Shutdown(context.Background())

	routes, err := second.store.QueryRouteRecords(context.Background(), store.Filter{})
	require.NoError(t, err)
	assert.Len(t, routes, 1)
}

func TestNew_InvalidSeedFails(t *testing.T) {
	cfg := testConfig(t)
	cfg.Seed.MediationRecords[0].State = "pending"

	_, err := New(context.Background(), cfg, slog.Default())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid mediation state")
}

func TestNew_DedupeDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Dedupe.Disabled = true

	gw, err := newWithStore(context.Background(), cfg, store.NewMockStore(), slog.Default())
	require.NoError(t, err)
	assert.Nil(t, gw.guard)
	assert.Nil(t, gw.httpServer)
}

func TestSeed_DefaultsAndErrors(t *testing.T) {
	ctx := context.Background()
	s := store.NewMockStore()

	err := Seed(ctx, s, config.SeedConfig{
		Admins:           []config.SeedRole{{SubjectType: "connection", SubjectID: "conn-admin", Role: "owner"}},
		MediationRecords: []config.SeedMediation{{MediationID: "m", ConnectionID: "c"}},
	}, slog.Default())
	require.NoError(t, err)

	ok, err := s.HasRole(ctx, store.RoleSubjectConnection, "conn-admin", store.RoleOwner)
	require.NoError(t, err)
	assert.True(t, ok)

	recs, err := s.QueryMediationRecords(ctx, store.Filter{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, store.MediationStateRequestReceived, recs[0].State)

	err = Seed(ctx, s, config.SeedConfig{
		Admins: []config.SeedRole{{SubjectType: "principal", SubjectID: "x", Role: "superuser"}},
	}, slog.Default())
	assert.Error(t, err)
}

func TestHealthEndpoints(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.HTTPAddr = "127.0.0.1:0"

	gw, err := newWithStore(context.Background(), cfg, store.NewMockStore(), slog.Default())
	require.NoError(t, err)
	defer gw.closeOptionalComponents()
	require.NotNil(t, gw.httpServer)

	rec := httptest.NewRecorder()
	gw.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	rec = httptest.NewRecorder()
	gw.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready (8 types, 0 connections)", rec.Body.String())

	rec = httptest.NewRecorder()
	gw.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "mediator_admin_declared_types 8")
}

func TestMetrics_UndeclaredTypeCollapsed(t *testing.T) {
	gw, err := newWithStore(context.Background(), testConfig(t), store.NewMockStore(), slog.Default())
	require.NoError(t, err)
	defer gw.closeOptionalComponents()

	gw.recordOutcome(protocol.RequestContext{}, protocol.Outcome{Status: protocol.StatusRejected, Type: "https://evil.example/x"})
	gw.recordOutcome(protocol.RequestContext{}, protocol.Outcome{Status: protocol.StatusCompleted, Type: mediator.TypeRoutesListGet})

	assert.Equal(t, float64(1), testutil.ToFloat64(gw.metrics.outcomes.WithLabelValues("rejected", unknownTypeLabel)))
	assert.Equal(t, float64(1), testutil.ToFloat64(gw.metrics.outcomes.WithLabelValues("completed", string(mediator.TypeRoutesListGet))))
	assert.Equal(t, 2, testutil.CollectAndCount(gw.metrics.outcomes))
}

func TestRun_StopsOnCancel(t *testing.T) {
	gw, err := New(context.Background(), testConfig(t), slog.Default())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- gw.Run(ctx)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
