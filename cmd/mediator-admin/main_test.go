// ABOUTME: Tests for CLI flag parsing, query construction, reply printing, and logging
// ABOUTME: Commands that need a running server are covered by the gateway package tests

package main

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/mediator-admin/internal/config"
	"github.com/2389/mediator-admin/internal/mediator"
	"github.com/2389/mediator-admin/internal/message"
	"github.com/2389/mediator-admin/internal/store"
	"github.com/2389/mediator-admin/internal/transport"
)

func TestParseFlags(t *testing.T) {
	flags, rest, err := parseFlags([]string{"keylists", "--connection-id", "conn-a", "--addr=host:1"}, "connection-id", "addr")
	require.NoError(t, err)
	assert.Equal(t, []string{"keylists"}, rest)
	assert.Equal(t, map[string]string{"connection-id": "conn-a", "addr": "host:1"}, flags)

	_, _, err = parseFlags([]string{"--bogus", "x"}, "addr")
	assert.ErrorContains(t, err, "unknown flag")

	_, _, err = parseFlags([]string{"--addr"}, "addr")
	assert.ErrorContains(t, err, "requires a value")

	// an explicitly empty value is still present
	flags, _, err = parseFlags([]string{"--connection-id="}, "connection-id")
	require.NoError(t, err)
	v, ok := flags["connection-id"]
	assert.True(t, ok)
	assert.Empty(t, v)
}

func TestRoleTarget(t *testing.T) {
	typ, id, role, err := roleTarget([]string{"--principal", "ops"})
	require.NoError(t, err)
	assert.Equal(t, store.RoleSubjectPrincipal, typ)
	assert.Equal(t, "ops", id)
	assert.Equal(t, store.RoleAdmin, role)

	typ, id, role, err = roleTarget([]string{"--connection=conn-1", "--role=owner"})
	require.NoError(t, err)
	assert.Equal(t, store.RoleSubjectConnection, typ)
	assert.Equal(t, "conn-1", id)
	assert.Equal(t, store.RoleOwner, role)

	_, _, _, err = roleTarget([]string{"--principal", "a", "--connection", "b"})
	assert.Error(t, err)
	_, _, _, err = roleTarget(nil)
	assert.Error(t, err)
	_, _, _, err = roleTarget([]string{"--principal", "a", "--role", "root"})
	assert.Error(t, err)
}

func TestBuildQuery(t *testing.T) {
	p, err := buildQuery("mediation-requests", map[string]string{"state": "granted", "connection-id": "conn-b"})
	require.NoError(t, err)
	req, ok := p.(*mediator.MediationRequestsGet)
	require.True(t, ok)
	assert.Equal(t, "granted", req.State)
	require.NotNil(t, req.ConnectionID)
	assert.Equal(t, "conn-b", *req.ConnectionID)

	p, err = buildQuery("mediation-requests", map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, "request_received", p.(*mediator.MediationRequestsGet).State)
	assert.Nil(t, p.(*mediator.MediationRequestsGet).ConnectionID)

	p, err = buildQuery("keylists", map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, mediator.TypeKeylistsGet, p.MessageType())

	p, err = buildQuery("routes", nil)
	require.NoError(t, err)
	assert.Equal(t, mediator.TypeRoutesListGet, p.MessageType())

	_, err = buildQuery("connections", nil)
	assert.Error(t, err)
}

func TestPrintReply(t *testing.T) {
	color.NoColor = true

	envelope := []byte(`{"@type":"x","@id":"r1","~thread":{"thid":"q1"},"keylists":[]}`)
	var buf bytes.Buffer
	require.NoError(t, printReply(&buf, &transport.Reply{
		Header:   message.Header{Type: mediator.TypeKeylists, ID: "r1"},
		Envelope: envelope,
	}))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, string(mediator.TypeKeylists)+"\n"))
	assert.Contains(t, out, "  \"keylists\": []")

	err := printReply(&buf, &transport.Reply{Envelope: []byte("not json")})
	assert.Error(t, err)
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv("MEDIATOR_CONFIG", "/etc/mediator.toml")
	assert.Equal(t, "/etc/mediator.toml", getConfigPath())

	t.Setenv("MEDIATOR_CONFIG", "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	assert.Equal(t, filepath.Join("/xdg", "mediator-admin", "config.yaml"), getConfigPath())
}

func TestSetupLogger_ColorHandler(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	logger := setupLogger(config.LoggingConfig{Level: "warn", Format: "text"}, &buf)

	logger.Info("hidden")
	logger.With("component", "transport").WithGroup("conn").Warn("dropped", "id", "abc")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "WRN dropped component=transport conn.id=abc")
}

func TestSetupLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := setupLogger(config.LoggingConfig{Level: "debug", Format: "json"}, &buf)
	logger.Debug("decoded", "type", "keylists-get")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "decoded", line["msg"])
	assert.Equal(t, "keylists-get", line["type"])
	assert.Equal(t, slog.LevelDebug.String(), line["level"])
}
