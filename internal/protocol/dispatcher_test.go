// ABOUTME: Tests for the dispatcher state machine and the type registry
// ABOUTME: Validates reply threading, rejection causes, delivery failures, and concurrency

package protocol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/mediator-admin/internal/message"
)

const (
	pingType message.Type = "https://example.org/ping/1.0/ping"
	pongType message.Type = "https://example.org/ping/1.0/pong"
	noteType message.Type = "https://example.org/ping/1.0/note"
)

type ping struct {
	Text string `json:"text"`
}

func (ping) MessageType() message.Type { return pingType }

type pong struct {
	Echo string `json:"echo"`
}

func (pong) MessageType() message.Type { return pongType }

type note struct{}

func (note) MessageType() message.Type { return noteType }

// recordingResponder captures sent replies.
type recordingResponder struct {
	mu   sync.Mutex
	sent []*message.Message
	err  error
}

func (r *recordingResponder) Send(_ context.Context, _ RequestContext, msg *message.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, msg)
	return nil
}

func (r *recordingResponder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

// setupDispatcherTest creates a registry with a ping handler and a dispatcher.
func setupDispatcherTest(t *testing.T, h Handler) (*Registry, *Dispatcher, *recordingResponder) {
	t.Helper()
	registry := NewRegistry(slog.Default())
	require.NoError(t, registry.Declare(Declaration{
		Type:    pingType,
		Schema:  message.Schema{message.Str("text", true)},
		New:     func() message.Payload { return &ping{} },
		Handler: h,
	}))
	responder := &recordingResponder{}
	dispatcher := NewDispatcher(DispatcherConfig{
		Registry:  registry,
		Responder: responder,
		Logger:    slog.Default(),
	})
	return registry, dispatcher, responder
}

func echoHandler(calls *atomic.Int32) Handler {
	return HandlerFunc(func(_ context.Context, _ RequestContext, msg *message.Message) (message.Payload, error) {
		calls.Add(1)
		return &pong{Echo: msg.Payload.(*ping).Text}, nil
	})
}

func envelope(t *testing.T, fields map[string]any) []byte {
	t.Helper()
	data, err := json.Marshal(fields)
	require.NoError(t, err)
	return data
}

func TestRegistryDeclare(t *testing.T) {
	t.Run("rejects duplicate type", func(t *testing.T) {
		registry := NewRegistry(nil)
		decl := Declaration{Type: pingType, New: func() message.Payload { return &ping{} }, Handler: PassThrough}

		require.NoError(t, registry.Declare(decl))
		err := registry.Declare(decl)
		assert.ErrorIs(t, err, ErrTypeAlreadyDeclared)
		assert.Equal(t, 1, registry.Len())
	})

	t.Run("rejects incomplete declarations", func(t *testing.T) {
		registry := NewRegistry(nil)
		assert.ErrorIs(t, registry.Declare(Declaration{New: func() message.Payload { return &ping{} }, Handler: PassThrough}), ErrInvalidDeclaration)
		assert.ErrorIs(t, registry.Declare(Declaration{Type: pingType, Handler: PassThrough}), ErrInvalidDeclaration)
		assert.ErrorIs(t, registry.Declare(Declaration{Type: pingType, New: func() message.Payload { return &ping{} }}), ErrInvalidDeclaration)
		assert.Equal(t, 0, registry.Len())
	})

	t.Run("lists types in declaration order", func(t *testing.T) {
		registry := NewRegistry(nil)
		require.NoError(t, registry.Declare(Declaration{Type: pongType, New: func() message.Payload { return &pong{} }, Handler: PassThrough}))
		require.NoError(t, registry.Declare(Declaration{Type: pingType, New: func() message.Payload { return &ping{} }, Handler: PassThrough}))

		assert.Equal(t, []message.Type{pongType, pingType}, registry.Types())
		assert.Len(t, registry.Handlers(), 2)

		_, ok := registry.Lookup(noteType)
		assert.False(t, ok)
	})

	t.Run("registries are independent", func(t *testing.T) {
		a := NewRegistry(nil)
		b := NewRegistry(nil)
		require.NoError(t, a.Declare(Declaration{Type: pingType, New: func() message.Payload { return &ping{} }, Handler: PassThrough}))

		_, ok := b.Lookup(pingType)
		assert.False(t, ok)
	})
}

func TestDispatch_RepliesThreadedOntoInbound(t *testing.T) {
	var calls atomic.Int32
	_, dispatcher, responder := setupDispatcherTest(t, echoHandler(&calls))

	for _, id := range []string{"req-1", "req-2", "5f0e4b8a-2c1d-4c47-9d76-0d5a8cb1c001"} {
		out := dispatcher.Dispatch(context.Background(), RequestContext{ConnectionID: "conn-1"},
			envelope(t, map[string]any{"@type": pingType, "@id": id, "text": "hello"}))

		require.Equal(t, StatusCompleted, out.Status, "error: %v", out.Err)
		require.NotNil(t, out.Reply)
		assert.Equal(t, id, out.Reply.Thread.ThreadID)
		assert.Equal(t, pongType, out.Reply.Type)
		assert.Equal(t, "hello", out.Reply.Payload.(*pong).Echo)
	}
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, 3, responder.count())
}

func TestDispatch_ThreadIgnoresInboundThread(t *testing.T) {
	var calls atomic.Int32
	_, dispatcher, _ := setupDispatcherTest(t, echoHandler(&calls))

	out := dispatcher.Dispatch(context.Background(), RequestContext{},
		envelope(t, map[string]any{"@type": pingType, "@id": "req-7", "~thread": map[string]any{"thid": "older"}, "text": "x"}))

	require.Equal(t, StatusCompleted, out.Status)
	assert.Equal(t, "req-7", out.Reply.Thread.ThreadID)
}

func TestDispatch_UnroutableType(t *testing.T) {
	var calls atomic.Int32
	_, dispatcher, responder := setupDispatcherTest(t, echoHandler(&calls))

	for _, typ := range []message.Type{noteType, "https://example.org/ping/1.0/PING"} {
		out := dispatcher.Dispatch(context.Background(), RequestContext{},
			envelope(t, map[string]any{"@type": typ, "@id": "req-1", "anything": 1}))

		assert.Equal(t, StatusRejected, out.Status)
		assert.ErrorIs(t, out.Err, ErrUnroutableType)
		assert.Equal(t, typ, out.Type)
		assert.Nil(t, out.Reply)
	}

	assert.Equal(t, int32(0), calls.Load())
	assert.Equal(t, 0, responder.count())
}

func TestDispatch_SchemaErrors(t *testing.T) {
	var calls atomic.Int32
	_, dispatcher, responder := setupDispatcherTest(t, echoHandler(&calls))

	tests := []struct {
		name     string
		envelope []byte
	}{
		{"invalid json", []byte(`{"@type":`)},
		{"missing id", envelope(t, map[string]any{"@type": pingType, "text": "x"})},
		{"missing required field", envelope(t, map[string]any{"@type": pingType, "@id": "req-1"})},
		{"wrong field kind", envelope(t, map[string]any{"@type": pingType, "@id": "req-1", "text": 12})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := dispatcher.Dispatch(context.Background(), RequestContext{}, tt.envelope)
			assert.Equal(t, StatusRejected, out.Status)
			assert.ErrorIs(t, out.Err, ErrSchema)
			assert.Nil(t, out.Inbound)
		})
	}

	assert.Equal(t, int32(0), calls.Load())
	assert.Equal(t, 0, responder.count())
}

func TestDispatch_UnauthorizedIsRejected(t *testing.T) {
	denied := HandlerFunc(func(context.Context, RequestContext, *message.Message) (message.Payload, error) {
		return nil, fmt.Errorf("%w: not an admin", ErrUnauthorized)
	})
	_, dispatcher, responder := setupDispatcherTest(t, denied)

	out := dispatcher.Dispatch(context.Background(), RequestContext{ConnectionID: "c"},
		envelope(t, map[string]any{"@type": pingType, "@id": "req-1", "text": "x"}))

	assert.Equal(t, StatusRejected, out.Status)
	assert.ErrorIs(t, out.Err, ErrUnauthorized)
	assert.False(t, errors.Is(out.Err, ErrDelivery))
	assert.Equal(t, 0, responder.count())
}

func TestDispatch_HandlerErrorFails(t *testing.T) {
	storeErr := errors.New("store unavailable")
	failing := HandlerFunc(func(context.Context, RequestContext, *message.Message) (message.Payload, error) {
		return nil, storeErr
	})
	_, dispatcher, responder := setupDispatcherTest(t, failing)

	out := dispatcher.Dispatch(context.Background(), RequestContext{},
		envelope(t, map[string]any{"@type": pingType, "@id": "req-1", "text": "x"}))

	assert.Equal(t, StatusFailed, out.Status)
	assert.ErrorIs(t, out.Err, storeErr)
	assert.Equal(t, 0, responder.count())
}

func TestDispatch_DeliveryError(t *testing.T) {
	var calls atomic.Int32
	_, dispatcher, responder := setupDispatcherTest(t, echoHandler(&calls))
	responder.err = errors.New("stream closed")

	out := dispatcher.Dispatch(context.Background(), RequestContext{},
		envelope(t, map[string]any{"@type": pingType, "@id": "req-1", "text": "x"}))

	assert.Equal(t, StatusFailed, out.Status)
	assert.ErrorIs(t, out.Err, ErrDelivery)
	assert.False(t, errors.Is(out.Err, ErrUnauthorized))
	require.NotNil(t, out.Reply, "reply that failed to deliver is still reported")
	assert.Equal(t, int32(1), calls.Load())
}

func TestDispatch_PassThroughSendsNothing(t *testing.T) {
	registry, dispatcher, responder := setupDispatcherTest(t, PassThrough)
	require.NoError(t, registry.Declare(Declaration{
		Type:    noteType,
		New:     func() message.Payload { return &note{} },
		Handler: PassThrough,
	}))

	out := dispatcher.Dispatch(context.Background(), RequestContext{},
		envelope(t, map[string]any{"@type": noteType, "@id": "n-1"}))

	assert.Equal(t, StatusCompleted, out.Status)
	assert.NoError(t, out.Err)
	assert.Nil(t, out.Reply)
	assert.Equal(t, 0, responder.count())
}

func TestDispatch_HandlerPanicIsIsolated(t *testing.T) {
	panicking := HandlerFunc(func(context.Context, RequestContext, *message.Message) (message.Payload, error) {
		panic("boom")
	})
	_, dispatcher, _ := setupDispatcherTest(t, panicking)

	out := dispatcher.Dispatch(context.Background(), RequestContext{},
		envelope(t, map[string]any{"@type": pingType, "@id": "req-1", "text": "x"}))

	assert.Equal(t, StatusFailed, out.Status)
	assert.ErrorIs(t, out.Err, ErrHandlerPanic)
}

func TestDispatch_Concurrent(t *testing.T) {
	var calls atomic.Int32
	_, dispatcher, responder := setupDispatcherTest(t, echoHandler(&calls))

	const n = 50
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("req-%d", i)
			data, _ := json.Marshal(map[string]any{"@type": pingType, "@id": id, "text": id})
			out := dispatcher.Dispatch(context.Background(), RequestContext{ConnectionID: fmt.Sprintf("conn-%d", i%3)}, data)
			if out.Status != StatusCompleted {
				errs <- out.Err
				return
			}
			if out.Reply.Thread.ThreadID != id || out.Reply.Payload.(*pong).Echo != id {
				errs <- fmt.Errorf("reply for %s mismatched", id)
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
	assert.Equal(t, n, responder.count())
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "completed", StatusCompleted.String())
	assert.Equal(t, "rejected", StatusRejected.String())
	assert.Equal(t, "failed", StatusFailed.String())
	assert.Equal(t, "status(9)", Status(9).String())
}
