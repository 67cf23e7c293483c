// ABOUTME: Dispatches inbound envelopes to declared handlers and sends threaded replies
// ABOUTME: Every envelope ends in exactly one Outcome; failures never escape the dispatcher

package protocol

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/2389/mediator-admin/internal/message"
)

// Status is the terminal state of a dispatched envelope.
type Status int

const (
	// StatusCompleted means the handler ran and any reply was delivered.
	StatusCompleted Status = iota
	// StatusRejected means the envelope never reached handler logic
	// (schema, unroutable type, or authorization failure).
	StatusRejected
	// StatusFailed means the handler or reply delivery failed.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusCompleted:
		return "completed"
	case StatusRejected:
		return "rejected"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Outcome reports how a single envelope was handled.
type Outcome struct {
	Status  Status
	Err     error            // nil when Completed
	Type    message.Type     // inbound type, empty if the header did not decode
	Inbound *message.Message // nil if decoding failed
	Reply   *message.Message // nil if no reply was produced
}

// DispatcherConfig contains configuration options for the Dispatcher.
type DispatcherConfig struct {
	Registry  *Registry
	Responder Responder
	Logger    *slog.Logger
}

// Dispatcher resolves, authorizes (through wrapped handlers), and executes
// inbound messages. It is safe for concurrent use; each Dispatch call owns
// all of its per-request state.
type Dispatcher struct {
	registry  *Registry
	responder Responder
	logger    *slog.Logger
}

// NewDispatcher creates a new Dispatcher with the given configuration.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		registry:  cfg.Registry,
		responder: cfg.Responder,
		logger:    logger,
	}
}

// Dispatch handles one inbound envelope to a terminal Outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, rc RequestContext, envelope []byte) Outcome {
	out := d.dispatch(ctx, rc, envelope)
	d.logOutcome(rc, out)
	return out
}

func (d *Dispatcher) dispatch(ctx context.Context, rc RequestContext, envelope []byte) Outcome {
	hdr, err := message.DecodeHeader(envelope)
	if err != nil {
		return Outcome{Status: StatusRejected, Err: err}
	}

	decl, ok := d.registry.Lookup(hdr.Type)
	if !ok {
		return Outcome{
			Status: StatusRejected,
			Type:   hdr.Type,
			Err:    fmt.Errorf("%w: %s", ErrUnroutableType, hdr.Type),
		}
	}

	msg, err := message.Decode(hdr, envelope, decl.Schema, decl.New)
	if err != nil {
		return Outcome{Status: StatusRejected, Type: hdr.Type, Err: err}
	}

	out := Outcome{Type: hdr.Type, Inbound: msg}

	payload, err := d.execute(ctx, decl.Handler, rc, msg)
	if err != nil {
		out.Err = err
		out.Status = StatusFailed
		if errors.Is(err, ErrUnauthorized) {
			out.Status = StatusRejected
		}
		return out
	}

	if payload == nil {
		out.Status = StatusCompleted
		return out
	}

	reply := message.NewReply(msg, payload)
	out.Reply = reply

	if err := d.responder.Send(ctx, rc, reply); err != nil {
		out.Status = StatusFailed
		out.Err = fmt.Errorf("%w: %v", ErrDelivery, err)
		return out
	}

	out.Status = StatusCompleted
	return out
}

// execute runs the handler, converting a panic into ErrHandlerPanic so one bad
// message cannot take down the connection serving it.
func (d *Dispatcher) execute(ctx context.Context, h Handler, rc RequestContext, msg *message.Message) (payload message.Payload, err error) {
	defer func() {
		if r := recover(); r != nil {
			payload = nil
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()
	return h.Handle(ctx, rc, msg)
}

func (d *Dispatcher) logOutcome(rc RequestContext, out Outcome) {
	attrs := []any{
		"status", out.Status.String(),
		"type", out.Type,
		"connection_id", rc.ConnectionID,
	}
	if out.Inbound != nil {
		attrs = append(attrs, "message_id", out.Inbound.ID)
	}
	if out.Reply != nil {
		attrs = append(attrs, "reply_id", out.Reply.ID, "reply_type", out.Reply.Type)
	}

	switch out.Status {
	case StatusCompleted:
		d.logger.Info("← message handled", attrs...)
	case StatusRejected:
		d.logger.Warn("message rejected", append(attrs, "error", out.Err)...)
	default:
		d.logger.Error("message failed", append(attrs, "error", out.Err)...)
	}
}
