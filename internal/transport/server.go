// ABOUTME: AdminTransport server that feeds inbound envelopes to the dispatcher
// ABOUTME: Implements protocol.Responder so replies go back on the originating stream

package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/2389/mediator-admin/internal/auth"
	"github.com/2389/mediator-admin/internal/dedupe"
	"github.com/2389/mediator-admin/internal/message"
	"github.com/2389/mediator-admin/internal/protocol"
)

// ConnectionIDHeader is the metadata key a client uses to name its connection.
const ConnectionIDHeader = "x-connection-id"

// connectionIDSeparator joins the authenticated principal and the client's
// connection name. Client names may not contain it.
const connectionIDSeparator = "/"

// ServerConfig contains configuration options for the Server.
type ServerConfig struct {
	Registry *protocol.Registry
	// Guard drops redelivered envelopes before dispatch. Optional.
	Guard  *dedupe.Guard
	Logger *slog.Logger
	// OnOutcome, if set, is called after every dispatched envelope.
	OnOutcome func(rc protocol.RequestContext, out protocol.Outcome)
}

// Server accepts Connect streams and dispatches the envelopes they carry.
type Server struct {
	dispatcher *protocol.Dispatcher
	conns      *connTable
	guard      *dedupe.Guard
	onOutcome  func(protocol.RequestContext, protocol.Outcome)
	logger     *slog.Logger
}

var (
	_ AdminTransportServer = (*Server)(nil)
	_ protocol.Responder   = (*Server)(nil)
)

// NewServer creates a Server and the dispatcher that answers through it.
func NewServer(cfg ServerConfig) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		conns:     newConnTable(),
		guard:     cfg.Guard,
		onOutcome: cfg.OnOutcome,
		logger:    logger.With("component", "transport"),
	}
	s.dispatcher = protocol.NewDispatcher(protocol.DispatcherConfig{
		Registry:  cfg.Registry,
		Responder: s,
		Logger:    logger.With("component", "dispatcher"),
	})
	return s
}

// Send implements protocol.Responder by writing msg to the connection named
// in rc.
func (s *Server) Send(ctx context.Context, rc protocol.RequestContext, msg *message.Message) error {
	conn, ok := s.conns.get(rc.ConnectionID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrConnectionNotFound, rc.ConnectionID)
	}

	data, err := message.Encode(msg)
	if err != nil {
		return err
	}

	if err := conn.Send(data); err != nil {
		return fmt.Errorf("sending on %s: %w", rc.ConnectionID, err)
	}
	return nil
}

// ConnectionCount returns the number of open connections.
func (s *Server) ConnectionCount() int {
	return s.conns.len()
}

// Connect handles one admin client stream. Each inbound frame is dispatched
// on its own goroutine; the stream stays open until every dispatch for it
// has finished.
func (s *Server) Connect(stream ConnectServerStream) error {
	ctx := stream.Context()

	var principalID string
	if a := auth.FromContext(ctx); a != nil {
		principalID = a.PrincipalID
	}
	connID, err := connectionIDFromContext(ctx, principalID)
	if err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}

	conn := newConnection(connID, principalID, stream, s.logger.With("connection_id", connID))
	if err := s.conns.register(conn); err != nil {
		if errors.Is(err, ErrConnectionAlreadyRegistered) {
			return status.Errorf(codes.AlreadyExists, "connection %s already open", connID)
		}
		return status.Errorf(codes.Internal, "registering connection: %v", err)
	}
	defer func() {
		s.conns.unregister(conn)
		if s.guard != nil {
			s.guard.Forget(connID)
		}
	}()

	s.logger.Info("→ admin connection opened", "connection_id", connID, "principal_id", principalID)

	rc := protocol.RequestContext{ConnectionID: connID, PrincipalID: principalID}

	var inflight sync.WaitGroup
	defer inflight.Wait()

	for {
		frame, err := stream.Recv()
		if err != nil {
			if err == io.EOF {
				s.logger.Info("admin connection closed (EOF)", "connection_id", connID)
				return nil
			}
			if status.Code(err) == codes.Canceled {
				s.logger.Info("admin connection cancelled", "connection_id", connID)
				return nil
			}
			s.logger.Error("receiving frame", "error", err, "connection_id", connID)
			return status.Errorf(codes.Internal, "receiving frame: %v", err)
		}

		envelope := frame.GetValue()
		if s.isDuplicate(connID, envelope) {
			continue
		}

		inflight.Add(1)
		go func() {
			defer inflight.Done()
			out := s.dispatcher.Dispatch(ctx, rc, envelope)
			if s.onOutcome != nil {
				s.onOutcome(rc, out)
			}
		}()
	}
}

// isDuplicate reports whether the envelope's @id was already dispatched on
// this connection. Envelopes without a readable header are left for the
// dispatcher to reject.
func (s *Server) isDuplicate(connID string, envelope []byte) bool {
	if s.guard == nil {
		return false
	}
	hdr, err := message.DecodeHeader(envelope)
	if err != nil {
		return false
	}
	if s.guard.Admit(connID, hdr.ID) {
		return false
	}
	s.logger.Debug("dropping duplicate message", "connection_id", connID, "message_id", hdr.ID, "type", hdr.Type)
	return true
}

// connectionIDFromContext returns the connection ID for a stream: the
// client-chosen name, or a new uuid if the client sent none, scoped under the
// authenticated principal as "<principal>/<name>". Connection roles are
// granted on the scoped ID, so a client cannot take over another principal's
// connection by naming it.
func connectionIDFromContext(ctx context.Context, principalID string) (string, error) {
	name := uuid.New().String()
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if ids := md.Get(ConnectionIDHeader); len(ids) > 0 && ids[0] != "" {
			name = ids[0]
		}
	}
	if strings.Contains(name, connectionIDSeparator) {
		return "", fmt.Errorf("%s %q must not contain %q", ConnectionIDHeader, name, connectionIDSeparator)
	}
	if principalID == "" {
		return name, nil
	}
	return principalID + connectionIDSeparator + name, nil
}
