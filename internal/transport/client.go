// ABOUTME: AdminTransport client that sends requests and waits for their threaded replies
// ABOUTME: Routes inbound frames to pending requests by ~thread.thid

package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/2389/mediator-admin/internal/message"
)

// ErrClientClosed is returned when the stream ends before a reply arrives.
var ErrClientClosed = errors.New("transport client closed")

// ClientOptions configures Dial.
type ClientOptions struct {
	Token        string // bearer JWT; empty when the server runs without auth
	ConnectionID string // sent as x-connection-id and scoped under the principal; the server assigns one when empty
	Logger       *slog.Logger
	DialOptions  []grpc.DialOption
}

// Reply is a frame received in answer to a request.
type Reply struct {
	Header   message.Header
	Envelope []byte
}

// Client is one admin connection to a mediator.
type Client struct {
	cc     *grpc.ClientConn
	stream ConnectClientStream
	cancel context.CancelFunc

	sendMu  sync.Mutex
	mu      sync.Mutex
	pending map[string]chan Reply
	done    chan struct{}
	err     error

	logger *slog.Logger
}

// Dial opens a Connect stream to addr. The stream lives until Close.
func Dial(addr string, opts ClientOptions) (*Client, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}, opts.DialOptions...)

	cc, err := grpc.NewClient(addr, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating client for %s: %w", addr, err)
	}

	md := metadata.MD{}
	if opts.Token != "" {
		md.Set("authorization", "Bearer "+opts.Token)
	}
	if opts.ConnectionID != "" {
		md.Set(ConnectionIDHeader, opts.ConnectionID)
	}

	ctx, cancel := context.WithCancel(context.Background())
	stream, err := openConnectStream(metadata.NewOutgoingContext(ctx, md), cc)
	if err != nil {
		cancel()
		_ = cc.Close()
		return nil, fmt.Errorf("opening stream: %w", err)
	}

	c := &Client{
		cc:      cc,
		stream:  stream,
		cancel:  cancel,
		pending: make(map[string]chan Reply),
		done:    make(chan struct{}),
		logger:  logger.With("component", "transport-client"),
	}
	go c.recvLoop()
	return c, nil
}

// Request sends p as a new message and waits for the reply threaded onto it.
func (c *Client) Request(ctx context.Context, p message.Payload) (*Reply, error) {
	msg := message.New(p)
	data, err := message.Encode(msg)
	if err != nil {
		return nil, err
	}

	ch := c.createRequest(msg.ID)
	defer c.closeRequest(msg.ID)

	if err := c.SendEnvelope(data); err != nil {
		return nil, err
	}

	select {
	case reply := <-ch:
		return &reply, nil
	case <-c.done:
		return nil, c.closedErr()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// SendEnvelope writes a raw envelope without waiting for a reply.
func (c *Client) SendEnvelope(envelope []byte) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if err := c.stream.Send(wrapperspb.Bytes(envelope)); err != nil {
		return fmt.Errorf("sending envelope: %w", err)
	}
	return nil
}

// Close ends the stream and releases the connection.
func (c *Client) Close() error {
	c.sendMu.Lock()
	_ = c.stream.CloseSend()
	c.sendMu.Unlock()
	c.cancel()
	return c.cc.Close()
}

func (c *Client) createRequest(id string) <-chan Reply {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan Reply, 1)
	c.pending[id] = ch
	return ch
}

func (c *Client) closeRequest(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, id)
}

func (c *Client) closedErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return fmt.Errorf("%w: %v", ErrClientClosed, c.err)
	}
	return ErrClientClosed
}

// recvLoop routes every inbound frame to the request it answers.
func (c *Client) recvLoop() {
	defer close(c.done)

	for {
		frame, err := c.stream.Recv()
		if err != nil {
			if err != io.EOF {
				c.mu.Lock()
				c.err = err
				c.mu.Unlock()
			}
			return
		}

		data := frame.GetValue()
		hdr, err := message.DecodeHeader(data)
		if err != nil {
			c.logger.Warn("dropping undecodable frame", "error", err)
			continue
		}
		if hdr.Thread == nil {
			c.logger.Debug("ignoring unthreaded message", "type", hdr.Type, "message_id", hdr.ID)
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[hdr.Thread.ThreadID]
		c.mu.Unlock()
		if !ok {
			c.logger.Warn("received reply for unknown request", "thid", hdr.Thread.ThreadID, "type", hdr.Type)
			continue
		}

		select {
		case ch <- Reply{Header: hdr, Envelope: data}:
		default:
			c.logger.Warn("reply already delivered, dropping", "thid", hdr.Thread.ThreadID)
		}
	}
}
