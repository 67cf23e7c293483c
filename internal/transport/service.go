// ABOUTME: gRPC service description for the AdminTransport bidirectional stream
// ABOUTME: Frames are google.protobuf.BytesValue messages carrying one JSON envelope each

package transport

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Service and method names on the wire.
const (
	ServiceName       = "mediator.AdminTransport"
	ConnectMethodName = "/" + ServiceName + "/Connect"
)

// AdminTransportServer is the server API for the AdminTransport service.
type AdminTransportServer interface {
	Connect(stream ConnectServerStream) error
}

// ConnectServerStream is the server side of a Connect stream.
type ConnectServerStream interface {
	Send(*wrapperspb.BytesValue) error
	Recv() (*wrapperspb.BytesValue, error)
	grpc.ServerStream
}

type connectServerStream struct {
	grpc.ServerStream
}

func (s *connectServerStream) Send(frame *wrapperspb.BytesValue) error {
	return s.ServerStream.SendMsg(frame)
}

func (s *connectServerStream) Recv() (*wrapperspb.BytesValue, error) {
	frame := new(wrapperspb.BytesValue)
	if err := s.ServerStream.RecvMsg(frame); err != nil {
		return nil, err
	}
	return frame, nil
}

func connectHandler(srv any, stream grpc.ServerStream) error {
	return srv.(AdminTransportServer).Connect(&connectServerStream{stream})
}

// ServiceDesc describes the AdminTransport service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AdminTransportServer)(nil),
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Connect",
			Handler:       connectHandler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "mediator/admin_transport.proto",
}

// RegisterAdminTransportServer registers srv with the gRPC server.
func RegisterAdminTransportServer(s grpc.ServiceRegistrar, srv AdminTransportServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// ConnectClientStream is the client side of a Connect stream.
type ConnectClientStream interface {
	Send(*wrapperspb.BytesValue) error
	Recv() (*wrapperspb.BytesValue, error)
	grpc.ClientStream
}

type connectClientStream struct {
	grpc.ClientStream
}

func (c *connectClientStream) Send(frame *wrapperspb.BytesValue) error {
	return c.ClientStream.SendMsg(frame)
}

func (c *connectClientStream) Recv() (*wrapperspb.BytesValue, error) {
	frame := new(wrapperspb.BytesValue)
	if err := c.ClientStream.RecvMsg(frame); err != nil {
		return nil, err
	}
	return frame, nil
}

// openConnectStream opens a Connect stream on cc.
func openConnectStream(ctx context.Context, cc grpc.ClientConnInterface, opts ...grpc.CallOption) (ConnectClientStream, error) {
	stream, err := cc.NewStream(ctx, &ServiceDesc.Streams[0], ConnectMethodName, opts...)
	if err != nil {
		return nil, err
	}
	return &connectClientStream{stream}, nil
}
