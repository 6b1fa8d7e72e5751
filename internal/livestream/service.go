// Package livestream is a gRPC live-coordinate stream for debug
// visualisation clients, independent of the MQTT publish path (§6's
// TAIL/TAG/.../COORD topic). It is grounded on the teacher's
// internal/lidar/visualiser.Server: a service-streaming RPC that fans a
// published feed out to subscribed clients, with the same
// Server/RegisterService shape.
//
// The teacher's visualiser generates its wire types with protoc from a
// .proto file that is not itself part of the retrieved reference pack
// (only the generated-code consumer survived retrieval, not the
// generator output or the .proto source). Rather than hand-author
// protoc-gen-go's compiled file-descriptor bytes — which cannot be
// produced correctly without running protoc — this service's wire
// messages are google.golang.org/protobuf/types/known/structpb.Struct
// values, a message type the protobuf module ships fully generated
// already. The service descriptor below (ServiceDesc, stream handler,
// client stub) is hand-written in exactly the shape protoc-gen-go-grpc
// emits; only the message encoding piggybacks on a pre-built protobuf
// type instead of a freshly generated one. See DESIGN.md.
package livestream

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the gRPC service name this package registers, following
// the teacher's "<package>.<Service>" convention.
const ServiceName = "rtls.livestream.v1.Coordinates"

// CoordinatesServer is the service interface a livestream.Server
// implements. Request and stream elements are structpb.Struct values.
// Each stream element carries the fields of one mqttbus.CoordMessage
// under lower-case keys (tag, name, coord, filtered); it has no
// timestamp field.
type CoordinatesServer interface {
	// StreamCoordinates pushes every published coordinate update to the
	// client until the stream's context is cancelled. req may carry an
	// optional "tag" filter field restricting the stream to one tag.
	StreamCoordinates(req *structpb.Struct, stream Coordinates_StreamCoordinatesServer) error

	// Roster returns a snapshot Struct listing every known anchor and tag,
	// for a client bootstrapping its own view before the stream starts.
	Roster(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// Coordinates_StreamCoordinatesServer is the server-side stream handle,
// the same shape protoc-gen-go-grpc generates for a server-streaming RPC.
type Coordinates_StreamCoordinatesServer interface {
	Send(*structpb.Struct) error
	grpc.ServerStream
}

type coordinatesStreamCoordinatesServer struct {
	grpc.ServerStream
}

func (x *coordinatesStreamCoordinatesServer) Send(m *structpb.Struct) error {
	return x.ServerStream.SendMsg(m)
}

func _Coordinates_StreamCoordinates_Handler(srv interface{}, stream grpc.ServerStream) error {
	req := new(structpb.Struct)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	return srv.(CoordinatesServer).StreamCoordinates(req, &coordinatesStreamCoordinatesServer{stream})
}

func _Coordinates_Roster_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(structpb.Struct)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CoordinatesServer).Roster(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/Roster"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(CoordinatesServer).Roster(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, req, info, handler)
}

// ServiceDesc is the grpc.ServiceDesc a server registers CoordinatesServer
// under, built by hand in the shape protoc-gen-go-grpc would emit for a
// service with one unary and one server-streaming method.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CoordinatesServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Roster", Handler: _Coordinates_Roster_Handler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "StreamCoordinates", Handler: _Coordinates_StreamCoordinates_Handler, ServerStreams: true},
	},
	Metadata: "rtls/livestream.proto",
}

// RegisterCoordinatesServer registers srv on grpcServer, mirroring the
// teacher's RegisterService(grpcServer, server) call site.
func RegisterCoordinatesServer(grpcServer *grpc.Server, srv CoordinatesServer) {
	grpcServer.RegisterService(&ServiceDesc, srv)
}
