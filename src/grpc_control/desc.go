package grpc_control

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const serviceName = "streamoperators.Control"

// ControlServer is the server side of streamoperators.Control. Every message
// is a google.protobuf.Struct.
type ControlServer interface {
	ListOperators(context.Context, *structpb.Struct) (*structpb.Struct, error)
	StartOperator(context.Context, *structpb.Struct) (*structpb.Struct, error)
	StopOperator(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Execute(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// -----------------------------------------------------------------------------

func unaryHandler(method string, call func(ControlServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ControlServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/" + serviceName + "/" + method,
		}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(ControlServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ControlServiceDesc describes streamoperators.Control for grpc.Server.
var ControlServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*ControlServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListOperators", Handler: unaryHandler("ListOperators", ControlServer.ListOperators)},
		{MethodName: "StartOperator", Handler: unaryHandler("StartOperator", ControlServer.StartOperator)},
		{MethodName: "StopOperator", Handler: unaryHandler("StopOperator", ControlServer.StopOperator)},
		{MethodName: "Execute", Handler: unaryHandler("Execute", ControlServer.Execute)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "streamoperators/control.proto",
}

func RegisterControlServer(s grpc.ServiceRegistrar, srv ControlServer) {
	s.RegisterService(&ControlServiceDesc, srv)
}
