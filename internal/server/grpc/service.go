package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	MaintenanceServiceName = "astrobackoffice.ops.v1.Maintenance"
	PurgeExpiredMethod     = "/" + MaintenanceServiceName + "/PurgeExpired"
)

// MaintenanceServer is the ops service. Requests and responses use the
// well-known protobuf types so no generated code is needed.
type MaintenanceServer interface {
	PurgeExpired(ctx context.Context, in *emptypb.Empty) (*structpb.Struct, error)
}

var maintenanceServiceDesc = grpc.ServiceDesc{
	ServiceName: MaintenanceServiceName,
	HandlerType: (*MaintenanceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "PurgeExpired", Handler: purgeExpiredHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "astrobackoffice/ops/v1/maintenance.proto",
}

func purgeExpiredHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MaintenanceServer).PurgeExpired(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: PurgeExpiredMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(MaintenanceServer).PurgeExpired(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// RegisterMaintenanceServer attaches srv to s.
func RegisterMaintenanceServer(s grpc.ServiceRegistrar, srv MaintenanceServer) {
	s.RegisterService(&maintenanceServiceDesc, srv)
}

// MaintenanceClient calls the ops service.
type MaintenanceClient struct {
	cc grpc.ClientConnInterface
}

func NewMaintenanceClient(cc grpc.ClientConnInterface) *MaintenanceClient {
	return &MaintenanceClient{cc: cc}
}

func (c *MaintenanceClient) PurgeExpired(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, PurgeExpiredMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
