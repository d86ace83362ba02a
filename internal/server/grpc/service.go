package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Invites service method names, usable with grpc.ClientConn.Invoke.
const (
	InvitesServiceName      = "teamboard.v1.Invites"
	InvitesInviteUserMethod = "/" + InvitesServiceName + "/InviteUser"
	InvitesAcceptMethod     = "/" + InvitesServiceName + "/AcceptInvite"
)

// InvitesServer is implemented by *GRPCServer. Messages are protobuf
// well-known types, so no generated code is needed.
type InvitesServer interface {
	InviteUser(context.Context, *structpb.Struct) (*wrapperspb.StringValue, error)
	AcceptInvite(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
}

func inviteUserHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InvitesServer).InviteUser(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: InvitesInviteUserMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(InvitesServer).InviteUser(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func acceptInviteHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InvitesServer).AcceptInvite(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: InvitesAcceptMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(InvitesServer).AcceptInvite(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

var invitesServiceDesc = grpc.ServiceDesc{
	ServiceName: InvitesServiceName,
	HandlerType: (*InvitesServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "InviteUser", Handler: inviteUserHandler},
		{MethodName: "AcceptInvite", Handler: acceptInviteHandler},
	},
	Streams: []grpc.StreamDesc{},
}
