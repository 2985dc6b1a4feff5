package rpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/and161185/botscripts/internal/api"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "botscripts.v1.Scripts"

// Full method names.
const (
	MethodTokenStatus   = "/" + ServiceName + "/TokenStatus"
	MethodGetScripts    = "/" + ServiceName + "/GetScripts"
	MethodSyncScripts   = "/" + ServiceName + "/SyncScripts"
	MethodDeleteScripts = "/" + ServiceName + "/DeleteScripts"
)

// ScriptsServer is the server API for the Scripts service.
type ScriptsServer interface {
	// TokenStatus validates the token carried in the request body.
	TokenStatus(context.Context, *api.TokenStatusRequest) (*api.Token, error)
	// GetScripts returns the authenticated account's scripts.
	GetScripts(context.Context, *api.GetScriptsRequest) (*api.GetScriptsResponse, error)
	// SyncScripts applies a full or partial sync.
	SyncScripts(context.Context, *api.SyncScriptsRequest) (*api.Empty, error)
	// DeleteScripts removes scripts by name.
	DeleteScripts(context.Context, *api.DeleteScriptsRequest) (*api.Empty, error)
}

// RegisterScriptsServer registers srv on s.
func RegisterScriptsServer(s grpc.ServiceRegistrar, srv ScriptsServer) {
	s.RegisterService(&ScriptsServiceDesc, srv)
}

// ScriptsServiceDesc is the grpc.ServiceDesc for the Scripts service.
var ScriptsServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ScriptsServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "TokenStatus", Handler: unary(MethodTokenStatus, ScriptsServer.TokenStatus)},
		{MethodName: "GetScripts", Handler: unary(MethodGetScripts, ScriptsServer.GetScripts)},
		{MethodName: "SyncScripts", Handler: unary(MethodSyncScripts, ScriptsServer.SyncScripts)},
		{MethodName: "DeleteScripts", Handler: unary(MethodDeleteScripts, ScriptsServer.DeleteScripts)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "botscripts/v1/scripts",
}

func unary[Req, Resp any](fullMethod string, call func(ScriptsServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ScriptsServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ScriptsServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ScriptsClient is the client API for the Scripts service. Every call is sent
// with the JSON content-subtype.
type ScriptsClient struct {
	cc grpc.ClientConnInterface
}

func NewScriptsClient(cc grpc.ClientConnInterface) *ScriptsClient {
	return &ScriptsClient{cc: cc}
}

func (c *ScriptsClient) TokenStatus(ctx context.Context, in *api.TokenStatusRequest, opts ...grpc.CallOption) (*api.Token, error) {
	out := new(api.Token)
	if err := c.invoke(ctx, MethodTokenStatus, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ScriptsClient) GetScripts(ctx context.Context, in *api.GetScriptsRequest, opts ...grpc.CallOption) (*api.GetScriptsResponse, error) {
	out := new(api.GetScriptsResponse)
	if err := c.invoke(ctx, MethodGetScripts, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ScriptsClient) SyncScripts(ctx context.Context, in *api.SyncScriptsRequest, opts ...grpc.CallOption) (*api.Empty, error) {
	out := new(api.Empty)
	if err := c.invoke(ctx, MethodSyncScripts, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ScriptsClient) DeleteScripts(ctx context.Context, in *api.DeleteScriptsRequest, opts ...grpc.CallOption) (*api.Empty, error) {
	out := new(api.Empty)
	if err := c.invoke(ctx, MethodDeleteScripts, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ScriptsClient) invoke(ctx context.Context, method string, in, out any, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	return c.cc.Invoke(ctx, method, in, out, opts...)
}
