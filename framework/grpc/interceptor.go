// Package jwtgrpc adapts a jwtmiddleware.Gate to gRPC servers.
//
// Methods are matched by their full name ("/package.Service/Method"). Only
// methods in the protected table are authenticated; every other call reaches
// its handler without its metadata being read.
package jwtgrpc

import (
	"context"

	"google.golang.org/grpc"

	jwtmiddleware "github.com/entrakit/go-entra-middleware"
	"github.com/entrakit/go-entra-middleware/core"
)

// Interceptor provides token authentication for gRPC servers.
type Interceptor struct {
	gate           *jwtmiddleware.Gate
	methods        *jwtmiddleware.RouteTable
	tokenExtractor TokenExtractor
	errorHandler   ErrorHandler
	logger         Logger
}

// New creates interceptors backed by gate. The gate's route table is used as
// the protected method table unless WithProtectedMethods is given.
func New(gate *jwtmiddleware.Gate, opts ...Option) (*Interceptor, error) {
	if gate == nil {
		return nil, ErrGateNil
	}

	i := &Interceptor{
		gate:           gate,
		methods:        gate.Routes(),
		tokenExtractor: MetadataTokenExtractor,
		errorHandler:   DefaultErrorHandler,
	}

	for _, opt := range opts {
		if err := opt(i); err != nil {
			return nil, err
		}
	}
	return i, nil
}

// UnaryServerInterceptor returns a grpc.UnaryServerInterceptor that
// authenticates protected methods and stores the identity in the context.
func (i *Interceptor) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		if !i.methods.RequiresAuth(info.FullMethod) {
			return handler(ctx, req)
		}

		authedCtx, err := i.authenticate(ctx, info.FullMethod)
		if err != nil {
			return nil, err
		}
		return handler(authedCtx, req)
	}
}

// StreamServerInterceptor returns a grpc.StreamServerInterceptor that
// authenticates protected methods and stores the identity in the stream
// context.
func (i *Interceptor) StreamServerInterceptor() grpc.StreamServerInterceptor {
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		if !i.methods.RequiresAuth(info.FullMethod) {
			return handler(srv, ss)
		}

		authedCtx, err := i.authenticate(ss.Context(), info.FullMethod)
		if err != nil {
			return err
		}
		return handler(srv, &wrappedServerStream{ServerStream: ss, ctx: authedCtx})
	}
}

func (i *Interceptor) authenticate(ctx context.Context, method string) (context.Context, error) {
	token, err := i.tokenExtractor(ctx)
	if err != nil {
		if i.logger != nil {
			i.logger.Warn("failed to extract token from gRPC metadata",
				"error", err,
				"method", method)
		}
		return ctx, i.errorHandler(&core.MissingTokenError{Reason: "formato do metadado authorization inválido"})
	}

	id, err := i.gate.AuthenticateToken(ctx, token)
	if err != nil {
		return ctx, i.errorHandler(err)
	}

	if i.logger != nil {
		i.logger.Debug("authenticated gRPC call",
			"method", method,
			"username", id.Username)
	}
	return core.SetIdentity(ctx, id), nil
}

// wrappedServerStream wraps grpc.ServerStream with a custom context.
type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

// Context returns the wrapped context with the identity.
func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}
