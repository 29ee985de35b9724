package interceptor

import (
	"context"
	"time"

	"rentops-backend/internal/logger"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Unary returns a server interceptor that logs every unary RPC and turns
// handler panics into codes.Internal.
func Unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				logger.Error("gRPC handler panicked", "method", info.FullMethod, "panic", r)
				err = status.Error(codes.Internal, "internal error")
			}
			code := status.Code(err)
			if code != codes.OK {
				logger.Warn("gRPC call failed", "method", info.FullMethod, "code", code.String(), "duration_ms", time.Since(start).Milliseconds())
				return
			}
			logger.Debug("gRPC call", "method", info.FullMethod, "duration_ms", time.Since(start).Milliseconds())
		}()

		return handler(ctx, req)
	}
}
