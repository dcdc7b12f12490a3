package grpcx

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const mdRequestID = "x-request-id"

type ctxKey string

const ctxKeyReqID ctxKey = "req_id"

func RequestIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyReqID).(string)
	return v
}

func requestID(ctx context.Context) context.Context {
	var reqID string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get(mdRequestID); len(vals) > 0 {
			reqID = vals[0]
		}
	}
	if reqID == "" {
		reqID = uuid.NewString()
	}
	return context.WithValue(ctx, ctxKeyReqID, reqID)
}

// UnaryServerInterceptor tags the call with a request id, recovers panics, logs
// the result and bounds calls that arrive without a deadline.
func UnaryServerInterceptor(log *slog.Logger, guard time.Duration) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp any, err error) {
		start := time.Now()
		ctx = requestID(ctx)
		// guard только если у вызова нет своего deadline
		if _, ok := ctx.Deadline(); !ok && guard > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, guard)
			defer cancel()
		}

		defer func() {
			if r := recover(); r != nil {
				log.ErrorContext(ctx, "grpc unary panic",
					"method", info.FullMethod,
					"panic", r,
					"stack", string(debug.Stack()))
				err = status.Error(codes.Internal, "internal server error")
			}
			log.DebugContext(ctx, "grpc unary",
				"req_id", RequestIDFromContext(ctx),
				"method", info.FullMethod,
				"code", status.Code(err).String(),
				"dur_ms", time.Since(start).Milliseconds())
		}()

		return handler(ctx, req)
	}
}

func StreamServerInterceptor(log *slog.Logger) grpc.StreamServerInterceptor {
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) (err error) {
		start := time.Now()

		defer func() {
			if r := recover(); r != nil {
				log.Error("grpc stream panic",
					"method", info.FullMethod,
					"panic", r,
					"stack", string(debug.Stack()))
				err = status.Error(codes.Internal, "internal server error")
			}
			log.Debug("grpc stream",
				"method", info.FullMethod,
				"code", status.Code(err).String(),
				"dur_ms", time.Since(start).Milliseconds())
		}()

		return handler(srv, ss)
	}
}
