// Package rpc holds helpers shared by the Struct-typed gRPC services.
package rpc

import (
	"context"
	"fmt"
	"time"

	"github.com/dparkr/dparkr/internal/api/apierr"
	"github.com/dparkr/dparkr/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// ActorMetadataKey carries the authenticated user id.
const ActorMetadataKey = "x-user-id"

// UnaryFunc is the shape of every method on the Struct-typed services.
type UnaryFunc func(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

// Handler adapts a method selector to grpc.MethodDesc.Handler.
func Handler[S any](fullMethod string, method func(srv S) UnaryFunc) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		call := method(srv.(S))
		if interceptor == nil {
			return call(ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(ctx, req.(*structpb.Struct))
		})
	}
}

func Actor(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if values := md.Get(ActorMetadataKey); len(values) > 0 {
		return values[0]
	}
	return ""
}

func String(s *structpb.Struct, key string) string {
	if v, ok := s.GetFields()[key]; ok {
		return v.GetStringValue()
	}
	return ""
}

func Number(s *structpb.Struct, key string) (float64, bool) {
	v, ok := s.GetFields()[key]
	if !ok {
		return 0, false
	}
	if _, isNumber := v.GetKind().(*structpb.Value_NumberValue); !isNumber {
		return 0, false
	}
	return v.GetNumberValue(), true
}

func UUID(s *structpb.Struct, key string) (uuid.UUID, error) {
	id, err := uuid.Parse(String(s, key))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s must be a uuid", domain.ErrInvalidInput, key)
	}
	return id, nil
}

func Time(s *structpb.Struct, key string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, String(s, key))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be an RFC 3339 timestamp", domain.ErrInvalidInput, key)
	}
	return t, nil
}

func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// UnaryErrorInterceptor logs each call and converts domain errors to gRPC
// status errors.
func UnaryErrorInterceptor(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.Duration("latency", time.Since(start)),
		}
		if err != nil {
			if _, isStatus := status.FromError(err); isStatus {
				log.Info("grpc call rejected", append(fields, zap.Error(err))...)
				return nil, err
			}
			code := apierr.Code(err)
			fields = append(fields, zap.Stringer("code", code), zap.Error(err))
			if code == codes.Internal {
				log.Error("grpc call failed", fields...)
			} else {
				log.Info("grpc call rejected", fields...)
			}
			return nil, apierr.GRPC(err)
		}
		log.Debug("grpc call", fields...)
		return resp, nil
	}
}
