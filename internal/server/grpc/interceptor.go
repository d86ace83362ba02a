package grpc

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/dmitrijs2005/teamboard/internal/common"
	"github.com/dmitrijs2005/teamboard/internal/server/auth"
)

type ctxKey string

const UserIDKey ctxKey = "userID"

const healthServicePrefix = "/grpc.health.v1.Health/"

// UserIDFromContext returns the subject of the verified access token.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(UserIDKey).(string)
	return id, ok && id != ""
}

// accessTokenFromMetadata prefers "authorization: Bearer <token>" and
// falls back to the access_token key.
func accessTokenFromMetadata(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if values := md.Get(common.AuthorizationHeaderName); len(values) > 0 {
		if token, found := strings.CutPrefix(values[0], common.BearerPrefix); found {
			return strings.TrimSpace(token)
		}
	}
	if values := md.Get(common.AccessTokenHeaderName); len(values) > 0 {
		return values[0]
	}
	return ""
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {

	if strings.HasPrefix(info.FullMethod, healthServicePrefix) {
		return handler(ctx, req)
	}

	accessToken := accessTokenFromMetadata(ctx)
	if len(accessToken) == 0 {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	claims, err := s.verifier.Verify(accessToken, auth.PurposeAccess)
	if err != nil {
		s.logger.Debug(ctx, "rejected token", "method", info.FullMethod, "error", err)
		return nil, status.Error(codes.Unauthenticated, err.Error())
	}

	ctx = context.WithValue(ctx, UserIDKey, claims.Subject)

	return handler(ctx, req)
}
