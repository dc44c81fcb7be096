package interceptor

import (
	"context"
	"crypto/subtle"
	"net"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"command-server/internal/infrastructure/config"
	otelinfra "command-server/internal/infrastructure/observability/otel"
)

// healthServicePrefix 認証なしで呼べるヘルスチェックサービス
const healthServicePrefix = "/grpc.health.v1.Health/"

// APIKeyInterceptor APIキー認証インターセプター
func APIKeyInterceptor(cfg *config.AdminAPIConfig, logger *otelinfra.Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		if err := authorize(ctx, info.FullMethod, cfg, logger); err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

// APIKeyStreamInterceptor ストリーム用のAPIキー認証インターセプター
func APIKeyStreamInterceptor(cfg *config.AdminAPIConfig, logger *otelinfra.Logger) grpc.StreamServerInterceptor {
	return func(
		srv interface{},
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		if err := authorize(ss.Context(), info.FullMethod, cfg, logger); err != nil {
			return err
		}
		return handler(srv, ss)
	}
}

// authorize メタデータのAPIキーと接続元IPを検証する
func authorize(ctx context.Context, method string, cfg *config.AdminAPIConfig, logger *otelinfra.Logger) error {
	if strings.HasPrefix(method, healthServicePrefix) {
		return nil
	}

	// 管理APIが無効化されている場合はエラー
	if cfg.APIKey == "" {
		logger.Warn(ctx, "Admin API is disabled", map[string]interface{}{
			"method": method,
		})
		return status.Error(codes.PermissionDenied, "admin API is disabled")
	}

	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		logger.Warn(ctx, "Missing metadata", nil)
		return status.Error(codes.Unauthenticated, "missing metadata")
	}

	apiKeys := md.Get("x-api-key")
	if len(apiKeys) == 0 {
		logger.Warn(ctx, "Missing X-API-Key metadata", map[string]interface{}{
			"method": method,
		})
		return status.Error(codes.Unauthenticated, "missing X-API-Key metadata")
	}
	if subtle.ConstantTimeCompare([]byte(apiKeys[0]), []byte(cfg.APIKey)) != 1 {
		logger.Warn(ctx, "Invalid API key", map[string]interface{}{
			"method": method,
		})
		return status.Error(codes.Unauthenticated, "invalid API key")
	}

	if ip := peerIP(ctx); !cfg.AllowsIP(ip) {
		logger.Warn(ctx, "IP address not allowed", map[string]interface{}{
			"ip":     ip,
			"method": method,
		})
		return status.Error(codes.PermissionDenied, "IP address not allowed")
	}
	return nil
}

// peerIP 接続元のIPアドレスを返す
func peerIP(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return ""
	}
	addr := p.Addr.String()
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
