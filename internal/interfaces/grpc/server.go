// Package grpc hosts the gRPC transport: server lifecycle, interceptor chain,
// health and reflection services.
package grpc

import (
	"context"
	"fmt"
	"net"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/turtacn/helmkit/internal/config"
	"github.com/turtacn/helmkit/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/helmkit/internal/infrastructure/monitoring/prometheus"
)

const (
	defaultMaxRecvMsgSize  = 4 * 1024 * 1024
	defaultGracefulTimeout = 10 * time.Second
)

var defaultKeepaliveParams = keepalive.ServerParameters{
	MaxConnectionIdle:     15 * time.Minute,
	MaxConnectionAge:      30 * time.Minute,
	MaxConnectionAgeGrace: 5 * time.Second,
	Time:                  5 * time.Minute,
	Timeout:               1 * time.Second,
}

var defaultKeepalivePolicy = keepalive.EnforcementPolicy{
	MinTime:             5 * time.Second,
	PermitWithoutStream: true,
}

// Option configures the gRPC Server.
type Option func(*serverOptions)

type serverOptions struct {
	logger          logging.Logger
	metrics         *prometheus.AppMetrics
	listener        net.Listener
	gracefulTimeout time.Duration
}

func WithLogger(l logging.Logger) Option {
	return func(o *serverOptions) {
		o.logger = l
	}
}

func WithMetrics(m *prometheus.AppMetrics) Option {
	return func(o *serverOptions) {
		o.metrics = m
	}
}

// WithListener serves on lis instead of binding cfg.Addr. Tests pass a
// bufconn listener.
func WithListener(lis net.Listener) Option {
	return func(o *serverOptions) {
		o.listener = lis
	}
}

func WithGracefulTimeout(d time.Duration) Option {
	return func(o *serverOptions) {
		if d > 0 {
			o.gracefulTimeout = d
		}
	}
}

// Server wraps a grpc.Server with health checking and graceful shutdown.
type Server struct {
	grpcServer   *grpc.Server
	listener     net.Listener
	opts         *serverOptions
	healthServer *health.Server
	mu           sync.Mutex
	started      bool
}

// NewServer binds the listener, assembles the interceptor chain and
// registers the health service. Reflection is registered when
// cfg.Reflection is set.
func NewServer(cfg config.GRPCConfig, opts ...Option) (*Server, error) {
	sopts := &serverOptions{gracefulTimeout: defaultGracefulTimeout}
	for _, o := range opts {
		o(sopts)
	}
	if sopts.logger == nil {
		sopts.logger = logging.NewNopLogger()
	}

	lis := sopts.listener
	if lis == nil {
		var err error
		lis, err = net.Listen("tcp", cfg.Addr)
		if err != nil {
			return nil, fmt.Errorf("failed to listen on %s: %w", cfg.Addr, err)
		}
	}

	maxRecv := cfg.MaxRecvMsgSize
	if maxRecv <= 0 {
		maxRecv = defaultMaxRecvMsgSize
	}
	ka := defaultKeepaliveParams
	if cfg.KeepaliveTime > 0 {
		ka.Time = cfg.KeepaliveTime
	}
	if cfg.KeepaliveTimeout > 0 {
		ka.Timeout = cfg.KeepaliveTimeout
	}

	gs := grpc.NewServer(
		grpc.MaxRecvMsgSize(maxRecv),
		grpc.KeepaliveParams(ka),
		grpc.KeepaliveEnforcementPolicy(defaultKeepalivePolicy),
		// Recovery is innermost so recovered panics are logged and counted.
		grpc.ChainUnaryInterceptor(
			metricsUnaryInterceptor(sopts.metrics),
			loggingUnaryInterceptor(sopts.logger),
			recoveryUnaryInterceptor(sopts.logger),
		),
		grpc.ChainStreamInterceptor(recoveryStreamInterceptor(sopts.logger)),
	)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	if cfg.Reflection {
		reflection.Register(gs)
		sopts.logger.Debug("grpc reflection service registered")
	}

	return &Server{
		grpcServer:   gs,
		listener:     lis,
		opts:         sopts,
		healthServer: hs,
	}, nil
}

// RegisterService registers impl and marks it SERVING. Must be called before Start.
func (s *Server) RegisterService(desc *grpc.ServiceDesc, impl interface{}) {
	s.grpcServer.RegisterService(desc, impl)
	s.healthServer.SetServingStatus(desc.ServiceName, healthpb.HealthCheckResponse_SERVING)
	s.opts.logger.Info("grpc service registered", logging.String("service", desc.ServiceName))
}

// Start serves until ctx is cancelled, then stops gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("grpc server already started")
	}
	s.started = true
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		s.opts.logger.Info("grpc server starting", logging.String("addr", s.Addr()))
		errCh <- s.grpcServer.Serve(s.listener)
	}()

	select {
	case err := <-errCh:
		if err != nil && err != grpc.ErrServerStopped {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	case <-ctx.Done():
		s.Stop()
		return nil
	}
}

// Stop marks every service NOT_SERVING and drains in-flight calls. Calls
// still running after the graceful timeout are cancelled.
func (s *Server) Stop() {
	s.opts.logger.Info("grpc server stopping")
	s.healthServer.Shutdown()

	stopped := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(stopped)
	}()

	timer := time.NewTimer(s.opts.gracefulTimeout)
	defer timer.Stop()
	select {
	case <-stopped:
		s.opts.logger.Info("grpc server stopped gracefully")
	case <-timer.C:
		s.opts.logger.Warn("grpc graceful stop timed out, forcing stop")
		s.grpcServer.Stop()
	}
}

// Addr returns the bound address; useful with port 0.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// ─────────────────────────────────────────────────────────────────────────────
// Interceptors
// ─────────────────────────────────────────────────────────────────────────────

func recoveryUnaryInterceptor(logger logging.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("grpc panic recovered",
					logging.String("method", info.FullMethod),
					logging.String("panic", fmt.Sprintf("%v", r)),
					logging.String("stack", string(debug.Stack())),
				)
				err = status.Error(codes.Internal, "internal server error")
			}
		}()
		return handler(ctx, req)
	}
}

func recoveryStreamInterceptor(logger logging.Logger) grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("grpc stream panic recovered",
					logging.String("method", info.FullMethod),
					logging.String("panic", fmt.Sprintf("%v", r)),
				)
				err = status.Error(codes.Internal, "internal server error")
			}
		}()
		return handler(srv, ss)
	}
}

func isHealthCheck(method string) bool {
	return strings.HasPrefix(method, "/grpc.health.v1.Health/")
}

func loggingUnaryInterceptor(logger logging.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if isHealthCheck(info.FullMethod) {
			return handler(ctx, req)
		}
		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)

		fields := []logging.Field{
			logging.String("method", info.FullMethod),
			logging.Duration("duration", time.Since(start)),
			logging.String("code", code.String()),
		}
		switch code {
		case codes.OK:
			logger.Info("grpc request", fields...)
		case codes.Internal, codes.Unknown, codes.Unavailable, codes.DataLoss:
			logger.Error("grpc request failed", append(fields, logging.Err(err))...)
		default:
			logger.Warn("grpc request rejected", append(fields, logging.String("error", status.Convert(err).Message()))...)
		}
		return resp, err
	}
}

func metricsUnaryInterceptor(m *prometheus.AppMetrics) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if m == nil || isHealthCheck(info.FullMethod) {
			return handler(ctx, req)
		}
		start := time.Now()
		resp, err := handler(ctx, req)
		_, method := splitMethodName(info.FullMethod)
		prometheus.RecordGRPCRequest(m, method, status.Code(err).String(), time.Since(start))
		return resp, err
	}
}

// splitMethodName splits "/package.Service/Method" into ("package.Service", "Method").
func splitMethodName(fullMethod string) (string, string) {
	fullMethod = strings.TrimPrefix(fullMethod, "/")
	idx := strings.LastIndex(fullMethod, "/")
	if idx < 0 {
		return "unknown", fullMethod
	}
	return fullMethod[:idx], fullMethod[idx+1:]
}
