package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/turtacn/helmkit/internal/application/notation"
	"github.com/turtacn/helmkit/internal/config"
	"github.com/turtacn/helmkit/internal/domain/monomer"
	"github.com/turtacn/helmkit/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/helmkit/internal/interfaces/grpc/services"
	"github.com/turtacn/helmkit/internal/testutil"
)

type testEnv struct {
	srv     *Server
	conn    *grpc.ClientConn
	logger  *testutil.MockLogger
	metrics prometheus.MetricsCollector
	cancel  context.CancelFunc
	done    chan error
}

// panicDesc is a one-method service whose handler always panics.
var panicDesc = grpc.ServiceDesc{
	ServiceName: "helmkit.test.Panic",
	HandlerType: (*interface{})(nil),
	Methods: []grpc.MethodDesc{{
		MethodName: "Boom",
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(emptypb.Empty)
			if err := dec(in); err != nil {
				return nil, err
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/helmkit.test.Panic/Boom"}
			return interceptor(ctx, in, info, func(context.Context, interface{}) (interface{}, error) {
				panic("boom")
			})
		},
	}},
}

func newTestEnv(t *testing.T, cfg config.GRPCConfig) *testEnv {
	t.Helper()
	reg := monomer.NewBuiltinRegistry(nil)
	require.NoError(t, reg.Load(context.Background()))

	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "helmkit"}, nil)
	require.NoError(t, err)
	logger := testutil.NewMockLogger()

	lis := bufconn.Listen(1 << 20)
	srv, err := NewServer(cfg,
		WithLogger(logger),
		WithMetrics(prometheus.NewAppMetrics(collector)),
		WithListener(lis),
		WithGracefulTimeout(time.Second),
	)
	require.NoError(t, err)
	srv.RegisterService(&services.NotationServiceDesc, services.NewNotationService(notation.NewService(reg, nil), nil))
	srv.RegisterService(&panicDesc, struct{}{})

	ctx, cancel := context.WithCancel(context.Background())
	env := &testEnv{srv: srv, logger: logger, metrics: collector, cancel: cancel, done: make(chan error, 1)}
	go func() { env.done <- srv.Start(ctx) }()

	env.conn, err = grpc.DialContext(context.Background(), "bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = env.conn.Close()
		cancel()
	})
	return env
}

func TestServer_HealthAndNotationService(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, config.GRPCConfig{})
	ctx := context.Background()

	hc := healthpb.NewHealthClient(env.conn)
	for _, svc := range []string{"", services.NotationServiceName} {
		resp, err := hc.Check(ctx, &healthpb.HealthCheckRequest{Service: svc})
		require.NoError(t, err)
		assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status, svc)
	}

	out, err := services.NewNotationServiceClient(env.conn).Validate(ctx, wrapperspb.String("PEPTIDE1{A.G}$$$$"))
	require.NoError(t, err)
	assert.True(t, out.Fields["valid"].GetBoolValue())

	assert.True(t, env.logger.HasMessage("info", "grpc service registered"))
	assert.True(t, env.logger.HasMessage("info", "grpc request"))
}

func TestServer_InterceptorsRecordFailures(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, config.GRPCConfig{})
	ctx := context.Background()
	client := services.NewNotationServiceClient(env.conn)

	_, err := client.Canonicalize(ctx, wrapperspb.String("PEPTIDE1{A.G}$$$$V9"))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.True(t, env.logger.HasMessage("warn", "grpc request rejected"))

	err = env.conn.Invoke(ctx, "/helmkit.test.Panic/Boom", &emptypb.Empty{}, &emptypb.Empty{})
	assert.Equal(t, codes.Internal, status.Code(err))
	assert.True(t, env.logger.HasMessage("error", "grpc panic recovered"))
	assert.True(t, env.logger.HasMessage("error", "grpc request failed"))

	families, err := env.metrics.Gatherer().Gather()
	require.NoError(t, err)
	seen := map[string]float64{}
	for _, f := range families {
		if f.GetName() != "helmkit_grpc_requests_total" {
			continue
		}
		for _, m := range f.GetMetric() {
			labels := map[string]string{}
			for _, l := range m.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			seen[labels["method"]+"/"+labels["code"]] += m.GetCounter().GetValue()
		}
	}
	assert.Equal(t, float64(1), seen["Canonicalize/InvalidArgument"])
	assert.Equal(t, float64(1), seen["Boom/Internal"])
}

func TestServer_StartReturnsOnCancel(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, config.GRPCConfig{})

	hc := healthpb.NewHealthClient(env.conn)
	_, err := hc.Check(context.Background(), &healthpb.HealthCheckRequest{})
	require.NoError(t, err)

	env.cancel()
	select {
	case err := <-env.done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
	assert.True(t, env.logger.HasMessage("info", "grpc server stopping"))
	assert.Error(t, env.srv.Start(context.Background()))
}

func TestNewServer_BindsAddr(t *testing.T) {
	t.Parallel()
	srv, err := NewServer(config.GRPCConfig{Addr: "127.0.0.1:0", Reflection: true, MaxRecvMsgSize: 1024})
	require.NoError(t, err)
	assert.Contains(t, srv.Addr(), "127.0.0.1:")
	_ = srv.listener.Close()

	_, err = NewServer(config.GRPCConfig{Addr: "256.0.0.1:bad"})
	assert.Error(t, err)
}

func TestSplitMethodName(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in      string
		service string
		method  string
	}{
		{"/helmkit.v1.NotationService/Validate", "helmkit.v1.NotationService", "Validate"},
		{"/grpc.health.v1.Health/Check", "grpc.health.v1.Health", "Check"},
		{"bare", "unknown", "bare"},
	}
	for _, tt := range tests {
		s, m := splitMethodName(tt.in)
		assert.Equal(t, tt.service, s)
		assert.Equal(t, tt.method, m)
	}
	assert.True(t, isHealthCheck("/grpc.health.v1.Health/Watch"))
	assert.False(t, isHealthCheck("/helmkit.v1.NotationService/Analyze"))
}
