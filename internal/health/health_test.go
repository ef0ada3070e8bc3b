package health_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"

	"github.com/BrandonDHaskell/Parkgate/server/internal/health"
	"github.com/BrandonDHaskell/Parkgate/server/internal/logging"
)

func dial(t *testing.T, lis *bufconn.Listener) healthpb.HealthClient {
	t.Helper()
	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return healthpb.NewHealthClient(conn)
}

func status(t *testing.T, c healthpb.HealthClient, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	resp, err := c.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	require.NoError(t, err)
	return resp.GetStatus()
}

func TestHealth_ReportsPerComponentAndOverall(t *testing.T) {
	var brokerUp atomic.Bool

	s := health.NewServer("", map[string]health.Check{
		"camera": func(context.Context) error { return nil },
		"store":  func(context.Context) error { return nil },
		"transport": func(context.Context) error {
			if brokerUp.Load() {
				return nil
			}
			return errors.New("no broker")
		},
	}, time.Hour, logging.Discard())

	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Serve(ctx, lis) }()

	c := dial(t, lis)

	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, status(t, c, "camera"))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, status(t, c, "store"))
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, status(t, c, "transport"))
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, status(t, c, ""))

	brokerUp.Store(true)
	s.Refresh(context.Background())

	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, status(t, c, "transport"))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, status(t, c, ""))
}

func TestHealth_UnknownService(t *testing.T) {
	s := health.NewServer("", nil, time.Hour, logging.Discard())

	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Serve(ctx, lis) }()

	c := dial(t, lis)

	cctx, ccancel := context.WithTimeout(context.Background(), time.Second)
	defer ccancel()
	_, err := c.Check(cctx, &healthpb.HealthCheckRequest{Service: "nope"})
	assert.Error(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, status(t, c, ""))
}

func TestHealth_LogsUnderComponentScope(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(&buf, logging.Options{Backend: "zerolog", Format: "json", Level: "info"})
	require.NoError(t, err)

	s := health.NewServer("", map[string]health.Check{
		"transport": func(context.Context) error { return errors.New("no broker") },
	}, time.Hour, logger)
	s.Refresh(context.Background())

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line), buf.String())
	assert.Equal(t, "health", line["component"])
	assert.Equal(t, "transport", line["check"])
	assert.Equal(t, "no broker", line["error"])
}
