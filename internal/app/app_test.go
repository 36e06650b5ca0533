package app

import (
	"bytes"
	"encoding/json"
	"net"
	"net/http"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"storefront-wallet/config"
	"storefront-wallet/internal/core/ports"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/fx/fxtest"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Server: config.ServerConfig{
			Host:            "127.0.0.1",
			Port:            0,
			ShutdownTimeout: time.Second,
		},
		App:       config.AppConfig{PublicURL: "http://localhost:3000", Currency: "jpy"},
		Storage:   config.StorageConfig{Driver: config.DriverMemory},
		Registry:  config.RegistryConfig{Driver: config.DriverStore},
		JWT:       config.JWTConfig{Secret: "test-secret", Expiry: time.Hour, Issuer: "storefront-wallet"},
		Stripe:    config.StripeConfig{BaseURL: "http://127.0.0.1:1"},
		PayPal:    config.PayPalConfig{BaseURL: "http://127.0.0.1:1", Simulate: true},
		Provider:  config.ProviderConfig{Timeout: time.Second},
		Checkout:  config.CheckoutConfig{MinAmount: 100},
		Streak:    config.StreakConfig{BonusAmount: 100, IntervalDays: 7, Timezone: "UTC"},
		Reconcile: config.ReconcileConfig{SweepInterval: time.Hour, StaleAfter: time.Minute, BatchSize: 10},
		Log:       config.LogConfig{Level: "error"},
	}
}

func startApp(t *testing.T, cfg *config.Config, populate ...any) {
	t.Helper()
	app := fxtest.New(t,
		fx.WithLogger(func() fxevent.Logger { return NewFxLogger(zerolog.Nop()) }),
		fx.Supply(cfg, zerolog.Nop()),
		Module(),
		fx.Populate(populate...),
	)
	app.RequireStart()
	t.Cleanup(app.RequireStop)
}

func TestApp_ServesClientWallets(t *testing.T) {
	var srv *Server
	startApp(t, testConfig(t), &srv)
	base := "http://" + srv.Addr()

	resp, err := http.Post(base+"/api/v1/clients", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created struct {
		Data struct {
			ClientID string `json:"client_id"`
			Token    string `json:"token"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	require.NotEmpty(t, created.Data.Token)

	req, _ := http.NewRequest(http.MethodGet, base+"/api/v1/wallet", nil)
	req.Header.Set("Authorization", "Bearer "+created.Data.Token)
	wresp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer wresp.Body.Close()
	assert.Equal(t, http.StatusOK, wresp.StatusCode)
}

func TestApp_SimulatedPayPalCheckout(t *testing.T) {
	var srv *Server
	startApp(t, testConfig(t), &srv)

	body := bytes.NewBufferString(`{"amount":500,"paymentMethod":"paypal"}`)
	resp, err := http.Post("http://"+srv.Addr()+"/api/create-payment-session", "application/json", body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Contains(t, out["orderId"], "SANDBOX-500-")
	assert.Contains(t, out["approvalUrl"], "/payment-success?")
}

func TestApp_SQLiteWithRedisRegistry(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Storage = config.StorageConfig{
		Driver:     config.DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "wallet.db"),
		Seal:       true,
	}
	cfg.AES.Key = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"
	cfg.Registry.Driver = config.DriverRedis
	cfg.RateLimit = config.RateLimitConfig{Enabled: true, Requests: 5, Window: time.Minute}
	host, port := splitAddr(t, mr.Addr())
	cfg.Redis = config.RedisConfig{Host: host, Port: port}

	var b *Backends
	var registry ports.IdempotencyStore
	startApp(t, cfg, &b, &registry)

	assert.NotNil(t, b.RateLimit)
	assert.Len(t, b.Checkers, 2)
	assert.Equal(t, "redis", b.Checkers[1].Name())
	assert.Same(t, b.Registry, registry)
}

func TestApp_RejectsUnknownDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Driver = "cassandra"

	app := fx.New(
		fx.NopLogger,
		fx.Supply(cfg, zerolog.Nop()),
		Module(),
	)
	assert.ErrorContains(t, app.Err(), "unknown storage driver")
}

func splitAddr(t *testing.T, addr string) (string, int) {
	t.Helper()
	host, p, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(p)
	require.NoError(t, err)
	return host, port
}
