package integration

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/safar/go-checkout-core/internal/checkout"
	"github.com/safar/go-checkout-core/internal/config"
	"github.com/safar/go-checkout-core/internal/gateway"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestDB(t *testing.T) (*sql.DB, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:14-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "testuser",
			"POSTGRES_PASSWORD": "testpass",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	postgres, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}

	host, err := postgres.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := postgres.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	dsn := fmt.Sprintf("postgres://testuser:testpass@%s:%s/testdb?sslmode=disable", host, port.Port())

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.Ping(); err != nil {
		t.Fatalf("Failed to ping database: %v", err)
	}

	if err := runMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		if err := db.Close(); err != nil {
			t.Logf("Failed to close database: %v", err)
		}
		if err := postgres.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	}

	return db, cleanup
}

func runMigrations(db *sql.DB) error {
	migrationDir := "../../migrations"
	files, err := os.ReadDir(migrationDir)
	if err != nil {
		return fmt.Errorf("read migration directory: %w", err)
	}

	var migrationFiles []string
	for _, file := range files {
		if !file.IsDir() && strings.HasSuffix(file.Name(), ".up.sql") {
			migrationFiles = append(migrationFiles, file.Name())
		}
	}

	sort.Strings(migrationFiles)

	for _, filename := range migrationFiles {
		filePath := filepath.Join(migrationDir, filename)
		content, err := os.ReadFile(filePath)
		if err != nil {
			return fmt.Errorf("read migration file %s: %w", filename, err)
		}

		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("execute migration %s: %w", filename, err)
		}
	}

	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Checkout: config.CheckoutConfig{
			Currency:          "usd",
			ShippingFeeMinor:  695,
			MaxItemsPerOrder:  50,
			VIPThresholdMinor: 50000,
		},
		Gateway: config.GatewayConfig{
			SuccessURL: "https://shop.test/success",
			CancelURL:  "https://shop.test/cancel",
		},
	}
}

func newService(db *sql.DB, gw gateway.Client, notifier checkout.Notifier) *checkout.Service {
	return &checkout.Service{
		DB:       db,
		Gateway:  gw,
		Notifier: notifier,
		Config:   testConfig(),
	}
}

// fakeGateway stands in for the external payment gateway: sessions exist only
// in memory and are marked paid explicitly by the test.
type fakeGateway struct {
	mu       sync.Mutex
	sessions map[string]*gateway.Session
	requests []*gateway.SessionRequest
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{sessions: make(map[string]*gateway.Session)}
}

func (f *fakeGateway) CreateCheckoutSession(ctx context.Context, req *gateway.SessionRequest) (*gateway.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := fmt.Sprintf("sess_%d", len(f.sessions)+1)
	session := &gateway.Session{
		ID:            id,
		URL:           "https://gateway.test/pay/" + id,
		PaymentStatus: gateway.PaymentStatusUnpaid,
		Metadata:      req.Metadata,
	}
	f.sessions[id] = session
	f.requests = append(f.requests, req)

	copied := *session
	return &copied, nil
}

func (f *fakeGateway) RetrieveSession(ctx context.Context, id string) (*gateway.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	session, ok := f.sessions[id]
	if !ok {
		return nil, fmt.Errorf("fake gateway: unknown session %s", id)
	}

	copied := *session
	return &copied, nil
}

func (f *fakeGateway) markPaid(id, paymentIntent string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if session, ok := f.sessions[id]; ok {
		session.PaymentStatus = gateway.PaymentStatusPaid
		session.PaymentIntent = paymentIntent
	}
}

func (f *fakeGateway) lastRequest() *gateway.SessionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.requests) == 0 {
		return nil
	}
	return f.requests[len(f.requests)-1]
}

// fakeNotifier records published events.
type fakeNotifier struct {
	mu     sync.Mutex
	events map[string]int
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{events: make(map[string]int)}
}

func (f *fakeNotifier) Publish(ctx context.Context, routingKey string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.events[routingKey]++
	return nil
}

func (f *fakeNotifier) count(routingKey string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.events[routingKey]
}
