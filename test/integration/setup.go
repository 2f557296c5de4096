package integration

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"promo-batch/internal/gateway"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestDB represents a test database instance.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// SetupTestDB creates a PostgreSQL test container and connection pool.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	// Create PostgreSQL container
	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	// Get connection string
	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	// Create connection pool
	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		t.Fatalf("failed to parse connection string: %v", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		t.Fatalf("failed to create connection pool: %v", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("failed to ping database: %v", err)
	}

	// Create schema
	createSchema(t, pool)

	t.Cleanup(func() {
		pool.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return &TestDB{
		Container: postgresContainer,
		Pool:      pool,
		ConnStr:   connStr,
	}
}

// createSchema creates the database schema for testing.
func createSchema(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()

	schema := `
		CREATE TABLE IF NOT EXISTS discount_sets (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			shop TEXT NOT NULL,
			template_ref TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS discounts (
			id UUID PRIMARY KEY,
			shop TEXT NOT NULL,
			code TEXT NOT NULL,
			template_ref TEXT NOT NULL,
			set_id UUID REFERENCES discount_sets(id) ON DELETE CASCADE,
			status TEXT NOT NULL DEFAULT 'PENDING'
				CHECK (status IN ('PENDING', 'IN_PROGRESS', 'CREATED', 'FAILED')),
			remote_id TEXT,
			error_message TEXT,
			claimed_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (shop, code)
		);

		CREATE INDEX IF NOT EXISTS idx_discounts_set_status ON discounts (set_id, status);
		CREATE INDEX IF NOT EXISTS idx_discount_sets_shop ON discount_sets (shop);
	`

	_, err := pool.Exec(ctx, schema)
	if err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
}

// CleanupDB cleans all data from test tables.
func CleanupDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()

	tables := []string{"discounts", "discount_sets"}
	for _, table := range tables {
		_, err := pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s", table))
		if err != nil {
			t.Logf("failed to clean table %s: %v", table, err)
		}
	}
}

// FakeGateway is an in-memory stand-in for the remote discount service.
// Codes listed in RejectCodes are rejected with a field-level error;
// everything else is accepted and assigned a remote id.
type FakeGateway struct {
	mu          sync.Mutex
	Templates   map[string]*gateway.Template
	RejectCodes map[string]bool
	Created     map[string]string // code -> remote id
	Deleted     []string          // remote ids, in deletion order
}

// NewFakeGateway creates a fake gateway preloaded with the given templates.
func NewFakeGateway(templates ...*gateway.Template) *FakeGateway {
	fg := &FakeGateway{
		Templates:   make(map[string]*gateway.Template),
		RejectCodes: make(map[string]bool),
		Created:     make(map[string]string),
	}
	for _, tpl := range templates {
		fg.Templates[tpl.Ref] = tpl
	}
	return fg
}

func (g *FakeGateway) FetchTemplate(_ context.Context, ref string) (*gateway.Template, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	tpl, ok := g.Templates[ref]
	if !ok {
		return nil, gateway.ErrTemplateNotFound
	}
	copied := *tpl
	return &copied, nil
}

func (g *FakeGateway) CreateCode(_ context.Context, req gateway.CreateRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.RejectCodes[req.Code] {
		return "", &gateway.RejectedError{FieldErrors: []gateway.FieldError{
			{Field: "code", Message: "has already been taken"},
		}}
	}

	remoteID := "gid://remote/DiscountCodeNode/" + uuid.NewString()
	g.Created[req.Code] = remoteID
	return remoteID, nil
}

func (g *FakeGateway) DeleteCode(_ context.Context, remoteID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.Deleted = append(g.Deleted, remoteID)
	return nil
}

func (g *FakeGateway) ListTemplates(_ context.Context, limit int) ([]gateway.Template, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	templates := make([]gateway.Template, 0, len(g.Templates))
	for _, tpl := range g.Templates {
		if len(templates) >= limit {
			break
		}
		templates = append(templates, *tpl)
	}
	return templates, nil
}
