//go:build integration

package mariadb

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestContainer(t *testing.T) (*Pool, func()) {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "mariadb:11",
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MARIADB_USER":          "test",
			"MARIADB_PASSWORD":      "test",
			"MARIADB_DATABASE":      "testdb",
			"MARIADB_ROOT_PASSWORD": "root",
		},
		WaitingFor: wait.ForLog("ready for connections").
			WithOccurrence(2).
			WithStartupTimeout(90 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "3306")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	cfg := &config.DatabaseConfig{
		MariaDBDSN:   fmt.Sprintf("test:test@tcp(%s:%s)/testdb", host, port.Port()),
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}
	pool, err := Initialize(ctx, cfg)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to initialize MariaDB: %v", err)
	}

	cleanup := func() {
		pool.Close()
		container.Terminate(ctx)
	}
	return pool, cleanup
}

func TestLedgerRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	store, err := database.GetLedgerStore(ctx, database.BackendMariaDB)
	if err != nil {
		t.Fatalf("Expected registered MariaDB store: %v", err)
	}

	day := ledger.Day{Year: 2024, Month: time.March, Day: 11}
	at := time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC)
	rec := ledger.Record{IdentityID: "001", DisplayName: "Ali", Date: day, Time: at, Status: ledger.StatusPresent}

	if err := store.Append(ctx, day, rec); err != nil {
		t.Fatalf("Failed to append: %v", err)
	}
	if err := store.Append(ctx, day, rec); !errors.Is(err, ledger.ErrDuplicate) {
		t.Errorf("Expected ErrDuplicate, got %v", err)
	}

	records, err := store.Load(ctx, day)
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}
	if len(records) != 1 || !records[0].Time.Equal(at) {
		t.Errorf("Unexpected records %+v", records)
	}

	g := ledger.NewGuard(store)
	outcome, err := g.MarkPresent(ctx, "001", "Ali", day)
	if err != nil || outcome != ledger.AlreadyMarked {
		t.Errorf("Expected AlreadyMarked, got %q (%v)", outcome, err)
	}

	days, err := store.Days(ctx, 5)
	if err != nil || len(days) != 1 || days[0] != day {
		t.Errorf("Unexpected days %v (%v)", days, err)
	}
	all, err := store.Days(ctx, 0)
	if err != nil || len(all) != 1 {
		t.Errorf("Expected every day with limit 0, got %v (%v)", all, err)
	}
}
