package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/numerus/internal/dependencies/mocks"
	"github.com/mcoot/numerus/internal/storage"
	"github.com/mcoot/numerus/internal/storage/storagetest"
)

// Set NUMERUS_TEST_DATABASE_URL to a disposable database to run these tests
const testDatabaseEnv = "NUMERUS_TEST_DATABASE_URL"

type StorageSuite struct {
	storagetest.Suite
	pg *Storage
}

func TestStorageSuite(t *testing.T) {
	url := os.Getenv(testDatabaseEnv)
	if url == "" {
		t.Skipf("%s not set", testDatabaseEnv)
	}

	cfg := DefaultConfig()
	cfg.URL = url
	clk := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	pg, err := New(context.Background(), cfg, clk)
	require.NoError(t, err)
	defer pg.Close()

	s := &StorageSuite{pg: pg}
	s.NewStorage = func() storage.Storage {
		_, err := pg.pool.Exec(context.Background(), `TRUNCATE rooms, room_players, room_messages`)
		require.NoError(t, err)
		return pg
	}
	suite.Run(t, s)
}
