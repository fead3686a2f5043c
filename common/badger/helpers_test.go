package badger

import (
	"fmt"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/stretchr/testify/require"

	"github.com/switchboard-xyz/sbv2-solana-sub000/common/logging"
)

func openTestDB(t *testing.T) *badger.DB {
	logger := logging.GetLogger("common/badger/test")
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(NewLogAdapter(logger))
	db, err := badger.Open(opts)
	require.NoError(t, err, "badger.Open")
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestGCWorkerTasks(t *testing.T) {
	require := require.New(t)

	db := openTestDB(t)

	var calls int
	gc := NewGCWorker(logging.GetLogger("common/badger/test"), db, time.Hour, func() error {
		calls++
		return nil
	})
	defer gc.Close()

	require.NoError(gc.RunOnce(), "in-memory databases skip value log gc")
	require.Equal(1, calls)
}

func TestGCWorkerTaskFailure(t *testing.T) {
	require := require.New(t)

	db := openTestDB(t)
	gc := NewGCWorker(logging.GetLogger("common/badger/test"), db, 0, func() error {
		return fmt.Errorf("disk on fire")
	})

	require.ErrorContains(gc.RunOnce(), "disk on fire")

	gc.Close()
	gc.Close()
}
