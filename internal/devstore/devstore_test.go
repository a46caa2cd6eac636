package devstore

import (
	"testing"
	"time"

	"github.com/dgraph-io/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/hidrelay/hidrelay/internal/relaysvc"
)

func testStore(t *testing.T, now func() time.Time) *Store {
	t.Helper()
	opts := badger.DefaultOptions(t.TempDir())
	opts.Logger = nil
	db, err := badger.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db, zaptest.NewLogger(t), now)
}

func TestSeenTracksFirstAndLast(t *testing.T) {
	current := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	store := testStore(t, func() time.Time { return current })

	info := relaysvc.SourceInfo{Path: "/dev/input/event1", Name: "AceRK", Uniq: "aa:bb:cc:dd:ee:ff"}
	require.NoError(t, store.Seen(info))

	current = current.Add(time.Hour)
	require.NoError(t, store.Seen(info))

	records, err := store.List()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), records[0].FirstSeenAt)
	assert.Equal(t, time.Date(2024, 3, 1, 11, 0, 0, 0, time.UTC), records[0].LastSeenAt)
}

func TestSeenKeyedByHardwareAddress(t *testing.T) {
	current := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	store := testStore(t, func() time.Time { return current })

	require.NoError(t, store.Seen(relaysvc.SourceInfo{Path: "/dev/input/event1", Name: "AceRK", Uniq: "aa:bb:cc:dd:ee:ff"}))
	current = current.Add(time.Minute)
	// Same device, new node path after a reconnect.
	require.NoError(t, store.Seen(relaysvc.SourceInfo{Path: "/dev/input/event7", Name: "AceRK", Uniq: "aa:bb:cc:dd:ee:ff"}))

	records, err := store.List()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "/dev/input/event7", records[0].Path)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), records[0].FirstSeenAt)
}

func TestListOrdersByLastSeen(t *testing.T) {
	current := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	store := testStore(t, func() time.Time { return current })

	require.NoError(t, store.Seen(relaysvc.SourceInfo{Path: "/dev/input/event1", Name: "Older"}))
	current = current.Add(time.Minute)
	require.NoError(t, store.Seen(relaysvc.SourceInfo{Path: "/dev/input/event2", Name: "Newer"}))

	records, err := store.List()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Newer", records[0].Name)
	assert.Equal(t, "Older", records[1].Name)
}
