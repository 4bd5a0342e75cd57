package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenDB(filepath.Join(t.TempDir(), "arena.sqlite3"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSettings(t *testing.T) {
	db := openTestDB(t)
	assert.Equal(t, "", db.GetSetting("jwt_secret"))

	require.NoError(t, db.SetSetting("jwt_secret", "abc"))
	require.NoError(t, db.SetSetting("jwt_secret", "def"))
	assert.Equal(t, "def", db.GetSetting("jwt_secret"))
}

func TestEventsFlushOnStop(t *testing.T) {
	db := openTestDB(t)
	ev := NewEvents(db)

	ev.Chat("al", "hello")
	ev.Chat("bo", "hi")
	ev.FailedLogin("mallory", "10.0.0.1")
	ev.Session("al", 120, 90*time.Second, "bo")
	ev.Session("bo", 300, time.Minute, "")
	ev.Stop()
	ev.Stop()

	n, err := db.CountChat()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = db.CountFailedLogins(time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	top, err := db.TopSessions(10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "bo", top[0].Name)
	assert.Equal(t, 300.0, top[0].PeakMass)
	assert.Equal(t, "al", top[1].Name)
	assert.Equal(t, "bo", top[1].EatenBy)
	assert.InDelta(t, 90, top[1].Played, 0.001)
	assert.Len(t, top[0].ID, 36)
	assert.NotEqual(t, top[0].ID, top[1].ID)
	assert.False(t, top[0].EndedAt.IsZero())
}

func TestEventsBatchThreshold(t *testing.T) {
	db := openTestDB(t)
	ev := NewEvents(db)
	defer ev.Stop()

	for i := 0; i < flushThreshold; i++ {
		ev.Chat("al", "spam")
	}
	require.Eventually(t, func() bool {
		n, err := db.CountChat()
		return err == nil && n == flushThreshold
	}, 2*time.Second, 10*time.Millisecond)
}

func TestNilEvents(t *testing.T) {
	var ev *Events
	ev.Chat("a", "b")
	ev.FailedLogin("a", "b")
	ev.Session("a", 1, time.Second, "")
	assert.Equal(t, 0, ev.Dropped())
	ev.Stop()
}

func TestEventsWithoutDB(t *testing.T) {
	ev := NewEvents(nil)
	ev.Chat("a", "b")
	ev.Stop()
}
