package unittest

import (
	"os"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v2"
	"github.com/stretchr/testify/require"
)

// RequireReturnsBefore fails the test when f is still running after timeout.
func RequireReturnsBefore(t testing.TB, f func(), timeout time.Duration, msgAndArgs ...interface{}) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		f()
	}()
	RequireCloseBefore(t, done, timeout, msgAndArgs...)
}

// RequireCloseBefore fails the test when c is still open after timeout.
func RequireCloseBefore(t testing.TB, c <-chan struct{}, timeout time.Duration, msgAndArgs ...interface{}) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-c:
	case <-timer.C:
		require.Fail(t, "channel still open after "+timeout.String(), msgAndArgs...)
	}
}

// TempDir returns a fresh directory, removed when the test ends.
func TempDir(t testing.TB) string {
	dir, err := os.MkdirTemp("", "witnessnet-test-")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	return dir
}

func RunWithTempDir(t testing.TB, f func(dir string)) {
	f(TempDir(t))
}

// RunWithBadgerDB runs f against a badger database in a temporary directory.
func RunWithBadgerDB(t testing.TB, f func(*badger.DB)) {
	opts := badger.DefaultOptions(TempDir(t)).
		WithKeepL0InMemory(true).
		WithLogger(nil)
	db, err := badger.Open(opts)
	require.NoError(t, err)
	defer db.Close()
	f(db)
}
