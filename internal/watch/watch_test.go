package watch

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collector struct {
	mu     sync.Mutex
	events []Event
}

func (c *collector) add(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *collector) seen(path string, op Op) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.events {
		if e.Path == path && e.Op == op {
			return true
		}
	}
	return false
}

func TestWatcherDeliversFileEvents(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "po"), 0o755))

	c := &collector{}
	w, err := New(c.add)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.AddTree(root))
	require.NoError(t, w.AddTree(root))
	assert.True(t, w.Watching(filepath.Join(root, "po")))

	file := filepath.Join(root, "po", "de.po")
	require.NoError(t, os.WriteFile(file, []byte("msgid \"a\"\n"), 0o644))
	assert.Eventually(t, func() bool {
		return c.seen(file, Created) || c.seen(file, Changed)
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.Remove(file))
	assert.Eventually(t, func() bool { return c.seen(file, Removed) }, 2*time.Second, 10*time.Millisecond)
}

func TestWatcherFollowsNewDirectories(t *testing.T) {
	root := t.TempDir()
	c := &collector{}
	w, err := New(c.add)
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.AddTree(root))

	sub := filepath.Join(root, "fr")
	require.NoError(t, os.Mkdir(sub, 0o755))
	assert.Eventually(t, func() bool { return w.Watching(sub) }, 2*time.Second, 10*time.Millisecond)

	file := filepath.Join(sub, "fr.po")
	require.NoError(t, os.WriteFile(file, []byte(""), 0o644))
	assert.Eventually(t, func() bool {
		return c.seen(file, Created) || c.seen(file, Changed)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWatcherRejectsFiles(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "x.po")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	w, err := New(nil)
	require.NoError(t, err)
	assert.Error(t, w.AddTree(file))
	assert.Error(t, w.AddTree(filepath.Join(root, "missing")))
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
}
