package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rkurbatov/myangular/pkg/values"
)

func TestWatchGroupFiresOncePerDigest(t *testing.T) {
	root, _, _ := newTestRoot()
	root.Set("a", num(1))
	root.Set("b", num(2))

	calls := 0
	var lastNew []values.Value
	_, err := root.WatchGroup([]string{"a", "b"}, func(newValues, oldValues []values.Value, s *Scope) {
		calls++
		lastNew = newValues
	})
	require.NoError(t, err)

	require.NoError(t, root.Digest())
	require.Equal(t, 1, calls, "one call despite two expressions changing")
	require.Len(t, lastNew, 2)
	assert.True(t, lastNew[0].Is(num(1)))
	assert.True(t, lastNew[1].Is(num(2)))

	root.Set("a", num(9))
	root.Set("b", num(8))
	require.NoError(t, root.Digest())
	assert.Equal(t, 2, calls)
}

func TestWatchGroupFirstRunPassesSameSlice(t *testing.T) {
	root, _, _ := newTestRoot()
	root.Set("a", num(1))

	var firstSame, laterSame bool
	calls := 0
	_, err := root.WatchGroup([]string{"a", "a + 1"}, func(newValues, oldValues []values.Value, s *Scope) {
		calls++
		if calls == 1 {
			firstSame = &newValues[0] == &oldValues[0]
		} else {
			laterSame = &newValues[0] == &oldValues[0]
		}
	})
	require.NoError(t, err)

	require.NoError(t, root.Digest())
	assert.True(t, firstSame, "first firing shares one sequence")

	root.Set("a", num(2))
	require.NoError(t, root.Digest())
	require.Equal(t, 2, calls)
	assert.False(t, laterSame, "later firings use distinct sequences")
}

func TestWatchGroupReportsOldValues(t *testing.T) {
	root, _, _ := newTestRoot()
	root.Set("a", num(1))
	root.Set("b", num(2))

	var oldSeen []values.Value
	_, err := root.WatchGroup([]string{"a", "b"}, func(newValues, oldValues []values.Value, s *Scope) {
		oldSeen = append([]values.Value{}, oldValues...)
	})
	require.NoError(t, err)
	require.NoError(t, root.Digest())

	root.Set("a", num(5))
	require.NoError(t, root.Digest())
	assert.True(t, oldSeen[0].Is(num(1)), "old values reflect the previous round")
	assert.True(t, oldSeen[1].Is(num(2)))
}

func TestWatchGroupEmptyList(t *testing.T) {
	root, sched, _ := newTestRoot()
	calls := 0
	deregister, err := root.WatchGroup(nil, func(newValues, oldValues []values.Value, s *Scope) {
		calls++
		assert.Empty(t, newValues)
	})
	require.NoError(t, err)
	assert.Zero(t, calls, "the single firing goes through the async queue")

	sched.Drain()
	assert.Equal(t, 1, calls)

	// Deregistering before the firing suppresses it.
	root2, sched2, _ := newTestRoot()
	calls2 := 0
	deregister2, err := root2.WatchGroup(nil, func(_, _ []values.Value, _ *Scope) { calls2++ })
	require.NoError(t, err)
	deregister2()
	sched2.Drain()
	assert.Zero(t, calls2)

	_ = deregister
}

func TestWatchGroupDeregistration(t *testing.T) {
	root, _, _ := newTestRoot()
	root.Set("a", num(1))
	root.Set("b", num(2))

	calls := 0
	deregister, err := root.WatchGroup([]string{"a", "b"}, func(_, _ []values.Value, _ *Scope) {
		calls++
	})
	require.NoError(t, err)
	require.NoError(t, root.Digest())
	require.Equal(t, 1, calls)

	deregister()
	root.Set("a", num(9))
	require.NoError(t, root.Digest())
	assert.Equal(t, 1, calls)
}

func TestWatchGroupCompileErrorUnwindsCleanly(t *testing.T) {
	root, _, _ := newTestRoot()
	_, err := root.WatchGroup([]string{"a", "b ==="}, func(_, _ []values.Value, _ *Scope) {})
	require.Error(t, err)
	assert.Empty(t, root.watchers, "the already-registered watcher was removed")
}
