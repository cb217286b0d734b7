package adaptive

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adaptivecache/internal/predictor"
)

func newTestRegistry() *Registry {
	return NewRegistry(testConfig(), nil, nil)
}

func TestRegistryGetOrCreateReturnsSameInstance(t *testing.T) {
	r := newTestRegistry()
	defer r.StopAll()

	first, err := r.GetOrCreate("users", nil)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.True(t, first.Status().Running, "controller must be started on creation")

	second, err := r.GetOrCreate("users", nil)
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestRegistryRejectsEmptyName(t *testing.T) {
	r := newTestRegistry()
	defer r.StopAll()

	_, err := r.GetOrCreate("", nil)
	assert.Error(t, err)
}

func TestRegistryAppliesOverrides(t *testing.T) {
	r := newTestRegistry()
	defer r.StopAll()

	ctrl, err := r.GetOrCreate("tuned", map[string]any{
		"performance_window": 7,
		"switch_cooldown":    "90m",
	})
	require.NoError(t, err)
	assert.Equal(t, 7, ctrl.cfg.PerformanceWindow)
	assert.Equal(t, 90*time.Minute, ctrl.cfg.SwitchCooldown)

	// Other caches keep the base configuration.
	plain, err := r.GetOrCreate("plain", nil)
	require.NoError(t, err)
	assert.Equal(t, testConfig().PerformanceWindow, plain.cfg.PerformanceWindow)
}

func TestRegistryRejectsUnknownOverrideKeys(t *testing.T) {
	r := newTestRegistry()
	defer r.StopAll()

	_, err := r.GetOrCreate("typo", map[string]any{"performence_window": 7})
	assert.Error(t, err)
	assert.Empty(t, r.ListAll())
}

func TestRegistryRemove(t *testing.T) {
	r := newTestRegistry()
	defer r.StopAll()

	ctrl, err := r.GetOrCreate("ephemeral", nil)
	require.NoError(t, err)

	assert.True(t, r.Remove("ephemeral"))
	assert.False(t, ctrl.Status().Running, "removal must stop the controller")
	assert.False(t, r.Remove("ephemeral"), "second removal reports no entry")
	assert.False(t, r.Remove("never-existed"))
}

func TestRegistryListAllIsDefensiveCopy(t *testing.T) {
	r := newTestRegistry()
	defer r.StopAll()

	_, err := r.GetOrCreate("a", nil)
	require.NoError(t, err)

	listed := r.ListAll()
	require.Len(t, listed, 1)
	delete(listed, "a")

	assert.Len(t, r.ListAll(), 1, "mutating the returned map must not affect the registry")
}

func TestRegistryStopAll(t *testing.T) {
	r := newTestRegistry()

	a, err := r.GetOrCreate("a", nil)
	require.NoError(t, err)
	b, err := r.GetOrCreate("b", nil)
	require.NoError(t, err)

	r.StopAll()

	assert.False(t, a.Status().Running)
	assert.False(t, b.Status().Running)
	assert.Empty(t, r.ListAll())
}

func TestRegistryPredictorFactory(t *testing.T) {
	r := newTestRegistry()
	defer r.StopAll()

	calls := 0
	r.SetPredictorFactory(func() predictor.Predictor {
		calls++
		return predictor.NewNoop()
	})

	_, err := r.GetOrCreate("x", nil)
	require.NoError(t, err)
	_, err = r.GetOrCreate("y", nil)
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
}
