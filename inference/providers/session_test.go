package providers

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

// withEnvironment pretends refs sessions hold the environment and counts teardowns.
func withEnvironment(t *testing.T, refs int) *int {
	t.Helper()

	destroyed := 0
	prev := destroyEnvironment
	destroyEnvironment = func() error {
		destroyed++
		return nil
	}
	envMu.Lock()
	envRefs = refs
	envMu.Unlock()

	t.Cleanup(func() {
		destroyEnvironment = prev
		envMu.Lock()
		envRefs = 0
		envMu.Unlock()
	})
	return &destroyed
}

func TestCloseSession_ReleasesEnvironmentOnDestroyFailure(t *testing.T) {
	destroyed := withEnvironment(t, 1)
	boom := errors.New("destroy failed")

	err := closeSession(func() error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, *destroyed)
	assert.Equal(t, 0, envRefs)
}

func TestCloseSession_KeepsSharedEnvironment(t *testing.T) {
	destroyed := withEnvironment(t, 2)

	assert.NoError(t, closeSession(func() error { return nil }))
	assert.Equal(t, 0, *destroyed)
	assert.Equal(t, 1, envRefs)

	assert.NoError(t, closeSession(func() error { return nil }))
	assert.Equal(t, 1, *destroyed)
	assert.Equal(t, 0, envRefs)
}

func TestCloseSession_JoinsEnvironmentError(t *testing.T) {
	withEnvironment(t, 1)
	envErr := errors.New("environment busy")
	destroyEnvironment = func() error { return envErr }
	boom := errors.New("destroy failed")

	err := closeSession(func() error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, envErr)
}
