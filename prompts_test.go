package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPromptPoolEmbedded(t *testing.T) {
	pool, err := newPromptPool("")
	require.NoError(t, err)

	assert.Greater(t, pool.size(), 100)
	for _, p := range pool.prompts {
		assert.NotEmpty(t, p)
		assert.False(t, strings.HasPrefix(p, "#"))
	}
}

func TestNewPromptPoolFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.txt")
	contents := "# custom prompts\nA robot at a picnic\n\nA cat wearing a suit\nA haunted vending machine\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	pool, err := newPromptPool(path)
	require.NoError(t, err)

	assert.Equal(t, 3, pool.size())
	assert.Equal(t, "A robot at a picnic", pool.prompts[0])
}

func TestNewPromptPoolMissingFile(t *testing.T) {
	_, err := newPromptPool(filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
}

func TestNewPromptPoolEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.txt")
	require.NoError(t, os.WriteFile(path, []byte("# only comments\n\n"), 0o644))

	_, err := newPromptPool(path)
	assert.Error(t, err)
}

func TestPickIsDeterministicForSeed(t *testing.T) {
	pool, err := newPromptPool("")
	require.NoError(t, err)

	first := make([]string, 0, 10)
	second := make([]string, 0, 10)

	rng := testRNG()
	for i := 0; i < 10; i++ {
		first = append(first, pool.pick(rng))
	}
	rng = testRNG()
	for i := 0; i < 10; i++ {
		second = append(second, pool.pick(rng))
	}

	assert.Equal(t, first, second)
	for _, p := range first {
		assert.Contains(t, pool.prompts, p)
	}
}
