package id

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	id, err := Generate("bk")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "bk-"))
	// prefix + "-" + 21-char nanoid
	assert.Len(t, id, len("bk")+1+21)
}

func TestGenerate_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for range 1000 {
		id, err := Generate("cm")
		require.NoError(t, err)
		assert.False(t, seen[id], "duplicate ID generated: %s", id)
		seen[id] = true
	}
}

func TestMustGenerate(t *testing.T) {
	id := MustGenerate("sub")
	assert.True(t, strings.HasPrefix(id, "sub-"))
	assert.Len(t, id, len("sub")+1+21)
}
