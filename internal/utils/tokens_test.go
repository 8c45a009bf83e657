package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionID(t *testing.T) {
	a, err := NewSessionID(16)
	require.NoError(t, err)
	b, err := NewSessionID(16)
	require.NoError(t, err)
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)

	c, err := NewSessionID(0)
	require.NoError(t, err)
	assert.Len(t, c, 32)
}
