package utils

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestNewIDIsUUID(t *testing.T) {
	a, b := NewID(), NewID()
	require.NotEqual(t, a, b)

	_, err := uuid.Parse(a)
	require.NoError(t, err)
	require.Equal(t, a[:8], ShortID(a))
	require.Equal(t, "abc", ShortID("abc"))
}
