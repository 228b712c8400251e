package ids

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewULIDIsValidAndDistinct(t *testing.T) {
	first, err := NewULID()
	require.NoError(t, err)
	require.NoError(t, ValidateULID(first))

	second, err := NewULID()
	require.NoError(t, err)
	require.NoError(t, ValidateULID(second))
	require.NotEqual(t, first, second)
}

func TestValidateULIDRejectsGarbage(t *testing.T) {
	for _, value := range []string{"", "not-a-ulid", "01ARZ3NDEKTSV4RRFFQ69G5FA", "ILOU" + "01ARZ3NDEKTSV4RRFFQ69G"} {
		require.ErrorIs(t, ValidateULID(value), ErrInvalidULID, "value %q", value)
	}
}

func TestIsULIDTrimsWhitespace(t *testing.T) {
	id, err := NewULID()
	require.NoError(t, err)
	require.True(t, IsULID("  "+id+"  "))
}
