package utils_test

import (
	"testing"

	"github.com/jrsteele09/go-imagen-client/internal/utils"
	"github.com/stretchr/testify/require"
)

func TestPointers(t *testing.T) {
	require.Equal(t, 0, utils.Value[int](nil))
	require.Equal(t, "x", utils.Value(utils.Ptr("x")))
	require.Nil(t, utils.PtrIf(3, false))
	require.Equal(t, 3, *utils.PtrIf(3, true))
}
