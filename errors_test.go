package uthread_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coroutil/uthread"
)

func TestMisuseErrorDiagnosticFormat(t *testing.T) {
	require.NoError(t, uthread.Init(1000, uthread.WithTimerSource(&fakeTimer{})))
	defer uthread.Shutdown()

	err := uthread.Block(-1)
	require.Error(t, err)
	require.True(t, uthread.IsMisuse(err))
	require.False(t, uthread.IsSystem(err))

	var libErr *uthread.Error
	require.True(t, errors.As(err, &libErr))
	require.Equal(t, "block", libErr.Op)
	require.Contains(t, err.Error(), "thread library error:")
}
