package taskcore

import (
	"testing"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
	"github.com/stretchr/testify/require"
)

func TestSetLoggerRoundTrip(t *testing.T) {
	original := getLogger()
	t.Cleanup(func() { SetLogger(original) })

	custom := stumpy.L.New(stumpy.L.WithLevel(logiface.LevelTrace))
	SetLogger(custom)
	require.Same(t, custom, getLogger())
}

func TestDefaultLoggerIsDisabled(t *testing.T) {
	// A freshly imported package defaults to a disabled logger so
	// panic-recovery/poll-error logging costs nothing until a consumer
	// opts in via SetLogger.
	logger := getLogger()
	require.NotNil(t, logger)
}
