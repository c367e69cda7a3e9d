// Package testlog gives tests a zerolog logger bound to t.Log.
package testlog

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/gregLibert/hwlink/pkg/logging"
)

// New returns a debug-level console logger whose output is attached to t and
// only shown for failing or verbose tests.
func New(t testing.TB) zerolog.Logger {
	t.Helper()
	return logging.New(logging.DefaultConfig(logging.ProfileTest), zerolog.NewTestWriter(t))
}
