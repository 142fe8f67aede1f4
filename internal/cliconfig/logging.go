package cliconfig

import (
	"github.com/rs/zerolog"

	logAdapter "github.com/bft-labs/hubterm/internal/adapters/log"
)

// logger writes human readable lines to stderr, the same format the bridge
// logs in once it is wired to the adapter.
var logger = logAdapter.NewZerologAdapter().Logger()

// Logger returns the CLI logger.
func Logger() zerolog.Logger {
	return logger
}
