package unittest

import (
	"flag"
	"io"
	"os"

	"github.com/rs/zerolog"
)

var verbose = flag.Bool("vv", false, "print module logs during tests")

// Logger returns a debug level logger, silent unless the tests run with -vv.
func Logger() zerolog.Logger {
	var w io.Writer = io.Discard
	if *verbose {
		w = zerolog.ConsoleWriter{Out: os.Stderr}
	}
	return zerolog.New(w).Level(zerolog.DebugLevel).With().Timestamp().Logger()
}
