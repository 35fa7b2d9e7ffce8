// Command dbinspect prints the tables, columns and foreign keys of a live
// database schema.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/koustreak/dbinspect/internal/errs"
	"github.com/koustreak/dbinspect/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		report(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// report prints err for the user. The catalog query behind a failure, if
// any, goes to the debug log.
func report(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)
	if q := errs.QueryOf(err); q != "" {
		logger.Global().With().
			Str("kind", errs.KindOf(err).String()).
			Str("query", strings.Join(strings.Fields(q), " ")).
			Logger().
			Debug("failed query")
	}
}
