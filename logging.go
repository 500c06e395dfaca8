package tokens

import (
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
)

// defaultLogger builds the logger used when callers do not inject one.
// Rich errors from this package carry categories and metadata, so wire
// the slog handler that knows how to expand them.
func defaultLogger(name string) Logger {
	return glog.NewLogger(
		glog.WithName(name),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(goerrors.ToSlogAttributes),
	)
}
