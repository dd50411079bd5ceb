// Package logging provides the module's single structured logger,
// backed by sirupsen/logrus the way startdusk-go-libs' own utilities
// reach for structured fields instead of fmt.Printf. Every package that
// logs takes a *logrus.Entry (or calls logging.Default()) rather than the
// global logrus functions, so callers embedding this module can redirect
// or silence its output without package-level state surprises.
package logging

import (
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	once    sync.Once
	root    *logrus.Logger
)

// Default returns the module's shared logger, configured once on first
// use with a JSON formatter (friendlier to log aggregation than logrus'
// default text formatter) at Info level.
func Default() *logrus.Logger {
	once.Do(func() {
		root = logrus.New()
		root.SetOutput(os.Stderr)
		root.SetFormatter(&logrus.JSONFormatter{})
		root.SetLevel(logrus.InfoLevel)
	})
	return root
}

// For returns a component-scoped entry, e.g. logging.For("executor").
func For(component string) *logrus.Entry {
	return Default().WithField("component", component)
}

// SetLevel overrides the shared logger's level, e.g. from config.
func SetLevel(level logrus.Level) {
	Default().SetLevel(level)
}
