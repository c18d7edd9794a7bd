package log

import (
	"strings"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"
)

var _ badger.Logger = (*BadgerLogrusAdapter)(nil)

// BadgerLogrusAdapter routes badger's internal logging into logrus.
// Badger's info output (compactions, table flushes) is logged at debug level.
type BadgerLogrusAdapter struct {
	entry *logrus.Entry
}

// NewBadgerLogrusAdapter creates a new adapter
func NewBadgerLogrusAdapter(entry *logrus.Entry) *BadgerLogrusAdapter {
	return &BadgerLogrusAdapter{entry: entry}
}

// Errorf logs an error message
func (l *BadgerLogrusAdapter) Errorf(f string, v ...interface{}) { l.entry.Errorf(trimFormat(f), v...) }

// Warningf logs a warning message
func (l *BadgerLogrusAdapter) Warningf(f string, v ...interface{}) { l.entry.Warnf(trimFormat(f), v...) }

// Infof logs badger info messages at debug level
func (l *BadgerLogrusAdapter) Infof(f string, v ...interface{}) { l.entry.Debugf(trimFormat(f), v...) }

// Debugf logs a debug message
func (l *BadgerLogrusAdapter) Debugf(f string, v ...interface{}) { l.entry.Debugf(trimFormat(f), v...) }

// badger terminates its format strings with a newline; logrus adds its own
func trimFormat(f string) string {
	return strings.TrimRight(f, "\n")
}
