package log

import (
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAdapter() (*BadgerLogrusAdapter, *logtest.Hook) {
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return NewBadgerLogrusAdapter(logrus.NewEntry(logger).WithField("component", "badgerdb")), hook
}

func TestBadgerLogrusAdapter_Levels(t *testing.T) {
	tests := []struct {
		name  string
		log   func(a *BadgerLogrusAdapter)
		level logrus.Level
		msg   string
	}{
		{"Error", func(a *BadgerLogrusAdapter) { a.Errorf("error %s", "test") }, logrus.ErrorLevel, "error test"},
		{"Warning", func(a *BadgerLogrusAdapter) { a.Warningf("warning %d", 42) }, logrus.WarnLevel, "warning 42"},
		{"InfoDemoted", func(a *BadgerLogrusAdapter) { a.Infof("info %v", true) }, logrus.DebugLevel, "info true"},
		{"Debug", func(a *BadgerLogrusAdapter) { a.Debugf("debug") }, logrus.DebugLevel, "debug"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter, hook := newTestAdapter()
			tt.log(adapter)

			entry := hook.LastEntry()
			require.NotNil(t, entry)
			assert.Equal(t, tt.level, entry.Level)
			assert.Equal(t, tt.msg, entry.Message)
			assert.Equal(t, "badgerdb", entry.Data["component"])
		})
	}
}

func TestBadgerLogrusAdapter_TrimsNewline(t *testing.T) {
	adapter, hook := newTestAdapter()
	adapter.Infof("Replaying file id: %d at offset: %d\n", 1, 20)

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "Replaying file id: 1 at offset: 20", hook.LastEntry().Message)
}
