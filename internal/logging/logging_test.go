package logging

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatter_Format(t *testing.T) {
	entry := &log.Entry{
		Time:    time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC),
		Level:   log.WarnLevel,
		Message: "profile applied\n",
		Data:    log.Fields{"profile": "T1", "endpoint": "https://h.test/v1"},
	}

	out, err := (&Formatter{}).Format(entry)
	require.NoError(t, err)
	assert.Equal(t, "[2026-01-02 15:04:05] [warn ] profile applied | endpoint=https://h.test/v1, profile=T1\n", string(out))
}

func TestSetup_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "acm.log")
	require.NoError(t, Setup(Options{Level: "debug", File: path}))
	t.Cleanup(func() { _ = Close() })

	assert.Equal(t, log.DebugLevel, log.GetLevel())
	log.WithField("k", "v").Debug("hello")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello | k=v")
}

func TestSetup_InvalidLevel(t *testing.T) {
	err := Setup(Options{Level: "loud"})
	assert.Error(t, err)
}
