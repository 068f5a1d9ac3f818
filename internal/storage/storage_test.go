package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var stamp = time.Date(2024, 1, 10, 9, 30, 0, 0, time.UTC)

func TestNormalizeFilename(t *testing.T) {
	assert.Equal(t, "my_calendar_20240110_093000.ics", normalizeFilename("my calendar.ics", stamp))
	assert.Equal(t, "file_20240110_093000.ics", normalizeFilename("ç@!.ics", stamp))
	assert.Equal(t, "events_20240110_093000", normalizeFilename("events", stamp))
}

func TestGetContentType(t *testing.T) {
	assert.Equal(t, "text/calendar; charset=utf-8", getContentType("a.ICS"))
	assert.Equal(t, "application/octet-stream", getContentType("a.bin"))
}

func TestLocalStorageSaveObject(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	ls := NewLocalStorage(dir)
	ls.now = func() time.Time { return stamp }

	path, err := ls.SaveObject("calendar.ics", strings.NewReader("BEGIN:VCALENDAR"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "calendar_20240110_093000.ics"), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "BEGIN:VCALENDAR", string(raw))
}
