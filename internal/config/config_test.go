package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, "database:\n  path: "+filepath.Join(dir, "db", "test.db")+"\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, "local", cfg.Locking.Backend)
	assert.Equal(t, "UTC", cfg.Booking.Timezone)
	assert.Equal(t, 10*time.Second, cfg.LockTTL())
	assert.Equal(t, 25*time.Millisecond, cfg.LockRetryInterval())
	assert.Equal(t, 24*time.Hour, cfg.BackupInterval())
	assert.Equal(t, time.UTC, cfg.Location())
	assert.DirExists(t, filepath.Join(dir, "db"))
}

func TestLoad_EnvExpansionAndRooms(t *testing.T) {
	t.Setenv("ROOMBOOKING_TEST_REDIS", "localhost:6379")
	dir := t.TempDir()
	path := writeConfig(t, `
database:
  path: `+filepath.Join(dir, "test.db")+`
redis:
  address: ${ROOMBOOKING_TEST_REDIS}
locking:
  backend: redis
  ttl_seconds: 15
booking:
  timezone: Europe/Berlin
rooms:
  - name: Room 1
    capacity: 2
    price_per_day: "100.00"
  - name: Suite
    capacity: 4
    price_per_day: "250.5"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "localhost:6379", cfg.Redis.Address)
	assert.Equal(t, 15*time.Second, cfg.LockTTL())
	assert.Equal(t, "Europe/Berlin", cfg.Location().String())
	require.Len(t, cfg.Rooms, 2)

	room, err := cfg.Rooms[1].Room()
	require.NoError(t, err)
	assert.Equal(t, int64(25050), room.PricePerDayCents)
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()
	dbLine := "database:\n  path: " + filepath.Join(dir, "test.db") + "\n"

	tests := []struct {
		name string
		body string
	}{
		{"redis backend without address", dbLine + "locking:\n  backend: redis\n"},
		{"redis lock ttl within busy timeout", dbLine + "redis:\n  address: localhost:6379\nlocking:\n  backend: redis\n  ttl_seconds: 5\n"},
		{"unknown backend", dbLine + "locking:\n  backend: etcd\n"},
		{"bad timezone", dbLine + "booking:\n  timezone: Mars/Olympus\n"},
		{"bad room", dbLine + "rooms:\n  - name: X\n    capacity: 0\n    price_per_day: \"1\"\n"},
		{"bad yaml", "database: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
