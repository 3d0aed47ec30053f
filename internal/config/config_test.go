package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func missingEnv(t *testing.T) string {
	return filepath.Join(t.TempDir(), "absent.env")
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(missingEnv(t))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 500, cfg.MaxRooms)
	assert.Equal(t, 6, cfg.RoomCodeLength)
	assert.Equal(t, 50, cfg.RateLimitEvents)
	assert.Equal(t, 10*time.Second, cfg.RateLimitWindow)
	assert.Equal(t, 30*time.Minute, cfg.RoomInactiveTTL)

	e := cfg.Engine()
	assert.Equal(t, 4, e.MinPlayers)
	assert.Equal(t, 16, e.MaxPlayers)
	assert.Equal(t, 5, e.TotalRounds)
	assert.Equal(t, 8*time.Second, e.CatastropheReveal)
	assert.Equal(t, 3*time.Minute, e.Discussion)
	assert.Equal(t, 6*time.Second, e.ResultDisplay)
	assert.Equal(t, 60*time.Second, e.ReconnectGrace)
}

func TestLoadTestTimers(t *testing.T) {
	t.Setenv("USE_TEST_TIMERS", "true")
	t.Setenv("VOTE_TIME", "20s")

	cfg, err := Load(missingEnv(t))
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.DiscussionTime)
	assert.Equal(t, 5*time.Second, cfg.CatastropheRevealTime)
	assert.Equal(t, 20*time.Second, cfg.VoteTime, "explicit values win over the test preset")
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("MAX_ROOMS=12\nCORS_ORIGINS=http://a.test,http://b.test\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("MAX_ROOMS")
		os.Unsetenv("CORS_ORIGINS")
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.MaxRooms)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{name: "max below min", env: map[string]string{"MIN_PLAYERS": "6", "MAX_PLAYERS": "5"}},
		{name: "no rounds", env: map[string]string{"TOTAL_ROUNDS": "0"}},
		{name: "inverted bot delay", env: map[string]string{"BOT_ACTION_DELAY_MIN": "5s", "BOT_ACTION_DELAY_MAX": "1s"}},
		{name: "short room code", env: map[string]string{"ROOM_CODE_LENGTH": "2"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load(missingEnv(t))
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}
