package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/DoyleJ11/bunker-backend/internal/engine"
)

// Config holds the application configuration.
type Config struct {
	Addr            string        `mapstructure:"ADDR"`
	AppEnv          string        `mapstructure:"APP_ENV"`
	LogLevel        string        `mapstructure:"LOG_LEVEL"`
	CORSOrigins     []string      `mapstructure:"CORS_ORIGINS"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
	DatabaseURL     string        `mapstructure:"DATABASE_URL"`

	UseTestTimers         bool          `mapstructure:"USE_TEST_TIMERS"`
	CatastropheRevealTime time.Duration `mapstructure:"CATASTROPHE_REVEAL_TIME"`
	BunkerExploreTime     time.Duration `mapstructure:"BUNKER_EXPLORE_TIME"`
	DiscussionTime        time.Duration `mapstructure:"DISCUSSION_TIME"`
	VoteTime              time.Duration `mapstructure:"VOTE_TIME"`
	TiebreakDefenseTime   time.Duration `mapstructure:"TIEBREAK_DEFENSE_TIME"`
	ResultDisplayTime     time.Duration `mapstructure:"RESULT_DISPLAY_TIME"`

	MinPlayers           int           `mapstructure:"MIN_PLAYERS"`
	MaxPlayers           int           `mapstructure:"MAX_PLAYERS"`
	TotalRounds          int           `mapstructure:"TOTAL_ROUNDS"`
	RoomCodeLength       int           `mapstructure:"ROOM_CODE_LENGTH"`
	MaxPlayerNameLength  int           `mapstructure:"MAX_PLAYER_NAME_LENGTH"`
	ReconnectGracePeriod time.Duration `mapstructure:"RECONNECT_GRACE_PERIOD"`
	BotActionDelayMin    time.Duration `mapstructure:"BOT_ACTION_DELAY_MIN"`
	BotActionDelayMax    time.Duration `mapstructure:"BOT_ACTION_DELAY_MAX"`
	BotVoteStagger       time.Duration `mapstructure:"BOT_VOTE_STAGGER"`

	MaxRooms          int           `mapstructure:"MAX_ROOMS"`
	RoomInactiveTTL   time.Duration `mapstructure:"ROOM_INACTIVE_TTL"`
	RoomSweepInterval time.Duration `mapstructure:"ROOM_SWEEP_INTERVAL"`
	RateLimitEvents   int           `mapstructure:"RATE_LIMIT_EVENTS"`
	RateLimitWindow   time.Duration `mapstructure:"RATE_LIMIT_WINDOW"`
}

var ErrInvalid = errors.New("config: invalid")

type timers struct {
	catastrophe, explore, discussion, vote, tiebreak, result time.Duration
}

var (
	prodTimers = timers{8 * time.Second, 5 * time.Second, 3 * time.Minute, 60 * time.Second, 60 * time.Second, 6 * time.Second}
	testTimers = timers{5 * time.Second, 5 * time.Second, 5 * time.Second, 15 * time.Second, 5 * time.Second, 5 * time.Second}
)

// Load reads the optional env files (".env" when none are given) into the
// process environment, then resolves every key from the environment with
// defaults. A missing env file is not an error.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load %s: %w", f, err)
		}
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ADDR", ":8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ORIGINS", []string{"*"})
	v.SetDefault("SHUTDOWN_TIMEOUT", 10*time.Second)
	v.SetDefault("DATABASE_URL", "")

	v.SetDefault("USE_TEST_TIMERS", false)
	t := prodTimers
	if v.GetBool("USE_TEST_TIMERS") {
		t = testTimers
	}
	v.SetDefault("CATASTROPHE_REVEAL_TIME", t.catastrophe)
	v.SetDefault("BUNKER_EXPLORE_TIME", t.explore)
	v.SetDefault("DISCUSSION_TIME", t.discussion)
	v.SetDefault("VOTE_TIME", t.vote)
	v.SetDefault("TIEBREAK_DEFENSE_TIME", t.tiebreak)
	v.SetDefault("RESULT_DISPLAY_TIME", t.result)

	e := engine.DefaultConfig()
	v.SetDefault("MIN_PLAYERS", e.MinPlayers)
	v.SetDefault("MAX_PLAYERS", e.MaxPlayers)
	v.SetDefault("TOTAL_ROUNDS", e.TotalRounds)
	v.SetDefault("ROOM_CODE_LENGTH", 6)
	v.SetDefault("MAX_PLAYER_NAME_LENGTH", e.MaxNameLength)
	v.SetDefault("RECONNECT_GRACE_PERIOD", e.ReconnectGrace)
	v.SetDefault("BOT_ACTION_DELAY_MIN", e.BotActionDelayMin)
	v.SetDefault("BOT_ACTION_DELAY_MAX", e.BotActionDelayMax)
	v.SetDefault("BOT_VOTE_STAGGER", e.BotVoteStagger)

	v.SetDefault("MAX_ROOMS", 500)
	v.SetDefault("ROOM_INACTIVE_TTL", 30*time.Minute)
	v.SetDefault("ROOM_SWEEP_INTERVAL", time.Minute)
	v.SetDefault("RATE_LIMIT_EVENTS", 50)
	v.SetDefault("RATE_LIMIT_WINDOW", 10*time.Second)
}

func (c Config) Validate() error {
	switch {
	case c.MinPlayers < 2:
		return fmt.Errorf("%w: MIN_PLAYERS must be at least 2", ErrInvalid)
	case c.MaxPlayers < c.MinPlayers:
		return fmt.Errorf("%w: MAX_PLAYERS below MIN_PLAYERS", ErrInvalid)
	case c.TotalRounds < 1:
		return fmt.Errorf("%w: TOTAL_ROUNDS must be positive", ErrInvalid)
	case c.RoomCodeLength < 4:
		return fmt.Errorf("%w: ROOM_CODE_LENGTH must be at least 4", ErrInvalid)
	case c.MaxPlayerNameLength < 1:
		return fmt.Errorf("%w: MAX_PLAYER_NAME_LENGTH must be positive", ErrInvalid)
	case c.BotActionDelayMax < c.BotActionDelayMin:
		return fmt.Errorf("%w: BOT_ACTION_DELAY_MAX below BOT_ACTION_DELAY_MIN", ErrInvalid)
	case c.MaxRooms < 1:
		return fmt.Errorf("%w: MAX_ROOMS must be positive", ErrInvalid)
	case c.RateLimitEvents < 1 || c.RateLimitWindow <= 0:
		return fmt.Errorf("%w: rate limit needs positive RATE_LIMIT_EVENTS and RATE_LIMIT_WINDOW", ErrInvalid)
	case c.RoomSweepInterval <= 0 || c.RoomInactiveTTL <= 0:
		return fmt.Errorf("%w: ROOM_SWEEP_INTERVAL and ROOM_INACTIVE_TTL must be positive", ErrInvalid)
	}
	return nil
}

func (c Config) IsProduction() bool { return c.AppEnv == "production" }

// Engine projects the per-room settings.
func (c Config) Engine() engine.Config {
	return engine.Config{
		MinPlayers:        c.MinPlayers,
		MaxPlayers:        c.MaxPlayers,
		TotalRounds:       c.TotalRounds,
		MaxNameLength:     c.MaxPlayerNameLength,
		CatastropheReveal: c.CatastropheRevealTime,
		BunkerExplore:     c.BunkerExploreTime,
		Discussion:        c.DiscussionTime,
		Vote:              c.VoteTime,
		TiebreakDefense:   c.TiebreakDefenseTime,
		ResultDisplay:     c.ResultDisplayTime,
		ReconnectGrace:    c.ReconnectGracePeriod,
		BotActionDelayMin: c.BotActionDelayMin,
		BotActionDelayMax: c.BotActionDelayMax,
		BotVoteStagger:    c.BotVoteStagger,
	}
}
