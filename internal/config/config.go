package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	charmLog "github.com/charmbracelet/log"
	toml "github.com/pelletier/go-toml/v2"

	"github.com/hylla/taskboard/internal/app"
	"github.com/hylla/taskboard/internal/board"
)

type Config struct {
	Database DatabaseConfig `toml:"database"`
	Board    BoardConfig    `toml:"board"`
	Logging  LoggingConfig  `toml:"logging"`
	UI       UIConfig       `toml:"ui"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type BoardConfig struct {
	AllowOverrideOnBlocked bool   `toml:"allow_override_on_blocked"`
	RejectCycles           bool   `toml:"reject_cycles"`
	DanglingBlockers       string `toml:"dangling_blockers"` // resolved | blocking | tombstone
	CelebrationDuration    string `toml:"celebration_duration"`
	PruneDeletedBlockers   bool   `toml:"prune_deleted_blockers"`
}

type LoggingConfig struct {
	Level   string        `toml:"level"`
	DevFile DevFileConfig `toml:"dev_file"`
}

// DevFileConfig controls the log file written while running in dev mode.
// A blank Dir means the platform log dir.
type DevFileConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

type UIConfig struct {
	ShowDueDate       bool `toml:"show_due_date"`
	ShowCollaborators bool `toml:"show_collaborators"`
	ShowDescription   bool `toml:"show_description"`
}

func Default(dbPath string) Config {
	return Config{
		Database: DatabaseConfig{
			Path: dbPath,
		},
		Board: BoardConfig{
			AllowOverrideOnBlocked: true,
			RejectCycles:           true,
			DanglingBlockers:       string(board.DanglingResolved),
			CelebrationDuration:    board.DefaultCelebrationDuration.String(),
			PruneDeletedBlockers:   false,
		},
		Logging: LoggingConfig{
			Level: "info",
			DevFile: DevFileConfig{
				Enabled: true,
			},
		},
		UI: UIConfig{
			ShowDueDate:       true,
			ShowCollaborators: true,
			ShowDescription:   false,
		},
	}
}

func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("database path is required")
	}

	if _, err := board.ParseDanglingPolicy(c.Board.DanglingBlockers); err != nil {
		return fmt.Errorf("invalid board.dangling_blockers: %w", err)
	}
	if _, err := c.CelebrationDurationValue(); err != nil {
		return err
	}

	if _, err := charmLog.ParseLevel(strings.TrimSpace(strings.ToLower(c.Logging.Level))); err != nil {
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}

	return nil
}

// CelebrationDurationValue parses board.celebration_duration. Empty means the
// board default.
func (c Config) CelebrationDurationValue() (time.Duration, error) {
	raw := strings.TrimSpace(c.Board.CelebrationDuration)
	if raw == "" {
		return board.DefaultCelebrationDuration, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid board.celebration_duration: %q", c.Board.CelebrationDuration)
	}
	if d <= 0 {
		return 0, fmt.Errorf("board.celebration_duration must be > 0, got %q", c.Board.CelebrationDuration)
	}
	return d, nil
}

// SessionConfig maps the [board] table onto board session policies.
func (c Config) SessionConfig() (board.SessionConfig, error) {
	policy, err := board.ParseDanglingPolicy(c.Board.DanglingBlockers)
	if err != nil {
		return board.SessionConfig{}, fmt.Errorf("invalid board.dangling_blockers: %w", err)
	}
	d, err := c.CelebrationDurationValue()
	if err != nil {
		return board.SessionConfig{}, err
	}
	return board.SessionConfig{
		AllowOverrideOnBlocked: c.Board.AllowOverrideOnBlocked,
		RejectCycles:           c.Board.RejectCycles,
		Dangling:               policy,
		CelebrationDuration:    d,
	}, nil
}

func (c Config) ServiceConfig() app.ServiceConfig {
	return app.ServiceConfig{
		RejectCycles:         c.Board.RejectCycles,
		PruneDeletedBlockers: c.Board.PruneDeletedBlockers,
	}
}

func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
