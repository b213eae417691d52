package main

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/triagelab/escalate/escalate/config"
	"github.com/triagelab/escalate/escalate/db"
	"github.com/triagelab/escalate/escalate/engine"
)

var (
	flagConfig   string
	flagLogLevel string
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "escalate",
		Short: "Escalation decision engine",
		Long: `Decides per conversation turn whether to hand off to a human,
fusing deterministic pattern rules, a calibrated model score, and rolling
per-conversation state under two-threshold hysteresis.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagConfig, "config", "", "path to policy config file")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "override log level (debug, info, warn, error)")

	root.AddCommand(newScoreCmd())
	root.AddCommand(newChatCmd())
	root.AddCommand(newReplayCmd())
	root.AddCommand(newResetCmd())

	return root
}

// runtime bundles everything a command needs: the wired arbiter plus the
// handles that must be closed on exit.
type runtime struct {
	cfg     *config.Config
	arbiter *engine.PolicyArbiter
	logger  zerolog.Logger
	conn    *sql.DB
}

func (rt *runtime) Close() {
	if rt.conn != nil {
		rt.conn.Close()
	}
}

func setup() (*runtime, error) {
	cfg, err := config.LoadConfig(flagConfig)
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	var conn *sql.DB
	if cfg.State.Backend == "libsql" || cfg.Audit.Enabled {
		conn, err = db.Connect(cfg.State.DatabasePath)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(conn); err != nil {
			conn.Close()
			return nil, err
		}
	}

	arbiter, err := engine.NewFactory(cfg, conn, logger).CreateArbiter()
	if err != nil {
		if conn != nil {
			conn.Close()
		}
		return nil, err
	}

	return &runtime{cfg: cfg, arbiter: arbiter, logger: logger, conn: conn}, nil
}

func newLogger(cfg *config.Config) (zerolog.Logger, error) {
	levelStr := cfg.Logging.Level
	if flagLogLevel != "" {
		levelStr = flagLogLevel
	}
	level, err := zerolog.ParseLevel(levelStr)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("invalid log level %q: %w", levelStr, err)
	}

	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	return zerolog.New(writer).Level(level).With().Timestamp().Logger(), nil
}
