package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/cwrk-planet/tempvoice/config"
	"github.com/cwrk-planet/tempvoice/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	keyConfig       = "config"
	keyLogLevel     = "log-level"
	keyDiscordToken = "discord-token"
)

// runtime is what every command gets after the root pre-run.
type runtime struct {
	v   *viper.Viper
	cfg *config.Config
	log *slog.Logger
}

// NewRootCmd builds the command tree. Flags can also be set through
// TEMPVOICE_CONFIG, TEMPVOICE_LOG_LEVEL and TEMPVOICE_DISCORD_TOKEN.
func NewRootCmd() *cobra.Command {
	rt := &runtime{v: viper.New()}

	root := &cobra.Command{
		Use:           "tempvoice",
		Short:         "Temporary voice rooms and per-member channels for Discord guilds",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return rt.setup(cmd)
		},
	}

	fs := root.PersistentFlags()
	fs.String(keyConfig, "", "config file (default $CONFIG_PATH or "+config.DefaultPath+")")
	fs.String(keyLogLevel, "", "log level: debug, info, warn, error")
	fs.String(keyDiscordToken, "", "bot token, overrides discord.token")
	bindFlags(rt.v, fs)

	root.AddCommand(
		newServeCmd(rt),
		newMigrateCmd(rt),
		newGeneratorCmd(rt),
		newUniqueCmd(rt),
		newBackfillCmd(rt),
		newReconcileCmd(rt),
		newTokenCmd(rt),
	)
	return root
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) {
	v.SetEnvPrefix("TEMPVOICE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
	})
}

func (rt *runtime) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(rt.v.GetString(keyConfig))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if tok := rt.v.GetString(keyDiscordToken); tok != "" {
		cfg.Discord.Token = tok
	}
	if lvl := rt.v.GetString(keyLogLevel); lvl != "" {
		cfg.Logging.Level = lvl
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, err := logger.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}
	lc := logger.Config{
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Env:       logger.ParseEnv(cfg.Logging.Env),
		Backend:   logger.Backend(cfg.Logging.Backend),
		Level:     level,
		Debug:     cfg.Logging.Debug,
		AddSource: cfg.Logging.AddSource,
		Output:    cmd.ErrOrStderr(),
	}
	if cfg.Logging.Env == "" {
		lc.Env = logger.DetectEnv()
	}
	if cmd.Name() == "serve" {
		lc.Output = cmd.OutOrStdout()
	}

	rt.cfg = cfg
	rt.log = logger.Init(lc)
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Execute runs the CLI and returns the process exit code.
func Execute(ctx context.Context) int {
	root := NewRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "tempvoice:", err)
		return 1
	}
	return 0
}
