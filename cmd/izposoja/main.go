// Command izposoja runs the library lending server and its admin tooling.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/erazemk/izposoja/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// app carries the settings shared by every subcommand.
type app struct {
	v          *viper.Viper
	configPath string
	cfg        *config.Config
	closeLog   func()
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.New()}

	root := &cobra.Command{
		Use:           "izposoja",
		Short:         "Library lending server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.v, a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg

			closeLog, err := setupLogger(cfg.Log)
			if err != nil {
				return err
			}
			a.closeLog = closeLog
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.closeLog != nil {
				a.closeLog()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "YAML config file")
	flags.StringP(config.KeyDB, "d", "izposoja.sqlite3", "SQLite database path")
	flags.StringP(config.KeyLog, "l", "", "log file path (default: stdout/stderr only)")
	flags.StringP("admin-user", "u", "admin", "first administrator's username when creating the database")
	a.bind(flags, config.KeyDB, config.KeyLog, config.KeyAdminUser)

	root.AddCommand(a.serveCmd(), a.initCmd(), a.adminCmd())
	return root
}

// bind lets flags override config keys. Flag names use dashes where keys use
// underscores.
func (a *app) bind(fs *pflag.FlagSet, keys ...string) {
	for _, key := range keys {
		if err := a.v.BindPFlag(key, fs.Lookup(strings.ReplaceAll(key, "_", "-"))); err != nil {
			panic(fmt.Sprintf("binding flag %s: %v", key, err))
		}
	}
}
