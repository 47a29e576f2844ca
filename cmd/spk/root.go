package main

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spkdev/spk/pkg/spkconfig"
)

// usageError marks a command failure caused by the invocation itself
// (bad arguments, unresolvable ref) rather than by the operation it
// attempted, so Execute can tell exit code 2 from exit code 1 (
// "Exit codes").
type usageError struct{ err error }

func (u usageError) Error() string { return u.err.Error() }
func (u usageError) Unwrap() error { return u.err }

func usagef(format string, args ...interface{}) error {
	return usageError{err: fmt.Errorf(format, args...)}
}

var (
	cfgPath      string
	verbose      bool
	enableRepos  []string
	noLocalRepo  bool
	flagsViper   *viper.Viper
)

// RootCmd is the main command for the 'spk' binary: a package-level
// *cobra.Command with subcommands wired in init().
var RootCmd = &cobra.Command{
	Use:           "spk",
	Short:         "spk manages content-addressed packages and runtime environments",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initSession(cmd)
	},
}

func init() {
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	RootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to a spk config YAML document")
	RootCmd.PersistentFlags().StringSliceVar(&enableRepos, "enable-repo", nil, "additional configured repository to search, by name (repeatable)")
	RootCmd.PersistentFlags().BoolVar(&noLocalRepo, "no-local-repo", false, "do not search the current directory's workspace repository")
	flagsViper = spkconfig.BindFlags(RootCmd.PersistentFlags())

	RootCmd.AddCommand(buildCmd)
	RootCmd.AddCommand(makeSourceCmd)
	RootCmd.AddCommand(makeBinaryCmd)
	RootCmd.AddCommand(testCmd)
	RootCmd.AddCommand(envCmd)
	RootCmd.AddCommand(runCmd)
	RootCmd.AddCommand(publishCmd)
	RootCmd.AddCommand(deprecateCmd)
	RootCmd.AddCommand(undeprecateCmd)
	RootCmd.AddCommand(renderCmd)
	RootCmd.AddCommand(repoCmd)
}

// session holds the process-wide state every subcommand reads, built
// once by initSession from flags plus an optionally-loaded config file.
type session struct {
	cfg   *spkconfig.Config
	repos *repoSet
}

var current *session

func initSession(cmd *cobra.Command) error {
	cfg := &spkconfig.Config{}
	if cfgPath != "" {
		var err error
		cfg, err = spkconfig.ParseFile(cfgPath)
		if err != nil {
			return fmt.Errorf("spk: %w", err)
		}
	}
	spkconfig.ApplyFlags(cfg, flagsViper, cmd.Flags())
	if verbose {
		cfg.Log.Level = "debug"
	}
	if err := configureLogging(cfg); err != nil {
		return err
	}
	spkconfig.SetCurrent(cfg)

	repos, err := newRepoSet(cfg, enableRepos, noLocalRepo)
	if err != nil {
		return fmt.Errorf("spk: %w", err)
	}
	current = &session{cfg: cfg, repos: repos}
	return nil
}

// configureLogging sets level from config, formatter from config,
// defaulting to text. SPFS_LOG/RUST_LOG-style filter composition is
// read by the spkconfig env overlay, not here.
func configureLogging(cfg *spkconfig.Config) error {
	level, err := logrus.ParseLevel(orDefault(cfg.Log.Level, "info"))
	if err != nil {
		return usagef("spk: invalid log level %q: %w", cfg.Log.Level, err)
	}
	logrus.SetLevel(level)

	switch orDefault(cfg.Log.Formatter, "text") {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	case "text":
		logrus.SetFormatter(&logrus.TextFormatter{TimestampFormat: time.RFC3339Nano})
	default:
		return usagef("spk: unsupported log formatter %q", cfg.Log.Formatter)
	}
	return nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// Execute runs the command tree and maps its outcome onto
// three-way exit code contract.
func Execute() int {
	err := RootCmd.Execute()
	if err == nil {
		return 0
	}
	fmt.Fprintln(os.Stderr, "spk:", err)
	var usage usageError
	if asUsageError(err, &usage) {
		return 2
	}
	return 1
}

func asUsageError(err error, target *usageError) bool {
	for err != nil {
		if u, ok := err.(usageError); ok {
			*target = u
			return true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = unwrapper.Unwrap()
	}
	return false
}
