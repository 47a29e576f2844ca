package spkconfig

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// BindFlags registers the subset of Config that cmd/spk exposes
// directly as flags, with CLI flag overrides merged via pflag/viper.
// Call once per command that accepts these flags; ApplyFlags then
// layers whichever of them the user actually set onto a parsed Config.
func BindFlags(fs *pflag.FlagSet) *viper.Viper {
	fs.String("log-level", "", "log level (debug, info, warn, error)")
	fs.String("log-formatter", "", "log formatter (text, json)")
	fs.Bool("no-host", false, "exclude host-detected options from a build's given option map")

	v := viper.New()
	_ = v.BindPFlag("log.level", fs.Lookup("log-level"))
	_ = v.BindPFlag("log.formatter", fs.Lookup("log-formatter"))
	_ = v.BindPFlag("build.no_host", fs.Lookup("no-host"))
	return v
}

// ApplyFlags overlays onto cfg whichever flags BindFlags registered
// that the user actually set, leaving cfg's YAML-sourced values alone
// otherwise (a flag default never overrides a configured value).
func ApplyFlags(cfg *Config, v *viper.Viper, fs *pflag.FlagSet) {
	if fs.Changed("log-level") {
		cfg.Log.Level = v.GetString("log.level")
	}
	if fs.Changed("log-formatter") {
		cfg.Log.Formatter = v.GetString("log.formatter")
	}
	if fs.Changed("no-host") {
		cfg.Build.NoHost = v.GetBool("build.no_host")
	}
}
