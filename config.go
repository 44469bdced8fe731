/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Seednode/santabox/exchange"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const defaultTitle = "Secret Santa Assignments"

type Config struct {
	attempts       int
	bind           string
	forbid         []string
	metrics        bool
	port           int
	prefix         string
	profile        bool
	roster         []string
	rosterFile     string
	sessionTimeout time.Duration
	title          string
	titleSet       bool
	tlsCert        string
	tlsKey         string
	verbose        bool
	version        bool

	participants exchange.Roster
	exclusions   exchange.Forbidden
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.attempts < 1 {
		return fmt.Errorf("invalid attempts (must be at least 1): %d", c.attempts)
	}
	if strings.TrimSpace(c.title) == "" {
		c.title = defaultTitle
	}

	return c.loadRoster()
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

func (c *Config) matcher() *exchange.Matcher {
	return exchange.NewMatcher(exchange.WithAttempts(c.attempts))
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("SANTABOX")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "santabox",
		Short:         "A Secret Santa drawing, revealed one person at a time on a shared device.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.titleSet = cmd.Flags().Changed("title")

			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.IntVar(&cfg.attempts, "attempts", exchange.DefaultAttempts, "random draws to try before giving up on a pairing (env: SANTABOX_ATTEMPTS)")
	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: SANTABOX_BIND)")
	fs.StringSliceVar(&cfg.forbid, "forbid", nil, "giver:receiver pair that may not be drawn, repeatable (env: SANTABOX_FORBID)")
	fs.BoolVar(&cfg.metrics, "metrics", false, "expose prometheus metrics at /metrics (env: SANTABOX_METRICS)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: SANTABOX_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: SANTABOX_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: SANTABOX_PROFILE)")
	fs.StringSliceVarP(&cfg.roster, "roster", "r", nil, "participant names, in reveal order (env: SANTABOX_ROSTER)")
	fs.StringVar(&cfg.rosterFile, "roster-file", "", "yaml file listing participants and exclusions (env: SANTABOX_ROSTER_FILE)")
	fs.DurationVar(&cfg.sessionTimeout, "session-timeout", 60*time.Minute, "time before idle exchanges are ended (env: SANTABOX_SESSION_TIMEOUT)")
	fs.StringVar(&cfg.title, "title", defaultTitle, "heading for the exported assignment list (env: SANTABOX_TITLE)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: SANTABOX_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: SANTABOX_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: SANTABOX_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: SANTABOX_VERSION)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("santabox v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
