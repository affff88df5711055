package main

import (
	"github.com/urfave/cli/v2"

	"github.com/entrhq/bddrun/pkg/config"
)

// EnvVarPrefix prefixes the environment variable of every flag.
const EnvVarPrefix = "BDDRUN"

func prefixEnvVar(name string) []string {
	return []string{EnvVarPrefix + "_" + name}
}

// Flag names.
const (
	ConfigFileFlag      = "config"
	FeaturesFlag        = "features"
	ResultsDirFlag      = "results-dir"
	MaxRetriesFlag      = "max-retries"
	BaseURLFlag         = "base-url"
	EngineFlag          = "browser"
	HeadlessFlag        = "headless"
	ViewportFlag        = "viewport"
	SkipInstallFlag     = "skip-install"
	TagsFlag            = "tags"
	ExcludeTagsFlag     = "exclude-tags"
	IgnoreHTTPSTagsFlag = "ignore-https-errors-tags"
	StepTimeoutFlag     = "step-timeout"
	CleanArtifactsFlag  = "clean-artifacts"
	MetricsFileFlag     = "metrics-file"
	VerbosityFlag       = "verbosity"
)

// newFlags returns the command line flags. Each flag can also be set
// through its environment variable.
func newFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    ConfigFileFlag,
			Aliases: []string{"c"},
			EnvVars: prefixEnvVar("CONFIG"),
			Usage:   "Path to configuration file (YAML)",
		},
		&cli.StringSliceFlag{
			Name:    FeaturesFlag,
			EnvVars: prefixEnvVar("FEATURES"),
			Usage:   "Feature files or directories (positional arguments take precedence)",
		},
		&cli.StringFlag{
			Name:    ResultsDirFlag,
			EnvVars: prefixEnvVar("RESULTS_DIR"),
			Usage:   "Directory receiving logs, videos, traces, screenshots and results",
		},
		&cli.IntFlag{
			Name:    MaxRetriesFlag,
			EnvVars: append([]string{"MAX_RETRIES"}, prefixEnvVar("MAX_RETRIES")...),
			Usage:   "Retries after a failed first attempt",
		},
		&cli.StringFlag{
			Name:    BaseURLFlag,
			EnvVars: prefixEnvVar("BASE_URL"),
			Usage:   "Base URL for relative navigation",
		},
		&cli.StringFlag{
			Name:    EngineFlag,
			EnvVars: prefixEnvVar("BROWSER"),
			Usage:   "Browser engine: chromium, firefox or webkit",
		},
		&cli.BoolFlag{
			Name:    HeadlessFlag,
			EnvVars: prefixEnvVar("HEADLESS"),
			Usage:   "Run the browser without a visible window",
		},
		&cli.StringFlag{
			Name:    ViewportFlag,
			EnvVars: prefixEnvVar("VIEWPORT"),
			Usage:   "Viewport: 'screen' or WIDTHxHEIGHT",
		},
		&cli.BoolFlag{
			Name:    SkipInstallFlag,
			EnvVars: prefixEnvVar("SKIP_INSTALL"),
			Usage:   "Do not download the Playwright driver and browsers",
		},
		&cli.StringSliceFlag{
			Name:    TagsFlag,
			EnvVars: prefixEnvVar("TAGS"),
			Usage:   "Run only scenarios with a tag matching one of these globs (eg. '@smoke')",
		},
		&cli.StringSliceFlag{
			Name:    ExcludeTagsFlag,
			EnvVars: prefixEnvVar("EXCLUDE_TAGS"),
			Usage:   "Skip scenarios with a tag matching one of these globs",
		},
		&cli.StringSliceFlag{
			Name:    IgnoreHTTPSTagsFlag,
			EnvVars: prefixEnvVar("IGNORE_HTTPS_ERRORS_TAGS"),
			Usage:   "Tags whose scenarios accept invalid certificates",
		},
		&cli.DurationFlag{
			Name:    StepTimeoutFlag,
			EnvVars: prefixEnvVar("STEP_TIMEOUT"),
			Usage:   "Timeout for each step (e.g. '30s'); 0 disables it",
		},
		&cli.BoolFlag{
			Name:    CleanArtifactsFlag,
			EnvVars: prefixEnvVar("CLEAN_ARTIFACTS"),
			Usage:   "Remove artifacts of previous runs at start",
		},
		&cli.StringFlag{
			Name:    MetricsFileFlag,
			EnvVars: prefixEnvVar("METRICS_FILE"),
			Usage:   "Write Prometheus metrics to this file at the end of the run",
		},
		&cli.StringFlag{
			Name:    VerbosityFlag,
			EnvVars: prefixEnvVar("VERBOSITY"),
			Usage:   "Console output: quiet, normal, verbose or debug",
		},
	}
}

// loadConfig reads the configuration file and applies every flag or
// environment variable that was set.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String(ConfigFileFlag))
	if err != nil {
		return nil, err
	}

	if c.IsSet(FeaturesFlag) {
		cfg.Features = c.StringSlice(FeaturesFlag)
	}
	if c.Args().Present() {
		cfg.Features = c.Args().Slice()
	}
	if c.IsSet(ResultsDirFlag) {
		cfg.ResultsDir = c.String(ResultsDirFlag)
	}
	if c.IsSet(MaxRetriesFlag) {
		cfg.MaxRetries = c.Int(MaxRetriesFlag)
	}
	if c.IsSet(BaseURLFlag) {
		cfg.BaseURL = c.String(BaseURLFlag)
	}
	if c.IsSet(EngineFlag) {
		cfg.Browser.Engine = c.String(EngineFlag)
	}
	if c.IsSet(HeadlessFlag) {
		cfg.Browser.Headless = c.Bool(HeadlessFlag)
	}
	if c.IsSet(ViewportFlag) {
		cfg.Browser.Viewport = c.String(ViewportFlag)
	}
	if c.IsSet(SkipInstallFlag) {
		cfg.Browser.SkipInstall = c.Bool(SkipInstallFlag)
	}
	if c.IsSet(TagsFlag) {
		cfg.Tags.Include = c.StringSlice(TagsFlag)
	}
	if c.IsSet(ExcludeTagsFlag) {
		cfg.Tags.Exclude = c.StringSlice(ExcludeTagsFlag)
	}
	if c.IsSet(IgnoreHTTPSTagsFlag) {
		cfg.Tags.IgnoreHTTPSErrors = c.StringSlice(IgnoreHTTPSTagsFlag)
	}
	if c.IsSet(StepTimeoutFlag) {
		cfg.StepTimeout = c.Duration(StepTimeoutFlag)
	}
	if c.IsSet(CleanArtifactsFlag) {
		cfg.CleanArtifacts = c.Bool(CleanArtifactsFlag)
	}
	if c.IsSet(MetricsFileFlag) {
		cfg.MetricsFile = c.String(MetricsFileFlag)
	}
	if c.IsSet(VerbosityFlag) {
		cfg.Logging.Verbosity = c.String(VerbosityFlag)
	}

	return cfg, cfg.Validate()
}
