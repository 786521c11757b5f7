package cmd

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/trialscope/internal/eligibility"
	"github.com/spigell/trialscope/internal/filtering"
	"github.com/spigell/trialscope/internal/registry"
)

const (
	app       = "trialscope"
	envPrefix = "TRIALSCOPE"
)

type Config struct {
	Registry *registry.Config     `mapstructure:"registry"`
	Filters  *filtering.Criteria  `mapstructure:"filters"`
	Profile  *eligibility.Profile `mapstructure:"profile"`
	Report   *ReportConfig        `mapstructure:"report"`
}

type ReportConfig struct {
	// Top is how many trials or matches are listed.
	Top      int `mapstructure:"top"`
	BarWidth int `mapstructure:"bar-width"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "trialscope searches the ClinicalTrials.gov registry, filters trials and scores them against a patient profile",
		Long: "trialscope searches the ClinicalTrials.gov registry, filters trials and scores them against a patient profile.\n" +
			"Eligibility scores are keyword heuristics for research and education, not medical advice.",
		SilenceUsage: true,
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is trialscope.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("registry.page-size", 200)
	v.SetDefault("registry.timeout", 30*time.Second)
	v.SetDefault("registry.rate-limit", 5)
	v.SetDefault("registry.cache.enabled", true)
	v.SetDefault("registry.cache.size", 32)
	v.SetDefault("registry.cache.ttl", time.Hour)

	v.SetDefault("filters.phase", "All")
	v.SetDefault("filters.status", "All")

	v.SetDefault("report.top", 20)
	v.SetDefault("report.bar-width", 40)
}

// envKeys have no default, so they must be bound to be seen by Unmarshal.
var envKeys = []string{
	"registry.url",
	"registry.user-agent",
	"filters.country",
	"filters.sponsor",
	"filters.enrollment-min",
	"filters.enrollment-max",
	"filters.skip",
	"profile.age",
	"profile.diagnosis",
	"profile.pregnant",
	"profile.renal-disease",
	"profile.cancer-history",
}

func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			log.Fatalf("binding %s environment variable: %v", key, err)
		}
	}
}

func initConfig() {
	setDefaults(viper.GetViper())

	bindEnv(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// The config file is optional unless given explicitly, but a broken one is fatal.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return
		}
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	return decodeConfig(viper.GetViper())
}

func decodeConfig(v *viper.Viper) (*Config, error) {
	var config *Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if config == nil {
		config = &Config{}
	}
	if config.Registry == nil {
		config.Registry = &registry.Config{}
	}
	if config.Filters == nil {
		config.Filters = &filtering.Criteria{}
	}
	if config.Profile == nil {
		config.Profile = &eligibility.Profile{}
	}
	if config.Report == nil {
		config.Report = &ReportConfig{}
	}

	return config, nil
}
