package cmd

import (
	"errors"
	"io/fs"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/community-ranker/internal/logger"
	"github.com/spigell/community-ranker/internal/ranking"
	"github.com/spigell/community-ranker/internal/storage"
)

const (
	app       = "community-ranker"
	envPrefix = "COMMUNITY_RANKER"
)

type Config struct {
	Data            DataConfig     `mapstructure:"data"`
	TopN            int            `mapstructure:"top-n"`
	DisabledFilters []string       `mapstructure:"disabled-filters"`
	Storage         storage.Config `mapstructure:"storage"`
	Server          ServerConfig   `mapstructure:"server"`
	Log             LogConfig      `mapstructure:"log"`
}

// DataConfig tells where ranking requests read community data from.
type DataConfig struct {
	// Source is file, s3, minio, http or csv.
	Source   string `mapstructure:"source"`
	Object   string `mapstructure:"object"`
	NeedsCSV string `mapstructure:"needs-csv"`
	WantsCSV string `mapstructure:"wants-csv"`
}

type ServerConfig struct {
	Address        string        `mapstructure:"address"`
	AllowedOrigins []string      `mapstructure:"allowed-origins"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

type LogConfig struct {
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max-size"`
	MaxBackups int    `mapstructure:"max-backups"`
	MaxAge     int    `mapstructure:"max-age"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "community-ranker matches real-estate communities to a homebuyer's needs and wants",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is community-ranker.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))

	setDefaults(viper.GetViper())
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data.source", string(storage.TypeFile))
	v.SetDefault("data.object", "community-data.xlsx")
	v.SetDefault("data.needs-csv", "")
	v.SetDefault("data.wants-csv", "")
	v.SetDefault("top-n", ranking.DefaultTopN)
	v.SetDefault("disabled-filters", []string{})
	v.SetDefault("storage.type", string(storage.TypeFile))
	v.SetDefault("storage.bucket", ".")
	v.SetDefault("storage.region", "")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.use-ssl", true)
	v.SetDefault("storage.access-key", "")
	v.SetDefault("storage.access-key-file", "")
	v.SetDefault("storage.secret-key", "")
	v.SetDefault("storage.secret-key-file", "")
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.allowed-origins", []string{"*"})
	v.SetDefault("server.timeout", 30*time.Second)
	v.SetDefault("log.file", "")
}

func initConfig() {
	// .env is optional; real environment variables win over it.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env: %v", err)
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// Only an explicitly given config file is mandatory.
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}

// newLogger builds the process logger from flags and the log section.
func newLogger(config *Config) *zap.Logger {
	opts := logger.Options{
		JSON:  viper.GetBool("json"),
		Debug: viper.GetBool("debug"),
	}
	if config != nil {
		opts.File = config.Log.File
		opts.MaxSizeMB = config.Log.MaxSize
		opts.MaxBackups = config.Log.MaxBackups
		opts.MaxAgeDays = config.Log.MaxAge
	}

	l, err := logger.NewWithOptions(opts)
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	return l
}

// setup loads the config and the logger every command starts with.
func setup() (*Config, *zap.Logger) {
	config, err := getConfig()
	if err != nil {
		newLogger(nil).Fatal("getting a config", zap.Error(err))
	}
	if config == nil {
		config = &Config{}
	}

	return config, newLogger(config)
}
