package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/symptomlog/internal/model"
	"github.com/ppiankov/symptomlog/internal/observe"
)

// version is overridden at build time with -ldflags "-X .../internal/cli.version=..."
var version = "0.1.0"

var (
	cfgFile string
	verbose bool

	// appCfg is loaded once per invocation, before any subcommand runs
	appCfg    *model.Config
	configErr error
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "symptomlog",
	Short: "symptomlog - structured symptom journal from free-form notes",
	Long: `symptomlog turns free-form symptom journal entries ("pain about 6/10,
grip weak, tired after gardening in the cold") into structured records:
symptom values, activities, triggers and a transparent confidence score.

Extraction is rule based and deterministic. It records what was said; it
does not diagnose or interpret.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configErr != nil {
			return configErr
		}
		cfg, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}
		if verbose {
			cfg.Output.Verbose = true
			cfg.Logging.Level = "debug"
		}
		observe.InitLogger(cfg.Logging.Level, cfg.Logging.Format)
		appCfg = cfg
		return nil
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("symptomlog v%s\n", version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.symptomlog/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")

	_ = viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	configErr = configureViper(viper.GetViper(), cfgFile)
}

// configureViper points v at the config file and the SYMPTOMLOG_* environment.
// Every key of the default config is registered so environment overrides
// reach nested fields, e.g. SYMPTOMLOG_SERVER_ADDR.
func configureViper(v *viper.Viper, file string) error {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".symptomlog"))
		}
		v.SetConfigType("yaml")
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("SYMPTOMLOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := setDefaults(v, model.DefaultConfig()); err != nil {
		return err
	}
	// Keys absent from the marshaled defaults
	_ = v.BindEnv("llm.api_key", "SYMPTOMLOG_LLM_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("source.http_proxy")
	_ = v.BindEnv("source.https_proxy")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// setDefaults registers every field of cfg as a viper default
func setDefaults(v *viper.Viper, cfg *model.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal defaults: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("unmarshal defaults: %w", err)
	}
	setDefaultTree(v, "", tree)
	return nil
}

func setDefaultTree(v *viper.Viper, prefix string, tree map[string]any) {
	for key, value := range tree {
		if prefix != "" {
			key = prefix + "." + key
		}
		if sub, ok := value.(map[string]any); ok {
			setDefaultTree(v, key, sub)
			continue
		}
		v.SetDefault(key, value)
	}
}

// loadConfig decodes v on top of the built-in defaults
func loadConfig(v *viper.Viper) (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}
