package cli

import (
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/anchorx/internal/model"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Version is set at build time
var Version = "0.1.0"

var (
	cfgFile string
	verbose bool
)

// envKeys are bound explicitly; AutomaticEnv alone does not reach Unmarshal
// for keys absent from the config file
var envKeys = []string{
	"http.timeout",
	"http.user_agent",
	"http.max_body_bytes",
	"http.max_retries",
	"http.insecure_tls",
	"http.http_proxy",
	"http.https_proxy",
	"http.no_proxy",
	"http.respect_robots",
	"cache.enabled",
	"cache.dir",
	"cache.memory_ttl",
	"cache.disk_ttl",
	"concurrency.workers",
	"rate_limiting.requests_per_second",
	"rate_limiting.burst_size",
	"extraction.fallback",
	"output.format",
}

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "anchorx",
	Short: "anchorx - template-driven text extraction",
	Long: `anchorx pulls structured fields out of loosely structured text such as HTML
fragments, log lines or reports.

A template is literal text with typed placeholders:

  <span class="price">{{NUMERIC:PRICE}}</span>

Literals are matched byte for byte and every placeholder captures the text
between its neighbours. Fields that cannot be located get a fallback value
instead of failing the whole extraction.`,
	SilenceErrors: true,
	SilenceUsage:  true,
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
		fmt.Fprintf(cmd.OutOrStdout(), "anchorx v%s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.anchorx/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	_ = viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		viper.AddConfigPath(filepath.Join(home, ".anchorx"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// ANCHORX_HTTP_TIMEOUT overrides http.timeout and so on
	viper.SetEnvPrefix("ANCHORX")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	for _, key := range envKeys {
		_ = viper.BindEnv(key)
	}

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// loadConfig layers the config file and environment over the defaults
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// viper lowercases map keys, so templates are read straight from the file
	cfg.Templates = model.DefaultConfig().Templates
	if path := viper.ConfigFileUsed(); path != "" {
		templates, err := readTemplates(path)
		if err != nil {
			return nil, err
		}
		maps.Copy(cfg.Templates, templates)
	}

	return cfg, nil
}

func readTemplates(path string) (map[string]model.TemplateSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var file struct {
		Templates map[string]model.TemplateSpec `yaml:"templates"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse templates in %s: %w", path, err)
	}
	return file.Templates, nil
}

// newLogger returns a stderr text logger when verbose, else a discarding one
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	if !verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
