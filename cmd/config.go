package cmd

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"text/template"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var configForce bool

// configDirFunc returns the config directory path, replaceable in tests.
var configDirFunc = defaultConfigDir

func defaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "codereview"), nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or manage configuration",
	Long: `Show or manage codereview configuration.

Running bare 'codereview config' is the same as 'codereview config show'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create config file with commented defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configInitRun()
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration with sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open config file in $EDITOR",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configEditRun()
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite existing config file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	rootCmd.AddCommand(configCmd)
}

// configTemplate is the template for generating config.yaml with comments.
const configTemplate = `# codereview configuration
# See: codereview config show (for effective values and sources)

# State/data directory (default: ~/.config/codereview)
# state_dir: {{ .StateDir }}

# SQLite history database path (default: ~/.config/codereview/codereview.db)
# db_path: {{ .DBPath }}

# Anthropic
anthropic:
  # API key; ANTHROPIC_API_KEY is used when this is empty
  # api_key: ""

  # Model used by every pipeline stage
  model: "{{ .Model }}"

# Review pipeline
pipeline:
  # Items per model call in the batched stages
  batch_size: {{ .BatchSize }}

  # Concurrent model calls per stage
  workers: {{ .Workers }}

  # Whole-review deadline; stages still running are cut short
  timeout: "{{ .Timeout }}"

  # Submissions longer than this are flagged for style review
  max_lines: {{ .MaxLines }}

# Review history
history:
  # Record every review to the database
  enabled: {{ .HistoryEnabled }}

# HTTP port for 'codereview serve'
port: {{ .Port }}
`

type configTemplateData struct {
	StateDir       string
	DBPath         string
	Model          string
	BatchSize      int
	Workers        int
	Timeout        string
	MaxLines       int
	HistoryEnabled bool
	Port           int
}

func configFilePath() (string, error) {
	dir, err := configDirFunc()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func configInitRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfgPath); err == nil {
		if !configForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", cfgPath)
		}
		ui.Warning("Overwriting existing config file")
	}

	// Build template data from current viper values
	data := configTemplateData{
		StateDir:       viper.GetString("state_dir"),
		DBPath:         viper.GetString("db_path"),
		Model:          viper.GetString("anthropic.model"),
		BatchSize:      viper.GetInt("pipeline.batch_size"),
		Workers:        viper.GetInt("pipeline.workers"),
		Timeout:        viper.GetDuration("pipeline.timeout").String(),
		MaxLines:       viper.GetInt("pipeline.max_lines"),
		HistoryEnabled: viper.GetBool("history.enabled"),
		Port:           viper.GetInt("port"),
	}

	tmpl, err := template.New("config").Parse(configTemplate)
	if err != nil {
		return fmt.Errorf("template parse error: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("template execute error: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfgPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	// The file may later hold an API key.
	if err := os.WriteFile(cfgPath, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	ui.Success("Config file created: %s", cfgPath)
	fmt.Fprintln(ui.Out)
	fmt.Fprint(ui.Out, buf.String())
	return nil
}

// configKeyInfo describes a config key for display purposes.
type configKeyInfo struct {
	Key    string
	EnvVar string
	Secret bool
}

var configKeys = []configKeyInfo{
	{Key: "state_dir", EnvVar: "CODEREVIEW_STATE_DIR"},
	{Key: "db_path", EnvVar: "CODEREVIEW_DB_PATH"},
	{Key: "anthropic.api_key", EnvVar: "CODEREVIEW_ANTHROPIC_API_KEY", Secret: true},
	{Key: "anthropic.model", EnvVar: "CODEREVIEW_ANTHROPIC_MODEL"},
	{Key: "pipeline.batch_size", EnvVar: "CODEREVIEW_PIPELINE_BATCH_SIZE"},
	{Key: "pipeline.workers", EnvVar: "CODEREVIEW_PIPELINE_WORKERS"},
	{Key: "pipeline.timeout", EnvVar: "CODEREVIEW_PIPELINE_TIMEOUT"},
	{Key: "pipeline.max_lines", EnvVar: "CODEREVIEW_PIPELINE_MAX_LINES"},
	{Key: "history.enabled", EnvVar: "CODEREVIEW_HISTORY_ENABLED"},
	{Key: "port", EnvVar: "CODEREVIEW_PORT"},
}

func configShowRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfgPath); err == nil {
		ui.Info("Config file: %s", cfgPath)
	} else {
		ui.Info("Config file: (none)")
	}
	fmt.Fprintln(ui.Out)

	fileValues := readConfigFileValues(cfgPath)

	for _, k := range configKeys {
		val := viper.Get(k.Key)
		if k.Secret {
			val = maskSecret(viper.GetString(k.Key))
		}
		source := detectSource(k.Key, k.EnvVar, fileValues)
		fmt.Fprintf(ui.Out, "  %-22s %v  %s\n", k.Key, val, source)
	}

	return nil
}

// maskSecret keeps the last four characters of a secret.
func maskSecret(s string) string {
	if s == "" {
		return "(unset)"
	}
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}

// readConfigFileValues reads the raw YAML file and returns a flat map of keys present in it.
func readConfigFileValues(path string) map[string]bool {
	result := make(map[string]bool)

	data, err := os.ReadFile(path)
	if err != nil {
		return result
	}

	var parsed map[string]any
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return result
	}

	flattenKeys("", parsed, result)
	return result
}

// flattenKeys recursively flattens a nested map to dot-notation keys.
func flattenKeys(prefix string, m map[string]any, result map[string]bool) {
	for key, val := range m {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}
		if nested, ok := val.(map[string]any); ok {
			flattenKeys(fullKey, nested, result)
		} else {
			result[fullKey] = true
		}
	}
}

// detectSource determines where a config value is coming from.
func detectSource(key, envVar string, fileValues map[string]bool) string {
	if _, ok := os.LookupEnv(envVar); ok {
		return fmt.Sprintf("(env: %s)", envVar)
	}
	if fileValues[key] {
		return "(file)"
	}
	return "(default)"
}

func configEditRun() error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		return fmt.Errorf("$EDITOR is not set; set it to your preferred editor (e.g. export EDITOR=vim)")
	}

	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s (run 'codereview config init' first)", cfgPath)
	}

	editCmd := exec.Command(editor, cfgPath)
	editCmd.Stdin = os.Stdin
	editCmd.Stdout = os.Stdout
	editCmd.Stderr = os.Stderr
	return editCmd.Run()
}
