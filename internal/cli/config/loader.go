package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/leapstack-labs/tripguard/pkg/core"
)

// loggerKey is used to store logger in context.
type loggerKey struct{}

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 10

// envPrefix is the prefix of configuration environment variables.
const envPrefix = "TRIPGUARD_"

// Package-level config file tracking
var (
	configFileUsed string
	currentConfig  *Config // Stores the loaded config for access by commands
)

// flagKeys maps flag names that differ from their config key.
var flagKeys = map[string]string{
	"state":                     "state_path",
	"feature-label-threshold":   "correlation_thresholds.feature_label",
	"feature-feature-threshold": "correlation_thresholds.feature_feature",
	"seed":                      "random_seed",
}

// pathFlags are path-valued flags resolved against the working directory
// rather than the project root.
var pathFlags = map[string]bool{
	"data_path":   true,
	"output_path": true,
	"schema_file": true,
	"state_path":  true,
	"log_dir":     true,
}

func defaults() map[string]any {
	return map[string]any{
		"data_path":                              DefaultDataPath,
		"delimiter":                              DefaultDelimiter,
		"target":                                 DefaultTarget,
		"correlation_thresholds.feature_label":   core.DefaultFeatureLabelThreshold,
		"correlation_thresholds.feature_feature": core.DefaultFeatureFeatureThreshold,
		"schema":                                 DefaultSchema,
		"coerce":                                 true,
		"strict":                                 false,
		"log_dir":                                DefaultLogDir,
		"log_format":                             DefaultLogFormat,
		"state_path":                             DefaultStateFile,
		"verbose":                                false,
		"output":                                 DefaultOutput,
		"sample_size":                            DefaultSampleSize,
		"random_seed":                            DefaultRandomSeed,
	}
}

// configExistsIn returns the config file in dir, or "".
func configExistsIn(dir string) string {
	for _, name := range ConfigFileNames {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// findProjectRootUpward searches upward from startDir for a tripguard config file.
// Returns empty string if not found within maxUpwardSearchLevels.
func findProjectRootUpward(startDir string) string {
	dir := startDir
	for i := 0; i < maxUpwardSearchLevels; i++ {
		if configExistsIn(dir) != "" {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// inferProjectRoot determines the project root.
// Priority:
//  1. Directory of an explicit config file
//  2. Search upward from CWD for tripguard.yaml
//  3. Current working directory
func inferProjectRoot(cfgFile string) string {
	if cfgFile != "" {
		if abs, err := filepath.Abs(cfgFile); err == nil {
			return filepath.Dir(abs)
		}
	}
	cwd, err := os.Getwd()
	if err != nil || cwd == "" {
		return "."
	}
	if root := findProjectRootUpward(cwd); root != "" {
		return root
	}
	return cwd
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
// Returns the path unchanged if it's empty, already absolute, or remote.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) || path == ":memory:" || strings.Contains(path, "://") {
		return path
	}
	return filepath.Join(baseDir, path)
}

// ResetConfig clears the loaded configuration. Used for testing.
func ResetConfig() {
	configFileUsed = ""
	currentConfig = nil
}

// LoadConfig loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")
	projectRoot := inferProjectRoot(cfgFile)

	// 1. Load defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Find and load config file
	configFileUsed = cfgFile
	if configFileUsed == "" {
		configFileUsed = configExistsIn(projectRoot)
	}
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
	}

	// 3. Load environment variables (TRIPGUARD_ prefix)
	// Transform: TRIPGUARD_DATA_PATH -> data_path,
	// TRIPGUARD_CORRELATION_THRESHOLDS__FEATURE_LABEL -> correlation_thresholds.feature_label
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Load flags (highest priority - overrides env vars and config file)
	flagPaths := make(map[string]string)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			// Only load flags that were explicitly set
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				key = strings.ReplaceAll(f.Name, "-", "_")
			}
			if pathFlags[key] {
				if v := f.Value.String(); v != "" {
					abs, err := filepath.Abs(v)
					if err == nil {
						flagPaths[key] = abs
					}
				}
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.ProjectRoot = projectRoot

	// 6. Expand ${VAR} and resolve relative paths against the project root.
	// Paths given as flags are already relative to the working directory.
	for key, p := range map[string]*string{
		"data_path":   &cfg.DataPath,
		"output_path": &cfg.OutputPath,
		"schema_file": &cfg.SchemaFile,
		"state_path":  &cfg.StatePath,
		"log_dir":     &cfg.LogDir,
	} {
		*p = expandEnvVars(*p)
		if abs, ok := flagPaths[key]; ok {
			*p = abs
			continue
		}
		*p = resolvePathRelativeTo(*p, projectRoot)
	}
	expandParamEnvVars(cfg.DuckDB)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	currentConfig = &cfg
	return &cfg, nil
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// GetCurrentConfig returns the currently loaded configuration.
// This is available after LoadConfig is called.
func GetCurrentConfig() *Config {
	return currentConfig
}

// LoggerKey returns the context key used for storing the logger.
// This allows the commands package to retrieve the logger from context
// without creating an import cycle with the cli package.
func LoggerKey() interface{} {
	return loggerKey{}
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	// Return discard logger as safe fallback
	return slog.New(slog.DiscardHandler)
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match // Return original if not found
	})
}

// expandParamEnvVars expands ${VAR} in every string of a nested params map,
// so secrets can be kept out of the config file.
func expandParamEnvVars(params map[string]any) {
	for key, v := range params {
		params[key] = expandAny(v)
	}
}

func expandAny(v any) any {
	switch x := v.(type) {
	case string:
		return expandEnvVars(x)
	case map[string]any:
		expandParamEnvVars(x)
		return x
	case []any:
		for i := range x {
			x[i] = expandAny(x[i])
		}
		return x
	default:
		return v
	}
}
