package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/carloom-cli/internal/pipeline"
)

// EnvPrefix prefixes every environment override, e.g. CARLOOM_REFERENCE_YEAR.
const EnvPrefix = "CARLOOM"

// Global configuration structure.
type Global struct {
	SourceURL string `mapstructure:"source_url" yaml:"source_url"`
	OutputDir string `mapstructure:"output_dir" yaml:"output_dir"`

	// Pipeline policy
	ReferenceYear   int                  `mapstructure:"reference_year" yaml:"reference_year"`
	PriceMin        float64              `mapstructure:"price_min" yaml:"price_min"`
	PriceMax        float64              `mapstructure:"price_max" yaml:"price_max"`
	MileageMin      float64              `mapstructure:"mileage_min" yaml:"mileage_min"`
	MileageMax      float64              `mapstructure:"mileage_max" yaml:"mileage_max"`
	EngineSizeFloor float64              `mapstructure:"engine_size_floor" yaml:"engine_size_floor"`
	TrackMPG        bool                 `mapstructure:"track_mpg" yaml:"track_mpg"`
	MPGMin          float64              `mapstructure:"mpg_min" yaml:"mpg_min"`
	MPGMax          float64              `mapstructure:"mpg_max" yaml:"mpg_max"`
	MPGFallback     float64              `mapstructure:"mpg_fallback" yaml:"mpg_fallback"`
	AutomaticPolicy string               `mapstructure:"automatic_policy" yaml:"automatic_policy"`
	DoorPolicy      string               `mapstructure:"door_policy" yaml:"door_policy"`
	DoorDefault     int                  `mapstructure:"door_default" yaml:"door_default,omitempty"`
	DoorTable       map[string]int       `mapstructure:"door_table" yaml:"door_table,omitempty"`
	Exclusions      []pipeline.Exclusion `mapstructure:"exclusions" yaml:"exclusions"`

	// Model
	UseKM bool `mapstructure:"use_km" yaml:"use_km"`

	// HTTP/Retry configuration
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`

	// Logging
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
}

// Dir returns ~/.carloom.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".carloom"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.carloom/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		path = filepath.Join(dir, "config.yaml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	p := pipeline.DefaultPolicy()
	v.SetDefault("source_url", "")
	v.SetDefault("output_dir", ".")
	v.SetDefault("reference_year", p.ReferenceYear)
	v.SetDefault("price_min", p.PriceMin)
	v.SetDefault("price_max", p.PriceMax)
	v.SetDefault("mileage_min", p.MileageMin)
	v.SetDefault("mileage_max", p.MileageMax)
	v.SetDefault("engine_size_floor", p.EngineSizeFloor)
	v.SetDefault("track_mpg", p.TrackMPG)
	v.SetDefault("mpg_min", p.MPGMin)
	v.SetDefault("mpg_max", p.MPGMax)
	v.SetDefault("mpg_fallback", p.MPGFallback)
	v.SetDefault("automatic_policy", string(p.Automatic))
	v.SetDefault("door_policy", pipeline.DoorsTwoFour)
	v.SetDefault("door_default", 0)
	v.SetDefault("door_table", map[string]int{})
	v.SetDefault("exclusions", []map[string]any{{"year": 1998, "price": 19990.0}})
	v.SetDefault("use_km", false)
	// HTTP/retry defaults
	v.SetDefault("http_timeout_sec", 60)
	v.SetDefault("retry_max_attempts", 3)
	v.SetDefault("retry_base_delay_ms", 500)
	v.SetDefault("retry_max_delay_ms", 4000)
	v.SetDefault("log_level", "warn")
	v.SetDefault("log_format", "console")
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (applied by the caller) > env (.env included) > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	// .env is optional; a malformed one is an error.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var nf viper.ConfigFileNotFoundError
			if !errors.As(err, &nf) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}

// Policy builds the pipeline policy described by the configuration.
func (c *Global) Policy() (pipeline.Policy, error) {
	auto, err := pipeline.ParseAutomaticPolicy(c.AutomaticPolicy)
	if err != nil {
		return pipeline.Policy{}, err
	}
	doors, err := pipeline.DoorPreset(c.DoorPolicy)
	if err != nil {
		return pipeline.Policy{}, err
	}
	if c.DoorDefault > 0 {
		doors.Default = c.DoorDefault
	}
	for model, n := range c.DoorTable {
		for k := range doors.Values {
			if strings.EqualFold(k, model) {
				delete(doors.Values, k)
			}
		}
		doors.Values[model] = n
	}
	p := pipeline.Policy{
		ReferenceYear:   c.ReferenceYear,
		PriceMin:        c.PriceMin,
		PriceMax:        c.PriceMax,
		MileageMin:      c.MileageMin,
		MileageMax:      c.MileageMax,
		EngineSizeFloor: c.EngineSizeFloor,
		TrackMPG:        c.TrackMPG,
		MPGMin:          c.MPGMin,
		MPGMax:          c.MPGMax,
		MPGFallback:     c.MPGFallback,
		Automatic:       auto,
		Doors:           doors,
		Exclusions:      append([]pipeline.Exclusion(nil), c.Exclusions...),
	}
	if err := p.Validate(); err != nil {
		return pipeline.Policy{}, err
	}
	return p, nil
}

// Keys lists the scalar keys accepted by Set, in display order.
var Keys = []string{
	"source_url", "output_dir", "reference_year",
	"price_min", "price_max", "mileage_min", "mileage_max",
	"engine_size_floor", "track_mpg", "mpg_min", "mpg_max", "mpg_fallback",
	"automatic_policy", "door_policy", "door_default", "use_km",
	"http_timeout_sec", "retry_max_attempts", "retry_base_delay_ms", "retry_max_delay_ms",
	"log_level", "log_format",
}

// Get renders a scalar key for display.
func (c *Global) Get(key string) (string, error) {
	switch key {
	case "source_url":
		return c.SourceURL, nil
	case "output_dir":
		return c.OutputDir, nil
	case "reference_year":
		return strconv.Itoa(c.ReferenceYear), nil
	case "price_min":
		return fmtFloat(c.PriceMin), nil
	case "price_max":
		return fmtFloat(c.PriceMax), nil
	case "mileage_min":
		return fmtFloat(c.MileageMin), nil
	case "mileage_max":
		return fmtFloat(c.MileageMax), nil
	case "engine_size_floor":
		return fmtFloat(c.EngineSizeFloor), nil
	case "track_mpg":
		return strconv.FormatBool(c.TrackMPG), nil
	case "mpg_min":
		return fmtFloat(c.MPGMin), nil
	case "mpg_max":
		return fmtFloat(c.MPGMax), nil
	case "mpg_fallback":
		return fmtFloat(c.MPGFallback), nil
	case "automatic_policy":
		return c.AutomaticPolicy, nil
	case "door_policy":
		return c.DoorPolicy, nil
	case "door_default":
		return strconv.Itoa(c.DoorDefault), nil
	case "use_km":
		return strconv.FormatBool(c.UseKM), nil
	case "http_timeout_sec":
		return strconv.Itoa(c.HTTPTimeoutSec), nil
	case "retry_max_attempts":
		return strconv.Itoa(c.RetryMaxAttempts), nil
	case "retry_base_delay_ms":
		return strconv.Itoa(c.RetryBaseDelayMs), nil
	case "retry_max_delay_ms":
		return strconv.Itoa(c.RetryMaxDelayMs), nil
	case "log_level":
		return c.LogLevel, nil
	case "log_format":
		return c.LogFormat, nil
	default:
		return "", fmt.Errorf("unknown key: %s", key)
	}
}

// Set parses val into key. door_table and exclusions are edited in the YAML file.
func (c *Global) Set(key, val string) error {
	val = strings.TrimSpace(val)
	switch key {
	case "source_url":
		c.SourceURL = val
	case "output_dir":
		c.OutputDir = val
	case "reference_year":
		return setInt(&c.ReferenceYear, key, val, 1)
	case "price_min":
		return setFloat(&c.PriceMin, key, val)
	case "price_max":
		return setFloat(&c.PriceMax, key, val)
	case "mileage_min":
		return setFloat(&c.MileageMin, key, val)
	case "mileage_max":
		return setFloat(&c.MileageMax, key, val)
	case "engine_size_floor":
		return setFloat(&c.EngineSizeFloor, key, val)
	case "track_mpg":
		return setBool(&c.TrackMPG, key, val)
	case "mpg_min":
		return setFloat(&c.MPGMin, key, val)
	case "mpg_max":
		return setFloat(&c.MPGMax, key, val)
	case "mpg_fallback":
		return setFloat(&c.MPGFallback, key, val)
	case "automatic_policy":
		p, err := pipeline.ParseAutomaticPolicy(val)
		if err != nil {
			return err
		}
		c.AutomaticPolicy = string(p)
	case "door_policy":
		if _, err := pipeline.DoorPreset(val); err != nil {
			return err
		}
		c.DoorPolicy = strings.ToLower(val)
	case "door_default":
		return setInt(&c.DoorDefault, key, val, 0)
	case "use_km":
		return setBool(&c.UseKM, key, val)
	case "http_timeout_sec":
		return setInt(&c.HTTPTimeoutSec, key, val, 1)
	case "retry_max_attempts":
		return setInt(&c.RetryMaxAttempts, key, val, 1)
	case "retry_base_delay_ms":
		return setInt(&c.RetryBaseDelayMs, key, val, 0)
	case "retry_max_delay_ms":
		return setInt(&c.RetryMaxDelayMs, key, val, 0)
	case "log_level":
		c.LogLevel = strings.ToLower(val)
	case "log_format":
		switch strings.ToLower(val) {
		case "console", "json":
			c.LogFormat = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid log_format: %s (use console or json)", val)
		}
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return nil
}

func setInt(dst *int, key, val string, floor int) error {
	i, err := strconv.Atoi(val)
	if err != nil || i < floor {
		return fmt.Errorf("invalid int for %s: %v", key, val)
	}
	*dst = i
	return nil
}

func setFloat(dst *float64, key, val string) error {
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fmt.Errorf("invalid float for %s: %w", key, err)
	}
	*dst = f
	return nil
}

func setBool(dst *bool, key, val string) error {
	b, err := strconv.ParseBool(val)
	if err != nil {
		return fmt.Errorf("invalid bool for %s: %w", key, err)
	}
	*dst = b
	return nil
}

func fmtFloat(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
