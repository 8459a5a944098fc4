package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/accel.report/internal/accel"
	"github.com/banshee-data/accel.report/internal/params"
)

// DefaultConfigPath is the path to the canonical controller defaults file.
const DefaultConfigPath = "config/accel.defaults.json"

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid controller config")

const (
	defaultModelPeriod   = 50 * time.Millisecond
	defaultStockMinAccel = -1.2
	defaultStockMaxAccel = 1.2
	defaultListen        = ":8080"
)

// ControllerConfig is the startup configuration of the longitudinal
// controller. Every field is optional; the Get* methods supply the
// defaults for anything the JSON omits.
type ControllerConfig struct {
	// Params store
	ParamsBackend *string `json:"params_backend,omitempty"` // memory, file or sqlite
	ParamsPath    *string `json:"params_path,omitempty"`

	// Loop timing
	ModelPeriod           *string `json:"model_period,omitempty"` // duration string like "50ms"
	RefreshIntervalFrames *int    `json:"refresh_interval_frames,omitempty"`

	// Limits used while the personality is stock
	StockMinAccel *float64 `json:"stock_min_accel,omitempty"`
	StockMaxAccel *float64 `json:"stock_max_accel,omitempty"`

	// Profile table overrides
	Profiles *accel.ProfileValues `json:"profiles,omitempty"`

	// HTTP
	Listen *string `json:"listen,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyControllerConfig returns a ControllerConfig with all fields set to nil.
func EmptyControllerConfig() *ControllerConfig {
	return &ControllerConfig{}
}

// DefaultControllerConfig returns a ControllerConfig with every field
// populated with its default value. RefreshIntervalFrames is left nil so it
// follows ModelPeriod.
func DefaultControllerConfig() *ControllerConfig {
	return &ControllerConfig{
		ParamsBackend:         ptrString(params.BackendFile),
		ParamsPath:            ptrString(params.DefaultParamsDir),
		ModelPeriod:           ptrString(defaultModelPeriod.String()),
		StockMinAccel:         ptrFloat64(defaultStockMinAccel),
		StockMaxAccel:         ptrFloat64(defaultStockMaxAccel),
		Listen:                ptrString(defaultListen),
	}
}

// LoadControllerConfig loads a ControllerConfig from a JSON file.
// The file must have a .json extension and be under 1MB. Fields omitted
// from the file keep their defaults through the Get* methods.
func LoadControllerConfig(path string) (*ControllerConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyControllerConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *ControllerConfig) Validate() error {
	if c.ParamsBackend != nil {
		switch *c.ParamsBackend {
		case params.BackendMemory, params.BackendFile, params.BackendSQLite:
		default:
			return fmt.Errorf("%w: params_backend must be one of memory, file, sqlite, got %q", ErrInvalid, *c.ParamsBackend)
		}
	}

	if c.ModelPeriod != nil && *c.ModelPeriod != "" {
		d, err := time.ParseDuration(*c.ModelPeriod)
		if err != nil {
			return fmt.Errorf("%w: model_period '%s': %v", ErrInvalid, *c.ModelPeriod, err)
		}
		if d <= 0 || d > time.Second {
			return fmt.Errorf("%w: model_period must be in (0, 1s], got %s", ErrInvalid, d)
		}
	}

	if c.RefreshIntervalFrames != nil && *c.RefreshIntervalFrames < 1 {
		return fmt.Errorf("%w: refresh_interval_frames must be positive, got %d", ErrInvalid, *c.RefreshIntervalFrames)
	}

	if c.GetStockMinAccel() > c.GetStockMaxAccel() {
		return fmt.Errorf("%w: stock_min_accel %.3f exceeds stock_max_accel %.3f", ErrInvalid, c.GetStockMinAccel(), c.GetStockMaxAccel())
	}

	if c.Profiles != nil {
		if _, err := accel.NewProfiles(*c.Profiles); err != nil {
			return fmt.Errorf("%w: profiles: %v", ErrInvalid, err)
		}
	}

	return nil
}

// GetParamsBackend returns the params backend or the default.
func (c *ControllerConfig) GetParamsBackend() string {
	if c.ParamsBackend == nil || *c.ParamsBackend == "" {
		return params.BackendFile
	}
	return *c.ParamsBackend
}

// GetParamsPath returns the params location or the default for the
// configured backend.
func (c *ControllerConfig) GetParamsPath() string {
	if c.ParamsPath != nil && *c.ParamsPath != "" {
		return *c.ParamsPath
	}
	if c.GetParamsBackend() == params.BackendSQLite {
		return params.DefaultSQLitePath
	}
	return params.DefaultParamsDir
}

// GetModelPeriod parses and returns the ModelPeriod as a time.Duration.
func (c *ControllerConfig) GetModelPeriod() time.Duration {
	if c.ModelPeriod == nil || *c.ModelPeriod == "" {
		return defaultModelPeriod
	}
	d, err := time.ParseDuration(*c.ModelPeriod)
	if err != nil || d <= 0 {
		return defaultModelPeriod
	}
	return d
}

// GetRefreshIntervalFrames returns the number of frames between params
// reads. When unset it is one second's worth of frames at the model period.
func (c *ControllerConfig) GetRefreshIntervalFrames() int {
	if c.RefreshIntervalFrames != nil && *c.RefreshIntervalFrames > 0 {
		return *c.RefreshIntervalFrames
	}
	n := int(time.Second / c.GetModelPeriod())
	if n < 1 {
		return 1
	}
	return n
}

// GetStockMinAccel returns the stock minimum acceleration or the default.
func (c *ControllerConfig) GetStockMinAccel() float64 {
	if c.StockMinAccel == nil {
		return defaultStockMinAccel
	}
	return *c.StockMinAccel
}

// GetStockMaxAccel returns the stock maximum acceleration or the default.
func (c *ControllerConfig) GetStockMaxAccel() float64 {
	if c.StockMaxAccel == nil {
		return defaultStockMaxAccel
	}
	return *c.StockMaxAccel
}

// GetStockLimits returns the stock limits as an accel.Limits.
func (c *ControllerConfig) GetStockLimits() accel.Limits {
	return accel.Limits{Min: c.GetStockMinAccel(), Max: c.GetStockMaxAccel()}
}

// GetProfiles builds the configured profile set, falling back to the
// shipped tables when no override is present.
func (c *ControllerConfig) GetProfiles() (*accel.ProfileSet, error) {
	if c.Profiles == nil {
		return accel.DefaultProfiles(), nil
	}
	ps, err := accel.NewProfiles(*c.Profiles)
	if err != nil {
		return nil, fmt.Errorf("failed to build profiles: %w", err)
	}
	return ps, nil
}

// GetListen returns the HTTP listen address or the default.
func (c *ControllerConfig) GetListen() string {
	if c.Listen == nil || *c.Listen == "" {
		return defaultListen
	}
	return *c.Listen
}

// SelectorConfig maps the configuration onto accel.SelectorConfig.
func (c *ControllerConfig) SelectorConfig() (accel.SelectorConfig, error) {
	ps, err := c.GetProfiles()
	if err != nil {
		return accel.SelectorConfig{}, err
	}
	return accel.SelectorConfig{
		RefreshFrames: uint64(c.GetRefreshIntervalFrames()),
		Profiles:      ps,
		Key:           params.AccelPersonalityKey,
	}, nil
}
