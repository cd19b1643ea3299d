package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/selective.report/internal/selective"
)

// DefaultConfigPath is the path to the canonical evaluation defaults file.
const DefaultConfigPath = "config/evaluation.defaults.json"

// EvaluationConfig is the run-level configuration for selective evaluation.
// Nil fields fall back to the defaults returned by the Get* methods, so a
// partial file only needs the values it overrides.
type EvaluationConfig struct {
	// Risk is the accuracy bound of the streaming coverage metric.
	Risk *float64 `json:"risk,omitempty"`
	// Coverages are the target coverage percentages, in report order.
	Coverages []float64 `json:"coverages,omitempty"`
	// Loss names the training loss; it decides the model output layout.
	Loss *string `json:"loss,omitempty"`

	// Output params
	RunName  *string `json:"run_name,omitempty"`
	DBPath   *string `json:"db_path,omitempty"`
	PlotDir  *string `json:"plot_dir,omitempty"`
	HTMLPath *string `json:"html_path,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }

// EmptyEvaluationConfig returns a config with every field unset.
func EmptyEvaluationConfig() *EvaluationConfig {
	return &EvaluationConfig{}
}

// DefaultEvaluationConfig returns a config with the built-in defaults
// filled in explicitly.
func DefaultEvaluationConfig() *EvaluationConfig {
	cov := make([]float64, len(selective.DefaultCoverages))
	copy(cov, selective.DefaultCoverages)
	return &EvaluationConfig{
		Risk:      ptrFloat64(selective.DefaultRisk),
		Coverages: cov,
		Loss:      ptrString("sat"),
		RunName:   ptrString("default"),
	}
}

// LoadEvaluationConfig loads an EvaluationConfig from a JSON file.
// The file must have a .json extension and be at most 1MB.
func LoadEvaluationConfig(path string) (*EvaluationConfig, error) {
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

	cfg := EmptyEvaluationConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching upwards from the
// current directory. Panics if the file cannot be loaded; intended for tests.
func MustLoadDefaultConfig() *EvaluationConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,    // from cmd/selective/
		"../../" + DefaultConfigPath, // from internal/config/
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadEvaluationConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks the values that are set. Errors wrap
// selective.ErrConfiguration.
func (c *EvaluationConfig) Validate() error {
	if c.Risk != nil {
		if err := selective.ValidateRisk(*c.Risk); err != nil {
			return err
		}
	}
	if c.Coverages != nil {
		if err := selective.ValidateCoverages(c.Coverages); err != nil {
			return err
		}
	}
	if c.Loss != nil {
		if _, err := selective.ParseScoreMode(*c.Loss); err != nil {
			return err
		}
	}
	if c.RunName != nil && *c.RunName == "" {
		return fmt.Errorf("run_name must not be empty: %w", selective.ErrConfiguration)
	}
	return nil
}

// GetRisk returns the risk value or the default.
func (c *EvaluationConfig) GetRisk() float64 {
	if c.Risk == nil {
		return selective.DefaultRisk
	}
	return *c.Risk
}

// GetCoverages returns a copy of the coverage list or the defaults.
func (c *EvaluationConfig) GetCoverages() []float64 {
	src := c.Coverages
	if len(src) == 0 {
		src = selective.DefaultCoverages
	}
	out := make([]float64, len(src))
	copy(out, src)
	return out
}

// GetLoss returns the loss name or the default.
func (c *EvaluationConfig) GetLoss() string {
	if c.Loss == nil {
		return "sat"
	}
	return *c.Loss
}

// GetScoreMode returns the output layout implied by the loss.
func (c *EvaluationConfig) GetScoreMode() selective.ScoreMode {
	mode, err := selective.ParseScoreMode(c.GetLoss())
	if err != nil {
		return selective.ModeAbstentionClass
	}
	return mode
}

// GetRunName returns the run name or the default.
func (c *EvaluationConfig) GetRunName() string {
	if c.RunName == nil || *c.RunName == "" {
		return "default"
	}
	return *c.RunName
}

// GetDBPath returns the database path, or "" when persistence is off.
func (c *EvaluationConfig) GetDBPath() string {
	if c.DBPath == nil {
		return ""
	}
	return *c.DBPath
}

// GetPlotDir returns the PNG output directory, or "" when plotting is off.
func (c *EvaluationConfig) GetPlotDir() string {
	if c.PlotDir == nil {
		return ""
	}
	return *c.PlotDir
}

// GetHTMLPath returns the chart output path, or "" when disabled.
func (c *EvaluationConfig) GetHTMLPath() string {
	if c.HTMLPath == nil {
		return ""
	}
	return *c.HTMLPath
}

// NewEvaluator builds an evaluator from the effective settings.
func (c *EvaluationConfig) NewEvaluator() (*selective.Evaluator, error) {
	mode, err := selective.ParseScoreMode(c.GetLoss())
	if err != nil {
		return nil, err
	}
	return selective.NewEvaluator(c.GetRisk(), c.GetCoverages(), mode)
}
