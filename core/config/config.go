package config

import (
	_ "embed"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"sigs.k8s.io/yaml"

	"github.com/denshell/den/core/interp"
)

//go:embed default/config.yaml
var defaultConfigData []byte

const (
	ConfigurationName = "config.yaml"
	HistoryName       = ".den_history"
)

type Configuration struct {
	Prompt      string `json:"prompt" validate:"required"`
	HistoryFile string `json:"history_file"`
	ErrExit     bool   `json:"errexit"`
	NoExec      bool   `json:"no_exec"`

	Limits Limits `json:"limits"`
}

// Validate the configuration for basic semantic errors.
func (c *Configuration) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		return name
	})

	return validate.Struct(c)
}

// Limits bounds the interpreter. Zero values fall back to the
// interpreter's built-in defaults.
type Limits struct {
	MaxCallDepth        int   `json:"max_call_depth" validate:"gte=0"`
	MaxPositionalParams int   `json:"max_positional_params" validate:"gte=0"`
	MaxBodyLines        int   `json:"max_body_lines" validate:"gte=0"`
	MaxItems            int   `json:"max_items" validate:"gte=0"`
	MaxElifClauses      int   `json:"max_elif_clauses" validate:"gte=0"`
	MaxCaseClauses      int   `json:"max_case_clauses" validate:"gte=0"`
	MaxPatterns         int   `json:"max_patterns" validate:"gte=0"`
	MaxScriptBytes      int64 `json:"max_script_bytes" validate:"gte=0"`
	MaxScriptLines      int   `json:"max_script_lines" validate:"gte=0"`
	ScriptCacheSize     int   `json:"script_cache_size" validate:"gte=0"`
}

// EngineLimits converts the configured bounds into interpreter limits.
func (c *Configuration) EngineLimits() interp.Limits {
	return interp.Limits{
		MaxCallDepth:        c.Limits.MaxCallDepth,
		MaxPositionalParams: c.Limits.MaxPositionalParams,
		MaxBodyLines:        c.Limits.MaxBodyLines,
		MaxItems:            c.Limits.MaxItems,
		MaxElifClauses:      c.Limits.MaxElifClauses,
		MaxCaseClauses:      c.Limits.MaxCaseClauses,
		MaxPatterns:         c.Limits.MaxPatterns,
		MaxScriptBytes:      c.Limits.MaxScriptBytes,
		MaxScriptLines:      c.Limits.MaxScriptLines,
		CacheCapacity:       c.Limits.ScriptCacheSize,
	}
}

func defaultConfig() *Configuration {
	var out Configuration
	if err := yaml.UnmarshalStrict(defaultConfigData, &out); err != nil {
		panic(err)
	}
	return &out
}
