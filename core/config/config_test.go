package config

import (
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"gopkg.in/yaml.v2"
)

func assertFieldsMatch(t *testing.T, rawConfig map[string]interface{}, structType reflect.Type) {
	t.Helper()

	knownFields := make(map[string]bool)
	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)
		if !field.IsExported() {
			continue
		}

		jsonTag := field.Tag.Get("json")
		assert.NotEmpty(t, jsonTag)
		jsonField := strings.Split(jsonTag, ",")[0]
		knownFields[jsonField] = true

		if _, ok := rawConfig[jsonField]; !ok {
			assert.False(t, true, "default config missing field: %q", jsonField)
		}
	}

	for k := range rawConfig {
		_, ok := knownFields[k]
		assert.True(t, ok, "default config contains invalid field: %q", k)
	}
}

func TestBuiltinConfig(t *testing.T) {
	rawConfig := make(map[string]interface{})
	assert.Nil(t, yaml.Unmarshal(defaultConfigData, &rawConfig))

	assertFieldsMatch(t, rawConfig, reflect.TypeOf(Configuration{}))

	rawLimits := make(map[string]interface{})
	for k, v := range rawConfig["limits"].(map[interface{}]interface{}) {
		rawLimits[k.(string)] = v
	}
	assertFieldsMatch(t, rawLimits, reflect.TypeOf(Limits{}))
}

func TestDefaultConfig(t *testing.T) {
	// Will panic() on load failure because it should never happen at runtime.
	cfg := defaultConfig()
	assert.NotNil(t, cfg)
	assert.Nil(t, cfg.Validate())
}

func TestEngineLimits(t *testing.T) {
	cfg := defaultConfig()
	limits := cfg.EngineLimits()

	assert.Equal(t, 64, limits.MaxCallDepth)
	assert.Equal(t, 32, limits.CacheCapacity)
	assert.Equal(t, int64(10485760), limits.MaxScriptBytes)
}

func TestValidateRejectsBadConfig(t *testing.T) {
	cfg := defaultConfig()
	cfg.Prompt = ""
	err := cfg.Validate()
	assert.NotNil(t, err)
	assert.Contains(t, err.Error(), "prompt")

	cfg = defaultConfig()
	cfg.Limits.MaxCallDepth = -1
	err = cfg.Validate()
	assert.NotNil(t, err)
	assert.Contains(t, err.Error(), "max_call_depth")
}
