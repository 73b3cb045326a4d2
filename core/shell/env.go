package shell

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// NewEnv creates an empty environment.
func NewEnv() *Env {
	return &Env{}
}

// NewEnvFromList creates an environment from "KEY=VALUE" pairs, e.g.
// os.Environ().
func NewEnvFromList(environ []string) *Env {
	out := &Env{}
	for _, e := range environ {
		split := strings.SplitN(e, "=", 2)
		key, value := split[0], ""
		if len(split) > 1 {
			value = split[1]
		}
		out.Setenv(key, value)
	}
	return out
}

// Env is the shell's variable store: scalars, indexed arrays and
// associative arrays. It satisfies the engine's Environ interface.
type Env struct {
	rw     sync.RWMutex
	env    map[string]string
	arrays map[string][]string
	assoc  map[string]map[string]string
}

// Unsetenv removes a scalar and any array stored under key.
func (m *Env) Unsetenv(key string) {
	m.rw.Lock()
	defer m.rw.Unlock()
	delete(m.env, key)
	delete(m.arrays, key)
	delete(m.assoc, key)
}

// Setenv sets a scalar variable.
func (m *Env) Setenv(key, value string) {
	m.rw.Lock()
	defer m.rw.Unlock()
	if m.env == nil {
		m.env = make(map[string]string)
	}
	m.env[key] = value
}

// LookupEnv reads a scalar variable, reporting whether it is set.
func (m *Env) LookupEnv(key string) (string, bool) {
	m.rw.RLock()
	defer m.rw.RUnlock()
	val, ok := m.env[key]
	return val, ok
}

// Getenv reads a scalar variable, returning "" when unset.
func (m *Env) Getenv(key string) string {
	val, _ := m.LookupEnv(key)
	return val
}

// Environ lists scalars as sorted "KEY=VALUE" pairs.
func (m *Env) Environ() []string {
	m.rw.RLock()
	defer m.rw.RUnlock()

	env := make([]string, 0, len(m.env))
	for k, v := range m.env {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	sort.Strings(env)
	return env
}

// Clearenv removes every variable and array.
func (m *Env) Clearenv() {
	m.rw.Lock()
	defer m.rw.Unlock()
	m.env = make(map[string]string)
	m.arrays = make(map[string][]string)
	m.assoc = make(map[string]map[string]string)
}

// SetArray replaces the indexed array stored under name.
func (m *Env) SetArray(name string, values []string) {
	m.rw.Lock()
	defer m.rw.Unlock()
	if m.arrays == nil {
		m.arrays = make(map[string][]string)
	}
	m.arrays[name] = append([]string(nil), values...)
}

// GetArray returns a copy of the indexed array stored under name. A scalar
// with the same name acts as a one-element array, matching subscript
// access on plain variables.
func (m *Env) GetArray(name string) ([]string, bool) {
	m.rw.RLock()
	defer m.rw.RUnlock()
	if values, ok := m.arrays[name]; ok {
		return append([]string(nil), values...), true
	}
	if value, ok := m.env[name]; ok {
		return []string{value}, true
	}
	return nil, false
}

// SetArrayElement writes one slot, growing the array as needed.
func (m *Env) SetArrayElement(name string, index int, value string) {
	if index < 0 {
		return
	}
	m.rw.Lock()
	defer m.rw.Unlock()
	if m.arrays == nil {
		m.arrays = make(map[string][]string)
	}
	values := m.arrays[name]
	for len(values) <= index {
		values = append(values, "")
	}
	values[index] = value
	m.arrays[name] = values
}

// ArrayElement reads one slot of an indexed array.
func (m *Env) ArrayElement(name string, index int) (string, bool) {
	values, ok := m.GetArray(name)
	if !ok || index < 0 || index >= len(values) {
		return "", false
	}
	return values[index], true
}

// SetAssocElement writes one key of an associative array.
func (m *Env) SetAssocElement(name, key, value string) {
	m.rw.Lock()
	defer m.rw.Unlock()
	if m.assoc == nil {
		m.assoc = make(map[string]map[string]string)
	}
	if m.assoc[name] == nil {
		m.assoc[name] = make(map[string]string)
	}
	m.assoc[name][key] = value
}

// AssocElement reads one key of an associative array.
func (m *Env) AssocElement(name, key string) (string, bool) {
	m.rw.RLock()
	defer m.rw.RUnlock()
	value, ok := m.assoc[name][key]
	return value, ok
}

// AssocKeys lists an associative array's keys in sorted order.
func (m *Env) AssocKeys(name string) []string {
	m.rw.RLock()
	defer m.rw.RUnlock()
	keys := make([]string, 0, len(m.assoc[name]))
	for key := range m.assoc[name] {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
