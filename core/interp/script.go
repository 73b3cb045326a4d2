package interp

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// CachedScript is one script cache entry, owned by the ScriptManager.
type CachedScript struct {
	Path      string
	Content   string
	ModTime   time.Time
	LineCount int
}

// ScriptResult is the outcome of an ExecuteScript call.
type ScriptResult struct {
	ExitCode     int
	LineExecuted int
	ErrorMessage string
}

// ScriptManager loads, validates and runs script files. Loaded scripts are
// cached by path and invalidated when the on-disk modification time
// differs from the cached value; when the cache is full the entry with the
// oldest modification time is evicted.
type ScriptManager struct {
	fs     afero.Fs
	eng    *Engine
	cache  map[string]*CachedScript
	limits Limits

	// OnError, when set, is invoked with the failing exit code and line
	// before an errexit abort is reported.
	OnError func(exitCode, line int)
}

func NewScriptManager(fs afero.Fs, eng *Engine) *ScriptManager {
	return &ScriptManager{
		fs:     fs,
		eng:    eng,
		cache:  make(map[string]*CachedScript),
		limits: eng.limits,
	}
}

// Load returns the cached script when its modification time still matches
// the file, reloading otherwise.
func (m *ScriptManager) Load(path string) (*CachedScript, error) {
	info, err := m.fs.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read script %s: %w", path, err)
	}
	if cached, ok := m.cache[path]; ok && cached.ModTime.Equal(info.ModTime()) {
		return cached, nil
	}
	if info.Size() > m.limits.MaxScriptBytes {
		return nil, fmt.Errorf("%w: %s is %d bytes (limit %d)",
			ErrScriptTooLarge, path, info.Size(), m.limits.MaxScriptBytes)
	}

	content, err := afero.ReadFile(m.fs, path)
	if err != nil {
		return nil, fmt.Errorf("cannot read script %s: %w", path, err)
	}

	if _, ok := m.cache[path]; !ok && len(m.cache) >= m.limits.CacheCapacity {
		m.evictOldest()
	}
	script := &CachedScript{
		Path:      path,
		Content:   string(content),
		ModTime:   info.ModTime(),
		LineCount: strings.Count(string(content), "\n") + 1,
	}
	m.cache[path] = script
	return script, nil
}

func (m *ScriptManager) evictOldest() {
	var oldestPath string
	var oldest time.Time
	for path, entry := range m.cache {
		if oldestPath == "" || entry.ModTime.Before(oldest) {
			oldestPath = path
			oldest = entry.ModTime
		}
	}
	if oldestPath != "" {
		delete(m.cache, oldestPath)
	}
}

// CacheLen reports the number of cached scripts.
func (m *ScriptManager) CacheLen() int { return len(m.cache) }

// Execute loads, validates and runs a script file with the given
// positional arguments bound to $1..$n and the path to $0.
func (m *ScriptManager) Execute(path string, args []string) ScriptResult {
	script, err := m.Load(path)
	if err != nil {
		return ScriptResult{ExitCode: 1, ErrorMessage: err.Error()}
	}
	if err := ValidateScript(script.Content); err != nil {
		return ScriptResult{ExitCode: 1, ErrorMessage: err.Error()}
	}

	raw := strings.Split(script.Content, "\n")
	if len(raw) > m.limits.MaxScriptLines {
		return ScriptResult{ExitCode: 1, ErrorMessage: ErrTooManyLines.Error()}
	}

	prev := m.eng.SetScriptParams(append([]string{path}, args...))
	defer m.eng.SetScriptParams(prev)

	return m.run(raw)
}

// run is the top-level line dispatch loop: it registers function
// definitions, delegates control flow constructs to the parser and
// executor, assembles heredocs, and executes everything else directly.
func (m *ScriptManager) run(raw []string) ScriptResult {
	lines, nums := normalizeLines(raw)

	result := ScriptResult{}
	fail := func(code, line int, msg string) ScriptResult {
		if m.OnError != nil {
			m.OnError(code, line)
		}
		return ScriptResult{ExitCode: code, LineExecuted: line, ErrorMessage: msg}
	}

	for i := 0; i < len(lines); i++ {
		if m.eng.stopped() {
			return fail(130, result.LineExecuted, "interrupted")
		}
		line := strings.TrimSpace(lines[i])
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		num := nums[i]
		result.LineExecuted = num

		// A loop jump at top level has nothing to unwind; discard it the
		// same way Execute does.
		if _, _, ok := parseLoopJump(line); ok {
			result.ExitCode = 0
			continue
		}

		if isFunctionDef(line) {
			fn, end, err := ParseFunction(lines, i)
			if err != nil {
				return fail(1, num, err.Error())
			}
			m.eng.funcs.DefineFunction(fn)
			i = end
			continue
		}

		if kw := controlKeyword(line); kw != "" {
			code, end, _, err := m.eng.runControl(kw, lines, i)
			result.ExitCode = code
			if err != nil {
				if isFatal(err) {
					return ScriptResult{ExitCode: code, LineExecuted: num}
				}
				// A syntax error on a top-level construct aborts the whole
				// script rather than risking a misparsed body.
				return fail(1, num, err.Error())
			}
			i = end
			if m.eng.errExit() && code != 0 {
				return fail(code, num, fmt.Sprintf("line %d: exit status %d", num, code))
			}
			continue
		}

		if delim, strip, ok := heredocIntro(line); ok {
			block, end, err := collectHeredoc(lines, i, delim, strip)
			if err != nil {
				return fail(1, num, err.Error())
			}
			i = end
			code, err := m.eng.runner.RunCommand(block)
			result.ExitCode = code
			if err != nil && isFatal(err) {
				return ScriptResult{ExitCode: code, LineExecuted: num}
			}
			if m.eng.errExit() && code != 0 {
				return fail(code, num, fmt.Sprintf("line %d: exit status %d", num, code))
			}
			continue
		}

		code, err := m.eng.runner.RunCommand(line)
		result.ExitCode = code
		if err != nil {
			if isFatal(err) {
				return ScriptResult{ExitCode: code, LineExecuted: num}
			}
			if code == 0 {
				result.ExitCode = 1
			}
		}
		if m.eng.errExit() && result.ExitCode != 0 {
			return fail(result.ExitCode, num, fmt.Sprintf("line %d: exit status %d", num, result.ExitCode))
		}
	}
	return result
}
