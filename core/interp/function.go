package interp

import (
	"fmt"
	"regexp"
	"strings"
)

// Function definitions accept both spellings:
//
//	function NAME { ... }
//	NAME() { ... }
//
// plus an optional typed parameter list and return type before the brace:
//
//	function greet [name: string, --loud(-l), ...rest] -> int { ... }
var (
	funcKeywordRegexp = regexp.MustCompile(
		`^function\s+([A-Za-z_][A-Za-z0-9_]*)\s*(\[[^\]]*\])?\s*(?:->\s*([A-Za-z_][A-Za-z0-9_]*))?\s*(\{.*)?$`)
	funcParenRegexp = regexp.MustCompile(
		`^([A-Za-z_][A-Za-z0-9_]*)\s*\(\s*\)\s*(\[[^\]]*\])?\s*(?:->\s*([A-Za-z_][A-Za-z0-9_]*))?\s*(\{.*)?$`)
)

func isFunctionDef(line string) bool {
	if m := funcKeywordRegexp.FindStringSubmatch(line); m != nil {
		return true
	}
	if m := funcParenRegexp.FindStringSubmatch(line); m != nil {
		return true
	}
	return false
}

// ParseFunction parses the definition headed at lines[start], tracking
// brace depth from the first { (same line or the next) to its balancing }.
// The body excludes the wrapping braces. Returns the node and the index of
// the line holding the closing brace.
func ParseFunction(lines []string, start int) (*Function, int, error) {
	line := strings.TrimSpace(lines[start])
	m := funcKeywordRegexp.FindStringSubmatch(line)
	if m == nil {
		m = funcParenRegexp.FindStringSubmatch(line)
	}
	if m == nil {
		return nil, 0, fmt.Errorf("%w: %q", ErrInvalidFunc, line)
	}

	fn := &Function{Name: m[1], ReturnType: m[3]}
	if m[2] != "" {
		params, err := parseTypedParams(m[2])
		if err != nil {
			return nil, 0, err
		}
		fn.TypedParams = params
	}

	depth := 0
	i := start
	remainder := m[4]
	if remainder == "" {
		// Opening brace on the next line.
		i++
		if i >= len(lines) || !strings.HasPrefix(strings.TrimSpace(lines[i]), "{") {
			return nil, 0, fmt.Errorf("%w: %s missing {", ErrInvalidFunc, fn.Name)
		}
		remainder = strings.TrimSpace(lines[i])
	}

	// Consume text starting at the opening brace, then continue line by
	// line until the depth balances.
	for {
		rest, done := consumeBraces(remainder, &depth)
		if rest != "" {
			fn.Body = append(fn.Body, rest)
		}
		if done {
			return fn, i, nil
		}
		i++
		if i >= len(lines) {
			return nil, 0, fmt.Errorf("%w: %s missing }", ErrInvalidFunc, fn.Name)
		}
		remainder = lines[i]
	}
}

// consumeBraces updates depth with the unquoted braces in line and returns
// the line's body text with the construct's own wrapping braces removed.
func consumeBraces(line string, depth *int) (body string, done bool) {
	trimmed := strings.TrimSpace(line)
	if *depth == 0 {
		if !strings.HasPrefix(trimmed, "{") {
			return "", false
		}
		*depth = 1
		trimmed = strings.TrimSpace(strings.TrimPrefix(trimmed, "{"))
	}

	inSingle, inDouble := false, false
	for i := 0; i < len(trimmed); i++ {
		switch {
		case inSingle:
			inSingle = trimmed[i] != '\''
		case inDouble:
			inDouble = trimmed[i] != '"'
		case trimmed[i] == '\'':
			inSingle = true
		case trimmed[i] == '"':
			inDouble = true
		case trimmed[i] == '{':
			*depth++
		case trimmed[i] == '}':
			*depth--
			if *depth == 0 {
				return strings.TrimSpace(trimmed[:i]), true
			}
		}
	}
	return trimmed, false
}

// parseTypedParams parses "[a: type, b = default, c?, --flag(-f): type,
// ...rest]" into parameter descriptors.
func parseTypedParams(text string) ([]TypedParam, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "[")
	text = strings.TrimSuffix(text, "]")
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	var params []TypedParam
	for _, field := range strings.Split(text, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		var param TypedParam

		// Default value: "name = value" or "name: type = value".
		if eq := strings.Index(field, "="); eq >= 0 {
			param.DefaultValue = strings.TrimSpace(field[eq+1:])
			field = strings.TrimSpace(field[:eq])
		}
		// Type hint after the colon.
		if colon := strings.Index(field, ":"); colon >= 0 {
			param.TypeHint = strings.TrimSpace(field[colon+1:])
			field = strings.TrimSpace(field[:colon])
		}

		switch {
		case strings.HasPrefix(field, "--"):
			param.IsFlag = true
			field = strings.TrimPrefix(field, "--")
			if open := strings.Index(field, "("); open >= 0 {
				short := field[open:]
				field = strings.TrimSpace(field[:open])
				short = strings.Trim(short, "()")
				param.ShortFlag = strings.TrimPrefix(short, "-")
			}
			if param.TypeHint == "" {
				param.TypeHint = "bool"
			}
		case strings.HasPrefix(field, "..."):
			param.IsRest = true
			field = strings.TrimPrefix(field, "...")
		}
		if strings.HasSuffix(field, "?") {
			param.IsOptional = true
			field = strings.TrimSuffix(field, "?")
		}

		if !nameRegexp.MatchString(field) {
			return nil, fmt.Errorf("%w: bad parameter name %q", ErrInvalidFunc, field)
		}
		param.Name = field
		params = append(params, param)
	}
	return params, nil
}

// callFrame is one entry on the bounded call stack. Frames are exclusively
// owned by the stack and destroyed on pop.
type callFrame struct {
	functionName    string
	positional      []string
	locals          map[string]string
	returnRequested bool
	returnCode      int
}

// FunctionManager owns the function table and the call stack.
type FunctionManager struct {
	eng   *Engine
	funcs map[string]*Function
	stack []*callFrame
}

func newFunctionManager(eng *Engine) *FunctionManager {
	return &FunctionManager{
		eng:   eng,
		funcs: make(map[string]*Function),
	}
}

// DefineFunction registers fn, replacing any previous definition of the
// same name.
func (m *FunctionManager) DefineFunction(fn *Function) {
	m.funcs[fn.Name] = fn
}

// Lookup returns the named function, if defined.
func (m *FunctionManager) Lookup(name string) (*Function, bool) {
	fn, ok := m.funcs[name]
	return fn, ok
}

// Names lists defined function names.
func (m *FunctionManager) Names() []string {
	names := make([]string, 0, len(m.funcs))
	for name := range m.funcs {
		names = append(names, name)
	}
	return names
}

// Depth reports the current call stack depth.
func (m *FunctionManager) Depth() int { return len(m.stack) }

func (m *FunctionManager) currentFrame() *callFrame {
	if len(m.stack) == 0 {
		return nil
	}
	return m.stack[len(m.stack)-1]
}

func (m *FunctionManager) pushFrame(name string, args []string) (*callFrame, error) {
	if len(m.stack) >= m.eng.limits.MaxCallDepth {
		return nil, fmt.Errorf("%w: %s exceeds depth %d", ErrCallStackOverflow, name, m.eng.limits.MaxCallDepth)
	}
	if len(args) > m.eng.limits.MaxPositionalParams {
		return nil, fmt.Errorf("%w: %s called with %d arguments", ErrTooManyPositionals, name, len(args))
	}
	frame := &callFrame{
		functionName: name,
		positional:   append([]string(nil), args...),
		locals:       make(map[string]string),
	}
	m.stack = append(m.stack, frame)
	return frame, nil
}

func (m *FunctionManager) popFrame() {
	if len(m.stack) == 0 {
		return
	}
	m.stack[len(m.stack)-1] = nil
	m.stack = m.stack[:len(m.stack)-1]
}

// ExecuteFunction pushes a frame and runs the function body through the
// same parser and executor used at script top level, so nested control
// structures behave identically inside functions. The frame is released on
// every exit path. The result is the return code if return fired, else the
// last executed statement's exit code.
func (m *FunctionManager) ExecuteFunction(name string, args []string) (int, error) {
	fn, ok := m.funcs[name]
	if !ok {
		return 127, fmt.Errorf("%w: %s", ErrFunctionNotFound, name)
	}
	if msg := m.ValidateTypedArgs(fn, args); msg != "" {
		fmt.Fprintln(m.eng.stderr, msg)
		return 2, nil
	}

	frame, err := m.pushFrame(name, args)
	if err != nil {
		return 1, err
	}
	defer m.popFrame()

	prevName, hadName := m.eng.env.LookupEnv("FUNCNAME")
	m.eng.env.Setenv("FUNCNAME", name)
	defer func() {
		if hadName {
			m.eng.env.Setenv("FUNCNAME", prevName)
		} else {
			m.eng.env.Unsetenv("FUNCNAME")
		}
	}()

	m.bindTypedParams(frame, fn, args)

	code, sig, err := m.eng.executeLines(fn.Body)
	if err != nil {
		return code, err
	}
	if sig.kind == sigReturn {
		return sig.code, nil
	}
	if frame.returnRequested {
		return frame.returnCode, nil
	}
	return code, nil
}

// bindTypedParams binds declared parameters as locals: positionals in
// order, flags by name with their value or "1" for bools, rest as the
// space-joined remainder, and defaults for anything missing.
func (m *FunctionManager) bindTypedParams(frame *callFrame, fn *Function, args []string) {
	if len(fn.TypedParams) == 0 {
		return
	}
	positional, flagValues := splitFlagArgs(fn, args)

	next := 0
	for _, param := range fn.TypedParams {
		switch {
		case param.IsFlag:
			if value, ok := flagValues[param.Name]; ok {
				frame.locals[param.Name] = value
			} else if param.DefaultValue != "" {
				frame.locals[param.Name] = param.DefaultValue
			}
		case param.IsRest:
			frame.locals[param.Name] = strings.Join(positional[min(next, len(positional)):], " ")
		default:
			if next < len(positional) {
				frame.locals[param.Name] = positional[next]
			} else if param.DefaultValue != "" {
				frame.locals[param.Name] = param.DefaultValue
			}
			next++
		}
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// splitFlagArgs separates declared flags from positional arguments.
func splitFlagArgs(fn *Function, args []string) (positional []string, flagValues map[string]string) {
	flagValues = make(map[string]string)
	byLong := make(map[string]*TypedParam)
	byShort := make(map[string]*TypedParam)
	for i := range fn.TypedParams {
		param := &fn.TypedParams[i]
		if !param.IsFlag {
			continue
		}
		byLong["--"+param.Name] = param
		if param.ShortFlag != "" {
			byShort["-"+param.ShortFlag] = param
		}
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		param := byLong[arg]
		if param == nil {
			param = byShort[arg]
		}
		if param == nil {
			positional = append(positional, arg)
			continue
		}
		if param.TypeHint == "bool" || param.TypeHint == "" {
			flagValues[param.Name] = "1"
			continue
		}
		// Typed flags consume the following argument as their value.
		if i+1 < len(args) {
			i++
			flagValues[param.Name] = args[i]
		}
	}
	return positional, flagValues
}

// ValidateTypedArgs compares required positional parameters against the
// supplied positional arguments and returns a descriptive mismatch
// message, or "" when the call is acceptable.
func (m *FunctionManager) ValidateTypedArgs(fn *Function, args []string) string {
	if len(fn.TypedParams) == 0 {
		return ""
	}
	required := 0
	for _, param := range fn.TypedParams {
		if param.IsFlag || param.IsRest || param.IsOptional || param.DefaultValue != "" {
			continue
		}
		required++
	}
	positional, _ := splitFlagArgs(fn, args)
	if len(positional) < required {
		return fmt.Sprintf("%s: requires %d argument(s), got %d", fn.Name, required, len(positional))
	}
	return ""
}

// RequestReturn marks the current frame so the function unwinds after the
// statement in flight completes.
func (m *FunctionManager) RequestReturn(code int) error {
	frame := m.currentFrame()
	if frame == nil {
		return ErrNoActiveFrame
	}
	frame.returnRequested = true
	frame.returnCode = code
	return nil
}

// pendingReturn reports a return requested on the current frame.
func (m *FunctionManager) pendingReturn() (int, bool) {
	frame := m.currentFrame()
	if frame == nil || !frame.returnRequested {
		return 0, false
	}
	return frame.returnCode, true
}

// SetLocal shadows a variable in the current frame only.
func (m *FunctionManager) SetLocal(name, value string) error {
	frame := m.currentFrame()
	if frame == nil {
		return ErrNoActiveFrame
	}
	frame.locals[name] = value
	return nil
}

// GetLocal reads a variable from the current frame.
func (m *FunctionManager) GetLocal(name string) (string, bool) {
	frame := m.currentFrame()
	if frame == nil {
		return "", false
	}
	value, ok := frame.locals[name]
	return value, ok
}

// GetPositionalParam is a bounds-checked lookup of $i in the current
// frame; $0 is the function name.
func (m *FunctionManager) GetPositionalParam(i int) (string, bool) {
	frame := m.currentFrame()
	if frame == nil {
		return "", false
	}
	if i == 0 {
		return frame.functionName, true
	}
	if i < 1 || i > len(frame.positional) {
		return "", false
	}
	return frame.positional[i-1], true
}

// PositionalCount counts the current frame's positional parameters.
func (m *FunctionManager) PositionalCount() (int, bool) {
	frame := m.currentFrame()
	if frame == nil {
		return 0, false
	}
	return len(frame.positional), true
}

// ShiftPositionals drops the first n positional parameters of the current
// frame.
func (m *FunctionManager) ShiftPositionals(n int) bool {
	frame := m.currentFrame()
	if frame == nil || n < 0 || n > len(frame.positional) {
		return false
	}
	frame.positional = frame.positional[n:]
	return true
}

// CurrentFunction names the function on top of the call stack.
func (m *FunctionManager) CurrentFunction() (string, bool) {
	frame := m.currentFrame()
	if frame == nil {
		return "", false
	}
	return frame.functionName, true
}
