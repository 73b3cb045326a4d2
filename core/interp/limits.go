package interp

// Limits bounds every growable collection in the engine. A zero value for
// any field means "use the default"; there is no way to turn a bound off.
type Limits struct {
	// MaxCallDepth bounds the function call stack.
	MaxCallDepth int
	// MaxPositionalParams bounds the positional slots copied into a frame.
	MaxPositionalParams int
	// MaxBodyLines bounds the collected body of any single construct.
	MaxBodyLines int
	// MaxItems bounds for/select item lists, before and after expansion.
	MaxItems int
	// MaxElifClauses bounds elif clauses on one if statement.
	MaxElifClauses int
	// MaxCaseClauses bounds clauses in one case statement.
	MaxCaseClauses int
	// MaxPatterns bounds patterns in one case clause.
	MaxPatterns int
	// MaxScriptBytes bounds the size of a loadable script file.
	MaxScriptBytes int64
	// MaxScriptLines bounds the line array a script is split into.
	MaxScriptLines int
	// CacheCapacity bounds the script cache entry count.
	CacheCapacity int
}

// DefaultLimits returns the stock engine limits.
func DefaultLimits() Limits {
	return Limits{
		MaxCallDepth:        64,
		MaxPositionalParams: 64,
		MaxBodyLines:        1024,
		MaxItems:            1024,
		MaxElifClauses:      64,
		MaxCaseClauses:      256,
		MaxPatterns:         64,
		MaxScriptBytes:      10 << 20,
		MaxScriptLines:      65536,
		CacheCapacity:       32,
	}
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.MaxCallDepth <= 0 {
		l.MaxCallDepth = d.MaxCallDepth
	}
	if l.MaxPositionalParams <= 0 {
		l.MaxPositionalParams = d.MaxPositionalParams
	}
	if l.MaxBodyLines <= 0 {
		l.MaxBodyLines = d.MaxBodyLines
	}
	if l.MaxItems <= 0 {
		l.MaxItems = d.MaxItems
	}
	if l.MaxElifClauses <= 0 {
		l.MaxElifClauses = d.MaxElifClauses
	}
	if l.MaxCaseClauses <= 0 {
		l.MaxCaseClauses = d.MaxCaseClauses
	}
	if l.MaxPatterns <= 0 {
		l.MaxPatterns = d.MaxPatterns
	}
	if l.MaxScriptBytes <= 0 {
		l.MaxScriptBytes = d.MaxScriptBytes
	}
	if l.MaxScriptLines <= 0 {
		l.MaxScriptLines = d.MaxScriptLines
	}
	if l.CacheCapacity <= 0 {
		l.CacheCapacity = d.CacheCapacity
	}
	return l
}
