package interp

// Statement nodes produced by the control flow parser. Bodies are stored as
// canonical script lines; nested constructs inside a body are re-parsed
// when the body runs, so structures behave identically at any depth.

// IfStatement is an if/elif/else/fi construct.
type IfStatement struct {
	Condition   string
	ThenBody    []string
	ElifClauses []ElifClause
	ElseBody    []string
}

// ElifClause is one elif arm with its own condition and body.
type ElifClause struct {
	Condition string
	Body      []string
}

// WhileLoop is a while or until loop.
type WhileLoop struct {
	Condition string
	Body      []string
	IsUntil   bool
}

// ForLoop is a "for VAR in ..." loop. Items hold the literal parse-time
// tokens; array-expansion items are resolved at execution time.
type ForLoop struct {
	Variable string
	Items    []string
	Body     []string
}

// CStyleForLoop is a "for ((init; cond; update))" loop. Any clause may be
// empty, meaning it is omitted.
type CStyleForLoop struct {
	Init      string
	Condition string
	Update    string
	Body      []string
}

// SelectMenu is a select construct.
type SelectMenu struct {
	Variable string
	Items    []string
	Body     []string
	Prompt   string
}

// DefaultSelectPrompt is used when neither PS3 nor an explicit prompt is set.
const DefaultSelectPrompt = "#? "

// CaseTerminator is the terminator of one case clause.
type CaseTerminator int

const (
	// TermNormal (";;") stops the case statement after the clause runs.
	TermNormal CaseTerminator = iota
	// TermFallthrough (";&") forces the next clause to run unconditionally.
	TermFallthrough
	// TermContinueTesting (";;&") keeps pattern-testing later clauses.
	TermContinueTesting
)

func (t CaseTerminator) String() string {
	switch t {
	case TermFallthrough:
		return ";&"
	case TermContinueTesting:
		return ";;&"
	default:
		return ";;"
	}
}

// CaseClause is one "patterns) body terminator" arm of a case statement.
type CaseClause struct {
	Patterns   []string
	Body       []string
	Terminator CaseTerminator
}

// CaseStatement matches a scrutinee against an ordered list of clauses.
type CaseStatement struct {
	Value string
	Cases []CaseClause
}

// TypedParam describes one declared function parameter.
type TypedParam struct {
	Name         string
	TypeHint     string
	DefaultValue string
	IsFlag       bool
	ShortFlag    string
	IsRest       bool
	IsOptional   bool
}

// Function is a defined shell function.
type Function struct {
	Name        string
	Body        []string
	Exported    bool
	TypedParams []TypedParam
	ReturnType  string
}
