// Package delegation resolves which authority must sign off a leasing
// dossier under the signature-delegation matrix.
//
// The matrix is a cascade: evaluation starts at the branch, and the first
// failed condition of a level moves the dossier to a higher level where that
// level's own conditions are checked. Evaluation is pure domain logic with no
// I/O and no shared mutable state.
package delegation

// Step records one escalation: the rule that fired and the move it caused.
type Step struct {
	Rule   string `json:"rule"`
	From   Level  `json:"from"`
	To     Level  `json:"to"`
	Reason string `json:"reason"`
}

// Result is the outcome of one evaluation.
type Result struct {
	Level Level `json:"level"`
	// Reasons lists one trigger description per escalation, in the order the
	// levels were traversed.
	Reasons []string `json:"reasons"`
	Path    []Level  `json:"path"`
	Steps   []Step   `json:"steps"`
}

// Info returns the display metadata of the resolved level.
func (r Result) Info() LevelInfo {
	return r.Level.Info()
}

// Standard reports whether the dossier qualified at the branch without any
// exception.
func (r Result) Standard() bool {
	return len(r.Reasons) == 0
}

// Engine evaluates dossiers against a fixed rule table. It is safe for
// concurrent use.
type Engine struct {
	policy Policy
	rules  ruleTable
}

// NewEngine builds an engine for the policy.
func NewEngine(policy Policy) (*Engine, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	rules := newRuleTable(policy)
	rules.checkUpward()
	return &Engine{policy: policy, rules: rules}, nil
}

var defaultEngine = mustEngine(DefaultPolicy())

func mustEngine(policy Policy) *Engine {
	e, err := NewEngine(policy)
	if err != nil {
		panic(err)
	}
	return e
}

// Evaluate runs the dossier through the default policy.
func Evaluate(d Dossier) Result {
	return defaultEngine.Evaluate(d)
}

// Policy returns the policy the engine was built with.
func (e *Engine) Policy() Policy {
	return e.policy
}

// Evaluate walks the cascade from Branch until a level's conditions all pass
// or Committee is reached. Every rule moves strictly upward, so the loop runs
// at most once per level.
func (e *Engine) Evaluate(d Dossier) Result {
	level := Branch
	result := Result{
		Reasons: []string{},
		Path:    []Level{Branch},
		Steps:   []Step{},
	}
	for {
		r, ok := e.rules.firstMatch(level, d)
		if !ok {
			break
		}
		result.Steps = append(result.Steps, Step{Rule: r.id, From: level, To: r.target, Reason: r.reason})
		result.Reasons = append(result.Reasons, r.reason)
		result.Path = append(result.Path, r.target)
		level = r.target
	}
	result.Level = level
	return result
}
