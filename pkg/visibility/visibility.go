// Package visibility decides whether conditional form sections are shown.
//
// A section carries a rule such as `sistema_actual == "Isapre"`; fields inside
// a hidden section are exempt from validation and are not collected.
package visibility

// Values is a read-only view over the current answers, keyed by field name.
type Values interface {
	Value(name string) string
}

// Map adapts a plain map into Values.
type Map map[string]string

// Value returns the answer stored under name, or "".
func (m Map) Value(name string) string {
	if m == nil {
		return ""
	}
	return m[name]
}

// Evaluator determines whether a section is visible given its rule and the
// current answers. An empty rule is always visible.
type Evaluator interface {
	Eval(sectionID, rule string, values Values) (bool, error)
}

// EvaluatorFunc adapts a function into an Evaluator.
type EvaluatorFunc func(sectionID, rule string, values Values) (bool, error)

// Eval delegates to the underlying function.
func (fn EvaluatorFunc) Eval(sectionID, rule string, values Values) (bool, error) {
	return fn(sectionID, rule, values)
}

// Always is an Evaluator that shows every section.
var Always Evaluator = EvaluatorFunc(func(string, string, Values) (bool, error) { return true, nil })
