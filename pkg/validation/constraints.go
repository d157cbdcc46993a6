package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/goliatone/go-leadform/pkg/form"
)

// Constraint is the native check for a field kind. It returns false and a
// user-facing message when value does not satisfy the field's attributes.
type Constraint func(field form.Field, value string) (bool, string)

var (
	validate = validator.New()

	patternMu    sync.Mutex
	patternCache = map[string]*regexp.Regexp{}

	tldPattern = regexp.MustCompile(`\.[a-z]{2,}$`)
)

// DefaultConstraints returns the built-in constraint table.
func DefaultConstraints() map[form.Kind]Constraint {
	return map[form.Kind]Constraint{
		form.KindNumber:     NumberConstraint,
		form.KindSelect:     OptionConstraint,
		form.KindText:       TextConstraint,
		form.KindEmail:      TextConstraint,
		form.KindIdentifier: TextConstraint,
		form.KindLocality:   TextConstraint,
	}
}

// NumberConstraint requires a decimal number inside the field's Min/Max.
func NumberConstraint(f form.Field, value string) (bool, string) {
	n, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return false, MsgNumber
	}
	if f.Min != nil {
		if err := validate.Var(n, fmt.Sprintf("gte=%v", *f.Min)); err != nil {
			return false, fmt.Sprintf("El valor debe ser mayor o igual que %v.", *f.Min)
		}
	}
	if f.Max != nil {
		if err := validate.Var(n, fmt.Sprintf("lte=%v", *f.Max)); err != nil {
			return false, fmt.Sprintf("El valor debe ser menor o igual que %v.", *f.Max)
		}
	}
	return true, ""
}

// OptionConstraint requires value to be one of the field's options.
func OptionConstraint(f form.Field, value string) (bool, string) {
	if len(f.Options) > 0 && !f.HasOption(value) {
		return false, MsgOption
	}
	return true, ""
}

// TextConstraint applies MaxLength (in characters) and Pattern, anchored to
// the whole value.
func TextConstraint(f form.Field, value string) (bool, string) {
	if f.MaxLength > 0 && utf8.RuneCountInString(value) > f.MaxLength {
		return false, fmt.Sprintf("El texto no puede superar %d caracteres.", f.MaxLength)
	}
	if f.Pattern != "" {
		re, err := compilePattern(f.Pattern)
		if err != nil || !re.MatchString(value) {
			return false, MsgPattern
		}
	}
	return true, ""
}

func compilePattern(pattern string) (*regexp.Regexp, error) {
	patternMu.Lock()
	defer patternMu.Unlock()
	if re, ok := patternCache[pattern]; ok {
		return re, nil
	}
	re, err := regexp.Compile(`^(?:` + pattern + `)$`)
	if err != nil {
		return nil, err
	}
	patternCache[pattern] = re
	return re, nil
}

// ValidEmail reports whether s is an address with a dotted domain ending in
// a label of at least two letters.
func ValidEmail(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if err := validate.Var(s, "required,email"); err != nil {
		return false
	}
	_, domain, ok := strings.Cut(s, "@")
	return ok && tldPattern.MatchString(domain)
}
