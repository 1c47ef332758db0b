package validation

import (
	"regexp"
	"sort"
	"strings"
)

var (
	emailPattern    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	zipCodePattern  = regexp.MustCompile(`^\d{5}(-\d{4})?$`)
	ssnPattern      = regexp.MustCompile(`^\d{3}-\d{2}-\d{4}$`)
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	codePattern     = regexp.MustCompile(`^\d{4}$`)
)

// Fields is a flat view of a submitted form keyed by field name.
type Fields map[string]string

// Errors maps a field name to a single human-readable message. A field set is
// valid iff Validate returns an empty Errors.
type Errors map[string]string

// Error implements error so a failed validation can travel through error returns.
func (e Errors) Error() string {
	if len(e) == 0 {
		return "validation passed"
	}
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Empty reports whether no field produced an error.
func (e Errors) Empty() bool { return len(e) == 0 }

// Rule inspects one field value (and, for equality rules, the whole field set)
// and returns a message, or "" when the value passes.
type Rule func(value string, all Fields) string

// Field binds an ordered list of rules to a field name. The first failing rule wins.
type Field struct {
	Name  string
	Rules []Rule
}

// RuleSet is an ordered list of field rules.
type RuleSet []Field

// Validate runs every field's rules against fields.
func Validate(set RuleSet, fields Fields) Errors {
	errs := Errors{}
	for _, f := range set {
		value := fields[f.Name]
		for _, rule := range f.Rules {
			if msg := rule(value, fields); msg != "" {
				errs[f.Name] = msg
				break
			}
		}
	}
	return errs
}

// Required fails on empty or whitespace-only values.
func Required(msg string) Rule {
	return func(value string, _ Fields) string {
		if strings.TrimSpace(value) == "" {
			return msg
		}
		return ""
	}
}

// Matches fails when a non-empty value does not match re. Empty values are left to Required.
func Matches(re *regexp.Regexp, msg string) Rule {
	return func(value string, _ Fields) string {
		if value == "" {
			return ""
		}
		if !re.MatchString(strings.TrimSpace(value)) {
			return msg
		}
		return ""
	}
}

// MinLength fails when a non-empty value is shorter than n runes.
func MinLength(n int, msg string) Rule {
	return func(value string, _ Fields) string {
		if value == "" {
			return ""
		}
		if len([]rune(value)) < n {
			return msg
		}
		return ""
	}
}

// Email checks the basic local@domain.tld shape.
func Email(msg string) Rule { return Matches(emailPattern, msg) }

// ZipCode accepts NNNNN or NNNNN-NNNN.
func ZipCode(msg string) Rule { return Matches(zipCodePattern, msg) }

// SSN accepts NNN-NN-NNNN.
func SSN(msg string) Rule { return Matches(ssnPattern, msg) }

// Password requires at least 8 characters with an uppercase letter, a lowercase
// letter and a digit.
func Password(msg string) Rule {
	return func(value string, _ Fields) string {
		if value == "" {
			return ""
		}
		if !StrongPassword(value) {
			return msg
		}
		return ""
	}
}

// StrongPassword reports whether p satisfies the password composition rule.
func StrongPassword(p string) bool {
	if len(p) < 8 {
		return false
	}
	var upper, lower, digit bool
	for _, r := range p {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		}
	}
	return upper && lower && digit
}

// EqualsField fails when a non-empty value differs from the named sibling field.
func EqualsField(other, msg string) Rule {
	return func(value string, all Fields) string {
		if value == "" {
			return ""
		}
		if value != all[other] {
			return msg
		}
		return ""
	}
}
