package query

import (
	"fmt"

	"github.com/roach88/querykit/internal/expr"
)

// Severity classifies a validation issue.
type Severity int

const (
	// SeverityError marks a structure that databases reject.
	SeverityError Severity = iota + 1
	// SeverityWarning marks a structure that is legal in some dialects but
	// likely wrong.
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// Issue is one finding of Validate.
type Issue struct {
	Severity Severity
	// Clause names where the problem sits, e.g. "where" or "from.group by".
	Clause  string
	Message string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s: %s", i.Severity, i.Clause, i.Message)
}

// ValidationResult contains the structural analysis of a query.
type ValidationResult struct {
	// Valid is false when at least one error was found. Warnings alone keep
	// a structure valid.
	Valid  bool
	Issues []Issue
}

// Errors returns the error-severity issues.
func (r ValidationResult) Errors() []Issue {
	return r.filter(SeverityError)
}

// Warnings returns the warning-severity issues.
func (r ValidationResult) Warnings() []Issue {
	return r.filter(SeverityWarning)
}

func (r ValidationResult) filter(sev Severity) []Issue {
	var out []Issue
	for _, issue := range r.Issues {
		if issue.Severity == sev {
			out = append(out, issue)
		}
	}
	return out
}

// Validate checks a structure for aggregation and pagination mistakes.
//
// Rules:
//  1. WHERE and GROUP BY must not contain aggregates (error)
//  2. offset and limit are -1 or non-negative (error)
//  3. With GROUP BY, every non-aggregated selected expression is grouped (warning)
//  4. HAVING without GROUP BY or an aggregate selection (warning)
//  5. fetch paths only apply to entity selections (warning)
//
// Sub-queries are validated recursively with a "from." clause prefix.
//
// Validate is a pure function with no side effects.
func Validate(s *Structure) ValidationResult {
	v := &validator{}
	v.validate(s, "")
	return ValidationResult{
		Valid:  len(v.errors()) == 0,
		Issues: v.issues,
	}
}

type validator struct {
	issues []Issue
}

func (v *validator) add(sev Severity, clause, format string, args ...any) {
	v.issues = append(v.issues, Issue{Severity: sev, Clause: clause, Message: fmt.Sprintf(format, args...)})
}

func (v *validator) errors() []Issue {
	return ValidationResult{Issues: v.issues}.Errors()
}

func (v *validator) validate(s *Structure, prefix string) {
	if sub, ok := s.from.(FromSubQuery); ok {
		v.validate(sub.Query, prefix+"from.")
	}

	// Rule 1
	if expr.ContainsAggregate(s.where) {
		v.add(SeverityError, prefix+"where", "aggregate in WHERE: %s; use HAVING", s.where)
	}
	for _, g := range s.groupBy {
		if expr.ContainsAggregate(g) {
			v.add(SeverityError, prefix+"group by", "aggregate in GROUP BY: %s", g)
		}
	}

	// Rule 2
	if s.offset < -1 {
		v.add(SeverityError, prefix+"offset", "negative offset %d", s.offset)
	}
	if s.limit < -1 {
		v.add(SeverityError, prefix+"limit", "negative limit %d", s.limit)
	}

	selected := selectedExpressions(s.selection)

	// Rule 3
	if len(s.groupBy) > 0 {
		grouped := make(map[string]bool, len(s.groupBy))
		for _, g := range s.groupBy {
			grouped[g.String()] = true
		}
		for _, e := range selected {
			if _, isConst := e.(expr.Constant); isConst || expr.ContainsAggregate(e) {
				continue
			}
			if !grouped[e.String()] {
				v.add(SeverityWarning, prefix+"select", "%s is neither aggregated nor grouped", e)
			}
		}
		if _, ok := s.selection.(EntitySelection); ok {
			v.add(SeverityWarning, prefix+"select", "entity selection %s with GROUP BY", s.selection)
		}
	}

	// Rule 4
	if !expr.IsTrue(s.having) && len(s.groupBy) == 0 {
		aggregated := false
		for _, e := range selected {
			if expr.ContainsAggregate(e) {
				aggregated = true
				break
			}
		}
		if !aggregated {
			v.add(SeverityWarning, prefix+"having", "HAVING without GROUP BY or aggregate selection")
		}
	}

	// Rule 5
	if len(s.fetch) > 0 {
		if _, ok := s.selection.(EntitySelection); !ok {
			v.add(SeverityWarning, prefix+"fetch", "fetch is ignored for column selections")
		}
	}
}

func selectedExpressions(sel Selection) []expr.Expression {
	switch sel := sel.(type) {
	case SingleColumn:
		return []expr.Expression{sel.Column}
	case MultiColumn:
		return sel.Columns
	default:
		return nil
	}
}
