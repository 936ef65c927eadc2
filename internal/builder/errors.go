package builder

import "errors"

var (
	// ErrNoResults is returned by RequireSingle when nothing matches.
	ErrNoResults = errors.New("query returned no results")

	// ErrTooManyResults is returned by Single and RequireSingle when more
	// than one row matches.
	ErrTooManyResults = errors.New("query returned more than one result")
)
