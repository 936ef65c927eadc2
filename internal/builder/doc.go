// Package builder assembles query structures through a fluent, type-state
// API and runs them through a Backend.
//
// States follow SQL clause order. Each state is an interface exposing only
// the transitions that are still legal:
//
//	Select ──► Where ──► OrderBy ──► Collector         (entity selections)
//	Where0 ──► GroupBy ──► Having ──► OrderBy ──► Collector (column selections)
//
// Comparisons entered from Where or Where0 return an AndBuilder (AndBuilder0)
// that accumulates further ANDed conditions before moving on:
//
//	users := builder.New(backend).From("User")
//	adults := users.Where("age").Ge(18)
//	named, err := adults.And("name").Eq("Ann").List(ctx, 0, 10, query.LockNone)
//
// Every transition copies the underlying structure, so any intermediate
// builder is an immutable template: adults above can be continued in several
// directions, concurrently, without interference.
//
// Terminal calls (Count, List, Exist, Slice and the single-row helpers)
// derive the specialized structure, pass it through the PostProcessor and
// hand it to the Backend. BuildMetadata exposes the derived structures
// without executing anything.
package builder
