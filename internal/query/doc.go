// Package query holds the immutable query structure and the derivations
// terminal operations apply to it.
//
// A Structure describes one logical query: what is selected, where rows come
// from, the filter, grouping, having, ordering, eager fetch paths,
// pagination and locking. Fields are unexported; every change goes through a
// With* method that returns a copy, so a Structure can be shared freely and
// reused as a template.
//
// Derivations:
//
//   - List sets offset, limit and lock.
//   - Exist selects constant true with limit 1 and drops fetch and ordering.
//   - Count drops ordering and locking, then either counts rows directly,
//     counts the groups of a grouped query, or counts the rows of the intact
//     aggregate query wrapped as a sub-query.
//   - Slice pairs a Count with an unlocked List.
//
// Validate reports structural problems (aggregates in WHERE, ungrouped
// columns, negative pagination) without consulting a metamodel.
package query
