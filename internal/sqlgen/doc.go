// Package sqlgen renders query structures into SQL text and bound arguments.
//
// Rendering is a pure function of the structure, the metamodel and the
// dialect. All mutable state (joins, arguments, the select alias counter)
// lives in a per-call renderer, so one Generator may serve any number of
// goroutines.
//
// Column paths are resolved through the metamodel. Every proper prefix of a
// multi-segment path is a to-one relationship and becomes one LEFT JOIN,
// deduplicated by prefix in first-seen order:
//
//	SELECT user_.id, user_.username FROM `user` user_
//	LEFT JOIN `user` user0_ ON user_.pid = user0_.id
//	WHERE user0_.username = ?
//
// Aliases are the first four letters of the lower-cased entity name without
// trailing digits, the
// sub-query nesting index when nested, and the join position. Sub-query
// sources use the prefix "t". Select items carry " AS _n" aliases only inside
// sub-queries.
//
// Operations are parenthesized by precedence rank: the primary operand when
// its rank is greater than the parent's, arguments when greater or equal.
// Boolean constants render as 1 and 0; every other constant is bound as a
// "?" argument in text order.
package sqlgen
