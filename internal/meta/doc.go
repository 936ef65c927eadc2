// Package meta defines the metamodel contract used by the SQL generator and
// an in-memory Schema implementing it.
//
// A metamodel maps logical entity and attribute names to physical tables and
// columns. Attributes are either basic (a column on the owning table) or
// to-one relationships (a join column on the owning table referencing a
// column of the target entity, by default the target's id column).
//
// Schemas can be assembled in Go, compiled from CUE, or parsed from YAML:
//
//	entity: User: {
//	    table: "user"
//	    id:    "id"
//	    attributes: {
//	        id:       {column: "id"}
//	        username: "username"
//	        parent:   {references: "User", joinColumn: "pid"}
//	    }
//	}
//
//	projection: UserSummary: {
//	    entity: "User"
//	    attributes: {id: "id", name: "username"}
//	}
//
// A Schema is mutable only while it is being assembled. Once Validate has
// succeeded it is treated as read-only and may be shared between goroutines.
package meta
