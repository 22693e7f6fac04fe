// Package query defines query expressions over the record store and the
// evaluator that runs them.
//
// Evaluation proceeds in a fixed order:
//
//	enumerate base -> expand links -> filter -> order -> page -> project
//
// Attribute names match case-insensitively. Equality and ordering on
// strings are case-sensitive; the like family folds case.
//
// Link semantics follow FetchXML: Link.From names the attribute on the
// linked entity and Link.To the attribute on the parent (base entity or
// enclosing link). References unwrap to their id before comparison.
package query
