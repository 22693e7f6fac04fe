// Package store holds records in memory, keyed by logical name and id.
//
// The store hands out clones only; callers never alias stored state.
// Enumeration follows insertion order, stamped by a logical Sequence.
// Mutations stamp the house-keeping attributes (createdon, modifiedon,
// createdby, modifiedby, ownerid) unless the caller supplied them.
//
// The store performs no integrity checks. Executors validate writes
// before calling it.
package store
