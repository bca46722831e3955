// Package entity layers typed records on top of the key-value store.
//
// # Entities
//
// An Entity is a single JSON record addressed by a type name and an id:
//
//	e/<type>/<id>
//
// Singleton records use the fixed id "singleton". State returns the kind's
// initial value when the record does not exist, so callers never see a nil
// record.
//
// # Indexed Entities
//
// An Indexed collection adds an append-ordered index next to the records.
// Every Create writes the record first, then a pointer naming the record's
// index position, then the index entry itself:
//
//	r/<index>/<id>           -> <ulid>
//	i/<index>/<ulid>/<id>
//
// ULIDs come from a monotonic source, so index order is creation order.
// The pointer is claimed with PutIfAbsent, so a Create and a Repair racing
// on the same record agree on one entry. It also lets Delete remove the
// entry without scanning the index.
//
// The writes are not atomic. A record without an index entry is an orphan
// and a key without a record is dangling; List skips dangling entries and
// lists a record once even if it has several entries, and Repair
// reconciles all of them.
//
// # Seeding
//
// EnsureSeed writes a kind's seed records the first time a collection is
// used. Seed index entries use deterministic ULIDs (timestamp zero), so two
// processes seeding at the same time write the same keys. A marker key
// (s/<index>) records that seeding happened; once it exists, deleted seed
// records stay deleted.
package entity
