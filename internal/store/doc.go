// Package store keeps records in SQLite so queries can be evaluated by the
// database instead of in memory.
//
// A table holds one row per record:
//   - id is the record's 1-based position in the imported slice
//   - every top-level key becomes a column of the same name
//   - strings, numbers and booleans are stored as SQLite values
//   - objects and arrays are stored as JSON text, which is what the
//     translator's json_extract and json_each expressions read
//
// Results are always ordered by id, so a query returns records in import
// order, as in-memory filtering does.
package store
