// Package ir converts expression trees to and from portable documents.
//
// A document is a tree of constrained JSON values (IRValue): strings, int64
// integers, booleans, arrays and objects. Documents have a single canonical
// encoding (RFC 8785 key order, NFC strings), so a Fingerprint identifies an
// expression by content.
//
// ir imports expr and nothing else from this module.
package ir
