// Package core provides the PDF value model and the low-level syntax layer
// shared by every other package in this module.
//
// # Object Types
//
// PDF defines eight basic object types, all implemented as types satisfying the
// Object interface:
//
//   - [Null] - the PDF null object (also what a dangling reference resolves to)
//   - [Bool] - boolean values
//   - [Int] - integers
//   - [Real] - real numbers
//   - [String] - literal or hexadecimal strings (stored as raw bytes)
//   - [Name] - name objects such as /Type
//   - [Array] - arrays
//   - [Dict] - dictionaries
//
// [Stream] pairs a dictionary with its raw (still encoded) bytes and
// [IndirectRef] addresses an indirect object by number and generation.
//
// Values are plain Go data. [Clone] produces an independent deep copy and
// [Equal] compares two values structurally; the object store relies on both
// to keep stored values isolated from caller mutations.
//
// # Syntax
//
// [Lexer] tokenizes PDF input, [Parser] builds objects from tokens and
// [Write] serializes an object back to PDF syntax. [XRefParser] reads one
// cross-reference section (classical table or xref stream) together with its
// trailer, and [ObjectStream] extracts objects compressed into /ObjStm streams.
//
// # Errors
//
// The sentinel errors in errors.go form the error taxonomy used across the
// module. Call sites wrap them with context; callers test with errors.Is.
package core
