// Package storage provides the key-value persistence used by the memory
// store. A Backend is the raw byte-oriented facility (in-memory map, a
// directory of files, or an SQLite table); the Adapter layered on top
// serializes values as JSON and applies the read policy the store relies
// on: Get never fails, so "absent" and "unreadable" both mean "use the
// default".
package storage
