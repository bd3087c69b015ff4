// Package columnar implements the in-memory table that every txprofile stage
// operates on.
//
// # Overview
//
// A Table is an ordered set of equally long named columns. Every column has a
// Kind decided once when it is built:
//
//   - KindString: Go strings with a null bitmap ("object")
//   - KindCategory: a sorted label dictionary plus narrow per-row codes ("category")
//   - KindInt: signed integers stored at 8, 16, 32 or 64 bits ("int8".."int64")
//   - KindFloat: float32 or float64 with NaN as the missing value ("float32", "float64")
//   - KindTimestamp: UTC nanoseconds with a NaT sentinel ("datetime64[ns]")
//
// Columns are immutable once built. Storage changes produce a new column
// which replaces the old one in the table, so the values a column reports
// never change, only its width and encoding.
//
// # Memory Accounting
//
// MemoryUsage reports a deep size: the fixed-width slots plus any variable
// length payload (string bytes, dictionary labels) and null bitmaps. A string
// slot costs 16 bytes for its header. Table.MemoryUsage is the exact sum of
// its columns.
//
// # Building Columns
//
// Loading code feeds raw cells into builders:
//
//	b := columnar.NewInferBuilder(1024)
//	b.Append("42")
//	b.AppendNull()
//	col := b.Finish() // KindFloat: a missing value promoted the integers
//
// InferBuilder promotes int to float to string as values arrive. A missing
// value in an integer column promotes it to float.
package columnar
