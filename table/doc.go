// Package table defines the tabular data model used by psmgo.
//
// A [Table] is an ordered list of column names plus an ordered list of rows.
// Each cell is a typed [Value]: int, float, bool, string (categorical) or null.
//
//	t := table.New("age", "income")
//	_ = t.Append(table.Int(42), table.Float(51_000))
//
// Tables are treated as immutable inputs by the matching pipeline. Every
// derived table ([Table.Select], [Table.Take], [Table.Head], [Table.Clone])
// is an independent copy.
package table
