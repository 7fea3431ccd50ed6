// Package queryir provides the intermediate representation (IR) for SELECT
// statements sent to QuestDB.
//
// The IR is built by code (or decoded from query documents) and compiled to
// SQL text by package querysql. It carries the QuestDB-specific SAMPLE BY
// clause as a first-class field, so a sampled select can be nested as a
// subquery and the clause stays with the inner statement.
//
//	[query document] → [queryir.Select] → [querysql] → SQL + params
//
// SEALED INTERFACES:
//
// Source, Expr and Predicate are sealed with marker methods. Only types in
// this package implement them, so compilers can switch exhaustively:
//
//	switch s := src.(type) {
//	case Table:
//	case Subquery:
//	case Join:
//	}
//
// SOURCES:
//   - Table{Name, Alias}
//   - Subquery{Query, Alias}: alias is required by the server
//   - Join{Left, Right, Kind, On}: inner, left outer and ASOF joins
//
// EXPRESSIONS:
//   - Column, Func, Literal (always parameterized), Raw, Star
//
// PREDICATES:
//   - Compare, And, Or, RawPredicate
//
// Validate separates hard errors (the query cannot compile) from warnings
// (it compiles, but the server will probably reject or misread it).
package queryir
