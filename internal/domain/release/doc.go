// Package release contains the domain types of a publish run.
//
// PackageName normalizes operator input to the index name, Version orders
// dotted numeric release numbers and computes the next one, and Attempt
// records what a single run observed while it moved through its States.
package release
