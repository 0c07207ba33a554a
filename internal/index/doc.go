// Package index queries the package index JSON API for published versions.
//
// The client is deliberately lenient: an unknown package, a non-JSON body or
// a payload without releases all mean "nothing published yet" and resolve to
// the baseline version, so first-time packages publish as 0.1. Only transport
// failures are errors.
package index
