// Package poll implements bounded convergence loops: observe an external
// system until it reflects a change just made, or give up after a timeout.
package poll
