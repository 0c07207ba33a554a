// Package manifest renders setup.py and stages the packaging files of a
// package directory before a build.
//
// Staging checks every precondition before it touches the package
// directory, so a missing template or placeholder aborts the run with
// nothing written.
package manifest
