// Package config defines the settings of a publish run and provides helpers
// to load, validate and save them in YAML format.
//
// The Config type carries the packages root, index URL, upload credentials,
// poll bounds and the argv of the external build, upload and install tools.
// Credentials live here so they are threaded explicitly into the publisher
// instead of being read from ambient state.
package config
