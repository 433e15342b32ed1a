// Package dataset holds the in-memory dataset handle shared by the hub client,
// the disk cache and the fetcher: a dataset is a set of named splits, each with
// its feature list and tabular rows. It also owns the deterministic mapping
// from a dataset identifier to its cache directory and the NotFound sentinel
// that the hub client wraps when the remote dataset does not exist.
package dataset
