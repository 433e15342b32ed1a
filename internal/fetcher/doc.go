// Package fetcher implements the single decision the tool exists for: given a
// dataset identifier and a base folder, return the cached copy when its
// directory exists and is non-empty, otherwise download it from the hub,
// persist it and return the fresh copy. Failures never propagate; they are
// logged and reported through Result.Kind so callers can still tell a missing
// dataset from any other error.
package fetcher
