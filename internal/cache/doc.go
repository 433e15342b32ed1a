// Package cache defines the disk-backed store that keeps one directory per
// dataset under the configured base folder (<base>/<namespace>_<name>/). The
// store saves a dataset by writing it into a hidden temp directory and renaming
// it into place, so a failed save never leaves a half-written cache behind. A
// cache directory counts as present when it exists and is non-empty; nothing
// beyond that is checked before loading. The filesystem is a go-billy
// abstraction so tests can swap the OS filesystem for an in-memory one.
package cache
