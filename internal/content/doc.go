// Package content stores published stories in a versioned content repository.
//
// # Overview
//
// A Repository is an append-only file tree addressed by slash-separated
// paths. The gateway writes one JSON file per story under stories/ and
// reads the directory back for listings and the static site.
//
// # Backends
//
//   - GitHubRepository: the GitHub contents API. Every PutFile is a commit.
//   - S3Repository: an S3 bucket (or MinIO). Objects are written with
//     If-None-Match so an existing key is never replaced.
//   - MemoryRepository: in-process map used by tests, with failure injection.
//
// # Errors
//
// ErrNotFound is returned for missing files or directories. ErrExists is
// returned when PutFile targets a path that already has content.
//
// # Ordering
//
// ListDir returns entries sorted by name. Story files are named
// {unixMillis}-{slug}.json, so name order is publication order.
package content
