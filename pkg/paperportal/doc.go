// Package paperportal implements the content lifecycle core of a submission
// portal: dual-backend blob persistence, the pending/approved/rejected review
// state machine, the access gate deciding who may fetch which artifact, and
// opaque public links for anonymous access to approved submissions.
//
// The package is storage-agnostic: callers wire a Repository (see
// repo/memory and repo/postgres) and a ContentStore composed of BlobStore
// backends (see storage/memory, storage/fs and storage/postgres).
package paperportal
