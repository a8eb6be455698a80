// package repositories provides the persistence layer for job history and
// cached icon embeddings.
//
// Storage is a single key-value blob table; callers serialize their own
// payloads. Quota failures are surfaced as shared.ErrQuotaExceeded so callers
// can clear and retry.
package repositories
