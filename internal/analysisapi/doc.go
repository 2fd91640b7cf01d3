// Package analysisapi talks to the remote video analysis service.
//
// The service exposes three calls used by a submission: a multipart upload
// that returns a file key, a processing request that returns a job id, and a
// job status lookup used when progress is polled instead of simulated. All
// failures are returned as services errors tagged with a marker so callers
// can classify them.
package analysisapi
