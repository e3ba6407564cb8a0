// Package syncer reconciles the local library with the remote folder.
//
// A Reconciler pass compares the local records with the folder listing and
// turns every difference into an intent in the durable queue. The Executor
// drains that queue, one intent at a time, and removes an intent only after
// it has been applied, so a killed process loses no work: the next Drain,
// in this process or another one, picks up where it stopped.
package syncer
