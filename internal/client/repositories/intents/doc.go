// Package intents is the durable sync intent queue. Intents are keyed by
// (record id, guid); writing an existing key replaces the queued intent.
package intents
