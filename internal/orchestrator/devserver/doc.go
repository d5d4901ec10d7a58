// Package devserver is an in-memory orchestrator for local development and tests.
//
// It serves the device-facing wire contract under /api with chi, plus two
// dev-only endpoints for creating pairing sessions and enqueuing actions.
// Options switch between the protocol variants real servers exhibit (claim
// reporting BOUND directly or leaving it to status polling) and inject failures.
package devserver
