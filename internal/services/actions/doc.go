// Package actions polls the orchestrator for KEYGEN and SIGN work and fulfils it.
//
// A Poller owns one timer and one in-flight flag. Each cycle fetches the
// device's actions and dispatches the PENDING ones in order; failures move the
// next delay up a fixed ladder and a clean cycle drops it back to the floor.
package actions
