// Package pairing runs the device side of a pairing attempt.
//
// A scanned payload goes through authenticate, claim, an optional wait for the
// session to be bound, and wallet creation. Progress is reported step by step
// to an Observer; failures carry the step they happened in. A scan that is
// valid JSON but not a pairing request is handed back untouched.
package pairing
