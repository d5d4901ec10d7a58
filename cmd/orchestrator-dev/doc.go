// Package main runs the in-memory orchestrator used by cosigner during
// development and tests.
//
// HTTP API (under /api)
//
//	POST /auth/phone {id_token}
//	    Exchange any non-empty identity token for a bearer token.
//
//	POST /claim_session {sessionId, nonce, deviceId}          (Bearer)
//	    Claim a PENDING session for a device.
//
//	GET /session/{id}/status, GET /session/{id}                (Bearer)
//	    Return the session status.
//
//	GET /actions?deviceId=...
//	    Return every action queued for the device, oldest first.
//
//	POST /keygen_done, POST /sign_done
//	    Record keygen and sign completion; the matching action becomes DONE.
//
//	GET /keygen/{sessionId}
//	    Return the keygen record of a completed pairing.
//
//	POST /dev/sessions
//	    Create a pairing session and return its QR payload.
//
//	POST /dev/actions {deviceId, type, keyId?, msgHash?}
//	    Queue a KEYGEN or SIGN action for a device.
//
// Behaviour
//
//   - All state is held in memory and lost on process exit.
//   - Sessions expire five minutes after creation.
//   - The default listen address is :8080.
package main
