// Package orchestrator provides the HTTP implementation of
// domain.OrchestratorClient.
//
// The orchestrator coordinates pairing sessions between a browser and this
// device, and hands the device KEYGEN and SIGN actions to fulfil. Supported
// operations:
//   - Authenticating the phone with an identity token (bearer session).
//   - Claiming a pairing session and reading its status.
//   - Fetching pending actions for a device.
//   - Reporting keygen and sign completion.
//
// All requests are JSON over HTTP and accept a context for cancellation and
// deadlines. Transport failures are returned as *NetworkError; non-2xx or
// rejected responses as *ProtocolError carrying the server's reason.
package orchestrator
