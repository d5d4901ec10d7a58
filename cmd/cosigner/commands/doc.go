// Package commands defines the cosigner CLI and wires dependencies for subcommands.
//
// Commands
//
//   - device-id       Print (creating if needed) this device's identifier
//   - pair            Run the pairing flow on a scanned payload
//   - poll            Fetch and fulfil orchestrator actions until interrupted
//   - keygen          Create a local demo key share
//   - sign            Sign a message hash with a stored share
//   - session-status  Print a pairing session's status
//
// # Implementation
//
// The root command loads configuration (flags, COSIGNER_* environment,
// <home>/config.yaml), builds the logger and the dependency graph before any
// subcommand runs, and closes the key store afterwards.
package commands
