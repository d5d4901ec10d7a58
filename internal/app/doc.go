// Package app wires application dependencies for the CLI.
//
// It loads Config from flags, environment (COSIGNER_*) and an optional
// config.yaml in the home directory, builds the root logger, and constructs
// the store, orchestrator client, key operations and services, exposing them
// via the Wire struct for commands to use.
package app
