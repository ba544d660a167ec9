// Package cmd implements the command-line interface for the larch
// key-value server.
//
// The package is organized into two subpackages:
//
//   - serve: Commands for starting and configuring the larch server
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See larch -help for a list of all commands.
package cmd
