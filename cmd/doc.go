// Package cmd implements the command-line interface for inboxdraft.
//
// This package provides the following commands:
//   - serve: Run the Gmail add-on HTTP backend
//   - mcp: Serve the assistant tasks as MCP tools over stdio
//   - try: Run one assistant task on text read from stdin
//   - manifest: Print the add-on deployment descriptor
//   - generate-docs: Generate markdown documentation for all MCP tools
//   - version: Display version information
//
// All commands read the same configuration: defaults, the YAML file named by
// --config, INBOXDRAFT_* environment variables and finally flags.
package cmd
