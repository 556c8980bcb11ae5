// Package resources provides read-only MCP resources describing the running
// assistant: its model backend, the summary cache and the reply template.
package resources
