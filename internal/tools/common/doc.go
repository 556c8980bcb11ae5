// Package common holds helpers shared by the MCP tool packages: argument
// accessors and the instrumentation wrapper every tool is registered with.
package common
