// Package server runs the inboxdraft HTTP listeners.
//
// ServerContext holds the process-wide dependencies: the assistant, the
// optional summary cache, metrics and the audit logger. It is shared by the
// add-on backend and the MCP tools.
//
// AddonServer serves the add-on actions under /actions/ together with the
// Kubernetes health endpoints (/healthz, /readyz, /healthz/detailed).
// Plain HTTP is accepted only when the public base URL is a loopback
// address; otherwise the server expects HTTPS, either terminated here with
// a certificate and key or by a proxy in front of it.
//
// MetricsServer exposes Prometheus metrics on a separate port.
package server
