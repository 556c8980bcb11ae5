// Package cards builds Google Workspace add-on cards (Cards v2 JSON) and
// the render actions that carry them back to the host.
//
// Builders are pure: they take plain data and return values. Every button
// carries a "screen" parameter naming the card it sits on, which the
// action router uses to pick the navigation operation.
package cards
