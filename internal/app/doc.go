// Package app loads configuration and builds the dependency graph for the
// CLI: stores, transport, session machinery, and dispatch construction.
package app
