// Package commands defines the courier CLI: local identity bootstrap,
// message dispatch, device inspection, and credential maintenance.
package commands
