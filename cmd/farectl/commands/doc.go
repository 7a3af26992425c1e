// Package commands holds the farectl cobra command tree.
//
// Commands:
//   - dump: read a card over a remote reader, a trace or a saved dump
//   - decode, identify: run the format registry over a saved dump
//   - formats: list registered formats in precedence order
//   - serve: HTTP decode service
//   - relay: expose a simulated card as a remote reader
//   - config init: write a default farectl.toml
package commands
