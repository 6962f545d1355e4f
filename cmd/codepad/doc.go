// Package main is the entry point for codepad.
//
// codepad is a small code playground backed by the Piston execution API.
// It fetches the list of supported languages once at startup, lets the user
// pick one, edit source in a Monaco-style editor and run it remotely, then
// shows stdout (or stderr when stdout is empty) in an output pane.
//
// Subcommands:
//
//	codepad serve    browser playground on web.port
//	codepad mcp      MCP server (stdio or HTTP, per server.transport)
//	codepad repl     terminal playground driven by the same view loop
//	codepad config   print the effective configuration as YAML
//
// Wiring uses Uber's fx for dependency injection and lifecycle, zap for
// structured logging and viper for configuration.
package main
