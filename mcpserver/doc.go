// Package mcpserver exposes codepad to MCP clients.
//
// Two tools are registered with mark3labs/mcp-go: list_languages returns
// the cached language catalog with each entry's editor mode, and run_code
// runs source through the execution client and returns the text the
// output pane would show. The server speaks stdio or streamable HTTP as
// configured by server.transport.
//
// Usage:
//
//	server, err := mcpserver.New(cfg, logger, reg, mapper, runner)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = server.ServeStdio() // or server.ServeHTTP()
package mcpserver
