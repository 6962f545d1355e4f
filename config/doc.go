// Package config provides application configuration management.
//
// The config package loads the application's configuration from a YAML
// file, environment variables prefixed with CODEPAD_ and built-in defaults,
// then validates it. It covers the MCP and web front ends, the remote
// execution API endpoints, the language registry, the editor widget and
// logging.
//
// Usage:
//
//	cfg, err := config.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Execute endpoint: %s\n", cfg.Piston.ExecuteURL)
package config
