// Package logger builds the zap logger shared by every codepad component.
//
// Two modes are supported: "production" writes JSON with ISO8601
// timestamps, "development" writes coloured console output.
//
// Usage:
//
//	logger, err := logger.New("production", "info")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	logger.Info("registry loaded", zap.Int("languages", n))
package logger
