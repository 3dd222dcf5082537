// Package logger provides structured logging for fixturekit using zerolog.
//
// Loggers are component-scoped; the fixture engine, every processor and the
// test application each log under their own component name.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "console"
//
// # Usage
//
//	log := logger.New(&settings.Logging, settings.Name).WithComponent("fixture")
//	log.Warn("unknown fixture kind", logger.Fields("kind", "widgets"))
package logger
