// Package logging provides a simple leveled logging interface for avplay.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information (monitor polls, codec recoveries)
//   - INFO: General operational messages
//   - WARN: Warning conditions
//   - ERROR: Error conditions
//   - FATAL: Fatal errors that terminate the application
//
// The log level is configured via the LOG_LEVEL environment variable, or forced
// to debug with DEBUG=true. Components that log often use a Logger from For,
// which prefixes each line with the component name.
package logging
