// Package logging provides opt-in file-based structured logging with
// rotation for the knowledge-index core. When the --debug flag is set,
// comprehensive logs are written to ~/.knowledge-index/logs/ for
// debugging and troubleshooting.
//
// By default (without --debug), logging is minimal and goes to stderr only.
package logging
