// Package api exposes the coaching operations over HTTP. It decodes and
// validates JSON requests, calls the plan service, and writes the
// {source, attempts, fixes, payload} envelope. Internal errors are mapped to
// status codes and safe messages; detail only reaches the redacted logs.
package api
