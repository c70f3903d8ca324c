// Package events decouples request handling from background work.
//
// Services emit a TaskRequestEvent without knowing which handlers process
// it; the task package registers a handler that turns week prefetch events
// into queued tasks. This keeps the service layer free of any dependency on
// the worker pool.
package events
