// Package task runs background work off the request path. Its only job today
// is week prefetch: after a bundle for week N is served, a task generates
// week N+1 so the result is already in the request coordinator's cache when
// the user asks for it.
package task
