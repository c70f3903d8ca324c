// Package service contains the coaching use cases: training, nutrition,
// sleep, chat and bundle generation, plus background week prefetch.
//
// Every operation follows the same path:
//
//  1. render the base prompt for the request
//  2. fetch the request fingerprint through a flight.Coordinator, so
//     concurrent identical requests share one generation and fresh results
//     come from the cache
//  3. the owning caller runs the retry.Generate loop under the operation
//     deadline
//  4. a timeout, exhausted attempts or a failing provider is absorbed by
//     serving deterministic fallback data, which is never cached
//
// The service layer depends on the generation boundary and the domain
// payloads, never on a concrete provider.
package service
