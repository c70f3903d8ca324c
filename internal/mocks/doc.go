// Package mocks provides centralized mock implementations for testing.
//
// Instead of defining inline fakes in individual test files, packages that
// depend on a generation.Provider share the MockProvider defined here. It can
// answer with a fixed text or error, with a scripted sequence of responses, or
// through a custom function, and it records every prompt it receives.
//
// Usage:
//
//	import "github.com/phrazzld/coach-api/internal/mocks"
//
//	func TestSomething(t *testing.T) {
//	    provider := mocks.NewScriptedMockProvider("not json", `{"messages":["ok"]}`)
//
//	    // Use the provider in your test, then inspect provider.Prompts()
//	}
package mocks
