// Package testutils provides shared fixtures for tests across the module.
//
// It contains:
//  1. A valid athlete profile and generation requests built from it
//  2. Well-formed model responses for every operation
//  3. An in-memory slog.Handler for asserting on log output
//
// Example:
//
//	provider := mocks.NewMockProviderWithText(testutils.BundleJSON)
//	req := testutils.Request(domain.OperationBundle, 0)
package testutils
