// Package testutil provides utilities for testing histofy components.
//
// Key components:
//   - TestRepo: an in-memory git repository built on go-git's memory
//     storage, pre-wired to the real Repository backend
//   - FakeGit: a scriptable Git implementation that delegates to a real
//     repository unless a method is overridden, used to inject conflicts
//     and failures the real backend cannot produce
//   - TempPaths: isolated config/state directories via environment
//     variables
//
// Usage guidelines:
//   - Prefer TestRepo with the real backend; reach for FakeGit only when
//     a test needs a failure the object store cannot express
//   - All test data should be defined inline, not in external files
//   - Each test should be completely isolated with no shared state
package testutil
