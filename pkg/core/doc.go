// Package core defines the shared language of the vrpipe system.
//
// This package contains:
//   - Domain entities (Employee, Fingerprint, Run, Period)
//   - The Store interface implemented by internal/state
//
// The Golden Rule: pkg/core imports ONLY the stdlib.
// All other packages depend on core, not the reverse.
package core
