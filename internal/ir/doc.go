// Package ir provides the record and value types shared by every recordsim
// package.
//
// This package contains type definitions and pure helpers only. All other
// internal packages import ir; ir imports nothing internal. This keeps the
// data model the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Value is a sealed interface: only the kinds declared in value.go exist
//   - Attribute names are case-insensitive; values compare case-sensitively
//   - Records handed across package boundaries are clones, never shared
//   - No reflection: conversions are explicit type switches
package ir
