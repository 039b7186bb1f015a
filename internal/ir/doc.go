// Package ir defines the value types carried by element properties.
//
// This package contains value definitions only. Every other internal package
// imports ir; ir imports nothing internal.
//
// Key design constraints:
//   - NO float types anywhere - use int64 for numbers
//   - Property values are plain data: no functions, no pointers, no cycles
//   - Equality is structural (Equal), never pointer identity
//   - Canonical JSON (RFC 8785) is the only encoding used for hashing
package ir
