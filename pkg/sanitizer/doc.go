// Package sanitizer normalizes user supplied values before validation and
// storage.
//
// All functions are idempotent. Invalid input is not rejected here; it is
// normalized as far as possible and left for validation to reject.
package sanitizer
