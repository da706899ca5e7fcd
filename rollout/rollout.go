// Package rollout provides deterministic identity bucketing for flag rollouts
// and experiment traffic allocation.
//
// Bucketing must be reproducible bit-for-bit across SDK languages: a user that
// lands in bucket 42 through this SDK must land in bucket 42 through every
// other Flagship SDK, or traffic splits drift between platforms. The hash is
// therefore pinned to CRC-32 (IEEE polynomial) of the UTF-8 encoded seed
// string, interpreted as a signed 32-bit integer, absolute value, modulo 100.
package rollout

import (
	"hash/crc32"
)

// Bucket returns a deterministic bucket (0-99) for the given identity and key.
// The same identity + key combination always returns the same bucket, across
// process restarts and across SDK implementations.
// Returns -1 for an empty identity (no identity means no bucketing).
func Bucket(identity, key string) int {
	if identity == "" {
		return -1 // Invalid: no identity context
	}
	seed := identity + ":" + key
	sum := crc32.ChecksumIEEE([]byte(seed))
	// Widen before negating: abs(MinInt32) does not fit in int32.
	v := int64(int32(sum))
	if v < 0 {
		v = -v
	}
	return int(v % 100)
}

// InRollout reports whether an identity falls inside the first `percentage`
// buckets for the given key.
//
// Special cases:
//   - percentage <= 0: always false
//   - percentage >= 100: always true
//   - identity == "": always false (no identity context)
func InRollout(identity, key string, percentage int) bool {
	if percentage <= 0 {
		return false
	}
	if percentage >= 100 {
		return true
	}
	b := Bucket(identity, key)
	if b < 0 {
		return false
	}
	return b < percentage
}
