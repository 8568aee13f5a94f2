// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package intern

import (
	"strings"

	"golang.org/x/exp/slices"
)

// FNV-1a parameters. Slot hashes only need to be deterministic across
// runs; they are never written out.
const (
	fnvOffset = 14695981039346656037
	fnvPrime  = 1099511628211
)

// Strings is the Key for string values.
type Strings struct{}

func (Strings) Hash(s string) uint64 {
	h := uint64(fnvOffset)
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= fnvPrime
	}
	return h
}

func (Strings) Compare(a, b string) int {
	return strings.Compare(a, b)
}

// Runs is the Key for runs of indexes. A nil run and an empty run are
// the same value.
type Runs struct{}

func (Runs) Hash(r []uint32) uint64 {
	h := uint64(fnvOffset)
	for _, x := range r {
		for i := 0; i < 4; i++ {
			h ^= uint64(byte(x >> (8 * i)))
			h *= fnvPrime
		}
	}
	return h
}

func (Runs) Compare(a, b []uint32) int {
	return slices.Compare(a, b)
}
