// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bake

import (
	"fmt"

	"fortio.org/safecast"
)

// u32 narrows a count or offset to the 32 bits used on disk. A value
// that does not fit is an invariant violation.
func u32[T int | uint64](v T) uint32 {
	out, err := safecast.Conv[uint32](v)
	if err != nil {
		panic(fmt.Errorf("bake: %w", err))
	}
	return out
}
