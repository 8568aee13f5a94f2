// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package chunk implements append-only lists made of fixed-capacity
// segments.
//
// Elements never move once pushed, so pointers returned by Push stay
// valid for the life of the list. Lists can be concatenated in O(1)
// and partitioned into spans for parallel iteration.
package chunk

// DefaultCap is the segment capacity used by a zero List.
const DefaultCap = 1024

// List is a chunked list of T. The zero value is an empty list with
// segments of DefaultCap elements.
type List[T any] struct {
	// Cap is the capacity of newly allocated segments. It may be set
	// before the first Push.
	Cap int

	first, last *segment[T]
	count       int
}

type segment[T any] struct {
	v    []T // len(v) is the segment's count, cap(v) its capacity
	next *segment[T]
}

// Len returns the total number of elements in l.
func (l *List[T]) Len() int {
	if l == nil {
		return 0
	}
	return l.count
}

// Push appends a zero T to l and returns a pointer to it.
func (l *List[T]) Push() *T {
	if l.last == nil || len(l.last.v) == cap(l.last.v) {
		c := l.Cap
		if c <= 0 {
			c = DefaultCap
		}
		s := &segment[T]{v: make([]T, 0, c)}
		if l.last == nil {
			l.first = s
		} else {
			l.last.next = s
		}
		l.last = s
	}
	l.last.v = l.last.v[:len(l.last.v)+1]
	l.count++
	return &l.last.v[len(l.last.v)-1]
}

// Append appends v to l.
func (l *List[T]) Append(v T) {
	*l.Push() = v
}

// Concat moves all of src's segments onto the end of l and leaves src
// empty. Partially filled segments are kept as they are.
func (l *List[T]) Concat(src *List[T]) {
	if src == nil || src.first == nil {
		return
	}
	if l.last == nil {
		l.first = src.first
	} else {
		l.last.next = src.first
	}
	l.last = src.last
	l.count += src.count
	src.first, src.last, src.count = nil, nil, 0
}

// Segments calls fn with the contents of each segment of l in order.
// fn must not retain or append to the slices.
func (l *List[T]) Segments(fn func(seg []T)) {
	if l == nil {
		return
	}
	for s := l.first; s != nil; s = s.next {
		if len(s.v) > 0 {
			fn(s.v)
		}
	}
}

// Each calls fn with a pointer to every element of l in order.
func (l *List[T]) Each(fn func(v *T)) {
	l.Segments(func(seg []T) {
		for i := range seg {
			fn(&seg[i])
		}
	})
}

// At returns a pointer to the i'th element of l. It walks the
// segments, so it is meant for tests and sparse lookups.
func (l *List[T]) At(i int) *T {
	if i < 0 || i >= l.Len() {
		panic("chunk: index out of range")
	}
	for s := l.first; s != nil; s = s.next {
		if i < len(s.v) {
			return &s.v[i]
		}
		i -= len(s.v)
	}
	panic("chunk: corrupt list")
}

// Slice returns a copy of l's elements as one slice.
func (l *List[T]) Slice() []T {
	out := make([]T, 0, l.Len())
	l.Segments(func(seg []T) {
		out = append(out, seg...)
	})
	return out
}

// A Span is a contiguous run of a List's elements, possibly crossing
// segment boundaries. Its Parts alias the list's storage.
type Span[T any] struct {
	First int // Index in the list of the first element
	Parts [][]T
}

// Len returns the number of elements in s.
func (s Span[T]) Len() int {
	n := 0
	for _, p := range s.Parts {
		n += len(p)
	}
	return n
}

// Spans partitions l into spans of at most per elements each.
func (l *List[T]) Spans(per int) []Span[T] {
	if per <= 0 {
		panic("chunk: non-positive span size")
	}
	var out []Span[T]
	var cur Span[T]
	left := per
	pos := 0
	l.Segments(func(seg []T) {
		for len(seg) > 0 {
			n := min(left, len(seg))
			cur.Parts = append(cur.Parts, seg[:n])
			seg = seg[n:]
			left -= n
			pos += n
			if left == 0 {
				out = append(out, cur)
				cur = Span[T]{First: pos}
				left = per
			}
		}
	})
	if len(cur.Parts) > 0 {
		out = append(out, cur)
	}
	return out
}
