package core

import "fmt"

// Partition splits the inclusive frame range [start, end] into count
// contiguous chunks whose sizes differ by at most one, with the leading
// total%count chunks carrying the extra frame. When count exceeds the
// number of frames it is clamped to the frame total, so chunks are never
// empty and callers may get back fewer chunks than requested.
func Partition(count, start, end int) ([]Chunk, error) {
	if count < 1 {
		return nil, fmt.Errorf("chunk count must be at least 1, got %d", count)
	}
	if start > end {
		return nil, fmt.Errorf("inverted frame range: start %d > end %d", start, end)
	}

	total := end - start + 1
	if count > total {
		count = total
	}

	base := total / count
	extra := total % count

	chunks := make([]Chunk, 0, count)
	next := start
	for i := 0; i < count; i++ {
		size := base
		if i < extra {
			size++
		}
		chunks = append(chunks, Chunk{Start: next, End: next + size - 1})
		next += size
	}
	return chunks, nil
}
