package orders

type Page[T any] struct {
	Items []T
	Index int // zero-based, after clamping
	Count int // number of pages, at least 1
	Total int // number of items across all pages
}

func (p Page[T]) HasPrev() bool { return p.Index > 0 }
func (p Page[T]) HasNext() bool { return p.Index < p.Count-1 }

// Paginate slices items into pages of size and returns page index,
// clamped into [0, last page].
func Paginate[T any](items []T, size, index int) Page[T] {
	if size <= 0 {
		size = 1
	}
	count := (len(items) + size - 1) / size
	if count == 0 {
		count = 1
	}
	if index >= count {
		index = count - 1
	}
	if index < 0 {
		index = 0
	}
	start := index * size
	end := min(start+size, len(items))
	return Page[T]{
		Items: items[start:end],
		Index: index,
		Count: count,
		Total: len(items),
	}
}
