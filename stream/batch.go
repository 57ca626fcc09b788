package stream

// Batch collects several per-record actions against one source so that
// they can all be run in a single pass with Run.
type Batch[T any] struct {
	src   Stream[T]
	fills []func(T)
	done  bool
}

// NewBatch books actions against src.
func NewBatch[T any](src Stream[T]) *Batch[T] {
	return &Batch[T]{src: src}
}

// Add books fn to be called for every record at Run time.
func (b *Batch[T]) Add(fn func(T)) {
	b.fills = append(b.fills, fn)
}

// Len returns the number of booked actions.
func (b *Batch[T]) Len() int {
	return len(b.fills)
}

// Run walks the source once, feeding every record to every booked action.
// A Batch runs at most once; later calls are no-ops.
func (b *Batch[T]) Run() error {
	if b.done || len(b.fills) == 0 {
		return nil
	}
	b.done = true
	return b.src.Each(func(t T) error {
		for _, fill := range b.fills {
			fill(t)
		}
		return nil
	})
}
