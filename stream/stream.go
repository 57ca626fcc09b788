// Package stream provides lazy, re-iterable record sequences.
//
// Nothing is read until Each is called, and every call to Each walks the
// underlying source again from the start. Operations that need two looks
// at the data (reweighting, counting before sampling) rely on that.
package stream

import "errors"

// Stream is a re-iterable sequence of records.
type Stream[T any] interface {
	// Each calls fn for every record in order. A non-nil error from fn
	// stops the iteration and is returned, except for Stop.
	Each(fn func(T) error) error
}

// Stop may be returned by an Each callback to end iteration early
// without reporting an error.
var Stop = errors.New("stream: stop")

// Func adapts an iteration function to a Stream.
type Func[T any] func(fn func(T) error) error

func (f Func[T]) Each(fn func(T) error) error {
	err := f(fn)
	if err == Stop {
		return nil
	}
	return err
}

// Slice returns a stream over an in-memory slice.
func Slice[T any](items []T) Stream[T] {
	return Func[T](func(fn func(T) error) error {
		for _, it := range items {
			if err := fn(it); err != nil {
				return err
			}
		}
		return nil
	})
}

// Empty returns a stream with no records.
func Empty[T any]() Stream[T] {
	return Func[T](func(func(T) error) error { return nil })
}

// Concat joins streams one after the other. Nil streams are skipped.
func Concat[T any](srcs ...Stream[T]) Stream[T] {
	return Func[T](func(fn func(T) error) error {
		stopped := false
		track := func(t T) error {
			err := fn(t)
			if err == Stop {
				stopped = true
			}
			return err
		}
		for _, src := range srcs {
			if src == nil {
				continue
			}
			if err := src.Each(track); err != nil {
				return err
			}
			if stopped {
				return Stop
			}
		}
		return nil
	})
}

// Take yields at most n records from src. A negative n means no limit.
func Take[T any](src Stream[T], n int) Stream[T] {
	if n < 0 {
		return src
	}
	return Func[T](func(fn func(T) error) error {
		if n == 0 {
			return nil
		}
		seen := 0
		return src.Each(func(t T) error {
			if err := fn(t); err != nil {
				return err
			}
			seen++
			if seen >= n {
				return Stop
			}
			return nil
		})
	})
}

// Filter yields the records for which keep returns true.
func Filter[T any](src Stream[T], keep func(T) bool) Stream[T] {
	return Func[T](func(fn func(T) error) error {
		return src.Each(func(t T) error {
			if !keep(t) {
				return nil
			}
			return fn(t)
		})
	})
}

// Map converts every record of src.
func Map[T, U any](src Stream[T], conv func(T) U) Stream[U] {
	return Func[U](func(fn func(U) error) error {
		return src.Each(func(t T) error {
			return fn(conv(t))
		})
	})
}

// FlatMap expands every record of src into zero or more records.
func FlatMap[T, U any](src Stream[T], expand func(T) []U) Stream[U] {
	return Func[U](func(fn func(U) error) error {
		return src.Each(func(t T) error {
			for _, u := range expand(t) {
				if err := fn(u); err != nil {
					return err
				}
			}
			return nil
		})
	})
}

// Count walks src once and returns the number of records.
func Count[T any](src Stream[T]) (int, error) {
	n := 0
	err := src.Each(func(T) error {
		n++
		return nil
	})
	return n, err
}

// Collect materializes src into a slice.
func Collect[T any](src Stream[T]) ([]T, error) {
	var out []T
	err := src.Each(func(t T) error {
		out = append(out, t)
		return nil
	})
	return out, err
}
