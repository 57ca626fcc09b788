package samples

import (
	"math"

	"github.com/pkg/errors"

	"github.com/decibelcooper/calratio/stream"
)

// ErrNoSources means a sample builder was handed nothing to build from.
var ErrNoSources = errors.New("no sample sources requested")

// Scalable records can have their weight rescaled.
type Scalable[T any] interface {
	ScaleWeight(f float64) T
}

// Source is one named, weighted stream of records.
type Source[T any] struct {
	Name         string
	CrossSection float64
	Events       stream.Stream[T]
}

// EvenOptions tunes TakeEvenly.
type EvenOptions struct {
	// MaxSources keeps only the first MaxSources sources. Zero keeps all.
	MaxSources int
	// WeightByCrossSection scales every record by its source's cross
	// section.
	WeightByCrossSection bool
}

// TakeEvenly splits total evenly across sources and concatenates each
// source truncated to its share. A short source gives what it has; the
// missing records are not made up by the others.
func TakeEvenly[T Scalable[T]](sources []Source[T], total int, opts EvenOptions) (stream.Stream[T], error) {
	if opts.MaxSources > 0 && len(sources) > opts.MaxSources {
		sources = sources[:opts.MaxSources]
	}
	if len(sources) == 0 {
		return nil, ErrNoSources
	}

	share := total / len(sources)
	parts := make([]stream.Stream[T], 0, len(sources))
	for _, s := range sources {
		part := stream.Take(s.Events, share)
		if opts.WeightByCrossSection {
			xsec := s.CrossSection
			part = stream.Map(part, func(t T) T { return t.ScaleWeight(xsec) })
		}
		parts = append(parts, part)
	}
	return stream.Concat(parts...), nil
}

// TakeProportionally takes the same fraction of every source so that the
// result holds about total records. Every source is counted first.
func TakeProportionally[T any](sources []Source[T], total int) (stream.Stream[T], error) {
	if len(sources) == 0 {
		return nil, ErrNoSources
	}

	counts := make([]int, len(sources))
	sum := 0
	for i, s := range sources {
		n, err := stream.Count(s.Events)
		if err != nil {
			return nil, errors.Wrapf(err, "counting %s", s.Name)
		}
		counts[i] = n
		sum += n
	}
	if sum == 0 {
		return stream.Empty[T](), nil
	}

	frac := math.Min(1, float64(total)/float64(sum))
	parts := make([]stream.Stream[T], len(sources))
	for i, s := range sources {
		parts[i] = stream.Take(s.Events, int(float64(counts[i])*frac))
	}
	return stream.Concat(parts...), nil
}
