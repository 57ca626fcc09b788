package samples

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrDatasetNotFound is returned when a resolver has no files for a dataset.
var ErrDatasetNotFound = errors.New("dataset not found")

// Resolver turns a dataset name into local file paths. nFiles limits the
// number of files returned; zero means all of them.
type Resolver interface {
	Resolve(ctx context.Context, dataset string, nFiles int) ([]string, error)
}

// DirResolver resolves datasets against a local mirror laid out as
// <Root>/<dataset>/*.root.
type DirResolver struct {
	Root string
}

func (d DirResolver) Resolve(ctx context.Context, dataset string, nFiles int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir := filepath.Join(d.Root, dataset)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrDatasetNotFound, "%s under %s", dataset, d.Root)
		}
		return nil, errors.Wrapf(err, "listing %s", dir)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".root") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	if len(files) == 0 {
		return nil, errors.Wrapf(ErrDatasetNotFound, "no files for %s under %s", dataset, d.Root)
	}
	sort.Strings(files)
	if nFiles > 0 && nFiles < len(files) {
		files = files[:nFiles]
	}
	return files, nil
}

// FetchAll resolves all datasets concurrently. Every resolution gets its own
// timeout; the call returns once all of them are done or one failed.
func FetchAll(ctx context.Context, r Resolver, datasets []string, nFiles int, timeout time.Duration, log *zap.Logger) (map[string][]string, error) {
	if log == nil {
		log = zap.NewNop()
	}

	var mu sync.Mutex
	out := make(map[string][]string, len(datasets))

	g, ctx := errgroup.WithContext(ctx)
	for _, ds := range datasets {
		ds := ds
		g.Go(func() error {
			fctx := ctx
			if timeout > 0 {
				var cancel context.CancelFunc
				fctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			start := time.Now()
			files, err := r.Resolve(fctx, ds, nFiles)
			if err != nil {
				return errors.Wrapf(err, "fetching %s", ds)
			}
			log.Debug("dataset resolved",
				zap.String("dataset", ds),
				zap.String("files", humanize.Comma(int64(len(files)))),
				zap.Duration("took", time.Since(start)),
			)

			mu.Lock()
			out[ds] = files
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
