package calratio

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/decibelcooper/calratio/jets"
	"github.com/decibelcooper/calratio/samples"
)

// Context carries what every command needs to turn sample names into
// jets. It replaces package level state: build one per run.
type Context struct {
	Catalog  *samples.Catalog
	Resolver samples.Resolver

	// NFiles is the base number of files per dataset, 0 for all.
	NFiles  int
	Timeout time.Duration
	Cuts    jets.Cuts
	Full    bool

	Log *zap.Logger
	// FetchLog gets the per dataset resolution messages.
	FetchLog *zap.Logger
}

// NewContext loads the sample catalog and sets up a resolver over the
// local data mirror.
func NewContext(o CommonOptions, log *zap.Logger) (*Context, error) {
	if log == nil {
		log = zap.NewNop()
	}

	path := o.Catalog
	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, "getting working directory")
		}
		if path, err = samples.LocateCatalog(wd); err != nil {
			return nil, err
		}
	}
	cat, err := samples.LoadCatalog(path)
	if err != nil {
		return nil, err
	}
	log.Info("loaded sample catalog", zap.String("path", path), zap.Int("samples", len(cat.All())))

	fetchLog := zap.NewNop()
	if o.VerboseFileFetch {
		fetchLog = log
	}
	return &Context{
		Catalog:  cat,
		Resolver: samples.DirResolver{Root: o.DataDir},
		NFiles:   o.NFiles(),
		Timeout:  o.FetchTimeout,
		Cuts:     o.Cuts(),
		Full:     o.UseFullDataset,
		Log:      log,
		FetchLog: fetchLog,
	}, nil
}

// files scales the base file count; all files stays all files.
func (c *Context) files(mult int) int {
	return c.NFiles * mult
}

// Fetch resolves the files of every sample in ms, keyed by sample name.
func (c *Context) Fetch(ctx context.Context, ms []samples.MetaData, nFiles int) (map[string][]string, error) {
	names := make([]string, len(ms))
	for i, m := range ms {
		names[i] = m.Name
	}
	return samples.FetchAll(ctx, c.Resolver, names, nFiles, c.Timeout, c.FetchLog)
}

// Close closes c and, unless *err already holds an error, reports a
// failure there. Use it deferred with a named error return so an output
// file that fails to flush still fails the run.
func Close(c io.Closer, name string, err *error) {
	if cerr := c.Close(); cerr != nil && *err == nil {
		*err = errors.Wrapf(cerr, "closing %s", name)
	}
}
