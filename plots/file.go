package plots

import (
	"strings"

	"github.com/pkg/errors"
	"go-hep.org/x/hep/groot"
	"go-hep.org/x/hep/groot/rhist"
	"go-hep.org/x/hep/groot/riofs"
	"go-hep.org/x/hep/hbook"
	"gonum.org/v1/plot/plotter"
)

// File is a ROOT output file holding histograms in named directories. It is
// owned by a single command for its lifetime.
type File struct {
	f    *riofs.File
	dirs map[string]riofs.Directory
}

// Create truncates or creates the ROOT file at path.
func Create(path string) (*File, error) {
	f, err := groot.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, "creating %s", path)
	}
	return &File{f: f, dirs: map[string]riofs.Directory{"": f}}, nil
}

// ROOT gives access to the underlying file, e.g. to write trees.
func (f *File) ROOT() *riofs.File {
	return f.f
}

// Dir returns the directory at the slash separated path, making it and
// its parents as needed. The empty path is the top of the file.
func (f *File) Dir(path string) (riofs.Directory, error) {
	path = strings.Trim(path, "/")
	if d, ok := f.dirs[path]; ok {
		return d, nil
	}

	parent, name := "", path
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		parent, name = path[:i], path[i+1:]
	}
	pd, err := f.Dir(parent)
	if err != nil {
		return nil, err
	}
	d, err := pd.Mkdir(name)
	if err != nil {
		return nil, errors.Wrapf(err, "making directory %s", path)
	}
	f.dirs[path] = d
	return d, nil
}

// Save writes h into dir under its annotated name.
func (f *File) Save(dir string, hs ...*hbook.H1D) error {
	d, err := f.Dir(dir)
	if err != nil {
		return err
	}
	for _, h := range hs {
		name := h.Name()
		if name == "" {
			return errors.Errorf("unnamed histogram in %s", dir)
		}
		if err := d.Put(name, rhist.NewH1DFrom(h)); err != nil {
			return errors.Wrapf(err, "saving %s/%s", dir, name)
		}
	}
	return nil
}

// SaveCurve writes xys into dir as a graph called name.
func (f *File) SaveCurve(dir, name, title string, xys plotter.XYs) error {
	d, err := f.Dir(dir)
	if err != nil {
		return err
	}
	pts := make([]hbook.Point2D, len(xys))
	for i, p := range xys {
		pts[i] = hbook.Point2D{X: p.X, Y: p.Y}
	}
	s2 := hbook.NewS2D(pts...)
	s2.Annotation()["name"] = name
	s2.Annotation()["title"] = title
	if err := d.Put(name, rhist.NewGraphFrom(s2)); err != nil {
		return errors.Wrapf(err, "saving %s/%s", dir, name)
	}
	return nil
}

// Close flushes and closes the file.
func (f *File) Close() error {
	return f.f.Close()
}
