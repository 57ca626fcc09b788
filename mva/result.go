package mva

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Result points at the artifacts of a training.
type Result[T any] struct {
	JobName     string
	Dir         string
	OutputFile  string
	HashFile    string
	SummaryFile string
	Methods     []*Method[T]

	// Skipped is set when the outputs of an identical earlier run were
	// reused.
	Skipped bool
}

// Method returns the booked method called name.
func (r *Result[T]) Method(name string) (*Method[T], bool) {
	for _, m := range r.Methods {
		if m.Name == name {
			return m, true
		}
	}
	return nil, false
}

// CopyToJobName copies the training file and the weight files to names
// without the hash: <name>.training.root and <name>_<method>.weights.xml
// inside dir.
func (r *Result[T]) CopyToJobName(name, dir string) error {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "creating %s", dir)
	}
	if err := copyFile(r.OutputFile, filepath.Join(dir, name+".training.root")); err != nil {
		return err
	}
	for _, m := range r.Methods {
		if err := copyFile(m.WeightFile(), filepath.Join(dir, name+"_"+m.Name+".weights.xml")); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.Wrapf(err, "opening %s", src)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return errors.Wrapf(err, "creating %s", dst)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return errors.Wrapf(err, "copying %s to %s", src, dst)
	}
	return out.Close()
}
