package mva

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	spooky "github.com/dgryski/go-spooky"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/decibelcooper/calratio/bdt"
	"github.com/decibelcooper/calratio/stream"
)

type sample[T any] struct {
	class, title string
	events       stream.Stream[T]
	isTraining   func(T) bool
}

// Training collects the classes, variables and methods of one classifier
// training. It can be run once.
type Training[T any] struct {
	dir string
	log *zap.Logger

	samples    []sample[T]
	columns    []Column[T]
	weight     func(T) float64
	weightName string
	methods    []*Method[T]

	state   State
	ran     bool
	jobName string
}

// NewTraining sets up a training writing its outputs under dir.
func NewTraining[T any](dir string, log *zap.Logger) *Training[T] {
	if log == nil {
		log = zap.NewNop()
	}
	if dir == "" {
		dir = "."
	}
	return &Training[T]{dir: dir, log: log}
}

// AddClass adds a sample to class. isTraining picks the records used to
// train; the others are used to test. A nil isTraining trains on all.
func (t *Training[T]) AddClass(class string, events stream.Stream[T], isTraining func(T) bool, title string) *Training[T] {
	t.samples = append(t.samples, sample[T]{class: class, title: title, events: events, isTraining: isTraining})
	return t
}

// Signal adds a sample to the Signal class.
func (t *Training[T]) Signal(events stream.Stream[T], isTraining func(T) bool, title string) *Training[T] {
	return t.AddClass(SignalClass, events, isTraining, title)
}

// Background adds a sample to the Background class.
func (t *Training[T]) Background(events stream.Stream[T], isTraining func(T) bool, title string) *Training[T] {
	return t.AddClass(BackgroundClass, events, isTraining, title)
}

// UseVariables adds training inputs. A name already in use is ignored.
func (t *Training[T]) UseVariables(cols ...Column[T]) *Training[T] {
	for _, c := range cols {
		dup := false
		for _, have := range t.columns {
			if have.Name == c.Name {
				dup = true
				break
			}
		}
		if !dup {
			t.columns = append(t.columns, c)
		}
	}
	return t
}

// SetWeight sets the per-record event weight. Without it every record
// counts once.
func (t *Training[T]) SetWeight(name string, fn func(T) float64) *Training[T] {
	t.weightName, t.weight = name, fn
	return t
}

// AddMethod books a classifier. options is a colon separated list as taken
// by Method.Option.
func (t *Training[T]) AddMethod(kind Kind, name, options string) *Method[T] {
	m := &Method[T]{Kind: kind, Name: name, training: t}
	for _, o := range strings.Split(options, ":") {
		if o = strings.TrimSpace(o); o != "" {
			m.options = append(m.options, o)
		}
	}
	t.methods = append(t.methods, m)
	return m
}

// State is how far the training got.
func (t *Training[T]) State() State {
	return t.state
}

// JobName is the hashed job name, set once Train got far enough.
func (t *Training[T]) JobName() string {
	return t.jobName
}

func (t *Training[T]) classNames() []string {
	var out []string
	seen := map[string]bool{}
	for _, s := range t.samples {
		if !seen[s.class] {
			seen[s.class] = true
			out = append(out, s.class)
		}
	}
	return out
}

// bindVariables checks the configuration and the options of every method.
func (t *Training[T]) bindVariables() ([]bdt.Options, error) {
	if len(t.columns) == 0 {
		return nil, errors.Wrap(ErrBadConfig, "no training variables")
	}
	if n := len(t.classNames()); n < 2 {
		return nil, errors.Wrapf(ErrBadConfig, "need at least two classes, have %d", n)
	}
	if len(t.methods) == 0 {
		return nil, errors.Wrap(ErrBadConfig, "no methods booked")
	}

	vars := Names(t.columns)
	opts := make([]bdt.Options, len(t.methods))
	names := map[string]bool{}
	for i, m := range t.methods {
		if m.Kind != BDT {
			return nil, errors.Wrapf(ErrBadConfig, "method %s: unsupported kind %s", m.Name, m.Kind)
		}
		if m.Name == "" || names[m.Name] {
			return nil, errors.Wrapf(ErrBadConfig, "method name %q is empty or repeated", m.Name)
		}
		names[m.Name] = true

		o, err := bdt.ParseOptions(m.ArgumentList(vars))
		if err != nil {
			return nil, errors.Wrapf(err, "method %s", m.Name)
		}
		for v := range o.VarNCuts {
			if v >= len(vars) {
				return nil, errors.Wrapf(ErrBadConfig, "method %s: option for variable %d of %d", m.Name, v, len(vars))
			}
		}
		opts[i] = o
	}
	return opts, nil
}

func checkWritable(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "output directory %s", dir)
	}
	f, err := os.CreateTemp(dir, ".calratio-*")
	if err != nil {
		return errors.Wrapf(err, "output directory %s is not writable", dir)
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

// collect walks every sample once, splitting it into training and testing
// rows, and returns the hash of the whole configuration and data.
func (t *Training[T]) collect(opts []bdt.Options) (train, test *bdt.Dataset, hash uint64, err error) {
	vars := Names(t.columns)
	classes := t.classNames()
	index := make(map[string]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}

	var cfg strings.Builder
	fmt.Fprintf(&cfg, "vars=%s;weight=%s;", strings.Join(vars, ","), t.weightName)
	for i, m := range t.methods {
		fmt.Fprintf(&cfg, "method=%s/%s/%s;", m.Name, m.Kind, opts[i])
	}
	for _, s := range t.samples {
		fmt.Fprintf(&cfg, "sample=%s/%s;", s.class, s.title)
	}
	hash = spooky.Hash64([]byte(cfg.String()))

	train, test = &bdt.Dataset{}, &bdt.Dataset{}
	buf := make([]byte, 8*(len(vars)+3))
	for _, s := range t.samples {
		class := index[s.class]
		var nTrain, nTest int
		err = s.events.Each(func(rec T) error {
			x := make([]float64, len(t.columns))
			for i, c := range t.columns {
				x[i] = c.Value(rec)
			}
			w := 1.0
			if t.weight != nil {
				w = t.weight(rec)
			}
			isTrain := s.isTraining == nil || s.isTraining(rec)
			if isTrain {
				train.Add(x, class, w)
				nTrain++
			} else {
				test.Add(x, class, w)
				nTest++
			}

			binary.LittleEndian.PutUint64(buf, hash)
			for i, v := range x {
				binary.LittleEndian.PutUint64(buf[8*(i+1):], math.Float64bits(v))
			}
			binary.LittleEndian.PutUint64(buf[8*(len(x)+1):], math.Float64bits(w))
			flag := uint64(class) << 1
			if isTrain {
				flag |= 1
			}
			binary.LittleEndian.PutUint64(buf[8*(len(x)+2):], flag)
			hash = spooky.Hash64(buf)
			return nil
		})
		if err != nil {
			return nil, nil, 0, errors.Wrapf(err, "reading %s sample %q", s.class, s.title)
		}
		t.log.Info("sample read",
			zap.String("class", s.class),
			zap.String("title", s.title),
			zap.String("train", humanize.Comma(int64(nTrain))),
			zap.String("test", humanize.Comma(int64(nTest))),
		)
	}
	return train, test, hash, nil
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}

// upToDate reports whether a previous run with the same hash left all its
// outputs behind.
func (t *Training[T]) upToDate(hash string, res *Result[T]) bool {
	b, err := os.ReadFile(res.HashFile)
	if err != nil || strings.TrimSpace(string(b)) != hash {
		return false
	}
	if !fileExists(res.OutputFile) || !fileExists(res.SummaryFile) {
		return false
	}
	for _, m := range t.methods {
		if !fileExists(m.WeightFile()) {
			return false
		}
	}
	return true
}

// Train runs the training under jobName. The outputs are named after
// jobName and a hash of the configuration and input data; if they are all
// there from an earlier identical run, nothing is redone.
func (t *Training[T]) Train(jobName string) (*Result[T], error) {
	if t.ran {
		return nil, ErrAlreadyTrained
	}
	t.ran = true

	opts, err := t.bindVariables()
	if err != nil {
		return nil, err
	}
	t.state = VariablesBound

	if err := checkWritable(t.dir); err != nil {
		return nil, err
	}
	if err := checkWritable(filepath.Join(t.dir, "weights")); err != nil {
		return nil, err
	}

	train, test, sum, err := t.collect(opts)
	if err != nil {
		return nil, err
	}
	hash := fmt.Sprintf("%016x", sum)
	t.jobName = jobName + "-" + hash

	base := filepath.Join(t.dir, t.jobName)
	res := &Result[T]{
		JobName:     t.jobName,
		Dir:         t.dir,
		OutputFile:  base + ".training.root",
		HashFile:    base + ".training.hash.txt",
		SummaryFile: base + ".summary.txt",
		Methods:     t.methods,
	}
	if t.upToDate(hash, res) {
		t.log.Info("training up to date, skipping", zap.String("job", t.jobName))
		res.Skipped = true
		t.state = Evaluated
		return res, nil
	}

	if err := t.run(res, train, test, opts); err != nil {
		return nil, errors.Wrapf(err, "training %s", t.jobName)
	}
	if err := os.WriteFile(res.HashFile, []byte(hash+"\n"), 0o644); err != nil {
		return nil, errors.Wrap(err, "writing hash file")
	}
	return res, nil
}
