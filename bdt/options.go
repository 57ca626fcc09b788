package bdt

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrBadOption is wrapped by every option parsing failure.
var ErrBadOption = errors.New("bad BDT option")

// Options are the knobs of the boosting. They are written and read as
// colon separated key=value strings, "!Key" meaning Key=false.
type Options struct {
	NTrees   int
	MaxDepth int
	// MinNodeSize is the smallest node, in percent of the training weight.
	MinNodeSize float64
	Shrinkage   float64
	NCuts       int
	BoostType   string

	// VarNCuts overrides NCuts for single variables, by variable index.
	VarNCuts map[int]int
}

// DefaultOptions are used for every key missing from an option string.
func DefaultOptions() Options {
	return Options{
		NTrees:      800,
		MaxDepth:    3,
		MinNodeSize: 2.5,
		Shrinkage:   0.1,
		NCuts:       20,
		BoostType:   "Grad",
	}
}

// Keys that are accepted for compatibility but change nothing here.
var ignoredKeys = map[string]bool{
	"h": true, "v": true, "silent": true, "color": true, "drawprogressbar": true,
	"ignorenegweightsintraining": true, "negweighttreatment": true,
	"separationtype": true, "createmvapdfs": true, "verbositylevel": true,
}

// ParseOptions reads an option string on top of DefaultOptions.
func ParseOptions(s string) (Options, error) {
	o := DefaultOptions()
	for _, tok := range strings.Split(s, ":") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		key, val, hasVal := strings.Cut(tok, "=")
		if !hasVal {
			val = "true"
			if strings.HasPrefix(key, "!") {
				key, val = key[1:], "false"
			}
		}
		if err := o.set(strings.TrimSpace(key), strings.TrimSpace(val)); err != nil {
			return Options{}, err
		}
	}
	return o, o.Validate()
}

func (o *Options) set(key, val string) error {
	if base, idx, ok := indexedKey(key); ok {
		if !strings.EqualFold(base, "nCuts") {
			return errors.Wrapf(ErrBadOption, "%s can't be set per variable", base)
		}
		n, err := strconv.Atoi(val)
		if err != nil {
			return errors.Wrapf(ErrBadOption, "%s=%s: %v", key, val, err)
		}
		if o.VarNCuts == nil {
			o.VarNCuts = map[int]int{}
		}
		o.VarNCuts[idx] = n
		return nil
	}

	var err error
	switch lk := strings.ToLower(key); lk {
	case "ntrees":
		o.NTrees, err = strconv.Atoi(val)
	case "maxdepth":
		o.MaxDepth, err = strconv.Atoi(val)
	case "minnodesize":
		o.MinNodeSize, err = strconv.ParseFloat(strings.TrimSuffix(val, "%"), 64)
	case "shrinkage":
		o.Shrinkage, err = strconv.ParseFloat(val, 64)
	case "ncuts":
		o.NCuts, err = strconv.Atoi(val)
	case "boosttype":
		o.BoostType = val
	default:
		if !ignoredKeys[lk] {
			return errors.Wrapf(ErrBadOption, "unknown key %q", key)
		}
	}
	if err != nil {
		return errors.Wrapf(ErrBadOption, "%s=%s: %v", key, val, err)
	}
	return nil
}

// Validate checks the ranges of every knob.
func (o Options) Validate() error {
	switch {
	case o.NTrees <= 0:
		return errors.Wrapf(ErrBadOption, "NTrees=%d", o.NTrees)
	case o.MaxDepth <= 0:
		return errors.Wrapf(ErrBadOption, "MaxDepth=%d", o.MaxDepth)
	case o.MinNodeSize < 0 || o.MinNodeSize >= 50:
		return errors.Wrapf(ErrBadOption, "MinNodeSize=%v%%", o.MinNodeSize)
	case o.Shrinkage <= 0 || o.Shrinkage > 1:
		return errors.Wrapf(ErrBadOption, "Shrinkage=%v", o.Shrinkage)
	case o.NCuts <= 0:
		return errors.Wrapf(ErrBadOption, "nCuts=%d", o.NCuts)
	case !strings.EqualFold(o.BoostType, "Grad"):
		return errors.Wrapf(ErrBadOption, "BoostType=%s, only Grad is supported", o.BoostType)
	}
	for i, n := range o.VarNCuts {
		if n <= 0 {
			return errors.Wrapf(ErrBadOption, "nCuts[%d]=%d", i, n)
		}
	}
	return nil
}

// CutsFor returns the number of grid cuts used for variable v.
func (o Options) CutsFor(v int) int {
	if n, ok := o.VarNCuts[v]; ok {
		return n
	}
	return o.NCuts
}

// indexedKey splits "name[3]" into name and 3.
func indexedKey(key string) (string, int, bool) {
	open := strings.IndexByte(key, '[')
	if open <= 0 || !strings.HasSuffix(key, "]") {
		return "", 0, false
	}
	idx, err := strconv.Atoi(key[open+1 : len(key)-1])
	if err != nil || idx < 0 {
		return "", 0, false
	}
	return key[:open], idx, true
}

// String renders o in the form ParseOptions reads.
func (o Options) String() string {
	s := fmt.Sprintf("NTrees=%d:MaxDepth=%d:MinNodeSize=%g%%:Shrinkage=%g:nCuts=%d:BoostType=%s",
		o.NTrees, o.MaxDepth, o.MinNodeSize, o.Shrinkage, o.NCuts, o.BoostType)
	idx := make([]int, 0, len(o.VarNCuts))
	for i := range o.VarNCuts {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	for _, i := range idx {
		s += fmt.Sprintf(":nCuts[%d]=%d", i, o.VarNCuts[i])
	}
	return s
}

func itoa(i int) string { return strconv.Itoa(i) }

func ftoa(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) }
