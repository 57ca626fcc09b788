package samples

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
)

// CatalogFileName is the name looked for by LocateCatalog.
const CatalogFileName = "Sample Meta Data.csv"

var (
	ErrNotFound        = errors.New("sample not found in catalog")
	ErrCatalogNotFound = errors.New("unable to locate " + CatalogFileName)
)

type catalogRow struct {
	Name             string `csv:"Name"`
	FilterEfficiency string `csv:"FilterEfficiency"`
	CrossSection     string `csv:"CrossSection"`
	EventsGenerated  string `csv:"EventsGenerated"`
	Source           string `csv:"Source"`
	NickName         string `csv:"NickName"`
	Tags             string `csv:"Tags"`
}

func (r catalogRow) metaData() (MetaData, bool) {
	eff, err := strconv.ParseFloat(strings.TrimSpace(r.FilterEfficiency), 64)
	if err != nil {
		return MetaData{}, false
	}
	xsec, err := strconv.ParseFloat(strings.TrimSpace(r.CrossSection), 64)
	if err != nil {
		return MetaData{}, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(r.EventsGenerated))
	if err != nil {
		return MetaData{}, false
	}

	var tags []string
	for _, t := range strings.Split(r.Tags, "+") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return MetaData{
		Name:             strings.TrimSpace(r.Name),
		NickName:         strings.TrimSpace(r.NickName),
		CrossSection:     xsec,
		FilterEfficiency: eff,
		EventsGenerated:  n,
		Source:           strings.TrimSpace(r.Source),
		Tags:             tags,
	}, true
}

// Catalog is the set of known samples. It is loaded once per run and
// handed around explicitly.
type Catalog struct {
	samples []MetaData
}

// NewCatalog builds a catalog from already parsed entries.
func NewCatalog(ms ...MetaData) *Catalog {
	return &Catalog{samples: ms}
}

// ReadCatalog parses a metadata CSV. Rows whose numeric columns don't
// parse (section headers, notes) are skipped.
func ReadCatalog(in io.Reader) (*Catalog, error) {
	r := csv.NewReader(in)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var rows []catalogRow
	if err := gocsv.UnmarshalCSV(r, &rows); err != nil {
		return nil, errors.Wrap(err, "parsing sample catalog")
	}

	c := &Catalog{}
	for _, row := range rows {
		if m, ok := row.metaData(); ok {
			c.samples = append(c.samples, m)
		}
	}
	return c, nil
}

// LoadCatalog reads the catalog at path.
func LoadCatalog(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening sample catalog %s", path)
	}
	defer f.Close()

	c, err := ReadCatalog(f)
	if err != nil {
		return nil, errors.Wrapf(err, "in %s", path)
	}
	return c, nil
}

// LocateCatalog looks for CatalogFileName in dir and each of its parents.
func LocateCatalog(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", errors.Wrapf(err, "resolving %s", dir)
	}
	for {
		p := filepath.Join(dir, CatalogFileName)
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return p, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrCatalogNotFound
		}
		dir = parent
	}
}

// All returns every sample, in file order.
func (c *Catalog) All() []MetaData {
	return c.samples
}

// Find returns the sample with the given name or nickname.
func (c *Catalog) Find(name string) (MetaData, error) {
	for _, m := range c.samples {
		if m.Name == name || m.NickName == name {
			return m, nil
		}
	}
	return MetaData{}, errors.Wrapf(ErrNotFound, "sample %q", name)
}

// WithTags returns the samples carrying every one of tags.
func (c *Catalog) WithTags(tags ...string) []MetaData {
	var out []MetaData
outer:
	for _, m := range c.samples {
		for _, t := range tags {
			if !m.HasTag(t) {
				continue outer
			}
		}
		out = append(out, m)
	}
	return out
}
