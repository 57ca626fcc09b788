package mva

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

type paramOption struct {
	variable, key, value string
}

// Method is one classifier booked on a Training.
type Method[T any] struct {
	Kind Kind
	Name string

	options      []string
	paramOptions []paramOption
	training     *Training[T]
}

// Option adds key=value to the method options. With no value only the key
// is added, so "!H" style flags can be passed as the key.
func (m *Method[T]) Option(key string, value ...string) *Method[T] {
	if len(value) > 0 && value[0] != "" {
		m.options = append(m.options, key+"="+value[0])
	} else {
		m.options = append(m.options, key)
	}
	return m
}

// ParameterOption sets key for a single variable. It is written as
// key[i]=value, i being the index of the variable in the training. Options
// for variables that aren't used are dropped.
func (m *Method[T]) ParameterOption(variable, key, value string) *Method[T] {
	m.paramOptions = append(m.paramOptions, paramOption{variable, key, value})
	return m
}

// ArgumentList renders the options for the given ordered variables.
func (m *Method[T]) ArgumentList(variables []string) string {
	parts := append([]string(nil), m.options...)
	for _, p := range m.paramOptions {
		for i, v := range variables {
			if v == p.variable {
				parts = append(parts, fmt.Sprintf("%s[%d]=%s", p.key, i, p.value))
				break
			}
		}
	}
	return strings.Join(parts, ":")
}

// WeightFile is where the trained model is written. It is empty until the
// training has been run.
func (m *Method[T]) WeightFile() string {
	if m.training == nil || m.training.jobName == "" {
		return ""
	}
	return filepath.Join(m.training.dir, "weights", fmt.Sprintf("%s_%s.weights.xml", m.training.jobName, m.Name))
}

// Reader opens the trained model with the training's own variables.
func (m *Method[T]) Reader() (*Reader[T], error) {
	if m.WeightFile() == "" {
		return nil, ErrNotTrained
	}
	return NewReader(m.WeightFile(), m.training.columns)
}

// DumpUsageInfo writes what is needed to evaluate this method elsewhere.
func (m *Method[T]) DumpUsageInfo(w io.Writer) error {
	if m.WeightFile() == "" {
		return ErrNotTrained
	}
	t := m.training

	var b strings.Builder
	fmt.Fprintf(&b, "Method %s (%s)\n", m.Name, m.Kind)
	fmt.Fprintf(&b, "  weight file: %s\n", m.WeightFile())
	fmt.Fprintf(&b, "  options:     %s\n", m.ArgumentList(Names(t.columns)))
	fmt.Fprintf(&b, "  classes:\n")
	for i, c := range t.classNames() {
		fmt.Fprintf(&b, "    %d %s\n", i, c)
	}
	fmt.Fprintf(&b, "  variables, in this order:\n")
	for i, c := range t.columns {
		fmt.Fprintf(&b, "    %d %s\n", i, c.Name)
	}
	fmt.Fprintf(&b, "  usage:\n")
	fmt.Fprintf(&b, "    r, err := mva.NewReader(%q, columns)\n", m.WeightFile())
	fmt.Fprintf(&b, "    v := r.Value(record)           // two classes, in [-1, 1]\n")
	fmt.Fprintf(&b, "    p, err := r.ClassValue(record, i) // probability of class i\n")

	_, err := io.WriteString(w, b.String())
	return err
}
