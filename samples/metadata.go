// Package samples knows which datasets exist, where their files live, and
// how to stitch several of them into one sample.
package samples

// MetaData describes one physical dataset.
type MetaData struct {
	// Name is the full dataset name.
	Name string
	// NickName is the short name used everywhere else.
	NickName string

	CrossSection     float64 // nb
	FilterEfficiency float64
	EventsGenerated  int

	// Source tells where the numbers came from (AMI, a person, ...).
	Source string
	Tags   []string
}

// HasTag reports whether the sample carries tag.
func (m MetaData) HasTag(tag string) bool {
	for _, t := range m.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// XSectionWeight is the per-event weight that normalizes the sample to
// lumi (inverse nb).
func (m MetaData) XSectionWeight(lumi float64) float64 {
	if m.EventsGenerated == 0 {
		return 0
	}
	return m.CrossSection * m.FilterEfficiency * lumi / float64(m.EventsGenerated)
}
