// Package calratio holds the plumbing shared by the CalRatio commands:
// common options, logging, the run context and the sample builders.
package calratio

import (
	"time"

	arg "github.com/alexflint/go-arg"
	"github.com/joho/godotenv"
	"github.com/pkg/profile"

	"github.com/decibelcooper/calratio/jets"
)

// CommonOptions are understood by every command. Embed it in the
// command's argument struct.
type CommonOptions struct {
	UseFullDataset   bool          `arg:"--UseFullDataset" help:"run on the full dataset instead of a small test slice"`
	VerboseFileFetch bool          `arg:"--VerboseFileFetch" help:"log every dataset resolution"`
	Catalog          string        `arg:"--catalog,env:CALR_CATALOG" help:"sample meta data csv; looked up from the working directory when empty"`
	DataDir          string        `arg:"--data-dir,env:CALR_DATA_DIR" help:"local mirror holding one directory per dataset"`
	FetchTimeout     time.Duration `arg:"--fetch-timeout" help:"timeout for resolving a single dataset"`
	PtCut            float64       `arg:"--pTCut" help:"minimum jet pT in GeV"`
	Profile          bool          `arg:"--profile" help:"write a CPU profile to the working directory"`
}

// DefaultCommonOptions returns the values used when no flag is given.
func DefaultCommonOptions() CommonOptions {
	return CommonOptions{
		DataDir:      ".",
		FetchTimeout: 10 * time.Minute,
		PtCut:        40,
	}
}

// NFiles is the number of files to read per dataset, 0 meaning all.
func (o CommonOptions) NFiles() int {
	if o.UseFullDataset {
		return 0
	}
	return 1
}

// Events turns a requested event count into the one to use. A negative
// request means "the default": everything for the full dataset, small
// otherwise.
func (o CommonOptions) Events(requested, small int) int {
	if requested < 0 && !o.UseFullDataset {
		return small
	}
	return requested
}

// Cuts are the jet selection cuts implied by the options.
func (o CommonOptions) Cuts() jets.Cuts {
	c := jets.DefaultCuts()
	c.MinPT = o.PtCut
	return c
}

type nopStopper struct{}

func (nopStopper) Stop() {}

// StartProfile starts CPU profiling when asked to. The returned value must
// be stopped before exiting.
func (o CommonOptions) StartProfile() interface{ Stop() } {
	if !o.Profile {
		return nopStopper{}
	}
	return profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook)
}

// MustParse loads an optional .env file and parses the command line into
// dest, exiting on bad arguments.
func MustParse(dest ...interface{}) *arg.Parser {
	_ = godotenv.Load()
	return arg.MustParse(dest...)
}
