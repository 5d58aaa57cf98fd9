package gen

import (
	"bytes"
	"os"
	"path/filepath"
)

var (
	// FeatureLinkTargets generates, for every entity type defined in a file,
	// lookup and union types describing its outgoing links and their targets.
	FeatureLinkTargets = Feature{
		Name:        "linktargets",
		Stage:       Stable,
		Default:     true,
		Description: "Generates outgoing link and target definitions for every generated entity type",
	}

	// FeatureAtomicWrite stages every file in a temporary directory and only
	// moves them into the output folder once all of them were written.
	FeatureAtomicWrite = Feature{
		Name:        "atomicwrite",
		Stage:       Beta,
		Default:     false,
		Description: "Writes generated files to a staging directory and renames them into place once all writes succeed",
	}

	// FeatureStrict fails collation on documents that cannot be retrieved or
	// classified instead of skipping them. Link destinations that were not
	// collated fail postprocessing as well.
	FeatureStrict = Feature{
		Name:        "strict",
		Stage:       Alpha,
		Default:     false,
		Description: "Fails generation when a referenced type cannot be fetched, classified or resolved as a link destination",
	}

	// FeaturePrune removes files of previous runs from the output folder when
	// they are no longer a target.
	FeaturePrune = Feature{
		Name:        "prune",
		Stage:       Experimental,
		Default:     false,
		Description: "Removes previously generated files that are no longer targets",
		cleanup:     pruneStale,
	}

	// AllFeatures holds a list of all feature-flags.
	AllFeatures = []Feature{
		FeatureLinkTargets,
		FeatureAtomicWrite,
		FeatureStrict,
		FeaturePrune,
	}
)

// FeatureByName returns the feature with the given name.
func FeatureByName(name string) (Feature, bool) {
	for _, f := range AllFeatures {
		if f.Name == name {
			return f, true
		}
	}
	return Feature{}, false
}

// FeatureStage describes the stage of the codegen feature.
type FeatureStage int

const (
	_ FeatureStage = iota

	// Experimental features are in development, and actively being tested.
	Experimental

	// Alpha features are features whose initial development was finished, but
	// we expect breaking-changes to their APIs.
	Alpha

	// Beta features are Alpha features that were documented, and no
	// breaking-changes are expected for them.
	Beta

	// Stable features are Beta features that were running for a while.
	Stable
)

// String returns the stage name.
func (s FeatureStage) String() string {
	switch s {
	case Experimental:
		return "experimental"
	case Alpha:
		return "alpha"
	case Beta:
		return "beta"
	case Stable:
		return "stable"
	default:
		return "unknown"
	}
}

// A Feature of the codegen.
type Feature struct {
	// Name of the feature.
	Name string

	// Stage of the feature.
	Stage FeatureStage

	// Default values indicates if this feature is enabled by default.
	Default bool

	// A Description of this feature.
	Description string

	// cleanup runs after files were written when the feature is enabled.
	cleanup func(*Config, []FileResult) error
}

// pruneStale removes generated files from the output folder that were not
// written by this run.
func pruneStale(c *Config, written []FileResult) error {
	keep := make(map[string]struct{}, len(written))
	for _, r := range written {
		keep[filepath.Base(r.Path)] = struct{}{}
	}
	entries, err := os.ReadDir(c.OutputFolder)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := keep[e.Name()]; ok {
			continue
		}
		data, err := os.ReadFile(filepath.Join(c.OutputFolder, e.Name()))
		if err != nil {
			return err
		}
		if !bytes.Contains(firstLine(data), []byte(bannerText)) {
			continue
		}
		if err := remove(c.OutputFolder, e.Name()); err != nil {
			return err
		}
	}
	return nil
}

func firstLine(data []byte) []byte {
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		return data[:i]
	}
	return data
}

// remove file (if exists) and its dir if it's empty.
func remove(dir, file string) error {
	if err := os.Remove(filepath.Join(dir, file)); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	infos, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		return os.Remove(dir)
	}
	return nil
}
