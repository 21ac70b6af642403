package extract

import (
	"embed"
	"sync"

	"gopkg.in/yaml.v3"
)

// GERequirement maps one upstream requirement/category pair to the letter
// the catalog exposes (A through H).
type GERequirement struct {
	Requirement string `yaml:"requirement"`
	Category    string `yaml:"category"`
	Letter      string `yaml:"letter"`
}

//go:embed ge_requirements.yaml
var geRequirementsFS embed.FS

// fallback map used when the embedded YAML is missing or invalid
var fallbackGERequirements = []GERequirement{
	{Requirement: "ACORELIT", Category: "ARTS", Letter: "A"},
	{Requirement: "ACORELIT", Category: "HINQ", Letter: "B"},
	{Requirement: "ACORELIT", Category: "SANA", Letter: "C"},
	{Requirement: "ACORELIT", Category: "LIFE", Letter: "D"},
	{Requirement: "ACORELIT", Category: "PSC", Letter: "E"},
	{Requirement: "ACORELIT", Category: "QREA", Letter: "F"},
	{Requirement: "AGLOPERS", Category: "GPG", Letter: "G"},
	{Requirement: "AGLOPERS", Category: "GPH", Letter: "H"},
}

type geCatalogSpec struct {
	Catalog      string          `yaml:"catalog"`
	Version      int             `yaml:"version"`
	Requirements []GERequirement `yaml:"requirements"`
}

var (
	geOnce sync.Once
	geList []GERequirement
)

// GERequirements returns the requirement map, embedded YAML first.
func GERequirements() []GERequirement {
	geOnce.Do(func() {
		geList = fallbackGERequirements
		raw, err := geRequirementsFS.ReadFile("ge_requirements.yaml")
		if err != nil {
			return
		}
		var spec geCatalogSpec
		if err := yaml.Unmarshal(raw, &spec); err != nil {
			return
		}
		if len(spec.Requirements) > 0 {
			geList = spec.Requirements
		}
	})
	return geList
}
