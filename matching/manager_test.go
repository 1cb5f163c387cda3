package matching

import (
	"testing"

	"github.com/brendon-colburn/medical-context-retrieval/matching/option"
	"github.com/brendon-colburn/medical-context-retrieval/schema"
)

func TestIsExcluded(t *testing.T) {
	useCases := []struct {
		description string
		manager     *Manager
		chunk       schema.Chunk
		excluded    bool
	}{
		{
			description: "no rules includes everything",
			manager:     New(),
			chunk:       schema.Chunk{SourceOrg: "WHO", SectionPath: "guidelines/dosage"},
			excluded:    false,
		},
		{
			description: "org allow list hit",
			manager:     New(option.WithOrgs("WHO", "CDC")),
			chunk:       schema.Chunk{SourceOrg: "cdc"},
			excluded:    false,
		},
		{
			description: "org allow list miss",
			manager:     New(option.WithOrgs("WHO")),
			chunk:       schema.Chunk{SourceOrg: "NIH"},
			excluded:    true,
		},
		{
			description: "section include match",
			manager:     New(option.WithSections("dosage")),
			chunk:       schema.Chunk{SectionPath: "guidelines/dosage"},
			excluded:    false,
		},
		{
			description: "section include miss",
			manager:     New(option.WithSections("dosage")),
			chunk:       schema.Chunk{SectionPath: "guidelines/overview"},
			excluded:    true,
		},
		{
			description: "exclusion pattern",
			manager:     New(option.WithExclusions("appendix")),
			chunk:       schema.Chunk{SectionPath: "guidelines/appendix"},
			excluded:    true,
		},
		{
			description: "comment pattern ignored",
			manager:     New(option.WithExclusions("# appendix")),
			chunk:       schema.Chunk{SectionPath: "guidelines/appendix"},
			excluded:    false,
		},
		{
			description: "max chunk size",
			manager:     New(option.WithMaxChunkSize(5)),
			chunk:       schema.Chunk{RawChunk: "longer than five"},
			excluded:    true,
		},
		{
			description: "glob pattern",
			manager:     New(option.WithSections("guidelines/*")),
			chunk:       schema.Chunk{SectionPath: "guidelines/dosage"},
			excluded:    false,
		},
	}
	for _, useCase := range useCases {
		if actual := useCase.manager.IsExcluded(useCase.chunk); actual != useCase.excluded {
			t.Fatalf("%s: expected excluded=%v, got %v", useCase.description, useCase.excluded, actual)
		}
	}
}
