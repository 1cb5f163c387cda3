package matching

import (
	"path"
	"strings"

	"github.com/brendon-colburn/medical-context-retrieval/matching/option"
	"github.com/brendon-colburn/medical-context-retrieval/schema"
)

// Manager handles chunk inclusion/exclusion rules for local retrieval
type Manager struct {
	options *option.Options
}

// New creates a new matching manager with the given options
func New(opts ...option.Option) *Manager {
	return &Manager{options: option.NewOptions(opts...)}
}

// IsExcluded checks if a chunk should be excluded from search results
func (m *Manager) IsExcluded(chunk schema.Chunk) bool {
	if m.options.MaxChunkSize > 0 && len(chunk.RawChunk) > m.options.MaxChunkSize {
		return true
	}
	if len(m.options.Orgs) > 0 && !m.orgIncluded(chunk.SourceOrg) {
		return true
	}
	if len(m.options.Sections) > 0 && !m.sectionIncluded(chunk.SectionPath) {
		return true
	}
	for _, pattern := range m.options.Exclusions {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" || strings.HasPrefix(pattern, "#") {
			continue
		}
		if matchSection(chunk.SectionPath, pattern) {
			return true
		}
	}
	return false
}

func (m *Manager) orgIncluded(org string) bool {
	for _, candidate := range m.options.Orgs {
		if strings.EqualFold(strings.TrimSpace(candidate), strings.TrimSpace(org)) {
			return true
		}
	}
	return false
}

func (m *Manager) sectionIncluded(sectionPath string) bool {
	for _, pattern := range m.options.Sections {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" || strings.HasPrefix(pattern, "#") {
			continue
		}
		if matchSection(sectionPath, pattern) {
			return true
		}
	}
	return false
}

func matchSection(sectionPath, pattern string) bool {
	// Direct substring match (common case for section names)
	if strings.Contains(sectionPath, pattern) {
		return true
	}
	cleanPattern := strings.TrimPrefix(pattern, "/")
	if matched, _ := path.Match(cleanPattern, sectionPath); matched {
		return true
	}
	if matched, _ := path.Match("*/"+cleanPattern, sectionPath); matched {
		return true
	}
	base := path.Base(sectionPath)
	return pattern == base || strings.HasSuffix(pattern, "/"+base)
}
