package models

// SourceSelection chooses which listing origins a run scrapes.
type SourceSelection string

const (
	SelectDirectory SourceSelection = "directory"
	SelectMap       SourceSelection = "map"
	SelectBoth      SourceSelection = "both"
)

// Sources expands the selection into origins, in scrape order.
func (s SourceSelection) Sources() []Source {
	switch s {
	case SelectDirectory:
		return []Source{SourceDirectory}
	case SelectMap:
		return []Source{SourceMap}
	case SelectBoth:
		return []Source{SourceDirectory, SourceMap}
	}
	return nil
}

// RunConfig parameterises one pipeline run.
type RunConfig struct {
	Source     SourceSelection `json:"source" validate:"oneof=directory map both"`
	Location   string          `json:"location" validate:"required"`
	SearchTerm string          `json:"searchTerm" validate:"required"`
	MaxResults int             `json:"maxResults,omitempty" validate:"gte=0"`
	TestMode   bool            `json:"testMode,omitempty"`
}
