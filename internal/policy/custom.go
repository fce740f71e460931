package policy

import "strings"

// CustomPolicy watches user-configured process names from settings.
type CustomPolicy struct {
	patterns []string
}

// NewCustomPolicy creates a policy for extra patterns. Blank entries are dropped.
func NewCustomPolicy(patterns []string) *CustomPolicy {
	cleaned := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if p = strings.TrimSpace(p); p != "" {
			cleaned = append(cleaned, p)
		}
	}
	return &CustomPolicy{patterns: cleaned}
}

func (p *CustomPolicy) ID() string {
	return "custom"
}

func (p *CustomPolicy) Name() string {
	return "User watch list"
}

func (p *CustomPolicy) ProcessPatterns() []string {
	return append([]string(nil), p.patterns...)
}

var _ AppPolicy = (*CustomPolicy)(nil)
