package domain

import "time"

// SiteContext is the singleton brand and tone record agents consult before
// writing copy.
type SiteContext struct {
	BrandName string         `json:"brand_name" yaml:"brand_name"`
	Tone      string         `json:"tone" yaml:"tone"`
	Audience  string         `json:"audience,omitempty" yaml:"audience"`
	Keywords  []string       `json:"keywords,omitempty" yaml:"keywords"`
	Extra     map[string]any `json:"extra,omitempty" yaml:"extra"`
	UpdatedAt time.Time      `json:"updated_at" yaml:"-"`
}
