package types

import "strings"

// Placeholder values substituted when a field has no information
const (
	UnknownValue       = "Unknown"
	NotSpecifiedValue  = "Not specified"
	NoInformationValue = "No information available"
)

// LifeEvent is a significant event in the creator's life
type LifeEvent struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Business describes the creator's primary business
type Business struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Genesis     string `json:"genesis"`
}

// Value is a core value the creator holds
type Value struct {
	Name        string `json:"name"`
	Origin      string `json:"origin"`
	ImpactToday string `json:"impact_today"`
}

// Challenge is an obstacle the creator faced and what they learned
type Challenge struct {
	Description string `json:"description"`
	Learnings   string `json:"learnings"`
}

// Achievement is a notable accomplishment
type Achievement struct {
	Description string `json:"description"`
}

// ContentCreatorInfo is the structured profile extracted for a creator
type ContentCreatorInfo struct {
	FirstName    string        `json:"first_name"`
	LastName     string        `json:"last_name"`
	FullName     string        `json:"full_name,omitempty"`
	MainLanguage string        `json:"main_language,omitempty"`
	LifeEvents   []LifeEvent   `json:"life_events"`
	Business     *Business     `json:"business"`
	Values       []Value       `json:"values"`
	Challenges   []Challenge   `json:"challenges"`
	Achievements []Achievement `json:"achievements"`
}

// DefaultLifeEvent returns the placeholder life event
func DefaultLifeEvent() LifeEvent {
	return LifeEvent{Name: NotSpecifiedValue, Description: NoInformationValue}
}

// DefaultBusiness returns the placeholder business
func DefaultBusiness() *Business {
	return &Business{Name: NotSpecifiedValue, Description: NoInformationValue, Genesis: NoInformationValue}
}

// DefaultValue returns the placeholder value
func DefaultValue() Value {
	return Value{Name: NotSpecifiedValue, Origin: NoInformationValue, ImpactToday: NoInformationValue}
}

// DefaultChallenge returns the placeholder challenge
func DefaultChallenge() Challenge {
	return Challenge{Description: NoInformationValue, Learnings: NoInformationValue}
}

// DefaultAchievement returns the placeholder achievement
func DefaultAchievement() Achievement {
	return Achievement{Description: NoInformationValue}
}

// NewDefaultCreatorInfo returns a record made entirely of placeholders
func NewDefaultCreatorInfo() *ContentCreatorInfo {
	info := &ContentCreatorInfo{}
	info.EnsureDefaults()
	return info
}

// EnsureDefaults fills every missing field with its placeholder so the record is total.
func (c *ContentCreatorInfo) EnsureDefaults() {
	c.FirstName = orUnknown(c.FirstName)
	c.LastName = orUnknown(c.LastName)
	c.MainLanguage = orUnknown(c.MainLanguage)
	if IsPlaceholderText(c.FullName) {
		c.FullName = ComposeFullName(c.FirstName, c.LastName)
	}
	if len(c.LifeEvents) == 0 {
		c.LifeEvents = []LifeEvent{DefaultLifeEvent()}
	}
	if c.Business == nil {
		c.Business = DefaultBusiness()
	}
	if len(c.Values) == 0 {
		c.Values = []Value{DefaultValue()}
	}
	if len(c.Challenges) == 0 {
		c.Challenges = []Challenge{DefaultChallenge()}
	}
	if len(c.Achievements) == 0 {
		c.Achievements = []Achievement{DefaultAchievement()}
	}
}

// ComposeFullName joins known first and last names, or returns UnknownValue.
func ComposeFullName(first, last string) string {
	var parts []string
	for _, p := range []string{first, last} {
		if !IsPlaceholderText(p) {
			parts = append(parts, strings.TrimSpace(p))
		}
	}
	if len(parts) == 0 {
		return UnknownValue
	}
	return strings.Join(parts, " ")
}

// IsPlaceholderText reports whether s carries no information.
func IsPlaceholderText(s string) bool {
	switch strings.TrimSpace(s) {
	case "", UnknownValue, NotSpecifiedValue, NoInformationValue:
		return true
	}
	return false
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return UnknownValue
	}
	return s
}
