package types

import "fmt"

// ActionType classifies a logical unit of work
type ActionType string

const (
	ActionTypeContentGeneration ActionType = "content_generation"
	ActionTypeTechnicalSEOFix   ActionType = "technical_seo_fix"
	ActionTypeCMSPublishing     ActionType = "cms_publishing"
	ActionTypeSchemaInjection   ActionType = "schema_injection"
	ActionTypeTechnicalSEOCrawl ActionType = "technical_seo_crawl"
	ActionTypeVerification      ActionType = "verification"
	ActionTypeGeneric           ActionType = "generic"
)

// AllActionTypes returns all valid action types
func AllActionTypes() []ActionType {
	return []ActionType{
		ActionTypeContentGeneration,
		ActionTypeTechnicalSEOFix,
		ActionTypeCMSPublishing,
		ActionTypeSchemaInjection,
		ActionTypeTechnicalSEOCrawl,
		ActionTypeVerification,
		ActionTypeGeneric,
	}
}

// IsValid checks if the action type is valid
func (t ActionType) IsValid() bool {
	switch t {
	case ActionTypeContentGeneration,
		ActionTypeTechnicalSEOFix,
		ActionTypeCMSPublishing,
		ActionTypeSchemaInjection,
		ActionTypeTechnicalSEOCrawl,
		ActionTypeVerification,
		ActionTypeGeneric:
		return true
	default:
		return false
	}
}

// String returns the string representation of the action type
func (t ActionType) String() string {
	return string(t)
}

// ParseActionType parses a string into an ActionType
func ParseActionType(s string) (ActionType, error) {
	t := ActionType(s)
	if !t.IsValid() {
		return "", fmt.Errorf("invalid action type: %s", s)
	}
	return t, nil
}

// Queue returns the work queue that executes this action type. The mapping is
// exhaustive over the closed enum so routing never falls through silently.
func (t ActionType) Queue() QueueName {
	switch t {
	case ActionTypeContentGeneration:
		return QueueContent
	case ActionTypeTechnicalSEOFix, ActionTypeSchemaInjection, ActionTypeTechnicalSEOCrawl:
		return QueueTechnicalSEO
	case ActionTypeCMSPublishing:
		return QueuePublishing
	case ActionTypeVerification:
		return QueueVerification
	default:
		return QueueGeneral
	}
}
