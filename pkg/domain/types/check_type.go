package types

import "fmt"

// CheckType classifies one concrete verification assertion
type CheckType string

const (
	CheckTypeMetaTag          CheckType = "meta_tag"
	CheckTypeAltText          CheckType = "alt_text"
	CheckTypeSchemaMarkup     CheckType = "schema_markup"
	CheckTypeCanonical        CheckType = "canonical"
	CheckTypeContentExistence CheckType = "content_existence"
	CheckTypeURLReachability  CheckType = "url_reachability"
	CheckTypeCrawlRecency     CheckType = "crawl_recency"
	CheckTypeGenericApply     CheckType = "generic_apply"
	CheckTypeDryRun           CheckType = "dry_run"
	CheckTypeSystemError      CheckType = "system_error"
)

// AllCheckTypes returns all valid check types
func AllCheckTypes() []CheckType {
	return []CheckType{
		CheckTypeMetaTag,
		CheckTypeAltText,
		CheckTypeSchemaMarkup,
		CheckTypeCanonical,
		CheckTypeContentExistence,
		CheckTypeURLReachability,
		CheckTypeCrawlRecency,
		CheckTypeGenericApply,
		CheckTypeDryRun,
		CheckTypeSystemError,
	}
}

// IsValid checks if the check type is valid
func (t CheckType) IsValid() bool {
	switch t {
	case CheckTypeMetaTag, CheckTypeAltText, CheckTypeSchemaMarkup, CheckTypeCanonical,
		CheckTypeContentExistence, CheckTypeURLReachability, CheckTypeCrawlRecency,
		CheckTypeGenericApply, CheckTypeDryRun, CheckTypeSystemError:
		return true
	default:
		return false
	}
}

// String returns the string representation of the check type
func (t CheckType) String() string {
	return string(t)
}

// ParseCheckType parses a string into a CheckType
func ParseCheckType(s string) (CheckType, error) {
	t := CheckType(s)
	if !t.IsValid() {
		return "", fmt.Errorf("invalid check type: %s", s)
	}
	return t, nil
}
