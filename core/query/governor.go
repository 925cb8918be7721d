// Package query builds and governs every query that reaches the graph
// store. Callers never supply query text; they pick a named, code-reviewed
// template and the parameters for it, and everything is validated against
// hard ceilings before execution.
package query

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/mnemo-ai/mnemo/model"
)

const (
	// MaxLimit is the hard ceiling for any result limit parameter.
	MaxLimit = 100
	// MaxHops is the hard ceiling for traversal depth.
	MaxHops = 3
	// MaxSeedEntities is the hard ceiling for the seed set size.
	MaxSeedEntities = 300
	// MaxFreeTextLength is the truncation length for sanitized search text.
	MaxFreeTextLength = 200
)

var userIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{3,50}$`)

// controlKeywords are substrings stripped from free-text search strings.
// Identifiers are never sanitized; they are pattern-validated instead.
var controlKeywords = []string{
	"create ", "merge ", "delete ", "detach ", "set ", "remove ", "drop ",
	"call ", "load csv", "//", "/*", "*/",
}

// Validate checks params against the allowed set for queryKey and the hard
// ceilings. It never mutates its inputs and performs no I/O.
func Validate(queryKey string, params map[string]interface{}, allowed map[string]struct{}) error {
	for key := range params {
		if _, ok := allowed[key]; !ok {
			return &model.ValidationError{
				Field:  key,
				Reason: fmt.Sprintf("parameter not allowed for query %q", queryKey),
			}
		}
	}

	if v, present := params["limit"]; present {
		n, ok := asNumber(v)
		if !ok {
			return &model.ValidationError{Field: "limit", Reason: "must be a number"}
		}
		if n < 0 || n > MaxLimit {
			return &model.ValidationError{
				Field:  "limit",
				Reason: fmt.Sprintf("must be in [0,%v], got %v", MaxLimit, n),
			}
		}
	}

	if v, present := params["hops"]; present {
		n, ok := asNumber(v)
		if !ok {
			return &model.ValidationError{Field: "hops", Reason: "must be a number"}
		}
		if n < 0 || n > MaxHops {
			return &model.ValidationError{
				Field:  "hops",
				Reason: fmt.Sprintf("must be in [0,%v], got %v", MaxHops, n),
			}
		}
	}

	if v, present := params["seedEntities"]; present {
		if err := validateSeedEntities(v); err != nil {
			return err
		}
	}

	if v, present := params["userId"]; present {
		s, ok := v.(string)
		if !ok || !userIDPattern.MatchString(s) {
			return &model.ValidationError{
				Field:  "userId",
				Reason: "must be 3-50 characters of [A-Za-z0-9_-]",
			}
		}
	}

	return nil
}

// ValidateUserID checks a bare user identifier against the same pattern
// the governor applies to query parameters.
func ValidateUserID(userID string) error {
	if !userIDPattern.MatchString(userID) {
		return &model.ValidationError{
			Field:  "userId",
			Reason: "must be 3-50 characters of [A-Za-z0-9_-]",
		}
	}
	return nil
}

func validateSeedEntities(v interface{}) error {
	entries, ok := asEntryList(v)
	if !ok {
		return &model.ValidationError{Field: "seedEntities", Reason: "must be an array"}
	}
	if len(entries) > MaxSeedEntities {
		return &model.ValidationError{
			Field:  "seedEntities",
			Reason: fmt.Sprintf("must contain at most %v entries, got %v", MaxSeedEntities, len(entries)),
		}
	}
	for i, entry := range entries {
		id, _ := entry["id"].(string)
		entityType, _ := entry["type"].(string)
		if id == "" || entityType == "" {
			return &model.ValidationError{
				Field:  "seedEntities",
				Reason: fmt.Sprintf("entry %v is missing a non-empty id or type", i),
			}
		}
	}
	return nil
}

func asEntryList(v interface{}) ([]map[string]interface{}, bool) {
	switch list := v.(type) {
	case []map[string]interface{}:
		return list, true
	case []interface{}:
		entries := make([]map[string]interface{}, 0, len(list))
		for _, item := range list {
			entry, ok := item.(map[string]interface{})
			if !ok {
				return nil, false
			}
			entries = append(entries, entry)
		}
		return entries, true
	}
	return nil, false
}

func asNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// SanitizeFreeText strips markup and query control keywords from a
// user-supplied search string and truncates it. It is the only mutation
// this package performs, and it is never applied to identifiers.
func SanitizeFreeText(text string) string {
	sanitized := text
	for _, c := range []string{"<", ">", "{", "}", "`", ";", "\\"} {
		sanitized = strings.ReplaceAll(sanitized, c, "")
	}
	lower := strings.ToLower(sanitized)
	for _, keyword := range controlKeywords {
		for {
			idx := strings.Index(lower, keyword)
			if idx < 0 {
				break
			}
			sanitized = sanitized[:idx] + sanitized[idx+len(keyword):]
			lower = lower[:idx] + lower[idx+len(keyword):]
		}
	}
	sanitized = strings.TrimSpace(sanitized)
	if len(sanitized) > MaxFreeTextLength {
		// Back off to a rune boundary so the cut never leaves invalid UTF-8.
		cut := MaxFreeTextLength
		for cut > 0 && !utf8.RuneStart(sanitized[cut]) {
			cut--
		}
		sanitized = sanitized[:cut]
	}
	return sanitized
}
