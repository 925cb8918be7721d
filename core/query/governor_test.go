package query

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/mnemo-ai/mnemo/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertValidationError(t *testing.T, err error, field string) {
	t.Helper()
	require.Error(t, err)
	var validationErr *model.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, field, validationErr.Field)
}

func TestValidate(t *testing.T) {
	allowed := allow("seedEntities", "userId", "hops", "limit")

	t.Run("accepts a well-formed parameter set", func(t *testing.T) {
		err := Validate(TemplateNeighborhood, map[string]interface{}{
			"seedEntities": []map[string]interface{}{{"id": "c1", "type": "Concept"}},
			"userId":       "dev-user-123",
			"hops":         2,
			"limit":        50,
		}, allowed)
		assert.NoError(t, err)
	})

	t.Run("rejects parameters outside the whitelist", func(t *testing.T) {
		err := Validate(TemplateNeighborhood, map[string]interface{}{
			"userId": "dev-user-123",
			"where":  "1=1",
		}, allowed)
		assertValidationError(t, err, "where")
	})

	t.Run("rejects a limit above the ceiling", func(t *testing.T) {
		err := Validate(TemplateNeighborhood, map[string]interface{}{"limit": 101}, allowed)
		assertValidationError(t, err, "limit")
	})

	t.Run("rejects a non-numeric limit", func(t *testing.T) {
		err := Validate(TemplateNeighborhood, map[string]interface{}{"limit": "all"}, allowed)
		assertValidationError(t, err, "limit")
	})

	t.Run("rejects hops above the ceiling", func(t *testing.T) {
		err := Validate(TemplateNeighborhood, map[string]interface{}{"hops": 4}, allowed)
		assertValidationError(t, err, "hops")
	})

	t.Run("rejects an oversized seed set", func(t *testing.T) {
		seeds := make([]map[string]interface{}, MaxSeedEntities+1)
		for i := range seeds {
			seeds[i] = map[string]interface{}{"id": "x", "type": "Concept"}
		}
		err := Validate(TemplateNeighborhood, map[string]interface{}{"seedEntities": seeds}, allowed)
		assertValidationError(t, err, "seedEntities")
	})

	t.Run("rejects seed entries without id or type", func(t *testing.T) {
		err := Validate(TemplateNeighborhood, map[string]interface{}{
			"seedEntities": []map[string]interface{}{{"id": "", "type": "Concept"}},
		}, allowed)
		assertValidationError(t, err, "seedEntities")
	})

	t.Run("rejects a non-array seed set", func(t *testing.T) {
		err := Validate(TemplateNeighborhood, map[string]interface{}{"seedEntities": "c1"}, allowed)
		assertValidationError(t, err, "seedEntities")
	})

	t.Run("rejects a malformed user id", func(t *testing.T) {
		err := Validate(TemplateNeighborhood, map[string]interface{}{"userId": "u; DROP"}, allowed)
		assertValidationError(t, err, "userId")
	})
}

func TestValidateUserID(t *testing.T) {
	t.Run("accepts typical identifiers", func(t *testing.T) {
		assert.NoError(t, ValidateUserID("dev-user-123"))
		assert.NoError(t, ValidateUserID("abc"))
		assert.NoError(t, ValidateUserID("user_FOUR-4"))
	})

	t.Run("rejects identifiers outside the pattern", func(t *testing.T) {
		assert.Error(t, ValidateUserID("ab"))
		assert.Error(t, ValidateUserID(strings.Repeat("a", 51)))
		assert.Error(t, ValidateUserID("user with spaces"))
		assert.Error(t, ValidateUserID("user;drop"))
		assert.Error(t, ValidateUserID(""))
	})
}

func TestSanitizeFreeText(t *testing.T) {
	t.Run("strips markup characters", func(t *testing.T) {
		sanitized := SanitizeFreeText("<b>ocean</b> {conservation}; `raw`")
		assert.NotContains(t, sanitized, "<")
		assert.NotContains(t, sanitized, "{")
		assert.NotContains(t, sanitized, ";")
		assert.NotContains(t, sanitized, "`")
		assert.Contains(t, sanitized, "ocean")
	})

	t.Run("strips query control keywords case insensitively", func(t *testing.T) {
		sanitized := SanitizeFreeText("reefs DETACH DELETE everything")
		assert.NotContains(t, strings.ToLower(sanitized), "detach ")
		assert.NotContains(t, strings.ToLower(sanitized), "delete ")
		assert.Contains(t, sanitized, "reefs")
	})

	t.Run("strips comment markers", func(t *testing.T) {
		sanitized := SanitizeFreeText("ocean // comment /* block */")
		assert.NotContains(t, sanitized, "//")
		assert.NotContains(t, sanitized, "/*")
	})

	t.Run("truncates overlong text", func(t *testing.T) {
		sanitized := SanitizeFreeText(strings.Repeat("a", 500))
		assert.Len(t, sanitized, MaxFreeTextLength)
	})

	t.Run("truncates multi-byte text on a rune boundary", func(t *testing.T) {
		// "Ü" is two bytes, so a byte-indexed cut at an odd offset would
		// split a rune in half.
		sanitized := SanitizeFreeText("a" + strings.Repeat("Ü", 300))
		assert.True(t, utf8.ValidString(sanitized))
		assert.LessOrEqual(t, len(sanitized), MaxFreeTextLength)
		lastRune, _ := utf8.DecodeLastRuneInString(sanitized)
		assert.Equal(t, 'Ü', lastRune)
	})

	t.Run("leaves ordinary phrases alone", func(t *testing.T) {
		assert.Equal(t, "ocean conservation", SanitizeFreeText("ocean conservation"))
	})
}
