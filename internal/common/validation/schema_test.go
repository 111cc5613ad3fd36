package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `{
  "type": "object",
  "required": ["action"],
  "properties": {
    "action": {"type": "string", "minLength": 1},
    "requestId": {"type": "integer"}
  }
}`

func TestValidator_ValidateJSON(t *testing.T) {
	v, err := NewValidator([]byte(testSchema))
	require.NoError(t, err)

	tests := []struct {
		name      string
		doc       string
		valid     bool
		wantField string
		wantCode  string
	}{
		{name: "valid", doc: `{"action":"ping","requestId":7}`, valid: true},
		{name: "missing action", doc: `{"requestId":7}`, wantField: "action", wantCode: "REQUIRED"},
		{name: "wrong id type", doc: `{"action":"ping","requestId":"7"}`, wantField: "requestId", wantCode: "INVALID_TYPE"},
		{name: "fractional id", doc: `{"action":"ping","requestId":1.5}`, wantField: "requestId", wantCode: "INVALID_TYPE"},
		{name: "not json", doc: `{action`, wantField: "(root)", wantCode: "INVALID_JSON"},
		{name: "not an object", doc: `[1,2]`, wantField: "(root)", wantCode: "INVALID_TYPE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := v.ValidateJSON([]byte(tt.doc))
			assert.Equal(t, tt.valid, res.Valid)
			if tt.valid {
				assert.Empty(t, res.Errors)
				return
			}
			require.NotEmpty(t, res.Errors)
			assert.True(t, res.HasErrors(tt.wantField), "errors: %v", res.GetErrorMessages())
			assert.Equal(t, tt.wantCode, res.GetErrorsForField(tt.wantField)[0].Code)
		})
	}
}

func TestValidator_ValidateInput(t *testing.T) {
	v, err := NewValidator([]byte(testSchema))
	require.NoError(t, err)

	res := v.ValidateInput(map[string]interface{}{"action": ""})
	assert.False(t, res.Valid)
	assert.True(t, res.HasErrors("action"))
}

func TestNewValidator_BadSchema(t *testing.T) {
	_, err := NewValidator([]byte(`{"type": 12}`))
	assert.Error(t, err)
}

func TestMissingFields(t *testing.T) {
	input := map[string]string{"sourcePath": "a.xml", "outputPath": "  "}
	missing := MissingFields(input, "sourcePath", "stylesheetPath", "outputPath")
	assert.Equal(t, []string{"stylesheetPath", "outputPath"}, missing)
}
