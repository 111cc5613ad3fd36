package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommand_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Command
	}{
		{
			name: "canonical fields",
			line: `{"action":"generate","sourcePath":"a.xml","stylesheetPath":"s.xsl","outputPath":"o.pdf","workingDirectory":"/w","requestId":4}`,
			want: Command{Action: ActionGenerate, SourcePath: "a.xml", StylesheetPath: "s.xsl", OutputPath: "o.pdf", WorkingDirectory: "/w", RequestID: 4},
		},
		{
			name: "legacy aliases",
			line: `{"action":"generate","xmlPath":"a.xml","xslPath":"s.xsl","outputPath":"o.pdf","workingDir":"/w"}`,
			want: Command{Action: ActionGenerate, SourcePath: "a.xml", StylesheetPath: "s.xsl", OutputPath: "o.pdf", WorkingDirectory: "/w"},
		},
		{
			name: "canonical wins over alias",
			line: `{"action":"generate","sourcePath":"new.xml","xmlPath":"old.xml"}`,
			want: Command{Action: ActionGenerate, SourcePath: "new.xml"},
		},
		{
			name: "request id defaults to zero",
			line: `{"action":"ping"}`,
			want: Command{Action: ActionPing},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Command
			require.NoError(t, json.Unmarshal([]byte(tt.line), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResponse_JSONShape(t *testing.T) {
	data, err := json.Marshal(NewSuccessResponse(9, "out.pdf", []byte("%PDF"), "done"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"success","message":"done","outputPath":"out.pdf","payload":"JVBERg==","requestId":9}`, string(data))

	data, err = json.Marshal(NewPongResponse(0))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"pong","message":"Server is alive","requestId":0}`, string(data))
}

func TestResponse_LegacyFields(t *testing.T) {
	var r Response
	require.NoError(t, json.Unmarshal([]byte(`{"status":"error","message":"boom","stackTrace":"at x","pdfData":"JVBERg==","requestId":2}`), &r))
	assert.Equal(t, "at x", r.Diagnostic)
	assert.Equal(t, []byte("%PDF"), r.Payload)
	assert.Equal(t, 2, r.RequestID)
}

func TestResponse_IsTerminal(t *testing.T) {
	assert.True(t, NewShutdownResponse(1).IsTerminal())
	assert.False(t, NewPongResponse(1).IsTerminal())
}
