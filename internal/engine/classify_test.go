package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	exit := errors.New("exit status 5")

	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "not a failure", err: errors.New("plain"), want: ""},
		{name: "timeout", err: &Failure{Stage: StageTransform, Err: fmt.Errorf("%w: signal: killed", context.DeadlineExceeded)}, want: CauseTimeout},
		{name: "unparseable stylesheet", err: &Failure{Stage: StageCompile, Err: errors.New("XML syntax error on line 1")}, want: CauseMalformedDocument},
		{name: "unreadable stylesheet", err: &Failure{Stage: StageCompile, Err: fmt.Errorf("read: %w", os.ErrNotExist)}, want: CauseMissingResource},
		{
			name: "broken import",
			err:  &Failure{Stage: StageTransform, Err: exit, Output: "warning: failed to load external entity \"common.xsl\"\nxsl:import : unable to load common.xsl\n"},
			want: CauseStylesheetReference,
		},
		{
			name: "missing image",
			err:  &Failure{Stage: StageRender, Err: exit, Output: "SEVERE: Image not found. URI: logo.png"},
			want: CauseMissingResource,
		},
		{
			name: "bad source",
			err:  &Failure{Stage: StageTransform, Err: exit, Output: "doc.xml:3: parser error : Opening and ending tag mismatch"},
			want: CauseMalformedDocument,
		},
		{
			name: "layout failure",
			err:  &Failure{Stage: StageRender, Err: exit, Output: "SEVERE: fo:block is not a valid child of fo:root"},
			want: CauseRenderFailure,
		},
		{name: "unknown transform failure", err: &Failure{Stage: StageTransform, Err: exit}, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}
