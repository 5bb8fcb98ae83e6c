package diagnostics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyKeepsChangedLinesInOrder(t *testing.T) {
	diags := []Diagnostic{
		{Tool: "flake8", Line: 7, Text: "E501 line too long"},
		{Tool: "flake8", Line: 3, Text: "F401 unused import"},
		{Tool: "flake8", Line: 5, Text: "E225 missing whitespace"},
		{Tool: "flake8", Line: 6, Text: "W291 trailing whitespace"},
		{Tool: "flake8", Line: 5, Text: "E231 missing whitespace after ','"},
	}

	got := Apply(diags, NewLineSet(5, 7))

	assert.Equal(t, []Diagnostic{diags[0], diags[2], diags[4]}, got)
}

func TestApplyExcludesNonPositiveLines(t *testing.T) {
	diags := []Diagnostic{
		{Line: 0, Text: "no line"},
		{Line: -1, Text: "negative"},
		{Line: 1, Text: "kept"},
	}

	got := Apply(diags, NewLineSet(0, -1, 1))

	assert.Len(t, got, 1)
	assert.Equal(t, "kept", got[0].Text)
}

func TestApplyEmptyInputs(t *testing.T) {
	assert.Empty(t, Apply(nil, NewLineSet(1)))
	assert.Empty(t, Apply([]Diagnostic{{Line: 1}}, nil))
	assert.Empty(t, Apply([]Diagnostic{{Line: 1}}, NewLineSet()))
}

func TestLineSetSorted(t *testing.T) {
	s := NewLineSet(9, 2, 4, 2)

	assert.Equal(t, []int{2, 4, 9}, s.Sorted())
	assert.True(t, s.Contains(4))
	assert.False(t, s.Contains(3))
}
