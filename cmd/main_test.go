package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTable(t *testing.T) {
	out := renderTable([]string{"Metric", "Count"}, [][]string{{"Books", "12"}, {"Orgs"}}, 2)

	assert.Contains(t, strings.ToUpper(out), "METRIC")
	assert.Contains(t, out, "Books")
	assert.Contains(t, out, "12")
	assert.Empty(t, renderTable(nil, nil))
}

func TestRubricCheckCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rubric.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
rubricTitle: Campus Rubric
headings:
  - title: Content
    order: 1
prompts:
  - order: 3
    promptType: text
    promptText: Comments
  - order: 2
    promptType: 5-likert
    promptText: Accuracy
    promptRequired: true
`), 0o644))

	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"rubric", "check", path})
	require.NoError(t, cmd.Execute())

	text := out.String()
	assert.Contains(t, text, "Campus Rubric")
	assert.Less(t, strings.Index(text, "Content"), strings.Index(text, "Accuracy"))
	assert.Less(t, strings.Index(text, "Accuracy"), strings.Index(text, "Comments"))
}

func TestRubricCheckCommand_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rubric.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rubricTitle: Empty\nprompts: []\n"), 0o644))

	cmd := newRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"rubric", "check", path})
	require.Error(t, cmd.Execute())
}
