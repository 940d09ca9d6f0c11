package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const pageV1 = `tag: div
props: { id: foo }
children:
  - tag: h1
    children: ["hi"]
  - tag: h2
`

const pageV2 = `tag: div
props: { id: foo }
children:
  - tag: h1
    children: ["hi"]
  - tag: p
`

const pageCUE = `tree: {
	tag: "ul"
	props: {id: "list"}
	children: [for i in [1, 2] {tag: "li", children: [i]}]
}
`

// writeFile writes content to dir/name and returns the path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// execute runs cmd with args and returns stdout and the command error.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}
