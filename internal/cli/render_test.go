package cli

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/loom/internal/store"
	"github.com/roach88/loom/internal/testutil"
	"github.com/roach88/loom/internal/trace"
)

func TestRender_Text(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "page.yaml", pageV1)

	out, err := execute(t, NewRenderCommand(&RootOptions{Format: "text"}), path)
	require.NoError(t, err)

	want := path + `: 1 callbacks
  commit generation 1 (5 fibers)
    create div#2
    set div#2 id=foo
    create h1#3
    create #text#4
    set #text#4 nodeValue=hi
    create h2#5
    append h1#3 #text#4
    append div#2 h1#3
    append div#2 h2#5
    append root#1 div#2
final:
  root#1
    div#2 id=foo
      h1#3
        #text#4 "hi"
      h2#5
`
	assert.Equal(t, want, out)
}

func TestRender_Budget(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "page.yaml", pageV1)

	tests := []struct {
		budget    string
		callbacks string
	}{
		{"0", ": 1 callbacks"},
		{"2", ": 3 callbacks"},
	}

	for _, tt := range tests {
		t.Run(tt.budget, func(t *testing.T) {
			out, err := execute(t, NewRenderCommand(&RootOptions{Format: "text"}), path, "--budget", tt.budget)
			require.NoError(t, err)
			assert.Contains(t, out, path+tt.callbacks)
		})
	}
}

func TestRender_NegativeBudget(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "page.yaml", pageV1)

	_, err := execute(t, NewRenderCommand(&RootOptions{Format: "text"}), path, "--budget", "-1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRender_SuccessiveFilesUpdate(t *testing.T) {
	dir := t.TempDir()
	v1 := writeFile(t, dir, "v1.yaml", pageV1)
	v2 := writeFile(t, dir, "v2.yaml", pageV2)

	out, err := execute(t, NewRenderCommand(&RootOptions{Format: "json"}), v1, v2, v1)
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   RenderResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Files, 3)

	second := resp.Data.Files[1]
	require.Len(t, second.Commits, 1)
	assert.Equal(t, int64(2), second.Commits[0].Generation)
	assert.Equal(t, []string{"create p#6", "remove div#2 h2#5", "append div#2 p#6"}, second.Commits[0].Ops)

	third := resp.Data.Files[2]
	assert.Contains(t, third.Tree, "h2#7")
	assert.Empty(t, resp.Data.Session)
}

func TestRender_CUE(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "list.cue", pageCUE)

	out, err := execute(t, NewRenderCommand(&RootOptions{Format: "text"}), path)
	require.NoError(t, err)
	assert.Contains(t, out, "ul#2 id=list")
	assert.Contains(t, out, `#text#6 "2"`)
}

func TestRender_RecordsSession(t *testing.T) {
	dir := t.TempDir()
	v1 := writeFile(t, dir, "v1.yaml", pageV1)
	v2 := writeFile(t, dir, "v2.yaml", pageV2)
	dbPath := filepath.Join(dir, "loom.db")

	cmd := newRenderCommand(&RootOptions{Format: "text"}, testutil.NewFixedSessionGenerator("sess-1"))
	out, err := execute(t, cmd, v1, v2, "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "session: sess-1")

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	log, err := st.ReplaySession(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "v1", log.Session.Name)
	require.Len(t, log.Commits, 2)
	assert.Equal(t, 10, log.Commits[0].Commit.OpCount)
	assert.Equal(t, "create p#6\nremove div#2 h2#5\nappend div#2 p#6\n", trace.Format(log.Commits[1].Ops))
}

func TestRender_SessionName(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "page.yaml", pageV1)
	dbPath := filepath.Join(dir, "loom.db")

	cmd := newRenderCommand(&RootOptions{Format: "json"}, testutil.NewFixedSessionGenerator("sess-2"))
	out, err := execute(t, cmd, path, "--db", dbPath, "--name", "checkout")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "sess-2", resp.Session)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()
	s, err := st.ReadSession(context.Background(), "sess-2")
	require.NoError(t, err)
	assert.Equal(t, "checkout", s.Name)
	assert.Equal(t, 1, s.Commits)
}

func TestRender_DecodeError(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.yaml", "tag: p\nprops: { width: 1.5 }\n")

	out, err := execute(t, NewRenderCommand(&RootOptions{Format: "json"}), path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeDecode, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "floats are not allowed")
}

func TestRender_ComponentError(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.yaml", pageV1)
	bad := writeFile(t, dir, "label.yaml", `
components:
  Label: { tag: span, children: [$text] }
tree: { tag: Label }
`)

	out, err := execute(t, NewRenderCommand(&RootOptions{Format: "text"}), good, bad)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	// The first file committed; the failed one reports no commits and leaves
	// the committed tree in place.
	assert.Contains(t, out, "commit generation 1")
	assert.NotContains(t, out, "commit generation 2")
	assert.Contains(t, out, "      h2#5\n")
	assert.Contains(t, out, "✗ COMPONENT_FAILED")
}

func TestRender_MissingFile(t *testing.T) {
	_, err := execute(t, NewRenderCommand(&RootOptions{Format: "text"}), "/nonexistent/page.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestUUIDv7Generator(t *testing.T) {
	gen := UUIDv7Generator{}
	a, b := gen.Generate(), gen.Generate()

	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
	assert.Equal(t, byte('7'), a[14], "version nibble")
}
