package ignore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatch_Patterns(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		isDir   bool
		want    bool
	}{
		{"*.log", "run.log", false, true},
		{"*.log", "logs/run.log", false, true},
		{"*.log", "run.txt", false, false},

		{"fixtures/", "fixtures", true, true},
		{"fixtures/", "fixtures/a.R", false, true},
		{"fixtures/", "test/fixtures", true, true},
		{"fixtures/", "fixtures", false, false},

		{"/scratch", "scratch", true, true},
		{"/scratch", "src/scratch", true, false},

		{"**/gen", "gen", true, true},
		{"**/gen", "a/b/gen", true, true},

		{"R/*.R", "R/load.R", false, true},
		{"R/*.R", "R/sub/load.R", false, false},
		{"R/**/*.R", "R/sub/load.R", false, true},

		{"vendor", "vendor/pkg/x.py", false, true},
	}

	for _, tt := range tests {
		m := Compile([]string{tt.pattern})
		assert.Equal(t, tt.want, m.Match(tt.path, tt.isDir),
			"pattern %q path %q dir=%v", tt.pattern, tt.path, tt.isDir)
	}
}

func TestMatch_Negation(t *testing.T) {
	m := Compile([]string{"*.log", "!keep.log"})

	assert.True(t, m.Match("debug.log", false))
	assert.False(t, m.Match("keep.log", false))
	assert.True(t, m.Match("a/other.log", false))
}

func TestMatch_RootIsNeverIgnored(t *testing.T) {
	m := Compile([]string{"**"})
	assert.False(t, m.Match(".", true))
	assert.False(t, m.Match("", true))
}

func TestAddPattern_SkipsCommentsAndBlanks(t *testing.T) {
	m := NewMatcher()
	m.AddPatterns([]string{"# comment", "", "   ", "/", "*.log"})

	assert.Equal(t, 1, m.Len())
	assert.True(t, m.Match("x.log", false))
}

func TestDefaults(t *testing.T) {
	m := NewMatcher()
	m.LoadDefaults()

	tests := []struct {
		path  string
		isDir bool
		want  bool
	}{
		{".git", true, true},
		{".git/config", false, true},
		{".docgraph", true, true},
		{"node_modules/lib/index.js", false, true},
		{"pkg/__pycache__", true, true},
		{"pkg/mod.pyc", false, true},
		{"notes.txt~", false, true},
		{".DS_Store", false, true},
		{"R/load.R", false, false},
		{"scripts/run.sh", false, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, m.Match(tt.path, tt.isDir), "path %q dir=%v", tt.path, tt.isDir)
	}
}

func TestLoadFromDir(t *testing.T) {
	dir := t.TempDir()
	content := `# generated
out/
*.min.js
!keep.min.js
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644))

	m, err := LoadFromDir(dir, []string{"drafts/", "*.bak"})
	require.NoError(t, err)

	tests := []struct {
		path  string
		isDir bool
		want  bool
	}{
		{".git", true, true},
		{"drafts", true, true},
		{"old.bak", false, true},
		{"out", true, true},
		{"out/x.js", false, true},
		{"app.min.js", false, true},
		{"keep.min.js", false, false},
		{"src/app.js", false, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, m.Match(tt.path, tt.isDir), "path %q dir=%v", tt.path, tt.isDir)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	m := NewMatcher()
	assert.NoError(t, m.LoadFile(filepath.Join(t.TempDir(), FileName)))
	assert.Zero(t, m.Len())
}
