package ignore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		want string
	}{
		{"empty", "", ""},
		{"whitespace only", "   ", ""},
		{"comment", "# build outputs", ""},
		{"negation dropped", "!keep.cs", ""},
		{"directory with slash", "bin/", "**/bin/**"},
		{"anchored directory", "/obj/", "**/obj/**"},
		{"bare directory name", "node_modules", "**/node_modules/**"},
		{"file glob", "*.user", "*.user"},
		{"file name", "secrets.json", "secrets.json"},
		{"nested path", "wwwroot/lib/jquery.js", "wwwroot/lib/jquery.js"},
		{"trailing whitespace trimmed", "packages/  ", "**/packages/**"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, convertLine(tt.line))
		})
	}
}

func TestLoadPatterns(t *testing.T) {
	root := t.TempDir()
	gitignore := `# build
bin/
obj/
*.user

# deps
packages/
node_modules
`
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"), []byte(gitignore), 0644))

	patterns, err := LoadPatterns(root)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"**/bin/**", "**/obj/**", "*.user", "**/packages/**", "**/node_modules/**",
	}, patterns)
}

func TestLoadPatternsDeduplicates(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"), []byte("bin/\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".ignore"), []byte("bin/\n*.tmp\n"), 0644))

	patterns, err := LoadPatterns(root)
	require.NoError(t, err)

	assert.Equal(t, []string{"**/bin/**", "*.tmp"}, patterns)
}

func TestLoadPatternsNoIgnoreFiles(t *testing.T) {
	patterns, err := LoadPatterns(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, patterns)
}
