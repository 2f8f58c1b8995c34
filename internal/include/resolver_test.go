package include

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juev/ledger-beautifier/internal/parser"
)

func TestResolvePath(t *testing.T) {
	tests := []struct {
		name        string
		basePath    string
		includePath string
		want        string
	}{
		{"sibling file", "/books/main.journal", "accounts.journal", "/books/accounts.journal"},
		{"subdirectory", "/books/main.journal", "2024/jan.journal", "/books/2024/jan.journal"},
		{"parent directory", "/books/2024/main.journal", "../accounts.journal", "/books/accounts.journal"},
		{"dot segments", "/books/main.journal", "./2024/../accounts.journal", "/books/accounts.journal"},
		{"absolute", "/books/main.journal", "/etc/ledger/prices.journal", "/etc/ledger/prices.journal"},
		{"double slashes", "/books//main.journal", "a.journal", "/books/a.journal"},
		{"glob kept", "/books/main.journal", "2024/*.journal", "/books/2024/*.journal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolvePath(tt.basePath, tt.includePath))
		})
	}
}

func TestResolvePath_Home(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("cannot get home directory")
	}
	assert.Equal(t, filepath.Join(home, "books/a.journal"), ResolvePath("/x/main.journal", "~/books/a.journal"))
	assert.Equal(t, home, ResolvePath("/x/main.journal", "~"))
}

func TestExpand(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.journal", "a.journal", "c.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	base := filepath.Join(dir, "main.journal")

	got, err := Expand(base, "*.journal")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.journal"), filepath.Join(dir, "b.journal")}, got)

	got, err = Expand(base, "journal:missing.j")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "missing.j")}, got)

	got, err = Expand(base, "none-*.journal")
	require.NoError(t, err)
	assert.Empty(t, got)

	nested := filepath.Join(dir, "2024", "q1")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(nested, "jan.journal"), nil, 0o644))

	got, err = Expand(base, "**/*.journal")
	require.NoError(t, err)
	assert.Contains(t, got, filepath.Join(nested, "jan.journal"))
	assert.Contains(t, got, filepath.Join(dir, "a.journal"))
}

func TestIncludes(t *testing.T) {
	src := "include a.journal\n" +
		"2024-01-01 x\n    a  1\n    b\n" +
		"!include  sub/b.journal  ; shared\n" +
		"account include\n" +
		"include\n"
	tree, err := parser.Parse([]byte(src))
	require.NoError(t, err)

	includes := Includes(tree)
	require.Len(t, includes, 2)
	assert.Equal(t, Include{Path: "a.journal", Offset: 0}, includes[0])
	assert.Equal(t, "sub/b.journal", includes[1].Path)
	assert.Equal(t, len("include a.journal\n2024-01-01 x\n    a  1\n    b\n"), includes[1].Offset)
}
