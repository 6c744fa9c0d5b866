package autoload

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeMap(t *testing.T, dir string, m Map) string {
	t.Helper()
	path := filepath.Join(dir, "psr4.json")
	data := `{"App\\\\":["src/App"],"Vendor\\\\Lib\\\\":["vendor/lib/src"]}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func TestLoadMap(t *testing.T) {
	dir := t.TempDir()
	path := writeMap(t, dir, nil)

	m, err := LoadMap(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"src/App"}, m["App\\"])
	assert.Equal(t, []string{"vendor/lib/src"}, m["Vendor\\Lib\\"])
}

func TestResolve_LongestPrefixWins(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src/App/Service"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src/App/Legacy"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src/App/Service/Mailer.php"), []byte("<?php"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src/App/Legacy/Mailer.php"), []byte("<?php"), 0o644))

	m := Map{
		"App\\":         {"src/App"},
		"App\\Service\\": {"src/App/Legacy"},
	}

	path, ok := Resolve("App\\Service\\Mailer", m, root)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "src/App/Legacy/Mailer.php"), path)
}

func TestResolve_NoMatch(t *testing.T) {
	_, ok := Resolve("Other\\Thing", Map{"App\\": {"src"}}, "/tmp")
	assert.False(t, ok)
}

func TestResolve_FallbackPathWhenFileMissing(t *testing.T) {
	root := t.TempDir()
	m := Map{"App\\": {"src/App"}}
	path, ok := Resolve("App\\Missing\\Thing", m, root)
	assert.False(t, ok)
	assert.Equal(t, filepath.Join(root, "src/App/Missing/Thing.php"), path)
}
