// Package autoload implements PSR-4 class-name-to-file resolution, so
// go-to-definition and the type aggregate's associated-set walk can follow
// a reference into a file the editor has never opened.
//
// Adapted from the teacher's internal/config autoload resolver: the
// teacher shells out to `php -r` to evaluate composer's generated
// autoload_psr4.php map file. This engine's core should not require a PHP
// interpreter on the host to run its tests (§1 treats on-disk persistence
// and external tooling as the surrounding system's concern, not the
// core's), so LoadMap here reads a JSON-encoded PSR-4 map directly; a
// thin shell-out step producing that JSON belongs to the CLI/host layer
// this specification places out of scope.
package autoload

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// Map is a PSR-4 prefix table: namespace prefix -> candidate base
// directories, mirroring composer's generated autoload_psr4.php shape.
type Map map[string][]string

// IsEmpty reports whether m has no prefixes registered.
func (m Map) IsEmpty() bool {
	return len(m) == 0
}

// LoadMap reads a JSON-encoded PSR-4 map from path (prefix -> []dir).
func LoadMap(path string) (Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Map
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// Resolve locates the file that should define fqn (a fully-qualified
// class/interface/trait name, without a leading separator) under m,
// relative to root. It picks the longest matching namespace prefix,
// mirroring PSR-4's own longest-prefix precedence.
func Resolve(fqn string, m Map, root string) (string, bool) {
	fqn = strings.TrimPrefix(fqn, "\\")
	if fqn == "" || m.IsEmpty() {
		return "", false
	}

	var bestPrefix string
	var bestDirs []string
	for prefix, dirs := range m {
		p := strings.TrimSuffix(prefix, "\\")
		if p != "" && !strings.HasPrefix(fqn+"\\", p+"\\") {
			continue
		}
		if len(p) > len(bestPrefix) || bestDirs == nil {
			bestPrefix, bestDirs = p, dirs
		}
	}
	if bestDirs == nil {
		return "", false
	}

	rest := strings.TrimPrefix(fqn, bestPrefix)
	rest = strings.TrimPrefix(rest, "\\")
	relPath := strings.ReplaceAll(rest, "\\", string(filepath.Separator)) + ".php"

	for _, dir := range bestDirs {
		candidate := dir
		if !filepath.IsAbs(candidate) {
			candidate = filepath.Join(root, candidate)
		}
		full := filepath.Join(candidate, relPath)
		if _, err := os.Stat(full); err == nil {
			return full, true
		}
	}
	// No file exists yet on disk; still return the most likely location
	// under the first candidate directory so callers can decide.
	candidate := bestDirs[0]
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(root, candidate)
	}
	return filepath.Join(candidate, relPath), false
}
