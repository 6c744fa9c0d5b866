package reader

import (
	"strings"

	"github.com/peterson-umoke/intelephense/internal/resolver"
	"github.com/peterson-umoke/intelephense/internal/symbol"
)

// resolveWritten detects a written name's relativity and resolves it
// against res for the given kind, per §4.B.
func resolveWritten(res *resolver.Resolver, raw string, kind symbol.Kind) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, "\\") {
		return res.Resolve(raw, kind, resolver.FullyQualified)
	}
	if strings.HasPrefix(strings.ToLower(raw), "namespace\\") {
		rest := raw[len("namespace\\"):]
		return res.Resolve(rest, kind, resolver.Relative)
	}
	return res.Resolve(raw, kind, resolver.Unqualified)
}

func shortName(fqn string) string {
	if idx := strings.LastIndex(fqn, "\\"); idx >= 0 {
		return fqn[idx+1:]
	}
	return fqn
}
