package reader

import (
	"regexp"
	"strings"

	"github.com/peterson-umoke/intelephense/internal/resolver"
	"github.com/peterson-umoke/intelephense/internal/symbol"
)

// tagKind discriminates the shape of a docblock tag, per the "sum type
// with a kind discriminator" guidance in §9.
type tagKind int

const (
	tagParam tagKind = iota
	tagReturn
	tagVar
	tagProperty
	tagPropertyRead
	tagPropertyWrite
	tagMethod
)

type docTag struct {
	kind       tagKind
	typeText   string
	name       string // parameter/property/method name, when present
	returnType string // for @method, the declared return type
}

var (
	paramRe        = regexp.MustCompile(`@param\s+(\S+)\s+\$([A-Za-z_][A-Za-z0-9_]*)`)
	returnRe       = regexp.MustCompile(`@return\s+(\S+)`)
	varRe          = regexp.MustCompile(`@var\s+(\S+)(?:\s+\$([A-Za-z_][A-Za-z0-9_]*))?`)
	propertyRe     = regexp.MustCompile(`@property(-read|-write)?\s+(\S+)\s+\$([A-Za-z_][A-Za-z0-9_]*)`)
	methodRe       = regexp.MustCompile(`@method\s+(?:(\S+)\s+)?([A-Za-z_][A-Za-z0-9_]*)\s*\(`)
	leadingStarsRe = regexp.MustCompile(`(?m)^\s*/?\*+/?`)
	genericArrayRe = regexp.MustCompile(`(?i)^(?:array|iterable|list)\s*<\s*([^,>]+?)\s*(?:,\s*([^>]+?)\s*)?>$`)
)

// docblock holds the parsed summary and tags of one /** ... */ comment.
type docblock struct {
	summary string
	tags    []docTag
}

// parseDocblock parses a raw comment's text. Non-docblock comments
// ("// ..." or "/* ... */" without the doubled leading star) yield a
// zero-value docblock.
func parseDocblock(text string) docblock {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/**") {
		return docblock{}
	}

	var db docblock
	lines := strings.Split(text, "\n")
	for _, line := range lines {
		clean := strings.TrimSpace(leadingStarsRe.ReplaceAllString(line, ""))
		clean = strings.TrimSuffix(clean, "*/")
		clean = strings.TrimSpace(clean)
		if clean == "" {
			continue
		}
		if strings.HasPrefix(clean, "@") {
			db.tags = append(db.tags, parseTagLine(clean)...)
			continue
		}
		if db.summary == "" {
			db.summary = clean
		}
	}
	return db
}

func parseTagLine(line string) []docTag {
	switch {
	case strings.HasPrefix(line, "@param"):
		if m := paramRe.FindStringSubmatch(line); len(m) == 3 {
			return []docTag{{kind: tagParam, typeText: m[1], name: m[2]}}
		}
	case strings.HasPrefix(line, "@return"):
		if m := returnRe.FindStringSubmatch(line); len(m) == 2 {
			return []docTag{{kind: tagReturn, typeText: m[1]}}
		}
	case strings.HasPrefix(line, "@var"):
		if m := varRe.FindStringSubmatch(line); len(m) == 3 {
			return []docTag{{kind: tagVar, typeText: m[1], name: m[2]}}
		}
	case strings.HasPrefix(line, "@property"):
		if m := propertyRe.FindStringSubmatch(line); len(m) == 4 {
			kind := tagProperty
			switch m[1] {
			case "-read":
				kind = tagPropertyRead
			case "-write":
				kind = tagPropertyWrite
			}
			return []docTag{{kind: kind, typeText: m[2], name: m[3]}}
		}
	case strings.HasPrefix(line, "@method"):
		if m := methodRe.FindStringSubmatch(line); len(m) == 3 {
			return []docTag{{kind: tagMethod, returnType: m[1], name: m[2]}}
		}
	}
	return nil
}

// resolveTagType turns a docblock type expression (which may carry a `[]`
// array suffix, an `array<T>`/`iterable<T>`/`array<K,V>` generic form, a
// leading `?` nullability sigil, or a `|` union) into a TypeStr, resolving
// class atoms through res. An array/iterable element type, when known, is
// additionally recorded via symbol.ArrayOf so §4.H's foreach element-type
// deduction can recover it later.
func resolveTagType(expr string, res *resolver.Resolver) symbol.TypeStr {
	out := symbol.TypeStr{}
	for _, part := range strings.Split(expr, "|") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		nullable := strings.HasPrefix(part, "?")
		part = strings.TrimPrefix(part, "?")
		if nullable {
			out = out.Merge(symbol.NewTypeStr(symbol.TypeNull))
		}
		switch {
		case strings.EqualFold(part, "null"):
			out = out.Merge(symbol.NewTypeStr(symbol.TypeNull))
		case strings.HasSuffix(part, "[]"):
			out = out.Merge(symbol.NewTypeStr(symbol.TypeArray))
			out = out.Merge(arrayElementType(strings.TrimSuffix(part, "[]"), res))
		case genericArrayRe.MatchString(part):
			m := genericArrayRe.FindStringSubmatch(part)
			elem := m[1]
			if m[2] != "" {
				// array<K,V>: the value type is the element type.
				elem = m[2]
			}
			out = out.Merge(symbol.NewTypeStr(symbol.TypeArray))
			out = out.Merge(arrayElementType(elem, res))
		case symbol.IsScalarTag(part):
			out = out.Merge(symbol.NewTypeStr(strings.ToLower(part)))
		default:
			resolved := resolveWritten(res, part, symbol.KindClass)
			if resolved == "" {
				resolved = part
			}
			out = out.Merge(symbol.NewTypeStr(resolved))
		}
	}
	return out
}

// arrayElementType resolves a single (non-union) element-type expression
// to the symbol.ArrayOf atom recording it, or the empty TypeStr if elem is
// blank.
func arrayElementType(elem string, res *resolver.Resolver) symbol.TypeStr {
	elem = strings.TrimSpace(elem)
	if elem == "" {
		return symbol.TypeStr{}
	}
	if symbol.IsScalarTag(elem) {
		return symbol.NewTypeStr(symbol.ArrayOf(strings.ToLower(elem)))
	}
	resolved := resolveWritten(res, elem, symbol.KindClass)
	if resolved == "" {
		resolved = elem
	}
	return symbol.NewTypeStr(symbol.ArrayOf(resolved))
}
