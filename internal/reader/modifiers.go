package reader

import (
	"strings"

	"github.com/peterson-umoke/intelephense/internal/phptree"
	"github.com/peterson-umoke/intelephense/internal/symbol"
)

// modifiersOf decodes the modifier flags on a declaration node, matching
// the teacher's visibility_modifier scan (internal/php/context.go,
// functionInfoFromMethod) generalized to the full modifier bitset.
// isMember gates whether a missing visibility_modifier defaults to
// Public: only members carry access modifiers (§3 invariant).
func modifiersOf(n phptree.Node, isMember bool) symbol.Modifier {
	var mods symbol.Modifier
	hasVisibility := false
	for _, child := range n.Children() {
		switch child.Kind() {
		case "visibility_modifier":
			hasVisibility = true
			switch strings.ToLower(strings.TrimSpace(child.Content())) {
			case "private":
				mods |= symbol.ModPrivate
			case "protected":
				mods |= symbol.ModProtected
			default:
				mods |= symbol.ModPublic
			}
		case "static_modifier":
			mods |= symbol.ModStatic
		case "abstract_modifier":
			mods |= symbol.ModAbstract
		case "final_modifier":
			mods |= symbol.ModFinal
		case "readonly_modifier":
			mods |= symbol.ModReadOnly
		}
	}
	if !hasVisibility && isMember {
		mods |= symbol.ModPublic
	}
	return mods
}
