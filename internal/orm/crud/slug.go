package crud

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/conduit-lang/docmodel/internal/orm/schema"
)

// Slugify folds diacritics and joins lowercase alphanumeric runs with hyphens
func Slugify(s string) string {
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	return b.String()
}

// computeSlugs derives every slug widget from its source fields
func computeSlugs(widgets schema.WidgetMap) {
	for _, w := range widgets.Ordered() {
		if w.Type.Kind != schema.KindSlug || len(w.SlugSources) == 0 {
			continue
		}

		parts := make([]string, 0, len(w.SlugSources))
		for _, src := range w.SlugSources {
			sw, ok := widgets[src]
			if !ok || schema.IsEmptyValue(sw.Value) {
				continue
			}
			parts = append(parts, fmt.Sprint(sw.Value))
		}
		w.Value = Slugify(strings.Join(parts, " "))
	}
}
