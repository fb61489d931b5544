package effect

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// IDSeparator joins the segments of a hierarchical effect id.
const IDSeparator = "/"

// ID builds a namespaced effect id such as "search/query".
//
// Segments are NFC normalized so that visually identical ids built from
// differently composed input are the same key. Empty segments are skipped.
func ID(parts ...string) string {
	segs := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(norm.NFC.String(p), IDSeparator)
		if p == "" {
			continue
		}
		segs = append(segs, p)
	}
	return strings.Join(segs, IDSeparator)
}

// Scoped prefixes every keyed effect in e with namespace. Lets a feature reuse
// short ids without colliding with siblings in the same store.
func Scoped[A any](namespace string, e Effect[A]) Effect[A] {
	if e.kind == KindBatch {
		children := make([]Effect[A], len(e.children))
		for i, child := range e.children {
			children[i] = Scoped(namespace, child)
		}
		e.children = children
		return e
	}
	if e.kind.Keyed() {
		e.id = ID(namespace, e.id)
	}
	return e
}
