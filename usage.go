package optique

// UsageEntry is the usage metadata one parser exposes for help/error
// renderers — an out-of-scope collaborator (spec.md §1, §6). It is plain
// data; optique never turns it into formatted text itself.
type UsageEntry struct {
	Names       []string
	Metavar     string
	Description string
	DefaultHint string
	Group       string
	Children    []UsageEntry
}

// Describe returns the top-level parser's usage metadata tree.
func Describe[T any](p Parser[T]) UsageEntry {
	return p.node.usage()
}
