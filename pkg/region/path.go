package region

import "strings"

// Path resolver
// =============
//
// Paths are absolute, "/"-separated names. Resolution is a chain of
// directory lookups starting at the root inode (slot 0). An empty
// component — consecutive slashes, or the name after a trailing slash —
// never matches an entry, so such paths fail to resolve.

// Lookup resolves path fully and returns the inode of its final
// component, or NoNode on any miss. The root path "/" resolves to the
// root directory.
func (r *Region) Lookup(path string) NodeID {
	if !strings.HasPrefix(path, "/") {
		return NoNode
	}
	node := NodeID(0)
	if path == "/" {
		return node
	}
	for _, name := range strings.Split(path[1:], "/") {
		if node = r.DirLookup(node, name); node == NoNode {
			return NoNode
		}
	}
	return node
}

// LookupParent resolves path up to its final component and returns the
// parent directory's inode together with the leaf name. The leaf is not
// checked for existence — creation and removal decide that themselves.
// A path that is just "/" yields the root and an empty leaf, which every
// directory operation rejects.
func (r *Region) LookupParent(path string) (NodeID, string) {
	if !strings.HasPrefix(path, "/") {
		return NoNode, ""
	}
	node := NodeID(0)
	rest := path[1:]
	for {
		i := strings.IndexByte(rest, '/')
		if i < 0 {
			return node, rest
		}
		name := rest[:i]
		rest = rest[i+1:]
		if node = r.DirLookup(node, name); node == NoNode {
			return NoNode, ""
		}
	}
}
