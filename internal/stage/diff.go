package stage

import (
	"sort"

	"github.com/banshee-data/brillouin/internal/container"
)

// Diff lists the paths where a working copy departs from its committed
// snapshot. Added and Removed hold only the top of each new or deleted
// subtree; Altered holds every node whose attributes or payload changed.
type Diff struct {
	Added   []string `json:"added"`
	Removed []string `json:"removed"`
	Altered []string `json:"altered"`
}

// Empty reports whether the two trees are identical.
func (d Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Altered) == 0
}

type differ struct {
	d Diff
}

func (df *differ) added(p string, _ treeNode) (bool, error) {
	df.d.Added = append(df.d.Added, p)
	return false, nil
}

func (df *differ) removed(p string, _ treeNode) error {
	df.d.Removed = append(df.d.Removed, p)
	return nil
}

func (df *differ) matched(p string, l, r treeNode) error {
	var same bool
	switch {
	case l.node.Kind != r.node.Kind:
		same = false
	case l.node.Kind == container.NodeGroup:
		same = container.AttrsEqual(l.attrs, r.attrs)
	default:
		same = l.array.Equal(r.array)
	}
	if !same {
		df.d.Altered = append(df.d.Altered, p)
	}
	return nil
}

// Compare diffs working against committed. Every list in the result is
// sorted and non-nil.
func Compare(working, committed container.Tree) (Diff, error) {
	df := &differ{d: Diff{Added: []string{}, Removed: []string{}, Altered: []string{}}}
	if err := (walker{left: working, right: committed, s: df}).run(); err != nil {
		return Diff{}, err
	}
	sort.Strings(df.d.Added)
	sort.Strings(df.d.Removed)
	sort.Strings(df.d.Altered)
	return df.d, nil
}
