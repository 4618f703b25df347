package stage

import (
	"path"
	"sort"

	"github.com/banshee-data/brillouin/internal/container"
)

// treeNode is one side of a walked pair: a group with its attributes or an
// array with its payload.
type treeNode struct {
	node  container.Node
	attrs map[string]container.Value
	array container.Array
}

func load(t container.Tree, n container.Node) (treeNode, error) {
	tn := treeNode{node: n}
	var err error
	if n.Kind == container.NodeGroup {
		tn.attrs, err = t.Attrs(n)
	} else {
		tn.array, err = t.ReadArrayNode(n)
	}
	return tn, err
}

// strategy receives the pairs produced by walker. The left tree is the
// source of truth: the working copy when diffing, the source when copying.
type strategy interface {
	// added handles a name present only on the left. Returning true walks
	// the group's children against an absent right side.
	added(p string, l treeNode) (descend bool, err error)
	// removed handles a name present only on the right.
	removed(p string, r treeNode) error
	// matched handles a name present on both sides. The walker always
	// recurses into matched groups afterwards.
	matched(p string, l, r treeNode) error
}

type walker struct {
	left, right container.Tree
	s           strategy
}

// run pairs the two roots and then walks both trees in lock-step.
func (w walker) run() error {
	lroot, rroot := w.left.Root(), w.right.Root()
	l, err := load(w.left, lroot)
	if err != nil {
		return err
	}
	r, err := load(w.right, rroot)
	if err != nil {
		return err
	}
	if err := w.s.matched("/", l, r); err != nil {
		return err
	}
	return w.walk(lroot, &rroot)
}

func (w walker) walk(l container.Node, r *container.Node) error {
	lchildren, err := w.left.ListChildren(l)
	if err != nil {
		return err
	}
	rest := map[string]container.Node{}
	if r != nil {
		rchildren, err := w.right.ListChildren(*r)
		if err != nil {
			return err
		}
		for _, c := range rchildren {
			rest[c.Name] = c
		}
	}

	for _, lc := range lchildren {
		ln, err := load(w.left, lc)
		if err != nil {
			return err
		}
		p := path.Join(l.Path, lc.Name)

		rc, ok := rest[lc.Name]
		if !ok {
			descend, err := w.s.added(p, ln)
			if err != nil {
				return err
			}
			if descend && lc.Kind == container.NodeGroup {
				if err := w.walk(lc, nil); err != nil {
					return err
				}
			}
			continue
		}
		delete(rest, lc.Name)

		rn, err := load(w.right, rc)
		if err != nil {
			return err
		}
		if err := w.s.matched(p, ln, rn); err != nil {
			return err
		}
		if lc.Kind == container.NodeGroup && rc.Kind == container.NodeGroup {
			if err := w.walk(lc, &rc); err != nil {
				return err
			}
		}
	}

	names := make([]string, 0, len(rest))
	for name := range rest {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		rn, err := load(w.right, rest[name])
		if err != nil {
			return err
		}
		if err := w.s.removed(path.Join(l.Path, name), rn); err != nil {
			return err
		}
	}
	return nil
}

// copier replicates the left tree into dst. Group nodes created so far are
// indexed by their source path.
type copier struct {
	dst     container.Tree
	created map[string]container.Node
}

func (c *copier) added(p string, l treeNode) (bool, error) {
	parent := c.created[path.Dir(p)]
	if l.node.Kind == container.NodeArray {
		_, err := c.dst.CreateArray(parent, l.node.Name, l.array)
		return false, err
	}
	g, err := c.dst.CreateGroup(parent, l.node.Name)
	if err != nil {
		return false, err
	}
	if err := c.dst.SetAttrs(g, l.attrs); err != nil {
		return false, err
	}
	c.created[p] = g
	return true, nil
}

func (c *copier) removed(string, treeNode) error { return nil }

func (c *copier) matched(p string, l, r treeNode) error {
	if l.node.Kind == container.NodeArray {
		return c.dst.ReplaceArray(c.created[path.Dir(p)], l.node.Name, l.array)
	}
	c.created[p] = r.node
	return c.dst.SetAttrs(r.node, l.attrs)
}

// CopyTree deep-copies every group, attribute and array of src into dst,
// starting from the root attributes.
func CopyTree(src, dst container.Tree) error {
	return walker{left: src, right: dst, s: &copier{dst: dst, created: map[string]container.Node{}}}.run()
}

// CopySubtree copies src, with all descendants, to a new child called name
// under dstParent. Both ends live in t; dstParent must not be inside src.
func CopySubtree(t container.Tree, src, dstParent container.Node, name string) (container.Node, error) {
	tn, err := load(t, src)
	if err != nil {
		return container.Node{}, err
	}
	if src.Kind == container.NodeArray {
		return t.CreateArray(dstParent, name, tn.array)
	}
	g, err := t.CreateGroup(dstParent, name)
	if err != nil {
		return container.Node{}, err
	}
	if err := t.SetAttrs(g, tn.attrs); err != nil {
		return container.Node{}, err
	}
	c := &copier{dst: t, created: map[string]container.Node{src.Path: g}}
	if err := (walker{left: t, right: t, s: c}).walk(src, nil); err != nil {
		return container.Node{}, err
	}
	return g, nil
}
