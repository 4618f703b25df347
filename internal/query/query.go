// Package query answers attribute-equality questions over the children of a
// container group by linear scan.
package query

import (
	"errors"
	"fmt"

	"github.com/banshee-data/brillouin/internal/container"
)

// FindByAttribute returns the names of the children of group whose key
// attribute equals value.
func FindByAttribute(tree container.Tree, group container.Node, key string, value container.Value) ([]string, error) {
	return FindByAttributes(tree, group, map[string]container.Value{key: value})
}

// FindByAttributes returns the names of the children of group matching
// every predicate. A child missing any predicate key does not match; an
// empty predicate matches every child. Results follow child name order.
func FindByAttributes(tree container.Tree, group container.Node, predicate map[string]container.Value) ([]string, error) {
	children, err := tree.ListChildren(group)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", group.Path, err)
	}

	matches := []string{}
	for _, child := range children {
		ok, err := matchAll(tree, child, predicate)
		if err != nil {
			return nil, err
		}
		if ok {
			matches = append(matches, child.Name)
		}
	}
	return matches, nil
}

func matchAll(tree container.Tree, n container.Node, predicate map[string]container.Value) (bool, error) {
	if len(predicate) == 0 {
		return true, nil
	}
	attrs, err := tree.Attrs(n)
	if err != nil {
		return false, fmt.Errorf("query %s: %w", n.Path, err)
	}
	for key, want := range predicate {
		got, ok := attrs[key]
		if !ok || !got.Equal(want) {
			return false, nil
		}
	}
	return true, nil
}

// RegistryContains reports whether the list attribute key on n holds value.
// An absent registry contains nothing.
func RegistryContains(tree container.Tree, n container.Node, key string, value container.Value) (bool, error) {
	v, err := tree.GetAttr(n, key)
	if errors.Is(err, container.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	switch v.Kind() {
	case container.KindFloats:
		want, ok := value.AsFloat()
		if !ok {
			return false, nil
		}
		fs, _ := v.AsFloats()
		for _, f := range fs {
			if container.Float(f).Equal(container.Float(want)) {
				return true, nil
			}
		}
	case container.KindStrings:
		want, ok := value.AsString()
		if !ok {
			return false, nil
		}
		ss, _ := v.AsStrings()
		for _, s := range ss {
			if s == want {
				return true, nil
			}
		}
	}
	return false, nil
}
