package container

import (
	"database/sql"
	"errors"
	"fmt"
	"path"
	"strings"
)

// NodeKind distinguishes groups from array datasets.
type NodeKind uint8

const (
	NodeGroup NodeKind = 1
	NodeArray NodeKind = 2
)

func (k NodeKind) String() string {
	switch k {
	case NodeGroup:
		return "group"
	case NodeArray:
		return "array"
	}
	return "unknown"
}

// Node identifies a group or array inside one open container. Node values
// are not portable between files.
type Node struct {
	ID   int64
	Name string
	Path string
	Kind NodeKind
}

func (n Node) IsGroup() bool { return n.Kind == NodeGroup }

const rootID = 1

// Tree is the hierarchical document API shared by *File and *Tx.
type Tree interface {
	Root() Node
	Lookup(p string) (Node, error)
	CreateGroup(parent Node, name string) (Node, error)
	OpenGroup(parent Node, name string) (Node, error)
	Child(parent Node, name string) (Node, error)
	ListChildren(group Node) ([]Node, error)
	GetAttr(n Node, key string) (Value, error)
	Attrs(n Node) (map[string]Value, error)
	SetAttr(n Node, key string, v Value) error
	SetAttrs(n Node, attrs map[string]Value) error
	Delete(n Node) error
	CreateArray(group Node, name string, a Array) (Node, error)
	ReadArray(group Node, name string) (Array, error)
	ReadArrayNode(n Node) (Array, error)
	ReplaceArray(group Node, name string, a Array) error
}

var (
	_ Tree = (*File)(nil)
	_ Tree = (*Tx)(nil)
)

type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// handle implements Tree over either the database or an open transaction.
type handle struct {
	q        querier
	path     string
	readOnly bool
	live     func() error
}

func (h handle) readable() error { return h.live() }

func (h handle) writable() error {
	if err := h.live(); err != nil {
		return err
	}
	if h.readOnly {
		return ErrReadOnly
	}
	return nil
}

func (h handle) fail(op string, err error) error {
	return ioErr(op, h.path, err)
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, "/\x00") {
		return fmt.Errorf("%q: %w", name, ErrInvalidName)
	}
	return nil
}

// Root returns the root group "/".
func (h handle) Root() Node {
	return Node{ID: rootID, Path: "/", Kind: NodeGroup}
}

// Lookup resolves an absolute slash-separated path.
func (h handle) Lookup(p string) (Node, error) {
	if err := h.readable(); err != nil {
		return Node{}, err
	}
	n := h.Root()
	for _, part := range strings.Split(strings.Trim(path.Clean("/"+p), "/"), "/") {
		if part == "" {
			continue
		}
		next, err := h.Child(n, part)
		if err != nil {
			return Node{}, err
		}
		n = next
	}
	return n, nil
}

// kindOf reports the kind of a live node, or ErrNotFound.
func (h handle) kindOf(n Node) (NodeKind, error) {
	var kind NodeKind
	err := h.q.QueryRow(`SELECT kind FROM nodes WHERE id = ?`, n.ID).Scan(&kind)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, notFound(n.Path)
	}
	if err != nil {
		return 0, h.fail("stat", err)
	}
	return kind, nil
}

func (h handle) requireGroup(n Node) error {
	kind, err := h.kindOf(n)
	if err != nil {
		return err
	}
	if kind != NodeGroup {
		return fmt.Errorf("%s: %w", n.Path, ErrNotGroup)
	}
	return nil
}

func (h handle) insertNode(parent Node, name string, kind NodeKind) (Node, error) {
	if err := validName(name); err != nil {
		return Node{}, err
	}
	if err := h.requireGroup(parent); err != nil {
		return Node{}, err
	}
	p := path.Join(parent.Path, name)
	if _, err := h.Child(parent, name); err == nil {
		return Node{}, fmt.Errorf("%s: %w", p, ErrAlreadyExists)
	} else if !errors.Is(err, ErrNotFound) {
		return Node{}, err
	}
	res, err := h.q.Exec(`INSERT INTO nodes (parent_id, name, kind) VALUES (?, ?, ?)`, parent.ID, name, int64(kind))
	if err != nil {
		return Node{}, h.fail("insert "+p, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Node{}, h.fail("insert "+p, err)
	}
	return Node{ID: id, Name: name, Path: p, Kind: kind}, nil
}

// CreateGroup adds an empty group under parent.
func (h handle) CreateGroup(parent Node, name string) (Node, error) {
	if err := h.writable(); err != nil {
		return Node{}, err
	}
	return h.insertNode(parent, name, NodeGroup)
}

// OpenGroup returns the named child group of parent.
func (h handle) OpenGroup(parent Node, name string) (Node, error) {
	n, err := h.Child(parent, name)
	if err != nil {
		return Node{}, err
	}
	if n.Kind != NodeGroup {
		return Node{}, fmt.Errorf("%s: %w", n.Path, ErrNotGroup)
	}
	return n, nil
}

// Child returns the named child of parent, group or array.
func (h handle) Child(parent Node, name string) (Node, error) {
	if err := h.readable(); err != nil {
		return Node{}, err
	}
	p := path.Join(parent.Path, name)
	var n Node
	err := h.q.QueryRow(`SELECT id, kind FROM nodes WHERE parent_id = ? AND name = ?`, parent.ID, name).Scan(&n.ID, &n.Kind)
	if errors.Is(err, sql.ErrNoRows) {
		return Node{}, notFound(p)
	}
	if err != nil {
		return Node{}, h.fail("lookup "+p, err)
	}
	n.Name = name
	n.Path = p
	return n, nil
}

// ListChildren returns the children of group in byte order of their names.
func (h handle) ListChildren(group Node) ([]Node, error) {
	if err := h.readable(); err != nil {
		return nil, err
	}
	if err := h.requireGroup(group); err != nil {
		return nil, err
	}
	rows, err := h.q.Query(`SELECT id, name, kind FROM nodes WHERE parent_id = ? ORDER BY name`, group.ID)
	if err != nil {
		return nil, h.fail("list "+group.Path, err)
	}
	defer rows.Close()

	var out []Node
	for rows.Next() {
		var n Node
		if err := rows.Scan(&n.ID, &n.Name, &n.Kind); err != nil {
			return nil, h.fail("list "+group.Path, err)
		}
		n.Path = path.Join(group.Path, n.Name)
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, h.fail("list "+group.Path, err)
	}
	return out, nil
}

// GetAttr reads one attribute. Missing keys report ErrNotFound.
func (h handle) GetAttr(n Node, key string) (Value, error) {
	if err := h.readable(); err != nil {
		return Value{}, err
	}
	var (
		kind ValueKind
		num  sql.NullInt64
		text sql.NullString
		data []byte
	)
	err := h.q.QueryRow(`SELECT kind, num, text, data FROM attrs WHERE node_id = ? AND key = ?`, n.ID, key).
		Scan(&kind, &num, &text, &data)
	if errors.Is(err, sql.ErrNoRows) {
		if _, kerr := h.kindOf(n); kerr != nil {
			return Value{}, kerr
		}
		return Value{}, notFound(n.Path + "@" + key)
	}
	if err != nil {
		return Value{}, h.fail("getattr "+n.Path, err)
	}
	v, err := decodeValue(kind, nullInt(num), nullString(text), data)
	if err != nil {
		return Value{}, h.fail("getattr "+n.Path+"@"+key, err)
	}
	return v, nil
}

// Attrs reads every attribute of n.
func (h handle) Attrs(n Node) (map[string]Value, error) {
	if err := h.readable(); err != nil {
		return nil, err
	}
	if _, err := h.kindOf(n); err != nil {
		return nil, err
	}
	rows, err := h.q.Query(`SELECT key, kind, num, text, data FROM attrs WHERE node_id = ?`, n.ID)
	if err != nil {
		return nil, h.fail("attrs "+n.Path, err)
	}
	defer rows.Close()

	out := make(map[string]Value)
	for rows.Next() {
		var (
			key  string
			kind ValueKind
			num  sql.NullInt64
			text sql.NullString
			data []byte
		)
		if err := rows.Scan(&key, &kind, &num, &text, &data); err != nil {
			return nil, h.fail("attrs "+n.Path, err)
		}
		v, err := decodeValue(kind, nullInt(num), nullString(text), data)
		if err != nil {
			return nil, h.fail("attrs "+n.Path+"@"+key, err)
		}
		out[key] = v
	}
	if err := rows.Err(); err != nil {
		return nil, h.fail("attrs "+n.Path, err)
	}
	return out, nil
}

// SetAttr writes or overwrites one attribute.
func (h handle) SetAttr(n Node, key string, v Value) error {
	if err := h.writable(); err != nil {
		return err
	}
	if _, err := h.kindOf(n); err != nil {
		return err
	}
	return h.putAttr(n, key, v)
}

// SetAttrs writes several attributes. Use it inside Update for atomicity.
func (h handle) SetAttrs(n Node, attrs map[string]Value) error {
	if err := h.writable(); err != nil {
		return err
	}
	if _, err := h.kindOf(n); err != nil {
		return err
	}
	for key, v := range attrs {
		if err := h.putAttr(n, key, v); err != nil {
			return err
		}
	}
	return nil
}

func (h handle) putAttr(n Node, key string, v Value) error {
	if key == "" {
		return fmt.Errorf("empty attribute key: %w", ErrInvalidName)
	}
	num, text, data, err := encodeValue(v)
	if err != nil {
		return fmt.Errorf("%s@%s: %w", n.Path, key, err)
	}
	_, err = h.q.Exec(`INSERT INTO attrs (node_id, key, kind, num, text, data) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (node_id, key) DO UPDATE SET kind = excluded.kind, num = excluded.num,
		text = excluded.text, data = excluded.data`,
		n.ID, key, int64(v.Kind()), num, text, data)
	if err != nil {
		return h.fail("setattr "+n.Path+"@"+key, err)
	}
	return nil
}

// Delete removes n with all descendants, attributes and array payloads in a
// single statement.
func (h handle) Delete(n Node) error {
	if err := h.writable(); err != nil {
		return err
	}
	if n.ID == rootID {
		return fmt.Errorf("cannot delete root: %w", ErrInvalidName)
	}
	res, err := h.q.Exec(`DELETE FROM nodes WHERE id = ?`, n.ID)
	if err != nil {
		return h.fail("delete "+n.Path, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return h.fail("delete "+n.Path, err)
	}
	if affected == 0 {
		return notFound(n.Path)
	}
	return nil
}

// CreateArray adds an array dataset under group.
func (h handle) CreateArray(group Node, name string, a Array) (Node, error) {
	if err := h.writable(); err != nil {
		return Node{}, err
	}
	if a.DType() == DTypeInvalid {
		return Node{}, fmt.Errorf("%s: array has no dtype", path.Join(group.Path, name))
	}
	n, err := h.insertNode(group, name, NodeArray)
	if err != nil {
		return Node{}, err
	}
	if _, err := h.q.Exec(`INSERT INTO arrays (node_id, dtype, length, data) VALUES (?, ?, ?, ?)`,
		n.ID, int64(a.DType()), a.Len(), a.raw); err != nil {
		return Node{}, h.fail("write "+n.Path, err)
	}
	return n, nil
}

// ReadArray reads the named array child of group.
func (h handle) ReadArray(group Node, name string) (Array, error) {
	n, err := h.Child(group, name)
	if err != nil {
		return Array{}, err
	}
	return h.ReadArrayNode(n)
}

// ReadArrayNode reads the payload of an array node.
func (h handle) ReadArrayNode(n Node) (Array, error) {
	if err := h.readable(); err != nil {
		return Array{}, err
	}
	var (
		dtype  DType
		length int64
		data   []byte
	)
	err := h.q.QueryRow(`SELECT dtype, length, data FROM arrays WHERE node_id = ?`, n.ID).Scan(&dtype, &length, &data)
	if errors.Is(err, sql.ErrNoRows) {
		if _, kerr := h.kindOf(n); kerr != nil {
			return Array{}, kerr
		}
		return Array{}, fmt.Errorf("%s: %w", n.Path, ErrNotArray)
	}
	if err != nil {
		return Array{}, h.fail("read "+n.Path, err)
	}
	a, err := decodeArray(dtype, length, data)
	if err != nil {
		return Array{}, h.fail("read "+n.Path, err)
	}
	return a, nil
}

// ReplaceArray overwrites the payload of an existing array child, creating
// it when absent.
func (h handle) ReplaceArray(group Node, name string, a Array) error {
	if err := h.writable(); err != nil {
		return err
	}
	n, err := h.Child(group, name)
	if errors.Is(err, ErrNotFound) {
		_, err = h.CreateArray(group, name, a)
		return err
	}
	if err != nil {
		return err
	}
	if n.Kind != NodeArray {
		return fmt.Errorf("%s: %w", n.Path, ErrNotArray)
	}
	if _, err := h.q.Exec(`UPDATE arrays SET dtype = ?, length = ?, data = ? WHERE node_id = ?`,
		int64(a.DType()), a.Len(), a.raw, n.ID); err != nil {
		return h.fail("write "+n.Path, err)
	}
	return nil
}

func nullInt(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	return &n.Int64
}

func nullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}
