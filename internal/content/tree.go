// Package content builds the ordered content hierarchy of a site.
//
// The tree is an arena: nodes live in one slice and refer to each other by
// index. A node's Parent is a plain index and its Children are owned index
// lists, so the structure has no pointer cycles and can be shared read-only
// by concurrent renderers.
package content

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/disiqueira/gotree/v3"
	"golang.org/x/text/cases"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// NodeID indexes Tree.Nodes.
type NodeID int

// NoParent marks the root node.
const NoParent NodeID = -1

// Node is one arena slot.
type Node struct {
	ID       NodeID
	Key      string // page ID for pages, directory path for directories
	Name     string // sort name
	Path     string // relative source path (file or directory)
	Page     *Page  // nil for transparent directories
	Parent   NodeID
	Children []NodeID
	IsDir    bool

	seq int // discovery order of the first page seen under this node
}

// Tree is the content hierarchy of one build.
type Tree struct {
	Nodes []Node
	Root  NodeID
	Index map[string]NodeID
}

// Build arranges pages into a tree. Pages must be in discovery order.
func Build(pages []*Page) (*Tree, error) {
	t := &Tree{Root: 0, Index: make(map[string]NodeID, len(pages))}
	t.Nodes = append(t.Nodes, Node{ID: 0, Parent: NoParent, IsDir: true, seq: -1})
	dirs := map[string]NodeID{".": 0}
	owner := make(map[string]string, len(pages))

	for _, p := range pages {
		if prev, dup := owner[p.ID]; dup {
			return nil, errors.DuplicateIdentifierError(fmt.Sprintf("duplicate page identifier %q", p.ID)).
				WithPath(p.Source.RelPath).
				WithContext(errors.KeyOtherPath, prev).
				Build()
		}
		owner[p.ID] = p.Source.RelPath

		dir := t.ensureDir(dirs, path.Dir(p.Source.RelPath), p.Source.Index)
		if IsIndex(p.Source.RelPath) {
			node := &t.Nodes[dir]
			node.Page = p
			node.seq = p.Source.Index
			t.Index[p.ID] = dir
			continue
		}

		id := t.add(Node{
			Key:    p.ID,
			Name:   strings.TrimSuffix(path.Base(p.Source.RelPath), path.Ext(p.Source.RelPath)),
			Path:   p.Source.RelPath,
			Page:   p,
			Parent: dir,
			seq:    p.Source.Index,
		})
		t.Index[p.ID] = id
	}

	fold := cases.Fold()
	for i := range t.Nodes {
		t.sortChildren(NodeID(i), fold)
	}
	return t, nil
}

func (t *Tree) add(n Node) NodeID {
	n.ID = NodeID(len(t.Nodes))
	t.Nodes = append(t.Nodes, n)
	if n.Parent != NoParent {
		t.Nodes[n.Parent].Children = append(t.Nodes[n.Parent].Children, n.ID)
	}
	return n.ID
}

// ensureDir returns the node of dir, creating it and its ancestors.
func (t *Tree) ensureDir(dirs map[string]NodeID, dir string, seq int) NodeID {
	if id, ok := dirs[dir]; ok {
		return id
	}
	parent := t.ensureDir(dirs, path.Dir(dir), seq)
	id := t.add(Node{
		Key:    dir,
		Name:   path.Base(dir),
		Path:   dir,
		Parent: parent,
		IsDir:  true,
		seq:    seq,
	})
	dirs[dir] = id
	return id
}

func (t *Tree) sortChildren(id NodeID, fold cases.Caser) {
	children := t.Nodes[id].Children
	sort.SliceStable(children, func(i, j int) bool {
		return less(&t.Nodes[children[i]], &t.Nodes[children[j]], fold)
	})
}

// less is the sibling comparator: explicit order key (keyed first), then
// case-folded name, then discovery order, then raw path.
func less(a, b *Node, fold cases.Caser) bool {
	ao, bo := orderKey(a), orderKey(b)
	switch {
	case ao != nil && bo != nil && *ao != *bo:
		return *ao < *bo
	case ao != nil && bo == nil:
		return true
	case ao == nil && bo != nil:
		return false
	}
	if an, bn := fold.String(a.Name), fold.String(b.Name); an != bn {
		return an < bn
	}
	if a.seq != b.seq {
		return a.seq < b.seq
	}
	return a.Path < b.Path
}

func orderKey(n *Node) *int {
	if n.Page == nil {
		return nil
	}
	return n.Page.Meta.Order
}

// Node returns the node with the given id.
func (t *Tree) Node(id NodeID) *Node {
	return &t.Nodes[id]
}

// Lookup finds the node carrying the page with the given ID.
func (t *Tree) Lookup(pageID string) (*Node, bool) {
	id, ok := t.Index[pageID]
	if !ok {
		return nil, false
	}
	return &t.Nodes[id], true
}

// Walk visits nodes in pre-order: a node, then its children in order.
// Returning false from fn stops the walk below that node.
func (t *Tree) Walk(fn func(n *Node, depth int) bool) {
	var visit func(id NodeID, depth int)
	visit = func(id NodeID, depth int) {
		n := &t.Nodes[id]
		if !fn(n, depth) {
			return
		}
		for _, c := range n.Children {
			visit(c, depth+1)
		}
	}
	visit(t.Root, 0)
}

// Pages returns every page in pre-order.
func (t *Tree) Pages() []*Page {
	var out []*Page
	t.Walk(func(n *Node, _ int) bool {
		if n.Page != nil {
			out = append(out, n.Page)
		}
		return true
	})
	return out
}

// Print renders the hierarchy as an indented text tree.
func (t *Tree) Print(rootLabel string) string {
	root := gotree.New(t.label(&t.Nodes[t.Root], rootLabel))
	var attach func(parent gotree.Tree, id NodeID)
	attach = func(parent gotree.Tree, id NodeID) {
		for _, c := range t.Nodes[id].Children {
			child := parent.Add(t.label(&t.Nodes[c], ""))
			attach(child, c)
		}
	}
	attach(root, t.Root)
	return root.Print()
}

func (t *Tree) label(n *Node, fallback string) string {
	if n.Page == nil {
		if n.Parent == NoParent {
			return fallback
		}
		return n.Name + "/"
	}
	label := fmt.Sprintf("%s (%s)", n.Page.Meta.Title, n.Page.Source.RelPath)
	if o := n.Page.Meta.Order; o != nil {
		label += fmt.Sprintf(" [%d]", *o)
	}
	return label
}
