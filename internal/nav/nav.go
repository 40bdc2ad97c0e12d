// Package nav derives prev/next links and breadcrumbs from a content tree.
package nav

import (
	"fmt"
	"path"

	"git.home.luguber.info/inful/sitebuilder/internal/content"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/metadata"
)

// Link points at another page.
type Link struct {
	ID         string
	Title      string
	OutputPath string
}

// Crumb is one breadcrumb entry. Transparent directories have no page.
type Crumb struct {
	ID         string
	Title      string
	OutputPath string
	HasPage    bool
}

// Context is the navigation of one page.
type Context struct {
	Prev        *Link
	Next        *Link
	Breadcrumbs []Crumb
}

// Index holds the navigation of every page of a tree.
type Index struct {
	order    []Link
	contexts map[string]Context
}

// Resolve flattens the tree in pre-order and computes every page's context.
func Resolve(tree *content.Tree, siteTitle string) (*Index, error) {
	order, err := flatten(tree)
	if err != nil {
		return nil, err
	}

	ix := &Index{contexts: make(map[string]Context, len(order))}
	for i, id := range order {
		n := tree.Node(id)
		ix.order = append(ix.order, linkTo(n.Page))

		crumbs, err := breadcrumbs(tree, id, siteTitle)
		if err != nil {
			return nil, err
		}
		ctx := Context{Breadcrumbs: crumbs}
		if i > 0 {
			ctx.Prev = ptr(linkTo(tree.Node(order[i-1]).Page))
		}
		if i+1 < len(order) {
			ctx.Next = ptr(linkTo(tree.Node(order[i+1]).Page))
		}
		ix.contexts[n.Page.ID] = ctx
	}
	return ix, nil
}

// For returns the navigation context of a page.
func (ix *Index) For(pageID string) (Context, bool) {
	ctx, ok := ix.contexts[pageID]
	return ctx, ok
}

// Pages returns links to every page in traversal order.
func (ix *Index) Pages() []Link {
	out := make([]Link, len(ix.order))
	copy(out, ix.order)
	return out
}

// Len is the number of pages taking part in navigation.
func (ix *Index) Len() int { return len(ix.order) }

func linkTo(p *content.Page) Link {
	return Link{ID: p.ID, Title: p.Meta.Title, OutputPath: p.OutputPath}
}

func ptr(l Link) *Link { return &l }

// flatten walks the tree in pre-order and returns nodes carrying pages.
func flatten(tree *content.Tree) ([]content.NodeID, error) {
	var order []content.NodeID
	visited := make([]bool, len(tree.Nodes))

	var visit func(id content.NodeID) error
	visit = func(id content.NodeID) error {
		if int(id) < 0 || int(id) >= len(tree.Nodes) {
			return errors.InternalError(fmt.Sprintf("node %d out of range", id)).Build()
		}
		if visited[id] {
			return errors.InternalError(fmt.Sprintf("content tree has a cycle at node %d", id)).Build()
		}
		visited[id] = true

		n := tree.Node(id)
		if n.Page != nil {
			order = append(order, id)
		}
		for _, c := range n.Children {
			if int(c) >= 0 && int(c) < len(tree.Nodes) && tree.Node(c).Parent != id {
				return errors.InternalError(fmt.Sprintf("node %d is listed under %d but its parent is %d", c, id, tree.Node(c).Parent)).Build()
			}
			if err := visit(c); err != nil {
				return err
			}
		}
		return nil
	}

	if err := visit(tree.Root); err != nil {
		return nil, err
	}
	return order, nil
}

// breadcrumbs walks parent indices from id up to the root and reverses.
func breadcrumbs(tree *content.Tree, id content.NodeID, siteTitle string) ([]Crumb, error) {
	var crumbs []Crumb
	current := tree.Node(id).Parent
	for steps := 0; current != content.NoParent; steps++ {
		if steps >= len(tree.Nodes) {
			return nil, errors.InternalError(fmt.Sprintf("parent chain of node %d has a cycle", id)).Build()
		}
		if int(current) < 0 || int(current) >= len(tree.Nodes) {
			return nil, errors.InternalError(fmt.Sprintf("node %d has missing parent %d", id, current)).Build()
		}
		crumbs = append(crumbs, crumbFor(tree.Node(current), siteTitle))
		current = tree.Node(current).Parent
	}

	for i, j := 0, len(crumbs)-1; i < j; i, j = i+1, j-1 {
		crumbs[i], crumbs[j] = crumbs[j], crumbs[i]
	}
	return crumbs, nil
}

func crumbFor(n *content.Node, siteTitle string) Crumb {
	if n.Page != nil {
		return Crumb{ID: n.Page.ID, Title: n.Page.Meta.Title, OutputPath: n.Page.OutputPath, HasPage: true}
	}
	if n.Parent == content.NoParent {
		return Crumb{Title: siteTitle}
	}
	return Crumb{Title: metadata.DeriveTitle(path.Join(n.Path, "index.md"), siteTitle)}
}
