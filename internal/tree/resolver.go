// Package tree maintains the lazily-expanded folder tree shown in the
// explorer sidebar. Children are fetched at most once per node for the
// lifetime of a resolver; collapse is a purely local state change.
package tree

import (
	"context"
	"log/slog"
	"sync"

	"docvault/internal/domain/models"
)

// Source is the slice of the API the resolver needs
type Source interface {
	ListFolders(ctx context.Context, parentID *int) ([]models.Folder, error)
}

// Node is a snapshot of one visible tree node. Children are only populated
// on expanded nodes that have completed a fetch.
type Node struct {
	Folder     models.Folder
	Children   []Node
	IsExpanded bool
	IsLoading  bool
	HasFetched bool
}

type node struct {
	folder   models.Folder
	children []*node
}

// Resolver owns the tree structure plus the flat expanded/loading/fetched
// sets that the visible tree is recomputed from.
type Resolver struct {
	src    Source
	logger *slog.Logger

	mu       sync.Mutex
	roots    []*node
	expanded map[int]bool
	loading  map[int]bool
	fetched  map[int]bool
}

func New(src Source, logger *slog.Logger) *Resolver {
	return &Resolver{
		src:      src,
		logger:   logger,
		expanded: make(map[int]bool),
		loading:  make(map[int]bool),
		fetched:  make(map[int]bool),
	}
}

// LoadRoots fetches the root-level folders and resets all tree state
func (r *Resolver) LoadRoots(ctx context.Context) error {
	folders, err := r.src.ListFolders(ctx, nil)
	if err != nil {
		return err
	}

	roots := make([]*node, len(folders))
	for i, f := range folders {
		roots[i] = &node{folder: f}
	}

	r.mu.Lock()
	r.roots = roots
	r.expanded = make(map[int]bool)
	r.loading = make(map[int]bool)
	r.fetched = make(map[int]bool)
	r.mu.Unlock()

	return nil
}

// Expand marks a node expanded, fetching its children first if they have
// never been loaded. Re-expanding after a collapse reuses the fetched
// children without a new request; a failed fetch leaves the node
// collapsed and retryable.
func (r *Resolver) Expand(ctx context.Context, folderID int) error {
	r.mu.Lock()
	if r.fetched[folderID] {
		r.expanded[folderID] = true
		r.mu.Unlock()
		return nil
	}
	if r.loading[folderID] {
		// A fetch for this node is already in flight
		r.mu.Unlock()
		return nil
	}
	r.loading[folderID] = true
	r.mu.Unlock()

	children, err := r.src.ListFolders(ctx, &folderID)

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.loading, folderID)

	if err != nil {
		r.logger.Warn("failed to load subfolders", "folder_id", folderID, "error", err)
		return err
	}

	if target := findNode(r.roots, folderID); target != nil {
		target.children = make([]*node, len(children))
		for i, f := range children {
			target.children[i] = &node{folder: f}
		}
	}
	r.fetched[folderID] = true
	r.expanded[folderID] = true
	return nil
}

// Collapse clears the expanded flag. Fetched children are kept.
func (r *Resolver) Collapse(folderID int) {
	r.mu.Lock()
	delete(r.expanded, folderID)
	r.mu.Unlock()
}

// Visible recomputes the render tree: the immutable node structure mapped
// through the flat expanded set.
func (r *Resolver) Visible() []Node {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot(r.roots)
}

func (r *Resolver) snapshot(nodes []*node) []Node {
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		id := n.folder.ID
		out[i] = Node{
			Folder:     n.folder,
			IsExpanded: r.expanded[id],
			IsLoading:  r.loading[id],
			HasFetched: r.fetched[id],
			Children:   r.snapshot(n.children),
		}
	}
	return out
}

func findNode(nodes []*node, folderID int) *node {
	for _, n := range nodes {
		if n.folder.ID == folderID {
			return n
		}
		if found := findNode(n.children, folderID); found != nil {
			return found
		}
	}
	return nil
}
