// Package nav owns the navigation state machine: which folder is open,
// which view mode is active, and the search/filter scope. It is the only
// component that mutates that state, and it guarantees that at most one
// navigation target's data is ever visible even though the subfolder and
// document queries of every navigation race independently.
package nav

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"docvault/internal/config"
	"docvault/internal/domain/models"
)

type ViewMode string

const (
	// ViewFolders is the root grid view - no folder is open
	ViewFolders ViewMode = "folders"
	// ViewDocuments shows one folder's subfolders and documents together
	ViewDocuments ViewMode = "documents"
)

// Filters is the document-level filter scope
type Filters struct {
	Status string
	Year   *int
}

// documentLevel reports whether the filters demand a document listing even
// in the root view (archived browsing, year filtering).
func (f Filters) documentLevel() bool {
	return f.Status == models.StatusArchived || f.Year != nil
}

// State is the externally visible navigation state. Slices in a snapshot
// are never mutated after commit; treat them as read-only.
type State struct {
	CurrentFolder *models.Folder
	ViewMode      ViewMode
	SearchTerm    string
	Filters       Filters
	Subfolders    []models.Folder
	Documents     []models.Document
	Loading       bool
	Transitioning bool
}

// FolderSource is the slice of the API the navigator needs for folders
type FolderSource interface {
	ListFolders(ctx context.Context, parentID *int) ([]models.Folder, error)
	GetFolder(ctx context.Context, id int) (*models.Folder, error)
	SearchFolders(ctx context.Context, term string) ([]models.Folder, error)
}

// DocumentSource is the slice of the API the navigator needs for documents
type DocumentSource interface {
	ListDocuments(ctx context.Context, q models.DocumentQuery) ([]models.Document, error)
}

// Callbacks is the contract with the UI layer. OnStateChange always
// receives the freshest snapshot; OnError reports query failures that were
// committed as empty results.
type Callbacks struct {
	OnStateChange func(State)
	OnError       func(error)
}

// Navigator serializes otherwise-racing reads through a monotonic epoch
// counter: every navigation action bumps the epoch, and a response is
// committed only if its epoch is still current when it arrives. Superseded
// navigations additionally get their context cancelled so in-flight
// transport work is aborted rather than merely ignored.
type Navigator struct {
	folders   FolderSource
	documents DocumentSource
	callbacks Callbacks
	logger    *slog.Logger
	debounce  time.Duration

	mu     sync.Mutex
	state  State
	epoch  uint64
	cancel context.CancelFunc
	timer  *time.Timer
}

// Option configures a Navigator
type Option func(*Navigator)

// WithDebounce overrides the search/filter debounce window
func WithDebounce(d time.Duration) Option {
	return func(n *Navigator) { n.debounce = d }
}

func New(folders FolderSource, documents DocumentSource, callbacks Callbacks, logger *slog.Logger, opts ...Option) *Navigator {
	n := &Navigator{
		folders:   folders,
		documents: documents,
		callbacks: callbacks,
		logger:    logger,
		debounce:  config.SearchDebounce,
		state: State{
			ViewMode: ViewFolders,
		},
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Start loads the initial root view
func (n *Navigator) Start() {
	n.Navigate(nil)
}

// Navigate opens the given folder, or the root grid when folder is nil.
// Search and filters are reset - a navigation is a fresh scope. The
// previous navigation's requests are cancelled and their results, if they
// still arrive, are discarded.
func (n *Navigator) Navigate(folder *models.Folder) {
	n.begin(folder, true)
}

// NavigateRoot returns to the root grid view
func (n *Navigator) NavigateRoot() {
	n.Navigate(nil)
}

// GoBack moves to the current folder's parent, or to the root grid when
// the folder has none. The parent lookup is the one navigation read whose
// failure is returned synchronously: without it there is no target.
func (n *Navigator) GoBack(ctx context.Context) error {
	n.mu.Lock()
	current := n.state.CurrentFolder
	n.mu.Unlock()

	if current == nil {
		return nil
	}
	if current.ParentID == nil {
		n.Navigate(nil)
		return nil
	}

	parent, err := n.folders.GetFolder(ctx, *current.ParentID)
	if err != nil {
		return err
	}
	n.Navigate(parent)
	return nil
}

// SetSearchTerm updates the search scope and re-queries the current view
// after the debounce window, so fast typing does not launch one query per
// keystroke. CurrentFolder is not touched.
func (n *Navigator) SetSearchTerm(term string) {
	n.mu.Lock()
	n.state.SearchTerm = term
	n.scheduleRefreshLocked()
	n.mu.Unlock()
	n.emit()
}

// SetFilters updates the filter scope with the same debounce discipline
func (n *Navigator) SetFilters(filters Filters) {
	n.mu.Lock()
	n.state.Filters = filters
	n.scheduleRefreshLocked()
	n.mu.Unlock()
	n.emit()
}

// Refresh re-queries the current scope without changing the target.
// Useful after mutations (create/rename/delete) invalidate the cache.
func (n *Navigator) Refresh() {
	n.mu.Lock()
	target := n.state.CurrentFolder
	n.mu.Unlock()
	n.begin(target, false)
}

// Snapshot returns a copy of the current state
func (n *Navigator) Snapshot() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// Close cancels any in-flight work and pending debounce
func (n *Navigator) Close() {
	n.mu.Lock()
	if n.cancel != nil {
		n.cancel()
	}
	if n.timer != nil {
		n.timer.Stop()
	}
	n.mu.Unlock()
}

func (n *Navigator) scheduleRefreshLocked() {
	if n.timer != nil {
		n.timer.Stop()
	}
	n.timer = time.AfterFunc(n.debounce, n.Refresh)
}

// begin is the single entry point for every navigation action. It claims a
// new epoch, synchronously flips the state to "pointed at target, content
// pending" (no flash of the previous folder's content), then launches the
// scope's queries.
func (n *Navigator) begin(target *models.Folder, resetScope bool) {
	n.mu.Lock()
	n.epoch++
	epoch := n.epoch
	if n.cancel != nil {
		n.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	n.cancel = cancel

	if resetScope {
		n.state.SearchTerm = ""
		n.state.Filters = Filters{}
	}
	n.state.CurrentFolder = target
	if target != nil {
		n.state.ViewMode = ViewDocuments
	} else {
		n.state.ViewMode = ViewFolders
	}
	n.state.Subfolders = nil
	n.state.Documents = nil
	n.state.Loading = true
	n.state.Transitioning = true

	search := n.state.SearchTerm
	filters := n.state.Filters
	n.mu.Unlock()
	n.emit()

	n.logger.Debug("navigation started",
		"epoch", epoch,
		"folder_id", folderID(target),
		"search", search,
	)

	// In the root grid, documents are only fetched when a document-level
	// filter demands them; inside a folder both queries always run.
	wantDocuments := target != nil || filters.documentLevel()

	go n.loadSubfolders(ctx, epoch, target, search, !wantDocuments)
	if wantDocuments {
		go n.loadDocuments(ctx, epoch, target, search, filters)
	} else {
		n.mu.Lock()
		if n.epoch == epoch {
			n.state.Documents = []models.Document{}
		}
		n.mu.Unlock()
	}
}

// loadSubfolders resolves the folder half of a navigation. finishesLoad is
// set when no document query accompanies it, so the loading flag still
// clears.
func (n *Navigator) loadSubfolders(ctx context.Context, epoch uint64, target *models.Folder, search string, finishesLoad bool) {
	var folders []models.Folder
	var err error

	if target == nil && search != "" {
		folders, err = n.folders.SearchFolders(ctx, search)
	} else {
		folders, err = n.folders.ListFolders(ctx, folderID(target))
	}

	n.mu.Lock()
	if n.epoch != epoch {
		// Superseded: a newer navigation owns the state now
		n.mu.Unlock()
		return
	}

	if err != nil {
		n.state.Subfolders = []models.Folder{}
		n.state.Transitioning = false
		if finishesLoad {
			n.state.Loading = false
		}
		n.mu.Unlock()
		n.emit()
		n.report(err)
		return
	}

	n.state.Subfolders = dropCycles(folders, target)
	n.state.Transitioning = false
	if finishesLoad {
		n.state.Loading = false
	}
	n.mu.Unlock()
	n.emit()
}

// loadDocuments resolves the document half of a navigation
func (n *Navigator) loadDocuments(ctx context.Context, epoch uint64, target *models.Folder, search string, filters Filters) {
	q := models.DocumentQuery{
		FolderID: folderID(target),
		Search:   search,
		Year:     filters.Year,
		Status:   filters.Status,
	}
	docs, err := n.documents.ListDocuments(ctx, q)

	n.mu.Lock()
	if n.epoch != epoch {
		n.mu.Unlock()
		return
	}

	if err != nil {
		n.state.Documents = []models.Document{}
		n.state.Loading = false
		n.mu.Unlock()
		n.emit()
		n.report(err)
		return
	}

	n.state.Documents = docs
	n.state.Loading = false
	n.mu.Unlock()
	n.emit()
}

func (n *Navigator) emit() {
	if n.callbacks.OnStateChange == nil {
		return
	}
	n.mu.Lock()
	snapshot := n.state
	n.mu.Unlock()
	n.callbacks.OnStateChange(snapshot)
}

func (n *Navigator) report(err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	n.logger.Warn("navigation query failed", "error", err)
	if n.callbacks.OnError != nil {
		n.callbacks.OnError(err)
	}
}

// dropCycles removes the target folder itself and its immediate parent
// from a subfolder listing. The server should never return either, but a
// bad row here would render the hierarchy as a loop.
func dropCycles(folders []models.Folder, target *models.Folder) []models.Folder {
	if target == nil {
		return folders
	}
	filtered := make([]models.Folder, 0, len(folders))
	for _, f := range folders {
		if f.ID == target.ID {
			continue
		}
		if target.ParentID != nil && f.ID == *target.ParentID {
			continue
		}
		filtered = append(filtered, f)
	}
	return filtered
}

func folderID(f *models.Folder) *int {
	if f == nil {
		return nil
	}
	return &f.ID
}
