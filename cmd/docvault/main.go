package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"docvault/internal/api"
	"docvault/internal/config"
	"docvault/internal/counts"
	"docvault/internal/domain/models"
	"docvault/internal/nav"
	"docvault/internal/session"
	"docvault/internal/tree"
	"docvault/internal/upload"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Debug {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("docvault starting",
		"environment", cfg.Environment,
		"api_base_url", cfg.APIBaseURL,
		"cache_ttl", cfg.CacheTTL,
	)

	// API client with the read-through cache
	client := api.New(cfg.APIBaseURL, cfg.AuthToken, cfg.CacheTTL, logger)

	// Upload policy (embedded default unless overridden)
	policy, err := config.LoadUploadPolicy(cfg.UploadPolicyPath)
	if err != nil {
		log.Fatalf("Failed to load upload policy: %v", err)
	}

	// Durable session store for the upload queue hand-off
	store, err := session.Open(cfg.SessionDBPath, logger)
	if err != nil {
		log.Fatalf("Failed to open session store: %v", err)
	}
	defer func() { _ = store.Close() }()

	logger.Info("session store ready", "path", cfg.SessionDBPath)

	app := newApp(client, store, *policy, logger)
	defer app.close()

	app.run()
}

// app holds the wired engine components and drives the interactive loop
type app struct {
	client     *api.Client
	navigator  *nav.Navigator
	resolver   *tree.Resolver
	aggregator *counts.Aggregator
	uploader   *upload.Orchestrator
	store      *session.Store
	logger     *slog.Logger
}

func newApp(client *api.Client, store *session.Store, policy config.UploadPolicy, logger *slog.Logger) *app {
	a := &app{
		client:     client,
		store:      store,
		logger:     logger,
		resolver:   tree.New(client, logger),
		aggregator: counts.New(client, logger),
	}

	a.navigator = nav.New(client, client, nav.Callbacks{
		OnStateChange: a.render,
		OnError:       func(err error) { fmt.Printf("! %v\n", err) },
	}, logger)

	a.uploader = upload.New(client, store, policy, upload.Callbacks{
		OnProgress: func(current, total int, filename string) {
			fmt.Printf("uploading %d of %d: %s\n", current, total, filename)
		},
		OnError: func(msg string) { fmt.Printf("! %s\n", msg) },
	}, logger)

	return a
}

func (a *app) close() {
	a.navigator.Close()
}

func (a *app) run() {
	fmt.Println("docvault - type 'help' for commands")
	a.navigator.Start()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		cmd, args := fields[0], fields[1:]

		if cmd == "exit" || cmd == "quit" {
			return
		}
		a.dispatch(cmd, args)
	}
}

func (a *app) dispatch(cmd string, args []string) {
	ctx := context.Background()

	switch cmd {
	case "help":
		printHelp()
	case "ls":
		a.render(a.navigator.Snapshot())
	case "open":
		a.open(ctx, args)
	case "back":
		if err := a.navigator.GoBack(ctx); err != nil {
			fmt.Printf("! %v\n", err)
		}
	case "root":
		a.navigator.NavigateRoot()
	case "refresh":
		a.client.InvalidateCache()
		a.navigator.Refresh()
	case "search":
		a.navigator.SetSearchTerm(strings.Join(args, " "))
	case "filter":
		a.filter(args)
	case "tree":
		if err := a.resolver.LoadRoots(ctx); err != nil {
			fmt.Printf("! %v\n", err)
			return
		}
		printTree(a.resolver.Visible(), 0)
	case "expand":
		a.expand(ctx, args)
	case "collapse":
		if id, ok := parseID(args); ok {
			a.resolver.Collapse(id)
			printTree(a.resolver.Visible(), 0)
		}
	case "counts":
		a.showCounts(ctx)
	case "recent":
		a.recent(ctx, args)
	case "stats":
		a.stats(ctx)
	case "doc":
		a.showDocument(ctx, args)
	case "add":
		a.addFiles(args)
	case "selection":
		for i, f := range a.uploader.Selected() {
			fmt.Printf("%d: %s (%d bytes)\n", i, f.Name, f.Size)
		}
	case "remove":
		if i, ok := parseID(args); ok {
			a.uploader.Remove(i)
		}
	case "cancel":
		a.uploader.Cancel()
	case "upload":
		a.confirmUpload(ctx)
	case "queue":
		a.showQueue(ctx)
	case "next":
		a.advanceQueue(ctx)
	case "clear-queue":
		if err := a.store.Clear(ctx); err != nil {
			fmt.Printf("! %v\n", err)
		}
	case "mkdir":
		a.mkdir(ctx, args)
	case "rename":
		a.rename(ctx, args)
	case "rmdir":
		a.mutateByID(args, func(id int) error { return a.client.DeleteFolder(ctx, id) })
	case "archive":
		a.mutateByID(args, func(id int) error { return a.client.ArchiveDocument(ctx, id) })
	case "restore":
		a.mutateByID(args, func(id int) error { return a.client.RestoreDocument(ctx, id) })
	case "rm":
		a.mutateByID(args, func(id int) error { return a.client.DeleteDocument(ctx, id) })
	case "status":
		a.setStatus(ctx, args)
	case "logout":
		a.client.ClearAuth()
		fmt.Println("logged out")
	default:
		fmt.Printf("unknown command %q - type 'help'\n", cmd)
	}
}

func (a *app) open(ctx context.Context, args []string) {
	id, ok := parseID(args)
	if !ok {
		fmt.Println("usage: open <folder-id>")
		return
	}
	folder, err := a.client.GetFolder(ctx, id)
	if err != nil {
		fmt.Printf("! %v\n", err)
		return
	}
	a.navigator.Navigate(folder)
}

func (a *app) filter(args []string) {
	if len(args) == 0 || args[0] == "clear" {
		a.navigator.SetFilters(nav.Filters{})
		return
	}
	var filters nav.Filters
	for _, arg := range args {
		if year, err := strconv.Atoi(arg); err == nil {
			filters.Year = &year
			continue
		}
		filters.Status = arg
	}
	a.navigator.SetFilters(filters)
}

func (a *app) expand(ctx context.Context, args []string) {
	id, ok := parseID(args)
	if !ok {
		fmt.Println("usage: expand <folder-id>")
		return
	}
	if err := a.resolver.Expand(ctx, id); err != nil {
		fmt.Printf("! %v\n", err)
		return
	}
	printTree(a.resolver.Visible(), 0)
}

func (a *app) showCounts(ctx context.Context) {
	snapshot := a.navigator.Snapshot()
	ids := make([]int, 0, len(snapshot.Subfolders))
	for _, f := range snapshot.Subfolders {
		ids = append(ids, f.ID)
	}
	result := a.aggregator.Counts(ctx, ids)
	for _, f := range snapshot.Subfolders {
		fmt.Printf("[%d] %-30s %d documents\n", f.ID, f.Name, result[f.ID])
	}
}

func (a *app) recent(ctx context.Context, args []string) {
	limit := 5
	if n, ok := parseID(args); ok {
		limit = n
	}
	folders, err := a.client.RecentFolders(ctx, limit)
	if err != nil {
		fmt.Printf("! %v\n", err)
		return
	}
	for _, f := range folders {
		fmt.Printf("[%d] %s\n", f.ID, f.Name)
	}
}

func (a *app) stats(ctx context.Context) {
	summary, err := a.client.DocumentCounts(ctx)
	if err != nil {
		fmt.Printf("! %v\n", err)
		return
	}
	total, err := a.client.TotalFolderCount(ctx)
	if err != nil {
		fmt.Printf("! %v\n", err)
		return
	}
	fmt.Printf("%d folders, %d documents\n", total, summary.Total)
	for status, n := range summary.ByStatus {
		fmt.Printf("  %s: %d\n", status, n)
	}
}

func (a *app) showDocument(ctx context.Context, args []string) {
	id, ok := parseID(args)
	if !ok {
		fmt.Println("usage: doc <document-id>")
		return
	}
	doc, err := a.client.GetDocument(ctx, id)
	if err != nil {
		fmt.Printf("! %v\n", err)
		return
	}
	fmt.Printf("[%d] %s\n  status: %s\n  file: %s\n", doc.ID, doc.Title, doc.Status, doc.FilePath)
	if doc.Remarks != "" {
		fmt.Printf("  remarks: %s\n", doc.Remarks)
	}
	if doc.PhysicalLocation != "" {
		fmt.Printf("  location: %s\n", doc.PhysicalLocation)
	}
}

func (a *app) addFiles(paths []string) {
	if len(paths) == 0 {
		fmt.Println("usage: add <path> [path...]")
		return
	}
	files := make([]upload.File, 0, len(paths))
	for _, path := range paths {
		f, err := upload.FromPath(path)
		if err != nil {
			fmt.Printf("! %v\n", err)
			return
		}
		files = append(files, f)
	}
	if err := a.uploader.Select(files...); err != nil {
		return // already reported via OnError
	}
	fmt.Printf("%d file(s) selected\n", len(a.uploader.Selected()))
}

func (a *app) confirmUpload(ctx context.Context) {
	result, err := a.uploader.Confirm(ctx)
	if err != nil {
		fmt.Printf("! %v\n", err)
		return
	}
	fmt.Printf("uploaded %d document(s)", len(result.DocumentIDs))
	if len(result.Failed) > 0 {
		fmt.Printf(", %d failed: %s", len(result.Failed), strings.Join(result.Failed, ", "))
	}
	fmt.Println()
	a.navigator.Refresh()
}

func (a *app) showQueue(ctx context.Context) {
	queue, err := a.store.Load(ctx)
	if err != nil {
		fmt.Printf("! %v\n", err)
		return
	}
	fmt.Printf("queue: %d of %d processed, documents %v\n",
		queue.CurrentIndex, queue.TotalCount, queue.DocumentIDs)
	if id, ok := queue.Current(); ok {
		fmt.Printf("next document: %d\n", id)
	}
}

func (a *app) advanceQueue(ctx context.Context) {
	queue, err := a.store.Advance(ctx)
	if err != nil {
		fmt.Printf("! %v\n", err)
		return
	}
	if queue.Done() {
		fmt.Println("queue complete")
		return
	}
	if id, ok := queue.Current(); ok {
		fmt.Printf("next document: %d (%d of %d)\n", id, queue.CurrentIndex+1, queue.TotalCount)
	}
}

func (a *app) mkdir(ctx context.Context, args []string) {
	if len(args) == 0 {
		fmt.Println("usage: mkdir <name>")
		return
	}
	name := strings.Join(args, " ")

	snapshot := a.navigator.Snapshot()
	req := api.CreateFolderRequest{
		Name: name,
		Path: "/" + name,
		Type: models.FolderTypeRegular,
	}
	if snapshot.CurrentFolder != nil {
		req.ParentID = &snapshot.CurrentFolder.ID
		req.Path = snapshot.CurrentFolder.Path + "/" + name
	}

	folder, err := a.client.CreateFolder(ctx, req)
	if err != nil {
		fmt.Printf("! %v\n", err)
		return
	}
	fmt.Printf("created folder [%d] %s\n", folder.ID, folder.Name)
	a.navigator.Refresh()
}

func (a *app) rename(ctx context.Context, args []string) {
	if len(args) < 2 {
		fmt.Println("usage: rename <folder-id> <new-name>")
		return
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Println("usage: rename <folder-id> <new-name>")
		return
	}
	name := strings.Join(args[1:], " ")

	if _, err := a.client.UpdateFolder(ctx, id, api.UpdateFolderRequest{Name: &name}); err != nil {
		fmt.Printf("! %v\n", err)
		return
	}
	a.navigator.Refresh()
}

func (a *app) setStatus(ctx context.Context, args []string) {
	if len(args) != 2 {
		fmt.Println("usage: status <document-id> <active|draft|archived|pending>")
		return
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Println("usage: status <document-id> <active|draft|archived|pending>")
		return
	}
	if err := a.client.UpdateDocumentStatus(ctx, id, args[1]); err != nil {
		fmt.Printf("! %v\n", err)
		return
	}
	a.navigator.Refresh()
}

func (a *app) mutateByID(args []string, fn func(id int) error) {
	id, ok := parseID(args)
	if !ok {
		fmt.Println("usage: <command> <id>")
		return
	}
	if err := fn(id); err != nil {
		fmt.Printf("! %v\n", err)
		return
	}
	a.navigator.Refresh()
}

// render prints the navigation state once a transition settles
func (a *app) render(s nav.State) {
	if s.Loading || s.Transitioning {
		return
	}

	if s.CurrentFolder != nil {
		fmt.Printf("\n== %s ==\n", s.CurrentFolder.Path)
	} else {
		fmt.Println("\n== / ==")
	}
	if s.SearchTerm != "" {
		fmt.Printf("search: %q\n", s.SearchTerm)
	}

	for _, f := range s.Subfolders {
		fmt.Printf("  [%d] %s/\n", f.ID, f.Name)
	}
	for _, d := range s.Documents {
		fmt.Printf("  [%d] %s (%s)\n", d.ID, d.Title, d.Status)
	}
	if len(s.Subfolders) == 0 && len(s.Documents) == 0 {
		fmt.Println("  (empty)")
	}
}

func printTree(nodes []tree.Node, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, n := range nodes {
		marker := "+"
		if n.IsExpanded {
			marker = "-"
		}
		fmt.Printf("%s%s [%d] %s\n", indent, marker, n.Folder.ID, n.Folder.Name)
		if n.IsExpanded {
			printTree(n.Children, depth+1)
		}
	}
}

func parseID(args []string) (int, bool) {
	if len(args) == 0 {
		return 0, false
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, false
	}
	return id, true
}

func printHelp() {
	fmt.Print(`navigation:
  ls                  show the current view
  open <id>           open a folder
  back                go to the parent folder
  root                go to the root grid
  search <term>       filter the current view by name
  filter <status|year|clear>  set document filters
  refresh             re-query the current view

tree:
  tree                load and print the folder tree
  expand <id>         expand a tree node (fetches children once)
  collapse <id>       collapse a tree node

counts:
  counts              document counts for the visible folders
  recent [n]          recently updated folders
  stats               archive-wide totals
  doc <id>            show one document's details

upload:
  add <path>...       add files to the pending selection
  selection           list the pending selection
  remove <i>          remove a file from the selection
  cancel              clear the pending selection
  upload              upload the selection sequentially
  queue               show the persisted upload queue
  next                advance the queue cursor
  clear-queue         delete the persisted queue

folders and documents:
  mkdir <name>        create a folder under the current one
  rename <id> <name>  rename a folder
  rmdir <id>          delete a folder
  archive <id>        archive a document
  restore <id>        restore an archived document
  rm <id>             delete a document
  status <id> <s>     set a document's status

session:
  logout              drop the auth token
  exit                quit
`)
}
