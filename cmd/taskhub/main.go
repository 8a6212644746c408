package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"taskhub/internal/config"
	"taskhub/internal/logger"
	"taskhub/internal/manager"
	"taskhub/internal/models"
	"taskhub/internal/server"
	"taskhub/internal/session"
	"taskhub/internal/storage"
)

var errUsage = errors.New("usage")

type app struct {
	cfg     *config.Config
	backend storage.ClosableBackend
	out     io.Writer
}

func main() {
	if len(os.Args) < 2 {
		printHelp(os.Stdout)
		os.Exit(1)
	}

	cfgPath := os.Getenv("TASKHUB_CONFIG")
	if cfgPath == "" {
		cfgPath = config.DefaultConfigFile
	}
	cfg, err := config.LoadFrom(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	logger.SetLevel(logger.ParseLevel(cfg.Log.Level))

	ctx := context.Background()
	backend, err := storage.Open(ctx, storageOptions(cfg))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening storage: %v\n", err)
		os.Exit(1)
	}

	a := &app{cfg: cfg, backend: backend, out: os.Stdout}
	err = a.run(ctx, os.Args[1], os.Args[2:])
	backend.Close()

	if err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func storageOptions(cfg *config.Config) storage.Options {
	return storage.Options{
		Driver:     cfg.Storage.Driver,
		SQLitePath: cfg.Storage.SQLitePath,
		CacheBytes: cfg.Storage.CacheBytes,
		TTL:        cfg.Storage.TTL,
		NATSURL:    cfg.Storage.NATSURL,
		NATSBucket: cfg.Storage.NATSBucket,
	}
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "add":
		return a.handleAdd(ctx, args)
	case "list":
		return a.handleList(ctx, args, false)
	case "board":
		return a.handleList(ctx, args, true)
	case "status":
		return a.handleStatus(ctx, args)
	case "edit":
		return a.handleEdit(ctx, args)
	case "delete":
		return a.handleDelete(ctx, args)
	case "clear":
		return a.handleClear(ctx, args)
	case "end":
		return a.handleEnd(ctx, args)
	case "export":
		return a.handleExport(ctx, args)
	case "import":
		return a.handleImport(ctx, args)
	case "serve":
		return a.handleServe(ctx, args)
	case "help", "-h", "--help":
		printHelp(a.out)
		return nil
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printHelp(a.out)
		return errUsage
	}
}

// newFlagSet returns a flag set with the shared -session flag.
func (a *app) newFlagSet(name string) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	sess := fs.String("session", a.cfg.Session, "Session name")
	return fs, sess
}

// open mounts the session. The caller must Close it so changes are flushed.
func (a *app) open(ctx context.Context, name string) (*session.Session, context.Context, error) {
	if !config.ValidSession(name) {
		return nil, ctx, fmt.Errorf("invalid session name %q", name)
	}
	ctx = logger.With(ctx, "session", name)
	return session.Open(ctx, storage.New(a.backend, name)), ctx, nil
}

func (a *app) handleAdd(ctx context.Context, args []string) error {
	fs, name := a.newFlagSet("add")
	title := fs.String("title", "", "Task title")
	desc := fs.String("desc", "", "Task description")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	if strings.TrimSpace(*title) == "" {
		return errors.New("--title is required")
	}

	s, ctx, err := a.open(ctx, *name)
	if err != nil {
		return err
	}
	defer s.Close(ctx)

	task := s.Tasks.AddTask(strings.TrimSpace(*title), models.OptionalText(*desc))
	fmt.Fprintf(a.out, "Added task %s\n", task.ID)
	return nil
}

func (a *app) handleList(ctx context.Context, args []string, columns bool) error {
	fs, name := a.newFlagSet("list")
	query := fs.String("q", "", "Search title and description")
	status := fs.String("status", manager.StatusAll, "Filter by status (all|todo|completed|canceled)")
	sortBy := fs.String("sort", string(manager.SortByDate), "Sort key (date|title)")
	order := fs.String("order", string(manager.OrderDesc), "Sort order (asc|desc)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	opts, err := manager.ParseViewOptions(*query, *status, *sortBy, *order)
	if err != nil {
		return err
	}

	s, ctx, err := a.open(ctx, *name)
	if err != nil {
		return err
	}
	defer s.Close(ctx)

	tasks := manager.View(s.Tasks.GetAllTasks(), opts)
	if columns {
		printBoard(a.out, manager.Partition(tasks))
		return nil
	}
	if len(tasks) == 0 {
		fmt.Fprintln(a.out, "No tasks found")
		return nil
	}
	for _, t := range tasks {
		printTask(a.out, t)
	}
	return nil
}

func (a *app) handleStatus(ctx context.Context, args []string) error {
	fs, name := a.newFlagSet("status")
	id := fs.String("id", "", "Task ID")
	to := fs.String("to", "", "New status (todo|completed|canceled)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *id == "" {
		return errors.New("--id is required")
	}
	status, err := models.ParseStatus(*to)
	if err != nil {
		return err
	}

	s, ctx, err := a.open(ctx, *name)
	if err != nil {
		return err
	}
	defer s.Close(ctx)

	if !s.Tasks.ChangeStatus(*id, status) {
		fmt.Fprintf(a.out, "Task %s not found\n", *id)
		return nil
	}
	fmt.Fprintf(a.out, "Task %s moved to %s\n", *id, status)
	return nil
}

func (a *app) handleEdit(ctx context.Context, args []string) error {
	fs, name := a.newFlagSet("edit")
	id := fs.String("id", "", "Task ID")
	title := fs.String("title", "", "New title")
	desc := fs.String("desc", "", "New description (empty removes it)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *id == "" || strings.TrimSpace(*title) == "" {
		return errors.New("--id and --title are required")
	}

	s, ctx, err := a.open(ctx, *name)
	if err != nil {
		return err
	}
	defer s.Close(ctx)

	if !s.Tasks.UpdateTask(*id, strings.TrimSpace(*title), models.OptionalText(*desc)) {
		fmt.Fprintf(a.out, "Task %s not found\n", *id)
		return nil
	}
	fmt.Fprintf(a.out, "Task %s updated\n", *id)
	return nil
}

func (a *app) handleDelete(ctx context.Context, args []string) error {
	fs, name := a.newFlagSet("delete")
	id := fs.String("id", "", "Task ID to delete")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *id == "" {
		return errors.New("--id is required")
	}

	s, ctx, err := a.open(ctx, *name)
	if err != nil {
		return err
	}
	defer s.Close(ctx)

	if !s.Tasks.DeleteTask(*id) {
		fmt.Fprintf(a.out, "Task %s not found\n", *id)
		return nil
	}
	fmt.Fprintf(a.out, "Task %s deleted\n", *id)
	return nil
}

func (a *app) handleClear(ctx context.Context, args []string) error {
	fs, name := a.newFlagSet("clear")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	s, ctx, err := a.open(ctx, *name)
	if err != nil {
		return err
	}
	defer s.Close(ctx)

	n := s.Tasks.Len()
	s.ClearAll(ctx)
	fmt.Fprintf(a.out, "Cleared %d tasks\n", n)
	return nil
}

func (a *app) handleEnd(ctx context.Context, args []string) error {
	fs, name := a.newFlagSet("end")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	s, ctx, err := a.open(ctx, *name)
	if err != nil {
		return err
	}
	if err := s.End(ctx); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Session %s ended\n", *name)
	return nil
}

func (a *app) handleExport(ctx context.Context, args []string) error {
	fs, name := a.newFlagSet("export")
	format := fs.String("format", "json", "Export format (json|csv)")
	outFile := fs.String("out", "", "Output file path")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *outFile == "" {
		return errors.New("--out is required")
	}

	s, ctx, err := a.open(ctx, *name)
	if err != nil {
		return err
	}
	defer s.Close(ctx)

	tasks := s.Tasks.GetAllTasks()
	switch *format {
	case "json":
		err = models.SaveJSON(*outFile, tasks)
	case "csv":
		err = models.SaveCSV(*outFile, tasks)
	default:
		return fmt.Errorf("unsupported format %s", *format)
	}
	if err != nil {
		return fmt.Errorf("export tasks: %w", err)
	}

	fmt.Fprintf(a.out, "Tasks exported to %s in %s format\n", *outFile, *format)
	return nil
}

func (a *app) handleImport(ctx context.Context, args []string) error {
	fs, name := a.newFlagSet("import")
	file := fs.String("file", "", "File to import tasks from (.json or .csv)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	// LoadJSON and LoadCSV read a missing file as empty
	if _, err := os.Stat(*file); err != nil {
		return fmt.Errorf("import %s: %w", *file, err)
	}

	var (
		tasks []models.Task
		err   error
	)
	switch {
	case strings.HasSuffix(*file, ".json"):
		tasks, err = models.LoadJSON(*file)
	case strings.HasSuffix(*file, ".csv"):
		tasks, err = models.LoadCSV(*file)
	default:
		return errors.New("--file must end in .json or .csv")
	}
	if err != nil {
		return fmt.Errorf("load tasks: %w", err)
	}

	s, ctx, err := a.open(ctx, *name)
	if err != nil {
		return err
	}
	defer s.Close(ctx)

	n := s.Tasks.ImportTasks(tasks)
	fmt.Fprintf(a.out, "Imported %d of %d tasks from %s\n", n, len(tasks), *file)
	return nil
}

func (a *app) handleServe(ctx context.Context, args []string) error {
	fs, name := a.newFlagSet("serve")
	addr := fs.String("addr", a.cfg.HTTP.Addr, "Listen address")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	s, ctx, err := a.open(ctx, *name)
	if err != nil {
		return err
	}
	defer s.Close(context.Background())

	srv := &http.Server{
		Addr:    *addr,
		Handler: server.NewRouter(s),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "listening", "addr", *addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-stop:
	}
	logger.Info(ctx, "shut down signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	logger.Info(ctx, "shut down gracefully")
	return nil
}

func printTask(w io.Writer, t models.Task) {
	fmt.Fprintf(w, "%s: %s [%s] %s\n", t.ID, t.Title, t.Status, t.CreatedAt.Local().Format("2006-01-02 15:04"))
	if t.Description != nil {
		fmt.Fprintf(w, "    %s\n", *t.Description)
	}
}

func printBoard(w io.Writer, b manager.Board) {
	for _, s := range models.Statuses {
		col := b.Column(s)
		fmt.Fprintf(w, "== %s (%d)\n", strings.ToUpper(string(s)), len(col))
		for _, t := range col {
			fmt.Fprintf(w, "  %s: %s\n", t.ID, t.Title)
		}
	}
}

func printHelp(w io.Writer) {
	fmt.Fprintln(w, `Usage: taskhub <command> [flags]

Commands:
  add     --title="..." [--desc="..."]             Add new task
  list    [--q=...] [--status=all|todo|completed|canceled]
          [--sort=date|title] [--order=asc|desc]  List tasks
  board   (same flags as list)                     Show tasks by status column
  status  --id=ID --to=todo|completed|canceled     Move task to another column
  edit    --id=ID --title="..." [--desc="..."]     Edit task
  delete  --id=ID                                  Delete task
  clear                                            Delete all tasks
  end                                              End the session and drop its state
  export  --format=json|csv --out=FILE             Export tasks
  import  --file=FILE                              Import tasks from .json or .csv
  serve   [--addr=:8080]                           Serve the board over HTTP

Every command accepts --session=NAME (default from config).

Storage:
  Sessions live in the backend chosen by storage.driver in taskhub.yaml
  (memory, sqlite, ristretto or nats). Each command restores the session,
  applies the change and writes it back.`)
}
