// Command muzimemo maintains a MuziMemo recordings library on disk: list,
// organize, search, and recover recordings without the app.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"

	"github.com/Tycholiz/MuziMemo-sub000/internal/config"
	"github.com/Tycholiz/MuziMemo-sub000/internal/debug"
	"github.com/Tycholiz/MuziMemo-sub000/internal/fs"
	"github.com/Tycholiz/MuziMemo-sub000/internal/media"
	"github.com/Tycholiz/MuziMemo-sub000/internal/mutation"
	"github.com/Tycholiz/MuziMemo-sub000/internal/search"
	"github.com/Tycholiz/MuziMemo-sub000/internal/storage"
	"github.com/Tycholiz/MuziMemo-sub000/internal/storage/local"
	"github.com/Tycholiz/MuziMemo-sub000/internal/storage/memfs"
	"github.com/Tycholiz/MuziMemo-sub000/internal/store"
	"github.com/Tycholiz/MuziMemo-sub000/internal/trash"
)

const usage = `usage: muzimemo [flags] <command> [args]

commands:
  ls [dir]                 list a folder
  tree                     list every folder
  mkdir <dir>              create a folder (parents must exist)
  mv <src> <destDir>       move a folder or recording
  rename <path> <name>     rename a folder, or a recording keeping its extension
  rm <path>                move a recording, or a folder's recordings, to Recently Deleted
  restore <name> [destDir] restore from Recently Deleted (default: where it was deleted from)
  search <query>           search recordings and folders
  trash [list|empty]       show or empty Recently Deleted
  sort [option]            show or set the recording order (name-asc, name-desc, date-newest, date-oldest)
  export <path>            copy a recording to the exports folder

flags:
`

func main() {
	log.SetFlags(0)
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		log.Fatalf("muzimemo: %v", err)
	}
}

// env holds everything a command needs.
type env struct {
	out    io.Writer
	cfg    config.Config
	driver storage.Driver
	lister *fs.Lister
	ix     *search.Indexer
	trash  *trash.Store
	engine *mutation.Engine
	prefs  store.Preferences
}

func run(ctx context.Context, args []string, out io.Writer) error {
	flags := flag.NewFlagSet("muzimemo", flag.ContinueOnError)
	flags.SetOutput(out)
	flags.Usage = func() {
		fmt.Fprint(out, usage)
		flags.PrintDefaults()
	}
	debugFlag := flags.Bool("debug", false, "Enable verbose debug logging")
	configPath := flags.String("config", "", "config file (default ~/.config/muzimemo/config.json)")
	root := flags.String("root", "", "base directory holding recordings/ (overrides config)")
	dryRun := flags.Bool("dry-run", false, "work on an in-memory copy; nothing on disk changes")
	envFile := flags.String("env", ".env", "environment file to load if present")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() == 0 {
		flags.Usage()
		return fmt.Errorf("no command")
	}
	if *debugFlag {
		debug.EnableAll()
	}

	// A missing .env is normal
	if err := godotenv.Load(*envFile); err != nil && !os.IsNotExist(err) {
		log.Printf("muzimemo: loading %s: %v", *envFile, err)
	}

	cm := config.NewManager()
	if *configPath == "" {
		*configPath = config.ConfigPath()
	}
	if err := cm.LoadFrom(*configPath); err != nil {
		return err
	}
	if perr := cm.ParseError(); perr != nil {
		log.Printf("muzimemo: %s: %v (using defaults)", *configPath, perr)
	}
	cm.ApplyEnv()
	if *root != "" {
		cm.SetBaseDir(*root)
	}
	cfg := cm.Get()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	e, closeEnv, err := newEnv(cfg, *dryRun, out)
	if err != nil {
		return err
	}
	defer closeEnv()

	return e.dispatch(ctx, flags.Arg(0), flags.Args()[1:])
}

func newEnv(cfg config.Config, dryRun bool, out io.Writer) (*env, func(), error) {
	var (
		d      storage.Driver
		dbPath = store.InMemory
		err    error
	)
	switch {
	case dryRun:
		d, err = memfs.CopyFrom(afero.NewOsFs(), cfg.Storage.BaseDir)
		fmt.Fprintln(out, "dry run: changes are not written to disk")
	case cfg.Storage.Driver == config.DriverMemory:
		d = memfs.New()
	default:
		d, err = local.New(cfg.Storage.BaseDir)
		dbPath = filepath.Join(cfg.Storage.BaseDir, "muzimemo.db")
	}
	if err != nil {
		return nil, nil, err
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open preferences: %w", err)
	}

	lister := fs.NewLister(d, media.NopMetadata{}, fs.Options{
		Extensions: cfg.Library.Extensions,
		Workers:    cfg.Behavior.MetadataWorkers,
	})
	ts := trash.New(d)
	e := &env{
		out:    out,
		cfg:    cfg,
		driver: d,
		lister: lister,
		ix:     search.NewIndexer(d, lister.IsAudio),
		trash:  ts,
		engine: mutation.New(mutation.Deps{Driver: d, Trash: ts, IsAudio: lister.IsAudio}),
		prefs:  db,
	}
	return e, func() { db.Close() }, nil
}
