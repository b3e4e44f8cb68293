package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/Tycholiz/MuziMemo-sub000/internal/domain"
	"github.com/Tycholiz/MuziMemo-sub000/internal/fs"
	"github.com/Tycholiz/MuziMemo-sub000/internal/pathutil"
	"github.com/Tycholiz/MuziMemo-sub000/internal/search"
	"github.com/Tycholiz/MuziMemo-sub000/internal/share"
	"github.com/Tycholiz/MuziMemo-sub000/internal/store"
)

var errUsage = errors.New("wrong number of arguments")

func (e *env) dispatch(ctx context.Context, cmd string, args []string) error {
	need := func(lo, hi int) error {
		if len(args) < lo || len(args) > hi {
			return fmt.Errorf("%s: %w", cmd, errUsage)
		}
		return nil
	}
	arg := func(i int) string {
		if i < len(args) {
			return args[i]
		}
		return ""
	}

	var err error
	switch cmd {
	case "ls":
		if err = need(0, 1); err == nil {
			err = e.ls(ctx, pathutil.Split(arg(0)))
		}
	case "tree":
		if err = need(0, 0); err == nil {
			err = e.tree(ctx)
		}
	case "mkdir":
		if err = need(1, 1); err == nil {
			p := pathutil.Split(arg(0))
			var f domain.FolderEntry
			if f, err = e.engine.CreateFolder(ctx, p.Parent(), p.Base()); err == nil {
				fmt.Fprintf(e.out, "created %s\n", f.Path)
			}
		}
	case "mv":
		if err = need(2, 2); err == nil {
			var p domain.PathSegments
			if p, err = e.engine.MoveItem(ctx, pathutil.Split(arg(0)), pathutil.Split(arg(1)), ""); err == nil {
				fmt.Fprintf(e.out, "moved to %s\n", p)
			}
		}
	case "rename":
		if err = need(2, 2); err == nil {
			err = e.rename(ctx, pathutil.Split(arg(0)), arg(1))
		}
	case "rm":
		if err = need(1, 1); err == nil {
			err = e.rm(ctx, pathutil.Split(arg(0)))
		}
	case "restore":
		if err = need(1, 2); err == nil {
			err = e.restore(ctx, arg(0), args[1:])
		}
	case "search":
		if err = need(1, 1<<10); err == nil {
			err = e.search(ctx, strings.Join(args, " "))
		}
	case "trash":
		if err = need(0, 1); err == nil {
			err = e.trashCmd(ctx, arg(0))
		}
	case "sort":
		if err = need(0, 1); err == nil {
			err = e.sortCmd(arg(0))
		}
	case "export":
		if err = need(1, 1); err == nil {
			var res share.Result
			res, err = share.Export(ctx, e.driver, nil, pathutil.Abs(pathutil.Split(arg(0))), e.cfg.Behavior.ExportTimeout())
			if err == nil {
				fmt.Fprintf(e.out, "exported to %s\n", res.FallbackPath)
			}
		}
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	if err != nil && !errors.Is(err, errUsage) && domain.IsRecoverable(err) {
		return errors.New(domain.UserMessage(err))
	}
	return err
}

func (e *env) sortOption() domain.SortOption {
	def, err := domain.ParseSortOption(e.cfg.Library.DefaultSort)
	if err != nil {
		def = domain.DefaultSortOption
	}
	return store.LoadSortOption(e.prefs, def)
}

func (e *env) ls(ctx context.Context, dir domain.PathSegments) error {
	l, err := e.lister.List(ctx, pathutil.Abs(dir))
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	for _, f := range l.Folders {
		fmt.Fprintf(tw, "%s/\t%s\t\n", f.Name, items(f.ItemCount))
	}
	for _, f := range fs.SortAudioFiles(l.Files, e.sortOption()) {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", f.Name, f.HumanSize(), f.HumanAge())
	}
	return tw.Flush()
}

func items(n int) string {
	if n == 1 {
		return "1 item"
	}
	return humanize.Comma(int64(n)) + " items"
}

func (e *env) tree(ctx context.Context) error {
	folders, err := e.lister.AllFolders(ctx)
	if err != nil {
		return err
	}
	for _, f := range folders {
		fmt.Fprintf(e.out, "%s%s/\n", strings.Repeat("  ", len(f.Path)-1), f.Name)
	}
	return nil
}

func (e *env) rename(ctx context.Context, p domain.PathSegments, name string) error {
	info, err := e.driver.Stat(ctx, pathutil.Abs(p))
	if err != nil {
		return err
	}
	if !info.Exists {
		return &domain.NotFoundError{Path: p.String()}
	}
	var np domain.PathSegments
	if info.IsDir {
		np, err = e.engine.RenameFolder(ctx, p, name)
	} else {
		np, err = e.engine.RenameFile(ctx, p, name)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "renamed to %s\n", np)
	return nil
}

func (e *env) rm(ctx context.Context, p domain.PathSegments) error {
	info, err := e.driver.Stat(ctx, pathutil.Abs(p))
	if err != nil {
		return err
	}
	if !info.Exists {
		return &domain.NotFoundError{Path: p.String()}
	}
	if !info.IsDir {
		np, err := e.engine.DeleteAudioFile(ctx, p, false)
		if err != nil {
			return err
		}
		if np == nil {
			fmt.Fprintf(e.out, "deleted %s\n", p)
		} else {
			fmt.Fprintf(e.out, "moved %s to Recently Deleted\n", p)
		}
		return nil
	}

	res, err := e.engine.DeleteFolder(ctx, p)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "moved %d recording(s) to Recently Deleted\n", res.SuccessCount)
	if len(res.Failed) > 0 {
		return fmt.Errorf("folder kept; could not move: %s", strings.Join(res.FailedNames(), ", "))
	}
	return nil
}

func (e *env) restore(ctx context.Context, name string, dest []string) error {
	src := domain.PathSegments{pathutil.RecentlyDeletedDir, name}
	var dir domain.PathSegments
	if len(dest) > 0 {
		dir = pathutil.Split(dest[0])
	} else {
		dir = e.engine.SuggestedRestoreDirectory(ctx, src)
	}
	p, err := e.engine.RestoreAudioFile(ctx, src, dir)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "restored to %s\n", p)
	return nil
}

func (e *env) search(ctx context.Context, query string) error {
	f := search.Filters{
		IncludeAudio:   e.cfg.Search.IncludeAudio,
		IncludeFolders: e.cfg.Search.IncludeFolders,
	}
	res, err := e.ix.Search(ctx, query, f, nil)
	if err != nil {
		return err
	}
	if err := store.AddSearchHistory(e.prefs, query, e.cfg.Search.HistoryLimit); err != nil {
		return err
	}
	for _, r := range res.Folders {
		fmt.Fprintf(e.out, "%s/\n", r.Path)
	}
	for _, r := range res.AudioFiles {
		fmt.Fprintf(e.out, "%s\t%s\n", r.Path, humanize.Bytes(uint64(r.SizeBytes)))
	}
	if res.Empty() {
		fmt.Fprintln(e.out, "no matches")
	}
	return nil
}

func (e *env) trashCmd(ctx context.Context, sub string) error {
	switch sub {
	case "", "list":
		list, err := e.trash.List(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
		for _, it := range list {
			from := "unknown"
			if it.OriginalPath != nil {
				from = it.OriginalPath.String()
			}
			fmt.Fprintf(tw, "%s\t%s\tfrom %s\t%s\n", it.Name, humanize.Bytes(uint64(it.Size)), from, humanize.Time(it.DeletedAt))
		}
		return tw.Flush()
	case "empty":
		res, err := e.engine.EmptyRecentlyDeleted(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(e.out, "removed %d item(s)\n", res.SuccessCount)
		return res.Err()
	}
	return fmt.Errorf("trash: unknown subcommand %q", sub)
}

func (e *env) sortCmd(opt string) error {
	if opt == "" {
		fmt.Fprintln(e.out, e.sortOption())
		return nil
	}
	o, err := domain.ParseSortOption(opt)
	if err != nil {
		return err
	}
	return store.SaveSortOption(e.prefs, o)
}
