package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/sanity-io/litter"

	"github.com/astromechza/inkboard/pkg/board"
	"github.com/astromechza/inkboard/pkg/storage"
	"github.com/astromechza/inkboard/pkg/viz"
)

func main() {
	if err := mainInner(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func mainInner() error {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{})))

	driverVar := flag.String("driver", "", "read the board from this store driver instead of a file")
	dsnVar := flag.String("dsn", "", "the store dsn when -driver is set")
	svgVar := flag.String("svg", "", "render the change graph to this svg path")
	dotVar := flag.Bool("dot", false, "print the change graph in dot syntax")
	flag.Parse()
	if flag.NArg() != 1 {
		return fmt.Errorf("expected one position argument: the file or document id to read")
	}

	doc, err := load(*driverVar, *dsnVar, flag.Arg(0))
	if err != nil {
		return err
	}

	name, _ := doc.Name()
	slog.Info("loaded board", "name", name, "shapes", doc.ShapeCount(), "heads", doc.Version().Strings())

	shapes, err := doc.ShapesOrdered()
	if err != nil {
		return fmt.Errorf("failed to read shapes: %w", err)
	}
	litter.Dump(shapes)

	history, err := doc.History()
	if err != nil {
		return err
	}
	for i, change := range history {
		slog.Info("change", "i", fmt.Sprintf("%4d", i), "hash", change.Hash, "actor", change.Actor, "seq", change.Seq, "message", change.Message, "dep", change.Dependencies)
	}

	if *dotVar {
		if err := viz.WriteDot(doc, os.Stdout); err != nil {
			return err
		}
	}
	if *svgVar != "" {
		if err := viz.RenderToFile(doc, *svgVar); err != nil {
			return err
		}
		slog.Info("rendered", "path", *svgVar)
	}
	return nil
}

// load reads a stored record by id, or a file holding either a record or a
// bare snapshot.
func load(driver, dsn, arg string) (*board.Document, error) {
	ctx := context.Background()
	if driver != "" {
		store, err := storage.Open(ctx, driver, dsn)
		if err != nil {
			return nil, err
		}
		defer store.Close()
		return storage.NewAutoSaver(store).Load(ctx, arg)
	}

	raw, err := os.ReadFile(arg)
	if err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}
	if rec, err := storage.DecodeRecord(arg, raw); err == nil {
		slog.Info("read record", "id", rec.ID, "saved_at", rec.SavedAt)
		raw = rec.Snapshot
	}
	doc, err := board.FromSnapshot(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to load doc: %w", err)
	}
	return doc, nil
}
