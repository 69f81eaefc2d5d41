package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/astromechza/inkboard/pkg/board"
	"github.com/astromechza/inkboard/pkg/collab"
	"github.com/astromechza/inkboard/pkg/config"
	"github.com/astromechza/inkboard/pkg/protocol"
	"github.com/astromechza/inkboard/pkg/relay"
	"github.com/astromechza/inkboard/pkg/shape"
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
	configVar := flag.String("config", "", "optional path to a config file")
	roomVar := flag.String("room", "", "the room to join, overrides the config")
	renderVar := flag.Bool("render", false, "render the change graph to a temp svg on exit")
	flag.Parse()

	cfg, err := config.Load(*configVar)
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))
	if *roomVar != "" {
		cfg.Board.Room = *roomVar
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := storage.Open(ctx, cfg.Storage.Driver, cfg.Storage.DSN)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()
	saver := storage.NewAutoSaver(store, storage.WithInterval(cfg.Board.AutoSaveInterval))

	doc, err := saver.LoadLast(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		if doc, err = board.New(); err != nil {
			return err
		}
		slog.Info("started new board", "actor", doc.ActorID())
	} else if err != nil {
		return fmt.Errorf("failed to restore last board: %w", err)
	} else {
		slog.Info("restored board", "id", saver.DocumentID(), "shapes", doc.ShapeCount(), "heads", doc.Version().Strings())
	}

	p := &peer{
		cfg:   cfg,
		saver: saver,
		session: collab.NewSession(doc,
			board.WithMaxUndoSteps(cfg.Undo.MaxSteps),
			board.WithMergeInterval(cfg.Undo.MergeInterval),
		),
		seeds: shape.NewSeedSource(rand.Uint32()),
	}

	wg := new(sync.WaitGroup)

	wg.Add(1)
	go func() {
		defer wg.Done()
		p.connectContinuously(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		p.editRandomlyContinuously(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		p.autoSaveContinuously(ctx)
	}()

	exit := make(chan os.Signal, 1)
	signal.Notify(exit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-exit
	slog.Info("Signal caught", "sig", sig)
	cancel()

	wg.Wait()

	if err := saver.Save(context.Background(), doc); err != nil {
		return fmt.Errorf("failed to save on exit: %w", err)
	}
	slog.Info("saved", "id", saver.DocumentID(), "shapes", doc.ShapeCount())
	if *renderVar {
		if svgPath, err := viz.RenderToTemp(doc); err != nil {
			slog.Error("failed to render", "err", err)
		} else {
			slog.Info("rendered", "path", "file://"+svgPath)
		}
	}
	return nil
}

type peer struct {
	cfg     *config.Config
	saver   *storage.AutoSaver
	session *collab.Session
	seeds   *shape.SeedSource
}

func (p *peer) connectContinuously(ctx context.Context) {
	for ctx.Err() == nil {
		if err := p.connectAndSync(ctx); err != nil {
			slog.Error("connection ended", "err", err)
		}
	}
	slog.Info("stopping relay connection")
}

func (p *peer) dial(ctx context.Context) (*relay.Client, error) {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 0
	var client *relay.Client
	err := backoff.RetryNotify(func() error {
		c, err := relay.Dial(ctx, p.cfg.Board.RelayURL)
		if err != nil {
			return err
		}
		client = c
		return nil
	}, backoff.WithContext(bo, ctx), func(err error, next time.Duration) {
		slog.Warn("failed to connect, retrying", "err", err, "in", next)
	})
	return client, err
}

func (p *peer) connectAndSync(ctx context.Context) error {
	client, err := p.dial(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := p.session.JoinRoom(p.cfg.Board.Room); err != nil {
		return err
	}
	if err := p.flush(client); err != nil {
		return err
	}

	t := time.NewTicker(p.cfg.Board.BroadcastInterval)
	defer t.Stop()
	for {
		select {
		case ev, ok := <-client.Events():
			if !ok {
				return nil
			}
			p.handle(ev)
		case <-t.C:
			if err := p.session.BroadcastSync(); err != nil {
				slog.Error("failed to prepare sync", "err", err)
			}
		case <-ctx.Done():
			if err := p.session.BroadcastSync(); err != nil {
				slog.Error("failed to prepare sync", "err", err)
			}
			_ = p.session.LeaveRoom()
			return p.flush(client)
		}
		if err := p.flush(client); err != nil {
			return err
		}
	}
}

func (p *peer) handle(ev protocol.Event) {
	if err := p.session.HandleEvent(ev); err != nil {
		slog.Warn("failed to apply event", "event", fmt.Sprintf("%T", ev), "err", err)
		return
	}
	switch v := ev.(type) {
	case protocol.JoinedRoom:
		slog.Info("joined room", "room", v.Room, "peers", v.PeerCount)
		if err := p.session.SetUserInfo(p.cfg.Board.UserName, p.cfg.Board.UserColor); err != nil {
			slog.Error("failed to announce user", "err", err)
		}
	case protocol.SyncReceived:
		p.saver.MarkDirty()
		slog.Debug("merged remote changes", "from", v.From, "shapes", p.session.Document().ShapeCount())
	case protocol.PeerJoinedEvent:
		slog.Info("peer joined", "peer", v.PeerID)
	case protocol.PeerLeftEvent:
		slog.Info("peer left", "peer", v.PeerID)
	case protocol.ErrorEvent:
		slog.Warn("relay error", "message", v.Message)
	}
}

func (p *peer) flush(client *relay.Client) error {
	for _, raw := range p.session.TakeOutgoing() {
		if err := client.SendText(raw); err != nil {
			return err
		}
	}
	return nil
}

func (p *peer) editRandomlyContinuously(ctx context.Context) {
	for {
		t := time.NewTimer(time.Second + time.Second*time.Duration(rand.Intn(5)))
		select {
		case <-t.C:
			if err := p.editRandomly(); err != nil {
				slog.Error("failed to edit", "err", err)
			} else {
				p.saver.MarkDirty()
			}
		case <-ctx.Done():
			t.Stop()
			slog.Info("stopping scheduled edits")
			return
		}
	}
}

func (p *peer) editRandomly() error {
	doc := p.session.Document()
	shapes, err := doc.ShapesOrdered()
	if err != nil {
		return err
	}
	if len(shapes) == 0 || rand.Intn(3) == 0 {
		pos := shape.Pt(rand.Float64()*800, rand.Float64()*600)
		var s shape.Shape
		if rand.Intn(2) == 0 {
			s = shape.NewRectangle(p.seeds, pos, 20+rand.Float64()*100, 20+rand.Float64()*100)
		} else {
			s = shape.NewEllipse(p.seeds, pos, 10+rand.Float64()*50, 10+rand.Float64()*50)
		}
		slog.Info("adding shape", "id", s.ShapeID(), "kind", s.Kind())
		return doc.AddShape(s)
	}

	target := shapes[rand.Intn(len(shapes))]
	switch rand.Intn(4) {
	case 0:
		slog.Info("bringing to front", "id", target.ShapeID())
		return doc.BringToFront(target.ShapeID())
	case 1:
		ok, err := p.session.UndoManager().Undo()
		slog.Info("undo", "applied", ok)
		return err
	default:
		slog.Info("moving shape", "id", target.ShapeID())
		return doc.UpdateShape(shape.Translate(target, rand.Float64()*20-10, rand.Float64()*20-10))
	}
}

func (p *peer) autoSaveContinuously(ctx context.Context) {
	t := time.NewTicker(time.Second)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			if saved, err := p.saver.MaybeSave(ctx, p.session.Document()); err != nil {
				slog.Error("failed to auto save", "err", err)
			} else if saved {
				slog.Info("auto saved", "id", p.saver.DocumentID())
			}
		case <-ctx.Done():
			return
		}
	}
}
