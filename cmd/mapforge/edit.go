package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"

	"github.com/example/mapforge/internal/appstate"
	"github.com/example/mapforge/internal/content"
	"github.com/example/mapforge/internal/session"
	"github.com/example/mapforge/internal/store/sqlite"
)

type editCmd struct {
	*root
	fs      *flag.FlagSet
	mapID   string
	overlay string
	feedURL string
}

func (c *editCmd) FlagSet() *flag.FlagSet {
	return c.fs
}

func parseEditCmd(args []string, r *root) (*editCmd, error) {
	fs := flag.NewFlagSet("edit", flag.ExitOnError)
	c := &editCmd{root: r, fs: fs}
	fs.Usage = usageFunc(c)
	feed := ""
	if r != nil && r.config != nil {
		feed = r.config.Session.FeedURL
	}
	fs.StringVar(&c.mapID, "map", "", "id of the map to edit")
	fs.StringVar(&c.overlay, "overlay", "", "session overlay JSON file to show")
	fs.StringVar(&c.feedURL, "feed", feed, "websocket URL of a live session feed")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if c.mapID == "" || fs.NArg() != 0 {
		return nil, &UsageError{of: c}
	}
	return c, nil
}

// loadMap fetches a stored map and builds its content model.
func loadMap(ctx context.Context, st *sqlite.Store, id string) (sqlite.Map, *content.Model, error) {
	m, err := st.GetMap(ctx, id)
	if err != nil {
		if errors.Is(err, sqlite.ErrNotFound) {
			return sqlite.Map{}, nil, fmt.Errorf("map %s: no such map", id)
		}
		return sqlite.Map{}, nil, err
	}
	model := content.NewModel(m.Grid)
	if dropped := model.Load(m.Content); dropped > 0 {
		log.Printf("map %s: dropped %d invalid entries", id, dropped)
	}
	return m, model, nil
}

func (c *editCmd) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := c.root.openStore()
	if err != nil {
		return err
	}
	defer st.Close()
	m, model, err := loadMap(ctx, st, c.mapID)
	if err != nil {
		return err
	}

	cfg := c.root.config
	opts := []appstate.Option{
		appstate.WithTheme(c.root.activeTheme),
		appstate.WithSaveFunc(st.SaveFunc(m.ID)),
		appstate.WithAutosave(cfg.Editor.AutosaveDelay, cfg.Editor.SavedHold),
		appstate.WithSnapThreshold(cfg.Editor.SnapThreshold),
		appstate.WithNotifier(c.root.notifier),
		appstate.WithOnClose(cancel),
	}
	if c.overlay != "" {
		o, err := session.LoadOverlay(c.overlay)
		if err != nil {
			return err
		}
		opts = append(opts, appstate.WithOverlay(o))
	}

	var state *appstate.AppState
	var feed *session.Feed
	if c.feedURL != "" {
		feed, err = session.Dial(ctx, c.feedURL, nil, session.WithUpdateFunc(func(o *session.Overlay) {
			state.OverlayChanged(o)
		}))
		if err != nil {
			return err
		}
		defer feed.Close()
		opts = append(opts, appstate.WithFeed(feed))
	}

	state = appstate.New(m.Name, model, opts...)
	if feed != nil {
		go func() {
			if err := feed.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("session feed: %v", err)
			}
		}()
	}
	state.Run()
	return nil
}
