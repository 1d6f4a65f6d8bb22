package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/voyagen/tvcatalog/internal/catalog"
	"github.com/voyagen/tvcatalog/internal/models"
	"github.com/voyagen/tvcatalog/internal/player"
	"github.com/voyagen/tvcatalog/internal/service"
)

func runPlaylists(ctx context.Context, a *app, _ []string) error {
	pls, err := a.cat.ListPlaylists(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCHANNELS\tSOURCE\tUPDATED")
	for _, p := range pls {
		source := "file"
		if p.SourceType == models.SourceTypeURL {
			source = p.URL
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", p.ID, p.Name, p.ChannelCount, source, p.LastUpdated.Local().Format(time.DateTime))
	}
	return tw.Flush()
}

func runCategories(ctx context.Context, a *app, _ []string) error {
	cats, err := a.cat.ListCategories(ctx)
	if err != nil {
		return err
	}
	for _, c := range cats {
		fmt.Println(c)
	}
	return nil
}

func runChannels(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("channels", flag.ContinueOnError)
	category := fs.String("category", models.AllCategory, "category filter")
	search := fs.String("search", "", "name search")
	if err := fs.Parse(args); err != nil {
		return err
	}
	chs, err := a.cat.ListChannels(ctx, *category, *search)
	if err != nil {
		return err
	}
	printChannels(chs)
	return nil
}

func printChannels(chs []models.Channel) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tCATEGORY\tLIVE\tURL")
	for _, ch := range chs {
		live := ""
		if ch.Liveness.DisplaysLive() {
			live = "LIVE"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", ch.Name, ch.Category, live, ch.URL)
	}
	_ = tw.Flush()
}

func runUpload(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("upload", flag.ContinueOnError)
	name := fs.String("name", "", "playlist name (default: file name)")
	path, err := oneArg(fs, args)
	if err != nil {
		return err
	}
	if err := catalog.ValidatePlaylistFile(filepath.Base(path)); err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	p, err := a.cat.UploadPlaylist(ctx, filepath.Base(path), *name, f)
	if err != nil {
		return err
	}
	fmt.Printf("Playlist %q loaded with %d channels (id %s)\n", p.Name, p.ChannelCount, p.ID)
	return nil
}

func runAddURL(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("add-url", flag.ContinueOnError)
	name := fs.String("name", "", "playlist name (default: dated URL Playlist name)")
	rawURL, err := oneArg(fs, args)
	if err != nil {
		return err
	}
	if *name == "" {
		*name = catalog.URLPlaylistName(time.Now())
	}
	p, err := a.cat.AddPlaylistURL(ctx, *name, rawURL)
	if err != nil {
		return err
	}
	fmt.Printf("Playlist %q loaded with %d channels (id %s)\n", p.Name, p.ChannelCount, p.ID)
	return nil
}

func runDelete(ctx context.Context, a *app, args []string) error {
	id, err := oneArg(flag.NewFlagSet("delete", flag.ContinueOnError), args)
	if err != nil {
		return err
	}
	if err := a.cat.DeletePlaylist(ctx, id); err != nil {
		return err
	}
	fmt.Println("deleted", id)
	return nil
}

func runRefresh(ctx context.Context, a *app, args []string) error {
	id, err := oneArg(flag.NewFlagSet("refresh", flag.ContinueOnError), args)
	if err != nil {
		return err
	}
	p, err := a.cat.RefreshPlaylist(ctx, id)
	if err != nil {
		return err
	}
	fmt.Printf("Playlist %q refreshed with %d channels\n", p.Name, p.ChannelCount)
	return nil
}

// runPlay finds the first channel whose name contains NAME and plays it in
// an external player until the player exits or the command is interrupted.
// With -file the playlist is loaded in process instead of from the service.
func runPlay(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("play", flag.ContinueOnError)
	category := fs.String("category", models.AllCategory, "category filter")
	file := fs.String("file", "", "play from a local playlist file instead of the service")
	command := fs.String("player", envOr("TVCTL_PLAYER", "mpv"), "external player command")
	volume := fs.Float64("volume", 1, "volume 0..1")
	query, err := oneArg(fs, args)
	if err != nil {
		return err
	}

	cat := a.cat
	if *file != "" {
		local := catalog.NewLocal(a.log, service.Options{})
		f, err := os.Open(*file)
		if err != nil {
			return err
		}
		_, err = local.UploadPlaylist(ctx, filepath.Base(*file), "", f)
		f.Close()
		if err != nil {
			return err
		}
		cat = local
	}

	backend := player.NewExecBackend(*command)
	sess := catalog.NewSession(cat, a.log, catalog.SessionOptions{Adaptive: backend, Progressive: backend})
	defer sess.Close()

	if err := sess.Refresh(ctx); err != nil {
		return err
	}
	sess.SetCategory(*category)
	sess.SetSearch(query)
	sess.FlushFilters()

	st := sess.State()
	if len(st.Channels) == 0 {
		return fmt.Errorf("no channel matches %q", query)
	}
	if err := sess.SetVolume(*volume); err != nil {
		return err
	}

	done := make(chan player.Status, 1)
	unsubscribe := sess.Subscribe(func(st catalog.State) {
		switch st.Playback.Status {
		case player.StatusErrored, player.StatusPaused:
			select {
			case done <- st.Playback.Status:
			default:
			}
		}
	})
	defer unsubscribe()

	ch := st.Channels[0]
	fmt.Printf("Playing %s (%s)\n", ch.Name, strings.TrimSpace(ch.Category))
	if err := sess.Select(ctx, ch); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		sess.Stop()
		return nil
	case status := <-done:
		if status == player.StatusErrored {
			return errors.New(sess.State().Playback.Err)
		}
		return nil
	}
}
