package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"programme-studio/internal/model"
	"programme-studio/internal/programme"
)

func runList(args []string) error {
	fs, common := newFlagSet("list")
	published := fs.Bool("published", false, "only published programmes")
	featured := fs.Bool("featured", false, "only featured programmes")
	if err := fs.Parse(args); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rt, err := newRuntime(ctx, runtimeOptions{configPath: common.configPath(), verbose: *common.verbose})
	if err != nil {
		return err
	}
	defer rt.Close()

	list, err := rt.client.FetchProgrammes(ctx)
	if err != nil {
		return err
	}
	list = filterProgrammes(list, *published, *featured)
	if *common.jsonOut {
		return printJSON(map[string]any{"programmes": list})
	}
	if len(list) == 0 {
		outln("no programmes yet")
		return nil
	}
	for _, p := range list {
		outln(programmeRow(p))
	}
	return nil
}

func runStats(args []string) error {
	fs, common := newFlagSet("stats")
	if err := fs.Parse(args); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rt, err := newRuntime(ctx, runtimeOptions{configPath: common.configPath(), verbose: *common.verbose})
	if err != nil {
		return err
	}
	defer rt.Close()

	stats, err := rt.client.FetchProgrammeStats(ctx)
	if err != nil {
		return err
	}
	if *common.jsonOut {
		return printJSON(stats)
	}
	outf("total: %d\n", stats.TotalProgrammes)
	outf("published: %d\n", stats.PublishedProgrammes)
	outf("drafts: %d\n", stats.DraftProgrammes)
	outf("featured: %d\n", stats.FeaturedProgrammes)
	return nil
}

func runShow(args []string) error {
	fs, common := newFlagSet("show")
	rawID := fs.String("id", "", "programme id")
	secure := fs.Bool("secure", false, "also fetch the signed playback URL")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := requireID(*rawID)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rt, err := newRuntime(ctx, runtimeOptions{configPath: common.configPath(), verbose: *common.verbose})
	if err != nil {
		return err
	}
	defer rt.Close()

	var (
		p        programme.Programme
		playback programme.SecureProgramme
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		p, err = rt.client.FetchProgrammeForEdit(gctx, id)
		return err
	})
	if *secure {
		g.Go(func() error {
			var err error
			playback, err = rt.client.FetchSecureProgrammeByID(gctx, id)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if *common.jsonOut {
		out := map[string]any{"programme": p}
		if *secure {
			out["playback"] = playback
		}
		return printJSON(out)
	}
	for _, line := range programmeDetails(p) {
		outln(line)
	}
	if *secure {
		outln(kv("playback_url", playback.PlaybackURL))
		if !playback.ExpiresAt.IsZero() {
			outln(kv("expires_at", playback.ExpiresAt.Format(time.RFC3339)))
		}
	}
	return nil
}

func runDelete(args []string) error {
	fs, common := newFlagSet("delete")
	rawID := fs.String("id", "", "programme id")
	yes := fs.Bool("yes", false, "skip confirmation")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := requireID(*rawID)
	if err != nil {
		return err
	}
	if !*yes {
		ok, err := promptConfirm(fmt.Sprintf("Delete programme %s? This cannot be undone. [y/N]: ", id))
		if err != nil {
			return err
		}
		if !ok {
			return errors.New("delete cancelled")
		}
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rt, err := newRuntime(ctx, runtimeOptions{configPath: common.configPath(), verbose: *common.verbose})
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.client.DeleteProgramme(ctx, id); err != nil {
		return err
	}
	forgotten, err := rt.journal.Forget(id)
	if err != nil {
		rt.log.Warn().Err(err).Str("programme_id", id).Msg("could not prune draft journal")
	}
	if *common.jsonOut {
		return printJSON(map[string]any{"deleted": id, "journal_records_removed": forgotten})
	}
	outf("programme deleted: %s\n", id)
	return nil
}

func runDrafts(args []string) error {
	fs, common := newFlagSet("drafts")
	orphaned := fs.Bool("orphaned", false, "only drafts uploaded but never completed")
	if err := fs.Parse(args); err != nil {
		return err
	}
	rt, err := newRuntime(context.Background(), runtimeOptions{configPath: common.configPath(), verbose: *common.verbose})
	if err != nil {
		return err
	}
	defer rt.Close()

	var records []model.DraftRecord
	if *orphaned {
		records, err = rt.journal.Orphaned()
	} else {
		records, err = rt.journal.List()
	}
	if err != nil {
		return err
	}
	if *common.jsonOut {
		return printJSON(map[string]any{"journal": rt.journal.Path(), "drafts": records})
	}
	if len(records) == 0 {
		outln("no drafts recorded")
		return nil
	}
	for _, rec := range records {
		line := fmt.Sprintf("%-10s %s  %s  %s", rec.Status, rec.StartedAt, rec.Title, defaultIfEmpty(rec.ProductID, "-"))
		if rec.LastError != "" {
			line += "  (" + rec.LastError + ")"
		}
		outln(line)
	}
	return nil
}

func filterProgrammes(list []programme.Programme, publishedOnly, featuredOnly bool) []programme.Programme {
	return lo.Filter(list, func(p programme.Programme, _ int) bool {
		return (!publishedOnly || p.IsPublished) && (!featuredOnly || p.IsFeatured)
	})
}

func programmeRow(p programme.Programme) string {
	return fmt.Sprintf("[%s%s] %s  %s", markIf(p.IsPublished, "P"), markIf(p.IsFeatured, "F"), p.ID, p.Title)
}

func programmeDetails(p programme.Programme) []string {
	lines := []string{
		kv("id", p.ID),
		kv("product_id", p.ProductID),
		kv("title", p.Title),
		kv("description", defaultIfEmpty(p.Description, "(none)")),
		kv("categories", defaultIfEmpty(strings.Join(p.Categories, ", "), "(none)")),
		kv("published", yesNo(p.IsPublished)),
		kv("featured", yesNo(p.IsFeatured)),
		kv("thumbnail", defaultIfEmpty(p.ThumbnailURL, "(none)")),
		kv("playback_id", defaultIfEmpty(p.MuxPlaybackID, "(processing)")),
	}
	if !p.CreatedAt.IsZero() {
		lines = append(lines, kv("created_at", p.CreatedAt.Format(time.RFC3339)))
	}
	return lines
}
