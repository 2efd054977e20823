package cli

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"

	"programme-studio/internal/authoring"
	"programme-studio/internal/media"
	"programme-studio/internal/notify"
)

// detailsFlags are the details-step fields shared by create and edit.
type detailsFlags struct {
	description *string
	categories  stringList
	thumbnail   *string
	featured    *bool
	published   *bool
}

func (d *detailsFlags) register(fs *flag.FlagSet) {
	d.description = fs.String("description", "", "programme description")
	fs.Var(&d.categories, "category", "category (repeatable)")
	d.thumbnail = fs.String("thumbnail", "", "thumbnail image path")
	d.featured = fs.Bool("featured", false, "mark as featured")
	d.published = fs.Bool("published", false, "publish immediately")
}

// apply copies the flags into the open session. set reports which flags were
// given explicitly so edit only overwrites what the caller asked for.
func (d *detailsFlags) apply(wf *authoring.Workflow, set map[string]bool) error {
	if set["description"] {
		if err := wf.SetDescription(*d.description); err != nil {
			return err
		}
	}
	if set["category"] {
		if err := wf.SetCategories(d.categories); err != nil {
			return err
		}
	}
	if set["thumbnail"] {
		thumb, err := media.Open(*d.thumbnail)
		if err != nil {
			return err
		}
		if err := wf.SelectThumbnail(thumb); err != nil {
			return err
		}
	}
	if set["featured"] {
		if err := wf.SetFeatured(*d.featured); err != nil {
			return err
		}
	}
	if set["published"] {
		if err := wf.SetPublished(*d.published); err != nil {
			return err
		}
	}
	return nil
}

func explicitFlags(fs *flag.FlagSet) map[string]bool {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

func runCreate(args []string) error {
	fs, common := newFlagSet("create")
	title := fs.String("title", "", "programme title")
	videoPath := fs.String("video", "", "video file path")
	var details detailsFlags
	details.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	set := explicitFlags(fs)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	rt, err := newRuntime(ctx, runtimeOptions{configPath: common.configPath(), verbose: *common.verbose})
	if err != nil {
		return err
	}
	defer rt.Close()

	var result authoring.UploadResult
	wf, err := rt.newWorkflow(commandNotifier(*common.jsonOut), nil, func(r authoring.UploadResult) { result = r })
	if err != nil {
		return err
	}
	defer wf.Wait()

	if err := wf.Open(nil); err != nil {
		return err
	}
	// Closing after a failure marks a finished upload as abandoned in the journal.
	defer func() { _ = wf.Close() }()
	if err := wf.SetTitle(*title); err != nil {
		return err
	}
	if strings.TrimSpace(*videoPath) != "" {
		video, err := media.Open(*videoPath)
		if err != nil {
			return err
		}
		if err := wf.SelectVideo(video); err != nil {
			return err
		}
	}
	if err := wf.Advance(ctx); err != nil {
		return err
	}
	if err := details.apply(wf, set); err != nil {
		return err
	}
	if err := wf.SubmitDetails(ctx); err != nil {
		return err
	}
	if *common.jsonOut {
		return printJSON(result)
	}
	printUploadResult(result)
	return nil
}

func runEdit(args []string) error {
	fs, common := newFlagSet("edit")
	rawID := fs.String("id", "", "programme id")
	var details detailsFlags
	details.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := requireID(*rawID)
	if err != nil {
		return err
	}
	set := explicitFlags(fs)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	rt, err := newRuntime(ctx, runtimeOptions{configPath: common.configPath(), verbose: *common.verbose})
	if err != nil {
		return err
	}
	defer rt.Close()

	existing, err := rt.client.FetchProgrammeForEdit(ctx, id)
	if err != nil {
		return err
	}
	var result authoring.UploadResult
	wf, err := rt.newWorkflow(commandNotifier(*common.jsonOut), nil, func(r authoring.UploadResult) { result = r })
	if err != nil {
		return err
	}
	if err := wf.Open(&existing); err != nil {
		return err
	}
	defer func() { _ = wf.Close() }()
	if err := details.apply(wf, set); err != nil {
		return err
	}
	if err := wf.SubmitDetails(ctx); err != nil {
		return err
	}
	if *common.jsonOut {
		return printJSON(result)
	}
	printUploadResult(result)
	return nil
}

// commandNotifier prints notifications to stdout, or stderr when stdout carries JSON.
func commandNotifier(jsonOut bool) notify.Notifier {
	if jsonOut {
		return notify.NewPrinter(stderr)
	}
	return notify.NewPrinter(stdout)
}

func printUploadResult(r authoring.UploadResult) {
	outln(kv("programme_id", r.ProgrammeID))
	outln(kv("product_id", r.ProductID))
	if r.MuxPlaybackID != "" {
		outln(kv("playback_id", r.MuxPlaybackID))
	}
}
