package cli

import (
	"context"
	"errors"
	"flag"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"programme-studio/internal/authoring"
	"programme-studio/internal/config"
	"programme-studio/internal/journal"
	"programme-studio/internal/logging"
	"programme-studio/internal/notify"
	"programme-studio/internal/programme"
	"programme-studio/internal/staging"
)

type commonFlags struct {
	config  *string
	jsonOut *bool
	verbose *bool
}

func newFlagSet(name string) (*flag.FlagSet, commonFlags) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs, commonFlags{
		config:  fs.String("config", config.DefaultConfigPath, "workspace config path"),
		jsonOut: fs.Bool("json", false, "print JSON output"),
		verbose: fs.Bool("verbose", false, "log at the configured level instead of warn"),
	}
}

func (c commonFlags) configPath() string {
	return config.NormalizePath(*c.config)
}

// runtime holds what a command needs to talk to the Programme API.
type runtime struct {
	configPath string
	settings   config.Settings
	log        zerolog.Logger
	client     *programme.Client
	journal    *journal.Journal
	stager     authoring.Stager
	logsToFile bool
	closers    []io.Closer
}

type runtimeOptions struct {
	configPath string
	verbose    bool
	// logToFile sends logs to settings.LogFile; the console owns the terminal.
	logToFile bool
}

func newRuntime(ctx context.Context, opts runtimeOptions) (*runtime, error) {
	s, err := config.Read(opts.configPath)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(s); err != nil {
		return nil, err
	}
	rt := &runtime{configPath: opts.configPath, settings: s}

	if opts.logToFile {
		f, err := logging.OpenFile(s.LogFile)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, f)
		rt.logsToFile = true
		rt.log = logging.New(logging.Config{Level: s.LogLevel, Output: f})
	} else {
		level := "warn"
		if opts.verbose {
			level = s.LogLevel
		}
		rt.log = logging.New(logging.Config{Level: level, Output: stderr, Console: true})
	}

	if _, ok := config.ResolveToken(s); !ok {
		rt.log.Warn().Str("env", s.APITokenEnv).Msg("api token is not set; requests will be unauthenticated")
	}
	rt.client, err = config.NewAPIClient(s, rt.log)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.journal, err = journal.Open(s.StateDir, rt.log)
	if err != nil {
		rt.Close()
		return nil, err
	}
	if s.Staging.Mode == config.StagingModeS3 {
		st, err := staging.NewS3(ctx, staging.Config{
			Bucket:          s.Staging.Bucket,
			Region:          s.Staging.Region,
			Endpoint:        s.Staging.Endpoint,
			Prefix:          s.Staging.Prefix,
			UploadLimitMBps: s.UploadLimitMBps,
		}, rt.log)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.stager = st
	}
	return rt, nil
}

// newWorkflow wires a workflow to the API, the draft journal and the given sinks.
func (rt *runtime) newWorkflow(notifier notify.Notifier, sink authoring.EventSink, onComplete func(authoring.UploadResult)) (*authoring.Workflow, error) {
	sinks := authoring.Sinks{rt.journal}
	if sink != nil {
		sinks = append(sinks, sink)
	}
	if rt.logsToFile {
		notifier = notify.Multi{notifier, notify.NewLogger(rt.log)}
	}
	return authoring.New(authoring.Options{
		API:           rt.client,
		Notifier:      notifier,
		Sink:          sinks,
		Stager:        rt.stager,
		Logger:        rt.log,
		MaxVideoBytes: rt.settings.MaxVideoBytes(),
		OnComplete:    onComplete,
	})
}

func (rt *runtime) Close() {
	for _, c := range rt.closers {
		_ = c.Close()
	}
	rt.closers = nil
}

func requireID(raw string) (string, error) {
	id := strings.TrimSpace(raw)
	if id == "" {
		return "", errors.New("--id is required")
	}
	return id, nil
}
