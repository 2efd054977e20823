package cli

import (
	"fmt"

	"programme-studio/internal/config"
)

func Run(args []string) error {
	if len(args) == 0 {
		printRootUsage()
		return nil
	}
	if err := config.LoadDotEnv(".env"); err != nil {
		return err
	}

	switch args[0] {
	case "init":
		return runInit(args[1:])
	case "doctor":
		return runDoctor(args[1:])
	case "console":
		return runConsole(args[1:])
	case "list":
		return runList(args[1:])
	case "stats":
		return runStats(args[1:])
	case "show":
		return runShow(args[1:])
	case "create":
		return runCreate(args[1:])
	case "edit":
		return runEdit(args[1:])
	case "delete":
		return runDelete(args[1:])
	case "drafts":
		return runDrafts(args[1:])
	case "settings":
		return runSettings(args[1:])
	case "help", "-h", "--help":
		printRootUsage()
		return nil
	default:
		printRootUsage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func printRootUsage() {
	outln("programme-studio: author and manage video programmes")
	outln()
	outln("Quick Start:")
	outln("  programme-studio init")
	outln("  export " + config.DefaultTokenEnv + "=<token>")
	outln("  programme-studio console")
	outln()
	outln("Workspace Commands:")
	outln("  init      create workspace config + run environment checks")
	outln("  doctor    run config, filesystem and API checks")
	outln("  settings  show/update workspace settings and categories")
	outln()
	outln("Programme Commands:")
	outln("  console   interactive programme manager (browse + authoring wizard)")
	outln("  list      list programmes")
	outln("  stats     programme totals")
	outln("  show      show one programme (--secure for playback URL)")
	outln("  create    upload a video and create a programme")
	outln("  edit      update an existing programme's details")
	outln("  delete    delete a programme")
	outln("  drafts    local journal of background uploads (--orphaned)")
	outln()
	outln("Notes:")
	outln("  - Use --json on commands for machine-readable output")
	outln("  - Use --config <path> to point at another workspace config")
}
