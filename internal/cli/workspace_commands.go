package cli

import (
	"context"
	"errors"

	"programme-studio/internal/config"
	"programme-studio/internal/logging"
)

func runInit(args []string) error {
	fs, common := newFlagSet("init")
	if err := fs.Parse(args); err != nil {
		return err
	}

	res, err := config.InitWorkspace(context.Background(), config.InitWorkspaceOptions{
		ConfigPath: common.configPath(),
		Logger:     logging.Nop(),
	})
	if err != nil {
		return err
	}
	if *common.jsonOut {
		return printJSON(res)
	}

	outln("workspace initialized")
	outf("config: %s\n", res.ConfigPath)
	outf("state_dir: %s\n", res.StateDir)
	outf("created_config: %t\n", res.CreatedConfig)
	outf("created_state_dir: %t\n", res.CreatedStateDir)
	outln("checks:")
	printChecks(res.DoctorResult, "  ")
	if !res.DoctorResult.OK {
		return errors.New("doctor checks failed")
	}
	outln("next: programme-studio console")
	return nil
}

func runDoctor(args []string) error {
	fs, common := newFlagSet("doctor")
	probe := fs.Bool("probe", true, "call the API to check reachability and credentials")
	if err := fs.Parse(args); err != nil {
		return err
	}

	log := logging.Nop()
	if *common.verbose {
		log = logging.New(logging.Config{Output: stderr, Console: true})
	}
	res, err := config.Doctor(context.Background(), config.DoctorOptions{
		ConfigPath: common.configPath(),
		Probe:      *probe,
		Logger:     log,
	})
	if err != nil {
		return err
	}
	if *common.jsonOut {
		if err := printJSON(res); err != nil {
			return err
		}
	} else {
		printChecks(res, "")
	}
	if !res.OK {
		return errors.New("doctor checks failed")
	}
	return nil
}

func printChecks(res config.DoctorResult, indent string) {
	for _, c := range res.Checks {
		status := "ok"
		if !c.OK {
			status = "fail"
		}
		outf("%s%s: %s (%s)\n", indent, c.Name, status, c.Message)
	}
}
