package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"programme-studio/internal/config"
)

func runSettings(args []string) error {
	if len(args) == 0 {
		printSettingsUsage()
		return nil
	}
	switch args[0] {
	case "show":
		return runSettingsShow(args[1:])
	case "set":
		return runSettingsSet(args[1:])
	case "categories":
		return runSettingsCategories(args[1:])
	case "help", "-h", "--help":
		printSettingsUsage()
		return nil
	default:
		printSettingsUsage()
		return fmt.Errorf("unknown settings subcommand %q", args[0])
	}
}

func runSettingsShow(args []string) error {
	fs, common := newFlagSet("settings show")
	if err := fs.Parse(args); err != nil {
		return err
	}

	configPath := common.configPath()
	s, err := config.Read(configPath)
	if err != nil {
		return err
	}
	if *common.jsonOut {
		return printJSON(map[string]any{
			"config_path": configPath,
			"settings":    s,
		})
	}

	outf("config: %s\n", configPath)
	for _, key := range config.Keys() {
		v, err := config.Get(s, key)
		if err != nil {
			return err
		}
		outf("%s: %s\n", key, defaultIfEmpty(v, "(unset)"))
	}
	if _, ok := config.ResolveToken(s); ok {
		outf("api_token: set via %s\n", s.APITokenEnv)
	} else {
		outf("api_token: missing (%s)\n", s.APITokenEnv)
	}
	printCategories(s.Categories)
	return nil
}

// runSettingsSet takes key=value pairs, e.g. `settings set upload_limit_mb_s=4 staging.mode=off`.
func runSettingsSet(args []string) error {
	fs, common := newFlagSet("settings set")
	if err := fs.Parse(args); err != nil {
		return err
	}
	pairs := fs.Args()
	if len(pairs) == 0 {
		return errors.New("settings set requires key=value arguments (keys: " + strings.Join(config.Keys(), ", ") + ")")
	}

	configPath := common.configPath()
	s, err := config.Update(configPath, func(s *config.Settings) error {
		for _, pair := range pairs {
			key, value, ok := strings.Cut(pair, "=")
			if !ok {
				return fmt.Errorf("expected key=value, got %q", pair)
			}
			if err := config.Set(s, key, value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if *common.jsonOut {
		return printJSON(map[string]any{"config_path": configPath, "settings": s})
	}
	outf("updated settings in %s\n", configPath)
	for _, pair := range pairs {
		key, _, _ := strings.Cut(pair, "=")
		v, _ := config.Get(s, key)
		outf("%s: %s\n", strings.TrimSpace(key), defaultIfEmpty(v, "(unset)"))
	}
	return nil
}

func runSettingsCategories(args []string) error {
	if len(args) == 0 {
		printSettingsCategoriesUsage()
		return nil
	}
	switch args[0] {
	case "list":
		return runSettingsCategoriesList(args[1:])
	case "add":
		return runSettingsCategoriesEdit("add", args[1:])
	case "remove":
		return runSettingsCategoriesEdit("remove", args[1:])
	case "help", "-h", "--help":
		printSettingsCategoriesUsage()
		return nil
	default:
		printSettingsCategoriesUsage()
		return fmt.Errorf("unknown settings categories subcommand %q", args[0])
	}
}

func runSettingsCategoriesList(args []string) error {
	fs, common := newFlagSet("settings categories list")
	if err := fs.Parse(args); err != nil {
		return err
	}
	s, err := config.Read(common.configPath())
	if err != nil {
		return err
	}
	if *common.jsonOut {
		return printJSON(map[string]any{"categories": s.Categories})
	}
	if len(s.Categories) == 0 {
		outln("no categories configured")
		return nil
	}
	for i, c := range s.Categories {
		outf("%d. %s\n", i+1, c)
	}
	return nil
}

func runSettingsCategoriesEdit(action string, args []string) error {
	fs, common := newFlagSet("settings categories " + action)
	var values stringList
	fs.Var(&values, "value", "category name (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	values = append(values, fs.Args()...)
	names := config.NormalizeCategories(values)
	if len(names) == 0 {
		return errors.New("set --value <category>")
	}

	var missing []string
	s, err := config.Update(common.configPath(), func(s *config.Settings) error {
		if action == "add" {
			s.Categories = append(s.Categories, names...)
			return nil
		}
		missing = lo.Without(names, s.Categories...)
		if len(missing) > 0 {
			return fmt.Errorf("category not found: %s", strings.Join(missing, ", "))
		}
		s.Categories = lo.Without(s.Categories, names...)
		return nil
	})
	if err != nil {
		return err
	}
	if *common.jsonOut {
		return printJSON(map[string]any{"categories": s.Categories})
	}
	outf("categories %s. total categories: %d\n", pastTense(action), len(s.Categories))
	return nil
}

func pastTense(action string) string {
	if action == "add" {
		return "added"
	}
	return "removed"
}

func printCategories(categories []string) {
	if len(categories) == 0 {
		outln("categories: (none)")
		return
	}
	outln("categories:")
	for i, c := range categories {
		outf("  %d. %s\n", i+1, c)
	}
}

func printSettingsUsage() {
	outln("settings commands:")
	outln("  settings show")
	outln("  settings set <key>=<value> [<key>=<value> ...]")
	outln("  settings categories list")
	outln("  settings categories add --value <name>")
	outln("  settings categories remove --value <name>")
	outln()
	outln("keys: " + strings.Join(config.Keys(), ", "))
}

func printSettingsCategoriesUsage() {
	outln("settings categories commands:")
	outln("  settings categories list")
	outln("  settings categories add --value <name> [--value <name> ...]")
	outln("  settings categories remove --value <name> [--value <name> ...]")
}
