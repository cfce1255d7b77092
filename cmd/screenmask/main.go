package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/1broseidon/screenmask/internal/config"
	"github.com/1broseidon/screenmask/internal/ipc"
)

func main() {
	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "daemon":
		os.Exit(runDaemon(os.Args[2:]))
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "activate":
		os.Exit(runActivate(os.Args[2:]))
	case "deactivate":
		os.Exit(runDeactivate(os.Args[2:]))
	case "reload":
		os.Exit(runReload(os.Args[2:]))
	case "monitors":
		os.Exit(runMonitors(os.Args[2:]))
	case "rules":
		os.Exit(runRules(os.Args[2:]))
	case "permission":
		os.Exit(runPermission(os.Args[2:]))
	case "config":
		os.Exit(runConfig(os.Args[2:]))
	case "mcp":
		os.Exit(runMCP(os.Args[2:]))
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: screenmask <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  daemon              Start the mask daemon (foreground)")
	fmt.Fprintln(w, "  status              Show daemon and mask status")
	fmt.Fprintln(w, "  activate            Draw masks for all enabled rules")
	fmt.Fprintln(w, "  deactivate          Remove all masks")
	fmt.Fprintln(w, "  reload              Reload config and re-apply masks")
	fmt.Fprintln(w, "  monitors            List monitors in root-window coordinates")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  rules list          List mask rules")
	fmt.Fprintln(w, "  rules add           Add a mask rule")
	fmt.Fprintln(w, "  rules remove        Remove a mask rule")
	fmt.Fprintln(w, "  rules enable        Enable a mask rule")
	fmt.Fprintln(w, "  rules disable       Disable a mask rule")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  permission status   Show whether overlays are permitted")
	fmt.Fprintln(w, "  permission grant    Allow overlays")
	fmt.Fprintln(w, "  permission revoke   Disallow overlays")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  config validate     Validate configuration")
	fmt.Fprintln(w, "  config print        Print configuration")
	fmt.Fprintln(w, "  config explain      Explain a config value")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  mcp serve           Start MCP server (stdio transport)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'screenmask <command> --help' for command-specific options.")
}

// loadConfig loads path, or the default location when path is empty.
func loadConfig(path string) (*config.Config, error) {
	res, err := loadConfigWithSources(path)
	if err != nil {
		return nil, err
	}
	return res.Config, nil
}

func loadConfigWithSources(path string) (*config.LoadResult, error) {
	if path == "" {
		return config.LoadWithSources()
	}
	return config.LoadFromPath(path)
}

// noArgsFlagSet parses a subcommand that takes no positional arguments.
func noArgsFlagSet(name, usage string, args []string) (ok bool, code int) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: screenmask %s\n", name)
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, usage)
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return false, 0
		}
		return false, 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintf(os.Stderr, "%s takes no arguments\n", name)
		fs.Usage()
		return false, 2
	}
	return true, 0
}

func runStatus(args []string) int {
	if ok, code := noArgsFlagSet("status", "Show daemon and mask status via IPC.", args); !ok {
		return code
	}

	status, err := ipc.NewClient().GetStatus()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	printStatus(os.Stdout, status)
	return 0
}

func printStatus(w io.Writer, status *ipc.StatusData) {
	fmt.Fprintf(w, "daemon_running:     %v\n", status.DaemonRunning)
	fmt.Fprintf(w, "state:              %s\n", status.State)
	fmt.Fprintf(w, "suspended:          %v\n", status.Suspended)
	fmt.Fprintf(w, "permission_granted: %v\n", status.PermissionGranted)
	fmt.Fprintf(w, "live_surfaces:      %d\n", status.LiveSurfaces)
	fmt.Fprintf(w, "activations:        %d\n", status.Activations)
	fmt.Fprintf(w, "rules_file:         %s\n", status.RulesFile)
	fmt.Fprintf(w, "uptime_seconds:     %d\n", status.UptimeSeconds)
	if status.LastOutcome != nil {
		fmt.Fprintf(w, "last_outcome:       %s\n", status.LastOutcome)
	}
}

func runActivate(args []string) int {
	if ok, code := noArgsFlagSet("activate", "Clear all masks and draw one per enabled rule.", args); !ok {
		return code
	}

	data, err := ipc.NewClient().Activate()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println(data.Outcome.String())
	if len(data.Outcome.FailedRuleIDs) > 0 {
		fmt.Fprintf(os.Stderr, "failed rules: %v\n", data.Outcome.FailedRuleIDs)
	}
	return 0
}

func runDeactivate(args []string) int {
	if ok, code := noArgsFlagSet("deactivate", "Remove all masks until the next activate.", args); !ok {
		return code
	}

	n, err := ipc.NewClient().Deactivate()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("cleared: %d\n", n)
	return 0
}

func runReload(args []string) int {
	if ok, code := noArgsFlagSet("reload", "Reload configuration and re-apply masks unless deactivated.", args); !ok {
		return code
	}

	data, err := ipc.NewClient().Reload()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if data.Suspended {
		fmt.Println("config reloaded; masks are deactivated")
		return 0
	}
	fmt.Println(data.Outcome.String())
	return 0
}

func runMonitors(args []string) int {
	if ok, code := noArgsFlagSet("monitors", "List monitors known to the daemon.", args); !ok {
		return code
	}

	data, err := ipc.NewClient().GetMonitors()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	for _, m := range data.Monitors {
		fmt.Printf("%d\t%s\t%dx%d+%d+%d\n", m.ID, m.Name, m.Width, m.Height, m.X, m.Y)
	}
	return 0
}

func runConfig(args []string) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, "  screenmask config validate [--path PATH]")
		fmt.Fprintln(os.Stderr, "  screenmask config print [--path PATH] [--defaults]")
		fmt.Fprintln(os.Stderr, "  screenmask config explain [--path PATH] <key>")
		return 2
	}

	switch args[0] {
	case "validate":
		fs := flag.NewFlagSet("validate", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/screenmask/config.yaml)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}

		if _, err := loadConfigWithSources(*path); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Println("config: ok")
		return 0

	case "print":
		fs := flag.NewFlagSet("print", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/screenmask/config.yaml)")
		printDefaults := fs.Bool("defaults", false, "Print built-in defaults (no files)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}

		cfg := config.DefaultConfig()
		if !*printDefaults {
			res, err := loadConfigWithSources(*path)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				return 1
			}
			cfg = res.Config
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Print(string(data))
		return 0

	case "explain":
		fs := flag.NewFlagSet("explain", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/screenmask/config.yaml)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		res, err := loadConfigWithSources(*path)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}

		keys := fs.Args()
		if len(keys) == 0 {
			keys = config.Keys
		}
		for _, key := range keys {
			value, src, err := config.Explain(res, key)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				return 1
			}
			fmt.Printf("%s = %v  (%s)\n", key, value, formatSource(src))
		}
		return 0

	default:
		fmt.Fprintf(os.Stderr, "Unknown config subcommand: %s\n", args[0])
		return 2
	}
}

func formatSource(src config.Source) string {
	switch src.Kind {
	case config.SourceFile:
		if src.File == "" {
			return "file"
		}
		if src.Line > 0 {
			return fmt.Sprintf("file:%s:%d:%d", src.File, src.Line, src.Column)
		}
		return "file:" + src.File
	case config.SourceDefault:
		if src.Name != "" {
			return "default:" + src.Name
		}
		return "default"
	default:
		return string(src.Kind)
	}
}
