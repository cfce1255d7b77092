package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/1broseidon/screenmask/internal/rules"
)

func printRulesUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  screenmask rules list [--config PATH] [--json]")
	fmt.Fprintln(w, "  screenmask rules add [--config PATH] [--id ID] --left N --top N --right N --bottom N [--color #AARRGGBB] [--disabled]")
	fmt.Fprintln(w, "  screenmask rules remove [--config PATH] <id>")
	fmt.Fprintln(w, "  screenmask rules enable [--config PATH] <id>")
	fmt.Fprintln(w, "  screenmask rules disable [--config PATH] <id>")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Rectangles are left/top/right/bottom edges in root-window pixels.")
	fmt.Fprintln(w, "A running daemon with watch_rules picks up changes automatically.")
}

func runRules(args []string) int {
	if len(args) == 0 {
		printRulesUsage(os.Stderr)
		return 2
	}

	switch args[0] {
	case "list":
		return runRulesList(args[1:])
	case "add":
		return runRulesAdd(args[1:])
	case "remove", "rm":
		return runRulesByID("remove", args[1:], func(s *rules.FileStore, id string) error {
			return s.Remove(id)
		})
	case "enable":
		return runRulesByID("enable", args[1:], func(s *rules.FileStore, id string) error {
			return s.SetEnabled(id, true)
		})
	case "disable":
		return runRulesByID("disable", args[1:], func(s *rules.FileStore, id string) error {
			return s.SetEnabled(id, false)
		})
	case "help", "-h", "--help":
		printRulesUsage(os.Stdout)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown rules command: %s\n\n", args[0])
		printRulesUsage(os.Stderr)
		return 2
	}
}

func openStore(cfgPath string) (*rules.FileStore, error) {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()}))
	return rules.NewFileStore(cfg.RulesFile, logger), nil
}

func runRulesList(args []string) int {
	fs := flag.NewFlagSet("rules list", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	cfgPath := fs.String("config", "", "Config file path")
	jsonOut := fs.Bool("json", false, "Output as JSON")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	store, err := openStore(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	rs, err := store.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if *jsonOut {
		if rs == nil {
			rs = []rules.Rule{}
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rs); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0
	}

	writeRuleTable(os.Stdout, rs, term.IsTerminal(int(os.Stdout.Fd())))
	return 0
}

// writeRuleTable prints one rule per line. The header and aligned columns
// are only used for interactive output so scripts can split on tabs.
func writeRuleTable(w io.Writer, rs []rules.Rule, interactive bool) {
	out := w
	var tw *tabwriter.Writer
	if interactive {
		tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		out = tw
		fmt.Fprintln(out, "ID\tLEFT\tTOP\tRIGHT\tBOTTOM\tSIZE\tCOLOR\tENABLED")
	}
	for _, r := range rs {
		width, height := r.Size()
		size := fmt.Sprintf("%dx%d", width, height)
		if _, ok := r.Geometry(); !ok {
			size += " (empty)"
		}
		fmt.Fprintf(out, "%s\t%d\t%d\t%d\t%d\t%s\t%s\t%v\n",
			r.ID, r.Left, r.Top, r.Right, r.Bottom, size, r.Color, r.Enabled)
	}
	if tw != nil {
		tw.Flush()
	}
}

func runRulesAdd(args []string) int {
	fs := flag.NewFlagSet("rules add", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	cfgPath := fs.String("config", "", "Config file path")
	id := fs.String("id", "", "Rule id (default: generated UUID)")
	left := fs.Int("left", 0, "Left edge")
	top := fs.Int("top", 0, "Top edge")
	right := fs.Int("right", 0, "Right edge")
	bottom := fs.Int("bottom", 0, "Bottom edge")
	color := fs.String("color", "#FF000000", "Mask color as #RRGGBB or #AARRGGBB")
	disabled := fs.Bool("disabled", false, "Add the rule disabled")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "rules add takes no positional arguments")
		return 2
	}

	c, err := rules.ParseColor(*color)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	rule := rules.Rule{
		ID:      *id,
		Left:    *left,
		Top:     *top,
		Right:   *right,
		Bottom:  *bottom,
		Color:   c,
		Enabled: !*disabled,
	}
	if _, ok := rule.Geometry(); !ok {
		w, h := rule.Size()
		fmt.Fprintf(os.Stderr, "warning: rectangle is empty (%dx%d); the rule will be skipped\n", w, h)
	}

	store, err := openStore(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	added, err := store.Add(rule)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println(added.ID)
	return 0
}

func runRulesByID(name string, args []string, apply func(*rules.FileStore, string) error) int {
	fs := flag.NewFlagSet("rules "+name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	cfgPath := fs.String("config", "", "Config file path")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "rules %s requires exactly one <id>\n", name)
		return 2
	}

	store, err := openStore(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if err := apply(store, fs.Arg(0)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("%s: %s\n", name, strconv.Quote(fs.Arg(0)))
	return 0
}
