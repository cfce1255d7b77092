package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/1broseidon/screenmask/internal/permission"
)

func printPermissionUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  screenmask permission status [--config PATH]")
	fmt.Fprintln(w, "  screenmask permission grant [--config PATH]")
	fmt.Fprintln(w, "  screenmask permission revoke [--config PATH]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Without a grant the daemon draws no masks. A running daemon notices")
	fmt.Fprintln(w, "changes on its next activation or permission poll.")
}

func runPermission(args []string) int {
	if len(args) == 0 {
		printPermissionUsage(os.Stderr)
		return 2
	}
	if args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		printPermissionUsage(os.Stdout)
		return 0
	}

	sub := args[0]
	fs := flag.NewFlagSet("permission "+sub, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	cfgPath := fs.String("config", "", "Config file path")
	if err := fs.Parse(args[1:]); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	gate := permission.NewFileGate(cfg.PermissionFile)

	switch sub {
	case "status":
		fmt.Printf("permission_file:    %s\n", gate.Path())
		fmt.Printf("require_permission: %v\n", cfg.RequirePermission)
		fmt.Printf("granted:            %v\n", gate.Granted())
		return 0
	case "grant":
		if err := gate.Grant(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Println("overlay permission granted")
		return 0
	case "revoke":
		if err := gate.Revoke(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Println("overlay permission revoked")
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown permission command: %s\n\n", sub)
		printPermissionUsage(os.Stderr)
		return 2
	}
}
