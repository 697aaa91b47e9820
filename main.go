package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/illarion/pinlock/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "enroll":
		runEnroll(ctx, os.Args[2:])
	case "verify":
		runVerify(ctx, os.Args[2:])
	case "status":
		runStatus(ctx, os.Args[2:])
	case "erase":
		runErase(ctx, os.Args[2:])
	case "compact":
		runCompact(ctx, os.Args[2:])
	case "help", "-h", "--help":
		if len(os.Args) <= 2 {
			printUsage()
			return
		}
		printCommandHelp(os.Args[2])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// newFlagSet registers the flags shared by every command.
func newFlagSet(name string) (*flag.FlagSet, *cmd.Options) {
	opts := &cmd.Options{}
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.StringVar(&opts.ConfigPath, "config", "", "Path to a YAML config file")
	fs.StringVar(&opts.Backend, "backend", "", "Storage backend: keyring, bbolt or memory")
	return fs, opts
}

func parse(fs *flag.FlagSet, args []string) {
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func runEnroll(ctx context.Context, args []string) {
	fs, opts := newFlagSet("enroll")
	force := fs.Bool("force", false, "Replace an already enrolled PIN")
	parse(fs, args)

	cmd.Enroll(ctx, *opts, *force)
}

func runVerify(ctx context.Context, args []string) {
	fs, opts := newFlagSet("verify")
	parse(fs, args)

	cmd.Verify(ctx, *opts)
}

func runStatus(ctx context.Context, args []string) {
	fs, opts := newFlagSet("status")
	parse(fs, args)

	cmd.Status(ctx, *opts)
}

func runErase(ctx context.Context, args []string) {
	fs, opts := newFlagSet("erase")
	parse(fs, args)

	cmd.Erase(ctx, *opts)
}

func runCompact(ctx context.Context, args []string) {
	fs, opts := newFlagSet("compact")
	parse(fs, args)

	cmd.Compact(ctx, *opts)
}

func printUsage() {
	fmt.Println("pinlock - PIN enrollment and verification with attempt lockout")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  pinlock <command> [-config file] [-backend name] [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  enroll      Set the PIN")
	fmt.Println("  verify      Check a PIN, subject to the lockout policy")
	fmt.Println("  status      Show enrollment and lockout state")
	fmt.Println("  erase       Remove the enrolled PIN")
	fmt.Println("  compact     Compact the bbolt database")
	fmt.Println("  help        Show help for a command")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  pinlock enroll                  # Prompt for a new PIN")
	fmt.Println("  pinlock verify && echo ok       # Exit status reports the result")
	fmt.Println("  pinlock status -backend bbolt   # Inspect the bbolt store")
	fmt.Println()
	fmt.Println("Use 'pinlock help <command>' for more information about a command.")
}

func printCommandHelp(command string) {
	switch command {
	case "enroll":
		fmt.Println("pinlock enroll [-force]")
		fmt.Println()
		fmt.Println("Prompts for a new PIN and its confirmation, then stores it encrypted.")
		fmt.Println("Replacing an enrolled PIN with -force is refused while locked out.")
		fmt.Println("PINLOCK_PIN, when set, is used instead of prompting.")
		fmt.Println()
		fmt.Println("Flags:")
		fmt.Println("  -force    Replace an already enrolled PIN")
	case "verify":
		fmt.Println("pinlock verify")
		fmt.Println()
		fmt.Println("Prompts for the PIN and compares it with the enrolled one.")
		fmt.Println("Exits 0 on a match and 1 otherwise. Every mismatch counts as a")
		fmt.Println("failed attempt; reaching the limit locks verification for the")
		fmt.Println("configured duration. Attempts while locked out are not counted.")
	case "status":
		fmt.Println("pinlock status")
		fmt.Println()
		fmt.Println("Shows the backend, whether a PIN is enrolled, the failed attempt")
		fmt.Println("count and any active lockout.")
		fmt.Println()
		fmt.Println("Does not require a PIN.")
	case "erase":
		fmt.Println("pinlock erase")
		fmt.Println()
		fmt.Println("Removes the enrolled PIN. The device key and the lockout state")
		fmt.Println("are kept, and erasing is refused while locked out.")
	case "compact":
		fmt.Println("pinlock compact -backend bbolt")
		fmt.Println()
		fmt.Println("Compacts the bbolt database to reclaim unused disk space.")
		fmt.Println("Only available with the bbolt backend.")
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
	}
}
