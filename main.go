package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/illarion/recvault/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "init":
		runInit(ctx, os.Args[2:])
	case "put":
		runPut(ctx, os.Args[2:])
	case "get":
		runGet(ctx, os.Args[2:])
	case "ls":
		runLs(ctx, os.Args[2:])
	case "status":
		runStatus(ctx, os.Args[2:])
	case "rm":
		runRm(ctx, os.Args[2:])
	case "passwd":
		runPasswd(ctx, os.Args[2:])
	case "migrate":
		runMigrate(ctx, os.Args[2:])
	case "diff":
		runDiff(ctx, os.Args[2:])
	case "export":
		runExport(ctx, os.Args[2:])
	case "import":
		runImport(ctx, os.Args[2:])
	case "compact":
		runCompact(ctx, os.Args[2:])
	case "completion":
		runCompletion(ctx, os.Args[2:])
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

func parse(fs *flag.FlagSet, args []string) {
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func runInit(_ context.Context, args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	parse(fs, args)

	cmd.Init()
}

func runPut(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("put", flag.ExitOnError)
	id := fs.String("id", "", "Record ID (default: new UUID)")
	kind := fs.String("kind", "password", "Record kind: password, note, otp or any label")
	parse(fs, args)

	cmd.Put(ctx, *id, *kind, fs.Args())
}

func runGet(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("get", flag.ExitOnError)
	output := fs.String("o", "", "Write decrypted fields as JSON to this file")
	parse(fs, args)

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: recvault get [-o file] <id>")
		os.Exit(1)
	}
	cmd.Get(ctx, fs.Arg(0), *output)
}

func runLs(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("ls", flag.ExitOnError)
	search := fs.String("search", "", "Decrypt and search title, username and url")
	parse(fs, args)

	cmd.List(ctx, *search)
}

func runStatus(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	parse(fs, args)

	cmd.Status(ctx)
}

func runRm(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("rm", flag.ExitOnError)
	parse(fs, args)

	cmd.Remove(ctx, fs.Args())
}

func runPasswd(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("passwd", flag.ExitOnError)
	parse(fs, args)

	cmd.Passwd(ctx)
}

func runMigrate(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	parse(fs, args)

	cmd.Migrate(ctx)
}

func runDiff(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("diff", flag.ExitOnError)
	parse(fs, args)

	cmd.Diff(ctx, fs.Args())
}

func runExport(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	force := fs.Bool("force", false, "Overwrite an existing file")
	parse(fs, args)

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: recvault export [-force] <file>")
		os.Exit(1)
	}
	cmd.Export(ctx, fs.Arg(0), *force)
}

func runImport(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	parse(fs, args)

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: recvault import <file>")
		os.Exit(1)
	}
	cmd.Import(ctx, fs.Arg(0))
}

func runCompact(_ context.Context, args []string) {
	fs := flag.NewFlagSet("compact", flag.ExitOnError)
	parse(fs, args)

	cmd.Compact()
}

func runCompletion(_ context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: recvault completion <bash|zsh|fish>")
		os.Exit(1)
	}
	cmd.Completion(args[0])
}

func printUsage() {
	fmt.Println("recvault - Encrypted records with a passphrase you keep")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  recvault <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  init        Create a .recvault vault in current directory")
	fmt.Println("  put         Seal a record from name=value fields")
	fmt.Println("  get         Decrypt and show a record")
	fmt.Println("  ls          List records (or search with -search)")
	fmt.Println("  status      Show vault status")
	fmt.Println("  rm          Remove records from the vault")
	fmt.Println("  passwd      Change vault passphrase")
	fmt.Println("  migrate     Upgrade records to the current format")
	fmt.Println("  diff        Compare a record with a local JSON file")
	fmt.Println("  export      Write sealed records to a bundle")
	fmt.Println("  import      Add sealed records from a bundle")
	fmt.Println("  compact     Compact vault to reclaim disk space")
	fmt.Println("  completion  Generate shell completions")
	fmt.Println("  help        Show help for a command")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  recvault init                                   # Create new vault")
	fmt.Println("  recvault put -id gmail title=Gmail password=-   # Prompt for the password value")
	fmt.Println("  recvault get gmail                              # Show a record")
	fmt.Println("  recvault ls -search gmail                       # Search records")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  RECVAULT_PASSPHRASE    Passphrase (otherwise prompted)")
	fmt.Println("  RECVAULT_STORE         Store backend for new vaults: bolt (default) or sqlite")
	fmt.Println("  RECVAULT_LOG_LEVEL     Diagnostic log level (default: warning)")
	fmt.Println("  RECVAULT_SESSION_IDLE  Forget derived keys unused for this long, e.g. 5m")
	fmt.Println()
	fmt.Println("Use 'recvault help <command>' for more information about a command.")
}

func printCommandHelp(command string) {
	switch command {
	case "init":
		fmt.Println("recvault init")
		fmt.Println()
		fmt.Println("Creates a .recvault vault file in the current directory.")
		fmt.Println("Prompts for a passphrase that will be used for encryption.")
		fmt.Println("The passphrase is not stored anywhere - you must remember it.")
		fmt.Println("Set RECVAULT_STORE=sqlite to create a SQLite vault instead of bbolt.")
	case "put":
		fmt.Println("recvault put [-id ID] [-kind KIND] name=value [name=value...]")
		fmt.Println()
		fmt.Println("Seals the given fields into one record. Every field is encrypted")
		fmt.Println("separately; all fields share one salt. A value of '-' is read from")
		fmt.Println("the terminal without echo. Reusing an ID replaces the record.")
		fmt.Println()
		fmt.Println("Flags:")
		fmt.Println("  -id ID       Record ID (default: new UUID)")
		fmt.Println("  -kind KIND   password (default), note, otp or any label")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  recvault put title=Gmail username=alice password=-")
		fmt.Println("  recvault put -id wifi -kind note body=\"ssid: home\"")
	case "get":
		fmt.Println("recvault get [-o file] <id>")
		fmt.Println()
		fmt.Println("Decrypts a record and prints its fields. Fields that fail to")
		fmt.Println("decrypt are reported and the others are still shown.")
		fmt.Println()
		fmt.Println("Flags:")
		fmt.Println("  -o file   Write fields as a JSON object (warns if git would track it)")
	case "ls":
		fmt.Println("recvault ls [-search term]")
		fmt.Println()
		fmt.Println("Lists record IDs, kinds and field names without a passphrase.")
		fmt.Println("With -search, decrypts records and matches title, username and url,")
		fmt.Println("ignoring case.")
	case "status":
		fmt.Println("recvault status")
		fmt.Println()
		fmt.Println("Shows vault status including:")
		fmt.Println("  - Record counts by kind")
		fmt.Println("  - Encryption details and format version")
		fmt.Println("  - Records needing migration")
		fmt.Println("  - Git tracking of the vault file")
		fmt.Println()
		fmt.Println("Does not require a passphrase.")
	case "rm":
		fmt.Println("recvault rm <id> [id...]")
		fmt.Println()
		fmt.Println("Removes records from the vault. Nothing is removed if any ID is unknown.")
	case "passwd":
		fmt.Println("recvault passwd")
		fmt.Println()
		fmt.Println("Changes the vault passphrase.")
		fmt.Println("Reseals every record with a fresh salt; the vault is only rewritten")
		fmt.Println("after every record was resealed.")
	case "migrate":
		fmt.Println("recvault migrate")
		fmt.Println()
		fmt.Println("Reseals records written in an older format version with the current")
		fmt.Println("key derivation parameters.")
	case "diff":
		fmt.Println("recvault diff <id> <file.json>")
		fmt.Println()
		fmt.Println("Compares a stored record with a JSON object of field values,")
		fmt.Println("e.g. one written by 'recvault get -o'.")
	case "export":
		fmt.Println("recvault export [-force] <file>")
		fmt.Println()
		fmt.Println("Writes all records to a bundle inside the current directory.")
		fmt.Println("The bundle contains ciphertext only. Does not require a passphrase.")
	case "import":
		fmt.Println("recvault import <file>")
		fmt.Println()
		fmt.Println("Adds records from an export bundle without decrypting them.")
		fmt.Println("Importing into a directory without a vault restores it.")
	case "compact":
		fmt.Println("recvault compact")
		fmt.Println()
		fmt.Println("Compacts the .recvault store to reclaim unused disk space.")
		fmt.Println("This is automatically done after 'rm' and 'passwd' commands.")
	case "completion":
		fmt.Println("recvault completion <bash|zsh|fish>")
		fmt.Println()
		fmt.Println("Outputs shell completion script for the specified shell.")
		fmt.Println()
		fmt.Println("Setup:")
		fmt.Println("  # Bash - add to ~/.bashrc")
		fmt.Println("  eval \"$(recvault completion bash)\"")
		fmt.Println()
		fmt.Println("  # Zsh - add to ~/.zshrc")
		fmt.Println("  eval \"$(recvault completion zsh)\"")
		fmt.Println()
		fmt.Println("  # Fish - add to ~/.config/fish/config.fish")
		fmt.Println("  recvault completion fish | source")
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
	}
}
