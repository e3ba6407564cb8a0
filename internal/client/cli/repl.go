package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
)

// printFn and printlnFn are test seams for user-facing output. In tests,
// replace them with stubs.
var (
	printFn   = fmt.Print
	printlnFn = fmt.Println
)

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context, args []string) error
	Logout(ctx context.Context, args []string) error
	Import(ctx context.Context, args []string) error
	List(ctx context.Context, args []string) error
	Show(ctx context.Context, args []string) error
	Edit(ctx context.Context, args []string) error
	Export(ctx context.Context, args []string) error
	Delete(ctx context.Context, args []string) error
	Sync(ctx context.Context, args []string) error
	Status(ctx context.Context, args []string) error
}

// runREPL starts a simple read-eval-print loop for the SnapKeeper CLI.
//
// It reads a line from r, parses the first token as the command and passes
// the remaining tokens to the matching method on a. The loop exits on EOF
// or when the user types "exit" or "quit".
//
// Prompt & Commands
//
//	help                            show available commands
//	login [token]                   store an access token (prompted if omitted)
//	logout                          forget the access token
//	import <path>                   import a JPEG or PNG file
//	(l)ist                          list photos
//	show <id>                       show one photo
//	edit <id> [name=value ...]      adjust the filter (prompted if omitted)
//	edit <id> random [seed]         pick a random filter
//	export <id> <variant> <path>    write original, edited or thumbnail
//	delete <id>                     delete a photo locally
//	sync                            run a sync pass now
//	status                          show library and sync counters
//	exit | quit                     leave the program
//
// Handler errors are logged and the loop keeps going.
func runREPL(ctx context.Context, a execIface, statusFn func() string, r *bufio.Reader) {
	for {
		printFn(fmt.Sprintf("snap %s> ", statusFn()))
		line, err := r.ReadString('\n')
		if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
			return
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			if err != nil {
				return
			}
			continue
		}
		cmd, args := parts[0], parts[1:]

		var cmdErr error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: import, (l)ist, show, edit, export, delete, sync, status, logout, exit")
			} else {
				printlnFn("Available commands: login, import, (l)ist, show, edit, export, delete, status, exit")
			}

		case "login":
			cmdErr = a.Login(ctx, args)

		case "logout":
			cmdErr = a.Logout(ctx, args)

		case "import":
			cmdErr = a.Import(ctx, args)

		case "l", "list":
			cmdErr = a.List(ctx, args)

		case "show":
			cmdErr = a.Show(ctx, args)

		case "edit":
			cmdErr = a.Edit(ctx, args)

		case "export":
			cmdErr = a.Export(ctx, args)

		case "delete":
			cmdErr = a.Delete(ctx, args)

		case "sync":
			cmdErr = a.Sync(ctx, args)

		case "status":
			cmdErr = a.Status(ctx, args)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if cmdErr != nil {
			log.Printf("error: %v", cmdErr)
		}
		if err != nil {
			return
		}
	}
}
