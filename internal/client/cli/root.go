package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	Login(ctx context.Context)
	Status(ctx context.Context)
	List(ctx context.Context, args []string)
	Add(ctx context.Context, args []string)
	Sync(ctx context.Context)
	Download(ctx context.Context)
	Reset(ctx context.Context)
}

func (a *App) getStatus() string {
	s := ""
	if a.userName != "" {
		s = a.userName + " "
	}
	if a.monitor.IsOnline() {
		s += "online"
	} else {
		s += "offline"
	}
	return fmt.Sprintf("(%s)", s)
}

func (a *App) Root(ctx context.Context) {
	fmt.Println("Welcome to LoanKeeper CLI (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)

	a.Login(ctx)

	for {
		fmt.Printf("lk %s> ", a.getStatus())
		if !scanner.Scan() {
			break
		}
		if !runCommand(ctx, a, scanner.Text()) {
			return
		}
	}
}

// runCommand dispatches one REPL line. It returns false when the user asked
// to exit. Command handlers report their own errors; the loop stays alive
// whatever they do.
func runCommand(ctx context.Context, a execIface, line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return true
	}

	cmd := parts[0]
	args := parts[1:]

	switch cmd {
	case "help":
		printlnFn("Available commands: status, (l)ist <clients|loans|payments|payment_schedule>,")
		printlnFn("  add <client|loan|payment>, sync, download, login, reset, exit")

	case "login":
		a.Login(ctx)

	case "status":
		a.Status(ctx)

	case "l", "list":
		a.List(ctx, args)

	case "add":
		a.Add(ctx, args)

	case "sync":
		a.Sync(ctx)

	case "download":
		a.Download(ctx)

	case "reset":
		a.Reset(ctx)

	case "exit", "quit":
		printlnFn("Bye!")
		return false

	default:
		printlnFn("Unknown command:", cmd)
	}

	return true
}
