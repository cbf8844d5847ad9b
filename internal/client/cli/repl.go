package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/gamevault/internal/common"
)

// execIface is the command surface the REPL dispatches to. App satisfies
// it; tests use a stub.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Library(ctx context.Context) error
	Buy(ctx context.Context, args []string) error
	Wait(ctx context.Context, args []string) error
	Request(ctx context.Context, args []string) error
}

// runREPL reads commands from sc until EOF, "exit"/"quit" or ctx is done.
// Command errors are reported to w and never end the loop.
func runREPL(ctx context.Context, a execIface, statusFn func() string, sc *bufio.Scanner, w io.Writer) {
	for {
		if ctx.Err() != nil {
			return
		}
		fmt.Fprintf(w, "gamevault (%s)> ", statusFn())
		if !sc.Scan() {
			fmt.Fprintln(w)
			return
		}
		parts := strings.Fields(sc.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var err error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				fmt.Fprintln(w, "Available commands: library, buy <game|license> [token], wait <tx>, request <METHOD> <path> [json], whoami, logout, exit")
			} else {
				fmt.Fprintln(w, "Available commands: login, whoami, buy <game|license> [token], wait <tx>, exit")
			}
		case "login":
			err = a.Login(ctx)
		case "logout":
			err = a.Logout(ctx)
		case "whoami":
			err = a.WhoAmI(ctx)
		case "l", "library":
			err = a.Library(ctx)
		case "buy":
			err = a.Buy(ctx, args)
		case "wait":
			err = a.Wait(ctx, args)
		case "request":
			err = a.Request(ctx, args)
		case "exit", "quit":
			fmt.Fprintln(w, "Bye!")
			return
		default:
			fmt.Fprintln(w, "Unknown command:", cmd)
		}

		if err != nil {
			reportError(w, err)
		}
	}
}

// errUsage marks a malformed command line; its text is the usage string.
type errUsage string

func (e errUsage) Error() string { return "usage: " + string(e) }

func reportError(w io.Writer, err error) {
	var usage errUsage
	if errors.As(err, &usage) {
		fmt.Fprintln(w, usage.Error())
		return
	}
	if code := common.CodeOf(err); code != "" {
		fmt.Fprintf(w, "Error: %s (%s)\n", common.Message(code), code)
		return
	}
	fmt.Fprintln(w, "Error:", err)
}
