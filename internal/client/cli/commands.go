package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/gamevault/internal/client/transport"
	"github.com/dmitrijs2005/gamevault/internal/ownership"
	"github.com/dmitrijs2005/gamevault/internal/purchase"
)

// getSimpleText and getPassword are swapped in tests.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
)

func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.in, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}

	rec, err := a.authService.Login(ctx, email, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Signed in as %s (%s)\n", rec.AccountID, rec.AccountType)
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if err := a.authService.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Signed out")
	return nil
}

func (a *App) WhoAmI(ctx context.Context) error {
	rec, status, err := a.authService.WhoAmI(ctx)
	if err != nil {
		return err
	}
	if rec.Empty() {
		fmt.Fprintln(a.out, "Not signed in")
		return nil
	}
	expires := "unknown"
	if rec.ExpiresAt != nil {
		expires = rec.ExpiresAt.Local().Format(time.RFC1123)
	}
	fmt.Fprintf(a.out, "Account: %s (%s)\nStatus:  %s\nExpires: %s\n", rec.AccountID, rec.AccountType, status, expires)
	return nil
}

func (a *App) Library(ctx context.Context) error {
	games, err := a.libraryService.ListOwnedGamesForCurrentSession(ctx)
	if err != nil {
		return err
	}
	printLibrary(a.out, games)
	return nil
}

func (a *App) Buy(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return errUsage("buy <game id|license address> [payment token]")
	}
	token := ""
	if len(args) == 2 {
		token = args[1]
	}

	pending, err := a.storeService.BuyGame(ctx, args[0], token)
	if err != nil {
		return err
	}
	printPending(a.out, pending)
	return nil
}

func (a *App) Wait(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage("wait <tx hash>")
	}
	fmt.Fprintln(a.out, "Waiting for", args[0], "...")
	if err := a.storeService.AwaitReceipt(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Confirmed")
	return nil
}

// Request sends an arbitrary call to the backend through the authenticated
// transport and prints the reply.
func (a *App) Request(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return errUsage("request <METHOD> <path> [json body]")
	}
	method, path := strings.ToUpper(args[0]), args[1]

	var body any
	if len(args) > 2 {
		raw := strings.Join(args[2:], " ")
		if !json.Valid([]byte(raw)) {
			return fmt.Errorf("request body is not valid JSON")
		}
		body = json.RawMessage(raw)
	}

	resp, err := a.backend.Do(ctx, method, path, body)
	var se *transport.StatusError
	if err != nil && !errors.As(err, &se) {
		return err
	}
	fmt.Fprintf(a.out, "%d\n%s\n", resp.StatusCode, strings.TrimSpace(string(resp.Body)))
	return nil
}

func printLibrary(w io.Writer, games []ownership.OwnedGameRecord) {
	if len(games) == 0 {
		fmt.Fprintln(w, "You do not own any games yet")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "GAME\tLICENSE\tPUBLISHER\tREGISTERED\tACTIVE")
	for _, g := range games {
		created := "-"
		if g.CreatedAt > 0 {
			created = time.Unix(int64(g.CreatedAt), 0).UTC().Format("2006-01-02")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\n", g.GameID.Hex(), g.License.Hex(), g.Publisher.Hex(), created, g.Active)
	}
	_ = tw.Flush()
}

func printPending(w io.Writer, p *purchase.PendingPurchase) {
	if p.ApprovalHash != nil {
		fmt.Fprintf(w, "Approval mined: %s\n", p.ApprovalHash.Hex())
	}
	fmt.Fprintf(w, "Purchase submitted: %s\n", p.Hash.Hex())
	fmt.Fprintf(w, "Run 'wait %s' to wait for confirmation\n", p.Hash.Hex())
}
