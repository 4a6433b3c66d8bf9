package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"cardgame/go-client/internal/composition/cardclient"
	"cardgame/go-client/internal/rpckit"
	"cardgame/go-client/internal/signing"
	"cardgame/go-client/pkg/models"
)

const accountKeyEnv = "CARDGAME_ACCOUNT_KEY"

func run(ctx context.Context, client *cardclient.Client, args []string, in io.Reader, out io.Writer) error {
	if len(args) == 0 {
		return rpckit.InvalidInput("missing command")
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "login":
		return runLogin(ctx, client, rest, in, out)
	case "whoami":
		name, err := client.Catalog.CurrentUser(ctx)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, name)
		return err
	case "logout":
		return client.Catalog.Logout()
	case "startgame":
		return printResult(out)(client.Catalog.StartGame(ctx))
	case "nextround":
		return printResult(out)(client.Catalog.NextRound(ctx))
	case "endgame":
		return printResult(out)(client.Catalog.EndGame(ctx))
	case "playcard":
		if len(rest) != 1 {
			return rpckit.InvalidInput("playcard expects exactly one card index")
		}
		idx, err := strconv.Atoi(rest[0])
		if err != nil {
			return rpckit.InvalidInput("card index must be an integer")
		}
		return printResult(out)(client.Catalog.PlayCard(ctx, idx))
	case "user":
		if len(rest) != 1 {
			return rpckit.InvalidInput("user expects exactly one username")
		}
		rec, ok := client.Users.GetUserByName(ctx, rest[0])
		if !ok {
			_, err := fmt.Fprintln(out, "not found")
			return err
		}
		return writeJSON(out, rec)
	case "keygen":
		wif, pub, err := signing.GenerateKey()
		if err != nil {
			return rpckit.Signing(err)
		}
		_, err = fmt.Fprintf(out, "private=%s\npublic=%s\n", wif, pub)
		return err
	default:
		return rpckit.InvalidInput(fmt.Sprintf("unknown command %q", cmd))
	}
}

// runLogin takes the secret from the environment or the first line of stdin,
// never from argv.
func runLogin(ctx context.Context, client *cardclient.Client, args []string, in io.Reader, out io.Writer) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	user := fs.String("user", "", "account name")
	if err := fs.Parse(args); err != nil {
		return rpckit.InvalidInput(err.Error())
	}
	if fs.NArg() != 0 {
		return rpckit.InvalidInput("login takes no positional arguments; pass the key via $" + accountKeyEnv + " or stdin")
	}
	secret := strings.TrimSpace(os.Getenv(accountKeyEnv))
	if secret == "" {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return rpckit.InvalidInput("read key from stdin: " + err.Error())
		}
		secret = strings.TrimSpace(line)
	}
	if err := client.Catalog.Login(ctx, *user, secret); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "logged in as %s\n", *user)
	return err
}

func printResult(out io.Writer) func(models.TransactionResult, error) error {
	return func(res models.TransactionResult, err error) error {
		if err != nil {
			return err
		}
		return writeJSON(out, res)
	}
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
