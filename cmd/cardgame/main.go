package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"cardgame/go-client/internal/composition/cardclient"
	"cardgame/go-client/internal/config"
	"cardgame/go-client/internal/platform/privacylog"
	"cardgame/go-client/internal/rpckit"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "Path to cardgame.yaml (optional)")
	flag.Usage = usage
	flag.Parse()
	if *showVersion {
		fmt.Printf("cardgame version=%s commit=%s build_date=%s\n", version, commit, buildDate)
		return
	}
	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("cardgame failed to load config: %v", err)
	}
	logger := privacylog.NewLogger(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	client, err := cardclient.Build(cfg, logger, cardclient.Overrides{})
	if err != nil {
		log.Fatalf("cardgame failed to initialize: %v", err)
	}

	err = run(ctx, client, flag.Args(), os.Stdin, os.Stdout)
	if cerr := client.Close(); cerr != nil {
		logger.Warn("close failed", "error", cerr.Error())
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "cardgame: %s: %v\n", rpckit.KindOf(err), err)
		os.Exit(1)
	}
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintln(out, "usage: cardgame [-config path] [-version] <command> [args]")
	fmt.Fprintln(out, "commands:")
	fmt.Fprintln(out, "  login -user NAME              store credentials and register the account;")
	fmt.Fprintln(out, "                                the key is read from $CARDGAME_ACCOUNT_KEY or stdin")
	fmt.Fprintln(out, "  whoami                        verify the stored session")
	fmt.Fprintln(out, "  logout                        remove the stored session")
	fmt.Fprintln(out, "  startgame | nextround | endgame")
	fmt.Fprintln(out, "  playcard IDX                  play the card at hand index IDX")
	fmt.Fprintln(out, "  user NAME                     print the users table row for NAME")
	fmt.Fprintln(out, "  keygen                        print a fresh key pair")
	flag.PrintDefaults()
}
