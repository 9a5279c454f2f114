package main

import (
	"fmt"
	"os"

	"github.com/roach88/chatdb/internal/cli"
	"github.com/roach88/chatdb/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "chatdb: %v\n", err)
		os.Exit(cli.ExitCommandError)
	}

	cmd := cli.NewRootCommand(cfg)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "chatdb: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
