package main

import (
	"flag"
	"fmt"
	"os"

	"literate-ls/internal/config"
	"literate-ls/internal/health"
	"literate-ls/internal/server"
)

var appVersion = "dev"

func main() {
	var (
		showVersion   bool
		logLevel      string
		runHealth     bool
		listLanguages bool
		dumpConfig    bool
	)

	flag.BoolVar(&showVersion, "version", false, "print version and exit")
	flag.StringVar(&logLevel, "log-level", "warning", "log level: debug, info, warning, error")
	flag.BoolVar(&runHealth, "health", false, "check which configured language servers are installed, then exit (optionally followed by one language or server name to filter)")
	flag.BoolVar(&listLanguages, "languages", false, "list configured fenced-code languages and their server chains, then exit")
	flag.BoolVar(&dumpConfig, "dump-config", false, "print the fully merged configuration as TOML, then exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("literate-ls %s\n", appVersion)
		os.Exit(0)
	}

	if runHealth || listLanguages || dumpConfig {
		workspaceDir, err := os.Getwd()
		if err != nil {
			workspaceDir = "."
		}
		resolver, err := config.New(workspaceDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "literate-ls: %v\n", err)
			os.Exit(1)
		}
		defer resolver.Close()

		cfg := resolver.Snapshot()
		if runHealth {
			var filter string
			if args := flag.Args(); len(args) > 0 {
				filter = args[0]
			}
			health.Check(cfg, filter, os.Stdout)
		}
		if listLanguages {
			health.List(cfg, os.Stdout)
		}
		if dumpConfig {
			out, err := resolver.MarshalTOML()
			if err != nil {
				fmt.Fprintf(os.Stderr, "literate-ls: %v\n", err)
				os.Exit(1)
			}
			os.Stdout.Write(out)
		}
		os.Exit(0)
	}

	if err := server.Run(logLevel); err != nil {
		fmt.Fprintf(os.Stderr, "literate-ls: %v\n", err)
		os.Exit(1)
	}
}
