// Package main runs the static file server.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/fatih/color"

	"github.com/f4ah6o/statichttp/internal/config"
	"github.com/f4ah6o/statichttp/internal/logging"
	"github.com/f4ah6o/statichttp/internal/server"
)

func main() {
	if err := run(); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "Path to a .toml or .yaml config file")
	port := flag.Int("port", 0, "Port to serve on (default 8080)")
	dir := flag.String("dir", "", "Directory to serve (default .)")
	open := flag.String("open", "", "Path to open in the browser after startup, e.g. home.html")
	concurrency := flag.Int("concurrency", 0, "Connections handled at once (default 1)")
	logLevel := flag.String("log-level", "", "Log level: trace, debug, info, warn, error")
	flag.Parse()

	if err := config.LoadDotEnv(".env"); err != nil {
		return err
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return err
	}

	// Flags given on the command line win over file and environment.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.Port = *port
		case "dir":
			cfg.DocumentRoot = *dir
		case "open":
			cfg.OpenPath = *open
		case "concurrency":
			cfg.Concurrency = *concurrency
		case "log-level":
			cfg.LogLevel = *logLevel
		}
	})
	if err := cfg.Validate(); err != nil {
		return err
	}

	if info, err := os.Stat(cfg.DocumentRoot); err != nil || !info.IsDir() {
		return fmt.Errorf("document root %s is not a directory", cfg.DocumentRoot)
	}

	log, err := logging.New(nil, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}

	srv, err := server.New(cfg, log)
	if err != nil {
		return err
	}
	ln, err := server.Listen(cfg)
	if err != nil {
		return err
	}

	baseURL := "http://" + displayHost(cfg.Host) + ":" + strconv.Itoa(ln.Addr().(*net.TCPAddr).Port)
	printBanner(cfg, baseURL)
	log.Info().
		Str("addr", ln.Addr().String()).
		Int("backlog", cfg.Backlog).
		Int("concurrency", cfg.Concurrency).
		Bool("allow_traversal", cfg.AllowTraversal).
		Msg("listening")

	if cfg.OpenPath != "" {
		openURL := baseURL + "/" + strings.TrimPrefix(cfg.OpenPath, "/")
		if err := openBrowser(openURL); err != nil {
			log.Warn().Err(err).Str("url", openURL).Msg("could not open browser")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := srv.Serve(ctx, ln); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	log.Info().Msg("stopped")
	return nil
}

func displayHost(host string) string {
	if host == "" || host == "0.0.0.0" {
		return "localhost"
	}
	if strings.Contains(host, ":") {
		return "[" + host + "]"
	}
	return host
}

func printBanner(cfg config.Config, baseURL string) {
	root := cfg.DocumentRoot
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	bold := color.New(color.Bold).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	fmt.Printf("🌐 Serving %s at %s\n", bold(root), cyan(baseURL))
	if cfg.AllowTraversal {
		color.Yellow("⚠  allow_traversal is on: paths may escape the document root")
	}
	fmt.Println("Press Ctrl+C to stop")
}
