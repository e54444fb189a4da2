// Package main implements exportroles, which lists the roles available in the
// Falcon console and saves them to a timestamped CSV.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"falconadmin/internal/cli"
	"falconadmin/internal/config"
	"falconadmin/internal/falcon"
	"falconadmin/internal/prompt"
	"falconadmin/internal/report"
	"falconadmin/internal/roles"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

var (
	configPath = pflag.String("config", config.DefaultPath, "Path to the YAML config file")
	outputDir  = pflag.String("output-dir", "", "Directory for the role report (default from config)")
	debug      = pflag.Bool("debug", false, "Enable debug logging")
)

func main() {
	pflag.Usage = func() {
		fmt.Fprint(os.Stderr, "exportroles - Export the roles available in the CrowdStrike Falcon console\n\n")
		fmt.Fprint(os.Stderr, "Usage: exportroles [--config falconadmin.yaml] [--output-dir DIR]\n\n")
		fmt.Fprint(os.Stderr, "Credentials come from the config file, FALCON_CLIENT_ID / FALCON_CLIENT_SECRET,\n")
		fmt.Fprint(os.Stderr, "or an interactive prompt.\n\n")
		fmt.Fprint(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	log := cli.NewLogger(*debug)
	if err := run(log); err != nil {
		fmt.Printf("Script Failed: %v\n", err)
		os.Exit(1)
	}
}

func run(log *logrus.Logger) error {
	startedAt := time.Now()

	cfg, err := config.Load(*configPath, pflag.CommandLine.Changed("config"))
	if err != nil {
		return err
	}
	if err := cli.EnsureCredentials(cfg, prompt.New(os.Stdin, os.Stdout)); err != nil {
		return err
	}

	ctx, cancel := cli.SignalContext()
	defer cancel()

	client, err := falcon.New(ctx, log, cfg.Credentials(), cfg.RetryPolicy())
	if err != nil {
		return fmt.Errorf("failed to create falcon client: %w", err)
	}

	available, err := roles.Export(ctx, client, log)
	if err != nil {
		return err
	}

	fmt.Println("Available roles:")
	for _, role := range available {
		fmt.Println(role)
	}

	dir := *outputDir
	if dir == "" {
		dir = cfg.Export.OutputDir
	}
	store, err := report.NewStore(log, dir)
	if err != nil {
		return err
	}
	path, err := store.SaveRoleList(report.RoleReportName(startedAt), available)
	if err != nil {
		return err
	}

	fmt.Printf("Role report written to %s\n", filepath.Clean(path))
	return nil
}
