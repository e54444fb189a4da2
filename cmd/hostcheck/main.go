// Package main implements hostcheck, which reports whether each host in a CSV
// list has a Falcon sensor installed and when it last checked in.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"falconadmin/internal/cli"
	"falconadmin/internal/config"
	"falconadmin/internal/falcon"
	"falconadmin/internal/hostcheck"
	"falconadmin/internal/prompt"
	"falconadmin/internal/report"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

var (
	configPath = pflag.String("config", config.DefaultPath, "Path to the YAML config file")
	inputDir   = pflag.String("dir", "", "Directory containing the input CSV (prompted for if empty)")
	debug      = pflag.Bool("debug", false, "Enable debug logging")
)

func main() {
	pflag.Parse()

	log := cli.NewLogger(*debug)
	if err := run(log); err != nil {
		log.Errorf("Host check failed: %v", err)
		os.Exit(1)
	}
}

func run(log *logrus.Logger) error {
	startedAt := time.Now()

	cfg, err := config.Load(*configPath, pflag.CommandLine.Changed("config"))
	if err != nil {
		return err
	}

	p := prompt.New(os.Stdin, os.Stdout)
	if err := cli.EnsureCredentials(cfg, p); err != nil {
		return err
	}

	ctx, cancel := cli.SignalContext()
	defer cancel()

	client, err := falcon.New(ctx, log, cfg.Credentials(), cfg.RetryPolicy())
	if err != nil {
		return fmt.Errorf("failed to create falcon client: %w", err)
	}

	dir := *inputDir
	if dir == "" {
		dir = cfg.HostCheck.InputDir
	}
	if dir == "" {
		dir, err = p.Line(fmt.Sprintf("Enter the directory containing the '%s' input file: ", cfg.HostCheck.InputFile))
		if err != nil {
			return err
		}
	}
	dir = prompt.NormalizeDir(dir)

	hosts, err := report.ReadHostListFile(filepath.Join(dir, cfg.HostCheck.InputFile))
	if err != nil {
		return err
	}
	fmt.Println("File read successfully, starting host checks...")
	log.Infof("Checking %d hosts from %s", len(hosts), filepath.Join(dir, cfg.HostCheck.InputFile))

	results := hostcheck.New(client, log).Check(ctx, hosts)
	fmt.Println("Checks complete, writing output file...")

	store, err := report.NewStore(log, dir)
	if err != nil {
		return err
	}
	name := report.HostResultsName(startedAt)
	if _, err := store.SaveHostResults(name, results); err != nil {
		return err
	}

	s := hostcheck.Summarize(results)
	fmt.Printf("%d hosts: %d installed, %d not installed, %d ambiguous, %d failed\n",
		s.Total, s.Installed, s.NotInstalled, s.Ambiguous, s.Failed)
	fmt.Printf("Host check complete, review the output file %s in %s\n", name, dir)
	return nil
}
