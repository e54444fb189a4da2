// Package main implements revokeroles, which removes a configured set of roles
// from a list of Falcon console users.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"falconadmin/internal/cli"
	"falconadmin/internal/config"
	"falconadmin/internal/falcon"
	"falconadmin/internal/prompt"
	"falconadmin/internal/report"
	"falconadmin/internal/roles"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

const userPrompt = "What is the email address of the user account whose roles will be removed? "

var (
	configPath = pflag.String("config", config.DefaultPath, "Path to the YAML config file")
	roleSet    = pflag.String("role-set", "default", "Name of the role set under revoke.role_sets")
	users      = pflag.StringSlice("user", nil, "User email to process (repeatable, overrides revoke.users)")
	dryRun     = pflag.Bool("dry-run", false, "Resolve users without revoking any roles")
	debug      = pflag.Bool("debug", false, "Enable debug logging")
)

func main() {
	pflag.Parse()

	log := cli.NewLogger(*debug)
	if err := run(log); err != nil {
		log.Errorf("Role revocation failed: %v", err)
		os.Exit(1)
	}
}

func run(log *logrus.Logger) error {
	cfg, err := config.Load(*configPath, pflag.CommandLine.Changed("config"))
	if err != nil {
		return err
	}

	roleIDs, err := cfg.RoleSet(*roleSet)
	if err != nil {
		return err
	}

	p := prompt.New(os.Stdin, os.Stdout)
	if err := cli.EnsureCredentials(cfg, p); err != nil {
		return err
	}

	emails := *users
	if len(emails) == 0 {
		emails = cfg.Revoke.Users
	}
	if len(emails) == 0 {
		email, err := p.Line(userPrompt)
		if err != nil {
			return err
		}
		emails = []string{email}
	}

	ctx, cancel := cli.SignalContext()
	defer cancel()

	client, err := falcon.New(ctx, log, cfg.Credentials(), cfg.RetryPolicy())
	if err != nil {
		return fmt.Errorf("failed to create falcon client: %w", err)
	}

	audit, err := report.NewStore(log, filepath.Dir(cfg.Revoke.AuditLog))
	if err != nil {
		return err
	}

	revoker := roles.NewRevoker(client, log,
		roles.WithDryRun(*dryRun),
		roles.WithAudit(audit, filepath.Base(cfg.Revoke.AuditLog)),
	)
	log.Infof("Revoking %d roles from %d users (run %s, dry run: %t)", len(roles.UniqueRoleIDs(roleIDs)), len(emails), revoker.RunID(), *dryRun)

	results, err := revoker.Revoke(ctx, emails, roleIDs)
	if err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Printf("%s: %s (%v)\n", r.Email, r.Status, r.Err)
			continue
		}
		fmt.Printf("%s: %s\n", r.Email, r.Status)
	}
	fmt.Printf("Audit log: %s\n", filepath.Join(audit.Dir(), filepath.Base(cfg.Revoke.AuditLog)))

	if failed > 0 {
		return fmt.Errorf("%d of %d users failed", failed, len(results))
	}
	return nil
}
