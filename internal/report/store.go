package report

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"falconadmin/internal/hostcheck"

	"github.com/sirupsen/logrus"
)

const (
	// Directory permissions.
	outputDirPerm = 0o750
	// File permissions.
	reportFilePerm = 0o600
	auditFilePerm  = 0o600
	// String replacement constant.
	replacementChar = "-"
	// Longest filename we will create.
	maxNameLength = 255
)

// Store writes report files into a single output directory.
type Store struct {
	log logrus.FieldLogger
	dir string
}

// NewStore returns a Store rooted at dir, creating it if needed.
func NewStore(log logrus.FieldLogger, dir string) (*Store, error) {
	if dir == "" {
		dir = "."
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output directory: %w", err)
	}
	if err := os.MkdirAll(abs, outputDirPerm); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Store{log: log, dir: abs}, nil
}

// Dir returns the absolute output directory.
func (s *Store) Dir() string {
	return s.dir
}

// path returns the location of name inside the store.
func (s *Store) path(name string) (string, error) {
	p := filepath.Join(s.dir, sanitizeName(name))
	// Security: Verify the path stays within the output directory
	if filepath.Dir(p) != s.dir {
		return "", errors.New("security error: path traversal detected")
	}
	return p, nil
}

// SaveHostResults writes the host check report and returns its path.
func (s *Store) SaveHostResults(name string, results []hostcheck.Result) (string, error) {
	start := time.Now()
	p, err := s.path(name)
	if err != nil {
		return "", err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, reportFilePerm)
	if err != nil {
		return "", fmt.Errorf("failed to create report: %w", err)
	}
	if err := WriteHostResults(f, results); err != nil {
		_ = f.Close() //nolint:errcheck // Write error takes precedence
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close report: %w", err)
	}

	s.log.Debugf("Wrote %d host results to %s in %v", len(results), p, time.Since(start))
	return p, nil
}

// SaveRoleList writes the role export and returns its path.
func (s *Store) SaveRoleList(name string, roles []string) (string, error) {
	p, err := s.path(name)
	if err != nil {
		return "", err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, reportFilePerm)
	if err != nil {
		return "", fmt.Errorf("failed to create role report: %w", err)
	}
	if err := WriteRoleList(f, roles); err != nil {
		_ = f.Close() //nolint:errcheck // Write error takes precedence
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close role report: %w", err)
	}

	s.log.Debugf("Wrote %d roles to %s", len(roles), p)
	return p, nil
}

// AppendAudit appends lines to the named log file, one per line.
func (s *Store) AppendAudit(name string, lines ...string) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, auditFilePerm)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			s.log.Warnf("Error closing audit log %s: %v", p, err)
		}
	}()

	for _, line := range lines {
		if _, err := f.WriteString(strings.TrimRight(line, "\n") + "\n"); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
	}
	return nil
}

// ReadHostListFile opens path and parses it with ReadHostList.
func ReadHostListFile(path string) ([]hostcheck.HostRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open host list: %w", err)
	}
	defer f.Close() //nolint:errcheck // Read-only file

	return ReadHostList(f)
}

func sanitizeName(name string) string {
	name = strings.NewReplacer(
		"/", replacementChar,
		"\\", replacementChar,
		":", replacementChar,
		"*", replacementChar,
		"?", replacementChar,
		"\"", replacementChar,
		"<", replacementChar,
		">", replacementChar,
		"|", replacementChar,
		" ", replacementChar,
	).Replace(name)
	name = strings.ReplaceAll(name, "..", "")
	for strings.Contains(name, "--") {
		name = strings.ReplaceAll(name, "--", replacementChar)
	}
	name = strings.Trim(name, "-.")
	if name == "" {
		return "unknown"
	}
	if len(name) > maxNameLength {
		name = name[:maxNameLength]
	}
	return name
}
