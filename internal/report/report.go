// Package report reads host lists and writes the CSV reports and audit logs
// produced by the falconadmin tools.
package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"falconadmin/internal/hostcheck"
)

// File naming.
const (
	// DefaultHostList is the input file hostcheck looks for.
	DefaultHostList = "CrowdStrike_Host_Check.csv"

	hostResultsPrefix = "CrowdStrike_Host_Check_COMPLETE_"
	hostResultsLayout = "20060102_1504"
	roleReportPrefix  = "csv_role_report_"
	roleReportLayout  = "2006_01_02_15_04_05"
)

// HostResultsHeader is the header row of the host check report.
var HostResultsHeader = []string{"Hostname", "CrowdStrike Agent installed", "Last Check-In Date"}

// RoleListHeader is the header row of the role export.
const RoleListHeader = "Role List"

// HostResultsName returns the report filename for a run started at t.
func HostResultsName(t time.Time) string {
	return hostResultsPrefix + t.Format(hostResultsLayout) + ".csv"
}

// RoleReportName returns the role export filename for a run started at t.
func RoleReportName(t time.Time) string {
	return roleReportPrefix + t.Format(roleReportLayout) + ".csv"
}

// ReadHostList parses a host list CSV. The first row is a header and is
// skipped. Only the first column is read; rows where it is blank are ignored.
func ReadHostList(r io.Reader) ([]hostcheck.HostRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var hosts []hostcheck.HostRecord
	header := true
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse host list: %w", err)
		}
		if header {
			header = false
			continue
		}
		if len(row) == 0 {
			continue
		}
		hostname := strings.TrimSpace(strings.TrimPrefix(row[0], "\ufeff"))
		if hostname == "" {
			continue
		}
		hosts = append(hosts, hostcheck.HostRecord{Hostname: hostname})
	}

	return hosts, nil
}

// WriteHostResults writes the header followed by one row per result.
func WriteHostResults(w io.Writer, results []hostcheck.Result) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(HostResultsHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, r := range results {
		if err := writer.Write([]string{r.Hostname, formatBool(r.AgentInstalled), r.LastSeen}); err != nil {
			return fmt.Errorf("failed to write row for %s: %w", r.Hostname, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush results: %w", err)
	}
	return nil
}

// WriteRoleList writes the role export: a header and one role per row.
func WriteRoleList(w io.Writer, roles []string) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{RoleListHeader}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, role := range roles {
		if err := writer.Write([]string{role}); err != nil {
			return fmt.Errorf("failed to write role %s: %w", role, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush roles: %w", err)
	}
	return nil
}

func formatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
