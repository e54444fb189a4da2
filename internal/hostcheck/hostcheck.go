// Package hostcheck reconciles a host list against the Falcon device inventory.
package hostcheck

import (
	"context"
	"errors"
	"fmt"
	"time"

	"falconadmin/internal/falcon"

	"github.com/sirupsen/logrus"
)

// Last-seen values that are not timestamps.
const (
	NotApplicable  = "N/A"
	MultipleAIDs   = "Multiple AID's detected."
	failurePrefix  = "Lookup failed: "
	unknownFailure = "unknown error"
	progressEvery  = 25
)

// HostRecord is one hostname read from the input list.
type HostRecord struct {
	Hostname string
}

// Result is the outcome of checking a single host.
type Result struct {
	Err            error // Set when the lookup failed
	Hostname       string
	LastSeen       string
	AgentInstalled bool
}

// Failed reports whether the lookup for this host errored.
func (r Result) Failed() bool {
	return r.Err != nil
}

// Ambiguous reports whether devices matched but none could be resolved.
func (r Result) Ambiguous() bool {
	return r.Err == nil && !r.AgentInstalled && r.LastSeen == MultipleAIDs
}

// DeviceLookup is the part of the Falcon API the checker needs.
type DeviceLookup interface {
	FindDevices(ctx context.Context, hostnamePrefix string) ([]string, error)
	DeviceDetails(ctx context.Context, ids []string) ([]falcon.DeviceDetail, error)
}

// Checker runs the reconciliation for a list of hosts.
type Checker struct {
	lookup DeviceLookup
	log    logrus.FieldLogger
}

// New returns a Checker backed by lookup.
func New(lookup DeviceLookup, log logrus.FieldLogger) *Checker {
	return &Checker{lookup: lookup, log: log}
}

// Check returns one Result per host, in input order. A failing host never
// stops the run; its row carries a failure marker instead.
func (c *Checker) Check(ctx context.Context, hosts []HostRecord) []Result {
	start := time.Now()
	results := make([]Result, 0, len(hosts))

	for i, host := range hosts {
		if err := ctx.Err(); err != nil {
			results = append(results, failed(host.Hostname, err))
			continue
		}

		result := c.checkHost(ctx, host.Hostname)
		if result.Failed() {
			c.log.Warnf("Host %s: %v", host.Hostname, result.Err)
		} else {
			c.log.Debugf("Host %s: installed=%t last_seen=%s", host.Hostname, result.AgentInstalled, result.LastSeen)
		}
		results = append(results, result)

		if (i+1)%progressEvery == 0 {
			c.log.Infof("Checked %d of %d hosts", i+1, len(hosts))
		}
	}

	s := Summarize(results)
	c.log.Infof("Completed %d host checks (%d installed, %d not installed, %d ambiguous, %d failed) in %v",
		s.Total, s.Installed, s.NotInstalled, s.Ambiguous, s.Failed, time.Since(start))

	return results
}

func (c *Checker) checkHost(ctx context.Context, hostname string) Result {
	ids, err := c.lookup.FindDevices(ctx, hostname)
	if err != nil {
		return failed(hostname, fmt.Errorf("device query: %w", err))
	}
	if len(ids) == 0 {
		return Result{Hostname: hostname, AgentInstalled: false, LastSeen: NotApplicable}
	}

	details, err := c.lookup.DeviceDetails(ctx, ids)
	if err != nil {
		return failed(hostname, fmt.Errorf("device details: %w", err))
	}
	if len(details) == 0 {
		return Result{Hostname: hostname, AgentInstalled: false, LastSeen: MultipleAIDs}
	}

	// Only the first record counts, however many IDs matched.
	return Result{Hostname: hostname, AgentInstalled: true, LastSeen: details[0].LastSeen}
}

func failed(hostname string, err error) Result {
	return Result{
		Hostname:       hostname,
		AgentInstalled: false,
		LastSeen:       FailureMarker(err),
		Err:            err,
	}
}

// FailureMarker renders err as the Last Check-In value of a failed row.
// Context errors win over the API error kind they were classified as.
func FailureMarker(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return failurePrefix + "cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return failurePrefix + "timed out"
	}
	if kind := falcon.Kind(err); kind != nil {
		return failurePrefix + kind.Error()
	}
	return failurePrefix + unknownFailure
}

// Summary counts the outcomes of a run.
type Summary struct {
	Total        int
	Installed    int
	NotInstalled int
	Ambiguous    int
	Failed       int
}

// Summarize tallies results. Ambiguous and failed rows are not counted as not installed.
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		switch {
		case r.Failed():
			s.Failed++
		case r.AgentInstalled:
			s.Installed++
		case r.Ambiguous():
			s.Ambiguous++
		default:
			s.NotInstalled++
		}
	}
	return s
}
