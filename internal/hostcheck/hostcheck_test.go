package hostcheck

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"falconadmin/internal/falcon"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLookup answers device queries from canned maps keyed by hostname.
type fakeLookup struct {
	ids        map[string][]string
	details    map[string][]falcon.DeviceDetail // keyed by first ID
	findErr    map[string]error
	detailsErr map[string]error
	queried    []string
	detailIDs  [][]string
}

func (f *fakeLookup) FindDevices(_ context.Context, prefix string) ([]string, error) {
	f.queried = append(f.queried, prefix)
	if err := f.findErr[prefix]; err != nil {
		return nil, err
	}
	return f.ids[prefix], nil
}

func (f *fakeLookup) DeviceDetails(_ context.Context, ids []string) ([]falcon.DeviceDetail, error) {
	f.detailIDs = append(f.detailIDs, ids)
	if err := f.detailsErr[ids[0]]; err != nil {
		return nil, err
	}
	return f.details[ids[0]], nil
}

func records(names ...string) []HostRecord {
	out := make([]HostRecord, 0, len(names))
	for _, n := range names {
		out = append(out, HostRecord{Hostname: n})
	}
	return out
}

func newChecker(lookup DeviceLookup) *Checker {
	logger, _ := test.NewNullLogger()
	return New(lookup, logger)
}

func TestCheckScenarios(t *testing.T) {
	tests := []struct {
		name      string
		lookup    *fakeLookup
		host      string
		installed bool
		lastSeen  string
	}{
		{
			name:     "no matching device",
			lookup:   &fakeLookup{},
			host:     "host1",
			lastSeen: NotApplicable,
		},
		{
			name: "single device with details",
			lookup: &fakeLookup{
				ids:     map[string][]string{"host2": {"id1"}},
				details: map[string][]falcon.DeviceDetail{"id1": {{DeviceID: "id1", LastSeen: "2024-01-01T00:00:00Z"}}},
			},
			host:      "host2",
			installed: true,
			lastSeen:  "2024-01-01T00:00:00Z",
		},
		{
			name: "matches without resolvable details",
			lookup: &fakeLookup{
				ids: map[string][]string{"host3": {"id1", "id2"}},
			},
			host:     "host3",
			lastSeen: MultipleAIDs,
		},
		{
			name: "several details uses the first",
			lookup: &fakeLookup{
				ids: map[string][]string{"web": {"a", "b"}},
				details: map[string][]falcon.DeviceDetail{"a": {
					{DeviceID: "a", LastSeen: "2024-03-02T10:00:00Z"},
					{DeviceID: "b", LastSeen: "2025-01-01T00:00:00Z"},
				}},
			},
			host:      "web",
			installed: true,
			lastSeen:  "2024-03-02T10:00:00Z",
		},
		{
			name: "detail without last seen is still installed",
			lookup: &fakeLookup{
				ids:     map[string][]string{"quiet": {"q"}},
				details: map[string][]falcon.DeviceDetail{"q": {{DeviceID: "q"}}},
			},
			host:      "quiet",
			installed: true,
			lastSeen:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := newChecker(tt.lookup).Check(context.Background(), records(tt.host))
			require.Len(t, results, 1)
			assert.Equal(t, Result{Hostname: tt.host, AgentInstalled: tt.installed, LastSeen: tt.lastSeen}, results[0])
		})
	}
}

func TestCheckPassesAllIDsToDetails(t *testing.T) {
	lookup := &fakeLookup{ids: map[string][]string{"host3": {"id1", "id2"}}}
	newChecker(lookup).Check(context.Background(), records("host3"))

	require.Len(t, lookup.detailIDs, 1)
	assert.Equal(t, []string{"id1", "id2"}, lookup.detailIDs[0])
}

func TestCheckSkipsDetailsWhenNothingMatched(t *testing.T) {
	lookup := &fakeLookup{}
	newChecker(lookup).Check(context.Background(), records("a", "b"))

	assert.Equal(t, []string{"a", "b"}, lookup.queried)
	assert.Empty(t, lookup.detailIDs)
}

func TestCheckIsolatesFailures(t *testing.T) {
	rateLimited := &falcon.CallError{Op: "QueryDevicesByFilter", Kind: falcon.ErrRateLimited, Err: errors.New("429")}
	network := &falcon.CallError{Op: "GetDeviceDetails", Kind: falcon.ErrNetwork, Err: errors.New("reset")}

	lookup := &fakeLookup{
		ids: map[string][]string{
			"ok":     {"id-ok"},
			"broken": {"id-broken"},
		},
		details: map[string][]falcon.DeviceDetail{
			"id-ok": {{DeviceID: "id-ok", LastSeen: "2024-05-05T05:05:05Z"}},
		},
		findErr:    map[string]error{"throttled": rateLimited},
		detailsErr: map[string]error{"id-broken": network},
	}

	results := newChecker(lookup).Check(context.Background(), records("throttled", "broken", "ok", "missing"))
	require.Len(t, results, 4)

	assert.Equal(t, "throttled", results[0].Hostname)
	assert.False(t, results[0].AgentInstalled)
	assert.Equal(t, "Lookup failed: rate limited", results[0].LastSeen)
	assert.ErrorIs(t, results[0].Err, falcon.ErrRateLimited)

	assert.Equal(t, "broken", results[1].Hostname)
	assert.Equal(t, "Lookup failed: network failure", results[1].LastSeen)
	assert.ErrorIs(t, results[1].Err, falcon.ErrNetwork)

	assert.Equal(t, Result{Hostname: "ok", AgentInstalled: true, LastSeen: "2024-05-05T05:05:05Z"}, results[2])
	assert.Equal(t, Result{Hostname: "missing", LastSeen: NotApplicable}, results[3])
}

func TestCheckPreservesOrderAndLength(t *testing.T) {
	lookup := &fakeLookup{ids: map[string][]string{}}
	var names []string
	for i := 0; i < 60; i++ {
		name := fmt.Sprintf("host-%02d", i)
		names = append(names, name)
		if i%3 == 0 {
			lookup.ids[name] = []string{"aid-" + name}
		}
	}

	results := newChecker(lookup).Check(context.Background(), records(names...))
	require.Len(t, results, len(names))
	for i, r := range results {
		assert.Equal(t, names[i], r.Hostname)
	}
}

func TestCheckCancelledContextStillYieldsRows(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	lookup := &fakeLookup{}
	results := newChecker(lookup).Check(ctx, records("a", "b"))

	require.Len(t, results, 2)
	assert.Empty(t, lookup.queried)
	for _, r := range results {
		assert.True(t, r.Failed())
		assert.Equal(t, "Lookup failed: cancelled", r.LastSeen)
	}
}

// cancellingLookup cancels the run while the first device query is in flight.
type cancellingLookup struct {
	cancel context.CancelFunc
}

func (l *cancellingLookup) FindDevices(ctx context.Context, _ string) ([]string, error) {
	l.cancel()
	return nil, &falcon.CallError{Op: "QueryDevicesByFilter", Kind: falcon.ErrNetwork, Err: ctx.Err()}
}

func (l *cancellingLookup) DeviceDetails(context.Context, []string) ([]falcon.DeviceDetail, error) {
	return nil, errors.New("unexpected details call")
}

func TestCheckCancelledMidLookup(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := newChecker(&cancellingLookup{cancel: cancel}).Check(ctx, records("a", "b"))

	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, "Lookup failed: cancelled", r.LastSeen, r.Hostname)
		assert.False(t, r.AgentInstalled)
	}
}

func TestCheckEmptyInput(t *testing.T) {
	results := newChecker(&fakeLookup{}).Check(context.Background(), nil)
	assert.Empty(t, results)
}

func TestFailureMarker(t *testing.T) {
	assert.Equal(t, "Lookup failed: authentication failed",
		FailureMarker(&falcon.CallError{Kind: falcon.ErrAuth, Err: errors.New("401")}))
	assert.Equal(t, "Lookup failed: api error",
		FailureMarker(fmt.Errorf("device query: %w", &falcon.CallError{Kind: falcon.ErrAPI, Err: errors.New("400")})))
	assert.Equal(t, "Lookup failed: timed out", FailureMarker(context.DeadlineExceeded))
	assert.Equal(t, "Lookup failed: cancelled",
		FailureMarker(&falcon.CallError{Kind: falcon.ErrNetwork, Err: context.Canceled}))
	assert.Equal(t, "Lookup failed: unknown error", FailureMarker(errors.New("???")))
}

func TestSummarize(t *testing.T) {
	results := []Result{
		{Hostname: "a", AgentInstalled: true, LastSeen: "2024-01-01T00:00:00Z"},
		{Hostname: "b", LastSeen: NotApplicable},
		{Hostname: "c", LastSeen: MultipleAIDs},
		{Hostname: "d", LastSeen: "Lookup failed: rate limited", Err: errors.New("x")},
		{Hostname: "e", AgentInstalled: true, LastSeen: "2024-01-02T00:00:00Z"},
	}

	assert.Equal(t, Summary{Total: 5, Installed: 2, NotInstalled: 1, Ambiguous: 1, Failed: 1}, Summarize(results))
}
