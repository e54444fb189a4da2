// Package roles exports console roles and revokes role assignments from users.
package roles

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Lister lists the roles available in the console.
type Lister interface {
	ListRoles(ctx context.Context) ([]string, error)
}

// UserAdmin resolves users and revokes their roles.
type UserAdmin interface {
	ResolveUserUUID(ctx context.Context, email string) (string, error)
	RevokeRoles(ctx context.Context, userUUID string, roleIDs []string) error
}

// AuditLog records one line per revocation attempt.
type AuditLog interface {
	AppendAudit(name string, lines ...string) error
}

// Export returns every available role. Errors are returned as-is so the
// caller can tell authentication problems from throttling.
func Export(ctx context.Context, lister Lister, log logrus.FieldLogger) ([]string, error) {
	start := time.Now()
	roles, err := lister.ListRoles(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	log.Infof("Exported %d roles in %v", len(roles), time.Since(start))
	return roles, nil
}

// Status of a single user's revocation.
const (
	StatusRevoked  = "revoked"
	StatusDryRun   = "dry-run"
	StatusNotFound = "user-not-found"
	StatusFailed   = "failed"
)

// Revocation is the outcome for one user.
type Revocation struct {
	Err      error
	Email    string
	UserUUID string
	Status   string
	RoleIDs  []string
}

// Revoker removes a fixed set of roles from a list of users.
type Revoker struct {
	admin    UserAdmin
	audit    AuditLog
	log      logrus.FieldLogger
	now      func() time.Time
	auditLog string
	runID    string
	dryRun   bool
}

// Option configures a Revoker.
type Option func(*Revoker)

// WithDryRun resolves users without revoking anything.
func WithDryRun(dryRun bool) Option {
	return func(r *Revoker) { r.dryRun = dryRun }
}

// WithAudit appends every outcome to the named log in audit.
func WithAudit(audit AuditLog, name string) Option {
	return func(r *Revoker) {
		r.audit = audit
		r.auditLog = name
	}
}

// NewRevoker returns a Revoker. Each Revoker gets its own run ID for the audit log.
func NewRevoker(admin UserAdmin, log logrus.FieldLogger, opts ...Option) *Revoker {
	r := &Revoker{
		admin: admin,
		log:   log,
		now:   time.Now,
		runID: uuid.NewString(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunID identifies this run in the audit log.
func (r *Revoker) RunID() string {
	return r.runID
}

// Revoke removes roleIDs from every user in emails, in order. A failure for one
// user is recorded and the next user is processed.
func (r *Revoker) Revoke(ctx context.Context, emails []string, roleIDs []string) ([]Revocation, error) {
	ids := UniqueRoleIDs(roleIDs)
	if len(ids) == 0 {
		return nil, errors.New("no role IDs to revoke")
	}

	start := time.Now()
	results := make([]Revocation, 0, len(emails))
	failures := 0

	for _, email := range emails {
		email = strings.TrimSpace(email)
		if email == "" {
			continue
		}

		res := r.revokeUser(ctx, email, ids)
		if res.Err != nil {
			failures++
			r.log.Warnf("User %s: %s: %v", email, res.Status, res.Err)
		} else {
			r.log.Infof("User %s (%s): %s %d roles", email, res.UserUUID, res.Status, len(ids))
		}
		r.record(res)
		results = append(results, res)
	}

	r.log.Infof("Completed %d users (%d successful, %d failed) in %v",
		len(results), len(results)-failures, failures, time.Since(start))
	return results, nil
}

func (r *Revoker) revokeUser(ctx context.Context, email string, ids []string) Revocation {
	res := Revocation{Email: email, RoleIDs: ids}

	if err := ctx.Err(); err != nil {
		res.Status = StatusFailed
		res.Err = err
		return res
	}

	userUUID, err := r.admin.ResolveUserUUID(ctx, email)
	if err != nil {
		res.Status = StatusNotFound
		res.Err = fmt.Errorf("resolve user: %w", err)
		return res
	}
	if userUUID == "" {
		res.Status = StatusNotFound
		res.Err = errors.New("resolve user: empty uuid")
		return res
	}
	res.UserUUID = userUUID

	if r.dryRun {
		res.Status = StatusDryRun
		return res
	}

	if err := r.admin.RevokeRoles(ctx, userUUID, ids); err != nil {
		res.Status = StatusFailed
		res.Err = fmt.Errorf("revoke roles: %w", err)
		return res
	}
	res.Status = StatusRevoked
	return res
}

func (r *Revoker) record(res Revocation) {
	if r.audit == nil {
		return
	}
	line := fmt.Sprintf("%s run=%s email=%s uuid=%s roles=%d status=%s",
		r.now().UTC().Format(time.RFC3339), r.runID, res.Email, res.UserUUID, len(res.RoleIDs), res.Status)
	if res.Err != nil {
		line += fmt.Sprintf(" error=%q", res.Err.Error())
	}
	if err := r.audit.AppendAudit(r.auditLog, line); err != nil {
		r.log.Warnf("Failed to write audit log: %v", err)
	}
}

// UniqueRoleIDs trims role IDs and drops blanks and repeats, keeping first occurrence order.
func UniqueRoleIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
