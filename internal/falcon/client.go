// Package falcon wraps the CrowdStrike Falcon API for the falconadmin tools.
package falcon

import (
	"context"
	"errors"
	"fmt"
	"strings"

	gofalcon "github.com/crowdstrike/gofalcon/falcon"
	"github.com/crowdstrike/gofalcon/falcon/client"
	"github.com/crowdstrike/gofalcon/falcon/client/hosts"
	"github.com/crowdstrike/gofalcon/falcon/client/user_management"
	"github.com/sirupsen/logrus"
)

const userAgent = "falconadmin/1.0"

// DeviceDetail is the subset of a Falcon device record the tools use.
type DeviceDetail struct {
	DeviceID string
	Hostname string
	LastSeen string // Verbatim API timestamp, empty if absent
}

// Credentials identify an API client in a Falcon cloud.
type Credentials struct {
	ClientID     string
	ClientSecret string
	Cloud        string // us-1, us-2, eu-1, us-gov-1 or autodiscover
	MemberCID    string
}

// Client talks to the Falcon API. It is safe for sequential use only.
type Client struct {
	api    *client.CrowdStrikeAPISpecification
	log    logrus.FieldLogger
	policy RetryPolicy
}

// New creates a Client. Credentials are not verified until the first call.
func New(ctx context.Context, log logrus.FieldLogger, creds Credentials, policy RetryPolicy) (*Client, error) {
	if log == nil {
		return nil, errors.New("invalid logger supplied")
	}
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return nil, &CallError{Op: "NewClient", Kind: ErrAuth, Err: errors.New("client id and secret are required")}
	}

	cloud, err := gofalcon.CloudValidate(creds.Cloud)
	if err != nil {
		return nil, fmt.Errorf("invalid cloud %q: %w", creds.Cloud, err)
	}

	api, err := gofalcon.NewClient(&gofalcon.ApiConfig{
		ClientId:          creds.ClientID,
		ClientSecret:      creds.ClientSecret,
		MemberCID:         creds.MemberCID,
		Cloud:             cloud,
		Context:           ctx,
		UserAgentOverride: userAgent,
	})
	if err != nil {
		return nil, classify("NewClient", err)
	}
	if api == nil {
		return nil, &CallError{Op: "NewClient", Kind: ErrAPI, Err: errors.New("sdk returned no client")}
	}

	log.Infof("Falcon client ready (cloud: %s)", creds.Cloud)
	return &Client{api: api, log: log, policy: policy}, nil
}

// HostnameFilter builds the FQL prefix filter for a hostname.
func HostnameFilter(prefix string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(prefix)
	return fmt.Sprintf("hostname:'%s*'", escaped)
}

// FindDevices returns the IDs of devices whose hostname starts with prefix.
func (c *Client) FindDevices(ctx context.Context, prefix string) ([]string, error) {
	const op = "QueryDevicesByFilter"
	filter := HostnameFilter(prefix)
	return call(ctx, c.log, c.policy, op, func() ([]string, error) {
		res, err := c.api.Hosts.QueryDevicesByFilter(&hosts.QueryDevicesByFilterParams{
			Context: ctx,
			Filter:  &filter,
		})
		if err != nil {
			return nil, err
		}
		if res == nil || res.Payload == nil {
			return nil, errors.New("empty response")
		}
		if err := gofalcon.AssertNoError(res.Payload.Errors); err != nil {
			return nil, err
		}
		return res.Payload.Resources, nil
	})
}

// DeviceDetails fetches the device records for ids.
func (c *Client) DeviceDetails(ctx context.Context, ids []string) ([]DeviceDetail, error) {
	const op = "GetDeviceDetails"
	if len(ids) == 0 {
		return nil, nil
	}
	return call(ctx, c.log, c.policy, op, func() ([]DeviceDetail, error) {
		res, err := c.api.Hosts.GetDeviceDetailsV2(&hosts.GetDeviceDetailsV2Params{
			Context: ctx,
			Ids:     ids,
		})
		if err != nil {
			return nil, err
		}
		if res == nil || res.Payload == nil {
			return nil, errors.New("empty response")
		}
		if err := gofalcon.AssertNoError(res.Payload.Errors); err != nil {
			return nil, err
		}

		details := make([]DeviceDetail, 0, len(res.Payload.Resources))
		for _, d := range res.Payload.Resources {
			if d == nil {
				continue
			}
			detail := DeviceDetail{
				Hostname: d.Hostname,
				LastSeen: d.LastSeen,
			}
			if d.DeviceID != nil {
				detail.DeviceID = *d.DeviceID
			}
			details = append(details, detail)
		}
		return details, nil
	})
}

// ListRoles returns the IDs of every role available in the console.
func (c *Client) ListRoles(ctx context.Context) ([]string, error) {
	const op = "GetAvailableRoleIds"
	return call(ctx, c.log, c.policy, op, func() ([]string, error) {
		res, err := c.api.UserManagement.GetAvailableRoleIds(&user_management.GetAvailableRoleIdsParams{
			Context: ctx,
		})
		if err != nil {
			return nil, err
		}
		if res == nil || res.Payload == nil {
			return nil, errors.New("empty response")
		}
		if err := gofalcon.AssertNoError(res.Payload.Errors); err != nil {
			return nil, err
		}
		return res.Payload.Resources, nil
	})
}

// ResolveUserUUID returns the UUID of the user with the given login email.
func (c *Client) ResolveUserUUID(ctx context.Context, email string) (string, error) {
	const op = "RetrieveUserUUID"
	return call(ctx, c.log, c.policy, op, func() (string, error) {
		res, err := c.api.UserManagement.RetrieveUserUUID(&user_management.RetrieveUserUUIDParams{
			Context: ctx,
			UID:     []string{email},
		})
		if err != nil {
			return "", err
		}
		if res == nil || res.Payload == nil || len(res.Payload.Resources) == 0 {
			return "", fmt.Errorf("no user found for %s", email)
		}
		return res.Payload.Resources[0], nil
	})
}

// RevokeRoles removes roleIDs from the user identified by userUUID.
func (c *Client) RevokeRoles(ctx context.Context, userUUID string, roleIDs []string) error {
	const op = "RevokeUserRoleIds"
	_, err := call(ctx, c.log, c.policy, op, func() (struct{}, error) {
		res, err := c.api.UserManagement.RevokeUserRoleIds(&user_management.RevokeUserRoleIdsParams{
			Context:  ctx,
			UserUUID: userUUID,
			Ids:      roleIDs,
		})
		if err != nil {
			return struct{}{}, err
		}
		if res != nil && res.Payload != nil {
			if err := gofalcon.AssertNoError(res.Payload.Errors); err != nil {
				return struct{}{}, err
			}
		}
		return struct{}{}, nil
	})
	return err
}
