// Package dut is the capability registry for one device under test: a
// value built by a factory, holding one logged-in CLI session and derived
// facts about the device, each behind a named accessor. Its lifetime is
// owned by whoever built it.
package dut

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"time"

	"github.com/morganhein/dutcli/logger"
	"github.com/morganhein/dutcli/retry"
	"github.com/morganhein/dutcli/schema"
	"github.com/morganhein/dutcli/session"
	"github.com/morganhein/dutcli/translate"
)

var log schema.Logger

func init() {
	log = logger.Log
}

// skuPattern extracts the SKU from "show version" output.
var skuPattern = regexp.MustCompile(`(DCS-7.*)`)

// Config names one device and how to reach it.
type Config struct {
	Name    string
	URL     string
	Options schema.ConnectOptions
	// Native dials ssh/telnet in-process instead of spawning a client.
	Native      bool
	LoginBudget time.Duration
	Retry       retry.Policy
}

// Registry holds the sub-clients for one device. Build it with New; tear it
// down with Close.
type Registry struct {
	cfg      Config
	hostname string
	cli      *session.Session
	sku      string
}

// New connects and logs in, retrying per the policy. Transport failures and
// fatal login states are not retried; a total failure is always an error,
// never an empty registry.
func New(cfg Config) (*Registry, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, &schema.TransportError{URL: cfg.URL, Err: err}
	}
	r := &Registry{cfg: cfg, hostname: u.Hostname()}

	policy := cfg.Retry
	if policy.Retryable == nil {
		policy.Retryable = loginRetryable
	}
	open := session.Open
	if cfg.Native {
		open = session.OpenNative
	}
	err = retry.Do(func() error {
		cli, err := open(cfg.URL, cfg.Options)
		if err != nil {
			return err
		}
		if err := cli.Login(cfg.LoginBudget); err != nil {
			log.Warningf("login to %s failed: %s", cfg.Name, err)
			_ = cli.Close()
			return err
		}
		r.cli = cli
		return nil
	}, policy)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// loginRetryable: a transport that cannot start and a CLI declared broken
// will not improve on a second try.
func loginRetryable(err error) bool {
	var te *schema.TransportError
	var lf *schema.LoginFatalError
	return !errors.As(err, &te) && !errors.As(err, &lf)
}

// Name is the configured device name.
func (r *Registry) Name() string { return r.cfg.Name }

// Hostname is the host component of the connection URL.
func (r *Registry) Hostname() string { return r.hostname }

// CLI is the logged-in terminal session.
func (r *Registry) CLI() *session.Session { return r.cli }

// Flavor is the firmware family determined at login.
func (r *Registry) Flavor() schema.Flavor { return r.cli.Flavor() }

// Translator maps the common command dialect onto this device's flavor.
func (r *Registry) Translator() *translate.Table {
	if r.cli.Flavor() == schema.FlavorMOS {
		return translate.MOS()
	}
	return translate.Identity()
}

// SKU queries and caches the device model string.
func (r *Registry) SKU() (string, error) {
	if r.sku != "" {
		return r.sku, nil
	}
	out, err := r.cli.Send("show version", 300*time.Second)
	if err != nil {
		return "", err
	}
	m := skuPattern.FindStringSubmatch(out)
	if m == nil {
		return "", fmt.Errorf("no SKU in show version output for %s", r.cfg.Name)
	}
	log.Infof("got SKU: %s", m[1])
	r.sku = m[1]
	return r.sku, nil
}

// Soften sets up a standard operating environment on the device: local
// privilege for the admin user and no enable password, so later interactive
// debugging is painless.
func (r *Registry) Soften() error {
	_, err := r.cli.SendAll(
		"enable",
		"configure",
		"username admin privilege 15 nopassword",
		"aaa authorization exec default local",
	)
	return err
}

// Close tears down the session.
func (r *Registry) Close() error {
	if r.cli == nil {
		return nil
	}
	return r.cli.Close()
}

// Requirements restricts a piece of work to particular devices. Evaluate
// replaces marker-based skipping: the caller decides what to do with the
// verdict.
type Requirements struct {
	// OS limits the work to these flavors; empty allows all.
	OS []schema.Flavor
	// OnlyDeviceType runs the work only on SKUs matching the pattern.
	OnlyDeviceType string
	// SkipDeviceType skips the work on SKUs matching the pattern.
	SkipDeviceType string
}

// Evaluate reports whether the work should be skipped on this device, and
// why.
func (q Requirements) Evaluate(r *Registry) (skip bool, reason string, err error) {
	if q.OnlyDeviceType != "" || q.SkipDeviceType != "" {
		sku, err := r.SKU()
		if err != nil {
			return false, "", err
		}
		if q.OnlyDeviceType != "" {
			re, err := regexp.Compile(q.OnlyDeviceType)
			if err != nil {
				return false, "", err
			}
			if !re.MatchString(sku) {
				return true, fmt.Sprintf("skipped on this SKU: %s (only runs on %s)", sku, q.OnlyDeviceType), nil
			}
		}
		if q.SkipDeviceType != "" {
			re, err := regexp.Compile(q.SkipDeviceType)
			if err != nil {
				return false, "", err
			}
			if re.MatchString(sku) {
				return true, fmt.Sprintf("skipped on this SKU: %s", sku), nil
			}
		}
	}
	if len(q.OS) > 0 {
		for _, f := range q.OS {
			if r.Flavor() == f {
				return false, "", nil
			}
		}
		return true, fmt.Sprintf("cannot run on platform %s", r.Flavor()), nil
	}
	return false, "", nil
}
