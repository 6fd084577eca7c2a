package main

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/morganhein/dutcli/dut"
	"github.com/morganhein/dutcli/schema"
)

// inventory is the device catalog on disk.
type inventory struct {
	Devices map[string]deviceEntry `yaml:"devices"`
}

type deviceEntry struct {
	URL              string `yaml:"url"`
	Username         string `yaml:"username"`
	Password         string `yaml:"password"`
	Native           bool   `yaml:"native"`
	EnableCLITimeout bool   `yaml:"enable_cli_timeout"`
	TimeoutSecs      int    `yaml:"timeout"`
	LoginBudgetSecs  int    `yaml:"login_budget"`
}

// envOverrides trump the inventory, so credentials can stay out of files.
// Variables are prefixed DUTCLI_, e.g. DUTCLI_PASSWORD.
type envOverrides struct {
	Username         string `envconfig:"USERNAME"`
	Password         string `envconfig:"PASSWORD"`
	FallbackPassword string `envconfig:"FALLBACK_PASSWORD"`
}

func envOptions() (schema.ConnectOptions, error) {
	var env envOverrides
	if err := envconfig.Process("dutcli", &env); err != nil {
		return schema.ConnectOptions{}, err
	}
	o := schema.ConnectOptions{
		Username:         env.Username,
		Password:         env.Password,
		FallbackPassword: env.FallbackPassword,
	}
	if o.Username == "" {
		o.Username = "admin"
	}
	return o, nil
}

func loadConfig(path, name string) (dut.Config, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return dut.Config{}, fmt.Errorf("cannot open inventory %s: %w", path, err)
	}
	var inv inventory
	if err := yaml.Unmarshal(body, &inv); err != nil {
		return dut.Config{}, fmt.Errorf("cannot parse inventory %s: %w", path, err)
	}
	if name == "" && len(inv.Devices) == 1 {
		for n := range inv.Devices {
			name = n
		}
	}
	entry, ok := inv.Devices[name]
	if !ok {
		return dut.Config{}, fmt.Errorf("device %q not found in %s", name, path)
	}

	opts, err := envOptions()
	if err != nil {
		return dut.Config{}, err
	}
	if entry.Username != "" && opts.Username == "admin" {
		opts.Username = entry.Username
	}
	if entry.Password != "" && opts.Password == "" {
		opts.Password = entry.Password
	}
	opts.EnableCLITimeout = entry.EnableCLITimeout
	opts.Timeout = sessionTimeout(entry.TimeoutSecs)

	cfg := dut.Config{
		Name:    name,
		URL:     entry.URL,
		Options: opts,
		Native:  entry.Native,
	}
	if entry.LoginBudgetSecs > 0 {
		cfg.LoginBudget = time.Duration(entry.LoginBudgetSecs) * time.Second
	}
	return cfg, nil
}
