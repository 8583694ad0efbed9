// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"
	cli "gopkg.in/urfave/cli.v1"
	"gopkg.in/yaml.v3"

	"github.com/vechain/lsp/lsp"
	"github.com/vechain/lsp/staking"
	"github.com/vechain/lsp/staking/acl"
	"github.com/vechain/lsp/staking/sanity"
)

// beacon chain genesis, block numbers of the system clock count from it
const defaultGenesisTime = 1606824023

// poolConfig is the yaml document passed with --config.
type poolConfig struct {
	GenesisTime uint64                     `yaml:"genesisTime"`
	Staking     staking.Config             `yaml:"staking"`
	Roles       map[acl.Role][]lsp.Address `yaml:"roles"`
}

func defaultPoolConfig() *poolConfig {
	return &poolConfig{
		GenesisTime: defaultGenesisTime,
		Staking: staking.Config{
			SanityLimits: sanity.DefaultLimits,
		},
	}
}

// parsePoolConfig decodes data over the defaults. Unknown keys are rejected.
func parsePoolConfig(data []byte) (*poolConfig, error) {
	cfg := defaultPoolConfig()
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	for role := range cfg.Roles {
		if !role.Valid() {
			return nil, errors.Errorf("unknown role %q", role)
		}
	}
	return cfg, nil
}

func loadPoolConfig(path string) (*poolConfig, error) {
	if path == "" {
		return defaultPoolConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	return parsePoolConfig(data)
}

// roles grants the configured role holders.
func (c *poolConfig) roles() (*acl.Roles, error) {
	roles := acl.NewRoles()
	for role, holders := range c.Roles {
		if err := roles.Grant(role, holders...); err != nil {
			return nil, errors.Wrapf(err, "grant %s", role)
		}
	}
	return roles, nil
}

// dump renders the config as yaml, or as a unified diff against the defaults.
func (c *poolConfig) dump(diff bool) (string, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return "", err
	}
	if !diff {
		return string(data), nil
	}
	defaults, err := yaml.Marshal(defaultPoolConfig())
	if err != nil {
		return "", err
	}
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(defaults)),
		B:        difflib.SplitLines(string(data)),
		FromFile: "default",
		ToFile:   "effective",
		Context:  3,
	})
}

func configAction(ctx *cli.Context) error {
	cfg, err := loadPoolConfig(ctx.String(configFlag.Name))
	if err != nil {
		return err
	}
	out, err := cfg.dump(ctx.Bool(diffFlag.Name))
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}
