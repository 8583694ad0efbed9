// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package doc

import (
	"embed"

	"gopkg.in/yaml.v3"
)

// FS embeds the Open API document of the pool API.
//
//go:embed lsp.yaml
var FS embed.FS
var version string

// Version open api version
func Version() string {
	return version
}

type openAPIInfo struct {
	Info struct {
		Version string
	}
	Paths map[string]map[string]any
}

func load() (*openAPIInfo, error) {
	content, err := FS.ReadFile("lsp.yaml")
	if err != nil {
		return nil, err
	}
	var oai openAPIInfo
	if err := yaml.Unmarshal(content, &oai); err != nil {
		return nil, err
	}
	return &oai, nil
}

func init() {
	oai, err := load()
	if err != nil {
		panic(err)
	}
	version = oai.Info.Version
}
