/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package fabsdk

import (
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/bupt-fnl/idledger/pkg/config"
)

const profileVersion = "1.0.0"

type profile struct {
	Version                string                    `yaml:"version"`
	Client                 clientSection             `yaml:"client"`
	Channels               map[string]channelSection `yaml:"channels"`
	Organizations          map[string]orgSection     `yaml:"organizations"`
	Orderers               map[string]nodeSection    `yaml:"orderers"`
	Peers                  map[string]nodeSection    `yaml:"peers"`
	CertificateAuthorities map[string]caSection      `yaml:"certificateAuthorities"`
}

type clientSection struct {
	Organization    string             `yaml:"organization"`
	Logging         loggingSection     `yaml:"logging"`
	CredentialStore credentialStore    `yaml:"credentialStore"`
	BCCSP           map[string]bccspSW `yaml:"BCCSP"`
}

type loggingSection struct {
	Level string `yaml:"level"`
}

type credentialStore struct {
	Path        string    `yaml:"path"`
	CryptoStore pathEntry `yaml:"cryptoStore"`
}

type pathEntry struct {
	Path string `yaml:"path"`
}

type bccspSW struct {
	Enabled    bool          `yaml:"enabled"`
	Default    bccspProvider `yaml:"default"`
	Algorithm  string        `yaml:"hashAlgorithm"`
	SoftVerify bool          `yaml:"softVerify"`
	Level      int           `yaml:"level"`
}

type bccspProvider struct {
	Provider string `yaml:"provider"`
}

type channelSection struct {
	Orderers []string               `yaml:"orderers"`
	Peers    map[string]channelPeer `yaml:"peers"`
}

type channelPeer struct {
	EndorsingPeer  bool `yaml:"endorsingPeer"`
	ChaincodeQuery bool `yaml:"chaincodeQuery"`
	LedgerQuery    bool `yaml:"ledgerQuery"`
	EventSource    bool `yaml:"eventSource"`
}

type orgSection struct {
	MSPID                  string   `yaml:"mspid"`
	CryptoPath             string   `yaml:"cryptoPath"`
	Peers                  []string `yaml:"peers"`
	CertificateAuthorities []string `yaml:"certificateAuthorities"`
}

type nodeSection struct {
	URL         string                 `yaml:"url"`
	GRPCOptions map[string]interface{} `yaml:"grpcOptions"`
}

type caSection struct {
	URL       string    `yaml:"url"`
	CAName    string    `yaml:"caName"`
	Registrar registrar `yaml:"registrar"`
}

type registrar struct {
	EnrollID     string `yaml:"enrollId"`
	EnrollSecret string `yaml:"enrollSecret"`
}

// newProfile returns the SDK connection profile (YAML) for the configured organization and channel
func newProfile(cfg *config.Config) ([]byte, error) {
	p := &profile{
		Version: profileVersion,
		Client: clientSection{
			Organization: cfg.Identity.Org,
			Logging:      loggingSection{Level: "info"},
			CredentialStore: credentialStore{
				Path:        cfg.SDK.CredentialStorePath,
				CryptoStore: pathEntry{Path: filepath.Join(cfg.SDK.CredentialStorePath, "keystore")},
			},
			BCCSP: map[string]bccspSW{
				"security": {Enabled: true, Default: bccspProvider{Provider: "SW"}, Algorithm: "SHA2", SoftVerify: true, Level: 256},
			},
		},
		Channels: map[string]channelSection{
			cfg.Channel.Name: {
				Orderers: []string{cfg.Channel.Orderer.Name},
				Peers:    make(map[string]channelPeer),
			},
		},
		Organizations: map[string]orgSection{
			cfg.Identity.Org: {
				MSPID:                  cfg.Identity.MSPID,
				CryptoPath:             filepath.Join(cfg.SDK.CredentialStorePath, "{username}"),
				CertificateAuthorities: []string{cfg.CA.Name},
			},
		},
		Orderers: map[string]nodeSection{
			cfg.Channel.Orderer.Name: newNodeSection(cfg.Channel.Orderer, cfg.SDK.TLSEnabled),
		},
		Peers: make(map[string]nodeSection),
		CertificateAuthorities: map[string]caSection{
			cfg.CA.Name: {
				URL:    cfg.CA.URL,
				CAName: cfg.CA.Name,
				Registrar: registrar{
					EnrollID:     cfg.Identity.Name,
					EnrollSecret: cfg.Identity.Secret,
				},
			},
		},
	}

	org := p.Organizations[cfg.Identity.Org]

	for _, ep := range cfg.Channel.Peers {
		if _, exists := p.Peers[ep.Name]; exists {
			return nil, errors.Errorf("duplicate peer [%s]", ep.Name)
		}

		p.Peers[ep.Name] = newNodeSection(ep, cfg.SDK.TLSEnabled)
		p.Channels[cfg.Channel.Name].Peers[ep.Name] = channelPeer{
			EndorsingPeer:  true,
			ChaincodeQuery: true,
			LedgerQuery:    true,
			EventSource:    true,
		}
		org.Peers = append(org.Peers, ep.Name)
	}

	p.Organizations[cfg.Identity.Org] = org

	b, err := yaml.Marshal(p)
	if err != nil {
		return nil, errors.Wrap(err, "error marshalling connection profile")
	}

	return b, nil
}

func newNodeSection(ep config.Endpoint, tlsEnabled bool) nodeSection {
	return nodeSection{
		URL: ep.Address,
		GRPCOptions: map[string]interface{}{
			"ssl-target-name-override": ep.Name,
			"allow-insecure":           !tlsEnabled,
			"fail-fast":                false,
			"keep-alive-time":          "0s",
			"keep-alive-timeout":       "20s",
			"keep-alive-permit":        false,
		},
	}
}
