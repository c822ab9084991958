/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package config

import (
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/bupt-fnl/idledger/pkg/common/cas"
	"github.com/bupt-fnl/idledger/pkg/metrics"
	"github.com/bupt-fnl/idledger/pkg/txn/aggregator"
	"github.com/bupt-fnl/idledger/pkg/txn/api"
)

const (
	envPrefix = "IDLEDGER"

	confCAURL                   = "ca.url"
	confCAName                  = "ca.name"
	confIdentityName            = "identity.name"
	confIdentitySecret          = "identity.secret"
	confIdentityOrg             = "identity.org"
	confIdentityMSPID           = "identity.mspid"
	confChannelName             = "channel.name"
	confChannelPeers            = "channel.peers"
	confChannelOrderer          = "channel.orderer"
	confChaincodeAuthority      = "chaincode.authority"
	confChaincodeHash           = "chaincode.hash"
	confTxnProposalWaitTime     = "txn.proposalWaitTime"
	confTxnEndorsementPolicy    = "txn.endorsementPolicy"
	confTxnQueryConsistency     = "txn.queryConsistency"
	confSDKCredentialStorePath  = "sdk.credentialStorePath"
	confSDKTLSEnabled           = "sdk.tlsEnabled"
	confRESTListenAddress       = "rest.listenAddress"
	confMetricsProvider         = "metrics.provider"
	confMappingHashFormat       = "mapping.hashFormat"
	defaultCAURL                = "http://localhost:7054"
	defaultCAName               = "ca.org1.example.com"
	defaultIdentityName         = "admin"
	defaultIdentitySecret       = "adminpw"
	defaultIdentityOrg          = "org1"
	defaultIdentityMSPID        = "Org1MSP"
	defaultChannelName          = "mychannel"
	defaultChannelPeers         = "peer0.org1.example.com@grpc://localhost:7051"
	defaultChannelOrderer       = "orderer.example.com@grpc://localhost:7050"
	defaultChaincodeAuthority   = "cc_authority"
	defaultChaincodeHash        = "cc_hash"
	defaultTxnProposalWaitTime  = api.DefaultProposalWaitTime
	defaultTxnEndorsementPolicy = "any"
	defaultTxnQueryConsistency  = "last"
	defaultSDKCredentialStore   = "/tmp/idledger/msp"
	defaultRESTListenAddress    = "localhost:8080"
	defaultMetricsProvider      = metrics.DisabledProvider
	defaultMappingHashFormat    = string(cas.FormatCAS)
)

// Endpoint is a named network endpoint. It may also be specified as a "name@address" string.
type Endpoint struct {
	Name    string `mapstructure:"name"`
	Address string `mapstructure:"address"`
}

// CAConfig holds the certificate authority settings
type CAConfig struct {
	URL  string `mapstructure:"url"`
	Name string `mapstructure:"name"`
}

// IdentityConfig holds the identity enrolled by the client
type IdentityConfig struct {
	Name   string `mapstructure:"name"`
	Secret string `mapstructure:"secret"`
	Org    string `mapstructure:"org"`
	MSPID  string `mapstructure:"mspid"`
}

// ChannelConfig holds the channel topology
type ChannelConfig struct {
	Name    string     `mapstructure:"name"`
	Peers   []Endpoint `mapstructure:"peers"`
	Orderer Endpoint   `mapstructure:"orderer"`
}

// ChaincodeConfig holds the names of the chaincodes
type ChaincodeConfig struct {
	Authority string `mapstructure:"authority"`
	Hash      string `mapstructure:"hash"`
}

// TxnConfig holds the transaction client settings
type TxnConfig struct {
	ProposalWaitTime  time.Duration `mapstructure:"proposalWaitTime"`
	EndorsementPolicy string        `mapstructure:"endorsementPolicy"`
	QueryConsistency  string        `mapstructure:"queryConsistency"`
}

// SDKConfig holds the fabric-sdk-go settings
type SDKConfig struct {
	CredentialStorePath string `mapstructure:"credentialStorePath"`
	TLSEnabled          bool   `mapstructure:"tlsEnabled"`
}

// RESTConfig holds the REST server settings
type RESTConfig struct {
	ListenAddress string `mapstructure:"listenAddress"`
}

// MetricsConfig holds the metrics settings
type MetricsConfig struct {
	Provider string `mapstructure:"provider"`
}

// MappingConfig holds the mapping-data settings
type MappingConfig struct {
	HashFormat string `mapstructure:"hashFormat"`
}

// Config is the client configuration. It is loaded once and is read-only thereafter.
type Config struct {
	CA        CAConfig        `mapstructure:"ca"`
	Identity  IdentityConfig  `mapstructure:"identity"`
	Channel   ChannelConfig   `mapstructure:"channel"`
	Chaincode ChaincodeConfig `mapstructure:"chaincode"`
	Txn       TxnConfig       `mapstructure:"txn"`
	SDK       SDKConfig       `mapstructure:"sdk"`
	REST      RESTConfig      `mapstructure:"rest"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Mapping   MappingConfig   `mapstructure:"mapping"`
}

// Load loads the configuration from the given YAML file (optional) with IDLEDGER_* environment
// variable overrides, for example IDLEDGER_CHANNEL_NAME or IDLEDGER_TXN_PROPOSALWAITTIME.
func Load(path string) (*Config, error) {
	v := newViper()

	if path != "" {
		v.SetConfigFile(path)

		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "error reading config file [%s]", path)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg, viper.DecodeHook(decodeHook())); err != nil {
		return nil, errors.Wrap(err, "error decoding config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns the default configuration without file or environment overrides
func Default() *Config {
	orderer, _ := ParseEndpoint(defaultChannelOrderer)
	peer, _ := ParseEndpoint(defaultChannelPeers)

	return &Config{
		CA:        CAConfig{URL: defaultCAURL, Name: defaultCAName},
		Identity:  IdentityConfig{Name: defaultIdentityName, Secret: defaultIdentitySecret, Org: defaultIdentityOrg, MSPID: defaultIdentityMSPID},
		Channel:   ChannelConfig{Name: defaultChannelName, Peers: []Endpoint{peer}, Orderer: orderer},
		Chaincode: ChaincodeConfig{Authority: defaultChaincodeAuthority, Hash: defaultChaincodeHash},
		Txn: TxnConfig{
			ProposalWaitTime:  defaultTxnProposalWaitTime,
			EndorsementPolicy: defaultTxnEndorsementPolicy,
			QueryConsistency:  defaultTxnQueryConsistency,
		},
		SDK:     SDKConfig{CredentialStorePath: defaultSDKCredentialStore},
		REST:    RESTConfig{ListenAddress: defaultRESTListenAddress},
		Metrics: MetricsConfig{Provider: defaultMetricsProvider},
		Mapping: MappingConfig{HashFormat: defaultMappingHashFormat},
	}
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault(confCAURL, defaultCAURL)
	v.SetDefault(confCAName, defaultCAName)
	v.SetDefault(confIdentityName, defaultIdentityName)
	v.SetDefault(confIdentitySecret, defaultIdentitySecret)
	v.SetDefault(confIdentityOrg, defaultIdentityOrg)
	v.SetDefault(confIdentityMSPID, defaultIdentityMSPID)
	v.SetDefault(confChannelName, defaultChannelName)
	v.SetDefault(confChannelPeers, defaultChannelPeers)
	v.SetDefault(confChannelOrderer, defaultChannelOrderer)
	v.SetDefault(confChaincodeAuthority, defaultChaincodeAuthority)
	v.SetDefault(confChaincodeHash, defaultChaincodeHash)
	v.SetDefault(confTxnProposalWaitTime, defaultTxnProposalWaitTime)
	v.SetDefault(confTxnEndorsementPolicy, defaultTxnEndorsementPolicy)
	v.SetDefault(confTxnQueryConsistency, defaultTxnQueryConsistency)
	v.SetDefault(confSDKCredentialStorePath, defaultSDKCredentialStore)
	v.SetDefault(confSDKTLSEnabled, false)
	v.SetDefault(confRESTListenAddress, defaultRESTListenAddress)
	v.SetDefault(confMetricsProvider, defaultMetricsProvider)
	v.SetDefault(confMappingHashFormat, defaultMappingHashFormat)

	return v
}

// decodeHook parses durations, comma separated lists and "name@address" endpoints
func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		endpointDecodeHook(),
	)
}

func endpointDecodeHook() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(Endpoint{}) {
			return data, nil
		}

		return ParseEndpoint(data.(string))
	}
}

// ParseEndpoint parses an endpoint in the form "name@address"
func ParseEndpoint(s string) (Endpoint, error) {
	s = strings.TrimSpace(s)

	i := strings.Index(s, "@")
	if i <= 0 || i == len(s)-1 {
		return Endpoint{}, errors.Errorf("invalid endpoint [%s]: expecting name@address", s)
	}

	return Endpoint{Name: s[:i], Address: s[i+1:]}, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Identity.Name == "" {
		return errors.New("identity name is required")
	}

	if c.Identity.MSPID == "" {
		return errors.New("identity MSP ID is required")
	}

	if c.Channel.Name == "" {
		return errors.New("channel name is required")
	}

	if len(c.Channel.Peers) == 0 {
		return errors.New("at least one peer is required")
	}

	for _, p := range c.Channel.Peers {
		if p.Name == "" || p.Address == "" {
			return errors.Errorf("invalid peer [%s@%s]", p.Name, p.Address)
		}
	}

	if c.Channel.Orderer.Name == "" || c.Channel.Orderer.Address == "" {
		return errors.New("an orderer is required")
	}

	if c.Chaincode.Authority == "" || c.Chaincode.Hash == "" {
		return errors.New("chaincode names are required")
	}

	if c.Txn.ProposalWaitTime <= 0 {
		return errors.Errorf("invalid proposal wait time [%s]", c.Txn.ProposalWaitTime)
	}

	if _, err := aggregator.PolicyFromString(c.Txn.EndorsementPolicy); err != nil {
		return err
	}

	if _, err := aggregator.QueryPolicyFromString(c.Txn.QueryConsistency); err != nil {
		return err
	}

	switch c.Metrics.Provider {
	case "", metrics.DisabledProvider, metrics.PrometheusProvider:
	default:
		return errors.Errorf("unsupported metrics provider [%s]", c.Metrics.Provider)
	}

	if _, err := cas.FormatFromString(c.Mapping.HashFormat); err != nil {
		return err
	}

	return nil
}

// EnrollmentRequest returns the request used to enroll the configured identity
func (c *Config) EnrollmentRequest() *api.EnrollmentRequest {
	return &api.EnrollmentRequest{
		Name:        c.Identity.Name,
		Secret:      c.Identity.Secret,
		Affiliation: c.Identity.Org,
		MSPID:       c.Identity.MSPID,
	}
}

// PeerEndpoints returns the configured peers
func (c *Config) PeerEndpoints() []api.PeerEndpoint {
	peers := make([]api.PeerEndpoint, len(c.Channel.Peers))
	for i, p := range c.Channel.Peers {
		peers[i] = api.PeerEndpoint{Name: p.Name, Address: p.Address}
	}
	return peers
}

// OrdererEndpoint returns the configured orderer
func (c *Config) OrdererEndpoint() api.OrdererEndpoint {
	return api.OrdererEndpoint{Name: c.Channel.Orderer.Name, Address: c.Channel.Orderer.Address}
}

// EndorsementPolicy returns the configured endorsement policy
func (c *Config) EndorsementPolicy() api.EndorsementPolicy {
	p, err := aggregator.PolicyFromString(c.Txn.EndorsementPolicy)
	if err != nil {
		return aggregator.AnySuccessPolicy{}
	}
	return p
}

// QueryPolicy returns the configured query consistency policy
func (c *Config) QueryPolicy() aggregator.QueryPolicy {
	p, err := aggregator.QueryPolicyFromString(c.Txn.QueryConsistency)
	if err != nil {
		return aggregator.LastResponderWins
	}
	return p
}

// HashFormat returns the configured format of mapping-data hashes
func (c *Config) HashFormat() cas.Format {
	f, err := cas.FormatFromString(c.Mapping.HashFormat)
	if err != nil {
		return cas.FormatCAS
	}
	return f
}
