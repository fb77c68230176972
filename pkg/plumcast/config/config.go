// Package config is the ambient configuration layer for a plumcast
// service: a plain struct tree loadable from YAML, with defaults applied
// the same way the engine packages apply theirs.
//
// Grounded on the teacher's pkg/mcast/types configuration structs
// (PeerConfiguration/Configuration) for the field-grouping shape, and on
// the other_examples pack's shurlinet-shurli/internal/config/loader.go
// for the YAML-loading and validation idiom (gopkg.in/yaml.v3, %w error
// wrapping, a companion Validate function per config type).
package config

import (
	"fmt"
	"time"

	"github.com/jabolina/plumcast/pkg/plumcast/broadcast"
	"github.com/jabolina/plumcast/pkg/plumcast/membership"
)

// MembershipConfig mirrors membership.Options' tunables for YAML
// loading; zero fields fall back to the engine's own defaults.
type MembershipConfig struct {
	ActiveViewSize    int           `yaml:"active_view_size,omitempty"`
	PassiveViewSize   int           `yaml:"passive_view_size,omitempty"`
	ARWL              int           `yaml:"arwl,omitempty"`
	PRWL              int           `yaml:"prwl,omitempty"`
	ShuffleInterval   time.Duration `yaml:"shuffle_interval,omitempty"`
	ShuffleSampleSize int           `yaml:"shuffle_sample_size,omitempty"`
	ShuffleTTL        int           `yaml:"shuffle_ttl,omitempty"`
}

// BroadcastConfig mirrors broadcast.Options' tunables.
type BroadcastConfig struct {
	SeenCacheSize     int           `yaml:"seen_cache_size,omitempty"`
	FirstGraftTimeout time.Duration `yaml:"first_graft_timeout,omitempty"`
	RetryGraftTimeout time.Duration `yaml:"retry_graft_timeout,omitempty"`
}

// MetricsConfig holds Prometheus instrumentation settings as loaded from
// YAML. Nothing in this module reads it: service.Service does not create
// a recorder or a metrics listener from it; metrics are wired in by
// passing a metrics.Recorder to service.New.
type MetricsConfig struct {
	Enabled       bool   `yaml:"enabled,omitempty"`
	ListenAddress string `yaml:"listen_address,omitempty"`
}

// ServiceConfig is the top-level configuration for one plumcast process.
type ServiceConfig struct {
	// ListenAddress is the address this process advertises and binds its
	// transport to.
	ListenAddress string `yaml:"listen_address"`

	// Contacts lists contact NodeIds in the "address/local-id" form that
	// NodeId.String renders. Service.JoinContacts joins a node to every
	// one of them in order; nothing joins them automatically.
	Contacts []string `yaml:"contacts,omitempty"`

	// TickInterval is how often the service drives each local node's
	// Tick (spec.md §9: cadence is a caller tunable).
	TickInterval time.Duration `yaml:"tick_interval,omitempty"`

	// InboxCapacity bounds each node's inbound RpcMessage queue.
	InboxCapacity int `yaml:"inbox_capacity,omitempty"`

	Membership MembershipConfig `yaml:"membership,omitempty"`
	Broadcast  BroadcastConfig  `yaml:"broadcast,omitempty"`
	Metrics    MetricsConfig    `yaml:"metrics,omitempty"`
}

// WithDefaults returns a copy of c with zero-valued top-level fields
// filled in. Engine-level fields (Membership, Broadcast) are left for
// their own withDefaults to fill, the same deferral the teacher's
// PeerConfiguration applies to sub-configurations.
func (c ServiceConfig) WithDefaults() ServiceConfig {
	if c.TickInterval <= 0 {
		c.TickInterval = 200 * time.Millisecond
	}
	if c.InboxCapacity <= 0 {
		c.InboxCapacity = 4096
	}
	return c
}

// Validate reports a required-field error, the same style as the
// teacher pack's ValidateNodeConfig family.
func (c ServiceConfig) Validate() error {
	if c.ListenAddress == "" {
		return fmt.Errorf("listen_address is required")
	}
	return nil
}

// ToMembershipOptions projects the YAML-facing fields onto
// membership.Options, leaving unset fields for the engine's own
// withDefaults to fill.
func (m MembershipConfig) ToMembershipOptions() membership.Options {
	return membership.Options{
		ActiveViewSize:    m.ActiveViewSize,
		PassiveViewSize:   m.PassiveViewSize,
		ARWL:              m.ARWL,
		PRWL:              m.PRWL,
		ShuffleInterval:   m.ShuffleInterval,
		ShuffleSampleSize: m.ShuffleSampleSize,
		ShuffleTTL:        m.ShuffleTTL,
	}
}

// ToBroadcastOptions projects the YAML-facing fields onto
// broadcast.Options.
func (b BroadcastConfig) ToBroadcastOptions() broadcast.Options {
	return broadcast.Options{
		SeenCacheSize:     b.SeenCacheSize,
		FirstGraftTimeout: b.FirstGraftTimeout,
		RetryGraftTimeout: b.RetryGraftTimeout,
	}
}

// MergeMembershipOptions layers override atop base, keeping base's field
// wherever override left it at its zero value. Used by service.Service to
// let a per-node options argument take precedence over the process-wide
// config file without callers having to repeat every field.
func MergeMembershipOptions(base, override membership.Options) membership.Options {
	if override.RNG != nil {
		base.RNG = override.RNG
	}
	if override.ActiveViewSize > 0 {
		base.ActiveViewSize = override.ActiveViewSize
	}
	if override.PassiveViewSize > 0 {
		base.PassiveViewSize = override.PassiveViewSize
	}
	if override.ARWL > 0 {
		base.ARWL = override.ARWL
	}
	if override.PRWL > 0 {
		base.PRWL = override.PRWL
	}
	if override.ShuffleInterval > 0 {
		base.ShuffleInterval = override.ShuffleInterval
	}
	if override.ShuffleSampleSize > 0 {
		base.ShuffleSampleSize = override.ShuffleSampleSize
	}
	if override.ShuffleTTL > 0 {
		base.ShuffleTTL = override.ShuffleTTL
	}
	return base
}

// MergeBroadcastOptions layers override atop base the same way
// MergeMembershipOptions does.
func MergeBroadcastOptions(base, override broadcast.Options) broadcast.Options {
	if override.SeenCacheSize > 0 {
		base.SeenCacheSize = override.SeenCacheSize
	}
	if override.FirstGraftTimeout > 0 {
		base.FirstGraftTimeout = override.FirstGraftTimeout
	}
	if override.RetryGraftTimeout > 0 {
		base.RetryGraftTimeout = override.RetryGraftTimeout
	}
	return base
}
