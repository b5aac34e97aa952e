package server

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	"sigs.k8s.io/yaml"

	"github.com/k8snetworkplumbingwg/switch-tc-offload/pkg/tc/offload"
	tctypes "github.com/k8snetworkplumbingwg/switch-tc-offload/pkg/tc/types"
	"github.com/k8snetworkplumbingwg/switch-tc-offload/pkg/utils"
)

// Binder names used in BindConfig
const (
	BinderClsactIngress = "clsact-ingress"
	BinderClsactEgress  = "clsact-egress"
	BinderRedEarlyDrop  = "red-early-drop"
	BinderRedMark       = "red-mark"
)

// Config is the switch configuration: its ports and the filter blocks bound to them
type Config struct {
	Ports  []PortConfig  `json:"ports"`
	Blocks []BlockConfig `json:"blocks,omitempty"`
}

// PortConfig describes a switch port. exactly one of Name and PCIAddress is set.
type PortConfig struct {
	// Name is the port netdev name
	Name string `json:"name,omitempty"`
	// PCIAddress is resolved to the uplink representor netdev of the device
	PCIAddress string `json:"pciAddress,omitempty"`
	// ChipPort is the hardware port index
	ChipPort int `json:"chipPort"`
	// HWTCOffload is the netdev hw-tc-offload feature, enabled if unset
	HWTCOffload *bool `json:"hwTcOffload,omitempty"`
}

// BlockConfig describes a filter block, the ports it is bound to and its matchall rules
type BlockConfig struct {
	Index uint32       `json:"index"`
	Binds []BindConfig `json:"binds"`
	Rules []RuleConfig `json:"rules,omitempty"`
}

// BindConfig binds a block to a port
type BindConfig struct {
	// Port is the Name or PCIAddress of a configured port
	Port   string `json:"port"`
	Binder string `json:"binder"`
}

// RuleConfig is a matchall rule. a cookie is generated if unset.
type RuleConfig struct {
	Name    string         `json:"name,omitempty"`
	Cookie  uint64         `json:"cookie,omitempty"`
	Chain   uint32         `json:"chain,omitempty"`
	Actions []ActionConfig `json:"actions"`
}

// ActionConfig is a rule action. exactly one of Police and Gact is set.
type ActionConfig struct {
	Police *PoliceConfig `json:"police,omitempty"`
	// Gact is a generic action, pass or drop
	Gact string `json:"gact,omitempty"`
}

// PoliceConfig is a police action
type PoliceConfig struct {
	RateBytesPerSec uint64          `json:"rateBytesPerSec"`
	Burst           metav1.Duration `json:"burst"`
}

// LoadConfig reads, validates and defaults the configuration file at path
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", path)
	}
	return ParseConfig(data)
}

// ParseConfig parses, validates and defaults a YAML configuration
func ParseConfig(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	cfg.setDefaults()
	return cfg, nil
}

// Validate returns the aggregated configuration errors
func (c *Config) Validate() error {
	var errs []error
	ports := make(map[string]struct{})

	for idx := range c.Ports {
		p := &c.Ports[idx]
		id := p.id()
		switch {
		case p.Name == "" && p.PCIAddress == "":
			errs = append(errs, fmt.Errorf("port %d: name or pciAddress must be set", idx))
			continue
		case p.Name != "" && p.PCIAddress != "":
			errs = append(errs, fmt.Errorf("port %d: only one of name and pciAddress may be set", idx))
			continue
		case p.PCIAddress != "" && !utils.IsPCIAddress(p.PCIAddress):
			errs = append(errs, fmt.Errorf("port %d: invalid pciAddress %q", idx, p.PCIAddress))
		}
		if _, ok := ports[id]; ok {
			errs = append(errs, fmt.Errorf("port %q: defined more than once", id))
		}
		ports[id] = struct{}{}
	}

	blocks := make(map[uint32]struct{})
	for idx := range c.Blocks {
		b := &c.Blocks[idx]
		if _, ok := blocks[b.Index]; ok {
			errs = append(errs, fmt.Errorf("block %d: defined more than once", b.Index))
		}
		blocks[b.Index] = struct{}{}

		for _, bind := range b.Binds {
			if _, ok := ports[bind.Port]; !ok {
				errs = append(errs, fmt.Errorf("block %d: unknown port %q", b.Index, bind.Port))
			}
			if _, err := binderType(bind.Binder); err != nil {
				errs = append(errs, errors.Wrapf(err, "block %d", b.Index))
			}
		}

		for ridx := range b.Rules {
			for _, a := range b.Rules[ridx].Actions {
				if err := a.validate(); err != nil {
					errs = append(errs, errors.Wrapf(err, "block %d: rule %d", b.Index, ridx))
				}
			}
		}
	}
	return utilerrors.NewAggregate(errs)
}

// setDefaults enables hw-tc-offload on ports which do not set it and allocates missing rule cookies
func (c *Config) setDefaults() {
	for idx := range c.Ports {
		if c.Ports[idx].HWTCOffload == nil {
			enabled := true
			c.Ports[idx].HWTCOffload = &enabled
		}
	}

	for bidx := range c.Blocks {
		for ridx := range c.Blocks[bidx].Rules {
			if c.Blocks[bidx].Rules[ridx].Cookie == 0 {
				c.Blocks[bidx].Rules[ridx].Cookie = newCookie()
			}
		}
	}
}

// id returns the identifier binds refer to the port with
func (p *PortConfig) id() string {
	if p.Name != "" {
		return p.Name
	}
	return p.PCIAddress
}

func (a *ActionConfig) validate() error {
	switch {
	case a.Police != nil && a.Gact != "":
		return fmt.Errorf("only one of police and gact may be set")
	case a.Police != nil:
		if a.Police.Burst.Duration < 0 {
			return fmt.Errorf("negative police burst: %s", a.Police.Burst.Duration)
		}
		return nil
	case a.Gact == string(tctypes.ActionGenericPass) || a.Gact == string(tctypes.ActionGenericDrop):
		return nil
	case a.Gact != "":
		return fmt.Errorf("unknown gact: %q", a.Gact)
	}
	return fmt.Errorf("action must set police or gact")
}

// toAction converts ActionConfig to the rule Action it describes
func (a *ActionConfig) toAction() tctypes.Action {
	if a.Police != nil {
		return tctypes.NewPoliceActionBuilder().
			WithRate(a.Police.RateBytesPerSec).
			WithBurst(a.Police.Burst.Duration).
			Build()
	}
	return tctypes.NewGenericAction(tctypes.ActionGenericType(a.Gact))
}

// toMatchallOffload converts RuleConfig to a matchall offload command
func (r *RuleConfig) toMatchallOffload(cmd offload.MatchallCommand) *offload.MatchallOffload {
	f := &offload.MatchallOffload{
		Command: cmd,
		Cookie:  r.Cookie,
	}
	if cmd == offload.MatchallReplace {
		for idx := range r.Actions {
			f.Actions = append(f.Actions, r.Actions[idx].toAction())
		}
	}
	return f
}

// binderType converts a binder name to offload.BinderType
func binderType(binder string) (offload.BinderType, error) {
	switch binder {
	case BinderClsactIngress:
		return offload.BinderTypeClsactIngress, nil
	case BinderClsactEgress:
		return offload.BinderTypeClsactEgress, nil
	case BinderRedEarlyDrop:
		return offload.BinderTypeRedEarlyDrop, nil
	case BinderRedMark:
		return offload.BinderTypeRedMark, nil
	}
	return offload.BinderTypeUnspec, fmt.Errorf("unknown binder: %q", binder)
}

// newCookie returns a non zero rule cookie taken from a random UUID
func newCookie() uint64 {
	for {
		u := uuid.New()
		if cookie := binary.BigEndian.Uint64(u[:8]); cookie != 0 {
			return cookie
		}
	}
}
