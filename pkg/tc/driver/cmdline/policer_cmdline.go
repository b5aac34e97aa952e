package cmdline

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
	"k8s.io/utils/exec"

	"github.com/k8snetworkplumbingwg/switch-tc-offload/pkg/tc/types"
)

// NewPolicerCmdLineImpl creates a new instance of PolicerCmdLineImpl
func NewPolicerCmdLineImpl(log klog.Logger, executor exec.Interface) *PolicerCmdLineImpl {
	return &PolicerCmdLineImpl{
		log:      log,
		executor: executor,
		cmdline:  "tc",
		options:  []string{"-json"},
	}
}

// PolicerCmdLineImpl is a concrete implementation of Policer interface utilizing TC command line
type PolicerCmdLineImpl struct {
	log      klog.Logger
	executor exec.Interface

	cmdline string
	options []string
}

// execTcCmdNoOutput executes tc command with args, returning error if occurred
func (t *PolicerCmdLineImpl) execTcCmdNoOutput(args []string) error {
	finalArgs := append(t.options, args...)
	t.log.V(10).Info("executing", "cmd", t.cmdline, "args", finalArgs)
	cmd := t.executor.Command(t.cmdline, finalArgs...)
	err := cmd.Run()
	t.log.V(10).Info("exec result", "err", err)
	return err
}

// execTcCmd executes tc command with args, returning stdout output and error
func (t *PolicerCmdLineImpl) execTcCmd(args []string) ([]byte, error) {
	finalArgs := append(t.options, args...)
	t.log.V(10).Info("executing", "cmd", t.cmdline, "args", finalArgs)
	cmd := t.executor.Command(t.cmdline, finalArgs...)
	out, err := cmd.Output()
	t.log.V(10).Info("exec result", "err", err, "out", out)
	return out, err
}

// PolicerAdd implements Policer interface
func (t *PolicerCmdLineImpl) PolicerAdd(netDev string, policer *types.Policer) error {
	if err := t.ensureClsact(netDev); err != nil {
		return err
	}

	args := []string{"filter", "replace", "dev", netDev, ingressStr}
	args = append(args, types.NewPolicerFilter(policer).GenCmdLineArgs()...)
	if err := t.execTcCmdNoOutput(args); err != nil {
		return errors.Wrapf(err, "failed to install policer on %s", netDev)
	}
	return nil
}

// PolicerDel implements Policer interface
func (t *PolicerCmdLineImpl) PolicerDel(netDev string) error {
	installed, err := t.policerFilter(netDev)
	if err != nil {
		return err
	}
	if installed == nil {
		t.log.V(5).Info("no policer installed", "netDev", netDev)
		return nil
	}

	args := []string{"filter", "del", "dev", netDev, ingressStr}
	args = append(args, installed.FilterAttrs.GenCmdLineArgs()...)
	if err = t.execTcCmdNoOutput(args); err != nil {
		return errors.Wrapf(err, "failed to remove policer from %s", netDev)
	}
	return nil
}

// ensureClsact adds a clsact qdisc to netDev unless it already has one. an ingress qdisc is accepted as well.
func (t *PolicerCmdLineImpl) ensureClsact(netDev string) error {
	out, err := t.execTcCmd([]string{"qdisc", "list", "dev", netDev})
	if err != nil {
		return errors.Wrap(err, "failed to list qdiscs")
	}
	// parse output and return objects
	var cQdiscs []cQDisc
	err = json.Unmarshal(out, &cQdiscs)
	if err != nil {
		return errors.Wrap(err, "failed to parse qdiscs")
	}

	clsact := types.NewClsactQDisc()
	for _, q := range cQdiscs {
		if q.Kind != string(types.QDiscClsactType) && q.Kind != ingressStr {
			continue
		}
		handle, err := parseMajorMinor(q.Handle)
		if err != nil {
			return errors.Wrap(err, "Failed to parse qdisc Handle")
		}
		if handle == *clsact.Handle {
			return nil
		}
	}

	args := []string{"qdisc", "add", "dev", netDev}
	args = append(args, clsact.GenCmdLineArgs()...)
	if err = t.execTcCmdNoOutput(args); err != nil {
		return errors.Wrap(err, "failed to add clsact qdisc")
	}
	return nil
}

// policerFilter returns the matchall filter carrying the port policer or nil if none is installed
func (t *PolicerCmdLineImpl) policerFilter(netDev string) (*types.MatchallFilter, error) {
	out, err := t.execTcCmd([]string{"filter", "list", "dev", netDev, ingressStr})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list filters")
	}
	// parse output and return objects
	var cFilters []cFilter
	err = json.Unmarshal(out, &cFilters)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse filters")
	}

	for idx := range cFilters {
		f := &cFilters[idx]
		// skip filters with no Options
		if f.Options == nil || f.Kind != string(types.FilterKindMatchall) {
			continue
		}
		if f.Priority == types.PolicerFilterPriority && f.Options.Handle == types.PolicerFilterHandle {
			return cFilterToMatchallFilter(f), nil
		}
	}
	return nil, nil
}

// parseMajorMinor parses TC string Handle and Parent. for a given format the following output is expected as depicted
// below.
//
//	"abcd" -> int32(0xabcd)
//	"abcdef01" -> int32(0xabcdef01)
//	"abcd:" -> int32(0xabcd0000)
//	"abcd:ef01" -> int32(0xabcdef01)
func parseMajorMinor(mm string) (uint32, error) {
	parsedMm := strings.Split(mm, ":")

	switch len(parsedMm) {
	case 1:
		p, err := strconv.ParseUint(parsedMm[0], 16, 32)
		return uint32(p), err
	case 2:
		major, err := strconv.ParseUint(parsedMm[0], 16, 32)
		if err != nil {
			return 0, err
		}
		var minor uint64
		if len(parsedMm[1]) > 0 {
			// we have minor
			minor, err = strconv.ParseUint(parsedMm[1], 16, 32)
			if err != nil {
				return 0, err
			}
		}
		return ((uint32(major) & 0xffff) << 16) | (uint32(minor) & 0xffff), nil
	default:
		return 0, fmt.Errorf("failed to parse MajorMinor string: %s", mm)
	}
}
