package tc

import (
	"bytes"
	"fmt"
	"os"
	"sort"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	tctypes "github.com/k8snetworkplumbingwg/switch-tc-offload/pkg/tc/types"
	"github.com/k8snetworkplumbingwg/switch-tc-offload/pkg/utils"
)

// NewPolicerFileWriterImpl returns a new PolicerFileWriterImpl instance which records policers
// programmed via next to the file at path. next may be nil, in which case policers are only recorded.
func NewPolicerFileWriterImpl(path string, next Policer, log klog.Logger) *PolicerFileWriterImpl {
	return &PolicerFileWriterImpl{
		log:      log,
		path:     path,
		next:     next,
		policers: make(map[string]tctypes.Policer),
	}
}

// PolicerFileWriterImpl implements Policer interface and is used to save installed policers to file
// in a human-readable format for troubleshooting.
type PolicerFileWriterImpl struct {
	log      klog.Logger
	path     string
	next     Policer
	policers map[string]tctypes.Policer
}

// PolicerAdd implements Policer interface
func (p *PolicerFileWriterImpl) PolicerAdd(netDev string, policer *tctypes.Policer) error {
	if p.next != nil {
		if err := p.next.PolicerAdd(netDev, policer); err != nil {
			return err
		}
	}

	prev, had := p.policers[netDev]
	p.policers[netDev] = *policer
	if err := p.flush(); err != nil {
		if had {
			p.policers[netDev] = prev
		} else {
			delete(p.policers, netDev)
		}
		return err
	}
	return nil
}

// PolicerDel implements Policer interface
func (p *PolicerFileWriterImpl) PolicerDel(netDev string) error {
	if p.next != nil {
		if err := p.next.PolicerDel(netDev); err != nil {
			return err
		}
	}

	prev, had := p.policers[netDev]
	delete(p.policers, netDev)
	if err := p.flush(); err != nil {
		if had {
			p.policers[netDev] = prev
		}
		return err
	}
	return nil
}

// flush writes recorded policers to file, the file is left untouched if its content is up to date.
// a write failure fails the policer operation only when the file is the sole record, i.e next is nil.
func (p *PolicerFileWriterImpl) flush() error {
	err := p.write()
	if err == nil {
		return nil
	}
	if p.next == nil {
		return err
	}
	p.log.Error(err, "failed to record policers", "path", p.path)
	return nil
}

func (p *PolicerFileWriterImpl) write() error {
	exist, err := utils.PathExists(p.path)
	if err != nil {
		return errors.Wrapf(err, "failed to determine if path exist: %s", p.path)
	}

	var current []byte
	if exist {
		current, err = os.ReadFile(p.path)
		if err != nil {
			p.log.Info("failed to read policer file", "path", p.path, "error", err)
		}
	}

	devs := make([]string, 0, len(p.policers))
	for dev := range p.policers {
		devs = append(devs, dev)
	}
	sort.Strings(devs)

	newBuf := bytes.Buffer{}
	_, _ = newBuf.WriteString("policers:\n")
	for _, dev := range devs {
		policer := p.policers[dev]
		_, _ = newBuf.WriteString(fmt.Sprintf("%s: %s\n", dev, policer.String()))
	}

	if bytes.Equal(current, newBuf.Bytes()) {
		p.log.V(5).Info("current and new policers are the same - no action needed.")
		return nil
	}

	p.log.V(5).Info("saving policers", "path", p.path)
	if err = os.WriteFile(p.path, newBuf.Bytes(), 0600); err != nil {
		return errors.Wrapf(err, "failed to write policers to %s", p.path)
	}
	return nil
}

// Recorded returns the policer recorded for netDev
func (p *PolicerFileWriterImpl) Recorded(netDev string) (tctypes.Policer, bool) {
	policer, ok := p.policers[netDev]
	return policer, ok
}
