package offload

import (
	"github.com/k8snetworkplumbingwg/switch-tc-offload/pkg/metrics"
	tctypes "github.com/k8snetworkplumbingwg/switch-tc-offload/pkg/tc/types"
)

// setupMatchall translates a matchall rule into the port policer configuration
func (p *Port) setupMatchall(f *MatchallOffload, extAck *ExtAck, ingress bool) error {
	p.log.V(5).Info("setupMatchall()", "command", f.Command.String(), "cookie", f.Cookie)

	if !ingress {
		extAck.SetErrMsg("Only ingress is supported")
		return ErrNotSupported
	}

	switch f.Command {
	case MatchallReplace:
		return p.matchallReplace(f, extAck)
	case MatchallDestroy:
		return p.matchallDestroy(f, extAck)
	default:
		// statistics are not supported
		return ErrNotSupported
	}
}

func (p *Port) matchallReplace(f *MatchallOffload, extAck *ExtAck) error {
	if len(f.Actions) != 1 {
		extAck.SetErrMsg("Only one action is supported")
		return ErrNotSupported
	}

	if p.TC.BlockShared {
		extAck.SetErrMsg("Rate limit is not supported on shared blocks")
		return ErrNotSupported
	}

	action, ok := f.Actions[0].(*tctypes.PoliceAction)
	if !ok {
		extAck.SetErrMsg("Unsupported action")
		return ErrNotSupported
	}

	if p.TC.PoliceID != 0 && p.TC.PoliceID != f.Cookie {
		extAck.SetErrMsg("Only one policer per port is supported")
		return ErrExist
	}

	policer := tctypes.NewPolicerFromPoliceAction(action)
	err := p.policer.PolicerAdd(p.Name, policer)
	p.metrics.PolicerOp(p.Name, metrics.OpAdd, err)
	if err != nil {
		extAck.SetErrMsg("Could not add policer")
		return err
	}
	p.log.V(5).Info("policer installed", "policer", policer.String(), "cookie", f.Cookie)

	p.TC.PoliceID = f.Cookie
	p.TC.OffloadCount++
	p.metrics.SetOffloads(p.Name, p.TC.OffloadCount)
	return nil
}

func (p *Port) matchallDestroy(f *MatchallOffload, extAck *ExtAck) error {
	if p.TC.PoliceID != f.Cookie {
		return ErrNotFound
	}

	err := p.policer.PolicerDel(p.Name)
	p.metrics.PolicerOp(p.Name, metrics.OpDel, err)
	if err != nil {
		extAck.SetErrMsg("Could not delete policer")
		return err
	}
	p.log.V(5).Info("policer removed", "cookie", f.Cookie)

	p.TC.PoliceID = 0
	p.TC.OffloadCount--
	p.metrics.SetOffloads(p.Name, p.TC.OffloadCount)
	return nil
}
