package block

import (
	"sort"

	"golang.org/x/sys/unix"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	"k8s.io/klog/v2"

	"github.com/k8snetworkplumbingwg/switch-tc-offload/pkg/tc/offload"
)

type registration struct {
	key offload.CallbackKey
	cb  offload.BlockCallback
}

// NewBlock creates a new, unbound, filter Block
func NewBlock(index uint32, log klog.Logger) *Block {
	return &Block{
		index:  index,
		owners: make(map[string]int),
		log:    log.WithValues("block", index),
	}
}

// Block is an in-memory filter block implementing offload.Block. it tracks the ports bound to it
// and fans classifier rule events out to the callbacks registered by their drivers.
// Block is not safe for concurrent use.
type Block struct {
	index     uint32
	owners    map[string]int
	callbacks []registration
	log       klog.Logger
}

// Index returns the block index
func (b *Block) Index() uint32 {
	return b.index
}

// AddOwner records that dev is bound to the block. must be called before the bind request is offloaded.
func (b *Block) AddOwner(dev string) {
	b.owners[dev]++
}

// RemoveOwner records that dev is no longer bound to the block
func (b *Block) RemoveOwner(dev string) {
	if b.owners[dev] <= 1 {
		delete(b.owners, dev)
		return
	}
	b.owners[dev]--
}

// Owners returns the sorted netdev names bound to the block
func (b *Block) Owners() []string {
	owners := make([]string, 0, len(b.owners))
	for dev := range b.owners {
		owners = append(owners, dev)
	}
	sort.Strings(owners)
	return owners
}

// Shared implements offload.Block interface
func (b *Block) Shared() bool {
	return len(b.owners) > 1
}

// CallbackRegister implements offload.Block interface, a key may be registered only once
func (b *Block) CallbackRegister(key offload.CallbackKey, cb offload.BlockCallback, extAck *offload.ExtAck) error {
	if b.find(key) != -1 {
		extAck.SetErrMsg("Block callback already registered")
		return unix.EBUSY
	}
	b.log.V(5).Info("callback registered", "direction", key.Direction.String(), "port", key.Port.Name)
	b.callbacks = append(b.callbacks, registration{key: key, cb: cb})
	return nil
}

// CallbackUnregister implements offload.Block interface, unregistering an unknown key is a no-op
func (b *Block) CallbackUnregister(key offload.CallbackKey) {
	idx := b.find(key)
	if idx == -1 {
		b.log.V(5).Info("unregister of unknown callback ignored", "direction", key.Direction.String(),
			"port", key.Port.Name)
		return
	}
	b.callbacks = append(b.callbacks[:idx], b.callbacks[idx+1:]...)
	b.log.V(5).Info("callback unregistered", "direction", key.Direction.String(), "port", key.Port.Name)
}

// CallbackCount returns the number of registered callbacks
func (b *Block) CallbackCount() int {
	return len(b.callbacks)
}

// Call delivers ev to every registered callback in registration order. it returns the number of callbacks
// which accepted the event along with the aggregated errors of those which rejected it.
func (b *Block) Call(ev *offload.RuleEvent) (int, error) {
	// callbacks may unregister while being called
	callbacks := make([]registration, len(b.callbacks))
	copy(callbacks, b.callbacks)

	var ok int
	var errs []error
	for _, r := range callbacks {
		if err := r.cb(ev); err != nil {
			errs = append(errs, err)
			continue
		}
		ok++
	}
	return ok, utilerrors.NewAggregate(errs)
}

func (b *Block) find(key offload.CallbackKey) int {
	for idx := range b.callbacks {
		if b.callbacks[idx].key == key {
			return idx
		}
	}
	return -1
}
