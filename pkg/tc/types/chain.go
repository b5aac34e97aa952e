package types

const (
	// ChainBase is the first evaluated classification chain. hardware offload only supports rules placed here.
	ChainBase uint32 = 0
)

// IsBaseChain returns true if chain is the base classification chain
func IsBaseChain(chain uint32) bool {
	return chain == ChainBase
}
