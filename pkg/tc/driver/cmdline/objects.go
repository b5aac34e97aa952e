package cmdline

type cQDisc struct {
	Kind   string `json:"kind"`
	Handle string `json:"handle"`
	Parent string `json:"parent"`
}

type cFilter struct {
	Protocol string          `json:"protocol"`
	Priority uint16          `json:"pref"`
	Kind     string          `json:"kind"`
	Chain    uint32          `json:"chain"`
	Options  *cFilterOptions `json:"options,omitempty"`
}

type cFilterOptions struct {
	Handle  uint32    `json:"handle"`
	SkipSw  bool      `json:"skip_sw"`
	InHw    bool      `json:"in_hw"`
	Actions []cAction `json:"actions"`
}

type cAction struct {
	Order uint   `json:"order"`
	Kind  string `json:"kind"`
}
