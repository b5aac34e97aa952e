package types

// CmdLineGenerator is implemented by tc objects the cmdline policer driver passes to the tc binary
type CmdLineGenerator interface {
	// GenCmdLineArgs returns the tc arguments describing the object, e.g "rate 8000kbit burst 1000"
	GenCmdLineArgs() []string
}
