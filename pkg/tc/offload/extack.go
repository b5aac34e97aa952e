package offload

// ExtAck is the extended acknowledgement sink a diagnostic message is written to when a request is
// rejected. A nil *ExtAck discards messages.
type ExtAck struct {
	msg string
}

// SetErrMsg sets the diagnostic message
func (e *ExtAck) SetErrMsg(msg string) {
	if e == nil {
		return
	}
	e.msg = msg
}

// ErrMsg returns the last diagnostic message, or "" if none was set
func (e *ExtAck) ErrMsg() string {
	if e == nil {
		return ""
	}
	return e.msg
}
