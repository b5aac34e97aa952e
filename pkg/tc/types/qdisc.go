package types

const (
	QDiscClsactType QDiscType = "clsact"

	// QDiscClsactParent is the parent handle of the clsact qdisc
	QDiscClsactParent uint32 = 0xfffffff1
	// QDiscClsactHandle is the handle of the clsact qdisc (ffff:0000)
	QDiscClsactHandle uint32 = 0xffff0000
)

// QDiscType is the type of qdisc
type QDiscType string

// QDiscAttrs holds QDisc object attributes
type QDiscAttrs struct {
	Parent *uint32
	Handle *uint32
}

// NewQDiscAttrs creates new QDiscAttrs instance
func NewQDiscAttrs(parent, handle *uint32) *QDiscAttrs {
	return &QDiscAttrs{
		Parent: parent,
		Handle: handle,
	}
}

// QDisc is an interface which represents a TC qdisc object
type QDisc interface {
	// Attrs returns QDiscAttrs for a qdisc
	Attrs() *QDiscAttrs
	// Type returns the QDisc type
	Type() QDiscType

	// Driver Specific related Interfaces
	CmdLineGenerator
}

// GenericQDisc is a generic qdisc of an arbitrary type
type GenericQDisc struct {
	QDiscAttrs
	QdiscType QDiscType
}

// Attrs implements QDisc interface
func (g *GenericQDisc) Attrs() *QDiscAttrs {
	return &g.QDiscAttrs
}

// Type implements QDisc interface
func (g *GenericQDisc) Type() QDiscType {
	return g.QdiscType
}

// GenCmdLineArgs implements CmdLineGenerator interface
func (g *GenericQDisc) GenCmdLineArgs() []string {
	return []string{string(g.QdiscType)}
}

// NewGenericQdisc creates a new Generic QDisc object
func NewGenericQdisc(qDiscAttrs *QDiscAttrs, qType QDiscType) *GenericQDisc {
	return &GenericQDisc{
		QDiscAttrs: *qDiscAttrs,
		QdiscType:  qType,
	}
}

// NewClsactQDisc returns the clsact qdisc which hosts ingress and egress filter blocks
func NewClsactQDisc() *GenericQDisc {
	parent := QDiscClsactParent
	handle := QDiscClsactHandle
	return NewGenericQdisc(NewQDiscAttrs(&parent, &handle), QDiscClsactType)
}
