package ast

// Method is a service method. It is a closed sum: the only implementations
// are *Function and *Event.
type Method interface {
	MethodName() string
	MethodAttributes() []*Attribute
	MethodInput() MethodType
	SourcePos() SourcePos
	methodNode()
}

// Function is a method with a result: result type, name, and input.
type Function struct {
	Name       string
	Result     MethodType
	Input      MethodType
	Attributes []*Attribute
	Pos        SourcePos
}

// Event is a fire-and-forget method: input only, result implicitly nothing.
type Event struct {
	Name       string
	Input      MethodType
	Attributes []*Attribute
	Pos        SourcePos
}

func (f *Function) MethodName() string             { return f.Name }
func (f *Function) MethodAttributes() []*Attribute { return f.Attributes }
func (f *Function) MethodInput() MethodType        { return f.Input }
func (f *Function) SourcePos() SourcePos           { return f.Pos }

func (e *Event) MethodName() string             { return e.Name }
func (e *Event) MethodAttributes() []*Attribute { return e.Attributes }
func (e *Event) MethodInput() MethodType        { return e.Input }
func (e *Event) SourcePos() SourcePos           { return e.Pos }

func (*Function) methodNode() {}
func (*Event) methodNode()    {}

// MethodType is a method's input or result form. It is a closed sum: the
// only implementations are Void, *Unary, and *Streaming.
type MethodType interface {
	methodTypeNode()
}

// Void is an absent input or result.
type Void struct{}

// Unary wraps a single user-defined struct payload.
type Unary struct {
	Type Type
}

// Streaming wraps a streamed user-defined struct payload.
type Streaming struct {
	Type Type
}

func (Void) methodTypeNode()       {}
func (*Unary) methodTypeNode()     {}
func (*Streaming) methodTypeNode() {}
