// Package code implements the G/M/T-code value type and its parser (C1):
// the lexical structure of a code, and its construction from text.
package code

import "github.com/joeycumines/mctl/channel"

// InternalCodeType is the priority class a code is classified into on
// admission to the scheduler. Higher values take precedence.
type InternalCodeType uint8

const (
	Regular InternalCodeType = iota
	Acknowledgement
	Macro
	Prioritized
)

func (t InternalCodeType) String() string {
	switch t {
	case Regular:
		return "Regular"
	case Acknowledgement:
		return "Acknowledgement"
	case Macro:
		return "Macro"
	case Prioritized:
		return "Prioritized"
	default:
		return "InternalCodeType(?)"
	}
}

// CodeFlags is a monotonic bitset: once set, a flag remains set for the
// code's lifetime, except where the pipeline explicitly adds a later one
// (IsPreProcessed/IsPostProcessed/InternallyProcessed/ResolvedByInterceptor
// are all only ever added by the pipeline, never cleared).
type CodeFlags uint16

const (
	// Asynchronous marks a fire-and-forget code: the caller receives no result.
	Asynchronous CodeFlags = 1 << iota
	// IsFromMacro marks a code emitted while running inside a macro file.
	IsFromMacro
	// IsPrioritized forces the Prioritized scheduling class.
	IsPrioritized
	// Unbuffered forbids pipelining: the start-lock is held until the
	// firmware reply arrives.
	Unbuffered
	// IsPreProcessed marks that the Pre interception round has already run.
	IsPreProcessed
	// IsPostProcessed marks that the Post interception round has already run.
	IsPostProcessed
	// InternallyProcessed marks that the firmware dispatcher was never
	// invoked for this code: it was fully resolved locally.
	InternallyProcessed
	// ResolvedByInterceptor marks that an interceptor supplied the result.
	ResolvedByInterceptor
)

// Has reports whether every bit in want is set.
func (f CodeFlags) Has(want CodeFlags) bool { return f&want == want }

// Set returns f with every bit in add set.
func (f CodeFlags) Set(add CodeFlags) CodeFlags { return f | add }

// CodeType is the lexical class of a parsed code.
type CodeType uint8

const (
	GCode CodeType = iota
	MCode
	TCode
	Comment
	KeywordCode
)

func (t CodeType) String() string {
	switch t {
	case GCode:
		return "GCode"
	case MCode:
		return "MCode"
	case TCode:
		return "TCode"
	case Comment:
		return "Comment"
	case KeywordCode:
		return "Keyword"
	default:
		return "CodeType(?)"
	}
}

// Keyword identifies a meta-GCode control-flow or scripting keyword.
type Keyword uint8

const (
	KeywordNone Keyword = iota
	KeywordEcho
	KeywordIf
	KeywordElif
	KeywordElse
	KeywordWhile
	KeywordBreak
	KeywordContinue
	KeywordVar
	KeywordSet
	KeywordAbort
)

var keywordNames = map[string]Keyword{
	"echo":     KeywordEcho,
	"if":       KeywordIf,
	"elif":     KeywordElif,
	"else":     KeywordElse,
	"while":    KeywordWhile,
	"break":    KeywordBreak,
	"continue": KeywordContinue,
	"var":      KeywordVar,
	"set":      KeywordSet,
	"abort":    KeywordAbort,
}

func (k Keyword) String() string {
	for s, kw := range keywordNames {
		if kw == k {
			return s
		}
	}
	return "none"
}

// MacroHandle is an index into the macro runtime's arena of executing
// macros, per the cyclic-reference design note: codes carry the index, not
// a direct owning pointer to the Macro.
type MacroHandle int32

// NoMacro is the zero/absent MacroHandle.
const NoMacro MacroHandle = -1

// MessageType classifies a single line of a CodeResult.
type MessageType uint8

const (
	Success MessageType = iota
	Warning
	Error
)

func (t MessageType) String() string {
	switch t {
	case Success:
		return "Success"
	case Warning:
		return "Warning"
	case Error:
		return "Error"
	default:
		return "MessageType(?)"
	}
}

// Message is one line of a CodeResult.
type Message struct {
	Type    MessageType
	Content string
}

// CodeResult is an ordered list of messages produced by executing a code.
// A *CodeResult that is non-nil but has zero Messages is "empty" and is
// distinguishable from a nil *CodeResult, which means "no content produced".
type CodeResult struct {
	Messages []Message
}

// NewResult builds a CodeResult from the given messages (may be empty).
func NewResult(messages ...Message) *CodeResult {
	return &CodeResult{Messages: messages}
}

// Add appends a message and returns the receiver, for chaining.
func (r *CodeResult) Add(t MessageType, content string) *CodeResult {
	r.Messages = append(r.Messages, Message{Type: t, Content: content})
	return r
}

// IsSuccessful reports whether no message is of type Error.
func (r *CodeResult) IsSuccessful() bool {
	if r == nil {
		return true
	}
	for _, m := range r.Messages {
		if m.Type == Error {
			return false
		}
	}
	return true
}

// Parameter is a single letter/value pair (or, if Letter is zero, an
// unnamed parameter) parsed from a code. Typed accessors are lazy: the raw
// text is only interpreted when one of Bool/Int/Float/Vector is called.
type Parameter struct {
	// Letter is the parameter letter, uppercased, or 0 for an unnamed
	// parameter (a value that does not start with a letter, e.g. the
	// quoted message text of M117 "Hello"). A bare value that starts with a
	// letter always has that letter taken as its parameter letter.
	Letter byte
	// Raw is the decoded value: for a quoted string, `""` has already been
	// collapsed to a literal `"` and the surrounding quotes stripped; for a
	// bareword, it is the untouched run of non-whitespace characters.
	Raw string
	// Quoted records whether the source used `"..."` quoting.
	Quoted bool
}

// Unnamed reports whether this is an unnamed (letter-less) parameter.
func (p Parameter) Unnamed() bool { return p.Letter == 0 }

// Code is a parsed G/M/T-code, keyword, or comment, owned by the task
// executing it. Scheduler locks reference it only by (channel, class); no
// other component stores a direct pointer to a Code once it has finished.
type Code struct {
	Source  string
	Channel channel.Channel
	Flags   CodeFlags
	Type    CodeType

	Major *int32
	Minor *int32

	Parameters []Parameter
	Comment    *string

	FilePosition *uint64
	LineNumber   *uint64

	Macro  MacroHandle
	Result *CodeResult

	Keyword         Keyword
	KeywordArgument string
}

// Param returns the first parameter with the given letter (case-sensitive,
// always uppercase by construction) and whether it was found.
func (c *Code) Param(letter byte) (Parameter, bool) {
	for _, p := range c.Parameters {
		if p.Letter == letter {
			return p, true
		}
	}
	return Parameter{}, false
}

// Unnamed returns the first unnamed parameter, if present.
func (c *Code) Unnamed() (Parameter, bool) {
	return c.Param(0)
}

// ShortForm renders the `<Type><Major>(.<Minor>)?` form used when
// prefixing error messages (§6).
func (c *Code) ShortForm() string {
	if c.Type == Comment || c.Type == KeywordCode {
		return c.Keyword.String()
	}
	var t byte
	switch c.Type {
	case GCode:
		t = 'G'
	case MCode:
		t = 'M'
	case TCode:
		t = 'T'
	}
	major := int32(0)
	if c.Major != nil {
		major = *c.Major
	}
	s := string(t) + itoa(major)
	if c.Minor != nil {
		s += "." + itoa(*c.Minor)
	}
	return s
}

func itoa(v int32) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [12]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
