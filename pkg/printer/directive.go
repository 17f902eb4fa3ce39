package printer

type Align int

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

func (a Align) String() string {
	switch a {
	case AlignCenter:
		return "center"
	case AlignRight:
		return "right"
	default:
		return "left"
	}
}

// Style carries the text hints a line printer understands.
type Style struct {
	Bold       bool `json:"bold,omitempty"`
	DoubleSize bool `json:"double_size,omitempty"`
}

type Op string

const (
	OpAlign Op = "align"
	OpText  Op = "text"
	OpFeed  Op = "feed"
	OpCut   Op = "cut"
)

// Directive is one printer instruction. Receipts are a flat list of them, independent of
// the transport that ends up printing them.
type Directive struct {
	Op    Op     `json:"op"`
	Text  string `json:"text,omitempty"`
	Align Align  `json:"align,omitempty"`
	Style Style  `json:"style"`
	Lines int    `json:"lines,omitempty"`
}

func SetAlign(a Align) Directive { return Directive{Op: OpAlign, Align: a} }

func Text(s string) Directive { return Directive{Op: OpText, Text: s} }

func StyledText(s string, st Style) Directive { return Directive{Op: OpText, Text: s, Style: st} }

func Feed(lines int) Directive { return Directive{Op: OpFeed, Lines: lines} }

func Cut() Directive { return Directive{Op: OpCut} }
