package printer

import (
	"context"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// ESC/POS command bytes.
var (
	cmdInit       = []byte{0x1B, 0x40}
	cmdAlign      = []byte{0x1B, 0x61}
	cmdBold       = []byte{0x1B, 0x45}
	cmdSize       = []byte{0x1D, 0x21}
	cmdPartialCut = []byte{0x1D, 0x56, 0x42, 0x00}
)

// Dialer opens the byte stream to a device.
type Dialer func(ctx context.Context, d Device) (io.WriteCloser, error)

// ESCPOS speaks the ESC/POS command set over whatever stream the Dialer returns.
type ESCPOS struct {
	dial    Dialer
	scanner Scanner
	family  string
	canCut  bool
	conn    io.WriteCloser
	enc     *encoding.Encoder
}

type ESCPOSOption func(*ESCPOS)

// WithoutCut marks the printer as having no cutter; Cut then returns ErrCutUnsupported.
func WithoutCut() ESCPOSOption { return func(p *ESCPOS) { p.canCut = false } }

func NewESCPOS(dial Dialer, scanner Scanner, family string, opts ...ESCPOSOption) *ESCPOS {
	p := &ESCPOS{
		dial:    dial,
		scanner: scanner,
		family:  family,
		canCut:  true,
		// printers boot into code page 437
		enc: encoding.ReplaceUnsupported(charmap.CodePage437.NewEncoder()),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *ESCPOS) Connect(ctx context.Context, d Device) error {
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
	conn, err := p.dial(ctx, d)
	if err != nil {
		return fmt.Errorf("connecting to %s (%s): %w", d.Name, d.Address, err)
	}
	p.conn = conn
	return nil
}

func (p *ESCPOS) Disconnect() error {
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn = nil
	return err
}

func (p *ESCPOS) write(chunks ...[]byte) error {
	if p.conn == nil {
		return ErrNotConnected
	}
	for _, c := range chunks {
		if _, err := p.conn.Write(c); err != nil {
			return err
		}
	}
	return nil
}

func (p *ESCPOS) Initialize() error { return p.write(cmdInit) }

func (p *ESCPOS) SetAlignment(a Align) error {
	return p.write(cmdAlign, []byte{byte(a)})
}

func (p *ESCPOS) PrintText(text string, st Style) error {
	encoded, err := p.enc.String(strings.TrimRight(text, "\n"))
	if err != nil {
		return fmt.Errorf("encoding text: %w", err)
	}
	var chunks [][]byte
	if st.Bold {
		chunks = append(chunks, cmdBold, []byte{1})
	}
	if st.DoubleSize {
		chunks = append(chunks, cmdSize, []byte{0x11})
	}
	chunks = append(chunks, []byte(encoded), []byte{'\n'})
	if st.DoubleSize {
		chunks = append(chunks, cmdSize, []byte{0x00})
	}
	if st.Bold {
		chunks = append(chunks, cmdBold, []byte{0})
	}
	return p.write(chunks...)
}

func (p *ESCPOS) Cut() error {
	if !p.canCut {
		return ErrCutUnsupported
	}
	return p.write(cmdPartialCut)
}

func (p *ESCPOS) Discover(ctx context.Context) ([]Device, error) {
	if p.scanner == nil {
		return nil, nil
	}
	all, err := p.scanner.Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("scanning for printers: %w", err)
	}
	return FilterFamily(all, p.family), nil
}
