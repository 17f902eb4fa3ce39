package printer

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"os/exec"
	"strings"

	"go-pos/pkg/config"
)

// StaticScanner reports a fixed device list, typically the paired printers from config.
type StaticScanner []Device

func (s StaticScanner) Scan(context.Context) ([]Device, error) {
	return append([]Device(nil), s...), nil
}

// BluetoothctlScanner lists paired devices through BlueZ's bluetoothctl.
type BluetoothctlScanner struct {
	Bin string
}

func (b BluetoothctlScanner) Scan(ctx context.Context) ([]Device, error) {
	bin := b.Bin
	if bin == "" {
		bin = "bluetoothctl"
	}
	out, err := exec.CommandContext(ctx, bin, "devices", "Paired").Output()
	if err != nil {
		return nil, fmt.Errorf("%s devices: %w", bin, err)
	}
	return ParseBluetoothctl(out), nil
}

// ParseBluetoothctl reads lines of the form "Device AA:BB:CC:DD:EE:FF Printer Name".
func ParseBluetoothctl(out []byte) []Device {
	var devices []Device
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 2 || fields[0] != "Device" {
			continue
		}
		if _, err := ParseBDAddr(fields[1]); err != nil {
			continue
		}
		devices = append(devices, Device{Address: fields[1], Name: strings.Join(fields[2:], " ")})
	}
	return devices
}

// ParseBDAddr parses a Bluetooth device address into the little-endian byte order the
// kernel expects in sockaddr_rc.
func ParseBDAddr(s string) ([6]uint8, error) {
	var addr [6]uint8
	hw, err := net.ParseMAC(s)
	if err != nil || len(hw) != 6 {
		return addr, fmt.Errorf("invalid bluetooth address %q", s)
	}
	for i := 0; i < 6; i++ {
		addr[i] = hw[5-i]
	}
	return addr, nil
}

// TCPDialer reaches network ESC/POS printers (usually port 9100); Device.Address is host:port.
func TCPDialer() Dialer {
	return func(ctx context.Context, d Device) (io.WriteCloser, error) {
		var nd net.Dialer
		return nd.DialContext(ctx, "tcp", d.Address)
	}
}

// NewFromConfig builds the ESC/POS transport described by cfg.
func NewFromConfig(cfg config.PrinterConfig) (*ESCPOS, error) {
	var scanner Scanner
	switch cfg.Scanner {
	case "", "static":
		devices := make(StaticScanner, 0, len(cfg.Devices))
		for _, d := range cfg.Devices {
			devices = append(devices, Device{Name: d.Name, Address: d.Address})
		}
		scanner = devices
	case "bluetoothctl":
		scanner = BluetoothctlScanner{}
	default:
		return nil, fmt.Errorf("unknown printer scanner %q", cfg.Scanner)
	}

	var dial Dialer
	switch cfg.Transport {
	case "", "rfcomm":
		dial = RFCOMMDialer(cfg.Channel)
	case "tcp":
		dial = TCPDialer()
	default:
		return nil, fmt.Errorf("unknown printer transport %q", cfg.Transport)
	}

	var opts []ESCPOSOption
	if !cfg.CutPaper {
		opts = append(opts, WithoutCut())
	}
	return NewESCPOS(dial, scanner, cfg.Family, opts...), nil
}
