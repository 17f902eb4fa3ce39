//go:build !linux

package printer

import (
	"context"
	"errors"
	"io"
)

// RFCOMMDialer needs BlueZ sockets; other platforms should use the tcp transport.
func RFCOMMDialer(int) Dialer {
	return func(context.Context, Device) (io.WriteCloser, error) {
		return nil, errors.New("rfcomm transport is only supported on linux")
	}
}
