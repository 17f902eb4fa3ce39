//go:build linux

package printer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// RFCOMMDialer opens a Bluetooth-classic RFCOMM stream to Device.Address on the given channel.
func RFCOMMDialer(channel int) Dialer {
	if channel <= 0 {
		channel = 1
	}
	return func(ctx context.Context, d Device) (io.WriteCloser, error) {
		addr, err := ParseBDAddr(d.Address)
		if err != nil {
			return nil, err
		}
		fd, err := unix.Socket(unix.AF_BLUETOOTH, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, unix.BTPROTO_RFCOMM)
		if err != nil {
			return nil, fmt.Errorf("rfcomm socket: %w", err)
		}
		err = unix.Connect(fd, &unix.SockaddrRFCOMM{Addr: addr, Channel: uint8(channel)})
		if err != nil && !errors.Is(err, unix.EINPROGRESS) {
			_ = unix.Close(fd)
			return nil, fmt.Errorf("rfcomm connect: %w", err)
		}
		if err != nil {
			if err := waitWritable(ctx, fd); err != nil {
				_ = unix.Close(fd)
				return nil, err
			}
		}
		// non-blocking fds are handed to the runtime poller by os.NewFile
		return os.NewFile(uintptr(fd), "rfcomm:"+d.Address), nil
	}
}

func waitWritable(ctx context.Context, fd int) error {
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLOUT}}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := unix.Poll(fds, 200)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return fmt.Errorf("rfcomm poll: %w", err)
		}
		if n == 0 {
			continue
		}
		soErr, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
		if err != nil {
			return fmt.Errorf("rfcomm connect: %w", err)
		}
		if soErr != 0 {
			return fmt.Errorf("rfcomm connect: %w", syscall.Errno(soErr))
		}
		return nil
	}
}
