package io

import (
	"io"
	"log"
)

//go:generate go tool stringer -linecomment -type XmodemState

// XMODEM control bytes.
const (
	XMODEM_SOH = 0x01 // Start of a 128 byte block.
	XMODEM_EOT = 0x04 // End of transmission.
	XMODEM_ACK = 0x06 // Block accepted.
	XMODEM_NAK = 0x15 // Block rejected, or checksum mode start.
	XMODEM_CAN = 0x18 // Cancel.
	XMODEM_CRC = 'C'  // CRC mode start.
	XMODEM_PAD = 0x1a // Padding for the final block.

	XMODEM_BLOCK   = 128 // Payload bytes per block.
	XMODEM_RETRIES = 10  // Rejections of one block before giving up.
)

// XmodemState is the progress of a transfer.
type XmodemState int

const (
	XMODEM_IDLE       = XmodemState(iota) // idle
	XMODEM_BLOCK_SENT                     // block
	XMODEM_EOT_SENT                       // eot
	XMODEM_DONE                           // done
	XMODEM_FAILED                         // failed
)

// Crc16 computes the CRC-16/XMODEM of data.
func Crc16(data []byte) (crc uint16) {
	for _, b := range data {
		crc ^= uint16(b) << 8
		for range 8 {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return
}

// Xmodem sends Data to an XMODEM receiver on the guest. Bytes the guest
// writes to its UART are fed to Write, and the frames to send are handed
// to Send as the guest asks for them.
type Xmodem struct {
	Verbose bool
	Data    []byte          // File to send.
	Send    func(byte) bool // Accepts a byte, false when the receiver is full.

	State   XmodemState // Transfer progress.
	Err     error       // Reason for XMODEM_FAILED.
	Block   uint8       // Sequence number of the block in flight.
	Offset  int         // Data offset of the block in flight.
	UseCrc  bool        // Receiver asked for CRC-16 instead of a checksum.
	Retries int         // Rejections of the block in flight.

	pending []byte
}

var _ io.Writer = (*Xmodem)(nil)

// Finished reports whether the transfer has ended, and how.
func (x *Xmodem) Finished() (done bool, err error) {
	switch x.State {
	case XMODEM_DONE:
		done = true
	case XMODEM_FAILED:
		done = true
		err = x.Err
	}
	return
}

// Write consumes receiver responses. It never fails, so it can be tapped
// onto the guest serial output alongside the console.
func (x *Xmodem) Write(data []byte) (n int, err error) {
	for _, b := range data {
		x.receive(b)
	}
	x.Pump()
	n = len(data)
	return
}

// Pump pushes queued frame bytes to Send until it refuses one.
func (x *Xmodem) Pump() {
	for len(x.pending) > 0 && x.Send(x.pending[0]) {
		x.pending = x.pending[1:]
	}
}

// Pending returns the number of bytes not yet accepted by Send.
func (x *Xmodem) Pending() int {
	return len(x.pending)
}

func (x *Xmodem) fail(err error) {
	if x.Verbose {
		log.Printf("xmodem: %v", err)
	}
	x.State = XMODEM_FAILED
	x.Err = err
	x.pending = nil
}

func (x *Xmodem) receive(b byte) {
	switch x.State {
	case XMODEM_IDLE:
		switch b {
		case XMODEM_CRC, XMODEM_NAK:
			if len(x.Data) == 0 {
				x.fail(ErrXmodemEmpty)
				return
			}
			x.UseCrc = b == XMODEM_CRC
			x.Block = 1
			x.Offset = 0
			x.sendBlock()
		}
	case XMODEM_BLOCK_SENT:
		switch b {
		case XMODEM_ACK:
			x.Offset += XMODEM_BLOCK
			x.Block++
			x.Retries = 0
			if x.Offset >= len(x.Data) {
				x.State = XMODEM_EOT_SENT
				x.pending = append(x.pending, XMODEM_EOT)
				return
			}
			x.sendBlock()
		case XMODEM_NAK, XMODEM_CRC:
			x.retry()
		case XMODEM_CAN:
			x.fail(ErrXmodemCancel)
		}
	case XMODEM_EOT_SENT:
		switch b {
		case XMODEM_ACK:
			if x.Verbose {
				log.Printf("xmodem: sent %d bytes", len(x.Data))
			}
			x.State = XMODEM_DONE
		case XMODEM_NAK:
			x.Retries++
			if x.Retries > XMODEM_RETRIES {
				x.fail(ErrXmodemRetries)
				return
			}
			x.pending = append(x.pending, XMODEM_EOT)
		case XMODEM_CAN:
			x.fail(ErrXmodemCancel)
		}
	}
}

func (x *Xmodem) retry() {
	x.Retries++
	if x.Retries > XMODEM_RETRIES {
		x.fail(ErrXmodemRetries)
		return
	}
	if x.Verbose {
		log.Printf("xmodem: resend block %d", x.Block)
	}
	x.pending = nil
	x.sendBlock()
}

// sendBlock queues the frame for the block at Offset.
func (x *Xmodem) sendBlock() {
	var payload [XMODEM_BLOCK]byte
	n := copy(payload[:], x.Data[x.Offset:])
	for i := n; i < XMODEM_BLOCK; i++ {
		payload[i] = XMODEM_PAD
	}

	frame := []byte{XMODEM_SOH, x.Block, ^x.Block}
	frame = append(frame, payload[:]...)
	if x.UseCrc {
		crc := Crc16(payload[:])
		frame = append(frame, byte(crc>>8), byte(crc))
	} else {
		var sum byte
		for _, b := range payload {
			sum += b
		}
		frame = append(frame, sum)
	}

	x.pending = append(x.pending, frame...)
	x.State = XMODEM_BLOCK_SENT
}
