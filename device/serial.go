package device

import (
	"io"

	"github.com/ezrec/nspemu/irq"
	"github.com/ezrec/nspemu/snapshot"
)

// Serial is a UART that accepts host input.
type Serial interface {
	Stateful
	ByteIn(b byte)
	RxReady() bool
}

// 16550 interrupt bits, as in the interrupt enable register.
const (
	UART_INT_RX   = 0x01 // Received data available.
	UART_INT_THRE = 0x02 // Transmit holding register empty.

	UART_LCR_DLAB = 0x80 // Divisor latch access.
)

// SerialState is the snapshot state of the 16550 UART.
type SerialState struct {
	RxChar     uint8 // Received character.
	Interrupts uint8 // Pending interrupts.
	DLL        uint8 // Divisor latch, low.
	DLM        uint8 // Divisor latch, high.
	IER        uint8 // Interrupt enable.
	LCR        uint8 // Line control.
}

// Uart is the 16550 compatible UART of the classic models.
type Uart struct {
	Base
	SerialState
	Output io.Writer // Transmitted characters, may be nil.
}

var _ Serial = (*Uart)(nil)

// Reset the UART.
func (u *Uart) Reset() {
	u.SerialState = SerialState{}
	u.Refresh()
}

// Refresh recomputes the interrupt line.
func (u *Uart) Refresh() {
	u.setLine(irq.LINE_SERIAL, u.Interrupts&u.IER != 0)
}

// ByteIn receives a character from the host.
func (u *Uart) ByteIn(b byte) {
	u.RxChar = b
	u.Interrupts |= UART_INT_RX
	u.Refresh()
}

// RxReady reports whether the receive register is free.
func (u *Uart) RxReady() bool {
	return u.Interrupts&UART_INT_RX == 0
}

// Read a UART register.
func (u *Uart) Read(addr uint32) (value uint32) {
	switch addr & 0x3f {
	case 0x00:
		if u.LCR&UART_LCR_DLAB != 0 {
			value = uint32(u.DLL)
			return
		}
		value = uint32(u.RxChar)
		u.Interrupts &^= UART_INT_RX
		u.Refresh()
	case 0x04:
		if u.LCR&UART_LCR_DLAB != 0 {
			value = uint32(u.DLM)
			return
		}
		value = uint32(u.IER)
	case 0x08:
		pending := u.Interrupts & u.IER
		switch {
		case pending&UART_INT_RX != 0:
			value = 4
		case pending&UART_INT_THRE != 0:
			value = 2
			u.Interrupts &^= UART_INT_THRE
			u.Refresh()
		default:
			value = 1
		}
	case 0x0c:
		value = uint32(u.LCR)
	case 0x14:
		value = 0x60
		if u.Interrupts&UART_INT_RX != 0 {
			value |= 1
		}
	case 0x10, 0x18, 0x1c:
	default:
		u.badRead("serial", addr)
	}
	return
}

// Write a UART register.
func (u *Uart) Write(addr uint32, value uint32) {
	switch addr & 0x3f {
	case 0x00:
		if u.LCR&UART_LCR_DLAB != 0 {
			u.DLL = uint8(value)
			return
		}
		if u.Output != nil {
			_, _ = u.Output.Write([]byte{byte(value)})
		}
		u.Interrupts |= UART_INT_THRE
	case 0x04:
		if u.LCR&UART_LCR_DLAB != 0 {
			u.DLM = uint8(value)
			return
		}
		u.IER = uint8(value & 0x0f)
	case 0x0c:
		u.LCR = uint8(value)
	case 0x08, 0x10, 0x1c:
		// FIFO control, modem control and scratch are ignored.
		return
	default:
		u.badWrite("serial", addr, value)
		return
	}
	u.Refresh()
}

// Suspend saves the UART state.
func (u *Uart) Suspend(snap *snapshot.Snapshot) error {
	return snapshot.Save(snap, "serial", &u.SerialState)
}

// Resume restores the UART state.
func (u *Uart) Resume(snap *snapshot.Snapshot) (err error) {
	err = snapshot.Load(snap, "serial", &u.SerialState)
	if err != nil {
		return
	}
	u.Refresh()
	return
}

// PL011 interrupt and flag bits.
const (
	PL011_INT_RX = 0x10 // Receive interrupt.
	PL011_INT_TX = 0x20 // Transmit interrupt.

	PL011_FR_RXFE = 0x10 // Receive FIFO empty.
	PL011_FR_RXFF = 0x40 // Receive FIFO full.
	PL011_FR_TXFE = 0x80 // Transmit FIFO empty.
)

var pl011ID = [8]uint8{0x11, 0x10, 0x34, 0x00, 0x0d, 0xf0, 0x05, 0xb1}

// SerialCxState is the snapshot state of the PL011 UART.
type SerialCxState struct {
	RxChar    uint8  // Received character.
	Rx        uint8  // A character was received.
	CR        uint32 // Control register.
	IntStatus uint16 // Raw interrupt status.
	IntMask   uint16 // Interrupt mask.
}

// UartCx is the PL011 UART of the CX models.
type UartCx struct {
	Base
	SerialCxState
	Output io.Writer // Transmitted characters, may be nil.
}

var _ Serial = (*UartCx)(nil)

// Reset the UART.
func (u *UartCx) Reset() {
	u.SerialCxState = SerialCxState{}
	u.Refresh()
}

// Refresh recomputes the interrupt line.
func (u *UartCx) Refresh() {
	u.setLine(irq.LINE_SERIAL, u.IntStatus&u.IntMask != 0)
}

// ByteIn receives a character from the host.
func (u *UartCx) ByteIn(b byte) {
	u.RxChar = b
	u.Rx = 1
	u.IntStatus |= PL011_INT_RX
	u.Refresh()
}

// RxReady reports whether the receive register is free.
func (u *UartCx) RxReady() bool {
	return u.Rx == 0
}

// Read a UART register.
func (u *UartCx) Read(addr uint32) (value uint32) {
	addr &= 0xfff
	if isPrimeCellID(addr) {
		value = primeCellID(pl011ID, addr)
		return
	}

	switch addr {
	case 0x00:
		value = uint32(u.RxChar)
		u.Rx = 0
		u.IntStatus &^= PL011_INT_RX
		u.Refresh()
	case 0x04:
	case 0x18:
		value = PL011_FR_TXFE
		if u.Rx != 0 {
			value |= PL011_FR_RXFF
		} else {
			value |= PL011_FR_RXFE
		}
	case 0x30:
		value = u.CR
	case 0x38:
		value = uint32(u.IntMask)
	case 0x3c:
		value = uint32(u.IntStatus)
	case 0x40:
		value = uint32(u.IntStatus & u.IntMask)
	case 0x24, 0x28, 0x2c, 0x34:
	default:
		u.badRead("serial-cx", addr)
	}
	return
}

// Write a UART register.
func (u *UartCx) Write(addr uint32, value uint32) {
	switch addr & 0xfff {
	case 0x00:
		if u.Output != nil {
			_, _ = u.Output.Write([]byte{byte(value)})
		}
		u.IntStatus |= PL011_INT_TX
	case 0x04:
		return
	case 0x30:
		u.CR = value
		return
	case 0x38:
		u.IntMask = uint16(value & 0x7ff)
	case 0x44:
		u.IntStatus &^= uint16(value)
	case 0x24, 0x28, 0x2c, 0x34:
		// Baud rate, line control and FIFO level are ignored.
		return
	default:
		u.badWrite("serial-cx", addr, value)
		return
	}
	u.Refresh()
}

// Suspend saves the UART state.
func (u *UartCx) Suspend(snap *snapshot.Snapshot) error {
	return snapshot.Save(snap, "serial-cx", &u.SerialCxState)
}

// Resume restores the UART state.
func (u *UartCx) Resume(snap *snapshot.Snapshot) (err error) {
	err = snapshot.Load(snap, "serial-cx", &u.SerialCxState)
	if err != nil {
		return
	}
	u.Refresh()
	return
}
