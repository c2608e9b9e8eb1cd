package device

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/nspemu/irq"
)

func TestUart(t *testing.T) {
	assert := assert.New(t)

	l := lines{}
	out := &bytes.Buffer{}
	u := &Uart{Base: Base{Irq: l}, Output: out}
	u.Reset()

	assert.Equal(uint32(1), u.Read(0x08), "no interrupt")
	assert.Equal(uint32(0x60), u.Read(0x14))
	assert.True(u.RxReady())

	// Receive, with the interrupt enabled.
	u.Write(0x04, 0xff)
	assert.Equal(uint32(0x0f), u.Read(0x04))
	u.ByteIn('A')
	assert.False(u.RxReady())
	assert.True(l[irq.LINE_SERIAL])
	assert.Equal(uint32(0x61), u.Read(0x14))
	assert.Equal(uint32(4), u.Read(0x08))
	assert.Equal(uint32('A'), u.Read(0x00))
	assert.True(u.RxReady())
	assert.False(l[irq.LINE_SERIAL])

	// Transmit raises THRE until IIR is read.
	u.Write(0x00, 'z')
	assert.Equal("z", out.String())
	assert.True(l[irq.LINE_SERIAL])
	assert.Equal(uint32(2), u.Read(0x08))
	assert.Equal(uint32(1), u.Read(0x08))
	assert.False(l[irq.LINE_SERIAL])

	// Divisor latch.
	u.Write(0x0c, UART_LCR_DLAB|3)
	u.Write(0x00, 0x34)
	u.Write(0x04, 0x12)
	assert.Equal(uint32(0x34), u.Read(0x00))
	assert.Equal(uint32(0x12), u.Read(0x04))
	assert.Equal("z", out.String())
	u.Write(0x0c, 3)
	assert.Equal(uint32(0x0f), u.Read(0x04))
}

func TestUartCx(t *testing.T) {
	assert := assert.New(t)

	l := lines{}
	out := &bytes.Buffer{}
	u := &UartCx{Base: Base{Irq: l}, Output: out}
	u.Reset()

	assert.Equal(uint32(PL011_FR_TXFE|PL011_FR_RXFE), u.Read(0x18))

	u.ByteIn(0x42)
	assert.False(u.RxReady())
	assert.Equal(uint32(PL011_FR_TXFE|PL011_FR_RXFF), u.Read(0x18))
	assert.Equal(uint32(PL011_INT_RX), u.Read(0x3c))
	assert.Equal(uint32(0), u.Read(0x40))
	assert.False(l[irq.LINE_SERIAL])

	u.Write(0x38, 0xffff)
	assert.Equal(uint32(0x7ff), u.Read(0x38))
	assert.True(l[irq.LINE_SERIAL])

	assert.Equal(uint32(0x42), u.Read(0x00))
	assert.True(u.RxReady())
	assert.False(l[irq.LINE_SERIAL])

	u.Write(0x00, 'x')
	assert.Equal("x", out.String())
	assert.Equal(uint32(PL011_INT_TX), u.Read(0x40))
	u.Write(0x44, PL011_INT_TX)
	assert.Equal(uint32(0), u.Read(0x3c))

	u.Write(0x30, 0x301)
	assert.Equal(uint32(0x301), u.Read(0x30))
}
