package device

import (
	"github.com/ezrec/nspemu/bus"
	"github.com/ezrec/nspemu/irq"
	"github.com/ezrec/nspemu/snapshot"
)

const (
	ADC_CHANNELS = 7     // Conversion channels.
	ADC_OFF      = 0x3ff // Sample value while powered off.
)

// AdcChannel is one conversion channel.
type AdcChannel struct {
	Unknown uint32
	Count   uint32 // Conversion count.
	Address uint32 // DMA address.
	Value   uint16 // Last sample.
	Speed   uint16 // Conversion speed.
}

// AdcState is the snapshot state of the ADC.
type AdcState struct {
	IntStatus uint32
	IntMask   uint32
	Channel   [ADC_CHANNELS]AdcChannel
}

// Adc is the analog to digital converter measuring battery and keypad
// voltages.
type Adc struct {
	Base
	AdcState
	Pmu    *Pmu               // Power gating, may be nil.
	Sample func(n int) uint16 // Host input per channel, DefaultSample if nil.
}

var _ Stateful = (*Adc)(nil)

// DefaultSample returns plausible readings: a charged battery on channel
// 3 and mid scale elsewhere.
func DefaultSample(n int) uint16 {
	if n == 3 {
		return 0x2f0
	}
	return 0x200
}

// Reset the ADC.
func (adc *Adc) Reset() {
	adc.AdcState = AdcState{}
	adc.Refresh()
}

// Refresh recomputes the interrupt line.
func (adc *Adc) Refresh() {
	adc.setLine(irq.LINE_ADC, adc.IntStatus&adc.IntMask != 0)
}

// sample converts channel n.
func (adc *Adc) sample(n int) uint16 {
	if adc.Pmu != nil && adc.Pmu.AdcDisabled() {
		return ADC_OFF
	}
	if adc.Sample != nil {
		return adc.Sample(n) & 0x3ff
	}
	return DefaultSample(n)
}

// Read an ADC register.
func (adc *Adc) Read(addr uint32) (value uint32) {
	addr &= 0xfff
	switch {
	case addr == 0x00:
		value = adc.IntStatus & adc.IntMask
	case addr == 0x04:
		value = adc.IntStatus
	case addr == 0x08:
		value = adc.IntMask
	case addr >= 0x100 && addr < 0x100+ADC_CHANNELS*0x20:
		ch := &adc.Channel[(addr-0x100)>>5]
		switch addr & 0x1f {
		case 0x00:
		case 0x04:
			value = ch.Unknown
		case 0x08:
			value = ch.Count
		case 0x0c:
			value = ch.Address
		case 0x10:
			value = uint32(ch.Value)
		case 0x14:
			value = uint32(ch.Speed)
		default:
			adc.badRead("adc", addr)
		}
	default:
		adc.badRead("adc", addr)
	}
	return
}

// Write an ADC register.
func (adc *Adc) Write(addr uint32, value uint32) {
	addr &= 0xfff
	switch {
	case addr == 0x04:
		adc.IntStatus &^= value
	case addr == 0x08:
		adc.IntMask = value & 0xfffffff
	case addr >= 0x100 && addr < 0x100+ADC_CHANNELS*0x20:
		n := int(addr-0x100) >> 5
		ch := &adc.Channel[n]
		switch addr & 0x1f {
		case 0x00:
			// Conversions complete instantly.
			ch.Value = adc.sample(n)
			adc.IntStatus |= 3 << (4 * n)
		case 0x04:
			ch.Unknown = value
			return
		case 0x08:
			ch.Count = value & 0xffffff
			return
		case 0x0c:
			ch.Address = value &^ 3
			return
		case 0x10:
			return
		case 0x14:
			ch.Speed = uint16(value & 0x3ff)
			return
		default:
			adc.badWrite("adc", addr, value)
			return
		}
	default:
		adc.badWrite("adc", addr, value)
		return
	}
	adc.Refresh()
}

// Cx2 returns the register window of the CX II ADC, which reads the
// channels directly.
func (adc *Adc) Cx2() bus.Device {
	return &adcCx2{adc: adc}
}

type adcCx2 struct {
	adc *Adc
}

// Read a CX II ADC register: status at 0x00, samples at 0x10 + 4n.
func (port *adcCx2) Read(addr uint32) (value uint32) {
	addr &= 0xfff
	switch {
	case addr == 0x00:
		value = port.adc.IntStatus
	case addr >= 0x10 && addr < 0x10+ADC_CHANNELS*4:
		n := int(addr-0x10) >> 2
		port.adc.Channel[n].Value = port.adc.sample(n)
		value = uint32(port.adc.Channel[n].Value)
	default:
		port.adc.badRead("adc-cx2", addr)
	}
	return
}

// Write a CX II ADC register.
func (port *adcCx2) Write(addr uint32, value uint32) {
	switch addr & 0xfff {
	case 0x00:
		port.adc.IntStatus &^= value
		port.adc.Refresh()
	default:
		port.adc.badWrite("adc-cx2", addr, value)
	}
}

// Suspend saves the ADC state.
func (adc *Adc) Suspend(snap *snapshot.Snapshot) error {
	return snapshot.Save(snap, "adc", &adc.AdcState)
}

// Resume restores the ADC state.
func (adc *Adc) Resume(snap *snapshot.Snapshot) (err error) {
	err = snapshot.Load(snap, "adc", &adc.AdcState)
	if err != nil {
		return
	}
	adc.Refresh()
	return
}
