package device

import (
	"log"

	"github.com/ezrec/nspemu/irq"
	"github.com/ezrec/nspemu/snapshot"
)

const (
	PMU_RESET_CLOCKS = 0x0f1002 // Clock configuration after reset.
	PMU_COMMIT       = 0x04     // Written to 0x0c to apply clocks_load.
	PMU_ON_KEY       = 0x10     // Status bit cleared while the ON key is down.
	PMU_ADC_DISABLE  = 0x10     // Disable2 bit that powers off the ADC.
)

// PmuState is the snapshot state of the power management unit.
type PmuState struct {
	ClocksLoad   uint32 // Pending clock configuration.
	WakeMask     uint32 // Wake up sources.
	Disable      uint32 // Disabled peripheral clocks.
	Disable2     uint32 // More disabled peripheral clocks.
	Clocks       uint32 // Active clock configuration.
	OnIrqEnabled bool   // The ON key raises the power interrupt.
}

// Pmu is the power management unit: clock configuration, peripheral
// power gating and the ON key.
type Pmu struct {
	Base
	PmuState
	OnClocks func(cpuHz, ahbHz uint32) // Called when the clock rates change.

	onKey bool   // ON key is pressed.
	cpuHz uint32 // Derived CPU clock.
	ahbHz uint32 // Derived bus clock.
}

var _ Stateful = (*Pmu)(nil)

// Reset the PMU.
func (pmu *Pmu) Reset() {
	pmu.PmuState = PmuState{
		ClocksLoad: PMU_RESET_CLOCKS,
		Clocks:     PMU_RESET_CLOCKS,
	}
	pmu.Refresh()
}

// Refresh recomputes the clock rates and the power line.
func (pmu *Pmu) Refresh() {
	base := uint32(27000000)
	if pmu.Clocks&0x100 == 0 {
		base = 300000000 - 6000000*(pmu.Clocks>>16&0x1f)
	}
	cpudiv := pmu.Clocks & 0xfe
	if cpudiv == 0 {
		cpudiv = 2
	}
	ahbdiv := pmu.Clocks>>12&7 + 1

	cpuHz := base / cpudiv
	ahbHz := cpuHz / ahbdiv
	if cpuHz != pmu.cpuHz || ahbHz != pmu.ahbHz {
		pmu.cpuHz, pmu.ahbHz = cpuHz, ahbHz
		if pmu.Verbose {
			log.Printf("pmu: cpu %d Hz, ahb %d Hz", cpuHz, ahbHz)
		}
		if pmu.OnClocks != nil {
			pmu.OnClocks(cpuHz, ahbHz)
		}
	}

	pmu.setLine(irq.LINE_POWER, pmu.OnIrqEnabled && pmu.onKey)
}

// Rates returns the CPU and bus clock rates.
func (pmu *Pmu) Rates() (cpuHz uint32, ahbHz uint32) {
	return pmu.cpuHz, pmu.ahbHz
}

// OnKey reports the host ON key state.
func (pmu *Pmu) OnKey(pressed bool) {
	pmu.onKey = pressed
	pmu.Refresh()
}

// AdcDisabled reports whether the ADC is powered off.
func (pmu *Pmu) AdcDisabled() bool {
	return pmu.Disable2&PMU_ADC_DISABLE != 0
}

// Read a PMU register.
func (pmu *Pmu) Read(addr uint32) (value uint32) {
	switch addr & 0xff {
	case 0x00:
		value = pmu.ClocksLoad
	case 0x04:
		value = pmu.WakeMask
	case 0x08:
		value = 0x2000
	case 0x0c, 0x14:
	case 0x10:
		if pmu.OnIrqEnabled {
			value = 1
		}
	case 0x18:
		value = pmu.Disable
	case 0x20:
		value = pmu.Disable2
	case 0x24:
		value = pmu.Clocks
	case 0x28:
		value = 0x114
		if pmu.onKey {
			value &^= PMU_ON_KEY
		}
	default:
		pmu.badRead("pmu", addr)
	}
	return
}

// Write a PMU register.
func (pmu *Pmu) Write(addr uint32, value uint32) {
	switch addr & 0xff {
	case 0x00:
		pmu.ClocksLoad = value
		return
	case 0x04:
		pmu.WakeMask = value & 0x1ffffff
		return
	case 0x08, 0x14:
		return
	case 0x0c:
		if value&PMU_COMMIT != 0 {
			pmu.Clocks = pmu.ClocksLoad
		}
	case 0x10:
		pmu.OnIrqEnabled = value&1 != 0
	case 0x18:
		pmu.Disable = value
	case 0x20:
		pmu.Disable2 = value
	default:
		pmu.badWrite("pmu", addr, value)
		return
	}
	pmu.Refresh()
}

// Suspend saves the PMU state.
func (pmu *Pmu) Suspend(snap *snapshot.Snapshot) error {
	return snapshot.Save(snap, "pmu", &pmu.PmuState)
}

// Resume restores the PMU state.
func (pmu *Pmu) Resume(snap *snapshot.Snapshot) (err error) {
	err = snapshot.Load(snap, "pmu", &pmu.PmuState)
	if err != nil {
		return
	}
	pmu.Refresh()
	return
}
