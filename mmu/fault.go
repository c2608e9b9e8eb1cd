package mmu

// FaultKind classifies a translation fault.
type FaultKind int

//go:generate go tool stringer -linecomment -type=FaultKind
const (
	FAULT_TRANSLATION = FaultKind(iota) // translation
	FAULT_DOMAIN                        // domain
	FAULT_PERMISSION                    // permission
	FAULT_EXTERNAL                      // external
)

// Fault status codes, the low nibble of the fault status register.
const (
	STATUS_EXTERNAL_L1         = 0xc // External abort fetching a first level descriptor.
	STATUS_EXTERNAL_L2         = 0xe // External abort fetching a second level descriptor.
	STATUS_TRANSLATION_SECTION = 0x5
	STATUS_TRANSLATION_PAGE    = 0x7
	STATUS_DOMAIN_SECTION      = 0x9
	STATUS_DOMAIN_PAGE         = 0xb
	STATUS_PERMISSION_SECTION  = 0xd
	STATUS_PERMISSION_PAGE     = 0xf
)

// Fault is a failed translation, reported to the CPU core as a data or
// prefetch abort.
type Fault struct {
	Addr     uint32    // Faulting virtual address (FAR).
	Status   uint32    // Fault status (FSR): domain << 4 | code.
	Kind     FaultKind // Fault classification.
	Write    bool      // Fault occurred on a write.
	Prefetch bool      // Fault occurred on an instruction fetch.
}

func faultKind(status uint32) (kind FaultKind) {
	switch status & 0xf {
	case STATUS_TRANSLATION_SECTION, STATUS_TRANSLATION_PAGE:
		kind = FAULT_TRANSLATION
	case STATUS_DOMAIN_SECTION, STATUS_DOMAIN_PAGE:
		kind = FAULT_DOMAIN
	case STATUS_PERMISSION_SECTION, STATUS_PERMISSION_PAGE:
		kind = FAULT_PERMISSION
	default:
		kind = FAULT_EXTERNAL
	}
	return
}

// Domain returns the domain recorded in the status.
func (fault *Fault) Domain() uint32 {
	return fault.Status >> 4 & 0xf
}

func (fault *Fault) Error() string {
	what := "data"
	if fault.Prefetch {
		what = "prefetch"
	}
	return f("%v abort: %v fault at 0x%08x (status 0x%02x)", what, fault.Kind, fault.Addr, fault.Status)
}

func (fault *Fault) Unwrap() error {
	switch fault.Kind {
	case FAULT_TRANSLATION:
		return ErrTranslation
	case FAULT_DOMAIN:
		return ErrDomain
	case FAULT_PERMISSION:
		return ErrPermission
	}
	return ErrExternal
}
