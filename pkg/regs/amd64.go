// Package regs holds the static amd64 register descriptor table consumed by
// the register access layer. Offsets locate each register inside the
// ptrace user area (struct user in sys/user.h).
//
// DWARF register numbers follow the System V ABI AMD64 Architecture
// Processor Supplement, figure 3.36.
package regs

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// RegisterType specifies the kind of a register.
type RegisterType uint8

const (
	GeneralPurpose RegisterType = iota
	SubRegister
	FloatingPoint
	Debug
)

// RegisterFormat specifies how the raw bytes of a register are interpreted.
type RegisterFormat uint8

const (
	UInt RegisterFormat = iota
	DoubleFloat
	LongDouble
	Vector
)

// RegisterInfo describes a single register.
type RegisterInfo struct {
	Name    string         // register name
	DwarfID int            // DWARF register number, -1 if none assigned
	Size    int            // size in bytes
	Offset  int            // byte offset into the ptrace user area
	Type    RegisterType   // general-purpose, sub-register, floating-point, debug
	Format  RegisterFormat // interpretation of the register data
}

// structure user layout on linux/amd64: user_regs_struct sits at offset 0,
// the fxsave area (user_fpregs_struct i387) at 224, u_debugreg at 848.
const (
	fpRegsBase   = 224
	debugRegBase = 848

	// field offsets within user_fpregs_struct (fxsave layout)
	offCwd       = 0
	offSwd       = 2
	offFtw       = 4
	offFop       = 6
	offFrip      = 8
	offFrdp      = 16
	offMxcsr     = 24
	offMxcsrMask = 28
	offStSpace   = 32
	offXmmSpace  = 160
)

// uregs is only used to compute user_regs_struct field offsets.
var uregs unix.PtraceRegs

func gpReg64(name string, dwarfID int, offset uintptr) RegisterInfo {
	return RegisterInfo{Name: name, DwarfID: dwarfID, Size: 8, Offset: int(offset), Type: GeneralPurpose, Format: UInt}
}

// subReg describes a 32/16/8-bit view of a 64-bit general-purpose register,
// sharing the parent's offset.
func subReg(name string, size int, offset uintptr) RegisterInfo {
	return RegisterInfo{Name: name, DwarfID: -1, Size: size, Offset: int(offset), Type: SubRegister, Format: UInt}
}

func fpReg(name string, dwarfID, size, offset int) RegisterInfo {
	return RegisterInfo{Name: name, DwarfID: dwarfID, Size: size, Offset: fpRegsBase + offset, Type: FloatingPoint, Format: UInt}
}

func fpRegSt(n int) RegisterInfo {
	return RegisterInfo{Name: "st" + digits[n], DwarfID: 33 + n, Size: 16, Offset: fpRegsBase + offStSpace + n*16, Type: FloatingPoint, Format: LongDouble}
}

func fpRegMm(n int) RegisterInfo {
	return RegisterInfo{Name: "mm" + digits[n], DwarfID: 41 + n, Size: 8, Offset: fpRegsBase + offStSpace + n*16, Type: FloatingPoint, Format: Vector}
}

func fpRegXmm(n int) RegisterInfo {
	return RegisterInfo{Name: "xmm" + digits[n], DwarfID: 17 + n, Size: 16, Offset: fpRegsBase + offXmmSpace + n*16, Type: FloatingPoint, Format: Vector}
}

func debugReg(n int) RegisterInfo {
	return RegisterInfo{Name: "dr" + digits[n], DwarfID: -1, Size: 8, Offset: debugRegBase + n*8, Type: Debug, Format: UInt}
}

var digits = []string{"0", "1", "2", "3", "4", "5", "6", "7", "8", "9", "10", "11", "12", "13", "14", "15"}

var registerInfo = []RegisterInfo{
	gpReg64("rax", 0, unsafe.Offsetof(uregs.Rax)),
	gpReg64("rdx", 1, unsafe.Offsetof(uregs.Rdx)),
	gpReg64("rcx", 2, unsafe.Offsetof(uregs.Rcx)),
	gpReg64("rbx", 3, unsafe.Offsetof(uregs.Rbx)),
	gpReg64("rsi", 4, unsafe.Offsetof(uregs.Rsi)),
	gpReg64("rdi", 5, unsafe.Offsetof(uregs.Rdi)),
	gpReg64("rbp", 6, unsafe.Offsetof(uregs.Rbp)),
	gpReg64("rsp", 7, unsafe.Offsetof(uregs.Rsp)),
	gpReg64("r8", 8, unsafe.Offsetof(uregs.R8)),
	gpReg64("r9", 9, unsafe.Offsetof(uregs.R9)),
	gpReg64("r10", 10, unsafe.Offsetof(uregs.R10)),
	gpReg64("r11", 11, unsafe.Offsetof(uregs.R11)),
	gpReg64("r12", 12, unsafe.Offsetof(uregs.R12)),
	gpReg64("r13", 13, unsafe.Offsetof(uregs.R13)),
	gpReg64("r14", 14, unsafe.Offsetof(uregs.R14)),
	gpReg64("r15", 15, unsafe.Offsetof(uregs.R15)),
	gpReg64("rip", 16, unsafe.Offsetof(uregs.Rip)),
	gpReg64("eflags", 49, unsafe.Offsetof(uregs.Eflags)),
	gpReg64("cs", 51, unsafe.Offsetof(uregs.Cs)),
	gpReg64("fs", 54, unsafe.Offsetof(uregs.Fs)),
	gpReg64("gs", 55, unsafe.Offsetof(uregs.Gs)),
	gpReg64("ss", 52, unsafe.Offsetof(uregs.Ss)),
	gpReg64("ds", 53, unsafe.Offsetof(uregs.Ds)),
	gpReg64("es", 50, unsafe.Offsetof(uregs.Es)),
	// reported by ptrace to identify the syscall in syscall-stops
	gpReg64("orig_rax", -1, unsafe.Offsetof(uregs.Orig_rax)),

	subReg("eax", 4, unsafe.Offsetof(uregs.Rax)),
	subReg("edx", 4, unsafe.Offsetof(uregs.Rdx)),
	subReg("ecx", 4, unsafe.Offsetof(uregs.Rcx)),
	subReg("ebx", 4, unsafe.Offsetof(uregs.Rbx)),
	subReg("esi", 4, unsafe.Offsetof(uregs.Rsi)),
	subReg("edi", 4, unsafe.Offsetof(uregs.Rdi)),
	subReg("ebp", 4, unsafe.Offsetof(uregs.Rbp)),
	subReg("esp", 4, unsafe.Offsetof(uregs.Rsp)),
	subReg("r8d", 4, unsafe.Offsetof(uregs.R8)),
	subReg("r9d", 4, unsafe.Offsetof(uregs.R9)),
	subReg("r10d", 4, unsafe.Offsetof(uregs.R10)),
	subReg("r11d", 4, unsafe.Offsetof(uregs.R11)),
	subReg("r12d", 4, unsafe.Offsetof(uregs.R12)),
	subReg("r13d", 4, unsafe.Offsetof(uregs.R13)),
	subReg("r14d", 4, unsafe.Offsetof(uregs.R14)),
	subReg("r15d", 4, unsafe.Offsetof(uregs.R15)),

	subReg("ax", 2, unsafe.Offsetof(uregs.Rax)),
	subReg("dx", 2, unsafe.Offsetof(uregs.Rdx)),
	subReg("cx", 2, unsafe.Offsetof(uregs.Rcx)),
	subReg("bx", 2, unsafe.Offsetof(uregs.Rbx)),
	subReg("si", 2, unsafe.Offsetof(uregs.Rsi)),
	subReg("di", 2, unsafe.Offsetof(uregs.Rdi)),
	subReg("bp", 2, unsafe.Offsetof(uregs.Rbp)),
	subReg("sp", 2, unsafe.Offsetof(uregs.Rsp)),
	subReg("r8w", 2, unsafe.Offsetof(uregs.R8)),
	subReg("r9w", 2, unsafe.Offsetof(uregs.R9)),
	subReg("r10w", 2, unsafe.Offsetof(uregs.R10)),
	subReg("r11w", 2, unsafe.Offsetof(uregs.R11)),
	subReg("r12w", 2, unsafe.Offsetof(uregs.R12)),
	subReg("r13w", 2, unsafe.Offsetof(uregs.R13)),
	subReg("r14w", 2, unsafe.Offsetof(uregs.R14)),
	subReg("r15w", 2, unsafe.Offsetof(uregs.R15)),

	subReg("ah", 1, unsafe.Offsetof(uregs.Rax)),
	subReg("dh", 1, unsafe.Offsetof(uregs.Rdx)),
	subReg("ch", 1, unsafe.Offsetof(uregs.Rcx)),
	subReg("bh", 1, unsafe.Offsetof(uregs.Rbx)),

	subReg("al", 1, unsafe.Offsetof(uregs.Rax)),
	subReg("dl", 1, unsafe.Offsetof(uregs.Rdx)),
	subReg("cl", 1, unsafe.Offsetof(uregs.Rcx)),
	subReg("bl", 1, unsafe.Offsetof(uregs.Rbx)),
	subReg("sil", 1, unsafe.Offsetof(uregs.Rsi)),
	subReg("dil", 1, unsafe.Offsetof(uregs.Rdi)),
	subReg("bpl", 1, unsafe.Offsetof(uregs.Rbp)),
	subReg("spl", 1, unsafe.Offsetof(uregs.Rsp)),
	subReg("r8b", 1, unsafe.Offsetof(uregs.R8)),
	subReg("r9b", 1, unsafe.Offsetof(uregs.R9)),
	subReg("r10b", 1, unsafe.Offsetof(uregs.R10)),
	subReg("r11b", 1, unsafe.Offsetof(uregs.R11)),
	subReg("r12b", 1, unsafe.Offsetof(uregs.R12)),
	subReg("r13b", 1, unsafe.Offsetof(uregs.R13)),
	subReg("r14b", 1, unsafe.Offsetof(uregs.R14)),
	subReg("r15b", 1, unsafe.Offsetof(uregs.R15)),

	fpReg("fcw", 65, 2, offCwd),
	fpReg("fsw", 66, 2, offSwd),
	fpReg("ftw", -1, 2, offFtw),
	fpReg("fop", -1, 2, offFop),
	fpReg("frip", -1, 8, offFrip),
	fpReg("frdp", -1, 8, offFrdp),
	fpReg("mxcsr", 64, 4, offMxcsr),
	fpReg("mxcsrmask", -1, 4, offMxcsrMask),

	fpRegSt(0), fpRegSt(1), fpRegSt(2), fpRegSt(3),
	fpRegSt(4), fpRegSt(5), fpRegSt(6), fpRegSt(7),

	fpRegMm(0), fpRegMm(1), fpRegMm(2), fpRegMm(3),
	fpRegMm(4), fpRegMm(5), fpRegMm(6), fpRegMm(7),

	fpRegXmm(0), fpRegXmm(1), fpRegXmm(2), fpRegXmm(3),
	fpRegXmm(4), fpRegXmm(5), fpRegXmm(6), fpRegXmm(7),
	fpRegXmm(8), fpRegXmm(9), fpRegXmm(10), fpRegXmm(11),
	fpRegXmm(12), fpRegXmm(13), fpRegXmm(14), fpRegXmm(15),

	debugReg(0), debugReg(1), debugReg(2), debugReg(3),
	debugReg(4), debugReg(5), debugReg(6), debugReg(7),
}

// ByName returns the descriptor of the named register.
func ByName(name string) (*RegisterInfo, bool) {
	for i := range registerInfo {
		if registerInfo[i].Name == name {
			return &registerInfo[i], true
		}
	}
	return nil, false
}

// ByDwarf returns the descriptor for a DWARF register number.
func ByDwarf(dwarfID int) (*RegisterInfo, bool) {
	if dwarfID < 0 {
		return nil, false
	}
	for i := range registerInfo {
		if registerInfo[i].DwarfID == dwarfID {
			return &registerInfo[i], true
		}
	}
	return nil, false
}

// All returns the full descriptor table.
func All() []RegisterInfo {
	return registerInfo
}
