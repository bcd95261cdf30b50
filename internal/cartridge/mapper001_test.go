package cartridge

import "testing"

// Test Mapper 1 (MMC1) shift-register protocol, PRG bank-window resolution,
// and dynamic mirroring.

// writeShiftSequence drives the 5-write serial-shift protocol MMC1 expects:
// one bit per consecutive write, LSB of value first, landing at addr.
func writeShiftSequence(m *Mapper001, addr uint16, value uint8) {
	for i := 0; i < 5; i++ {
		bit := (value >> uint(i)) & 1
		m.WritePRG(addr, bit)
	}
}

// newMMC1Cartridge builds a cart with the given number of 16KB PRG banks,
// each filled with a byte identifying the bank index, for bank-switch
// assertions.
func newMMC1Cartridge(prgBanks int) *Cartridge {
	cart := &Cartridge{
		prgROM:    make([]uint8, prgBanks*0x4000),
		chrROM:    make([]uint8, 0x2000),
		mapperID:  1,
		hasCHRRAM: true,
	}
	for bank := 0; bank < prgBanks; bank++ {
		for i := 0; i < 0x4000; i++ {
			cart.prgROM[bank*0x4000+i] = uint8(bank)
		}
	}
	return cart
}

// TestMapper001_PowerOnState verifies the power-on shift register and
// control register values, and that PRG mode 3 (fix last bank) is active
// before any writes occur.
func TestMapper001_PowerOnState(t *testing.T) {
	cart := newMMC1Cartridge(4)
	mapper := NewMapper001(cart)

	if mapper.prgMode() != 3 {
		t.Errorf("expected power-on PRG mode 3 (fix last bank), got %d", mapper.prgMode())
	}
	if mapper.chrMode() != 0 {
		t.Errorf("expected power-on CHR mode 0, got %d", mapper.chrMode())
	}

	if got := mapper.ReadPRG(0x8000); got != 0 {
		t.Errorf("lowBank at power-on: expected bank 0, got %d", got)
	}
	if got := mapper.ReadPRG(0xC000); got != 3 {
		t.Errorf("highBank at power-on: expected last bank (3), got %d", got)
	}
}

// TestMapper001_ShiftRegister_FiveWriteLatch verifies that a value only
// commits to the selected register on the fifth consecutive write, not
// before.
func TestMapper001_ShiftRegister_FiveWriteLatch(t *testing.T) {
	cart := newMMC1Cartridge(4)
	mapper := NewMapper001(cart)

	// Select PRG bank 2 one bit at a time; only the 5th write should
	// change what's visible at $8000 in PRG mode 3.
	value := uint8(2)
	for i := 0; i < 4; i++ {
		bit := (value >> uint(i)) & 1
		mapper.WritePRG(0xE000, bit)
		if got := mapper.ReadPRG(0x8000); got != 0 {
			t.Fatalf("bank switched early after %d writes: got bank %d", i+1, got)
		}
	}
	mapper.WritePRG(0xE000, (value>>4)&1) // 5th write latches

	if got := mapper.ReadPRG(0x8000); got != 2 {
		t.Errorf("after 5th write: expected bank 2 at $8000, got %d", got)
	}
}

// TestMapper001_PRGBankSwitch_FixLastBankMode exercises PRG mode 3 (the
// power-on default): low bank selectable, high bank fixed to the last bank.
func TestMapper001_PRGBankSwitch_FixLastBankMode(t *testing.T) {
	cart := newMMC1Cartridge(4)
	mapper := NewMapper001(cart)

	writeShiftSequence(mapper, 0xE000, 2) // select PRG bank 2 for the low window

	if got := mapper.ReadPRG(0x8000); got != 2 {
		t.Errorf("lowBank: expected bank 2, got %d", got)
	}
	if got := mapper.ReadPRG(0xC000); got != 3 {
		t.Errorf("highBank: expected fixed last bank (3), got %d", got)
	}
}

// TestMapper001_PRGBankSwitch_FixFirstBankMode exercises PRG mode 2: low
// bank fixed at bank 0, high bank selectable.
func TestMapper001_PRGBankSwitch_FixFirstBankMode(t *testing.T) {
	cart := newMMC1Cartridge(4)
	mapper := NewMapper001(cart)

	// control: prgMode=2 (bits 3:2 = 10), chrMode=0, mirror=0
	writeShiftSequence(mapper, 0x8000, 0x08)
	writeShiftSequence(mapper, 0xE000, 1) // select PRG bank 1 for the high window

	if got := mapper.ReadPRG(0x8000); got != 0 {
		t.Errorf("lowBank: expected bank 0 (fixed first), got %d", got)
	}
	if got := mapper.ReadPRG(0xC000); got != 1 {
		t.Errorf("highBank: expected bank 1, got %d", got)
	}
}

// TestMapper001_PRGBankSwitch_32KBMode exercises PRG modes 0/1 (treated
// identically): a single 32KB bank pair selected by the low bit ignored.
func TestMapper001_PRGBankSwitch_32KBMode(t *testing.T) {
	cart := newMMC1Cartridge(4)
	mapper := NewMapper001(cart)

	// control: prgMode=0 (bits 3:2 = 00)
	writeShiftSequence(mapper, 0x8000, 0x00)
	writeShiftSequence(mapper, 0xE000, 3) // odd value selects the pair starting at bank 2

	if got := mapper.ReadPRG(0x8000); got != 2 {
		t.Errorf("lowBank in 32KB mode: expected bank 2, got %d", got)
	}
	if got := mapper.ReadPRG(0xC000); got != 3 {
		t.Errorf("highBank in 32KB mode: expected bank 3, got %d", got)
	}
}

// TestMapper001_Bit7Reset verifies that a write with bit 7 set mid-sequence
// resets the shift register and forces PRG mode 3 (fix last bank),
// discarding whatever partial sequence was in flight.
func TestMapper001_Bit7Reset(t *testing.T) {
	cart := newMMC1Cartridge(4)
	mapper := NewMapper001(cart)

	// Put the mapper into 32KB mode and select a non-default bank pair so a
	// reset is observable.
	writeShiftSequence(mapper, 0x8000, 0x00) // prgMode 0
	writeShiftSequence(mapper, 0xE000, 3)
	if mapper.prgMode() != 0 {
		t.Fatalf("setup failed: expected prgMode 0, got %d", mapper.prgMode())
	}

	// Begin a new control-register write but abandon it after 2 of 5 bits.
	mapper.WritePRG(0x8000, 1)
	mapper.WritePRG(0x8000, 0)

	// A bit-7-set write resets the shift register and forces fix-last-bank.
	mapper.WritePRG(0x8000, 0x80)

	if mapper.shiftRegister != 0x10 || mapper.shiftCount != 0 {
		t.Errorf("shift register not reset: shiftRegister=0x%02X shiftCount=%d",
			mapper.shiftRegister, mapper.shiftCount)
	}
	if mapper.prgMode() != 3 {
		t.Errorf("expected PRG mode forced to 3 (fix last bank) after bit-7 reset, got %d", mapper.prgMode())
	}

	// The abandoned partial sequence must not leak into the next 5-write
	// sequence aimed at the same register.
	writeShiftSequence(mapper, 0xE000, 1)
	if got := mapper.ReadPRG(0x8000); got != 1 {
		t.Errorf("lowBank after reset+reselect: expected bank 1, got %d", got)
	}
	if got := mapper.ReadPRG(0xC000); got != 3 {
		t.Errorf("highBank after reset: expected fixed last bank (3), got %d", got)
	}
}

// TestMapper001_DynamicMirroring verifies GetMirroring reflects the
// control register's low two bits rather than the cartridge header.
func TestMapper001_DynamicMirroring(t *testing.T) {
	cart := newMMC1Cartridge(2)
	mapper := NewMapper001(cart)

	cases := []struct {
		controlBits uint8
		expected    MirrorMode
	}{
		{0x00, MirrorSingleScreen0},
		{0x01, MirrorSingleScreen1},
		{0x02, MirrorVertical},
		{0x03, MirrorHorizontal},
	}

	for _, c := range cases {
		writeShiftSequence(mapper, 0x8000, 0x0C|c.controlBits) // keep PRG mode 3 set
		if got := mapper.GetMirroring(); got != c.expected {
			t.Errorf("control bits 0x%02X: expected mirror mode %v, got %v",
				c.controlBits, c.expected, got)
		}
	}
}

// TestMapper001_SRAM verifies PRG-RAM at $6000-$7FFF is independent of the
// shift-register protocol, like Mapper000.
func TestMapper001_SRAM(t *testing.T) {
	cart := newMMC1Cartridge(2)
	mapper := NewMapper001(cart)

	mapper.WritePRG(0x6000, 0xAB)
	mapper.WritePRG(0x7FFF, 0xCD)

	if got := mapper.ReadPRG(0x6000); got != 0xAB {
		t.Errorf("SRAM at 0x6000: expected 0xAB, got 0x%02X", got)
	}
	if got := mapper.ReadPRG(0x7FFF); got != 0xCD {
		t.Errorf("SRAM at 0x7FFF: expected 0xCD, got 0x%02X", got)
	}
}

// TestMapper001_CHRRAM_Writable verifies CHR RAM carts accept writes
// through the mapper's CHR bank-0 window.
func TestMapper001_CHRRAM_Writable(t *testing.T) {
	cart := newMMC1Cartridge(2)
	mapper := NewMapper001(cart)

	mapper.WriteCHR(0x0100, 0x77)
	if got := mapper.ReadCHR(0x0100); got != 0x77 {
		t.Errorf("CHR RAM write/read: expected 0x77, got 0x%02X", got)
	}
}

// TestMapper001_CHRMode1_IndependentBanks verifies CHR mode 1 switches the
// $0000-$0FFF and $1000-$1FFF windows independently via chrBank0/chrBank1,
// rather than both windows tracking chrBank0.
func TestMapper001_CHRMode1_IndependentBanks(t *testing.T) {
	cart := newMMC1Cartridge(2)
	cart.chrROM = make([]uint8, 6*0x1000) // room for 4KB CHR banks 0-5
	mapper := NewMapper001(cart)

	writeShiftSequence(mapper, 0x8000, 0x10) // control: CHR mode 1 (bit 4 set)
	writeShiftSequence(mapper, 0xA000, 2)     // chrBank0 selects 4KB bank 2
	writeShiftSequence(mapper, 0xC000, 5)     // chrBank1 selects 4KB bank 5

	mapper.WriteCHR(0x0000, 0xAA) // lands in bank 2 via chrBank0
	mapper.WriteCHR(0x1000, 0xBB) // lands in bank 5 via chrBank1

	if got := mapper.ReadCHR(0x0000); got != 0xAA {
		t.Errorf("CHR window $0000: expected 0xAA (bank 2, via chrBank0), got 0x%02X", got)
	}
	if got := mapper.ReadCHR(0x1000); got != 0xBB {
		t.Errorf("CHR window $1000: expected 0xBB (bank 5, via chrBank1), got 0x%02X", got)
	}
}
