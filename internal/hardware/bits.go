package hardware

// Default CPLD expander bit assignments. Boards with a different map
// override these from the configuration file.
const (
	BitBluetoothPower ExpanderBit = 20 // BT module supply rail
	BitBluetoothRadio ExpanderBit = 21 // BT radio enable
	BitSound          ExpanderBit = 24 // Codec power
	BitSndAmplifier   ExpanderBit = 25 // Speaker amplifier enable
	BitLEDLeftA       ExpanderBit = 8
	BitLEDLeftB       ExpanderBit = 9
	BitLEDLeftBlink   ExpanderBit = 10
	BitLEDRightA      ExpanderBit = 11
	BitLEDRightB      ExpanderBit = 12
	BitLEDRightBlink  ExpanderBit = 13
)

// ExpanderRegs is the number of 8-bit output registers on the CPLD.
const ExpanderRegs = 4

// MaxExpanderBit is the highest valid expander bit index.
const MaxExpanderBit = ExpanderBit(ExpanderRegs*8 - 1)

// Valid reports whether the bit index exists on the expander.
func (b ExpanderBit) Valid() bool {
	return b >= 0 && b <= MaxExpanderBit
}

// Reg returns the register index holding the bit.
func (b ExpanderBit) Reg() int { return int(b) / 8 }

// Mask returns the bit's mask within its register.
func (b ExpanderBit) Mask() byte { return 1 << uint(int(b)%8) }

// ApplyBit returns reg with the bit's position set or cleared.
func ApplyBit(reg byte, b ExpanderBit, on bool) byte {
	if on {
		return reg | b.Mask()
	}
	return reg &^ b.Mask()
}
