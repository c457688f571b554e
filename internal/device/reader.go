package device

import "fmt"

type RegisterReader interface {
	ReadInputRegisters(address uint16, quantity uint16) ([]uint16, error)
}

// Read fetches and decodes the full input register block.
func Read(r RegisterReader) (*Reading, error) {
	regs, err := r.ReadInputRegisters(0, InputRegisterCount)
	if err != nil {
		return nil, fmt.Errorf("failed to read device registers: %w", err)
	}
	return Decode(regs)
}
