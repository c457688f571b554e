package device

import (
	"fmt"
	"log"
	"sync"
	"time"

	"farmbeats-monitor/internal/simulation"

	"github.com/simonvetter/modbus"
)

// Selector changes the active weather selection.
type Selector interface {
	Select(condition simulation.WeatherCondition) error
}

// Device serves the latest simulated metrics as Modbus input registers.
type Device struct {
	mu        sync.RWMutex
	registers []uint16
	selector  Selector
	server    *modbus.ModbusServer
}

type selectionReporter interface {
	Selected() simulation.WeatherCondition
}

// NewDevice seeds the registers from the selector's current condition when it
// reports one, so reads before the first Update are meaningful.
func NewDevice(selector Selector) *Device {
	registers := make([]uint16, InputRegisterCount)
	if reporter, ok := selector.(selectionReporter); ok {
		if m, err := simulation.Resolve(reporter.Selected()); err == nil {
			registers = Encode(m)
		}
	}
	return &Device{
		registers: registers,
		selector:  selector,
	}
}

// Update replaces the register contents with new metrics.
func (d *Device) Update(m simulation.DerivedMetrics) {
	regs := Encode(m)
	d.mu.Lock()
	d.registers = regs
	d.mu.Unlock()
}

func (d *Device) Start(host string, port int, timeout time.Duration) error {
	server, err := modbus.NewServer(&modbus.ServerConfiguration{
		URL:        fmt.Sprintf("tcp://%s:%d", host, port),
		Timeout:    timeout,
		MaxClients: 5,
	}, d)
	if err != nil {
		return fmt.Errorf("failed to create modbus server: %w", err)
	}

	if err := server.Start(); err != nil {
		return fmt.Errorf("failed to start modbus server: %w", err)
	}

	d.mu.Lock()
	d.server = server
	d.mu.Unlock()

	log.Printf("Simulated device listening on %s:%d", host, port)
	return nil
}

func (d *Device) Stop() error {
	d.mu.Lock()
	server := d.server
	d.server = nil
	d.mu.Unlock()

	if server == nil {
		return nil
	}
	return server.Stop()
}

func (d *Device) HandleCoils(req *modbus.CoilsRequest) ([]bool, error) {
	return nil, modbus.ErrIllegalFunction
}

func (d *Device) HandleDiscreteInputs(req *modbus.DiscreteInputsRequest) ([]bool, error) {
	return nil, modbus.ErrIllegalFunction
}

func (d *Device) HandleInputRegisters(req *modbus.InputRegistersRequest) ([]uint16, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	end := int(req.Addr) + int(req.Quantity)
	if req.Quantity == 0 || end > len(d.registers) {
		return nil, modbus.ErrIllegalDataAddress
	}

	res := make([]uint16, req.Quantity)
	copy(res, d.registers[req.Addr:end])
	return res, nil
}

func (d *Device) HandleHoldingRegisters(req *modbus.HoldingRegistersRequest) ([]uint16, error) {
	if req.Addr != RegSelectedCondition || req.Quantity != 1 {
		return nil, modbus.ErrIllegalDataAddress
	}

	if !req.IsWrite {
		d.mu.RLock()
		defer d.mu.RUnlock()
		return []uint16{d.registers[RegCondition]}, nil
	}

	if len(req.Args) != 1 {
		return nil, modbus.ErrIllegalDataValue
	}
	condition := simulation.WeatherCondition(req.Args[0])
	if !condition.Valid() || d.selector == nil {
		return nil, modbus.ErrIllegalDataValue
	}
	if err := d.selector.Select(condition); err != nil {
		log.Printf("Device selection failed: %v", err)
		return nil, modbus.ErrServerDeviceFailure
	}
	return req.Args, nil
}
