package modbus

import (
	"fmt"
	"sync"
	"time"

	"github.com/simonvetter/modbus"
)

// Client is a Modbus TCP client for the simulated edge device.
type Client struct {
	client  *modbus.ModbusClient
	mu      sync.Mutex
	host    string
	port    int
	slaveID uint8
	timeout time.Duration
}

func NewClient(host string, port int, slaveID uint8, timeout time.Duration) *Client {
	return &Client{
		host:    host,
		port:    port,
		slaveID: slaveID,
		timeout: timeout,
	}
}

func (c *Client) Address() string {
	return fmt.Sprintf("%s:%d", c.host, c.port)
}

func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		return nil
	}

	client, err := modbus.NewClient(&modbus.ClientConfiguration{
		URL:     "tcp://" + c.Address(),
		Timeout: c.timeout,
	})
	if err != nil {
		return fmt.Errorf("failed to create modbus client: %w", err)
	}

	if err := client.Open(); err != nil {
		return fmt.Errorf("failed to connect to device: %w", err)
	}

	client.SetUnitId(c.slaveID)
	c.client = client

	return nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		return nil
	}

	err := c.client.Close()
	c.client = nil
	return err
}

func (c *Client) ReadInputRegisters(address uint16, quantity uint16) ([]uint16, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		return nil, fmt.Errorf("client not connected")
	}

	regs, err := c.client.ReadRegisters(address, quantity, modbus.INPUT_REGISTER)
	if err != nil {
		return nil, fmt.Errorf("failed to read input registers at %d: %w", address, err)
	}

	return regs, nil
}

func (c *Client) ReadHoldingRegisters(address uint16, quantity uint16) ([]uint16, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		return nil, fmt.Errorf("client not connected")
	}

	regs, err := c.client.ReadRegisters(address, quantity, modbus.HOLDING_REGISTER)
	if err != nil {
		return nil, fmt.Errorf("failed to read holding registers at %d: %w", address, err)
	}

	return regs, nil
}

func (c *Client) WriteHoldingRegister(address uint16, value uint16) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		return fmt.Errorf("client not connected")
	}

	if err := c.client.WriteRegister(address, value); err != nil {
		return fmt.Errorf("failed to write holding register %d: %w", address, err)
	}
	return nil
}
