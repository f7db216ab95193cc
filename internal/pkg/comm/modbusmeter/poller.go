package modbusmeter

import (
	"log"
	"os"
	"time"

	"github.com/goburrow/modbus"
)

// Poller reads register scans from a Modbus TCP target.
type Poller struct {
	handler  *modbus.TCPClientHandler
	pollRate int
}

// PollerConfig is the configuration format for Poller
type PollerConfig struct {
	IPAddr       string `json:"IPAddr"`
	Port         string `json:"Port"`
	SlaveID      byte   `json:"SlaveID"`
	Timeout      int    `json:"Timeout"`
	PollRate     int    `json:"PollRate"`
	EnableLogger bool
}

// NewPoller is a factory for the Poller struct
func NewPoller(cfg PollerConfig) Poller {
	handler := modbus.NewTCPClientHandler(cfg.IPAddr + ":" + cfg.Port)
	handler.Timeout = time.Millisecond * time.Duration(cfg.Timeout)
	handler.SlaveId = cfg.SlaveID

	if cfg.EnableLogger {
		handler.Logger = log.New(os.Stdout, "modbus: ", log.LstdFlags)
	}

	return Poller{
		handler:  handler,
		pollRate: cfg.PollRate,
	}
}

// Read polls every register over a single connection. A register that
// fails to read reports 0xBEEF and the last error is returned alongside
// the partial scan.
func (p Poller) Read(registers []Register) (map[string]float64, error) {
	err := p.handler.Connect()
	if err != nil {
		return nil, err
	}
	defer p.handler.Close()

	client := modbus.NewClient(p.handler)
	readValues := make(map[string]float64)
	for _, register := range registers {
		resp, readErr := client.ReadHoldingRegisters(register.Address, sizeOf(register.DataType))
		if readErr != nil {
			readValues[register.Name] = 0xBEEF
			err = readErr
		} else {
			readValues[register.Name] = decode(resp, register)
		}
	}
	return readValues, err
}
