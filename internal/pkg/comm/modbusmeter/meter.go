// Package modbusmeter polls revenue meters over Modbus TCP and publishes
// each scan as a Reading keyed by register name. Attach a meter to an
// energy system with AttachSource to put its readings on the system feed.
package modbusmeter

import (
	"encoding/json"
	"io/ioutil"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ohowland/esys_core/internal/pkg/msg"
)

type Meter struct {
	mux       *sync.Mutex
	pid       uuid.UUID
	publisher *msg.PubSub
	poller    Poller
	config    config
	stop      chan bool
}

type config struct {
	Name      string     `json:"Name"`
	IPAddr    string     `json:"IPAddr"`
	Port      string     `json:"Port"`
	SlaveID   byte       `json:"SlaveID"`
	Timeout   int        `json:"Timeout"`
	PollRate  int        `json:"PollRate"`
	Registers []Register `json:"Registers"`
}

func New(configPath string) (Meter, error) {
	jsonConfig, err := ioutil.ReadFile(configPath)
	if err != nil {
		return Meter{}, err
	}
	cfg := config{}
	if err := json.Unmarshal(jsonConfig, &cfg); err != nil {
		return Meter{}, err
	}

	pid, _ := uuid.NewUUID()

	poller := NewPoller(PollerConfig{
		IPAddr:   cfg.IPAddr,
		Port:     cfg.Port,
		SlaveID:  cfg.SlaveID,
		Timeout:  cfg.Timeout,
		PollRate: cfg.PollRate,
	})

	return Meter{
		mux:       &sync.Mutex{},
		pid:       pid,
		publisher: msg.NewPublisher(pid),
		poller:    poller,
		config:    cfg,
		stop:      make(chan bool),
	}, nil
}

func (m Meter) PID() uuid.UUID {
	return m.pid
}

// Name is the label of the system node this meter measures.
func (m Meter) Name() string {
	return m.config.Name
}

// Subscribe registers a listener for every scan the meter publishes.
func (m Meter) Subscribe(subscriber uuid.UUID, topic msg.Topic, fn msg.Listener) {
	m.publisher.Subscribe(subscriber, topic, fn)
}

// SubscribeTo registers a listener filtered by sender PID.
func (m Meter) SubscribeTo(subscriber uuid.UUID, topic msg.Topic, sender uuid.UUID, fn msg.Listener) {
	m.publisher.SubscribeTo(subscriber, topic, sender, fn)
}

// Unsubscribe drops all of the subscriber's listeners.
func (m Meter) Unsubscribe(subscriber uuid.UUID) {
	m.publisher.Unsubscribe(subscriber)
}

func (m Meter) broadcast(readings map[string]float64) {
	m.publisher.Publish(msg.Reading, readings)
}

// Process polls the device at the configured rate until StopProcess.
func (m Meter) Process() {
	log.Println("[Modbus] Process Started")
	ticker := time.NewTicker(time.Duration(m.config.PollRate) * time.Millisecond)
	defer ticker.Stop()

	readable := FilterRegisters(m.config.Registers, ro)
loop:
	for {
		select {
		case <-ticker.C:
			readings, err := m.poller.Read(readable)
			if err != nil {
				log.Printf("[Modbus] read %v: %v", m.config.Name, err)
				continue
			}
			m.broadcast(readings)
		case <-m.stop:
			break loop
		}
	}
	log.Println("[Modbus] Process Shutdown")
}

func (m Meter) StopProcess() {
	m.stop <- true
}
