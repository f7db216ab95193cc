package natshandler

import (
	"encoding/json"
	"io/ioutil"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/ohowland/esys_core/internal/pkg/energysystem"
	"github.com/ohowland/esys_core/internal/pkg/msg"

	nats "github.com/nats-io/nats.go"
)

// Handler relays system events to a NATS server. Node arrivals go out
// on esys.nodes, meter readings on esys.readings.<pid>.
type Handler struct {
	mux    *sync.Mutex
	inbox  <-chan msg.Msg
	pid    uuid.UUID
	config config
	stop   chan bool
}

type config struct {
	Server string `json:"Server"`
}

func (h Handler) PID() uuid.UUID {
	return h.pid
}

func New(configPath string, system msg.Publisher) (Handler, error) {
	jsonConfig, err := ioutil.ReadFile(configPath)
	if err != nil {
		return Handler{}, err
	}
	cfg := config{}
	if err := json.Unmarshal(jsonConfig, &cfg); err != nil {
		return Handler{}, err
	}

	pid, _ := uuid.NewUUID()

	inbox := make(chan msg.Msg, 50)
	// A full inbox drops the event rather than stalling the publisher.
	forward := func(m msg.Msg) {
		select {
		case inbox <- m:
		default:
		}
	}
	system.Subscribe(pid, msg.NodeAdded, forward)
	system.Subscribe(pid, msg.Reading, forward)

	stop := make(chan bool)

	return Handler{
		mux:    &sync.Mutex{},
		inbox:  inbox,
		pid:    pid,
		config: cfg,
		stop:   stop,
	}, nil
}

func (h *Handler) StopProcess() {
	h.stop <- true
}

func subjectFor(m msg.Msg) string {
	switch m.Topic() {
	case msg.NodeAdded:
		return "esys.nodes"
	case msg.Reading:
		return "esys.readings." + m.PID().String()
	default:
		return "esys.events." + m.PID().String()
	}
}

type nodeRecord struct {
	PID   string `json:"pid"`
	Label string `json:"label"`
	Kind  string `json:"kind"`
}

func encodePayload(m msg.Msg) ([]byte, error) {
	if ev, ok := m.Payload().(energysystem.NodeAddedEvent); ok {
		return json.Marshal(nodeRecord{
			PID:   ev.Node.PID().String(),
			Label: ev.Node.String(),
			Kind:  string(ev.Node.Kind()),
		})
	}
	return json.Marshal(m.Payload())
}

func (h Handler) Process() {
	log.Println("[NATS client] Process Started")
	server := h.config.Server
	if server == "" {
		server = nats.DefaultURL
	}
	nc, err := nats.Connect(server)
	if err != nil {
		panic(err)
	}
	defer nc.Close()

loop:
	for {
		select {
		case m := <-h.inbox:
			data, err := encodePayload(m)
			if err != nil {
				continue
			}
			if err = nc.Publish(subjectFor(m), data); err != nil {
				log.Printf("unable to publish to nats server: %v", err)
			}

		case <-h.stop:
			break loop
		}
	}
	log.Println("[NATS client] Process Shutdown")
}
