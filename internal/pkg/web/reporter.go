package web

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"log"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/ohowland/esys_core/internal/pkg/msg"
)

// Reporter pushes meter readings to a remote dashboard as they arrive.
type Reporter struct {
	mux    *sync.Mutex
	inbox  <-chan msg.Msg
	pid    uuid.UUID
	config reporterConfig
	stop   chan bool
}

type reporterConfig struct {
	URL string `json:"URL"`
}

func (rp Reporter) PID() uuid.UUID {
	return rp.pid
}

func NewReporter(configPath string, system msg.Publisher) (Reporter, error) {
	jsonConfig, err := ioutil.ReadFile(configPath)
	if err != nil {
		return Reporter{}, err
	}
	cfg := reporterConfig{}
	if err := json.Unmarshal(jsonConfig, &cfg); err != nil {
		return Reporter{}, err
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
	system.Subscribe(pid, msg.Reading, forward)

	return Reporter{
		mux:    &sync.Mutex{},
		inbox:  inbox,
		pid:    pid,
		config: cfg,
		stop:   make(chan bool),
	}, nil
}

// PostReading delivers one reading document to the remote endpoint.
func (rp Reporter) PostReading(name string, jsonData []byte) {
	targetURL := rp.config.URL + "/nodes/" + name + "/readings"
	_, err := http.Post(targetURL, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		log.Println("[Web Reporter]", err)
	}
}

func (rp Reporter) Process() {
loop:
	for {
		select {
		case m := <-rp.inbox:
			data, err := json.Marshal(m.Payload())
			if err != nil {
				continue
			}
			rp.PostReading(m.PID().String(), data)
		case <-rp.stop:
			break loop
		}
	}
	log.Println("[Web Reporter] Process Shutdown")
}

func (rp Reporter) StopProcess() {
	rp.stop <- true
}
