// Package web serves an energy system over HTTP. REST endpoints expose
// the node set, group index, and flow list as JSON, /graph exposes the
// export graph, and /ws streams system events over a websocket.
package web

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"log"
	"net/http"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/ohowland/esys_core/internal/pkg/energysystem"
	"github.com/ohowland/esys_core/internal/pkg/graph"
	"github.com/ohowland/esys_core/internal/pkg/groupings"
	"github.com/ohowland/esys_core/internal/pkg/msg"
	"github.com/ohowland/esys_core/internal/pkg/network"
)

type Server struct {
	mux      *sync.Mutex
	pid      uuid.UUID
	es       *energysystem.EnergySystem
	config   config
	upgrader websocket.Upgrader
}

type config struct {
	Port string `json:"Port"`
}

func New(configPath string, es *energysystem.EnergySystem) (Server, error) {
	jsonConfig, err := ioutil.ReadFile(configPath)
	if err != nil {
		return Server{}, err
	}
	cfg := config{}
	if err := json.Unmarshal(jsonConfig, &cfg); err != nil {
		return Server{}, err
	}

	pid, _ := uuid.NewUUID()

	return Server{
		mux:    &sync.Mutex{},
		pid:    pid,
		es:     es,
		config: cfg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}, nil
}

func (s Server) PID() uuid.UUID {
	return s.pid
}

// NewRouter binds every endpoint the server exposes.
func (s Server) NewRouter() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", s.BaseHandler)
	r.HandleFunc("/nodes", s.NodesHandler).Methods("GET")
	r.HandleFunc("/nodes/{label}", s.NodeHandler).Methods("GET")
	r.HandleFunc("/groups", s.GroupsHandler).Methods("GET")
	r.HandleFunc("/flows", s.FlowsHandler).Methods("GET")
	r.HandleFunc("/graph", s.GraphHandler).Methods("GET")
	r.HandleFunc("/graph.graphml", s.GraphMLHandler).Methods("GET")
	r.HandleFunc("/ws", s.WSHandler)
	return r
}

// Serve blocks on the configured port.
func (s Server) Serve() error {
	r := s.NewRouter()
	log.Println("[Webservice] Starting Server on Port", s.config.Port)
	return http.ListenAndServe(":"+s.config.Port, r)
}

type nodeRecord struct {
	PID     string   `json:"pid"`
	Label   string   `json:"label"`
	Kind    string   `json:"kind"`
	Inputs  []string `json:"inputs"`
	Outputs []string `json:"outputs"`
}

func nodeToRecord(n *network.Node) nodeRecord {
	inputs := make([]string, 0)
	for _, src := range n.Inputs().Nodes() {
		inputs = append(inputs, src.String())
	}
	sort.Strings(inputs)

	outputs := make([]string, 0)
	for _, target := range n.Outputs().Nodes() {
		outputs = append(outputs, target.String())
	}
	sort.Strings(outputs)

	return nodeRecord{
		PID:     n.PID().String(),
		Label:   n.String(),
		Kind:    string(n.Kind()),
		Inputs:  inputs,
		Outputs: outputs,
	}
}

type flowRecord struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Values string `json:"values,omitempty"`
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		log.Println("[Webservice] malformed JSON:", err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func (s Server) BaseHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(http.StatusOK)
}

func (s Server) NodesHandler(w http.ResponseWriter, r *http.Request) {
	s.mux.Lock()
	defer s.mux.Unlock()

	records := make([]nodeRecord, 0)
	for _, n := range s.es.Nodes() {
		records = append(records, nodeToRecord(n))
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Label < records[j].Label })

	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	writeJSON(w, records)
}

func (s Server) NodeHandler(w http.ResponseWriter, r *http.Request) {
	s.mux.Lock()
	defer s.mux.Unlock()

	vars := mux.Vars(r)
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	for _, n := range s.es.Nodes() {
		if n.String() == vars["label"] {
			writeJSON(w, nodeToRecord(n))
			return
		}
	}
	w.WriteHeader(http.StatusNotFound)
}

func (s Server) GroupsHandler(w http.ResponseWriter, r *http.Request) {
	s.mux.Lock()
	defer s.mux.Unlock()

	view := make(map[string]interface{})
	for key, members := range s.es.Groups() {
		view[fmt.Sprint(key)] = groupView(members)
	}

	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	writeJSON(w, view)
}

// groupView flattens a group's members into labels. Sets become sorted
// label lists, anything else is reported in its printed form.
func groupView(members interface{}) interface{} {
	switch g := members.(type) {
	case groupings.Set:
		labels := make([]string, 0)
		for _, member := range g.Members() {
			labels = append(labels, fmt.Sprint(member))
		}
		sort.Strings(labels)
		return labels
	default:
		return fmt.Sprint(members)
	}
}

func (s Server) FlowsHandler(w http.ResponseWriter, r *http.Request) {
	s.mux.Lock()
	defer s.mux.Unlock()

	records := make([]flowRecord, 0)
	for key, e := range s.es.Flows() {
		rec := flowRecord{Source: key.Source.String(), Target: key.Target.String()}
		if e.Values() != nil {
			rec.Values = fmt.Sprint(e.Values())
		}
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].Source != records[j].Source {
			return records[i].Source < records[j].Source
		}
		return records[i].Target < records[j].Target
	})

	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	writeJSON(w, records)
}

func (s Server) GraphHandler(w http.ResponseWriter, r *http.Request) {
	s.mux.Lock()
	defer s.mux.Unlock()

	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	writeJSON(w, graph.FromSystem(s.es))
}

func (s Server) GraphMLHandler(w http.ResponseWriter, r *http.Request) {
	s.mux.Lock()
	g := graph.FromSystem(s.es)
	s.mux.Unlock()

	w.Header().Set("Content-Type", "application/xml; charset=UTF-8")
	w.WriteHeader(http.StatusOK)
	if err := graph.WriteGraphML(w, g); err != nil {
		log.Println("[Webservice] graphml:", err)
	}
}

type eventFrame struct {
	Topic string      `json:"topic"`
	PID   string      `json:"pid,omitempty"`
	Data  interface{} `json:"data,omitempty"`
}

func encodeEvent(m msg.Msg) ([]byte, error) {
	frame := eventFrame{Topic: m.Topic().String(), PID: m.PID().String()}
	switch p := m.Payload().(type) {
	case energysystem.NodeAddedEvent:
		frame.Data = nodeToRecord(p.Node)
	default:
		frame.Data = p
	}
	return json.Marshal(frame)
}

// WSHandler upgrades the connection and streams node arrivals and meter
// readings as JSON text frames. A hello frame confirms the subscription
// is live before any event is delivered.
func (s Server) WSHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("[Webservice] websocket upgrade failed:", err)
		return
	}
	defer conn.Close()

	pid, _ := uuid.NewUUID()
	feed := make(chan msg.Msg, 50)
	// A full feed drops the event rather than stalling the publisher.
	forward := func(m msg.Msg) {
		select {
		case feed <- m:
		default:
		}
	}
	s.es.Subscribe(pid, msg.NodeAdded, forward)
	s.es.Subscribe(pid, msg.Reading, forward)
	defer s.es.Unsubscribe(pid)

	hello, _ := json.Marshal(eventFrame{Topic: "hello"})
	if err := conn.WriteMessage(websocket.TextMessage, hello); err != nil {
		return
	}

	// The read pump only watches for the client hanging up.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case m := <-feed:
			frame, err := encodeEvent(m)
			if err != nil {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
