package main

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ohowland/esys_core/internal/pkg/comm/modbusmeter"
	"github.com/ohowland/esys_core/internal/pkg/database/mongodb"
	"github.com/ohowland/esys_core/internal/pkg/database/snapshot"
	"github.com/ohowland/esys_core/internal/pkg/datastreams/natshandler"
	"github.com/ohowland/esys_core/internal/pkg/datastreams/sqldb"
	"github.com/ohowland/esys_core/internal/pkg/energysystem"
	"github.com/ohowland/esys_core/internal/pkg/groupings"
	"github.com/ohowland/esys_core/internal/pkg/msg"
	"github.com/ohowland/esys_core/internal/pkg/network"
	"github.com/ohowland/esys_core/internal/pkg/web"
)

func main() {
	log.Println("[Main] Starting ESYS_Core v0.1.0")
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	log.Println("[Main] Building Energy System")
	system, err := buildSystem("./config/system.json")
	if err != nil {
		panic(err)
	}

	log.Println("[Main] Linking Database Services")
	if err := linkMongo(system); err != nil {
		panic(err)
	}
	if err := linkSQL(system); err != nil {
		panic(err)
	}

	log.Println("[Main] Linking Datastream Services")
	if err := linkNATS(system); err != nil {
		panic(err)
	}

	log.Println("[Main] Starting Meters")
	if err := linkMeters(system); err != nil {
		panic(err)
	}

	log.Println("[Main] Starting Webservice")
	if err := linkWebservice(system); err != nil {
		panic(err)
	}

	<-sigs

	log.Println("[Main] Dumping System State")
	report, err := snapshot.Dump(system, "", "")
	if err != nil {
		log.Println("[Main]", err)
	} else {
		log.Println("[Main]", report)
	}
	log.Println("[Main] Stopping system")
}

type nodeSpec struct {
	Label            string                 `json:"Label"`
	Kind             string                 `json:"Kind"`
	CustomProperties map[string]interface{} `json:"CustomProperties"`
}

type flowSpec struct {
	Source       string   `json:"Source"`
	Target       string   `json:"Target"`
	NominalValue *float64 `json:"NominalValue"`
}

type systemConfig struct {
	Nodes []nodeSpec `json:"Nodes"`
	Flows []flowSpec `json:"Flows"`
}

func validKind(s string) bool {
	switch network.Kind(s) {
	case "", network.KindNode, network.KindBus, network.KindComponent,
		network.KindSink, network.KindSource, network.KindTransformer:
		return true
	}
	return false
}

// buildSystem assembles an energy system from a config file naming the
// nodes and the flows between them.
func buildSystem(configPath string) (*energysystem.EnergySystem, error) {
	jsonConfig, err := ioutil.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	cfg := systemConfig{}
	if err := json.Unmarshal(jsonConfig, &cfg); err != nil {
		return nil, err
	}

	index := make(map[string]*network.Node)
	ordered := make([]*network.Node, 0)
	for _, spec := range cfg.Nodes {
		if !validKind(spec.Kind) {
			return nil, fmt.Errorf("node %q has unknown kind %q", spec.Label, spec.Kind)
		}
		n, err := network.New(network.Params{
			Label:            spec.Label,
			Kind:             network.Kind(spec.Kind),
			CustomProperties: spec.CustomProperties,
		})
		if err != nil {
			return nil, err
		}
		if _, ok := index[spec.Label]; ok {
			return nil, fmt.Errorf("duplicate node label %q", spec.Label)
		}
		index[spec.Label] = n
		ordered = append(ordered, n)
	}

	for _, f := range cfg.Flows {
		source, ok := index[f.Source]
		if !ok {
			return nil, fmt.Errorf("unknown node %q in flow", f.Source)
		}
		target, ok := index[f.Target]
		if !ok {
			return nil, fmt.Errorf("unknown node %q in flow", f.Target)
		}
		var payload interface{}
		if f.NominalValue != nil {
			payload = map[string]interface{}{"nominal_value": *f.NominalValue}
		}
		if _, err := source.Outputs().Set(target, payload); err != nil {
			return nil, err
		}
	}

	byKind, err := groupings.Nodes(groupings.Params{
		Key: func(n *network.Node) interface{} { return string(n.Kind()) },
	})
	if err != nil {
		return nil, err
	}

	return energysystem.New(energysystem.Params{
		Nodes:     ordered,
		Groupings: []interface{}{byKind},
	})
}

func linkMongo(system *energysystem.EnergySystem) error {
	path := "./config/database/mongodb_config.json"
	if _, err := os.Stat(path); err != nil {
		log.Println("[Main] MongoDB config not found, skipping")
		return nil
	}
	h, err := mongodb.New(path, system)
	if err != nil {
		return err
	}
	go h.Process()
	return nil
}

func linkSQL(system *energysystem.EnergySystem) error {
	path := "./config/database/sqldb_config.json"
	if _, err := os.Stat(path); err != nil {
		log.Println("[Main] SQL config not found, skipping")
		return nil
	}
	h, err := sqldb.New(path, system)
	if err != nil {
		return err
	}
	go h.Process()
	return nil
}

func linkNATS(system *energysystem.EnergySystem) error {
	path := "./config/datastream/nats_config.json"
	if _, err := os.Stat(path); err != nil {
		log.Println("[Main] NATS config not found, skipping")
		return nil
	}
	h, err := natshandler.New(path, system)
	if err != nil {
		return err
	}
	go h.Process()
	return nil
}

// linkMeters starts a poller for every meter config and forwards their
// readings onto the system feed.
func linkMeters(system *energysystem.EnergySystem) error {
	paths, err := filepath.Glob("./config/comm/*.json")
	if err != nil {
		return err
	}
	for _, path := range paths {
		meter, err := modbusmeter.New(path)
		if err != nil {
			return err
		}
		system.AttachSource(meter, msg.Reading)
		go meter.Process()
		log.Println("[Main] Polling meter", meter.Name())
	}
	return nil
}

func linkWebservice(system *energysystem.EnergySystem) error {
	path := "./config/web/webservice.json"
	if _, err := os.Stat(path); err != nil {
		log.Println("[Main] Webservice config not found, skipping")
		return nil
	}
	s, err := web.New(path, system)
	if err != nil {
		return err
	}
	go func() {
		if err := s.Serve(); err != nil {
			log.Println("[Main] webservice:", err)
		}
	}()

	reporterPath := "./config/web/reporter.json"
	if _, err := os.Stat(reporterPath); err == nil {
		rp, err := web.NewReporter(reporterPath, system)
		if err != nil {
			return err
		}
		go rp.Process()
	}
	return nil
}
