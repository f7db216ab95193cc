// Package snapshot dumps and restores energy system state through BSON
// files on disk. The default location is ~/.esys/dumps/es_dump.esys.
package snapshot

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/ohowland/esys_core/internal/pkg/energysystem"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const defaultFilename = "es_dump.esys"

func defaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".esys", "dumps"), nil
}

func resolve(dpath string, filename string) (string, error) {
	if dpath == "" {
		d, err := defaultDir()
		if err != nil {
			return "", err
		}
		dpath = d
	}
	if filename == "" {
		filename = defaultFilename
	}
	return filepath.Join(dpath, filename), nil
}

// Dump writes the system's state to dpath/filename and reports where it
// landed. Empty arguments select the default directory and filename.
func Dump(es *energysystem.EnergySystem, dpath string, filename string) (string, error) {
	path, err := resolve(dpath, filename)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", err
	}

	data, err := bson.Marshal(es.State())
	if err != nil {
		return "", err
	}
	if err := ioutil.WriteFile(path, data, 0644); err != nil {
		return "", err
	}
	return fmt.Sprintf("Attributes dumped to: %s", path), nil
}

// Restore replaces the system's contents with the state stored at
// dpath/filename. Empty arguments select the default directory and
// filename, mirroring Dump.
func Restore(es *energysystem.EnergySystem, dpath string, filename string) (string, error) {
	path, err := resolve(dpath, filename)
	if err != nil {
		return "", err
	}

	data, err := ioutil.ReadFile(path)
	if err != nil {
		return "", err
	}
	s := energysystem.State{}
	if err := bson.Unmarshal(data, &s); err != nil {
		return "", err
	}
	normalizeState(&s)
	if err := es.SetState(s); err != nil {
		return "", err
	}
	return fmt.Sprintf("Attributes restored from: %s", path), nil
}

// normalizeState rewrites the driver's document types back into plain
// maps and slices so restored payloads compare like the originals.
func normalizeState(s *energysystem.State) {
	for i := range s.Nodes {
		normalizeProps(s.Nodes[i].CustomProperties)
	}
	for i := range s.Edges {
		s.Edges[i].Values = normalize(s.Edges[i].Values)
		normalizeProps(s.Edges[i].CustomProperties)
	}
	s.TimeIndex = normalize(s.TimeIndex)
	s.TimeIncrement = normalize(s.TimeIncrement)
	s.Results = normalize(s.Results)
}

func normalizeProps(props map[string]interface{}) {
	for k, v := range props {
		props[k] = normalize(v)
	}
}

func normalize(v interface{}) interface{} {
	switch d := v.(type) {
	case primitive.D:
		m := make(map[string]interface{}, len(d))
		for _, e := range d {
			m[e.Key] = normalize(e.Value)
		}
		return m
	case primitive.M:
		m := make(map[string]interface{}, len(d))
		for k, val := range d {
			m[k] = normalize(val)
		}
		return m
	case primitive.A:
		out := make([]interface{}, len(d))
		for i, val := range d {
			out[i] = normalize(val)
		}
		return out
	}
	return v
}
