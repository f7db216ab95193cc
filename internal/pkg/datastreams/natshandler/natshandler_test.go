package natshandler

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/ohowland/esys_core/internal/pkg/energysystem"
	"github.com/ohowland/esys_core/internal/pkg/msg"
	"github.com/ohowland/esys_core/internal/pkg/network"
	"gotest.tools/v3/assert"
)

func newHandler() (Handler, error) {
	pid, _ := uuid.NewUUID()
	pub := msg.NewPublisher(pid)
	return New("./nats_config_test.json", pub)
}

func TestGetConfig(t *testing.T) {
	h, err := newHandler()
	assert.NilError(t, err)

	assert.Equal(t, h.config.Server, "nats://localhost:4222")
}

func TestSubjects(t *testing.T) {
	pid, _ := uuid.NewUUID()

	added := msg.New(pid, msg.NodeAdded, nil)
	assert.Equal(t, subjectFor(added), "esys.nodes")

	reading := msg.New(pid, msg.Reading, nil)
	assert.Equal(t, subjectFor(reading), "esys.readings."+pid.String())
}

func TestEncodeNodeAdded(t *testing.T) {
	n, err := network.New(network.Params{Label: "meter", Kind: network.KindSink})
	assert.NilError(t, err)

	m := msg.New(n.PID(), msg.NodeAdded, energysystem.NodeAddedEvent{Node: n})
	data, err := encodePayload(m)
	assert.NilError(t, err)

	rec := nodeRecord{}
	assert.NilError(t, json.Unmarshal(data, &rec))
	assert.Equal(t, rec.Label, "meter")
	assert.Equal(t, rec.Kind, "sink")
	assert.Equal(t, rec.PID, n.PID().String())
}

func TestEncodeReading(t *testing.T) {
	pid, _ := uuid.NewUUID()
	m := msg.New(pid, msg.Reading, map[string]float64{"kw": 21.5})

	data, err := encodePayload(m)
	assert.NilError(t, err)

	got := map[string]float64{}
	assert.NilError(t, json.Unmarshal(data, &got))
	assert.Equal(t, got["kw"], 21.5)
}
