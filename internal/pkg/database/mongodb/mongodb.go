package mongodb

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/ohowland/esys_core/internal/pkg/energysystem"
	"github.com/ohowland/esys_core/internal/pkg/msg"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Handler mirrors an energy system into MongoDB. Node arrivals upsert
// into the systemNodes collection, meter readings append to the
// meterReadings collection.
type Handler struct {
	mux    *sync.Mutex
	inbox  <-chan msg.Msg
	pid    uuid.UUID
	config config
	stop   chan bool
}

type config struct {
	URI      string `json:"URI"`
	Database string `json:"Database"`
	Port     string `json:"Port"`
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

func nodeToBSON(m msg.Msg) (bson.D, bool) {
	ev, ok := m.Payload().(energysystem.NodeAddedEvent)
	if !ok {
		return nil, false
	}
	//TODO: PID should be written as a binary of subtype 0x04 (UUID standard).
	// currently written as a string.
	return bson.D{
		{"$set", bson.M{
			"pid":   ev.Node.PID().String(),
			"label": ev.Node.String(),
			"kind":  string(ev.Node.Kind()),
		}},
	}, true
}

func readingToBSON(m msg.Msg) bson.M {
	return bson.M{
		"pid":  m.PID().String(),
		"data": m.Payload(),
	}
}

func (h *Handler) StopProcess() {
	h.stop <- true
}

func (h Handler) Process() {
	//TODO: Handle reconnection to the MongoDB resource
	client, err := mongo.NewClient(options.Client().ApplyURI(h.config.URI + ":" + h.config.Port))
	if err != nil {
		log.Println(err)
	}

	ctx := context.TODO()
	err = client.Connect(ctx)
	if err != nil {
		log.Println(err)
	}
	defer client.Disconnect(ctx)

	client.Database(h.config.Database).Collection("systemNodes").Drop(ctx)
loop:
	for {
		select {
		case m := <-h.inbox:
			switch m.Topic() {
			case msg.NodeAdded:
				doc, ok := nodeToBSON(m)
				if !ok {
					continue
				}
				opts := options.Update().SetUpsert(true)
				_, err = client.Database(h.config.Database).Collection("systemNodes").UpdateOne(
					ctx,
					bson.M{"pid": m.PID().String()},
					doc,
					opts,
				)
				if err != nil {
					log.Println("[Mongo]", err)
				}

			case msg.Reading:
				_, err = client.Database(h.config.Database).Collection("meterReadings").InsertOne(
					ctx,
					readingToBSON(m),
				)
				if err != nil {
					log.Println("[Mongo]", err)
				}
			}
		case <-h.stop:
			break loop
		}
	}
	log.Println("[Mongo] Process Shutdown")
}
