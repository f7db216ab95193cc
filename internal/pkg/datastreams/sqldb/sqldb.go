package sqldb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ohowland/esys_core/internal/pkg/energysystem"
	"github.com/ohowland/esys_core/internal/pkg/msg"

	_ "github.com/go-sql-driver/mysql"
)

// Handler streams system events into MySQL. Node arrivals keep the
// nodes table current, meter readings append to the readings table.
type Handler struct {
	mux    *sync.Mutex
	inbox  <-chan msg.Msg
	pid    uuid.UUID
	config config
	stop   chan bool
}

type config struct {
	Server   string `json:"Server"`
	Port     int    `json:"Port"`
	Username string `json:"Username"`
	Password string `json:"Password"`
	Database string `json:"Database"`
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

func (h Handler) DB() (*sql.DB, error) {
	uri := fmt.Sprintf("%v:%v@tcp(%v:%v)/%v", h.config.Username, h.config.Password, h.config.Server, h.config.Port, h.config.Database)
	db, err := sql.Open("mysql", uri)
	if err != nil {
		return nil, err
	}
	return db, nil
}

func (h Handler) Process() {
	db, err := h.DB()
	if err != nil {
		panic(err) // #TODO Handle failed connection
	}
	defer db.Close()

	if err := initDBTables(db); err != nil {
		panic(err) // #TODO Handle failed query
	}

loop:
	for {
		select {
		case m := <-h.inbox:
			switch m.Topic() {
			case msg.NodeAdded:
				if err := upsertNode(db, m); err != nil {
					log.Printf("[SQL] error %s update db", err)
				}
			case msg.Reading:
				if err := insertReading(db, m); err != nil {
					log.Printf("[SQL] error %s update db", err)
				}
			}
		case <-h.stop:
			break loop
		}
	}
	log.Println("[SQL] Process Shutdown")
}

func initDBTables(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS nodes(pid VARCHAR(36) PRIMARY KEY, label TEXT, kind VARCHAR(16))`,
		`CREATE TABLE IF NOT EXISTS readings(pid VARCHAR(36), data BLOB, ts TIMESTAMP DEFAULT CURRENT_TIMESTAMP)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func upsertNode(db *sql.DB, m msg.Msg) error {
	ev, ok := m.Payload().(energysystem.NodeAddedEvent)
	if !ok {
		return fmt.Errorf("unexpected payload %T on node topic", m.Payload())
	}

	sqlStatement := `INSERT INTO nodes (pid, label, kind) VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE label=VALUES(label), kind=VALUES(kind)`

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()
	_, err := db.ExecContext(ctx, sqlStatement, ev.Node.PID().String(), ev.Node.String(), string(ev.Node.Kind()))
	return err
}

func insertReading(db *sql.DB, m msg.Msg) error {
	data, err := json.Marshal(m.Payload())
	if err != nil {
		return err
	}

	sqlStatement := `INSERT INTO readings (pid, data) VALUES (?, ?)`

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()
	_, err = db.ExecContext(ctx, sqlStatement, m.PID().String(), data)
	return err
}
