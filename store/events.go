package store

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	eventBuffer    = 1024
	flushThreshold = 50
	flushInterval  = 5 * time.Second
)

type eventKind int

const (
	evtChat eventKind = iota
	evtFailedLogin
	evtSession
)

type event struct {
	kind     eventKind
	name     string
	text     string // chat message, or client IP for failed logins
	peakMass float64
	played   time.Duration
	eatenBy  string
	at       time.Time
}

// Events persists side records with batched background writes. Every
// method is non-blocking: when the buffer is full the record is dropped.
// A nil *Events accepts and discards everything.
type Events struct {
	db     *DB
	events chan event
	stop   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
	now    func() time.Time

	mu      sync.Mutex
	dropped int
}

// NewEvents starts the background writer.
func NewEvents(db *DB) *Events {
	e := &Events{
		db:     db,
		events: make(chan event, eventBuffer),
		stop:   make(chan struct{}),
		now:    time.Now,
	}
	e.wg.Add(1)
	go e.writer()
	return e
}

func (e *Events) track(ev event) {
	if e == nil {
		return
	}
	ev.at = e.now().UTC()
	select {
	case e.events <- ev:
	default:
		e.mu.Lock()
		e.dropped++
		e.mu.Unlock()
	}
}

// Chat logs a chat line.
func (e *Events) Chat(sender, message string) {
	e.track(event{kind: evtChat, name: sender, text: message})
}

// FailedLogin logs a rejected admin login.
func (e *Events) FailedLogin(name, ip string) {
	e.track(event{kind: evtFailedLogin, name: name, text: ip})
}

// Session records a finished game session.
func (e *Events) Session(name string, peakMass float64, played time.Duration, eatenBy string) {
	e.track(event{kind: evtSession, name: name, peakMass: peakMass, played: played, eatenBy: eatenBy})
}

// Dropped returns how many records were discarded because the buffer was full.
func (e *Events) Dropped() int {
	if e == nil {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dropped
}

// Stop flushes what is queued and stops the writer. Safe to call twice.
func (e *Events) Stop() {
	if e == nil {
		return
	}
	e.once.Do(func() {
		close(e.stop)
		e.wg.Wait()
	})
}

func (e *Events) writer() {
	defer e.wg.Done()

	batch := make([]event, 0, 64)
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	for {
		select {
		case ev := <-e.events:
			batch = append(batch, ev)
			if len(batch) >= flushThreshold {
				e.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				e.flush(batch)
				batch = batch[:0]
			}
		case <-e.stop:
			for {
				select {
				case ev := <-e.events:
					batch = append(batch, ev)
				default:
					e.flush(batch)
					return
				}
			}
		}
	}
}

func (e *Events) flush(batch []event) {
	if e.db == nil || len(batch) == 0 {
		return
	}
	tx, err := e.db.conn.Begin()
	if err != nil {
		log.Printf("events: begin tx error: %v", err)
		return
	}
	defer tx.Rollback()

	stmts := map[eventKind]*sql.Stmt{}
	prepare := func(k eventKind, query string) *sql.Stmt {
		if s, ok := stmts[k]; ok {
			return s
		}
		s, err := tx.Prepare(query)
		if err != nil {
			log.Printf("events: prepare error: %v", err)
			return nil
		}
		stmts[k] = s
		return s
	}
	defer func() {
		for _, s := range stmts {
			s.Close()
		}
	}()

	for _, ev := range batch {
		at := ev.at.Format(time.RFC3339Nano)
		switch ev.kind {
		case evtChat:
			if s := prepare(evtChat, `INSERT INTO chat_messages (sender, message, created_at) VALUES (?, ?, ?)`); s != nil {
				_, err = s.Exec(ev.name, ev.text, at)
			}
		case evtFailedLogin:
			if s := prepare(evtFailedLogin, `INSERT INTO failed_logins (name, ip, created_at) VALUES (?, ?, ?)`); s != nil {
				_, err = s.Exec(ev.name, ev.text, at)
			}
		case evtSession:
			if s := prepare(evtSession, `INSERT INTO game_sessions (id, name, peak_mass, played, eaten_by, ended_at) VALUES (?, ?, ?, ?, ?, ?)`); s != nil {
				_, err = s.Exec(uuid.NewString(), ev.name, ev.peakMass, ev.played.Seconds(), ev.eatenBy, at)
			}
		}
		if err != nil {
			log.Printf("events: insert error: %v", err)
			err = nil
		}
	}
	if err := tx.Commit(); err != nil {
		log.Printf("events: commit error: %v", err)
	}
}
