// Package controller wires together pouch's engine, WAL, and transport
// acceptors, and owns the process lifecycle (spec.md §2, §4.E, §4.F).
// Grounded on the teacher's controller/controller.go (Controller.New /
// ListenAndServe / Shutdown shape), adapted to the spec's single-WAL-file,
// no-snapshot model and its two named transports.
package controller

import (
	"fmt"
	"sync"

	"github.com/mshaverdo/assert"
	"github.com/mshaverdo/pouch/config"
	"github.com/mshaverdo/pouch/core"
	"github.com/mshaverdo/pouch/log"
	"github.com/mshaverdo/pouch/transport"
	"github.com/mshaverdo/pouch/wal"
)

// acceptor is the lifecycle surface shared by transport.TCPServer and
// transport.WSServer.
type acceptor interface {
	ListenAndServe() error
	Close() error
}

// Controller owns an Engine, its WAL, and whichever transport acceptors
// configuration enables.
type Controller struct {
	engine *core.Engine
	wal    *wal.WAL

	acceptors []acceptor

	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New opens (creating if necessary) and replays the WAL named by cfg,
// builds the Engine and the enabled transport acceptors, and returns a
// Controller ready for ListenAndServe.
func New(cfg config.Config) (*Controller, error) {
	w, err := wal.Open(cfg.WALFile)
	if err != nil {
		return nil, fmt.Errorf("controller: open WAL: %w", err)
	}

	engine := core.NewEngine()

	count, err := w.Replay(engine)
	switch {
	case err == nil:
		log.Infof("restored %d entries from WAL", count)
	case err == wal.ErrEmptyLog:
		log.Info("WAL is empty, starting fresh")
	default:
		w.Close()
		return nil, fmt.Errorf("controller: replay WAL: %w", err)
	}

	handler := transport.NewHandler(engine, w)

	var acceptors []acceptor
	if cfg.EnableTCP {
		acceptors = append(acceptors, transport.NewTCPServer(cfg.TCPAddr(), handler))
	}
	if cfg.EnableWS {
		acceptors = append(acceptors, transport.NewWSServer(cfg.WSAddr(), handler))
	}

	return &Controller{engine: engine, wal: w, acceptors: acceptors}, nil
}

// ListenAndServe starts every enabled acceptor and blocks until the first
// one returns an error or Shutdown is called.
func (c *Controller) ListenAndServe() error {
	assert.True(len(c.acceptors) > 0, "controller: no transport acceptor is enabled")

	errs := make(chan error, len(c.acceptors))
	for _, a := range c.acceptors {
		a := a
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			// An acceptor returns nil once Close has stopped it, so a nil
			// result is forwarded too; that is what unblocks the receive
			// below after Shutdown.
			errs <- a.ListenAndServe()
		}()
	}

	err := <-errs
	c.Shutdown()
	return err
}

// Shutdown stops every acceptor and closes the WAL. Safe to call more than
// once.
func (c *Controller) Shutdown() {
	c.stopOnce.Do(func() {
		log.Info("Shutting down pouch...")
		for _, a := range c.acceptors {
			if err := a.Close(); err != nil {
				log.Warningf("controller: close acceptor: %s", err)
			}
		}
		c.wg.Wait()

		if err := c.wal.Close(); err != nil {
			log.Warningf("controller: close WAL: %s", err)
		}
		log.Info("Goodbye!")
	})
}
