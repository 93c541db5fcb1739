package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/mshaverdo/pouch/config"
	"github.com/mshaverdo/pouch/controller"
	"github.com/mshaverdo/pouch/log"
)

func main() {
	log.SetLevel(log.INFO)

	cfg := config.Load()

	c, err := controller.New(cfg)
	if err != nil {
		log.Critical(err.Error())
		os.Exit(1)
	}

	go handleSignals(c)

	if err := c.ListenAndServe(); err != nil {
		log.Critical(err.Error())
		os.Exit(1)
	}
}

func handleSignals(c *controller.Controller) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	for {
		s := <-sigs
		switch s {
		case syscall.SIGINT, syscall.SIGTERM:
			c.Shutdown()
			return
		}
	}
}
