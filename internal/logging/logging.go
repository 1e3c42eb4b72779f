// Package logging provides one structured logger per subsystem, built on
// logrus (see DESIGN.md — the teacher repo leaves logging as a TODO; the
// rest of the retrieved corpus standardizes on logrus for exactly this).
package logging

import (
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	once sync.Once
	root *logrus.Logger
)

func initRoot() {
	root = logrus.New()
	root.SetOutput(os.Stderr)
	root.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	root.SetLevel(logrus.InfoLevel)
}

// SetLevel adjusts the root logger's level (wired from config at boot).
func SetLevel(level string) {
	once.Do(initRoot)
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return
	}
	root.SetLevel(lvl)
}

// For returns a logger scoped to a subsystem, e.g. logging.For("cycle").
func For(subsystem string) *logrus.Entry {
	once.Do(initRoot)
	return root.WithField("subsystem", subsystem)
}

// ForMachine returns a logger scoped to a subsystem and a specific machine
// instance, the common case across C6/C7 code.
func ForMachine(subsystem string, vendor, machineType, serial uint16) *logrus.Entry {
	return For(subsystem).WithFields(logrus.Fields{
		"vendor":  vendor,
		"machine": machineType,
		"serial":  serial,
	})
}
