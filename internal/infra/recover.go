package infra

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

var restartDelay = 5 * time.Second

// GoRecoverable runs f and restarts it after a panic. maxPanics < 0 restarts forever,
// maxPanics == 0 exits the process on the next panic.
func GoRecoverable(maxPanics int, id string, f func()) {
	defer func() {
		if err := recover(); err != nil {
			entry := log.WithField("job", id)
			entry.Errorf("job panics with message: %s, %s", err, identifyPanic())
			if maxPanics == 0 {
				entry.Fatal("panics limit exceeded, exiting")
			}
			if maxPanics > 0 {
				maxPanics--
				entry.Debugf("recovering job with max panics left: %d", maxPanics)
			} else {
				entry.Debug("recovering job")
			}
			time.Sleep(restartDelay)
			go GoRecoverable(maxPanics, id, f)
		}
	}()
	f()
}

// CatchPanic must be deferred directly. It stops a panic from leaving the goroutine and logs it.
func CatchPanic(id string) {
	if err := recover(); err != nil {
		log.WithField("job", id).Errorf("recovered panic: %v, %s", err, identifyPanic())
	}
}

func identifyPanic() string {
	var name, file string
	var line int
	var pc [16]uintptr

	n := runtime.Callers(3, pc[:])
	for _, pc := range pc[:n] {
		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}
		file, line = fn.FileLine(pc)
		name = fn.Name()
		if !strings.HasPrefix(name, "runtime.") {
			break
		}
	}

	switch {
	case name != "":
		return fmt.Sprintf("%v:%v", name, line)
	case file != "":
		return fmt.Sprintf("%v:%v", file, line)
	}

	return fmt.Sprintf("pc:%x", pc)
}
