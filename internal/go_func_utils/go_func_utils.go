package go_func_utils

import (
	"fmt"
	"log"
	"runtime/debug"
	"sync"
)

// SafeGo runs fn on a new goroutine. A panic is written to logger with its stack and re-raised,
// because the curses UI owns stdout and would otherwise swallow the crash report.
func SafeGo(logger *log.Logger, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Printf("PANIC: %v\n%s", r, debug.Stack())
				panic(r)
			}
		}()
		fn()
	}()
}

// SafeGoWG is SafeGo tracked by wg. wg.Add happens before the goroutine starts.
func SafeGoWG(wg *sync.WaitGroup, logger *log.Logger, fn func()) {
	wg.Add(1)
	SafeGo(logger, func() {
		defer wg.Done()
		fn()
	})
}

// Recover runs fn on the calling goroutine and converts a panic into an error.
// Used where one bad input must not take down a long-running loop.
func Recover(logger *log.Logger, what string, fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Printf("PANIC in %s: %v\n%s", what, r, debug.Stack())
			err = fmt.Errorf("%s panicked: %v", what, r)
		}
	}()
	fn()
	return nil
}
