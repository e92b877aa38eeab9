package main

import (
	"fmt"

	"github.com/wrench-sim/wrench/pkg/types"
)

// causer is satisfied by every failure.* sentinel; it tags an error
// with a stable, loggable reason code.
type causer interface {
	Cause() string
}

func printEvent(e *types.Event) {
	id := e.JobID
	if id == "" {
		id = e.InvocationID
	}
	switch {
	case e.Cause != nil:
		reason := e.Cause.Error()
		if c, ok := e.Cause.(causer); ok {
			reason = c.Cause()
		}
		fmt.Printf("[%s] %-28s id=%s cause=%s\n", e.Date.Format("15:04:05"), e.Kind, id, reason)
	case e.Kind == types.EventFunctionInvocationComplete:
		fmt.Printf("[%s] %-28s id=%s success=%v\n", e.Date.Format("15:04:05"), e.Kind, id, e.Success)
	default:
		fmt.Printf("[%s] %-28s id=%s\n", e.Date.Format("15:04:05"), e.Kind, id)
	}
}
