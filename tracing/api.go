// Package tracing turns the work done by components into tasks that
// tracers can collect.
//
// A request produces two tasks. The sender's task has the ID
// "<msg>_req_out" and lasts until the response comes back. The receiver's
// task has the ID "<msg>@<receiver>" and lasts until the receiver is done
// with the request. Steps mark decisions made along the way.
package tracing

import (
	"fmt"
	"reflect"

	"github.com/sarchlab/iopmpsim/sim"
)

// NamedHookable is a domain that tasks can be traced in.
type NamedHookable interface {
	sim.Named
	sim.Hookable
	InvokeHook(sim.HookCtx)
}

// Hook positions of task events.
var (
	HookPosTaskStart = &sim.HookPos{Name: "HookPosTaskStart"}
	HookPosTaskStep  = &sim.HookPos{Name: "HookPosTaskStep"}
	HookPosTaskEnd   = &sim.HookPos{Name: "HookPosTaskEnd"}
)

const (
	kindReqOut = "req_out"
	kindReqIn  = "req_in"
)

// emit skips building the hook context when no tracer listens.
func emit(domain NamedHookable, pos *sim.HookPos, task Task) {
	if domain.NumHooks() == 0 {
		return
	}

	domain.InvokeHook(sim.HookCtx{Domain: domain, Pos: pos, Item: task})
}

// StartTask starts a task in a domain. The ID, the kind, the description
// and the name of the domain must not be empty.
func StartTask(
	id, parentID string,
	domain NamedHookable,
	kind, what string,
	detail any,
) {
	if domain.NumHooks() == 0 {
		return
	}

	for field, v := range map[string]string{
		"id":     id,
		"kind":   kind,
		"what":   what,
		"domain": domain.Name(),
	} {
		if v == "" {
			panic(fmt.Sprintf("task %s must not be empty", field))
		}
	}

	emit(domain, HookPosTaskStart, Task{
		ID:       id,
		ParentID: parentID,
		Kind:     kind,
		What:     what,
		Where:    domain.Name(),
		Detail:   detail,
	})
}

func stepTask(id string, domain NamedHookable, what string) {
	emit(domain, HookPosTaskStep, Task{
		ID:    id,
		Steps: []TaskStep{{What: what}},
	})
}

func endTask(id string, domain NamedHookable) {
	emit(domain, HookPosTaskEnd, Task{ID: id})
}

func reqOutID(msg sim.Msg) string {
	return msg.Meta().ID + "_req_out"
}

// MsgIDAtReceiver is the ID of the task that handles msg in domain.
func MsgIDAtReceiver(msg sim.Msg, domain NamedHookable) string {
	return msg.Meta().ID + "@" + domain.Name()
}

// TraceReqInitiate starts the sender's task of a request. parentID links
// it to the task that caused the request, if any.
func TraceReqInitiate(msg sim.Msg, domain NamedHookable, parentID string) {
	StartTask(reqOutID(msg), parentID, domain, kindReqOut,
		reflect.TypeOf(msg).String(), msg)
}

// TraceReqReceive starts the receiver's task of a request.
func TraceReqReceive(msg sim.Msg, domain NamedHookable) {
	StartTask(MsgIDAtReceiver(msg, domain), reqOutID(msg), domain, kindReqIn,
		reflect.TypeOf(msg).String(), msg)
}

// TraceReqStep marks a step in the receiver's task of a request.
func TraceReqStep(msg sim.Msg, domain NamedHookable, what string) {
	stepTask(MsgIDAtReceiver(msg, domain), domain, what)
}

// TraceReqComplete ends the receiver's task of a request.
func TraceReqComplete(msg sim.Msg, domain NamedHookable) {
	endTask(MsgIDAtReceiver(msg, domain), domain)
}

// TraceReqFinalize ends the sender's task once the response has arrived.
func TraceReqFinalize(msg sim.Msg, domain NamedHookable) {
	endTask(reqOutID(msg), domain)
}
