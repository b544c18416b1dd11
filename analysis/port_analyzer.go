package analysis

import (
	"math"
	"sort"

	"github.com/sarchlab/iopmpsim/sim"
)

type portTraffic struct {
	remotePort     sim.RemotePort
	OutTrafficByte int64
	OutTrafficMsg  int64
	InTrafficByte  int64
	InTrafficMsg   int64
}

// PortAnalyzer is a hook that counts the messages and bytes passing through
// a port, per remote port.
type PortAnalyzer struct {
	PerfLogger
	sim.TimeTeller

	usePeriod bool
	period    sim.VTimeInSec
	port      sim.Port

	lastTime sim.VTimeInSec
	traffic  map[sim.RemotePort]portTraffic
}

// Func counts a message sent or received by the port.
func (h *PortAnalyzer) Func(ctx sim.HookCtx) {
	if ctx.Pos != sim.HookPosPortMsgSend && ctx.Pos != sim.HookPosPortMsgRecvd {
		return
	}

	msg, ok := ctx.Item.(sim.Msg)
	if !ok {
		return
	}

	now := h.CurrentTime()

	if h.usePeriod && now >= h.periodEndTime(h.lastTime) {
		h.Summarize()
	}

	if h.traffic == nil {
		h.traffic = make(map[sim.RemotePort]portTraffic)
	}

	incoming := msg.Meta().Dst == h.port.AsRemote()

	remote := msg.Meta().Dst
	if incoming {
		remote = msg.Meta().Src
	}

	entry := h.traffic[remote]
	entry.remotePort = remote

	if incoming {
		entry.InTrafficByte += int64(msg.Meta().TrafficBytes)
		entry.InTrafficMsg++
	} else {
		entry.OutTrafficByte += int64(msg.Meta().TrafficBytes)
		entry.OutTrafficMsg++
	}

	h.traffic[remote] = entry
	h.lastTime = now
}

// Summarize reports the traffic counted so far and starts counting again.
func (h *PortAnalyzer) Summarize() {
	if len(h.traffic) == 0 {
		return
	}

	startTime := sim.VTimeInSec(0)
	endTime := h.CurrentTime()

	if h.usePeriod {
		startTime = h.periodStartTime(h.lastTime)
		endTime = min(h.periodEndTime(h.lastTime), endTime)
	}

	remotes := make([]sim.RemotePort, 0, len(h.traffic))
	for r := range h.traffic {
		remotes = append(remotes, r)
	}

	sort.Slice(remotes, func(i, j int) bool { return remotes[i] < remotes[j] })

	for _, r := range remotes {
		h.report(h.traffic[r], startTime, endTime)
	}

	h.traffic = make(map[sim.RemotePort]portTraffic)
}

func (h *PortAnalyzer) report(
	t portTraffic,
	startTime, endTime sim.VTimeInSec,
) {
	entry := PerfEntry{
		StartTime:  float64(startTime),
		EndTime:    float64(endTime),
		Port:       h.port.Name(),
		RemotePort: string(t.remotePort),
	}

	if t.InTrafficMsg != 0 {
		entry.What = "Incoming"
		entry.Value = float64(t.InTrafficByte)
		entry.Unit = "Byte"
		h.AddDataEntry(entry)

		entry.Value = float64(t.InTrafficMsg)
		entry.Unit = "Msg"
		h.AddDataEntry(entry)
	}

	if t.OutTrafficMsg != 0 {
		entry.What = "Outgoing"
		entry.Value = float64(t.OutTrafficByte)
		entry.Unit = "Byte"
		h.AddDataEntry(entry)

		entry.Value = float64(t.OutTrafficMsg)
		entry.Unit = "Msg"
		h.AddDataEntry(entry)
	}
}

func (h *PortAnalyzer) periodStartTime(t sim.VTimeInSec) sim.VTimeInSec {
	return sim.VTimeInSec(math.Floor(float64(t/h.period))) * h.period
}

func (h *PortAnalyzer) periodEndTime(t sim.VTimeInSec) sim.VTimeInSec {
	return h.periodStartTime(t) + h.period
}

// PortAnalyzerBuilder can build a PortAnalyzer.
type PortAnalyzerBuilder struct {
	perfLogger PerfLogger
	timeTeller sim.TimeTeller
	usePeriod  bool
	period     sim.VTimeInSec
	port       sim.Port
}

// MakePortAnalyzerBuilder creates a PortAnalyzerBuilder.
func MakePortAnalyzerBuilder() PortAnalyzerBuilder {
	return PortAnalyzerBuilder{}
}

// WithPerfLogger sets where the summaries go.
func (b PortAnalyzerBuilder) WithPerfLogger(l PerfLogger) PortAnalyzerBuilder {
	b.perfLogger = l
	return b
}

// WithTimeTeller sets the TimeTeller to be used by the PortAnalyzer.
func (b PortAnalyzerBuilder) WithTimeTeller(
	t sim.TimeTeller,
) PortAnalyzerBuilder {
	b.timeTeller = t
	return b
}

// WithPeriod sets the length of each summarized period.
func (b PortAnalyzerBuilder) WithPeriod(p sim.VTimeInSec) PortAnalyzerBuilder {
	b.usePeriod = true
	b.period = p

	return b
}

// WithPort sets the port to measure.
func (b PortAnalyzerBuilder) WithPort(p sim.Port) PortAnalyzerBuilder {
	b.port = p
	return b
}

// Build creates a PortAnalyzer.
func (b PortAnalyzerBuilder) Build() *PortAnalyzer {
	if b.perfLogger == nil {
		panic("PortAnalyzer requires a PerfLogger")
	}

	if b.timeTeller == nil {
		panic("PortAnalyzer requires a TimeTeller")
	}

	if b.port == nil {
		panic("PortAnalyzer requires a Port")
	}

	if b.usePeriod && b.period <= 0 {
		panic("PortAnalyzer period must be positive")
	}

	return &PortAnalyzer{
		PerfLogger: b.perfLogger,
		TimeTeller: b.timeTeller,
		usePeriod:  b.usePeriod,
		period:     b.period,
		port:       b.port,
	}
}
