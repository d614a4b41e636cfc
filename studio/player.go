package studio

import (
	"errors"
	"fmt"
	"time"

	harmoniq "github.com/BobTheZombie/Harmoniq-Studio-sub001"
	"github.com/BobTheZombie/Harmoniq-Studio-sub001/engine"
	"github.com/BobTheZombie/Harmoniq-Studio-sub001/midi"
	"github.com/BobTheZombie/Harmoniq-Studio-sub001/rt"
)

// Player owns the live graph and runs the render loop. It is controlled by
// messages from the model via the broker and by MIDI events via the
// dispatcher; it talks back through broker.ToModel, always non-blocking, so
// the render thread can never end up in a deadlock.
type Player struct {
	broker     *Broker
	transport  *engine.Transport
	automation *engine.Automation
	executor   *engine.Executor
	metrics    *rt.Metrics
	dispatcher *midi.Dispatcher

	sampleRate int
	blockSize  int
	channels   int

	// Priority is the SCHED_FIFO priority requested for the render thread.
	Priority int

	mixer *engine.Mixer

	cmdDropsSeen  uint64
	midiDropsSeen uint64
}

func NewPlayer(broker *Broker, sampleRate, blockSize, channels int) (*Player, error) {
	emptyGraph, err := (&engine.GraphSpec{}).Build()
	if err != nil {
		return nil, err
	}
	p := &Player{
		broker:     broker,
		transport:  engine.NewTransport(),
		automation: engine.NewAutomation(1024),
		executor:   engine.NewExecutor(emptyGraph),
		metrics:    &rt.Metrics{},
		sampleRate: sampleRate,
		blockSize:  blockSize,
		channels:   channels,
		Priority:   70,
	}
	if err := p.executor.Prepare(sampleRate, blockSize, channels); err != nil {
		return nil, err
	}
	return p, nil
}

// Transport, Automation and Metrics expose the lock-free control surfaces;
// all three are safe to use from the control thread while the player runs.
func (p *Player) Transport() *engine.Transport   { return p.transport }
func (p *Player) Automation() *engine.Automation { return p.automation }
func (p *Player) Metrics() *rt.Metrics           { return p.metrics }

// SetDispatcher installs the MIDI ingress. Must be called before Run.
func (p *Player) SetDispatcher(d *midi.Dispatcher) { p.dispatcher = d }

// InstallGraph hands a freshly built graph to the render thread. The
// previous graph is returned to the model in a GraphReleasedMsg for
// disposal. mixer may be nil when the graph has none.
func (p *Player) InstallGraph(g *engine.Graph, mixer *engine.Mixer) error {
	if !TrySend[any](p.broker.ToPlayer, GraphMsg{Graph: g, Mixer: mixer}) {
		return engine.ErrOverflow
	}
	return nil
}

// Process renders one block into the interleaved buffer. It drains control
// messages, renders automation updates and MIDI events for the block, pulls
// the graph, advances the transport and publishes a state snapshot.
func (p *Player) Process(buffer []float32) {
	began := time.Now()
	p.processMessages()

	snap := p.transport.Snapshot()
	updates := p.automation.RenderBlock(snap.SamplePos, p.blockSize)
	var events []harmoniq.MIDIEvent
	if p.dispatcher != nil {
		events = p.dispatcher.CollectBlock(p.blockSize)
	}

	if err := p.executor.Process(buffer, snap, updates, events); err != nil {
		zeroBlock(buffer)
		if errors.Is(err, engine.ErrConfigMismatch) {
			if perr := p.executor.Prepare(p.sampleRate, p.blockSize, p.channels); perr != nil {
				p.sendAlert("EngineConfig", perr.Error(), Error)
			}
		} else {
			p.sendAlert("EngineProcess", err.Error(), Error)
		}
	}
	for _, f := range p.executor.Faults() {
		p.sendAlert("NodeFaulted", fmt.Sprintf("node %d: %s", f.Node, f.Reason), Warning)
	}

	p.transport.Advance(p.blockSize)
	if p.dispatcher != nil {
		p.dispatcher.FinishBlock(p.blockSize)
		if d := p.dispatcher.Dropped(); d > p.midiDropsSeen {
			p.metrics.AddMIDIDrops(d - p.midiDropsSeen)
			p.midiDropsSeen = d
		}
	}
	if d := p.automation.Dropped(); d > p.cmdDropsSeen {
		p.metrics.AddCmdDrops(d - p.cmdDropsSeen)
		p.cmdDropsSeen = d
	}
	p.metrics.ObserveBlock(time.Since(began))
	p.send(nil)
}

// Run is the render loop: it configures the realtime thread discipline,
// then renders blocks and pushes them into the sink until ClosePlayer is
// signalled. The sink applies backpressure, which paces the loop.
func (p *Player) Run(sink harmoniq.AudioSink) {
	defer close(p.broker.FinishedPlayer)
	restore := rt.EnableFlushToZero()
	defer restore()
	if err := rt.LockMemory(); err != nil {
		p.sendAlert("MemoryLock", err.Error(), Warning)
	}
	if err := rt.Promote(p.Priority); err != nil {
		p.sendAlert("Scheduling", err.Error(), Warning)
	}
	buffer := make([]float32, p.blockSize*p.channels)
	for {
		select {
		case <-p.broker.ClosePlayer:
			return
		default:
		}
		p.Process(buffer)
		if err := sink.WriteAudio(buffer); err != nil {
			p.sendAlert("DeviceLost", err.Error(), Error)
			return
		}
	}
}

func (p *Player) processMessages() {
loop:
	for {
		select {
		case msg := <-p.broker.ToPlayer:
			switch m := msg.(type) {
			case GraphMsg:
				old := p.executor.Graph()
				next := engine.NewExecutor(m.Graph)
				if err := next.Prepare(p.sampleRate, p.blockSize, p.channels); err != nil {
					p.sendAlert("GraphInstall", err.Error(), Error)
					continue
				}
				m.Graph.ResetNodes() // clear node state and meter hold on swap
				p.executor = next
				p.mixer = m.Mixer
				TrySend(p.broker.ToModel, MsgToModel{Data: GraphReleasedMsg{Graph: old}})
			case StartPlayMsg:
				if m.Pos != nil {
					p.transport.Seek(*m.Pos)
				}
				p.transport.ScheduleStart(0)
			case StopPlayMsg:
				p.transport.ScheduleStop(0)
				p.automation.PlaybackStopped()
			case SeekMsg:
				p.transport.Seek(m.Pos)
			case LoopMsg:
				if m.Enabled {
					p.transport.SetLoop(m.Start, m.End)
				} else {
					p.transport.ClearLoop()
				}
			case *harmoniq.TempoMap:
				p.transport.SetTempoMap(m)
			case PanicMsg:
				p.executor.Graph().ResetNodes()
				p.transport.SetPlaying(false)
				p.automation.PlaybackStopped()
			default:
				// ignore unknown messages
			}
		default:
			break loop
		}
	}
}

func (p *Player) sendAlert(name, message string, priority AlertPriority) {
	TrySend(p.broker.ToModel, MsgToModel{Data: Alert{Name: name, Message: message, Priority: priority}})
}

// send publishes the per-block state snapshot; always non-blocking.
func (p *Player) send(data any) {
	msg := MsgToModel{
		HasEngineState: true,
		SamplePos:      p.transport.Pos(),
		Playing:        p.transport.Playing(),
		Metrics:        p.metrics.Snapshot(),
		Data:           data,
	}
	if p.mixer != nil {
		msg.Levels = p.mixer.Levels()
	}
	TrySend(p.broker.ToModel, msg)
}

func zeroBlock(buf []float32) {
	for i := range buf {
		buf[i] = 0
	}
}
