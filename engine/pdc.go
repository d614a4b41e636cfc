package engine

// recomputePDC walks the graph in topological order, accumulating latencies,
// and installs a delay compensator on every input binding whose branch
// arrives earlier than the slowest predecessor of the same merge point. The
// compensators keep parallel signal paths phase-aligned where they sum.
//
// Recompute triggers: first Prepare, graph topology change, a node's
// reported latency changing between Prepare calls, device block-size change.
func (e *Executor) recomputePDC() {
	n := len(e.graph.nodes)
	if n == 0 {
		e.totalLatency = 0
		return
	}
	cumulative := make([]int, n)
	for i, gn := range e.graph.nodes {
		maxPred := 0
		for _, src := range gn.sources {
			if cumulative[src] > maxPred {
				maxPred = cumulative[src]
			}
		}
		for s, src := range gn.sources {
			delay := maxPred - cumulative[src]
			if delay > 0 {
				if gn.comps[s] == nil {
					gn.comps[s] = NewCompensator()
				}
				gn.comps[s].Configure(gn.inputs[s].Channels(), delay, e.blockSize)
			} else {
				gn.comps[s] = nil
			}
		}
		cumulative[i] = e.latencies[i] + maxPred
	}
	e.totalLatency = cumulative[e.output()]
}
