package engine

import (
	"fmt"

	harmoniq "github.com/BobTheZombie/Harmoniq-Studio-sub001"
)

type (
	// NodeSpec describes one node of a graph under construction. Channels is
	// the channel count of the node's output ports; zero means "use the
	// device channel count". OutputPorts zero means one port.
	NodeSpec struct {
		ID          harmoniq.NodeID
		Node        harmoniq.Node
		Channels    int
		OutputPorts int
	}

	// Edge is a directed connection from one node's first output to another
	// node's input list.
	Edge struct {
		From harmoniq.NodeID
		To   harmoniq.NodeID
	}

	// GraphSpec is the edit-time description of an audio graph. It is built
	// on the control thread, validated into a Graph, and the Graph is then
	// handed to the render thread.
	GraphSpec struct {
		Nodes  []NodeSpec
		Edges  []Edge
		Output harmoniq.NodeID

		hasOutput bool
	}

	// graphNode is one installed node: the processor, its resolved input
	// bindings (as topological indices), its port buffers and its
	// plugin-delay compensators, one per input binding.
	graphNode struct {
		id      harmoniq.NodeID
		proc    harmoniq.Node
		spec    NodeSpec
		sources []int
		comps   []*Compensator
		inputs  []*harmoniq.PortBuffer
		outputs []*harmoniq.PortBuffer
	}

	// Graph is a validated, topologically ordered node sequence. Once handed
	// to an Executor it is exclusively owned by the render thread until it
	// is swapped out again.
	Graph struct {
		nodes  []*graphNode
		byID   map[harmoniq.NodeID]int
		output int // topological index of the output node, -1 when empty
	}
)

func (s *GraphSpec) AddNode(id harmoniq.NodeID, node harmoniq.Node) *NodeSpec {
	s.Nodes = append(s.Nodes, NodeSpec{ID: id, Node: node})
	return &s.Nodes[len(s.Nodes)-1]
}

func (s *GraphSpec) Connect(from, to harmoniq.NodeID) {
	s.Edges = append(s.Edges, Edge{From: from, To: to})
}

func (s *GraphSpec) SetOutput(id harmoniq.NodeID) {
	s.Output = id
	s.hasOutput = true
}

// Build validates the spec and returns an executable graph: no duplicate
// node IDs, no edge to a non-existent node, no cycles, exactly one output
// node. The topological order is fixed here with Kahn's algorithm; among
// several zero-indegree candidates the smallest ID is picked, which keeps
// orderings stable and reproducible.
func (s *GraphSpec) Build() (*Graph, error) {
	if len(s.Nodes) == 0 {
		return &Graph{byID: map[harmoniq.NodeID]int{}, output: -1}, nil
	}
	index := make(map[harmoniq.NodeID]int, len(s.Nodes))
	for i, n := range s.Nodes {
		if n.Node == nil {
			return nil, fmt.Errorf("%w: node %d has no processor", ErrGraphInvalid, n.ID)
		}
		if _, dup := index[n.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate node ID %d", ErrGraphInvalid, n.ID)
		}
		index[n.ID] = i
	}
	if !s.hasOutput {
		return nil, fmt.Errorf("%w: no output node designated", ErrGraphInvalid)
	}
	if _, ok := index[s.Output]; !ok {
		return nil, fmt.Errorf("%w: output node %d does not exist", ErrGraphInvalid, s.Output)
	}
	indegree := make([]int, len(s.Nodes))
	succ := make([][]int, len(s.Nodes))
	for _, e := range s.Edges {
		from, ok := index[e.From]
		if !ok {
			return nil, fmt.Errorf("%w: edge from non-existent node %d", ErrGraphInvalid, e.From)
		}
		to, ok := index[e.To]
		if !ok {
			return nil, fmt.Errorf("%w: edge to non-existent node %d", ErrGraphInvalid, e.To)
		}
		succ[from] = append(succ[from], to)
		indegree[to]++
	}

	order := make([]int, 0, len(s.Nodes))
	emitted := make([]bool, len(s.Nodes))
	for len(order) < len(s.Nodes) {
		best := -1
		for i := range s.Nodes {
			if emitted[i] || indegree[i] != 0 {
				continue
			}
			if best == -1 || s.Nodes[i].ID < s.Nodes[best].ID {
				best = i
			}
		}
		if best == -1 {
			return nil, ErrGraphCycle
		}
		emitted[best] = true
		order = append(order, best)
		for _, t := range succ[best] {
			indegree[t]--
		}
	}

	g := &Graph{
		nodes:  make([]*graphNode, len(order)),
		byID:   make(map[harmoniq.NodeID]int, len(order)),
		output: -1,
	}
	topoPos := make([]int, len(s.Nodes))
	for topo, specIdx := range order {
		topoPos[specIdx] = topo
	}
	for topo, specIdx := range order {
		n := s.Nodes[specIdx]
		g.nodes[topo] = &graphNode{id: n.ID, proc: n.Node, spec: n}
		g.byID[n.ID] = topo
	}
	for _, e := range s.Edges {
		to := g.nodes[topoPos[index[e.To]]]
		to.sources = append(to.sources, topoPos[index[e.From]])
	}
	g.output = topoPos[index[s.Output]]
	return g, nil
}

// Node returns the processor installed under the given ID, or nil.
func (g *Graph) Node(id harmoniq.NodeID) harmoniq.Node {
	i, ok := g.byID[id]
	if !ok {
		return nil
	}
	return g.nodes[i].proc
}

// Len reports the number of installed nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// ResetNodes clears the internal state of every node without reallocating,
// including meter hold.
func (g *Graph) ResetNodes() {
	for _, n := range g.nodes {
		n.proc.Reset()
	}
}
