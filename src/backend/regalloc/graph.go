package regalloc

import (
	"fmt"
	"sort"
	"strings"

	"l2c/src/backend/regfile"
	"l2c/src/ir/l2"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Graph is the register interference graph of a function. Nodes are variables identified by their VarID, edges
// are symmetric and never connect a node to itself. Allocatable physical registers are pre-coloured nodes.
type Graph struct {
	f          *l2.Function           // Function resolving node names.
	adj        map[l2.VarID]l2.VarSet // Node to neighbours. Every node has an entry.
	precolored map[l2.VarID]int       // Physical register nodes to their colour.
}

// ---------------------
// ----- Functions -----
// ---------------------

// NewGraph returns an empty interference graph over the variables of Function f.
func NewGraph(f *l2.Function) *Graph {
	return &Graph{
		f:          f,
		adj:        make(map[l2.VarID]l2.VarSet, f.Vars().Len()),
		precolored: make(map[l2.VarID]int, 16),
	}
}

// Build returns the interference graph of Function f from its liveness lv. Every variable referenced by f is a
// node. A variable defined by an instruction interferes with every other variable live out of it. All allocatable
// registers of RegisterFile rf are nodes, pre-coloured with their own colour and mutually interfering. The stack
// pointer is never a node.
func Build(f *l2.Function, lv *l2.Liveness, rf regfile.RegisterFile) *Graph {
	g := NewGraph(f)
	sp, hasSP := f.Vars().Lookup(rf.SP())

	// Physical registers.
	regs := make([]l2.VarID, rf.K())
	for i1 := range regs {
		regs[i1] = f.Vars().Intern(rf.Get(i1).String())
		g.AddNode(regs[i1])
		g.precolored[regs[i1]] = i1
	}
	for i1, e1 := range regs {
		for _, e2 := range regs[i1+1:] {
			g.AddEdge(e1, e2)
		}
	}

	for k := range f.Referenced() {
		if !hasSP || k != sp {
			g.AddNode(k)
		}
	}

	for i1, e1 := range f.Instructions() {
		for d := range e1.Defined() {
			for v := range lv.Out[i1] {
				if hasSP && (v == sp || d == sp) {
					continue
				}
				g.AddEdge(d, v)
			}
		}
	}
	return g
}

// AddNode adds variable id to Graph g, unless it exists.
func (g *Graph) AddNode(id l2.VarID) {
	if _, ok := g.adj[id]; !ok {
		g.adj[id] = make(l2.VarSet, 4)
	}
}

// AddEdge adds the undirected edge (u, v), adding missing nodes. Self edges are ignored.
func (g *Graph) AddEdge(u, v l2.VarID) {
	if u == v {
		return
	}
	g.AddNode(u)
	g.AddNode(v)
	g.adj[u].Add(v)
	g.adj[v].Add(u)
}

// HasEdge returns true if u and v interfere.
func (g *Graph) HasEdge(u, v l2.VarID) bool {
	n, ok := g.adj[u]
	return ok && n.Has(v)
}

// HasNode returns true if id is a node of Graph g.
func (g *Graph) HasNode(id l2.VarID) bool {
	_, ok := g.adj[id]
	return ok
}

// Remove removes node id and all its edges from Graph g.
func (g *Graph) Remove(id l2.VarID) {
	for k := range g.adj[id] {
		delete(g.adj[k], id)
	}
	delete(g.adj, id)
}

// Degree returns the number of neighbours of node id.
func (g *Graph) Degree(id l2.VarID) int {
	return len(g.adj[id])
}

// Neighbors returns the neighbours of node id in ascending VarID order.
func (g *Graph) Neighbors(id l2.VarID) []l2.VarID {
	return g.adj[id].Sorted()
}

// Nodes returns every node in ascending VarID order.
func (g *Graph) Nodes() []l2.VarID {
	res := make([]l2.VarID, 0, len(g.adj))
	for k := range g.adj {
		res = append(res, k)
	}
	sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })
	return res
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.adj)
}

// Precolored returns the colour of a pre-coloured physical register node.
func (g *Graph) Precolored(id l2.VarID) (int, bool) {
	c, ok := g.precolored[id]
	return c, ok
}

// Function returns the function whose variables are the nodes of Graph g.
func (g *Graph) Function() *l2.Function {
	return g.f
}

// Clone returns a deep copy of Graph g. Changes to the copy never affect g.
func (g *Graph) Clone() *Graph {
	c := &Graph{
		f:          g.f,
		adj:        make(map[l2.VarID]l2.VarSet, len(g.adj)),
		precolored: make(map[l2.VarID]int, len(g.precolored)),
	}
	for k, v := range g.adj {
		n := make(l2.VarSet, len(v))
		for k2 := range v {
			n[k2] = struct{}{}
		}
		c.adj[k] = n
	}
	for k, v := range g.precolored {
		c.precolored[k] = v
	}
	return c
}

// String returns the graph in the L2 checker format: one line per node, sorted by name, holding the node name
// followed by its sorted neighbour names.
func (g *Graph) String() string {
	lines := make([]string, 0, len(g.adj))
	for k, v := range g.adj {
		name := g.f.Variable(k).Name
		if len(v) > 0 {
			lines = append(lines, fmt.Sprintf("%s %s", name, v.Format(g.f.Vars())))
		} else {
			lines = append(lines, name)
		}
	}
	sort.Strings(lines)
	sb := strings.Builder{}
	for _, e1 := range lines {
		sb.WriteString(e1)
		sb.WriteRune('\n')
	}
	return sb.String()
}
