// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package graph reduces a ScanResult to a star-shaped link graph around the
// target: one node per discovered profile and one per cited domain.
package graph

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/emicklei/dot"
	"github.com/weppos/publicsuffix-go/publicsuffix"

	"github.com/pdiddy/maezuru/pkg/types"
)

// MaxSources caps how many citations contribute source nodes.
const MaxSources = 8

// NodeKind tags a node's role in the graph.
type NodeKind string

const (
	KindTarget  NodeKind = "target"
	KindProfile NodeKind = "profile"
	KindSource  NodeKind = "source"
)

// TargetID is the ID of the central node.
const TargetID = "target"

// Node is one vertex of the graph.
type Node struct {
	ID    string   `json:"id"`
	Kind  NodeKind `json:"kind"`
	Label string   `json:"label"`
	URL   string   `json:"url,omitempty"`

	// Weight counts the citations merged into a source node.
	Weight int `json:"weight,omitempty"`
}

// Edge links the target to a node.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Graph is the built link graph. Nodes[0] is always the target.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Build returns the graph for r. Only the first MaxSources citations are
// considered; those sharing a registrable domain collapse into one node.
func Build(r types.ScanResult) Graph {
	label := "TARGET"
	if r.PersonalData != nil && r.PersonalData.FullName != "" {
		label = r.PersonalData.FullName
	}
	g := Graph{Nodes: []Node{{ID: TargetID, Kind: KindTarget, Label: label}}}

	for i, p := range r.FoundProfiles {
		g.add(Node{
			ID:    fmt.Sprintf("profile-%d", i),
			Kind:  KindProfile,
			Label: p.Platform,
			URL:   p.URL,
		})
	}

	sources := r.Sources
	if len(sources) > MaxSources {
		sources = sources[:MaxSources]
	}
	byDomain := make(map[string]int)
	for _, s := range sources {
		domain := RegistrableDomain(s.URI())
		if idx, ok := byDomain[domain]; ok {
			g.Nodes[idx].Weight++
			continue
		}
		byDomain[domain] = len(g.Nodes)
		g.add(Node{
			ID:     fmt.Sprintf("source-%d", len(byDomain)-1),
			Kind:   KindSource,
			Label:  domain,
			Weight: 1,
		})
	}

	return g
}

func (g *Graph) add(n Node) {
	g.Nodes = append(g.Nodes, n)
	g.Edges = append(g.Edges, Edge{From: TargetID, To: n.ID})
}

// RegistrableDomain returns the public-suffix-aware domain of uri's host,
// e.g. "example.co.uk" for "https://a.b.example.co.uk/x". It falls back to
// the bare host, or "WEB" when uri has none.
func RegistrableDomain(uri string) string {
	u, err := url.Parse(uri)
	if err != nil || u.Hostname() == "" {
		return "WEB"
	}
	host := strings.ToLower(u.Hostname())
	domain, err := publicsuffix.Domain(host)
	if err != nil {
		return host
	}
	return domain
}

// WriteDOT renders g in Graphviz DOT.
func WriteDOT(w io.Writer, g Graph) error {
	dg := dot.NewGraph(dot.Directed)
	dg.ID("maezuru")
	dg.Attr("rankdir", "LR")

	nodes := make(map[string]dot.Node, len(g.Nodes))
	for _, n := range g.Nodes {
		label := n.Label
		if n.Weight > 1 {
			label = fmt.Sprintf("%s (%d)", label, n.Weight)
		}
		dn := dg.Node(n.ID).Label(label).Attr("shape", shape(n.Kind))
		if n.URL != "" {
			dn = dn.Attr("URL", n.URL)
		}
		nodes[n.ID] = dn
	}
	for _, e := range g.Edges {
		dg.Edge(nodes[e.From], nodes[e.To])
	}

	_, err := io.WriteString(w, dg.String())
	return err
}

func shape(k NodeKind) string {
	switch k {
	case KindTarget:
		return "doublecircle"
	case KindProfile:
		return "box"
	default:
		return "ellipse"
	}
}
