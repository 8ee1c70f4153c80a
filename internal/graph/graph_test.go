// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package graph

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/maezuru/pkg/types"
)

func web(uri string) types.SourceReference {
	return types.SourceReference{Web: &types.WebSource{URI: uri}}
}

func TestRegistrableDomain(t *testing.T) {
	tests := []struct {
		uri  string
		want string
	}{
		{"https://www.instagram.com/ana", "instagram.com"},
		{"https://a.b.example.co.uk/x", "example.co.uk"},
		{"https://br.LinkedIn.com/in/ana", "linkedin.com"},
		{"https://www.jusbrasil.com.br/processos/1", "jusbrasil.com.br"},
		{"not a url", "WEB"},
		{"", "WEB"},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			assert.Equal(t, tt.want, RegistrableDomain(tt.uri))
		})
	}
}

func TestBuildEmptyResult(t *testing.T) {
	g := Build(types.ScanResult{})

	require.Len(t, g.Nodes, 1)
	assert.Equal(t, Node{ID: TargetID, Kind: KindTarget, Label: "TARGET"}, g.Nodes[0])
	assert.Empty(t, g.Edges)
}

func TestBuildProfilesAndSources(t *testing.T) {
	r := types.ScanResult{
		PersonalData: &types.PersonalData{FullName: "Ana Silva"},
		FoundProfiles: []types.DiscoveredProfile{
			{Platform: "Instagram", URL: "https://instagram.com/ana"},
			{Platform: "Web", URL: "https://example.org/ana"},
		},
		Sources: []types.SourceReference{
			web("https://instagram.com/ana"),
			web("https://www.instagram.com/p/1"),
			web("https://example.org/ana"),
			{Maps: &types.MapsSource{URI: "https://maps.google.com/?cid=1"}},
		},
	}

	g := Build(r)

	assert.Equal(t, "Ana Silva", g.Nodes[0].Label)
	require.Len(t, g.Nodes, 6)
	assert.Equal(t, KindProfile, g.Nodes[1].Kind)
	assert.Equal(t, "Instagram", g.Nodes[1].Label)
	assert.Equal(t, "https://instagram.com/ana", g.Nodes[1].URL)

	assert.Equal(t, Node{ID: "source-0", Kind: KindSource, Label: "instagram.com", Weight: 2}, g.Nodes[3])
	assert.Equal(t, Node{ID: "source-1", Kind: KindSource, Label: "example.org", Weight: 1}, g.Nodes[4])
	assert.Equal(t, Node{ID: "source-2", Kind: KindSource, Label: "google.com", Weight: 1}, g.Nodes[5])

	require.Len(t, g.Edges, 5)
	for i, e := range g.Edges {
		assert.Equal(t, TargetID, e.From)
		assert.Equal(t, g.Nodes[i+1].ID, e.To)
	}
}

func TestBuildCapsSources(t *testing.T) {
	var sources []types.SourceReference
	for i := 0; i < 20; i++ {
		sources = append(sources, web(fmt.Sprintf("https://site%d.com/", i)))
	}

	g := Build(types.ScanResult{Sources: sources})
	require.Len(t, g.Nodes, 1+MaxSources)
	assert.Equal(t, "site7.com", g.Nodes[MaxSources].Label)
}

func TestWriteDOT(t *testing.T) {
	r := types.ScanResult{
		PersonalData:  &types.PersonalData{FullName: `Ana "A" Silva`},
		FoundProfiles: []types.DiscoveredProfile{{Platform: "LinkedIn", URL: "https://linkedin.com/in/ana"}},
		Sources:       []types.SourceReference{web("https://a.example.com"), web("https://b.example.com")},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteDOT(&buf, Build(r)))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "digraph maezuru"))
	assert.Contains(t, out, "rankdir")
	assert.Contains(t, out, `Ana \"A\" Silva`)
	assert.Contains(t, out, "doublecircle")
	assert.Contains(t, out, `"LinkedIn"`)
	assert.Contains(t, out, `"https://linkedin.com/in/ana"`)
	assert.Contains(t, out, `"example.com (2)"`)
	assert.Contains(t, out, "ellipse")
	assert.Equal(t, 2, strings.Count(out, "->"))
}
