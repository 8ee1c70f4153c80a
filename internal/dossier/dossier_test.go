// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dossier

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/maezuru/pkg/types"
)

func fullResult() types.ScanResult {
	return types.ScanResult{
		Summary: "Ana works in Recife.\nSee sources.",
		PersonalData: &types.PersonalData{
			FullName:   "Ana  Maria\tSilva",
			CPF:        "123.456.789-00",
			Location:   "Recife/PE",
			Occupation: "Engineer",
			Family: types.Family{
				Spouse:   "João Silva",
				Children: []string{"Lia", "Rui"},
			},
		},
		FoundProfiles: []types.DiscoveredProfile{
			{Platform: "Instagram", URL: "https://instagram.com/ana", Confidence: types.ConfidenceHigh},
		},
	}
}

func render(t *testing.T, r types.ScanResult) *goquery.Document {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, r))
	doc, err := goquery.NewDocumentFromReader(&buf)
	require.NoError(t, err)
	return doc
}

func field(doc *goquery.Document, id string) string {
	text := doc.Find("#" + id).Text()
	_, value, _ := strings.Cut(text, ":")
	return strings.TrimSpace(value)
}

func TestRenderFullResult(t *testing.T) {
	doc := render(t, fullResult())

	assert.Equal(t, "DOSSIER - Ana  Maria\tSilva", doc.Find("title").Text())
	assert.Equal(t, "123.456.789-00", field(doc, "cpf"))
	assert.Equal(t, "Recife/PE", field(doc, "location"))
	assert.Equal(t, "Engineer", field(doc, "occupation"))
	assert.Equal(t, "João Silva", field(doc, "spouse"))
	assert.Equal(t, "Lia, Rui", field(doc, "children"))
	assert.Equal(t, "Ana works in Recife.\nSee sources.", doc.Find("#report pre").Text())
}

func TestRenderWithoutPersonalData(t *testing.T) {
	doc := render(t, types.ScanResult{Summary: "Target not located."})

	assert.Equal(t, "DOSSIER - TARGET", doc.Find("title").Text())
	for _, id := range []string{"name", "cpf", "location", "occupation", "spouse", "children"} {
		assert.Equal(t, "N/A", field(doc, id), id)
	}
}

func TestRenderPartialPersonalData(t *testing.T) {
	doc := render(t, types.ScanResult{PersonalData: &types.PersonalData{Location: "Natal"}})

	assert.Equal(t, "DOSSIER - TARGET", doc.Find("title").Text())
	assert.Equal(t, "N/A", field(doc, "name"))
	assert.Equal(t, "Natal", field(doc, "location"))
	assert.Equal(t, "N/A", field(doc, "children"))
}

func TestRenderEscapesValues(t *testing.T) {
	r := types.ScanResult{
		Summary:      "<script>alert(1)</script>",
		PersonalData: &types.PersonalData{FullName: `<b>Eve</b>`},
	}

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, r))
	out := buf.String()
	assert.NotContains(t, out, "<script>")
	assert.NotContains(t, out, "<b>Eve</b>")

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "<script>alert(1)</script>", doc.Find("#report pre").Text())
	assert.Equal(t, 0, doc.Find("#report script").Length())
}

func TestFileName(t *testing.T) {
	tests := []struct {
		name string
		r    types.ScanResult
		want string
	}{
		{"whitespace replaced", fullResult(), "DOSSIER_Ana__Maria_Silva.html"},
		{"no personal data", types.ScanResult{}, "DOSSIER_TARGET.html"},
		{"empty name", types.ScanResult{PersonalData: &types.PersonalData{}}, "DOSSIER_TARGET.html"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FileName(tt.r))
		})
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, fullResult()))

	var got types.ScanResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "Engineer", got.PersonalData.Occupation)
	assert.Contains(t, buf.String(), `"found_profiles"`)
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteYAML(&buf, fullResult()))

	var got types.ScanResult
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "Recife/PE", got.PersonalData.Location)
	assert.Equal(t, types.ConfidenceHigh, got.FoundProfiles[0].Confidence)
}

func TestWriteFilePicksFormat(t *testing.T) {
	dir := t.TempDir()
	r := fullResult()

	for _, name := range []string{"out.json", "out.yaml", "out.html"} {
		require.NoError(t, WriteFile(filepath.Join(dir, name), r))
	}

	data, err := os.ReadFile(filepath.Join(dir, "out.json"))
	require.NoError(t, err)
	assert.True(t, json.Valid(data))

	data, err = os.ReadFile(filepath.Join(dir, "out.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "summary:")

	data, err = os.ReadFile(filepath.Join(dir, "out.html"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "<!DOCTYPE html>"))
}
