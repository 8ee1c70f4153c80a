// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dossier renders a ScanResult for offline use: a standalone HTML
// dossier and YAML or JSON exports of the full result.
package dossier

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/maezuru/pkg/types"
)

const (
	// fallbackName stands in for a missing full name in titles and file names.
	fallbackName = "TARGET"

	// missing is shown for every absent field.
	missing = "N/A"
)

var whitespace = regexp.MustCompile(`\s`)

var dossierTmpl = template.Must(template.New("dossier").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>DOSSIER - {{.Title}}</title>
<style>
body { font-family: monospace; background: #eee; padding: 20px; }
.box { background: #fff; padding: 20px; border: 1px solid #999; margin-bottom: 20px; }
h1 { border-bottom: 2px solid #000; }
.field { margin-bottom: 5px; }
.label { font-weight: bold; }
</style>
</head>
<body>
<h1>INVESTIGATIVE DOSSIER</h1>
<div class="box" id="personal">
<h2>PERSONAL DATA</h2>
<div class="field" id="name"><span class="label">NAME:</span> {{.Name}}</div>
<div class="field" id="cpf"><span class="label">CPF/DOC:</span> {{.CPF}}</div>
<div class="field" id="location"><span class="label">LOCATION:</span> {{.Location}}</div>
<div class="field" id="occupation"><span class="label">OCCUPATION:</span> {{.Occupation}}</div>
</div>
<div class="box" id="family">
<h2>FAMILY</h2>
<div class="field" id="spouse"><span class="label">SPOUSE:</span> {{.Spouse}}</div>
<div class="field" id="children"><span class="label">CHILDREN:</span> {{.Children}}</div>
</div>
<div class="box" id="report">
<h2>REPORT</h2>
<pre>{{.Summary}}</pre>
</div>
</body>
</html>
`))

type view struct {
	Title      string
	Name       string
	CPF        string
	Location   string
	Occupation string
	Spouse     string
	Children   string
	Summary    string
}

func newView(r types.ScanResult) view {
	v := view{
		Title:      fallbackName,
		Name:       missing,
		CPF:        missing,
		Location:   missing,
		Occupation: missing,
		Spouse:     missing,
		Children:   missing,
		Summary:    r.Summary,
	}
	pd := r.PersonalData
	if pd == nil {
		return v
	}
	if pd.FullName != "" {
		v.Title = pd.FullName
	}
	v.Name = orMissing(pd.FullName)
	v.CPF = orMissing(pd.CPF)
	v.Location = orMissing(pd.Location)
	v.Occupation = orMissing(pd.Occupation)
	v.Spouse = orMissing(pd.Family.Spouse)
	v.Children = orMissing(strings.Join(pd.Family.Children, ", "))
	return v
}

func orMissing(s string) string {
	if s == "" {
		return missing
	}
	return s
}

// Render writes the HTML dossier for r. All values are HTML-escaped.
func Render(w io.Writer, r types.ScanResult) error {
	if err := dossierTmpl.Execute(w, newView(r)); err != nil {
		return fmt.Errorf("rendering dossier: %w", err)
	}
	return nil
}

// FileName returns the download name for r's dossier, with whitespace in the
// full name replaced by underscores.
func FileName(r types.ScanResult) string {
	name := fallbackName
	if r.PersonalData != nil && r.PersonalData.FullName != "" {
		name = whitespace.ReplaceAllString(r.PersonalData.FullName, "_")
	}
	return "DOSSIER_" + name + ".html"
}

// WriteYAML writes r as YAML.
func WriteYAML(w io.Writer, r types.ScanResult) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// WriteJSON writes r as indented JSON.
func WriteJSON(w io.Writer, r types.ScanResult) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// WriteFile writes r to path. The format follows the extension: .json for
// JSON, .html or .htm for the dossier, YAML otherwise.
func WriteFile(path string, r types.ScanResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = WriteJSON(f, r)
	case ".html", ".htm":
		err = Render(f, r)
	default:
		err = WriteYAML(f, r)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}
