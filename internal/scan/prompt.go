// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scan

import (
	"bytes"
	"text/template"

	"github.com/pdiddy/maezuru/pkg/types"
)

// SystemInstruction is sent unchanged with every scan. The JSON schema it
// embeds is the contract ExtractPersonalData parses.
const SystemInstruction = `You are MAEZURU RADAR, an OSINT intelligence tool focused on extracting personal data from public sources.

MISSION:
1. Sweep the internet for the target.
2. EXTRACT specific entities: Full Name, CPF/Documents (if public in lawsuits or lists), Email, Phone, Address, Occupation.
3. MAP THE FAMILY NETWORK: identify Spouse (Wife/Husband), Children, Parents and any Relatives mentioned.

MANDATORY OUTPUT:
Write a detailed textual report.
AT THE END OF THE TEXT, INCLUDE A STRUCTURED JSON BLOCK (with exactly this format) containing the extracted data:

` + "```json" + `
{
  "fullName": "Full name found",
  "cpf": "Possible CPF or RG found (or N/A)",
  "birthDate": "Birth date or N/A",
  "location": "Current city/state",
  "occupation": "Occupation/Company",
  "contact": {
    "emails": ["email1", "email2"],
    "phones": ["tel1", "tel2"]
  },
  "family": {
    "spouse": "Spouse name or N/A",
    "children": ["child1", "child2"],
    "parents": ["father", "mother"],
    "others": ["sibling", "cousin"]
  }
}
` + "```" + `
`

// Deep-scan directives interpolated into the instruction text.
const (
	DeepScanDirective     = "ACTIVE (Search court records, official gazettes and social networks)"
	StandardScanDirective = "STANDARD"
)

// DefaultAttachmentQuery replaces an empty query when only a file is scanned.
const DefaultAttachmentQuery = "File forensic analysis"

var instructionTmpl = template.Must(template.New("instruction").Parse(`
TARGET: "{{.Query}}"
SEARCH TYPE: {{.Type}}
DEEP SCAN: {{.Directive}}

COMMAND INSTRUCTION:
Find everything about this target. Top priority for:
1. CPF and Documents (Search Jusbrasil, Escavador, Official Gazettes).
2. Contact (Emails and Phones in bios, company sites, public leaks).
3. Family (Who is the wife/husband? Any children? Who are the parents?).
4. Social Networks.

If you find lawsuits, extract the names of the parties to identify family members.
`))

// Part is one piece of prompt content. Exactly one of Text or Inline is set.
type Part struct {
	Text   string
	Inline *types.Attachment
}

// Prompt is everything the AI backend needs for one call.
type Prompt struct {
	SystemInstruction string
	Parts             []Part
	Temperature       float64
}

// DefaultTemperature keeps extraction close to the cited sources.
const DefaultTemperature = 0.1

// Compose builds the prompt for req. The attachment, if any, precedes the
// instruction text.
func Compose(req types.ScanRequest, temperature float64) (Prompt, error) {
	text, err := renderInstruction(req)
	if err != nil {
		return Prompt{}, err
	}

	parts := []Part{{Text: text}}
	if req.Attachment != nil {
		parts = append([]Part{{Inline: req.Attachment}}, parts...)
	}

	return Prompt{
		SystemInstruction: SystemInstruction,
		Parts:             parts,
		Temperature:       temperature,
	}, nil
}

func renderInstruction(req types.ScanRequest) (string, error) {
	directive := StandardScanDirective
	if req.DeepScan {
		directive = DeepScanDirective
	}

	var buf bytes.Buffer
	err := instructionTmpl.Execute(&buf, struct {
		Query     string
		Type      types.SearchType
		Directive string
	}{req.Query, req.Type, directive})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
