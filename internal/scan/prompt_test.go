// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scan

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/maezuru/pkg/types"
)

func TestComposeTextOnly(t *testing.T) {
	req := types.ScanRequest{Query: "janedoe", Type: types.SearchUsername}

	p, err := Compose(req, DefaultTemperature)
	require.NoError(t, err)

	assert.Equal(t, SystemInstruction, p.SystemInstruction)
	assert.InDelta(t, 0.1, p.Temperature, 1e-9)
	require.Len(t, p.Parts, 1)
	assert.Nil(t, p.Parts[0].Inline)
	assert.Contains(t, p.Parts[0].Text, `TARGET: "janedoe"`)
	assert.Contains(t, p.Parts[0].Text, "SEARCH TYPE: USERNAME")
	assert.Contains(t, p.Parts[0].Text, "DEEP SCAN: "+StandardScanDirective+"\n")
	assert.NotContains(t, p.Parts[0].Text, DeepScanDirective)
}

func TestComposeDeepScan(t *testing.T) {
	req := types.ScanRequest{Query: "Ana Silva", Type: types.SearchRealName, DeepScan: true}

	p, err := Compose(req, DefaultTemperature)
	require.NoError(t, err)
	require.Len(t, p.Parts, 1)
	assert.Contains(t, p.Parts[0].Text, "DEEP SCAN: "+DeepScanDirective)
	assert.Contains(t, p.Parts[0].Text, "SEARCH TYPE: REALNAME")
}

func TestComposeAttachmentFirst(t *testing.T) {
	att := &types.Attachment{MimeType: "image/png", Data: "iVBORw0KGgo="}
	req := types.ScanRequest{Query: "photo", Type: types.SearchMultimedia, Attachment: att}

	p, err := Compose(req, 0.3)
	require.NoError(t, err)
	require.Len(t, p.Parts, 2)
	assert.Same(t, att, p.Parts[0].Inline)
	assert.Empty(t, p.Parts[0].Text)
	assert.Contains(t, p.Parts[1].Text, "SEARCH TYPE: MULTIMIDIA")
	assert.InDelta(t, 0.3, p.Temperature, 1e-9)
}

func TestSystemInstructionCarriesSchema(t *testing.T) {
	start := strings.Index(SystemInstruction, "```json")
	require.GreaterOrEqual(t, start, 0)

	// The example block in the instruction must itself be parseable.
	_, pd, err := ExtractPersonalData(SystemInstruction[start:])
	require.NoError(t, err)
	require.NotNil(t, pd)
	assert.Equal(t, "Full name found", pd.FullName)
	assert.Equal(t, []string{"email1", "email2"}, pd.Contact.Emails)
	assert.Equal(t, []string{"sibling", "cousin"}, pd.Family.Others)

	for _, key := range []string{"fullName", "cpf", "birthDate", "location", "occupation", "contact", "emails", "phones", "family", "spouse", "children", "parents", "others"} {
		assert.Contains(t, SystemInstruction, `"`+key+`"`)
	}
}
