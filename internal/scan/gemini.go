// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scan

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/pdiddy/maezuru/pkg/types"
)

// AIBackend abstracts the search-grounded generation API so tests can supply
// a mock. One call per scan; implementations must not retry.
type AIBackend interface {
	Generate(ctx context.Context, p Prompt) (Response, error)
}

// Response is the raw output of one generation call.
type Response struct {
	// Text is the narrative report, structured block included.
	Text string

	// Sources are the grounding citations in the order the API returned them.
	Sources []types.SourceReference
}

const (
	// DefaultModel is used when no model is configured.
	DefaultModel = "gemini-2.5-flash"

	// geminiAPIURL is the public Generative Language API base.
	geminiAPIURL = "https://generativelanguage.googleapis.com/v1beta"
)

// httpDoer is the subset of *http.Client the backend uses.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// GeminiBackend calls the Gemini generateContent endpoint with Google Search
// and Google Maps grounding enabled.
type GeminiBackend struct {
	APIKey   string
	Model    string
	Endpoint string
	Client   httpDoer
}

type geminiRequest struct {
	SystemInstruction geminiContent          `json:"systemInstruction"`
	Contents          []geminiContent        `json:"contents"`
	Tools             []map[string]struct{}  `json:"tools"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiGenerationConfig struct {
	Temperature float64 `json:"temperature"`
}

// Generate sends p to the API and returns the first candidate's text and
// grounding chunks.
func (g *GeminiBackend) Generate(ctx context.Context, p Prompt) (Response, error) {
	bodyBytes, err := json.Marshal(buildGeminiRequest(p))
	if err != nil {
		return Response{}, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url(), bytes.NewReader(bodyBytes))
	if err != nil {
		return Response{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.APIKey)

	var client httpDoer = http.DefaultClient
	if g.Client != nil {
		client = g.Client
	}

	resp, err := client.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("calling Gemini API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("reading Gemini response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if msg := gjson.GetBytes(body, "error.message").String(); msg != "" {
			return Response{}, fmt.Errorf("Gemini API returned %d: %s", resp.StatusCode, msg)
		}
		return Response{}, fmt.Errorf("Gemini API returned %d", resp.StatusCode)
	}

	return parseGeminiResponse(body)
}

func (g *GeminiBackend) url() string {
	base := strings.TrimRight(g.Endpoint, "/")
	if base == "" {
		base = geminiAPIURL
	}
	model := g.Model
	if model == "" {
		model = DefaultModel
	}
	return fmt.Sprintf("%s/models/%s:generateContent", base, url.PathEscape(model))
}

func buildGeminiRequest(p Prompt) geminiRequest {
	parts := make([]geminiPart, 0, len(p.Parts))
	for _, part := range p.Parts {
		if part.Inline != nil {
			parts = append(parts, geminiPart{InlineData: &geminiInlineData{
				MimeType: part.Inline.MimeType,
				Data:     part.Inline.Data,
			}})
			continue
		}
		parts = append(parts, geminiPart{Text: part.Text})
	}

	return geminiRequest{
		SystemInstruction: geminiContent{Parts: []geminiPart{{Text: p.SystemInstruction}}},
		Contents:          []geminiContent{{Role: "user", Parts: parts}},
		Tools: []map[string]struct{}{
			{"googleSearch": {}},
			{"googleMaps": {}},
		},
		GenerationConfig: geminiGenerationConfig{Temperature: p.Temperature},
	}
}

// parseGeminiResponse reads candidates[0]: the text parts concatenated and
// the grounding chunks converted to SourceReferences.
func parseGeminiResponse(body []byte) (Response, error) {
	if !gjson.ValidBytes(body) {
		return Response{}, fmt.Errorf("decoding Gemini response: invalid JSON")
	}

	candidate := gjson.GetBytes(body, "candidates.0")
	if !candidate.Exists() {
		return Response{}, fmt.Errorf("Gemini API returned no candidates")
	}

	var text strings.Builder
	for _, part := range candidate.Get("content.parts").Array() {
		if t := part.Get("text"); t.Exists() {
			text.WriteString(t.String())
		}
	}

	var sources []types.SourceReference
	for _, chunk := range candidate.Get("groundingMetadata.groundingChunks").Array() {
		var ref types.SourceReference
		if web := chunk.Get("web"); web.IsObject() {
			ref.Web = &types.WebSource{
				URI:   web.Get("uri").String(),
				Title: web.Get("title").String(),
			}
		}
		if maps := chunk.Get("maps"); maps.IsObject() {
			ref.Maps = &types.MapsSource{
				URI:     maps.Get("uri").String(),
				Title:   maps.Get("title").String(),
				PlaceID: maps.Get("placeId").String(),
			}
		}
		sources = append(sources, ref)
	}

	return Response{Text: text.String(), Sources: sources}, nil
}
