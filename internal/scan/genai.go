// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scan

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"

	"google.golang.org/genai"

	"github.com/pdiddy/maezuru/pkg/types"
)

// GenAIConfig configures a GenAIBackend.
type GenAIConfig struct {
	APIKey string
	Model  string

	// BaseURL overrides the API host. Unlike GeminiBackend.Endpoint it
	// carries no API version; the SDK appends it.
	BaseURL string

	HTTPClient *http.Client
}

// GenAIBackend is the AIBackend built on the official Google Gen AI SDK.
// It sends the same grounded request as GeminiBackend.
type GenAIBackend struct {
	client *genai.Client
	model  string
}

// NewGenAIBackend creates the SDK client against the Gemini API.
func NewGenAIBackend(ctx context.Context, cfg GenAIConfig) (*GenAIBackend, error) {
	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &GenAIBackend{client: client, model: model}, nil
}

// Generate sends p and returns the response text and grounding chunks of the
// first candidate.
func (g *GenAIBackend) Generate(ctx context.Context, p Prompt) (Response, error) {
	parts, err := genaiParts(p.Parts)
	if err != nil {
		return Response{}, err
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: p.SystemInstruction}}},
		Temperature:       genai.Ptr(float32(p.Temperature)),
		Tools: []*genai.Tool{
			{GoogleSearch: &genai.GoogleSearch{}},
			{GoogleMaps: &genai.GoogleMaps{}},
		},
	}
	contents := []*genai.Content{{Role: string(genai.RoleUser), Parts: parts}}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return Response{}, fmt.Errorf("calling Gemini API: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return Response{}, fmt.Errorf("Gemini API returned no candidates")
	}

	return Response{Text: resp.Text(), Sources: genaiSources(resp.Candidates[0].GroundingMetadata)}, nil
}

func genaiParts(in []Part) ([]*genai.Part, error) {
	parts := make([]*genai.Part, 0, len(in))
	for _, part := range in {
		if part.Inline == nil {
			parts = append(parts, &genai.Part{Text: part.Text})
			continue
		}
		data, err := base64.StdEncoding.DecodeString(part.Inline.Data)
		if err != nil {
			return nil, fmt.Errorf("decoding attachment: %w", err)
		}
		parts = append(parts, &genai.Part{InlineData: &genai.Blob{MIMEType: part.Inline.MimeType, Data: data}})
	}
	return parts, nil
}

func genaiSources(md *genai.GroundingMetadata) []types.SourceReference {
	if md == nil {
		return nil
	}
	var sources []types.SourceReference
	for _, chunk := range md.GroundingChunks {
		if chunk == nil {
			continue
		}
		var ref types.SourceReference
		if chunk.Web != nil {
			ref.Web = &types.WebSource{URI: chunk.Web.URI, Title: chunk.Web.Title}
		}
		if chunk.Maps != nil {
			ref.Maps = &types.MapsSource{URI: chunk.Maps.URI, Title: chunk.Maps.Title, PlaceID: chunk.Maps.PlaceID}
		}
		sources = append(sources, ref)
	}
	return sources
}
