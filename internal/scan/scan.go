// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package scan runs one OSINT scan end to end: it composes the prompt, makes
// the single call to the AI backend, ingests the narrative and its grounding
// citations, and assembles the ScanResult.
package scan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/pdiddy/maezuru/internal/events"
	"github.com/pdiddy/maezuru/pkg/types"
)

// ErrScanFailed is the only error a backend failure surfaces as. The
// underlying cause is logged, not returned.
var ErrScanFailed = errors.New("scan failed: try refining the parameters")

// ErrInvalidRequest wraps request validation failures.
var ErrInvalidRequest = errors.New("invalid scan request")

// notFoundText replaces an empty narrative.
const notFoundText = "Target not located."

// Scanner holds the collaborators of the pipeline. It keeps no state between
// calls; callers serialize scans themselves.
type Scanner struct {
	backend     AIBackend
	log         logrus.FieldLogger
	bus         *events.Bus
	validate    *validator.Validate
	temperature float64
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithLogger sets the logger. The default discards output.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Scanner) { s.log = l }
}

// WithEvents publishes lifecycle events to bus.
func WithEvents(bus *events.Bus) Option {
	return func(s *Scanner) { s.bus = bus }
}

// WithTemperature overrides DefaultTemperature. Non-positive values are ignored.
func WithTemperature(t float64) Option {
	return func(s *Scanner) {
		if t > 0 {
			s.temperature = t
		}
	}
}

// NewScanner returns a Scanner calling backend.
func NewScanner(backend AIBackend, opts ...Option) *Scanner {
	discard := logrus.New()
	discard.Out = io.Discard

	s := &Scanner{
		backend:     backend,
		log:         discard,
		validate:    validator.New(),
		temperature: DefaultTemperature,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PrepareRequest trims the query and, for an attachment-only request,
// substitutes DefaultAttachmentQuery. Scan applies it itself; callers that
// record the request alongside the result apply it first so both agree.
func PrepareRequest(req types.ScanRequest) types.ScanRequest {
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" && req.Attachment != nil {
		req.Query = DefaultAttachmentQuery
	}
	return req
}

// Scan runs one scan. Validation errors wrap ErrInvalidRequest and an
// oversized attachment wraps ErrAttachmentTooLarge, both before any call to
// the backend. Every backend failure is reported as ErrScanFailed.
func (s *Scanner) Scan(ctx context.Context, req types.ScanRequest) (types.ScanResult, error) {
	req = PrepareRequest(req)
	if err := s.validate.Struct(req); err != nil {
		return types.ScanResult{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if err := CheckAttachment(req.Attachment); err != nil {
		return types.ScanResult{}, err
	}

	log := s.log.WithFields(logrus.Fields{"query": req.Query, "type": req.Type, "deep": req.DeepScan})
	s.bus.Publish(events.Event{Kind: events.ScanStarted, Query: req.Query, Detail: "scan started"})

	prompt, err := Compose(req, s.temperature)
	if err != nil {
		return types.ScanResult{}, s.fail(log, req, fmt.Errorf("composing prompt: %w", err))
	}

	resp, err := s.backend.Generate(ctx, prompt)
	if err != nil {
		return types.ScanResult{}, s.fail(log, req, err)
	}

	text := resp.Text
	if strings.TrimSpace(text) == "" {
		text = notFoundText
	}

	ing, blockErr := Ingest(req.Query, text, resp.Sources)
	if blockErr != nil {
		log.WithError(blockErr).Warn("discarding structured personal-data block")
	}

	result := Assemble(ing)
	log.WithFields(logrus.Fields{
		"profiles":      len(result.FoundProfiles),
		"sources":       len(result.Sources),
		"personal_data": result.PersonalData != nil,
	}).Info("scan complete")
	s.bus.Publish(events.Event{Kind: events.ScanSucceeded, Query: req.Query, Detail: "scan complete"})

	return result, nil
}

func (s *Scanner) fail(log logrus.FieldLogger, req types.ScanRequest, cause error) error {
	log.WithError(cause).Error("scan failed")
	s.bus.Publish(events.Event{Kind: events.ScanFailed, Query: req.Query, Detail: cause.Error()})
	return ErrScanFailed
}

// Assemble packages an ingestion into a ScanResult. CapturedAt is left unset.
func Assemble(ing Ingestion) types.ScanResult {
	return types.ScanResult{
		Summary:       ing.Summary,
		Sources:       ing.Sources,
		FoundProfiles: ing.Profiles,
		PersonalData:  ing.PersonalData,
	}
}
