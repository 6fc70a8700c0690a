package client

import (
	"context"
	"fmt"
	"strings"

	dto "github.com/turtacn/helmkit/pkg/types/notation"
)

// NotationsClient calls the /notations endpoints.
type NotationsClient struct {
	client *Client
}

// SequenceOptions filters Sequences. A nil Strict uses the server default.
type SequenceOptions struct {
	Type   string
	Strict *bool
}

// AnalyzeOptions tunes Analyze.
type AnalyzeOptions struct {
	Name         string
	SequenceType string
	Strict       *bool
	NoCache      bool
	Archive      bool
}

func (n *NotationsClient) call(ctx context.Context, op string, req dto.Request, out interface{}) error {
	if strings.TrimSpace(req.Notation) == "" {
		return fmt.Errorf("%s: notation is required", op)
	}
	return n.client.post(ctx, apiPrefix+"/notations/"+op, req, out)
}

// Validate reports whether text is a well-formed notation whose monomers
// exist. An invalid notation is not an error: inspect Valid and Violations.
func (n *NotationsClient) Validate(ctx context.Context, text string) (*dto.ValidateResponse, error) {
	var out dto.ValidateResponse
	if err := n.call(ctx, "validate", dto.Request{Notation: text}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (n *NotationsClient) Count(ctx context.Context, text string) (int, error) {
	var out dto.CountResponse
	if err := n.call(ctx, "count", dto.Request{Notation: text}, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

// Canonical returns the canonical form of text. An empty version means
// dto.VersionHELM2.
func (n *NotationsClient) Canonical(ctx context.Context, text, version string) (string, error) {
	var out dto.NotationResponse
	if err := n.call(ctx, "canonical", dto.Request{Notation: text, Version: version}, &out); err != nil {
		return "", err
	}
	return out.Notation, nil
}

// Convert rewrites text in the given version's grammar.
func (n *NotationsClient) Convert(ctx context.Context, text, version string) (string, error) {
	if version == "" {
		return "", fmt.Errorf("convert: version is required")
	}
	var out dto.NotationResponse
	if err := n.call(ctx, "convert", dto.Request{Notation: text, Version: version}, &out); err != nil {
		return "", err
	}
	return out.Notation, nil
}

func (n *NotationsClient) SMILES(ctx context.Context, text string) (string, error) {
	var out dto.SMILESResponse
	if err := n.call(ctx, "smiles", dto.Request{Notation: text}, &out); err != nil {
		return "", err
	}
	return out.SMILES, nil
}

func (n *NotationsClient) Properties(ctx context.Context, text string) (*dto.Properties, error) {
	var out dto.Properties
	if err := n.call(ctx, "properties", dto.Request{Notation: text}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (n *NotationsClient) Sequences(ctx context.Context, text string, opts *SequenceOptions) ([]dto.PolymerSequence, error) {
	req := dto.Request{Notation: text}
	if opts != nil {
		req.Type = opts.Type
		req.Strict = opts.Strict
	}
	var out dto.SequencesResponse
	if err := n.call(ctx, "sequences", req, &out); err != nil {
		return nil, err
	}
	return out.Sequences, nil
}

// Analyze runs every operation on text. Failed operations are listed in
// the report's Errors map rather than returned.
func (n *NotationsClient) Analyze(ctx context.Context, text string, opts *AnalyzeOptions) (*dto.AnalysisReport, error) {
	req := dto.Request{Notation: text}
	if opts != nil {
		req.Name = opts.Name
		req.Type = opts.SequenceType
		req.Strict = opts.Strict
		req.NoCache = opts.NoCache
		req.Archive = opts.Archive
	}
	var out dto.AnalysisReport
	if err := n.call(ctx, "analyze", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
