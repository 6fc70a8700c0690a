package helm

import (
	"strconv"
	"strings"

	"github.com/turtacn/helmkit/pkg/errors"
)

// ParseError reports malformed notation text.
type ParseError struct {
	*errors.AppError
	// Section is the notation section: polymers, connections, pairs, groups,
	// annotations or version.
	Section string
	Token   string
	// Offset is the byte offset of Token in the input.
	Offset int
}

func (e *ParseError) Unwrap() error { return e.AppError }

func newParseError(section, token string, offset int, format string, args ...interface{}) *ParseError {
	detail := section + " section at offset " + strconv.Itoa(offset)
	if token != "" {
		detail += ": " + strconv.Quote(token)
	}
	return &ParseError{
		AppError: errors.Newf(errors.ErrCodeHELMParse, format, args...).WithDetail(detail),
		Section:  section,
		Token:    token,
		Offset:   offset,
	}
}

// Rule names a class of validation failures.
type Rule string

const (
	RuleUnknownMonomer Rule = "unknown_monomer"
	RuleTypeMismatch   Rule = "type_mismatch"
	RuleConnection     Rule = "connection"
	RuleBackbone       Rule = "backbone"
	RuleGroup          Rule = "group"
)

// Violation is a single failed validation rule.
type Violation struct {
	Rule      Rule   `json:"rule"`
	PolymerID string `json:"polymer_id,omitempty"`
	Position  int    `json:"position,omitempty"`
	Symbol    string `json:"symbol,omitempty"`
	Message   string `json:"message"`
}

func (v Violation) String() string {
	var sb strings.Builder
	sb.WriteString(string(v.Rule))
	if v.PolymerID != "" {
		sb.WriteString(" ")
		sb.WriteString(v.PolymerID)
		if v.Position > 0 {
			sb.WriteString(":")
			sb.WriteString(strconv.Itoa(v.Position))
		}
	}
	if v.Symbol != "" {
		sb.WriteString(" [")
		sb.WriteString(v.Symbol)
		sb.WriteString("]")
	}
	sb.WriteString(": ")
	sb.WriteString(v.Message)
	return sb.String()
}

// ValidationError lists every rule a notation violates.
type ValidationError struct {
	*errors.AppError
	Violations []Violation
}

func (e *ValidationError) Unwrap() error { return e.AppError }

func newValidationError(vs []Violation) *ValidationError {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = v.String()
	}
	return &ValidationError{
		AppError:   errors.Newf(errors.ErrCodeHELMValidation, "notation violates %d rule(s)", len(vs)).WithDetail(strings.Join(parts, "; ")),
		Violations: vs,
	}
}

// CanonicalizationError reports a notation that has no canonical form or no
// resolvable structure.
type CanonicalizationError struct {
	*errors.AppError
	PolymerID string
}

func (e *CanonicalizationError) Unwrap() error { return e.AppError }

func newCanonicalizationError(polymerID, format string, args ...interface{}) *CanonicalizationError {
	ae := errors.Newf(errors.ErrCodeHELMCanonicalization, format, args...)
	if polymerID != "" {
		ae = ae.WithDetail(polymerID)
	}
	return &CanonicalizationError{AppError: ae, PolymerID: polymerID}
}

// UnknownAnalogueError reports a monomer with no natural analogue in strict
// sequence extraction.
type UnknownAnalogueError struct {
	*errors.AppError
	PolymerID string
	Position  int
	Symbol    string
}

func (e *UnknownAnalogueError) Unwrap() error { return e.AppError }

func newUnknownAnalogueError(polymerID string, position int, symbol string) *UnknownAnalogueError {
	return &UnknownAnalogueError{
		AppError: errors.Newf(errors.ErrCodeHELMUnknownAnalogue, "monomer %s has no natural analogue", symbol).
			WithDetail(polymerID + ":" + strconv.Itoa(position)),
		PolymerID: polymerID,
		Position:  position,
		Symbol:    symbol,
	}
}
