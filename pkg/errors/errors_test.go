package errors_test

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/helmkit/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// New / Wrap
// ─────────────────────────────────────────────────────────────────────────────

func TestNew_FieldsAreSetCorrectly(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		code    errors.ErrorCode
		message string
	}{
		{"internal error", errors.CodeInternal, "unexpected failure"},
		{"parse", errors.ErrCodeHELMParse, "unbalanced '{'"},
		{"validation", errors.ErrCodeHELMValidation, "unknown monomer [xyz]"},
		{"not loaded", errors.ErrCodeRegistryNotLoaded, "registry not loaded"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ae := errors.New(tc.code, tc.message)

			require.NotNil(t, ae)
			assert.Equal(t, tc.code, ae.Code)
			assert.Equal(t, tc.message, ae.Message)
			assert.Empty(t, ae.Detail)
			assert.Nil(t, ae.Cause)
			assert.NotEmpty(t, ae.Stack)
		})
	}
}

func TestAppError_ErrorFormat(t *testing.T) {
	t.Parallel()

	ae := errors.New(errors.ErrCodeHELMParse, "unexpected token")
	assert.Equal(t, "[HELM_001] unexpected token", ae.Error())

	withDetail := ae.WithDetail("offset 12")
	assert.Equal(t, "[HELM_001] unexpected token: offset 12", withDetail.Error())
	assert.Empty(t, ae.Detail, "WithDetail must not mutate the receiver")
}

func TestNewf(t *testing.T) {
	t.Parallel()

	ae := errors.Newf(errors.ErrCodeMonomerNotFound, "monomer %s/%s not found", "PEPTIDE", "xyz")
	assert.Equal(t, "monomer PEPTIDE/xyz not found", ae.Message)
}

func TestWrap_NilReturnsNil(t *testing.T) {
	t.Parallel()

	assert.Nil(t, errors.Wrap(nil, errors.CodeInternal, "x"))
}

func TestWrap_PreservesCauseChain(t *testing.T) {
	t.Parallel()

	root := stderrors.New("driver: bad connection")
	ae := errors.Wrap(root, errors.ErrCodeDatabaseError, "load monomers")

	assert.ErrorIs(t, ae, root)
	assert.Equal(t, errors.ErrCodeDatabaseError, ae.Code)
}

func TestWrap_UnknownCodeKeepsInnerCode(t *testing.T) {
	t.Parallel()

	inner := errors.New(errors.ErrCodeHELMValidation, "bad notation")
	outer := errors.Wrap(inner, errors.CodeUnknown, "analyze")
	assert.Equal(t, errors.ErrCodeHELMValidation, outer.Code)
}

func TestWithCause_NilReceiver(t *testing.T) {
	t.Parallel()

	var ae *errors.AppError
	assert.Nil(t, ae.WithCause(stderrors.New("x")))
	assert.Nil(t, ae.WithDetail("x"))
}

// ─────────────────────────────────────────────────────────────────────────────
// Chain helpers
// ─────────────────────────────────────────────────────────────────────────────

func TestIsCode_ThroughFmtWrapping(t *testing.T) {
	t.Parallel()

	ae := errors.New(errors.ErrCodeHELMCanonicalization, "ambiguous")
	wrapped := fmt.Errorf("canonical: %w", ae)

	assert.True(t, errors.IsCode(wrapped, errors.ErrCodeHELMCanonicalization))
	assert.False(t, errors.IsCode(wrapped, errors.ErrCodeHELMParse))
	assert.False(t, errors.IsCode(nil, errors.ErrCodeHELMParse))
}

func TestIsNotFound(t *testing.T) {
	t.Parallel()

	assert.True(t, errors.IsNotFound(errors.NotFound("x")))
	assert.True(t, errors.IsNotFound(errors.New(errors.ErrCodeMonomerNotFound, "x")))
	assert.False(t, errors.IsNotFound(errors.Internal("x")))
	assert.False(t, errors.IsNotFound(stderrors.New("plain")))
}

func TestGetCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, errors.CodeOK, errors.GetCode(nil))
	assert.Equal(t, errors.ErrCodeInternal, errors.GetCode(stderrors.New("plain")))
	assert.Equal(t, errors.CodeConflict, errors.GetCode(errors.Conflict("dup")))
}

func TestHTTPStatus(t *testing.T) {
	t.Parallel()

	assert.Equal(t, http.StatusBadRequest, errors.HTTPStatus(errors.InvalidParam("x")))
	assert.Equal(t, http.StatusUnprocessableEntity, errors.HTTPStatus(errors.New(errors.ErrCodeHELMValidation, "x")))
	assert.Equal(t, http.StatusInternalServerError, errors.HTTPStatus(stderrors.New("x")))
}
