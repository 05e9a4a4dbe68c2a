package util

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noteInput struct {
	Title string `json:"title" validate:"max=100"`
	Text  string `json:"text" validate:"required,max=10000"`
}

func TestValidateCtx(t *testing.T) {
	v := NewValidator()
	ctx := context.Background()

	require.NoError(t, ValidateCtx(ctx, v, &noteInput{Text: "hello"}))

	err := ValidateCtx(ctx, v, &noteInput{})
	require.Error(t, err)
	assert.Equal(t, "text is required", err.Error())

	err = ValidateCtx(ctx, v, &noteInput{Title: strings.Repeat("x", 101), Text: "ok"})
	require.Error(t, err)
	assert.Equal(t, "title must be at most 100 characters", err.Error())

	err = ValidateCtx(ctx, v, &noteInput{Title: strings.Repeat("x", 101)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "title must be at most 100 characters")
	assert.Contains(t, err.Error(), "text is required")
}

func TestValidateCtxCountsRunes(t *testing.T) {
	v := NewValidator()

	// max on strings counts characters, not bytes
	err := ValidateCtx(context.Background(), v, &noteInput{Title: strings.Repeat("é", 100), Text: "ok"})
	assert.NoError(t, err)
}
