package common

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestStageError(t *testing.T) {
	cause := errors.New("exit status 1")
	err := StageError(ErrRender, "pdftoppm page 2", cause)
	if !errors.Is(err, ErrRender) || !errors.Is(err, cause) {
		t.Fatalf("err = %v does not match both sentinel and cause", err)
	}
	if err.Error() != "page render failed: pdftoppm page 2: exit status 1" {
		t.Fatalf("message = %q", err.Error())
	}
	if err := StageError(ErrRecognition, "empty image", nil); !errors.Is(err, ErrRecognition) {
		t.Fatalf("err = %v", err)
	}
}

func TestSourceReadError(t *testing.T) {
	cause := errors.New("no xref")
	err := SourceReadError("a.pdf", cause)
	if !errors.Is(err, ErrSourceRead) || !errors.Is(err, cause) {
		t.Fatalf("err = %v", err)
	}
	var app *AppError
	if !errors.As(err, &app) || app.Code != "SOURCE_READ" {
		t.Fatalf("not an AppError: %v", err)
	}
}

func TestWrapError(t *testing.T) {
	if WrapError(nil, "x") != nil {
		t.Fatal("wrapping nil must return nil")
	}
	if err := WrapError(ErrNotFound, "lookup"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestContextValues(t *testing.T) {
	ctx := WithDocument(WithRunID(context.Background(), "r1"), "a.pdf")
	if RunIDFromContext(ctx) != "r1" || DocumentFromContext(ctx) != "a.pdf" {
		t.Fatal("context values not round-tripped")
	}
	if RunIDFromContext(context.Background()) != "" {
		t.Fatal("empty context must yield empty run id")
	}

	c, cancel := WithTimeout(context.Background(), 0)
	defer cancel()
	if _, ok := c.Deadline(); ok {
		t.Fatal("non-positive timeout must not set a deadline")
	}
	c2, cancel2 := WithTimeout(context.Background(), time.Minute)
	defer cancel2()
	if _, ok := c2.Deadline(); !ok {
		t.Fatal("expected deadline")
	}
}

func TestValidateJSONAgainstSchema(t *testing.T) {
	schema := map[string]any{
		"type":     "object",
		"required": []string{"name"},
		"properties": map[string]any{
			"name": map[string]any{"type": "string"},
		},
	}
	if err := ValidateJSONAgainstSchema(schema, []byte(`{"name":"x"}`)); err != nil {
		t.Fatalf("valid document rejected: %v", err)
	}
	if err := ValidateJSONAgainstSchema(schema, []byte(`{}`)); err == nil {
		t.Fatal("missing required key accepted")
	}
	if err := ValidateJSONAgainstSchema(schema, []byte(`{`)); err == nil {
		t.Fatal("malformed json accepted")
	}
}
