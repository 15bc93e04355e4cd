package services_test

import (
	"context"
	"testing"

	"webtlo/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "run-1")
	ctx = services.WithClientID(ctx, "nas")
	ctx = services.WithSubsectionID(ctx, 42)

	if id, ok := services.RunIDFromContext(ctx); !ok || id != "run-1" {
		t.Fatalf("unexpected run id: %v %v", id, ok)
	}
	if id, ok := services.ClientIDFromContext(ctx); !ok || id != "nas" {
		t.Fatalf("unexpected client id: %v %v", id, ok)
	}
	if id, ok := services.SubsectionIDFromContext(ctx); !ok || id != 42 {
		t.Fatalf("unexpected subsection id: %v %v", id, ok)
	}
}

func TestBlankClientPreservesContext(t *testing.T) {
	ctx := services.WithClientID(context.Background(), "")
	if _, ok := services.ClientIDFromContext(ctx); ok {
		t.Fatal("expected no client value")
	}
}
