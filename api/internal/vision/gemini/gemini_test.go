package gemini

import (
	"context"
	"testing"

	"github.com/google/generative-ai-go/genai"
)

func TestFirstText(t *testing.T) {
	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
		{Content: nil},
		{Content: &genai.Content{Parts: []genai.Part{genai.Text("Yes")}}},
	}}
	if got := firstText(resp); got != "Yes" {
		t.Fatalf("firstText = %q, want Yes", got)
	}
	if got := firstText(nil); got != "" {
		t.Fatalf("firstText(nil) = %q", got)
	}
}

func TestClassifyWithoutKey(t *testing.T) {
	e := New("  ", "gemini-2.5-flash")
	if e.Name() != "gemini" || e.GetModel() != "gemini-2.5-flash" {
		t.Fatalf("engine = %+v", e)
	}
	if _, err := e.Classify(context.Background(), []byte{1}, "image/jpeg"); err == nil {
		t.Fatal("expected error for empty API key")
	}
}
