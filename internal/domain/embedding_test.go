package domain

import (
	"context"
	"errors"
	"math"
	"testing"
)

func TestEncodeDecodeVector_BitExact(t *testing.T) {
	vec := []float32{0.1, -2.5, float32(math.Pi), 0, math.MaxFloat32, math.SmallestNonzeroFloat32}

	decoded, err := DecodeVector(EncodeVector(vec), len(vec))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if len(decoded) != len(vec) {
		t.Fatalf("length %d, want %d", len(decoded), len(vec))
	}
	for i := range vec {
		if math.Float32bits(decoded[i]) != math.Float32bits(vec[i]) {
			t.Errorf("component %d: %x != %x", i,
				math.Float32bits(decoded[i]), math.Float32bits(vec[i]))
		}
	}
}

func TestDecodeVector_DimMismatch(t *testing.T) {
	data := EncodeVector([]float32{1, 2, 3})

	if _, err := DecodeVector(data, 4); !errors.Is(err, ErrVectorDimMismatch) {
		t.Fatalf("expected dim mismatch, got %v", err)
	}
}

func TestDecodeVector_TruncatedBlob(t *testing.T) {
	data := EncodeVector([]float32{1, 2})[:5]

	if _, err := DecodeVector(data, 0); !errors.Is(err, ErrVectorDimMismatch) {
		t.Fatalf("expected dim mismatch for truncated blob, got %v", err)
	}
}

func TestDecodeVector_ZeroDimSkipsCheck(t *testing.T) {
	vec, err := DecodeVector(EncodeVector([]float32{1, 2, 3}), 0)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(vec) != 3 {
		t.Fatalf("length %d, want 3", len(vec))
	}
}

func TestCosineDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0}, []float32{1, 0}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, 2},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 1},
		{"scale invariant", []float32{2, 0}, []float32{5, 0}, 0},
		{"zero vector neutral", []float32{0, 0}, []float32{1, 1}, 1},
		{"length mismatch neutral", []float32{1}, []float32{1, 0}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineDistance(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("distance %.9f, want %.9f", got, tt.want)
			}
		})
	}
}

func TestDocumentText(t *testing.T) {
	if got := DocumentText("abstract", "summary"); got != "abstract\n\nsummary" {
		t.Errorf("got %q", got)
	}
	if got := DocumentText("", "summary"); got != "summary" {
		t.Errorf("absent abstract: got %q", got)
	}
}

type constEmbedder struct{ got string }

func (c *constEmbedder) Embed(_ context.Context, text string) (EmbeddingResult, error) {
	c.got = text
	return EmbeddingResult{Embedding: []float32{1}}, nil
}

func TestInstructionEmbedder_PrependsInstruction(t *testing.T) {
	inner := &constEmbedder{}
	emb := NewInstructionEmbedder(inner, "query: ")

	if _, err := emb.Embed(context.Background(), "transformers"); err != nil {
		t.Fatalf("embed: %v", err)
	}
	if inner.got != "query: transformers" {
		t.Errorf("inner saw %q", inner.got)
	}
}
