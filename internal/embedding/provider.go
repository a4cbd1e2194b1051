// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package embedding turns paper metadata into vectors for similarity
// search.
package embedding

import "context"

// Provider generates embeddings from text.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	ModelName() string
	Dimensions() int
}
