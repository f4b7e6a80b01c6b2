// Package claude implements the image-entity collaborator on the
// Anthropic API: each photo is described by a vision-capable Claude model
// into detected objects, scene labels and OCR text.
package claude

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/memoriahq/memoria-go/memory"
)

const describePrompt = `Describe this photo for a personal memory journal.
Respond with only a JSON object, no other text:
{"objects": ["concrete things visible, most prominent first"],
 "labels": ["broader scene or topic labels"],
 "text": "any text readable in the photo, or empty string"}`

// Options configure the vision collaborator.
type Options struct {
	// Model must be vision-capable.
	Model string

	// MaxTokens bounds the description response.
	MaxTokens int64
}

// Vision describes photos with Claude.
type Vision struct {
	client *anthropic.Client
	opts   Options
}

// New creates a vision collaborator from an Anthropic client.
func New(client *anthropic.Client, optFns ...func(o *Options)) *Vision {
	opts := Options{
		Model:     "claude-sonnet-4-20250514",
		MaxTokens: 1024,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Vision{client: client, opts: opts}
}

// Describe implements memory.Vision for one photo URL.
func (v *Vision) Describe(ctx context.Context, photoURL string) (*memory.PhotoDescription, error) {
	imageBlock := anthropic.ContentBlockParamUnion{
		OfImage: &anthropic.ImageBlockParam{
			Source: anthropic.ImageBlockParamSourceUnion{
				OfURL: &anthropic.URLImageSourceParam{URL: photoURL},
			},
		},
	}

	resp, err := v.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(v.opts.Model),
		MaxTokens: v.opts.MaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(imageBlock, anthropic.NewTextBlock(describePrompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("describe photo: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	desc, err := parseDescription(text)
	if err != nil {
		return nil, fmt.Errorf("parse photo description: %w", err)
	}

	log.Printf("[VISION] described %s: %d objects, %d labels", photoURL, len(desc.Objects), len(desc.Labels))
	return desc, nil
}

// parseDescription extracts the JSON object from the model response,
// tolerating surrounding prose or code fences.
func parseDescription(text string) (*memory.PhotoDescription, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in response")
	}

	var parsed struct {
		Objects []string `json:"objects"`
		Labels  []string `json:"labels"`
		Text    string   `json:"text"`
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &parsed); err != nil {
		return nil, err
	}

	return &memory.PhotoDescription{
		Objects: cleanStrings(parsed.Objects),
		Labels:  cleanStrings(parsed.Labels),
		Text:    strings.TrimSpace(parsed.Text),
	}, nil
}

func cleanStrings(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
