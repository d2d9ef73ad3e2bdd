// ABOUTME: Gateway interface and the prompts for each kind of generated content
// ABOUTME: Structured answers are decoded from JSON constrained by a response schema

package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/2389/sportzone/internal/facility"
)

// Placeholders shown when generation fails
const (
	FallbackPost    = "Sorry, we couldn't generate a post right now. Please try again later."
	FallbackSummary = "Sorry, we couldn't generate a summary right now. Please try again later."
	NoReviewsText   = "No reviews to summarize."
)

// Suggestion is a recommended complex with a personal reason
type Suggestion struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// Gateway produces generated content.
type Gateway interface {
	FetchComplexes(ctx context.Context) ([]facility.Complex, error)
	SuggestComplexes(ctx context.Context, identity string, complexes []facility.Complex) ([]Suggestion, error)
	TeamPost(ctx context.Context, sport, time, message string) (string, error)
	SummarizeReviews(ctx context.Context, reviews []facility.Review) (string, error)
}

var _ Gateway = (*Client)(nil)

var complexSchema = &Schema{
	Type: "ARRAY",
	Items: &Schema{
		Type: "OBJECT",
		Properties: map[string]*Schema{
			"id":          {Type: "INTEGER", Description: "Unique identifier for the complex"},
			"name":        {Type: "STRING", Description: "Name of the sports complex"},
			"address":     {Type: "STRING", Description: "Full address of the complex in Tabriz"},
			"sports":      {Type: "ARRAY", Items: &Schema{Type: "STRING"}, Description: "List of available sports like Futsal, Volleyball, etc."},
			"description": {Type: "STRING", Description: "A brief, appealing description of the facility"},
			"imageUrl":    {Type: "STRING", Description: "A placeholder image URL from https://picsum.photos"},
			"rating":      {Type: "NUMBER", Description: "A rating from 4.0 to 5.0"},
			"availableTimeSlots": {
				Type:        "ARRAY",
				Description: "List of available time slots for a given day",
				Items: &Schema{
					Type: "OBJECT",
					Properties: map[string]*Schema{
						"time":     {Type: "STRING", Description: "Time slot, e.g., '14:00 - 15:00'"},
						"isBooked": {Type: "BOOLEAN", Description: "Whether the slot is already booked"},
					},
				},
			},
		},
	},
}

var suggestionSchema = &Schema{
	Type: "ARRAY",
	Items: &Schema{
		Type: "OBJECT",
		Properties: map[string]*Schema{
			"name":   {Type: "STRING", Description: "The name of the suggested complex."},
			"reason": {Type: "STRING", Description: "A short, personalized reason for the suggestion."},
		},
	},
}

const complexesPrompt = "Generate a list of 8 fictional but realistic-sounding sports complexes in Tabriz, Iran. " +
	"For each complex, provide a unique ID, name, address, a list of 3-4 sports offered, a short description, " +
	"a random image URL from picsum.photos with size 600x400, a rating between 4.2 and 4.9, " +
	"and 8 available time slots for today, with about 3 of them marked as booked."

// decodeJSON parses a structured answer into v.
func decodeJSON(text string, v any) error {
	if err := json.Unmarshal([]byte(stripFence(text)), v); err != nil {
		return fmt.Errorf("%w: decoding answer: %w", ErrGatewayFailure, err)
	}
	return nil
}

// FetchComplexes asks for the catalog of complexes.
func (c *Client) FetchComplexes(ctx context.Context) ([]facility.Complex, error) {
	text, err := c.generate(ctx, complexesPrompt, complexSchema)
	if err != nil {
		return nil, err
	}
	var complexes []facility.Complex
	if err := decodeJSON(text, &complexes); err != nil {
		return nil, err
	}
	return complexes, nil
}

// SuggestComplexes picks the top three complexes for identity. No complexes
// means no suggestions and no request.
func (c *Client) SuggestComplexes(ctx context.Context, identity string, complexes []facility.Complex) ([]Suggestion, error) {
	if len(complexes) == 0 {
		return []Suggestion{}, nil
	}

	names := make([]string, len(complexes))
	for i, cx := range complexes {
		names[i] = cx.Name
	}
	prompt := fmt.Sprintf(`You are a sports complex recommendation assistant for Tabriz SportZone.
A user with the identifier %q wants personalized suggestions.
Based on their profile (you can infer preferences), suggest the top 3 complexes for them from the following list.
Provide a short, friendly, and personalized reason for each suggestion.

Available complexes: %s

Return the response as a JSON array of objects, where each object has a 'name' and a 'reason' key.`,
		identity, strings.Join(names, ", "))

	text, err := c.generate(ctx, prompt, suggestionSchema)
	if err != nil {
		return nil, err
	}
	var out []Suggestion
	if err := decodeJSON(text, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// TeamPost writes a shareable announcement looking for teammates.
func (c *Client) TeamPost(ctx context.Context, sport, time, message string) (string, error) {
	prompt := fmt.Sprintf(`You are a friendly and enthusiastic sports community manager. A user wants to find teammates for an activity in Tabriz. Create an engaging and inviting announcement post for them.

Here are the details:
- Sport: %s
- Time: %s
- User's message: %q

The post should be friendly, clear, and encourage people to join. Write it in a way that can be easily copied and shared on social media. Start with a catchy headline.`,
		sport, time, message)
	return c.generate(ctx, prompt, nil)
}

// SummarizeReviews lists pros and cons found in reviews.
func (c *Client) SummarizeReviews(ctx context.Context, reviews []facility.Review) (string, error) {
	if len(reviews) == 0 {
		return NoReviewsText, nil
	}

	items := make([]string, len(reviews))
	for i, r := range reviews {
		items[i] = fmt.Sprintf("- Rating: %d/5\n- Comment: %q", r.Rating, r.Comment)
	}
	prompt := fmt.Sprintf(`As a helpful assistant, analyze the following user reviews for a sports complex. Provide a balanced, brief summary highlighting the main positive points (pros) and negative points (cons). Do not invent information. Base your summary solely on the provided reviews.

Here are the reviews:
%s

Please structure your output with a "Pros:" section and a "Cons:" section. If there are no clear cons or pros, state that.`,
		strings.Join(items, "\n\n"))
	return c.generate(ctx, prompt, nil)
}

// RenderHTML converts generated markdown to HTML.
func RenderHTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return buf.String(), nil
}
