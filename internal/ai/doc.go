// Package ai talks to the Gemini generateContent REST API.
//
// The Gateway interface covers the four kinds of generated content the app
// uses: the complex catalog, personalized suggestions, team-building posts and
// review summaries. Client implements it over HTTP with a request rate limit.
//
// Every failure, whether transport, HTTP status, an empty answer or JSON that
// does not parse, is reported as ErrGatewayFailure so callers can fall back:
//
//	post, err := gw.TeamPost(ctx, "Futsal", "Friday 18:00", "need two more")
//	if errors.Is(err, ai.ErrGatewayFailure) {
//		post = ai.FallbackPost
//	}
package ai
