package models

import "errors"

// Failure taxonomy of the discovery and guide flows. Callers match with errors.Is;
// producers wrap with fmt.Errorf("%w: ...") so the cause survives for logging.
var (
	ErrCredentialMissing = errors.New("credential missing")

	ErrGeoUnavailable = errors.New("geolocation unavailable")
	ErrGeoTimeout     = errors.New("geolocation timed out")
	ErrGeoDenied      = errors.New("geolocation denied")

	ErrAITimeout           = errors.New("ai request timed out")
	ErrAITransport         = errors.New("ai transport error")
	ErrAIMalformedResponse = errors.New("ai returned a malformed response")

	ErrNoResultsInArea              = errors.New("no museums found in area")
	ErrNoResultsAfterDistanceFilter = errors.New("no museums within radius")

	ErrStreamFailure = errors.New("stream failed")

	ErrNotFound   = errors.New("requested item not found")
	ErrBadRequest = errors.New("bad request")
)

// User-facing messages. Raw error detail never reaches the client.
const (
	MessageFetchFailed      = "Could not fetch results, check your connection."
	MessageNoMuseumsInArea  = "No museums found in this area."
	MessageNoMuseumsRadius  = "No museums were found within the 50 km radius."
	MessageKeyRequired      = "Activate your AI key to access real-time information."
	MessageGuideUnavailable = "Could not load the live guide."
)

// UserMessage maps an error from the search flow to the message shown to the user.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCredentialMissing):
		return MessageKeyRequired
	case errors.Is(err, ErrNoResultsAfterDistanceFilter):
		return MessageNoMuseumsRadius
	case errors.Is(err, ErrNoResultsInArea):
		return MessageNoMuseumsInArea
	case errors.Is(err, ErrStreamFailure):
		return MessageGuideUnavailable
	default:
		return MessageFetchFailed
	}
}
