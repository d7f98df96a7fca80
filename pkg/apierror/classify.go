package apierror

import (
	"encoding/json"
	"net/http"

	"github.com/dghubble/go-twitter/twitter"
)

// PlaceholderMessage replaces an error message that is missing from the body
// or cannot be parsed.
const PlaceholderMessage = "(empty or invalid Twitter error message)"

// Classify maps an HTTP status code to an Outcome. Only 200 is a success.
func Classify(status int) Outcome {
	switch {
	case status == http.StatusOK:
		return OutcomeSuccess
	case status == http.StatusNotFound:
		return OutcomeNotFound
	case status == http.StatusForbidden:
		return OutcomeSuspended
	case status == http.StatusUnauthorized:
		return OutcomeProtected
	case status >= 500 && status <= 599:
		return OutcomeServer
	default:
		return OutcomeUnknown
	}
}

// Check classifies a response and returns nil on success or an *Error
// describing it. The body is only used for the detail message and never
// causes Check itself to fail.
func Check(status int, statusText string, body []byte, subjectID string) error {
	outcome := Classify(status)
	if outcome == OutcomeSuccess {
		return nil
	}

	code, message := detail(body)
	return &Error{
		Outcome:    outcome,
		StatusCode: status,
		Status:     statusText,
		Code:       code,
		Message:    message,
		SubjectID:  subjectID,
	}
}

// detail extracts errors[0] from a Twitter error envelope.
func detail(body []byte) (int, string) {
	if len(body) == 0 {
		return 0, PlaceholderMessage
	}

	var apiErr twitter.APIError
	if err := json.Unmarshal(body, &apiErr); err != nil || apiErr.Empty() {
		return 0, PlaceholderMessage
	}

	first := apiErr.Errors[0]
	if first.Message == "" {
		return first.Code, PlaceholderMessage
	}
	return first.Code, first.Message
}
