package uploads

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
)

// expiredMarkers are substrings backends use to signal a stale pre-signed
// URL. Matching is case-insensitive against the response body.
var expiredMarkers = []string{
	"expired",
	"signature does not match",
	"request has expired",
	"token is expired",
}

// Classify converts a transport error or HTTP response into a structured
// upload Error. Exactly one of err and resp should be meaningful; when err
// is non-nil the response is ignored.
func Classify(err error, statusCode int, body string) *Error {
	if err != nil {
		return classifyTransport(err)
	}
	return classifyStatus(statusCode, body)
}

func classifyTransport(err error) *Error {
	kind := ErrKindNetwork
	message := "network error while uploading; check your connection and retry"
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		message = "upload timed out; check your connection and retry"
	case errors.Is(err, context.Canceled):
		kind = ErrKindUnknown
		message = "upload was canceled"
	default:
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			message = "upload timed out; check your connection and retry"
		}
	}
	return &Error{
		Message:    message,
		Kind:       kind,
		Diagnostic: err.Error(),
	}
}

func classifyStatus(statusCode int, body string) *Error {
	lower := strings.ToLower(body)
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		if hasExpiredMarker(lower) {
			return expiredError(statusCode, body)
		}
		return &Error{
			Message:    "not authorized to upload; sign in again and retry",
			Kind:       ErrKindAuth,
			HTTPStatus: statusCode,
			Diagnostic: body,
		}
	case hasExpiredMarker(lower):
		return expiredError(statusCode, body)
	case statusCode >= 400 && statusCode < 500:
		return &Error{
			Message:    "the upload was rejected; review the file and metadata",
			Kind:       ErrKindValidation,
			HTTPStatus: statusCode,
			Diagnostic: body,
		}
	case statusCode >= 500:
		return &Error{
			Message:    "the server could not accept the upload; retry shortly",
			Kind:       ErrKindServer,
			HTTPStatus: statusCode,
			Diagnostic: body,
		}
	default:
		return &Error{
			Message:    "upload failed for an unknown reason",
			Kind:       ErrKindUnknown,
			HTTPStatus: statusCode,
			Diagnostic: body,
		}
	}
}

func expiredError(statusCode int, body string) *Error {
	return &Error{
		Message:    "the upload link expired; retry to request a fresh one",
		Kind:       ErrKindExpired,
		HTTPStatus: statusCode,
		Diagnostic: body,
	}
}

func hasExpiredMarker(lowerBody string) bool {
	for _, marker := range expiredMarkers {
		if strings.Contains(lowerBody, marker) {
			return true
		}
	}
	return false
}
