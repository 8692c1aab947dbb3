package resilience

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	apperrors "github.com/NikhilSetiya/dexanalyzer/pkg/errors"
)

// OutcomeKind is the executor's decision for one attempt.
type OutcomeKind int

const (
	// OutcomeSuccess ends the call with the attempt's payload.
	OutcomeSuccess OutcomeKind = iota
	// OutcomeRetryable backs off and retries the same candidate while retries remain.
	OutcomeRetryable
	// OutcomeCandidateFailure moves to the next candidate without retrying.
	OutcomeCandidateFailure
	// OutcomeAbort stops the whole call.
	OutcomeAbort
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeRetryable:
		return "retryable"
	case OutcomeCandidateFailure:
		return "candidate_failure"
	case OutcomeAbort:
		return "abort"
	default:
		return "unknown"
	}
}

// Outcome pairs a decision with the error behind it.
type Outcome struct {
	Kind OutcomeKind
	Err  error
}

// Classifier decides what a finished attempt means. resp is nil when err is not.
type Classifier func(resp *Response, err error) Outcome

const rateLimitMessage = "too many requests"

// DefaultClassifier implements the market-data API contract:
//   - transport errors and non-2xx statuses are retryable
//   - a 2xx with an empty body is a success
//   - a 2xx body that is not JSON fails the candidate
//   - {"message":"Too Many Requests"} or an embedded statusCode 429 is retryable
//   - any other embedded statusCode >= 400 fails the candidate
func DefaultClassifier(resp *Response, err error) Outcome {
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Outcome{Kind: OutcomeRetryable, Err: apperrors.NewTimeoutError("request").WithCause(err)}
		}
		return Outcome{Kind: OutcomeRetryable, Err: apperrors.NewExternalError("http", "request failed").WithCause(err)}
	}
	if resp == nil {
		return Outcome{Kind: OutcomeRetryable, Err: apperrors.NewExternalError("http", "no response")}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := fmt.Sprintf("unexpected status %d", resp.StatusCode)
		if resp.StatusCode == 429 {
			return Outcome{Kind: OutcomeRetryable, Err: apperrors.NewRateLimitError(msg)}
		}
		return Outcome{Kind: OutcomeRetryable, Err: apperrors.NewExternalError("http", msg).
			WithDetail("status", strconv.Itoa(resp.StatusCode))}
	}

	body := bytes.TrimSpace(resp.Body)
	if len(body) == 0 {
		return Outcome{Kind: OutcomeSuccess}
	}
	if !json.Valid(body) {
		return Outcome{Kind: OutcomeCandidateFailure, Err: apperrors.NewDecodingError("response body is not valid JSON")}
	}

	status, message := embeddedStatus(body)
	if strings.EqualFold(strings.TrimSpace(message), rateLimitMessage) || status == 429 {
		return Outcome{Kind: OutcomeRetryable, Err: apperrors.NewRateLimitError("rate limit marker in response body")}
	}
	if status >= 400 {
		err := apperrors.NewExternalError("api", fmt.Sprintf("embedded status %d", status)).
			WithDetail("status", strconv.Itoa(status))
		if message != "" {
			err.WithDetail("message", message)
		}
		return Outcome{Kind: OutcomeCandidateFailure, Err: err}
	}
	return Outcome{Kind: OutcomeSuccess}
}

// embeddedStatus reads top-level statusCode and message fields from a JSON
// object body. Non-object bodies report neither.
func embeddedStatus(body []byte) (int, string) {
	if body[0] != '{' {
		return 0, ""
	}
	var envelope struct {
		StatusCode json.RawMessage `json:"statusCode"`
		Message    json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return 0, ""
	}

	var status int
	if len(envelope.StatusCode) > 0 {
		raw := strings.Trim(string(envelope.StatusCode), `"`)
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			status = int(f)
		}
	}

	var message string
	if len(envelope.Message) > 0 {
		_ = json.Unmarshal(envelope.Message, &message)
	}
	return status, message
}
