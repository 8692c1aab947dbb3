package resilience

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/NikhilSetiya/dexanalyzer/pkg/errors"
)

func TestDefaultClassifier(t *testing.T) {
	tests := []struct {
		name     string
		resp     *Response
		err      error
		wantKind OutcomeKind
		wantType apperrors.ErrorType
	}{
		{"network error", nil, errors.New("connection refused"), OutcomeRetryable, apperrors.ErrorTypeExternal},
		{"attempt timeout", nil, fmt.Errorf("get: %w", context.DeadlineExceeded), OutcomeRetryable, apperrors.ErrorTypeTimeout},
		{"nil response", nil, nil, OutcomeRetryable, apperrors.ErrorTypeExternal},
		{"http 500", &Response{StatusCode: 500}, nil, OutcomeRetryable, apperrors.ErrorTypeExternal},
		{"http 403", &Response{StatusCode: 403}, nil, OutcomeRetryable, apperrors.ErrorTypeExternal},
		{"http 429", &Response{StatusCode: 429}, nil, OutcomeRetryable, apperrors.ErrorTypeRateLimit},
		{"empty body", &Response{StatusCode: 204}, nil, OutcomeSuccess, ""},
		{"whitespace body", &Response{StatusCode: 200, Body: []byte("\n ")}, nil, OutcomeSuccess, ""},
		{"invalid json", &Response{StatusCode: 200, Body: []byte("{oops")}, nil, OutcomeCandidateFailure, apperrors.ErrorTypeDecoding},
		{"data array", &Response{StatusCode: 200, Body: []byte(`{"statusCode":200,"data":[]}`)}, nil, OutcomeSuccess, ""},
		{"top-level array", &Response{StatusCode: 200, Body: []byte(`[{"rank":1}]`)}, nil, OutcomeSuccess, ""},
		{"rate limit message", &Response{StatusCode: 200, Body: []byte(`{"message":"Too Many Requests"}`)}, nil, OutcomeRetryable, apperrors.ErrorTypeRateLimit},
		{"rate limit message case", &Response{StatusCode: 200, Body: []byte(`{"message":"too many requests "}`)}, nil, OutcomeRetryable, apperrors.ErrorTypeRateLimit},
		{"embedded 429", &Response{StatusCode: 200, Body: []byte(`{"statusCode":429}`)}, nil, OutcomeRetryable, apperrors.ErrorTypeRateLimit},
		{"embedded 429 string", &Response{StatusCode: 200, Body: []byte(`{"statusCode":"429"}`)}, nil, OutcomeRetryable, apperrors.ErrorTypeRateLimit},
		{"embedded 401", &Response{StatusCode: 200, Body: []byte(`{"statusCode":401,"message":"Unauthorized"}`)}, nil, OutcomeCandidateFailure, apperrors.ErrorTypeExternal},
		{"embedded 500", &Response{StatusCode: 200, Body: []byte(`{"statusCode":500}`)}, nil, OutcomeCandidateFailure, apperrors.ErrorTypeExternal},
		{"other message", &Response{StatusCode: 200, Body: []byte(`{"message":"ok","data":{}}`)}, nil, OutcomeSuccess, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DefaultClassifier(tt.resp, tt.err)
			assert.Equal(t, tt.wantKind, got.Kind, got.Kind.String())
			if tt.wantType == "" {
				assert.NoError(t, got.Err)
				return
			}
			assert.True(t, apperrors.IsType(got.Err, tt.wantType), "got %v", got.Err)
		})
	}
}

func TestOutcomeKind_String(t *testing.T) {
	assert.Equal(t, "success", OutcomeSuccess.String())
	assert.Equal(t, "retryable", OutcomeRetryable.String())
	assert.Equal(t, "candidate_failure", OutcomeCandidateFailure.String())
	assert.Equal(t, "abort", OutcomeAbort.String())
	assert.Equal(t, "unknown", OutcomeKind(42).String())
}
