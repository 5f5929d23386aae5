package pipeline

import (
	"context"
	"errors"
	"fmt"

	goopenai "github.com/sashabaranov/go-openai"
	"google.golang.org/grpc/status"

	"ivr-voice-bridge-service/internal/service/filestore"
)

// ClassifyError returns a low-cardinality label for an adapter error, or ""
// for nil. Google clients are classified by gRPC code, OpenAI by HTTP status.
func ClassifyError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return "deadline_exceeded"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, filestore.ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrRecordingTooLarge):
		return "too_large"
	}

	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("http_%d", apiErr.HTTPStatusCode)
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Sprintf("http_%d", reqErr.HTTPStatusCode)
	}
	if st, ok := status.FromError(err); ok {
		return "grpc_" + st.Code().String()
	}
	return "error"
}
