package googleEmbedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/akolanti/CSDAssistant/pkg/logger_i"
	"google.golang.org/genai"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	taskQuery    = "RETRIEVAL_QUERY"
	taskDocument = "RETRIEVAL_DOCUMENT"
	retryDelay   = 5 * time.Second
)

func getContent(chunks []string) []*genai.Content {
	contentsToSend := make([]*genai.Content, 0, len(chunks))

	for _, chunk := range chunks {
		contentsToSend = append(contentsToSend, &genai.Content{
			Parts: []*genai.Part{{Text: chunk}},
		})
	}
	return contentsToSend
}

// doRetry is true for quota errors, reported either as grpc status or as a 429 api error.
func doRetry(err error, log *logger_i.Logger) bool {
	if err == nil {
		return false
	}
	if s, ok := status.FromError(err); ok && s.Code() == codes.ResourceExhausted {
		log.Error("Rate limit hit! ", "error", err)
		return true
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code == 429 {
		log.Error("Rate limit hit! ", "error", err)
		return true
	}
	return false
}

type embedCall func(ctx context.Context) (*genai.EmbedContentResponse, error)

// callWithQuotaRetry retries a quota error once when retry is set. Only index
// building retries, a visitor's query embedding fails on the first error.
func callWithQuotaRetry(ctx context.Context, retry bool, delay time.Duration, log *logger_i.Logger, call embedCall) (*genai.EmbedContentResponse, error) {
	res, err := call(ctx)
	if !retry || !doRetry(err, log) {
		return res, err
	}
	log.Debug("Retrying after quota error", "delay", delay)
	if err := sleepCtx(ctx, delay); err != nil {
		return nil, err
	}
	return call(ctx)
}

func collectVectors(res *genai.EmbedContentResponse, want int) ([][]float32, error) {
	if res == nil || len(res.Embeddings) != want {
		got := 0
		if res != nil {
			got = len(res.Embeddings)
		}
		return nil, fmt.Errorf("embedding service returned %d vectors for %d inputs", got, want)
	}
	vectors := make([][]float32, 0, want)
	for i, e := range res.Embeddings {
		if e == nil || len(e.Values) == 0 {
			return nil, fmt.Errorf("embedding %d is empty", i)
		}
		vectors = append(vectors, e.Values)
	}
	return vectors, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
