package ports

import (
	"context"

	"github.com/aretw0/haptix/pkg/domain"
)

// TokenIssuer issues single-use tokens for the realtime transcription service.
type TokenIssuer interface {
	IssueToken(ctx context.Context) (domain.ScribeToken, error)
}
