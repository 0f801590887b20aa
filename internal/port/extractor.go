package port

import (
	"context"

	"github.com/bnema/mediagrab/internal/domain"
)

type DownloadRequest struct {
	URL            string
	Selector       string
	OutputTemplate string
}

// Download is a running extractor download.
type Download interface {
	ProcessHandle
	// OutputPath is the file the extractor produced. It is only
	// meaningful after Wait returned nil.
	OutputPath() string
}

type Extractor interface {
	FetchMetadata(ctx context.Context, url string) (*domain.Metadata, error)
	Download(ctx context.Context, req DownloadRequest, onEvent EventHandler) (Download, error)
}
