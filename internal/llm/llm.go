//go:generate go run go.uber.org/mock/mockgen -source=llm.go -destination=../mocks/mock_gateway.go -package=mocks

package llm

import (
	"context"

	"github.com/vbonduro/mediscan/internal/domain"
	"github.com/vbonduro/mediscan/internal/schema"
)

// Sampling temperature requested on every call. Low to bias the model toward
// stable structured output; it does not make the output valid JSON.
const Temperature float32 = 0.2

// ResponseFormat is the MIME type the model is asked to answer in.
const ResponseFormat = "application/json"

type Attachment struct {
	Data     []byte
	MIMEType string
}

// Request is the vendor-neutral payload one Generate call sends.
type Request struct {
	Kind           domain.Kind
	System         string
	Prompt         string
	Attachment     *Attachment
	Schema         *schema.Schema
	ResponseFormat string
	Temperature    float32
}

// Gateway is one hosted model endpoint.
type Gateway interface {
	// Name identifies the backend in logs and the analysis journal.
	Name() string
	// Ready reports a configuration error (typically a missing credential)
	// without touching the network. Callers check it before building a request.
	Ready() error
	// Generate performs exactly one round trip and returns the model's raw
	// text. The text is not guaranteed to be JSON.
	Generate(ctx context.Context, req *Request) (string, error)
}
