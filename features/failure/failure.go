package failure

import (
	"encoding/json"
	"time"
)

// Failure is an index submission the sink gave up on. Payload is the
// submit message that can be published again.
type Failure struct {
	ID             string          `json:"id"`
	SourceFilename string          `json:"source_filename"`
	Payload        json.RawMessage `json:"payload"`
	Error          string          `json:"error"`
	Retries        int             `json:"retries"`
	CreatedAt      time.Time       `json:"created_at"`
}
