// Package solverv1 defines the islandflow.solver.v1 gRPC API. Messages are
// plain Go structs carried by the JSON codec registered under the "json"
// content subtype.
package solverv1

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"

	"islandflow/pkg/apperror"
	"islandflow/pkg/domain"
)

// CodecName is the gRPC content subtype of the API (application/grpc+json).
const CodecName = "json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type SolveRequest struct {
	Problem   *domain.Problem `json:"problem"`
	SkipCache bool            `json:"skip_cache,omitempty"`
}

type SolveResponse struct {
	Answer     *domain.Answer `json:"answer"`
	CacheHit   bool           `json:"cache_hit"`
	DurationMs float64        `json:"duration_ms"`
	// Text is the answer in the line protocol.
	Text       string                   `json:"text"`
	HistoryID  string                   `json:"history_id,omitempty"`
	Statistics *domain.AnswerStatistics `json:"statistics,omitempty"`
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %T: %w", v, err)
	}
	return nil
}

func (jsonCodec) Name() string {
	return CodecName
}

// Validate checks the problem carried by the request.
func (r *SolveRequest) Validate() error {
	if r.Problem == nil {
		return apperror.ErrNilProblem
	}
	return r.Problem.Validate()
}
