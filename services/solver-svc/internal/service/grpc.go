package service

import (
	"context"

	"github.com/google/uuid"

	solverv1 "islandflow/pkg/api/solverv1"
	"islandflow/pkg/apperror"
	"islandflow/pkg/domain"
	"islandflow/pkg/logger"
	"islandflow/services/solver-svc/internal/converter"
)

// GRPCServer exposes a SolverService as islandflow.solver.v1.SolverService.
type GRPCServer struct {
	solverv1.UnimplementedSolverServiceServer
	svc *SolverService
}

var _ solverv1.SolverServiceServer = (*GRPCServer)(nil)

func NewGRPCServer(svc *SolverService) *GRPCServer {
	return &GRPCServer{svc: svc}
}

func (s *GRPCServer) Solve(ctx context.Context, req *solverv1.SolveRequest) (*solverv1.SolveResponse, error) {
	if req == nil || req.Problem == nil {
		return nil, apperror.ToGRPC(apperror.ErrNilProblem)
	}

	result, err := s.svc.Solve(ctx, req.Problem, SolveOptions{SkipCache: req.SkipCache})
	if err != nil {
		return nil, apperror.ToGRPC(err)
	}

	text, err := converter.AnswerText(result.Answer)
	if err != nil {
		logger.WithContext(ctx).Error("failed to render answer", "error", err)
		return nil, apperror.ToGRPC(apperror.Wrap(err, apperror.CodeInternal, "failed to render answer"))
	}

	resp := &solverv1.SolveResponse{
		Answer:     result.Answer,
		CacheHit:   result.CacheHit,
		DurationMs: float64(result.Duration.Microseconds()) / 1000,
		Text:       text,
		Statistics: domain.CalculateAnswerStatistics(result.Answer),
	}
	if result.HistoryID != uuid.Nil {
		resp.HistoryID = result.HistoryID.String()
	}
	return resp, nil
}
