package client

import (
	"context"
	"fmt"

	"google.golang.org/grpc"

	solverv1 "islandflow/pkg/api/solverv1"
	"islandflow/pkg/apperror"
	"islandflow/pkg/domain"
)

// SolverClient calls islandflow.solver.v1.SolverService.
type SolverClient struct {
	conn   *grpc.ClientConn
	client solverv1.SolverServiceClient
	cfg    ClientConfig
}

func NewSolverClient(cfg ClientConfig, opts ...grpc.DialOption) (*SolverClient, error) {
	conn, err := NewGRPCClient(cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to solver service: %w", err)
	}

	return &SolverClient{
		conn:   conn,
		client: solverv1.NewSolverServiceClient(conn),
		cfg:    cfg,
	}, nil
}

// Solve sends p to the server. Server errors come back as *apperror.Error
// with their original code.
func (c *SolverClient) Solve(ctx context.Context, p *domain.Problem, skipCache bool) (*solverv1.SolveResponse, error) {
	if p == nil {
		return nil, apperror.ErrNilProblem
	}

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	resp, err := c.client.Solve(ctx, &solverv1.SolveRequest{Problem: p, SkipCache: skipCache})
	if err != nil {
		return nil, apperror.FromGRPC(err)
	}
	return resp, nil
}

func (c *SolverClient) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
