package plugin

import (
	"context"

	"github.com/google/uuid"

	"github.com/roach88/recordsim/internal/ir"
	"github.com/roach88/recordsim/internal/message"
	"github.com/roach88/recordsim/internal/query"
)

// Service issues requests from inside a step. Every request runs nested
// under the step's invocation.
type Service interface {
	Execute(ctx context.Context, req *message.Request) (*message.Response, error)
	Create(ctx context.Context, rec *ir.Record) (uuid.UUID, error)
	Retrieve(ctx context.Context, ref ir.Reference, columns query.ColumnSet) (*ir.Record, error)
	RetrieveMultiple(ctx context.Context, q *query.Expression) (*query.Result, error)
	Update(ctx context.Context, rec *ir.Record) error
	Delete(ctx context.Context, ref ir.Reference) error
}

type boundService struct {
	entry Dispatch
	pc    *ExecutionContext
}

func (s *boundService) Execute(ctx context.Context, req *message.Request) (*message.Response, error) {
	return s.entry(WithExecutionContext(ctx, s.pc), req)
}

func (s *boundService) Create(ctx context.Context, rec *ir.Record) (uuid.UUID, error) {
	resp, err := s.Execute(ctx, message.NewRequest(message.Create).With(message.ParamTarget, rec))
	if err != nil {
		return uuid.Nil, err
	}
	return resp.ID(), nil
}

func (s *boundService) Retrieve(ctx context.Context, ref ir.Reference, columns query.ColumnSet) (*ir.Record, error) {
	resp, err := s.Execute(ctx, message.NewRequest(message.Retrieve).
		With(message.ParamTarget, ref).
		With(message.ParamColumnSet, columns))
	if err != nil {
		return nil, err
	}
	return resp.Entity(), nil
}

func (s *boundService) RetrieveMultiple(ctx context.Context, q *query.Expression) (*query.Result, error) {
	resp, err := s.Execute(ctx, message.NewRequest(message.RetrieveMultiple).With(message.ParamQuery, q))
	if err != nil {
		return nil, err
	}
	return resp.Entities(), nil
}

func (s *boundService) Update(ctx context.Context, rec *ir.Record) error {
	_, err := s.Execute(ctx, message.NewRequest(message.Update).With(message.ParamTarget, rec))
	return err
}

func (s *boundService) Delete(ctx context.Context, ref ir.Reference) error {
	_, err := s.Execute(ctx, message.NewRequest(message.Delete).With(message.ParamTarget, ref))
	return err
}
