package harness

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/recordsim/internal/ir"
	"github.com/roach88/recordsim/internal/message"
	"github.com/roach88/recordsim/internal/plugin"
)

// buildStep turns a declarative step into a plugin step. Variables are
// expanded when the handler runs, so a step may refer to ids saved by
// earlier flow requests.
func buildStep(p PluginStep, v vars) (plugin.Step, error) {
	stage, err := plugin.ParseStage(p.Stage)
	if err != nil {
		return plugin.Step{}, fmt.Errorf("plugin %s: %w", p.Name, err)
	}
	step := plugin.Step{
		Name:                p.Name,
		Stage:               stage,
		Message:             p.Message,
		Entity:              p.Entity,
		FilteringAttributes: p.Filtering,
	}

	switch p.Action {
	case ActionCreate:
		spec := *p.Record
		step.Handler = func(ctx context.Context, _ *plugin.ExecutionContext, svc plugin.Service) error {
			expanded, err := v.expandSpec(spec)
			if err != nil {
				return err
			}
			rec, err := expanded.build()
			if err != nil {
				return err
			}
			_, err = svc.Create(ctx, rec)
			return err
		}
	case ActionSetTarget:
		attrs := p.Attributes
		step.Handler = func(_ context.Context, pc *plugin.ExecutionContext, _ plugin.Service) error {
			target, ok := pc.InputParameters[message.ParamTarget].(*ir.Record)
			if !ok {
				return fmt.Errorf("%s has no target record", pc.MessageName)
			}
			expanded, err := v.expand(attrs)
			if err != nil {
				return err
			}
			return setAttributes(target, expanded.(map[string]any))
		}
	case ActionFail:
		msg := p.Error
		step.Handler = func(context.Context, *plugin.ExecutionContext, plugin.Service) error {
			return errors.New(msg)
		}
	case ActionSetShared:
		key, value := p.Key, p.Value
		step.Handler = func(_ context.Context, pc *plugin.ExecutionContext, _ plugin.Service) error {
			pc.Shared.Set(key, value)
			return nil
		}
	default:
		return plugin.Step{}, fmt.Errorf("plugin %s: unknown action %q", p.Name, p.Action)
	}
	return step, nil
}
