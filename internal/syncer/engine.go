// Package syncer reconciles the projects managed by adaptors with the
// canonical project extracted from the specification.
package syncer

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/cdd-platform/cdd/internal/adaptor"
	"github.com/cdd-platform/cdd/internal/project"
)

const opList = "list"

// Engine plans and applies synchronization passes. It keeps no state between
// calls, so one engine can serve concurrent passes for different adaptors.
type Engine struct {
	logger zerolog.Logger
}

// NewEngine creates an engine logging to logger.
func NewEngine(logger zerolog.Logger) *Engine {
	return &Engine{
		logger: logger.With().Str("component", "syncer").Logger(),
	}
}

// Plan diffs the live project against the spec project, records first, then
// requests. Every spec entity gets exactly one upsert.
func (e *Engine) Plan(spec, live *project.Project) *Plan {
	var actions []Action
	actions = append(actions, diff(KindRecord, spec.Records, live.Records, recordName,
		func(a *Action, r project.DataRecord) { a.Record = &r })...)
	actions = append(actions, diff(KindRequest, spec.Requests, live.Requests, requestName,
		func(a *Action, r project.Request) { a.Request = &r })...)
	return newPlan(actions)
}

// Live asks the adaptor for the records and requests it currently manages.
func (e *Engine) Live(ctx context.Context, client adaptor.Client) (*project.Project, error) {
	records, err := client.ListRecords(ctx)
	if err != nil {
		return nil, &SyncError{Adaptor: client.Name(), Kind: KindRecord, Op: opList, Err: err}
	}

	requests, err := client.ListRequests(ctx)
	if err != nil {
		return nil, &SyncError{Adaptor: client.Name(), Kind: KindRequest, Op: opList, Err: err}
	}

	return &project.Project{Records: records, Requests: requests}, nil
}

// Apply executes the plan in order. The first failing call aborts the pass;
// the returned counts cover the actions completed before it.
func (e *Engine) Apply(ctx context.Context, client adaptor.Client, plan *Plan) (Counts, error) {
	var done Counts
	logger := e.logger.With().Str("adaptor", client.Name()).Logger()

	for _, action := range plan.Actions {
		if err := ctx.Err(); err != nil {
			return done, &SyncError{Adaptor: client.Name(), Kind: action.Kind, Name: action.Name, Op: string(action.Type), Err: err}
		}

		out, err := e.do(ctx, client, action)
		if err != nil {
			return done, &SyncError{Adaptor: client.Name(), Kind: action.Kind, Name: action.Name, Op: string(action.Type), Err: err}
		}

		logger.Debug().
			Str("action", string(action.Type)).
			Str("kind", string(action.Kind)).
			Str("name", action.Name).
			Bool("exists", action.Exists).
			Msg("applied")
		for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
			if line != "" {
				logger.Info().Str("name", action.Name).Msg(line)
			}
		}

		done.add(action)
	}

	return done, nil
}

// Sync runs a full pass against one adaptor: list, plan, apply.
func (e *Engine) Sync(ctx context.Context, spec *project.Project, client adaptor.Client) (Counts, error) {
	live, err := e.Live(ctx, client)
	if err != nil {
		return Counts{}, err
	}

	plan := e.Plan(spec, live)
	e.logger.Info().
		Str("adaptor", client.Name()).
		Int("deletes", plan.Summary.Deleted).
		Int("inserts", plan.Summary.Inserted).
		Int("updates", plan.Summary.Updated).
		Msg("synchronizing")

	return e.Apply(ctx, client, plan)
}

func (e *Engine) do(ctx context.Context, client adaptor.Client, a Action) (string, error) {
	switch {
	case a.Type == ActionDelete && a.Kind == KindRecord:
		return client.DeleteRecord(ctx, a.Name)
	case a.Type == ActionDelete && a.Kind == KindRequest:
		return client.DeleteRequest(ctx, a.Name)
	case a.Type == ActionUpsert && a.Kind == KindRecord && a.Record != nil:
		return client.UpsertRecord(ctx, *a.Record)
	case a.Type == ActionUpsert && a.Kind == KindRequest && a.Request != nil:
		return client.UpsertRequest(ctx, *a.Request)
	}
	return "", fmt.Errorf("invalid action %s %s %q", a.Type, a.Kind, a.Name)
}
