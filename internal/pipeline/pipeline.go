// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package pipeline wires one attack traversal through recipe selection,
// HSPL synthesis, HSPL-set optimization, MSPL projection and dashboard
// egress (§4, §9 Design Note "one pipeline traversal per attack, no
// inter-attack batching"). It is adapted from the staged
// validate/transform/execute pipeline shape used elsewhere in the
// retrieved pack, generalized from firewall-configuration stages to
// refinement stages.
package pipeline

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"mitigated.example.com/engine/internal/dashboard"
	"mitigated.example.com/engine/internal/errors"
	"mitigated.example.com/engine/internal/eventmodel"
	"mitigated.example.com/engine/internal/hspl"
	"mitigated.example.com/engine/internal/landscape"
	"mitigated.example.com/engine/internal/metrics"
	"mitigated.example.com/engine/internal/mspl"
	"mitigated.example.com/engine/internal/plugin"
	"mitigated.example.com/engine/internal/recipe"
)

// Stage identifies one named step of the traversal, reported in Result
// for observability (§9 Design Note "per-attack stage timings").
type Stage string

const (
	StageRecipeSelection Stage = "recipe-selection"
	StageHSPLSynthesis   Stage = "hspl-synthesis"
	StageHSPLOptimize    Stage = "hspl-optimize"
	StageMSPLProjection  Stage = "mspl-projection"
	StageDashboardEgress Stage = "dashboard-egress"
)

// StageResult records the outcome of one named stage.
type StageResult struct {
	Stage    Stage
	Success  bool
	Skipped  bool
	Err      error
	Duration time.Duration
}

// Result is the full per-attack traversal outcome.
type Result struct {
	Attack       *eventmodel.Attack
	Recipe       *recipe.Recipe
	HSPLSet      *hspl.Set
	OptimizedSet *hspl.Set
	MSPL         *mspl.MSPL
	Stages       []StageResult
	Duration     time.Time
	Success      bool
}

// Config bundles everything the pipeline needs beyond the attack itself.
type Config struct {
	Registry   *plugin.Registry
	Recipes    *recipe.Library
	Landscape  *landscape.Landscape
	Optimizer  *hspl.Optimizer
	Rand       *rand.Rand
	Resolver   mspl.Resolver
	ActionCfg  mspl.ActionConfig
	Broker     *dashboard.Broker
	DashTopic  string
	DashOnHSPL bool
	DashOnMSPL bool
	Metrics    *metrics.Metrics
}

// Pipeline drives one attack at a time through every refinement stage.
// A fresh Result is produced per attack; there is no cross-attack state
// beyond the ingestion accumulator the caller threads in separately.
type Pipeline struct {
	cfg Config
}

// New creates a pipeline from cfg.
func New(cfg Config) *Pipeline {
	return &Pipeline{cfg: cfg}
}

// Run drives a single attack through recipe selection, HSPL synthesis,
// HSPL optimization, MSPL projection, and dashboard egress, stopping at
// the first stage that cannot proceed (§4: recipe-not-found and
// no-enforcer-found are terminal per-attack outcomes, not process
// failures).
func (p *Pipeline) Run(ctx context.Context, attack *eventmodel.Attack) *Result {
	result := &Result{Attack: attack, Duration: time.Now()}

	r, action, ok := p.runRecipeSelection(result, attack)
	if !ok {
		result.Success = false
		p.observe(result)
		return result
	}

	set, ok := p.runSynthesis(result, r, attack)
	if !ok {
		result.Success = false
		p.observe(result)
		return result
	}

	optimized, ok := p.runOptimize(result, set)
	if !ok {
		result.Success = false
		p.observe(result)
		return result
	}

	m, ok := p.runProjection(ctx, result, action.Action, optimized)
	if !ok {
		result.Success = false
		p.observe(result)
		return result
	}

	p.runDashboard(ctx, result, optimized, m)

	result.Success = true
	p.observe(result)
	return result
}

// observe records the per-attack outcome and per-stage durations once the
// traversal (successful or not) has finished.
func (p *Pipeline) observe(result *Result) {
	if p.cfg.Metrics == nil {
		return
	}
	outcome := "success"
	if !result.Success {
		outcome = "failed"
	}
	p.cfg.Metrics.AttacksProcessed.WithLabelValues(outcome).Inc()
	for _, sr := range result.Stages {
		p.cfg.Metrics.StageDuration.WithLabelValues(string(sr.Stage)).Observe(sr.Duration.Seconds())
	}
}

func (p *Pipeline) runRecipeSelection(result *Result, attack *eventmodel.Attack) (*recipe.Recipe, *plugin.ActionDescriptor, bool) {
	start := time.Now()
	r, action, ok := recipe.Select(p.cfg.Registry, p.cfg.Recipes, p.cfg.Landscape, attack)
	sr := StageResult{Stage: StageRecipeSelection, Duration: time.Since(start)}
	if !ok {
		sr.Success = false
		sr.Err = fmt.Errorf("pipeline: no recipe for attack type %q severity %v", attack.Type, attack.Severity)
		result.Stages = append(result.Stages, sr)
		if p.cfg.Metrics != nil {
			p.cfg.Metrics.RecipeSelection.WithLabelValues("no_recipe").Inc()
		}
		return nil, nil, false
	}
	sr.Success = true
	result.Stages = append(result.Stages, sr)
	result.Recipe = r
	if p.cfg.Metrics != nil {
		p.cfg.Metrics.RecipeSelection.WithLabelValues("selected").Inc()
	}
	return r, action, true
}

func (p *Pipeline) runSynthesis(result *Result, r *recipe.Recipe, attack *eventmodel.Attack) (*hspl.Set, bool) {
	start := time.Now()
	set, err := hspl.Synthesize(p.cfg.Registry, r, attack)
	sr := StageResult{Stage: StageHSPLSynthesis, Duration: time.Since(start)}
	if err != nil {
		sr.Success = false
		sr.Err = err
		result.Stages = append(result.Stages, sr)
		return nil, false
	}
	sr.Success = true
	result.Stages = append(result.Stages, sr)
	result.HSPLSet = set
	return set, true
}

func (p *Pipeline) runOptimize(result *Result, set *hspl.Set) (*hspl.Set, bool) {
	start := time.Now()
	optimized, err := p.cfg.Optimizer.Optimize(set)
	sr := StageResult{Stage: StageHSPLOptimize, Duration: time.Since(start)}
	if err != nil {
		sr.Success = false
		sr.Err = err
		result.Stages = append(result.Stages, sr)
		return nil, false
	}
	sr.Success = true
	result.Stages = append(result.Stages, sr)
	result.OptimizedSet = optimized
	if p.cfg.Metrics != nil {
		p.cfg.Metrics.ObserveOptimization(len(set.Items), len(optimized.Items))
	}
	return optimized, true
}

func (p *Pipeline) runProjection(ctx context.Context, result *Result, action string, set *hspl.Set) (*mspl.MSPL, bool) {
	start := time.Now()
	m, ok, err := mspl.Project(ctx, p.cfg.Registry, p.cfg.Landscape, set, action, p.cfg.Rand, p.cfg.Resolver, p.cfg.ActionCfg)
	sr := StageResult{Stage: StageMSPLProjection, Duration: time.Since(start)}
	if err != nil || !ok {
		sr.Success = false
		if err == nil {
			err = errors.Errorf(errors.KindNoEnforcer, "pipeline: no enforceable (plug-in, node) pair for action %q", action)
		}
		sr.Err = err
		result.Stages = append(result.Stages, sr)
		if p.cfg.Metrics != nil {
			p.cfg.Metrics.MSPLProjections.WithLabelValues(errors.GetKind(err).String()).Inc()
		}
		return nil, false
	}
	sr.Success = true
	result.Stages = append(result.Stages, sr)
	result.MSPL = m
	if p.cfg.Metrics != nil {
		p.cfg.Metrics.MSPLProjections.WithLabelValues("success").Inc()
	}
	return m, true
}

// runDashboard publishes best-effort; a failed publish does not fail the
// attack's traversal (§4.5: "best-effort, independent of the refinement
// result").
func (p *Pipeline) runDashboard(ctx context.Context, result *Result, set *hspl.Set, m *mspl.MSPL) {
	start := time.Now()
	sr := StageResult{Stage: StageDashboardEgress}
	if p.cfg.Broker == nil {
		sr.Skipped = true
		sr.Duration = time.Since(start)
		result.Stages = append(result.Stages, sr)
		return
	}

	var payload []byte
	switch {
	case p.cfg.DashOnHSPL && p.cfg.DashOnMSPL:
		payload = []byte(fmt.Sprintf("hspl=%s;mspl=%s", summarizeHSPL(set), summarizeMSPL(m)))
	case p.cfg.DashOnMSPL:
		payload = []byte(summarizeMSPL(m))
	default:
		payload = []byte(summarizeHSPL(set))
	}

	res := p.cfg.Broker.Publish(ctx, p.cfg.DashTopic, payload)
	sr.Success = res.Delivered
	sr.Err = res.Err
	sr.Duration = time.Since(start)
	result.Stages = append(result.Stages, sr)

	if p.cfg.Metrics != nil {
		outcome := "delivered"
		if !res.Delivered {
			outcome = "failed"
		}
		p.cfg.Metrics.DashboardPublishes.WithLabelValues(outcome).Inc()
	}
}

func summarizeHSPL(set *hspl.Set) string {
	return fmt.Sprintf("%s/%v/%d-item(s)", set.Context.Type, set.Context.Severity, len(set.Items))
}

func summarizeMSPL(m *mspl.MSPL) string {
	if m == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s/%d-rule(s)", m.ItResource.ID, len(m.ItResource.Configuration.Rules))
}
