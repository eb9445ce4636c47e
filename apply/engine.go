// Package apply implements the Apply Engine and Parameter Manager
// aggregate (spec.md §4.K, §9 "Global state"): the single owner of the
// element arena, blackboard, domains, criteria, and ambient flags, and
// the global apply cycle that evaluates rules and drives synchronization.
package apply

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shirou/gopsutil/v3/process"

	"pfw/blackboard"
	"pfw/criterion"
	"pfw/domain"
	"pfw/element"
	"pfw/internal/bootconfig"
	"pfw/internal/pferrors"
	"pfw/internal/plog"
	"pfw/rule"
	"pfw/syncer"
	"pfw/types"
)

// Engine is the Parameter Manager: the single aggregate owning the
// arena, blackboard, domains, criteria, syncer-bearing tree, and
// ambient flags (spec.md §9 "Global state" — no process-wide
// singletons, the aggregate is passed explicitly).
type Engine struct {
	mu sync.Mutex

	SystemClassName string
	Tree            *element.Tree
	Blackboard      *blackboard.Blackboard
	Config          bootconfig.Config

	domains     []*domain.ConfigurableDomain
	criteria    map[string]*criterion.Criterion
	critOrder   []string
	reportProc  bool
	currentCtx  context.Context
	handle      *element.Handle
	dbusObs     criterion.Observer
}

// NewEngine creates an Engine over an already-frozen tree and its
// blackboard. config carries the bring-up flags (tuning mode, auto-sync,
// value space, output format) loaded via internal/bootconfig.
func NewEngine(systemClassName string, tree *element.Tree, bb *blackboard.Blackboard, config bootconfig.Config) *Engine {
	e := &Engine{
		SystemClassName: systemClassName,
		Tree:            tree,
		Blackboard:      bb,
		Config:          config,
		criteria:        make(map[string]*criterion.Criterion),
		handle:          element.NewHandle(tree, bb),
	}
	e.handle.Configure(config.TuningMode, config.AutoSync)
	return e
}

// EnableDBusObserver attaches obs so every future AddCriterion also routes
// criterion changes to it alongside the engine's own apply-cycle trigger
// (spec.md §4.J's single observer slot fanned out via criterion.MultiObserver).
// Criteria already registered before this call are not retroactively
// rewired.
func (e *Engine) EnableDBusObserver(obs criterion.Observer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dbusObs = obs
}

// accessContextLocked builds the types.AccessContext the engine's
// Config.ValueSpace/OutputRawFormat commands (spec.md §6's setValueSpace,
// setOutputRawFormat) leave GetParameter/SetParameter to apply.
func (e *Engine) accessContextLocked() types.AccessContext {
	return types.AccessContext{
		Space:     types.Space(e.Config.ValueSpace),
		RawFormat: types.RawFormat(e.Config.OutputRawFormat),
	}
}

// ReportProcessStats enables per-cycle RSS/CPU diagnostics via gopsutil
// (an observability nicety the original leaves to the embedder; off by
// default since sampling /proc on every cycle is needless overhead for
// callers that don't want it).
func (e *Engine) ReportProcessStats(enable bool) { e.reportProc = enable }

// AddDomain registers d, rejecting a duplicate name (spec.md's
// createDomain command).
func (e *Engine) AddDomain(d *domain.ConfigurableDomain) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.Config.TuningMode {
		return pferrors.ForKind(pferrors.StateViolation, "createDomain requires tuning mode")
	}
	if _, ok := e.findDomain(d.Name); ok {
		return pferrors.ForKind(pferrors.InvariantViolation, "domain %q already exists", d.Name)
	}
	e.domains = append(e.domains, d)
	return nil
}

// DeleteDomain removes a domain by name (spec.md's deleteDomain command).
func (e *Engine) DeleteDomain(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.Config.TuningMode {
		return pferrors.ForKind(pferrors.StateViolation, "deleteDomain requires tuning mode")
	}
	for i, d := range e.domains {
		if d.Name == name {
			e.domains = append(e.domains[:i], e.domains[i+1:]...)
			return nil
		}
	}
	return pferrors.ForKind(pferrors.PathNotFound, "no domain %q", name)
}

// Domain returns the domain named name, if any.
func (e *Engine) Domain(name string) (*domain.ConfigurableDomain, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.findDomain(name)
}

func (e *Engine) findDomain(name string) (*domain.ConfigurableDomain, bool) {
	for _, d := range e.domains {
		if d.Name == name {
			return d, true
		}
	}
	return nil, false
}

// Domains returns every domain in declaration order.
func (e *Engine) Domains() []*domain.ConfigurableDomain {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*domain.ConfigurableDomain, len(e.domains))
	copy(out, e.domains)
	return out
}

// AddCriterion registers c and subscribes the engine so state changes
// drive an apply cycle synchronously (spec.md §9 "Observer callback →
// explicit subscription").
func (e *Engine) AddCriterion(c *criterion.Criterion) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, dup := e.criteria[c.Name()]; dup {
		return pferrors.ForKind(pferrors.InvariantViolation, "criterion %q already exists", c.Name())
	}
	e.criteria[c.Name()] = c
	e.critOrder = append(e.critOrder, c.Name())
	if e.dbusObs != nil {
		c.Subscribe(criterion.MultiObserver{e, e.dbusObs})
	} else {
		c.Subscribe(e)
	}
	return nil
}

// Criterion looks up a registered criterion by name; it also serves as
// a rule.Lookup function for parsing rule text.
func (e *Engine) Criterion(name string) (*criterion.Criterion, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.criteria[name]
	return c, ok
}

// Criteria returns every registered criterion in declaration order.
func (e *Engine) Criteria() []*criterion.Criterion {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*criterion.Criterion, len(e.critOrder))
	for i, n := range e.critOrder {
		out[i] = e.criteria[n]
	}
	return out
}

// ParseRule parses rule text against the engine's registered criteria
// (spec.md's setRule command).
func (e *Engine) ParseRule(text string) (rule.Rule, error) {
	return rule.Parse(text, e.Criterion)
}

// SetCriterionState sets a registered criterion's state from its
// lexical form. The resulting CriterionChanged callback (if the state
// actually changed) runs an apply cycle synchronously, still holding the
// engine's lock, per spec.md §9.
func (e *Engine) SetCriterionState(ctx context.Context, name, lexical string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.criteria[name]
	if !ok {
		return pferrors.ForKind(pferrors.PathNotFound, "no criterion %q", name)
	}
	e.currentCtx = ctx
	return c.SetStateLexical(lexical)
}

// CriterionChanged implements criterion.Observer. It is only ever
// invoked from within a criterion mutation made through
// SetCriterionState, which already holds e.mu, so it drives the apply
// cycle directly rather than through the public, locking Apply.
func (e *Engine) CriterionChanged(name string, oldState, newState int64) {
	ctx := e.currentCtx
	if ctx == nil {
		ctx = context.Background()
	}
	if err := e.applyLocked(ctx, false); err != nil {
		plog.Warnf(ctx, "apply after criterion %q change (%d -> %d): %v", name, oldState, newState, err)
	}
}

// Apply runs one global apply cycle (spec.md §4.K): skip entirely if
// tuning mode is on; otherwise, for each domain in declaration order,
// apply its winning configuration (sequence-aware domains sync inline),
// then push the accumulated batch for sequence-unaware domains.
// force=true ignores every domain's last_applied (used after structural
// changes, tuning-mode exit, and import).
func (e *Engine) Apply(ctx context.Context, force bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.currentCtx = ctx
	return e.applyLocked(ctx, force)
}

func (e *Engine) applyLocked(ctx context.Context, force bool) error {
	if e.Config.TuningMode {
		return nil
	}

	cycleID, err := uuid.NewRandom()
	if err != nil {
		cycleID = uuid.UUID{}
	}
	plog.Infof(ctx, "apply cycle %s start (force=%v, domains=%d)", cycleID, force, len(e.domains))
	start := time.Now()

	batch := syncer.NewSet()
	for _, d := range e.domains {
		if err := d.Apply(ctx, e.Blackboard, e.Tree, batch, force); err != nil {
			return pferrors.Wrapf(err, "applying domain %q", d.Name)
		}
	}
	for _, se := range batch.Sync(ctx, e.Blackboard, false) {
		plog.Warnf(ctx, "cycle %s: sync error at offset %d size %d: %v", cycleID, se.Offset, se.Size, se.Err)
	}

	plog.Infof(ctx, "apply cycle %s done in %s", cycleID, time.Since(start))
	e.reportDiagnostics(ctx, cycleID)
	return nil
}

// reportDiagnostics logs process RSS/CPU via gopsutil when enabled,
// giving the ambient logging concern something concrete to say beyond
// "cycle ok" (an observability nicety the original's LogWrapper.h leaves
// to the embedder).
func (e *Engine) reportDiagnostics(ctx context.Context, cycleID uuid.UUID) {
	if !e.reportProc {
		return
	}
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		plog.Warnf(ctx, "cycle %s: process stats unavailable: %v", cycleID, err)
		return
	}
	mem, err := p.MemoryInfo()
	if err != nil {
		plog.Warnf(ctx, "cycle %s: memory stats unavailable: %v", cycleID, err)
		return
	}
	cpu, err := p.CPUPercentWithContext(ctx)
	if err != nil {
		plog.Warnf(ctx, "cycle %s: cpu stats unavailable: %v", cycleID, err)
		return
	}
	plog.Infof(ctx, "cycle %s: rss=%d bytes cpu=%.2f%%", cycleID, mem.RSS, cpu)
}

// AddElement associates an element with a domain by path (spec.md's
// addElement command); structural changes require tuning mode.
func (e *Engine) AddElement(domainName, path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.Config.TuningMode {
		return pferrors.ForKind(pferrors.StateViolation, "addElement requires tuning mode")
	}
	d, ok := e.findDomain(domainName)
	if !ok {
		return pferrors.ForKind(pferrors.PathNotFound, "no domain %q", domainName)
	}
	r, err := e.Tree.Resolve(element.ParsePath(path))
	if err != nil {
		return err
	}
	return d.AddElement(r.ID, e.Tree)
}

// RemoveElement dissociates an element from a domain by path (spec.md's
// removeElement command).
func (e *Engine) RemoveElement(domainName, path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.Config.TuningMode {
		return pferrors.ForKind(pferrors.StateViolation, "removeElement requires tuning mode")
	}
	d, ok := e.findDomain(domainName)
	if !ok {
		return pferrors.ForKind(pferrors.PathNotFound, "no domain %q", domainName)
	}
	r, err := e.Tree.Resolve(element.ParsePath(path))
	if err != nil {
		return err
	}
	return d.RemoveElement(r.ID)
}

// SplitDomain splits an associated element into its children (spec.md's
// splitDomain command).
func (e *Engine) SplitDomain(domainName, path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.Config.TuningMode {
		return pferrors.ForKind(pferrors.StateViolation, "splitDomain requires tuning mode")
	}
	d, ok := e.findDomain(domainName)
	if !ok {
		return pferrors.ForKind(pferrors.PathNotFound, "no domain %q", domainName)
	}
	r, err := e.Tree.Resolve(element.ParsePath(path))
	if err != nil {
		return err
	}
	return d.SplitElement(r.ID, e.Tree)
}

// CreateConfiguration adds a new configuration to a domain (spec.md's
// createConfiguration command).
func (e *Engine) CreateConfiguration(domainName, configName string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.Config.TuningMode {
		return pferrors.ForKind(pferrors.StateViolation, "createConfiguration requires tuning mode")
	}
	d, ok := e.findDomain(domainName)
	if !ok {
		return pferrors.ForKind(pferrors.PathNotFound, "no domain %q", domainName)
	}
	_, err := d.CreateConfiguration(configName, e.Blackboard, e.Tree)
	return err
}

// SaveConfiguration saves a domain's named configuration from the live
// blackboard (spec.md's saveConfiguration command).
func (e *Engine) SaveConfiguration(domainName, configName string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	d, ok := e.findDomain(domainName)
	if !ok {
		return pferrors.ForKind(pferrors.PathNotFound, "no domain %q", domainName)
	}
	for _, cfg := range d.Configurations() {
		if cfg.Name == configName {
			return cfg.Save(e.Blackboard, e.Tree)
		}
	}
	return pferrors.ForKind(pferrors.PathNotFound, "no configuration %q in domain %q", configName, domainName)
}

// RestoreConfiguration restores a domain's named configuration into the
// blackboard and immediately syncs every syncer covering the domain's
// elements (spec.md's restoreConfiguration
// command, used outside the normal rule-driven apply cycle).
func (e *Engine) RestoreConfiguration(ctx context.Context, domainName, configName string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	d, ok := e.findDomain(domainName)
	if !ok {
		return pferrors.ForKind(pferrors.PathNotFound, "no domain %q", domainName)
	}
	for _, cfg := range d.Configurations() {
		if cfg.Name == configName {
			batch := syncer.NewSet()
			for _, id := range d.Elements() {
				if err := e.Tree.FillSyncerSetFromDescendant(id, batch); err != nil {
					return err
				}
			}
			if errs := cfg.Restore(ctx, e.Blackboard, e.Tree, true, batch, batch); len(errs) > 0 {
				return errs[0]
			}
			return nil
		}
	}
	return pferrors.ForKind(pferrors.PathNotFound, "no configuration %q in domain %q", configName, domainName)
}

// SetElementSequence reorders a configuration's area list (spec.md's
// setElementSequence command).
func (e *Engine) SetElementSequence(domainName, configName string, paths []string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.Config.TuningMode {
		return pferrors.ForKind(pferrors.StateViolation, "setElementSequence requires tuning mode")
	}
	d, ok := e.findDomain(domainName)
	if !ok {
		return pferrors.ForKind(pferrors.PathNotFound, "no domain %q", domainName)
	}
	for _, cfg := range d.Configurations() {
		if cfg.Name == configName {
			return cfg.SetElementSequence(e.Tree, paths)
		}
	}
	return pferrors.ForKind(pferrors.PathNotFound, "no configuration %q in domain %q", configName, domainName)
}

// SetRule sets a domain configuration's applicability rule (spec.md's
// setRule command).
func (e *Engine) SetRule(domainName, configName, ruleText string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.Config.TuningMode {
		return pferrors.ForKind(pferrors.StateViolation, "setRule requires tuning mode")
	}
	d, ok := e.findDomain(domainName)
	if !ok {
		return pferrors.ForKind(pferrors.PathNotFound, "no domain %q", domainName)
	}
	r, err := rule.Parse(ruleText, func(name string) (*criterion.Criterion, bool) {
		c, ok := e.criteria[name]
		return c, ok
	})
	if err != nil {
		return err
	}
	for _, cfg := range d.Configurations() {
		if cfg.Name == configName {
			cfg.Rule = r
			return nil
		}
	}
	return pferrors.ForKind(pferrors.PathNotFound, "no configuration %q in domain %q", configName, domainName)
}

// GetParameter reads the textual value at path under the engine's
// current value-space/raw-format configuration (spec.md §6's
// getParameter command).
func (e *Engine) GetParameter(path string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.handle.Get(path, e.accessContextLocked())
}

// SetParameter writes the textual value at path (spec.md §6's
// setParameter command). In tuning mode with auto-sync on, the write
// also pushes the element's covering syncer before returning
// (spec.md §4.C).
func (e *Engine) SetParameter(ctx context.Context, path, value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.handle.Set(ctx, path, value, e.accessContextLocked())
}

// SetTuningMode flips tuning mode (spec.md §6's setTuningMode command).
// Leaving tuning mode (enabled=false) force-applies immediately, since
// every structural/parameter change made while tuning is otherwise
// invisible to the apply cycle (spec.md §4.K).
func (e *Engine) SetTuningMode(ctx context.Context, enabled bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	wasTuning := e.Config.TuningMode
	e.Config.TuningMode = enabled
	e.handle.Configure(e.Config.TuningMode, e.Config.AutoSync)
	if wasTuning && !enabled {
		e.currentCtx = ctx
		return e.applyLocked(ctx, true)
	}
	return nil
}

// SetAutoSync sets whether a tuning-mode parameter write also triggers
// its covering syncer (spec.md §6's setAutoSync command).
func (e *Engine) SetAutoSync(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Config.AutoSync = enabled
	e.handle.Configure(e.Config.TuningMode, e.Config.AutoSync)
}

// SetValueSpace selects real or raw units for GetParameter/SetParameter
// (spec.md §6's setValueSpace command).
func (e *Engine) SetValueSpace(space bootconfig.ValueSpace) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Config.ValueSpace = space
}

// SetOutputRawFormat selects decimal or hex rendering for raw-space
// output (spec.md §6's setOutputRawFormat command).
func (e *Engine) SetOutputRawFormat(format bootconfig.RawFormat) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Config.OutputRawFormat = format
}

// ExportSettings writes the binary settings file for the engine's
// current structure (spec.md's exportSettings command).
func (e *Engine) ExportSettings(w io.Writer) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return ExportSettings(e.SystemClassName, e.domains, e.critsLocked(), w)
}

// ImportSettings reads a binary settings file, restores every area, and
// force-applies (spec.md's importSettings command and §4.K "Force-apply
// ... used after ... import").
func (e *Engine) ImportSettings(ctx context.Context, r io.Reader) error {
	e.mu.Lock()
	if err := ImportSettings(e.SystemClassName, e.domains, e.critsLocked(), r); err != nil {
		e.mu.Unlock()
		return err
	}
	e.currentCtx = ctx
	err := e.applyLocked(ctx, true)
	e.mu.Unlock()
	return err
}

func (e *Engine) critsLocked() []*criterion.Criterion {
	out := make([]*criterion.Criterion, len(e.critOrder))
	for i, n := range e.critOrder {
		out[i] = e.criteria[n]
	}
	return out
}

// BringUp performs spec.md §4.K's "Initial bring-up": back-sync hardware
// state into the blackboard, validate every domain configuration so
// every area is initialized, then force-apply.
func (e *Engine) BringUp(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	sync, err := NewBackSynchronizer(e.Tree, e.Blackboard)
	if err != nil {
		return err
	}
	for _, se := range sync.Sync(ctx) {
		plog.Warnf(ctx, "bring-up back-sync error at offset %d size %d: %v", se.Offset, se.Size, se.Err)
	}

	for _, d := range e.domains {
		for _, cfg := range d.Configurations() {
			if err := cfg.Validate(e.Blackboard, e.Tree); err != nil {
				return pferrors.Wrapf(err, "validating domain %q configuration %q at bring-up", d.Name, cfg.Name)
			}
		}
	}

	e.currentCtx = ctx
	return e.applyLocked(ctx, true)
}
