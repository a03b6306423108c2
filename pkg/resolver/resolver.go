package resolver

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/perdasilva/depres/pkg/depspec"
	"github.com/perdasilva/depres/pkg/universe"
	"github.com/perdasilva/depres/pkg/universe/search"
)

// Resolver turns a target dependency string into an ordered plan of
// decisions against a universe.Provider.
type Resolver struct {
	provider        universe.Provider
	grammar         depspec.Grammar
	logger          *zap.Logger
	rootFlags       map[string]bool
	maxRestarts     int
	maxAnyOfRetries int
	preferInstalled bool
	planCheck       bool
}

func New(provider universe.Provider, options ...Option) *Resolver {
	r := &Resolver{
		provider:        provider,
		grammar:         depspec.MustGrammar(depspec.GrammarPaludis1),
		logger:          zap.NewNop(),
		rootFlags:       map[string]bool{},
		maxRestarts:     DefaultMaxRestarts,
		maxAnyOfRetries: DefaultMaxAnyOfRetries,
		preferInstalled: true,
	}
	for _, option := range options {
		option(r)
	}
	return r
}

// Resolve parses targets as one dependency string and resolves it.
//
// A malformed target string returns a *depspec.DepStringError and no
// result. If some resolutions cannot be satisfied the full result is
// returned together with an *UnsatisfiableError. Provider errors and
// cancellation return no result.
func (r *Resolver) Resolve(ctx context.Context, targets ...string) (*Result, error) {
	tree, err := depspec.Parse(strings.Join(targets, " "), r.grammar)
	if err != nil {
		return nil, err
	}

	runID := uuid.New()
	logger := r.logger.With(zap.String("run", runID.String()))
	logger.Debug("resolving", zap.String("targets", tree.String()))

	restarts := make(map[Key]int)
	preload := make(map[Key][]*depspec.Atom)
	total := 0
	for {
		rn := r.newRun(logger, preload, restarts)
		err := rn.execute(ctx, tree)
		var restart *restartError
		if errors.As(err, &restart) {
			total++
			continue
		}
		if err != nil {
			return nil, err
		}
		return rn.finish(ctx, runID, total)
	}
}

type workItem struct {
	node           depspec.Node
	owner          *Key
	depender       *universe.Candidate
	viaConditional bool
	origin         *choicePoint
}

// choicePoint records an || ( ) group and enough state to try its next
// alternative.
type choicePoint struct {
	node     *depspec.AnyOf
	item     workItem
	id       string
	mark     Mark
	queue    []workItem
	deferred map[Key][]workItem
	next     int
	parent   *choicePoint
}

// run is one pass over the target tree. A restart throws it away and
// starts a new one that shares preload and restarts.
type run struct {
	*Resolver
	logger *zap.Logger

	store    *Store
	queue    []workItem
	deferred map[Key][]workItem
	choices  []*choicePoint
	retries  map[string]int

	installed map[Key]*universe.Candidate
	preload   map[Key][]*depspec.Atom
	restarts  map[Key]int
}

func (r *Resolver) newRun(logger *zap.Logger, preload map[Key][]*depspec.Atom, restarts map[Key]int) *run {
	return &run{
		Resolver:  r,
		logger:    logger,
		store:     NewStore(),
		deferred:  make(map[Key][]workItem),
		retries:   make(map[string]int),
		installed: make(map[Key]*universe.Candidate),
		preload:   preload,
		restarts:  restarts,
	}
}

func (rn *run) execute(ctx context.Context, tree *depspec.AllOf) error {
	rn.queue = append(rn.queue, workItem{node: tree})
	return rn.drain(ctx)
}

// drain processes queued work until the queue is empty.
func (rn *run) drain(ctx context.Context) error {
	for len(rn.queue) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		var item workItem
		item, rn.queue = rn.queue[0], rn.queue[1:]
		if err := rn.process(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

func (rn *run) process(ctx context.Context, item workItem) error {
	rn.logger.Debug("processing", zap.String("owner", ownerOf(item.owner)), zap.String("node", depspec.Format(item.node)))

	switch n := item.node.(type) {
	case *depspec.AllOf:
		rn.enqueueChildren(item, n.Children, item.viaConditional)
	case *depspec.Conditional:
		enabled, known := rn.flagState(item, n.Flag)
		// held until decide releases the owner's deferred items
		if !known {
			rn.deferred[*item.owner] = append(rn.deferred[*item.owner], item)
			return nil
		}
		if enabled != n.Negated {
			rn.enqueueChildren(item, n.Children, true)
		}
	case *depspec.AnyOf:
		return rn.choose(ctx, item, n)
	case *depspec.Atom:
		return rn.resolveAtom(ctx, item, n)
	}
	return nil
}

func ownerOf(k *Key) string {
	if k == nil {
		return RootKey.String()
	}
	return k.String()
}

func (rn *run) enqueueChildren(item workItem, children []depspec.Node, viaConditional bool) {
	for _, child := range children {
		rn.queue = append(rn.queue, workItem{
			node:           child,
			owner:          item.owner,
			depender:       item.depender,
			viaConditional: viaConditional,
			origin:         item.origin,
		})
	}
}

// flagState evaluates flag for the owner of item. The second result is
// false while the owner has no candidate yet.
func (rn *run) flagState(item workItem, flag string) (bool, bool) {
	if item.owner == nil {
		return rn.rootFlags[flag], true
	}
	r := rn.store.Get(*item.owner)
	if r == nil || r.Candidate == nil {
		return false, false
	}
	return rn.provider.FlagState(r.Candidate, flag), true
}

func (rn *run) choose(ctx context.Context, item workItem, n *depspec.AnyOf) error {
	if len(n.Children) == 0 {
		key := RootKey
		if item.owner != nil {
			key = *item.owner
		}
		if cp := rn.backtrackTarget(implicated(item.origin)); cp != nil {
			return rn.backtrack(ctx, cp)
		}
		rn.fail(key, "empty || ( ) group can never be satisfied")
		return nil
	}

	cp := &choicePoint{
		node:     n,
		item:     item,
		id:       ownerOf(item.owner) + " " + depspec.Format(n),
		mark:     rn.store.Mark(),
		queue:    cloneQueue(rn.queue),
		deferred: cloneDeferred(rn.deferred),
		parent:   item.origin,
	}
	next, err := rn.pickAlternative(ctx, cp, 0)
	if err != nil {
		return err
	}
	cp.next = next
	rn.choices = append(rn.choices, cp)
	rn.enqueueAlternative(cp)
	return nil
}

// pickAlternative returns the first alternative at or after from that
// looks satisfiable in the current state, or from itself if none does.
func (rn *run) pickAlternative(ctx context.Context, cp *choicePoint, from int) (int, error) {
	for i := from; i < len(cp.node.Children); i++ {
		ok, err := rn.viable(ctx, cp.item, cp.node.Children[i])
		if err != nil {
			return 0, err
		}
		if ok {
			return i, nil
		}
	}
	return from, nil
}

func (rn *run) enqueueAlternative(cp *choicePoint) {
	rn.logger.Debug("choosing alternative",
		zap.String("group", cp.id),
		zap.String("alternative", depspec.Format(cp.node.Children[cp.next])))
	rn.queue = append(rn.queue, workItem{
		node:           cp.node.Children[cp.next],
		owner:          cp.item.owner,
		depender:       cp.item.depender,
		viaConditional: cp.item.viaConditional,
		origin:         cp,
	})
}

// viable is a shallow look ahead: an atom is viable when a matching
// candidate is already decided or its slot is still open.
func (rn *run) viable(ctx context.Context, item workItem, node depspec.Node) (bool, error) {
	switch n := node.(type) {
	case *depspec.Atom:
		candidates, err := rn.provider.CandidatesFor(ctx, n.Name)
		if err != nil {
			return false, err
		}
		for _, c := range candidates {
			if !universe.Matches(n, c) {
				continue
			}
			r := rn.store.Get(Key{Name: c.Name, Slot: c.Slot})
			if r == nil || r.Status == StatusUnresolved {
				return true, nil
			}
			if r.Status == StatusDecided && r.Candidate.ID() == c.ID() {
				return true, nil
			}
		}
		return false, nil
	case *depspec.AnyOf:
		for _, child := range n.Children {
			ok, err := rn.viable(ctx, item, child)
			if ok || err != nil {
				return ok, err
			}
		}
		return false, nil
	case *depspec.Conditional:
		enabled, known := rn.flagState(item, n.Flag)
		if known && enabled == n.Negated {
			return true, nil
		}
	}
	for _, child := range depspec.Children(node) {
		ok, err := rn.viable(ctx, item, child)
		if !ok || err != nil {
			return ok, err
		}
	}
	return true, nil
}

func (rn *run) resolveAtom(ctx context.Context, item workItem, a *depspec.Atom) error {
	constraint := &Constraint{
		From:           item.owner,
		Depender:       item.depender,
		Atom:           a,
		ViaConditional: item.viaConditional,
		origin:         item.origin,
	}

	for _, r := range rn.store.ByName(a.Name) {
		if r.Status == StatusDecided && universe.Matches(a, r.Candidate) {
			rn.store.AddConstraint(r.Key, constraint)
			return nil
		}
	}

	candidates, err := rn.provider.CandidatesFor(ctx, a.Name)
	if err != nil {
		return err
	}
	matching := search.Filter(candidates, search.MatchingAtom(a))

	if len(matching) == 0 {
		key := Key{Name: a.Name, Slot: a.Slot}
		for _, r := range rn.store.ByName(a.Name) {
			if a.Slot == "" || r.Key.Slot == a.Slot {
				key = r.Key
				break
			}
		}
		rn.store.AddConstraint(key, constraint)
		if rn.store.Get(key).Status == StatusFailed {
			return nil
		}
		return rn.conflict(ctx, key, constraint, fmt.Sprintf("no candidate matches %s", a))
	}

	if err := rn.rank(ctx, matching); err != nil {
		return err
	}

	var taken *Resolution
	for _, c := range matching {
		key := Key{Name: c.Name, Slot: c.Slot}
		r := rn.store.Get(key)
		if r == nil || r.Status == StatusUnresolved {
			return rn.decide(ctx, key, c, constraint)
		}
		if taken == nil {
			taken = r
		}
	}

	// every slot a matching candidate could fill is already decided
	if ok := rn.store.AddConstraint(taken.Key, constraint); ok {
		return nil
	}
	return rn.conflict(ctx, taken.Key, constraint,
		fmt.Sprintf("%s conflicts with %s", a, taken.Candidate.ID()))
}

// rank orders candidates by preference: those meeting every constraint
// remembered from a restart, then installed ones when preferred, then
// highest version.
func (rn *run) rank(ctx context.Context, candidates []*universe.Candidate) error {
	installed := make(map[*universe.Candidate]bool, len(candidates))
	if rn.preferInstalled {
		for _, c := range candidates {
			i, err := rn.installedFor(ctx, Key{Name: c.Name, Slot: c.Slot})
			if err != nil {
				return err
			}
			installed[c] = i != nil && i.ID() == c.ID()
		}
	}
	preferred := make(map[*universe.Candidate]bool, len(candidates))
	for _, c := range candidates {
		preferred[c] = rn.preloaded(c)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		ci, cj := candidates[i], candidates[j]
		if preferred[ci] != preferred[cj] {
			return preferred[ci]
		}
		if installed[ci] != installed[cj] {
			return installed[ci]
		}
		return universe.ByVersionDescending(ci, cj)
	})
	return nil
}

func (rn *run) preloaded(c *universe.Candidate) bool {
	atoms := rn.preload[Key{Name: c.Name, Slot: c.Slot}]
	if len(atoms) == 0 {
		return false
	}
	for _, a := range atoms {
		if !universe.Matches(a, c) {
			return false
		}
	}
	return true
}

func (rn *run) installedFor(ctx context.Context, key Key) (*universe.Candidate, error) {
	if c, ok := rn.installed[key]; ok {
		return c, nil
	}
	c, err := rn.provider.InstalledCandidateFor(ctx, key.Name, key.Slot)
	if err != nil {
		return nil, err
	}
	rn.installed[key] = c
	return c, nil
}

func (rn *run) decide(ctx context.Context, key Key, c *universe.Candidate, constraint *Constraint) error {
	r := rn.store.GetOrCreate(key)
	r.Restarts = rn.restarts[key]
	rn.store.AddConstraint(key, constraint)
	rn.store.Decide(key, c)
	rn.logger.Debug("decided", zap.Stringer("key", key), zap.String("candidate", c.ID()))

	deps, err := rn.provider.DeclaredDependencies(ctx, c)
	if err != nil {
		return err
	}
	owner := key
	rn.queue = append(rn.queue, workItem{
		node:     deps,
		owner:    &owner,
		depender: c,
		origin:   constraint.origin,
	})

	if items, ok := rn.deferred[key]; ok {
		delete(rn.deferred, key)
		rn.queue = append(rn.queue, items...)
	}
	return nil
}

// conflict handles a resolution that cannot keep its current state. It
// restarts the run when another candidate meets every constraint, or
// backtracks into an || ( ) group that contributed to the conflict, and
// otherwise fails the resolution.
func (rn *run) conflict(ctx context.Context, key Key, constraint *Constraint, reason string) error {
	r := rn.store.Get(key)

	if rn.restarts[key] < rn.maxRestarts {
		alternative, err := rn.alternativeFor(ctx, r)
		if err != nil {
			return err
		}
		if alternative != nil {
			atoms := make([]*depspec.Atom, len(r.Constraints))
			for i, c := range r.Constraints {
				atoms[i] = c.Atom
			}
			rn.preload[key] = atoms
			rn.restarts[key]++
			rn.logger.Info("restarting",
				zap.Stringer("key", key),
				zap.String("candidate", alternative.ID()),
				zap.Int("restarts", rn.restarts[key]))
			return &restartError{key: key}
		}
	}

	origins := []*choicePoint{constraint.origin}
	for _, c := range r.Constraints {
		origins = append(origins, c.origin)
	}
	if cp := rn.backtrackTarget(implicated(origins...)); cp != nil {
		return rn.backtrack(ctx, cp)
	}

	rn.fail(key, reason)
	return nil
}

// alternativeFor finds a candidate other than r's current one that meets
// every constraint on r.
func (rn *run) alternativeFor(ctx context.Context, r *Resolution) (*universe.Candidate, error) {
	candidates, err := rn.provider.CandidatesFor(ctx, r.Key.Name)
	if err != nil {
		return nil, err
	}
	current := func(*universe.Candidate) bool { return false }
	if r.Candidate != nil {
		current = search.WithID(r.Candidate.ID())
	}
	found := search.Filter(candidates, search.And(search.WithSlot(r.Key.Slot), search.Not(current), r.SatisfiedBy))
	if len(found) == 0 {
		return nil, nil
	}
	return found[0], nil
}

func implicated(origins ...*choicePoint) map[*choicePoint]bool {
	out := make(map[*choicePoint]bool)
	for _, cp := range origins {
		for ; cp != nil && !out[cp]; cp = cp.parent {
			out[cp] = true
		}
	}
	return out
}

// backtrackTarget returns the most recent implicated choice point that
// still has an untried alternative and retries left.
func (rn *run) backtrackTarget(candidates map[*choicePoint]bool) *choicePoint {
	for i := len(rn.choices) - 1; i >= 0; i-- {
		cp := rn.choices[i]
		if !candidates[cp] {
			continue
		}
		if cp.next+1 < len(cp.node.Children) && rn.retries[cp.id] < rn.maxAnyOfRetries {
			return cp
		}
	}
	return nil
}

func (rn *run) backtrack(ctx context.Context, cp *choicePoint) error {
	for i := len(rn.choices) - 1; i >= 0; i-- {
		if rn.choices[i] == cp {
			rn.choices = rn.choices[:i+1]
			break
		}
	}
	rn.store.RollbackTo(cp.mark)
	rn.queue = cloneQueue(cp.queue)
	rn.deferred = cloneDeferred(cp.deferred)
	rn.retries[cp.id]++

	next, err := rn.pickAlternative(ctx, cp, cp.next+1)
	if err != nil {
		return err
	}
	rn.logger.Info("backtracking",
		zap.String("group", cp.id),
		zap.String("abandoned", depspec.Format(cp.node.Children[cp.next])),
		zap.Int("retries", rn.retries[cp.id]))
	cp.next = next
	rn.enqueueAlternative(cp)
	return nil
}

func (rn *run) fail(key Key, reason string) {
	rn.logger.Info("resolution failed", zap.Stringer("key", key), zap.String("reason", reason))
	rn.store.Fail(key, reason)
}

func (rn *run) finish(ctx context.Context, runID uuid.UUID, restarts int) (*Result, error) {
	resolutions := rn.store.Resolutions()
	order, cycles := topologicalOrder(resolutions)
	for _, cycle := range cycles {
		rn.logger.Warn("dependency cycle", zap.Stringer("cycle", cycle))
	}
	skipped := skippedKeys(rn.store)

	result := &Result{
		RunID:       runID,
		Resolutions: resolutions,
		Cycles:      cycles,
		Restarts:    restarts,
	}
	var failures []*ResolutionError
	for _, key := range order {
		r := rn.store.Get(key)
		decision := Decision{Candidate: r.Candidate}
		switch {
		case r.Status == StatusFailed:
			decision.Kind = Unsatisfiable
			decision.Reasons = []string{r.Reason}
			failures = append(failures, &ResolutionError{Key: key, Reason: r.Reason, Trail: trail(rn.store, r)})
		case skipped[key]:
			decision.Kind = Skipped
		case r.Status == StatusDecided:
			installed, err := rn.installedFor(ctx, key)
			if err != nil {
				return nil, err
			}
			decision.Kind = Use
			if installed != nil && installed.ID() == r.Candidate.ID() {
				decision.Kind = Keep
			}
		default:
			reason := fmt.Sprintf("left %s", r.Status)
			decision.Kind = Unsatisfiable
			decision.Reasons = []string{reason}
			failures = append(failures, &ResolutionError{Key: key, Reason: reason, Trail: trail(rn.store, r)})
		}
		result.Decisions = append(result.Decisions, Entry{Key: key, Decision: decision})
	}

	if rn.planCheck && len(failures) == 0 {
		if err := checkPlan(ctx, rn.provider, rn.store, result.Decisions); err != nil {
			return nil, err
		}
	}
	rn.logger.Debug("resolved", zap.Int("decisions", len(result.Decisions)), zap.Int("restarts", restarts))

	if len(failures) > 0 {
		return result, &UnsatisfiableError{Errors: failures}
	}
	return result, nil
}

func cloneQueue(queue []workItem) []workItem {
	out := make([]workItem, len(queue))
	copy(out, queue)
	return out
}

func cloneDeferred(deferred map[Key][]workItem) map[Key][]workItem {
	out := make(map[Key][]workItem, len(deferred))
	for key, items := range deferred {
		out[key] = cloneQueue(items)
	}
	return out
}
