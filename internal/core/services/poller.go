package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jwbth/talkwatch/internal/core/domain"
	"github.com/jwbth/talkwatch/internal/core/ports/driven"
	"github.com/jwbth/talkwatch/internal/core/ports/driving"
	"github.com/jwbth/talkwatch/internal/logger"
)

// Ensure Poller implements the interface.
var _ driving.Poller = (*Poller)(nil)

// Poller periodically fetches the watched page's latest revision, pairs it
// with the displayed revision's snapshot and classifies every comment into
// unchanged, changed, deleted, undeleted or new. A failed check is never
// fatal; the next alarm is simply re-armed.
type Poller struct {
	cfg      domain.WatchConfig
	source   driven.RevisionSource
	parser   driven.SnapshotParser
	seen     driven.SeenRenderStore
	state    driven.PollerStateStore
	sink     driving.EventSink
	sections *SectionMatcher
	matcher  *CommentMatcher

	mu        sync.Mutex
	running   bool
	checking  bool
	hidden    bool
	stopCh    chan struct{}
	wakeCh    chan struct{}
	wg        sync.WaitGroup
	status    driving.PollerStatus
	displayed *domain.Snapshot
	deleted   map[string]bool
	cache     map[int64]*domain.Snapshot
	tracker   *Tracker
	anchor    domain.Target

	prevVisitRevID int64
}

// NewPoller creates a poller for one watched page. The displayed snapshot
// is established on Start by fetching the latest revision.
func NewPoller(
	cfg domain.WatchConfig,
	source driven.RevisionSource,
	parser driven.SnapshotParser,
	seen driven.SeenRenderStore,
	state driven.PollerStateStore,
	sink driving.EventSink,
	sections *SectionMatcher,
	matcher *CommentMatcher,
) *Poller {
	cfg.Normalize()
	return &Poller{
		cfg:      cfg,
		source:   source,
		parser:   parser,
		seen:     seen,
		state:    state,
		sink:     sink,
		sections: sections,
		matcher:  matcher,
		deleted:  make(map[string]bool),
		cache:    make(map[int64]*domain.Snapshot),
		status:   driving.PollerStatus{Phase: driving.PhaseIdle},
	}
}

// Start establishes the displayed snapshot, runs the one-shot previous-
// visit comparison, then loops until Stop or context cancellation.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil // Already running
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.wakeCh = make(chan struct{}, 1)
	p.mu.Unlock()

	if err := p.initDisplayed(ctx); err != nil {
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
		return fmt.Errorf("establishing displayed revision: %w", err)
	}

	// Any failure here aborts only the previous-visit feature for the
	// session, never the poller.
	if err := p.comparePreviousVisit(ctx); err != nil {
		logger.Warn("previous-visit comparison skipped: %v", err)
	}

	return p.run(ctx)
}

// Stop gracefully shuts the loop down.
func (p *Poller) Stop() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	close(p.stopCh)
	p.mu.Unlock()

	p.wg.Wait()
	return nil
}

// SetHidden switches between foreground and backgrounded intervals.
// Restoring visibility cancels the background alarm and re-checks
// immediately.
func (p *Poller) SetHidden(hidden bool) {
	p.mu.Lock()
	wasHidden := p.hidden
	p.hidden = hidden
	if hidden {
		p.status.Phase = driving.PhaseBackgrounded
	} else if p.status.Phase == driving.PhaseBackgrounded {
		p.status.Phase = driving.PhaseIdle
	}
	wake := wasHidden && !hidden && p.running
	ch := p.wakeCh
	p.mu.Unlock()

	if wake {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Status returns the poller's observable state.
func (p *Poller) Status() driving.PollerStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// CheckNow runs one check cycle immediately.
func (p *Poller) CheckNow(ctx context.Context) error {
	p.mu.Lock()
	if p.checking {
		p.mu.Unlock()
		return domain.ErrCheckInProgress
	}
	p.checking = true
	p.mu.Unlock()

	err := p.check(ctx)

	p.mu.Lock()
	p.checking = false
	p.mu.Unlock()
	return err
}

// DisplayedSnapshot returns the snapshot currently treated as displayed.
func (p *Poller) DisplayedSnapshot() *domain.Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.displayed
}

// Prime fetches and parses a revision and makes it the displayed
// baseline. Used for one-shot checks that compare a known revision
// against the latest without running the poll loop.
func (p *Poller) Prime(ctx context.Context, revisionID int64) error {
	snapshot, err := p.parsedRevision(ctx, revisionID)
	if err != nil {
		return err
	}
	p.SetDisplayed(snapshot)
	return nil
}

// SetDisplayed replaces the displayed snapshot, the equivalent of the page
// reloading to a revision. An attached tracker is rebuilt over the new
// snapshot's comments.
func (p *Poller) SetDisplayed(snapshot *domain.Snapshot) {
	p.mu.Lock()
	p.displayed = snapshot
	p.status.DisplayedRevisionID = snapshot.RevisionID
	p.cache[snapshot.RevisionID] = snapshot
	tracker := p.tracker
	p.mu.Unlock()

	if tracker != nil {
		tracker.Reload(snapshot.Comments)
		if _, err := tracker.AutoCollapse(context.Background(), domain.DefaultAutoCollapseThreshold); err != nil {
			logger.Warn("auto-collapse after reload: %v", err)
		}
	}
}

// SetTracker attaches a thread tracker. The poller rebuilds it on every
// displayed-snapshot change and consults its collapsed state when filtering
// relevant new comments.
func (p *Poller) SetTracker(t *Tracker) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tracker = t
}

// SetAnchor records the viewer's navigation target on the displayed page.
// When a check advances the baseline, the anchor is remapped onto the new
// snapshot, degrading to the section or the page when the comment is gone.
func (p *Poller) SetAnchor(target domain.Target) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.anchor = target
}

// Anchor returns the current navigation target, nil when none was set.
func (p *Poller) Anchor() domain.Target {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.anchor
}

// hiddenFn reports collapsed visibility through the attached tracker, nil
// when no tracker is attached.
func (p *Poller) hiddenFn() func(commentID string) bool {
	p.mu.Lock()
	tracker := p.tracker
	p.mu.Unlock()
	if tracker == nil {
		return nil
	}
	return func(commentID string) bool { return !tracker.Visible(commentID) }
}

// run is the alarm loop. The interval timer stands in for the worker-
// hosted wake-up the in-browser original used against tab throttling.
func (p *Poller) run(ctx context.Context) error {
	for {
		p.mu.Lock()
		interval := p.cfg.ForegroundInterval
		if p.hidden {
			interval = p.cfg.BackgroundInterval
		}
		stopCh := p.stopCh
		wakeCh := p.wakeCh
		p.mu.Unlock()

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-stopCh:
			timer.Stop()
			return nil
		case <-wakeCh:
			timer.Stop()
		case <-timer.C:
		}

		p.wg.Add(1)
		if err := p.CheckNow(ctx); err != nil && !errors.Is(err, domain.ErrCheckInProgress) {
			// Network and API failures are invisible in the background;
			// the next alarm is re-armed regardless.
			logger.Warn("check failed: %v", err)
			p.mu.Lock()
			p.status.LastError = err.Error()
			p.mu.Unlock()
		}
		p.wg.Done()
	}
}

// initDisplayed fetches and parses the latest revision as the displayed
// baseline, restoring persisted poller state along the way.
func (p *Poller) initDisplayed(ctx context.Context) error {
	if saved, err := p.state.Get(ctx, p.cfg.PageID); err == nil && saved != nil {
		p.mu.Lock()
		p.status.LastCheckedRevisionID = saved.LastCheckedRevisionID
		p.prevVisitRevID = saved.PreviousVisitRevisionID
		p.mu.Unlock()
	}

	latest, err := p.source.LatestRevisionID(ctx)
	if err != nil {
		return err
	}
	snapshot, err := p.parsedRevision(ctx, latest)
	if err != nil {
		return err
	}
	p.SetDisplayed(snapshot)
	return nil
}

// comparePreviousVisit runs the one-shot comparison of the revision at the
// viewer's previous visit against the displayed revision, to retroactively
// flag changes since they last looked.
func (p *Poller) comparePreviousVisit(ctx context.Context) error {
	if p.cfg.PreviousVisit.IsZero() {
		return nil
	}
	raw, err := p.source.RevisionAt(ctx, p.cfg.PreviousVisit)
	if err != nil {
		if errors.Is(err, domain.ErrNoRevision) {
			return nil
		}
		return err
	}
	displayed := p.DisplayedSnapshot()
	if raw.ID == displayed.RevisionID {
		return nil
	}
	old, err := p.parsedRevision(ctx, raw.ID)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.prevVisitRevID = raw.ID
	p.mu.Unlock()
	p.persistState(ctx)

	changes, update := p.compareSince(displayed, old)
	p.emit(displayed.RevisionID, displayed.Sections, changes, update)
	return nil
}

// compareSince classifies the displayed snapshot against the older one from
// the previous visit. The direction is the reverse of a regular check:
// displayed comments unmatched in the old snapshot are new since the visit,
// and old comments nothing displayed matched have been removed since. The
// deleted map is left alone; this comparison describes the past, not the
// live page.
func (p *Poller) compareSince(displayed, old *domain.Snapshot) ([]domain.CommentChange, domain.NewComments) {
	sectionMatches := p.sections.MatchAll(displayed.Sections, old.Sections)
	matches := p.matcher.Match(displayed.Comments, old.Comments, sectionMatches)

	oldByID := old.CommentsByID()
	changes := make([]domain.CommentChange, 0, len(displayed.Comments))
	update := domain.NewComments{BySection: make(map[string][]domain.Comment)}

	for i := range displayed.Comments {
		c := &displayed.Comments[i]
		if c.ID == "" {
			continue
		}
		match, _ := matches.Lookup(c.ID)
		change := domain.CommentChange{CommentID: c.ID, Score: match.Score}

		switch {
		case match.Matched():
			o := oldByID[match.OtherID]
			if c.ComparisonText != o.ComparisonText {
				change.Events.Changed = true
				change.CurrentText = o.ComparisonText
				change.NewText = c.ComparisonText
			} else {
				change.Events.Unchanged = true
			}
		case match.PoorMatch:
			change.Events.Unchanged = true
		default:
			// Present now, absent at the previous visit: new since then.
			update.All = append(update.All, *c)
			headline := ""
			if s := displayed.SectionAt(c.SectionIndex); s != nil {
				headline = s.Headline
			}
			update.BySection[headline] = append(update.BySection[headline], *c)
			continue
		}
		changes = append(changes, change)
	}

	for i := range old.Comments {
		o := &old.Comments[i]
		if o.ID == "" || matches.OtherMatched(o.ID) {
			continue
		}
		changes = append(changes, domain.CommentChange{
			CommentID: o.ID,
			Events:    domain.ChangeEvents{Deleted: true},
		})
	}

	update.Relevant = FilterRelevant(update.All, displayed.Sections, p.cfg, p.hiddenFn())
	return changes, update
}

// check is one cycle of the {idle, checking} machine.
func (p *Poller) check(ctx context.Context) error {
	p.mu.Lock()
	p.status.Phase = driving.PhaseChecking
	displayed := p.displayed
	lastChecked := p.status.LastCheckedRevisionID
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		if p.hidden {
			p.status.Phase = driving.PhaseBackgrounded
		} else {
			p.status.Phase = driving.PhaseIdle
		}
		p.status.ChecksRun++
		p.mu.Unlock()
	}()

	latest, err := p.source.LatestRevisionID(ctx)
	if err != nil {
		return fmt.Errorf("fetching latest revision id: %w", err)
	}
	if latest <= lastChecked || latest <= displayed.RevisionID {
		return nil
	}

	newSnapshot, err := p.parsedRevision(ctx, latest)
	if err != nil {
		return fmt.Errorf("parsing revision %d: %w", latest, err)
	}
	// Re-parse the displayed revision the same way, for an apples-to-
	// apples comparison free of any decoration added since.
	currentSnapshot, err := p.parsedRevision(ctx, displayed.RevisionID)
	if err != nil {
		return fmt.Errorf("parsing displayed revision %d: %w", displayed.RevisionID, err)
	}

	// Check-then-commit: the parse calls above are await boundaries, so
	// the displayed revision may have moved underneath. A stale check
	// discards its results rather than being aborted.
	if p.DisplayedSnapshot().RevisionID != displayed.RevisionID {
		return domain.ErrStaleRevision
	}

	p.mu.Lock()
	p.status.LastCheckedRevisionID = latest
	p.mu.Unlock()
	p.persistState(ctx)

	sectionMatches := p.sections.MatchAll(currentSnapshot.Sections, newSnapshot.Sections)
	matches := p.matcher.Match(currentSnapshot.Comments, newSnapshot.Comments, sectionMatches)

	changes, update, sections := p.reconcile(ctx, currentSnapshot, newSnapshot, matches, sectionMatches)
	p.emit(latest, sections, changes, update)

	if p.cfg.AdvanceBaseline {
		if anchor := p.Anchor(); anchor != nil {
			p.SetAnchor(RestoreTarget(anchor, newSnapshot, matches, sectionMatches))
		}
		p.SetDisplayed(newSnapshot)
	}
	p.evictCache(latest)
	return nil
}

// reconcile classifies every current comment against the precomputed match
// sets.
func (p *Poller) reconcile(ctx context.Context, current, other *domain.Snapshot, matches domain.MatchSet, sectionMatches domain.SectionMatchSet) ([]domain.CommentChange, domain.NewComments, []domain.Section) {
	otherByID := other.CommentsByID()
	changes := make([]domain.CommentChange, 0, len(current.Comments))

	p.mu.Lock()
	deleted := p.deleted
	p.mu.Unlock()

	for i := range current.Comments {
		c := &current.Comments[i]
		if c.ID == "" {
			continue
		}
		match, _ := matches.Lookup(c.ID)
		change := domain.CommentChange{CommentID: c.ID, Score: match.Score}

		switch {
		case match.Matched():
			o := otherByID[match.OtherID]
			wasDeleted := deleted[c.ID]
			deleted[c.ID] = false
			switch {
			case wasDeleted:
				change.Events.Undeleted = true
			case p.changed(ctx, c, o, current, other, sectionMatches):
				change.Events.Changed = true
				change.CurrentText = c.ComparisonText
				change.NewText = o.ComparisonText
				if headline := newHeadline(c, o, current, other); headline != "" {
					change.NewHeadline = headline
				}
			default:
				change.Events.Unchanged = true
			}
		case match.PoorMatch:
			// A low-confidence miss is not a deletion.
			change.Events.Unchanged = true
		default:
			deleted[c.ID] = true
			change.Events.Deleted = true
		}
		changes = append(changes, change)
	}

	update := p.collectNew(other, matches)
	return changes, update, other.Sections
}

// changed reports whether a matched pair's text or heading differs,
// consulting the seen-render store so an acknowledged change is not
// re-flagged.
func (p *Poller) changed(ctx context.Context, c, o *domain.Comment, current, other *domain.Snapshot, sectionMatches domain.SectionMatchSet) bool {
	textChanged := c.ComparisonText != o.ComparisonText
	headingChanged := newHeadline(c, o, current, other) != ""
	if !textChanged && !headingChanged {
		return false
	}
	if p.seen == nil {
		return true
	}
	render, err := p.seen.Get(ctx, p.cfg.PageID, c.ID)
	if err != nil || render == nil {
		return true
	}
	return render.HTMLToCompare != joinFragments(o.TextFragments)
}

// newHeadline returns the other side's section headline when it differs
// from the current one, empty otherwise.
func newHeadline(c, o *domain.Comment, current, other *domain.Snapshot) string {
	cs := current.SectionAt(c.SectionIndex)
	os := other.SectionAt(o.SectionIndex)
	if cs == nil || os == nil {
		return ""
	}
	if cs.Headline != os.Headline {
		return os.Headline
	}
	return ""
}

// collectNew gathers other-side comments unmatched by any current comment.
func (p *Poller) collectNew(other *domain.Snapshot, matches domain.MatchSet) domain.NewComments {
	update := domain.NewComments{BySection: make(map[string][]domain.Comment)}
	for i := range other.Comments {
		o := other.Comments[i]
		if o.ID != "" && matches.OtherMatched(o.ID) {
			continue
		}
		update.All = append(update.All, o)
		headline := ""
		if s := other.SectionAt(o.SectionIndex); s != nil {
			headline = s.Headline
		}
		update.BySection[headline] = append(update.BySection[headline], o)
	}
	update.Relevant = FilterRelevant(update.All, other.Sections, p.cfg, p.hiddenFn())
	return update
}

// parsedRevision returns the parsed snapshot for a revision id, consulting
// the cache first. At most one outstanding parse per revision id is
// guaranteed by the parser adapter.
func (p *Poller) parsedRevision(ctx context.Context, revisionID int64) (*domain.Snapshot, error) {
	p.mu.Lock()
	if cached, ok := p.cache[revisionID]; ok {
		p.mu.Unlock()
		return cached, nil
	}
	p.mu.Unlock()

	raw, err := p.source.FetchRevision(ctx, revisionID)
	if err != nil {
		return nil, err
	}
	snapshot, err := p.parser.Parse(ctx, raw)
	if err != nil {
		return nil, err
	}
	if err := snapshot.Validate(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.cache[revisionID] = snapshot
	p.mu.Unlock()
	return snapshot, nil
}

// evictCache bounds memory by retaining only the revision just fetched,
// the last-checked one, the previous-visit one and the displayed one.
func (p *Poller) evictCache(justFetched int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	keep := map[int64]bool{
		justFetched:                    true,
		p.status.LastCheckedRevisionID: true,
		p.prevVisitRevID:               true,
	}
	if p.displayed != nil {
		keep[p.displayed.RevisionID] = true
	}
	for id := range p.cache {
		if !keep[id] {
			delete(p.cache, id)
		}
	}
}

// persistState saves poller progress, best effort.
func (p *Poller) persistState(ctx context.Context) {
	if p.state == nil {
		return
	}
	p.mu.Lock()
	state := driven.PollerState{
		LastCheckedRevisionID:   p.status.LastCheckedRevisionID,
		PreviousVisitRevisionID: p.prevVisitRevID,
		PreviousVisitTime:       p.cfg.PreviousVisit,
	}
	p.mu.Unlock()
	if err := p.state.Save(ctx, p.cfg.PageID, state); err != nil {
		logger.Warn("saving poller state: %v", err)
	}
}

// emit delivers one check's events to the sink.
func (p *Poller) emit(revisionID int64, sections []domain.Section, changes []domain.CommentChange, update domain.NewComments) {
	if p.sink == nil {
		return
	}
	p.sink.Check(revisionID)
	p.sink.SectionsUpdate(sections)
	p.sink.NewChanges(changes)
	p.sink.CommentsUpdate(update)
}

// joinFragments concatenates a comment's serialized fragments the way the
// seen-render store keys them.
func joinFragments(fragments []string) string {
	joined := ""
	for _, f := range fragments {
		joined += f
	}
	return joined
}
