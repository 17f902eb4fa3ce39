package transfer

import (
	"context"
	"fmt"
	"time"

	"go-pos/pkg/model"

	log "github.com/sirupsen/logrus"
)

// API is the part of the backend the workflow drives.
type API interface {
	MoveTable(ctx context.Context, fromID, toID model.FlexString) error
	MergeTables(ctx context.Context, fromID, toID model.FlexString) error
	GetOrder(ctx context.Context, id model.FlexString) (model.Order, error)
}

// TableStore serves the table list. Refetch must bypass any cache.
type TableStore interface {
	List(ctx context.Context) ([]model.Table, error)
	Refetch(ctx context.Context) ([]model.Table, error)
}

// Result is a completed move or merge.
type Result struct {
	Kind        Kind          `json:"kind"`
	Source      model.Table   `json:"source"`
	Destination model.Table   `json:"destination"`
	Tables      []model.Table `json:"tables,omitempty"`
	Message     string        `json:"message"`
}

// Outcome of choosing a destination: either the move is done, or a merge awaits confirmation.
type Outcome struct {
	Result  *Result
	Confirm *ConfirmMerge
}

type Option func(*Workflow)

func WithTaxEstimator(e *TaxEstimator) Option { return func(w *Workflow) { w.taxes = e } }

func WithNotifier(n Notifier) Option { return func(w *Workflow) { w.notifier = n } }

func WithRecorder(r Recorder) Option { return func(w *Workflow) { w.recorder = r } }

// WithActor names who is performing transfers, for events and audit.
func WithActor(actor string) Option { return func(w *Workflow) { w.actor = actor } }

func WithLogger(l *log.Entry) Option { return func(w *Workflow) { w.log = l } }

// Workflow moves an order to another table or merges two tables' orders.
//
// It is a small state machine: SelectSource -> SelectDestination -> (move | ConfirmMerge ->
// merge) -> SelectSource. Local table state is never patched; after every successful
// mutation the table list is refetched. A Workflow is not safe for concurrent use.
type Workflow struct {
	api      API
	tables   TableStore
	taxes    *TaxEstimator
	notifier Notifier
	recorder Recorder
	actor    string
	log      *log.Entry
	now      func() time.Time

	state    State
	snapshot []model.Table
}

func New(api API, tables TableStore, opts ...Option) *Workflow {
	w := &Workflow{
		api:    api,
		tables: tables,
		state:  SelectSource{},
		now:    time.Now,
	}
	for _, o := range opts {
		o(w)
	}
	if w.log == nil {
		w.log = log.NewEntry(log.StandardLogger())
	}
	if w.taxes == nil {
		w.taxes = NewTaxEstimator(nil, 0.08, w.log)
	}
	w.log = w.log.WithField("component", "transfer")
	return w
}

func (w *Workflow) State() State { return w.state }

// Tables is the table list the current state was built from.
func (w *Workflow) Tables() []model.Table { return w.snapshot }

// Start loads the tables and offers every occupied one as a source. With no occupied tables
// it returns ErrNoOccupiedTables and the workflow has nothing to do.
func (w *Workflow) Start(ctx context.Context) (SelectSource, error) {
	tables, err := w.tables.List(ctx)
	if err != nil {
		return SelectSource{}, fmt.Errorf("listing tables: %w", err)
	}
	return w.reset(tables)
}

func (w *Workflow) reset(tables []model.Table) (SelectSource, error) {
	w.snapshot = tables
	st := SelectSource{Candidates: occupiedTables(tables)}
	w.state = st
	if len(st.Candidates) == 0 {
		return st, ErrNoOccupiedTables
	}
	return st, nil
}

// Reset returns to source selection over the last loaded tables.
func (w *Workflow) Reset() SelectSource {
	st, _ := w.reset(w.snapshot)
	return st
}

func (w *Workflow) ChooseSource(id model.FlexString) (SelectDestination, error) {
	cur, ok := w.state.(SelectSource)
	if !ok {
		return SelectDestination{}, &StateError{Transition: "choose source", From: w.state.Name()}
	}
	src, found := model.FindTable(cur.Candidates, id)
	if !found {
		if _, exists := model.FindTable(w.snapshot, id); !exists {
			return SelectDestination{}, fmt.Errorf("%w: %s", ErrTableNotFound, id)
		}
		return SelectDestination{}, fmt.Errorf("%w: %s", ErrSourceNotOccupied, id)
	}
	st := destinations(src, w.snapshot)
	w.state = st
	return st, nil
}

// ChooseDestination moves straight away when the destination is available. For an occupied
// destination it loads both orders, builds the merge preview and waits in ConfirmMerge.
func (w *Workflow) ChooseDestination(ctx context.Context, id model.FlexString) (Outcome, error) {
	cur, ok := w.state.(SelectDestination)
	if !ok {
		return Outcome{}, &StateError{Transition: "choose destination", From: w.state.Name()}
	}
	if id == cur.Source.ID {
		return Outcome{}, ErrSameTable
	}

	if dst, found := model.FindTable(cur.Available, id); found {
		if err := w.api.MoveTable(ctx, cur.Source.ID, dst.ID); err != nil {
			w.log.WithError(err).WithFields(log.Fields{"from": cur.Source.ID, "to": dst.ID}).Warn("move failed")
			return Outcome{}, newOpError(KindMove, err)
		}
		res := w.finish(ctx, KindMove, cur.Source, dst)
		return Outcome{Result: &res}, nil
	}

	dst, found := model.FindTable(cur.Occupied, id)
	if !found {
		if _, exists := model.FindTable(w.snapshot, id); !exists {
			return Outcome{}, fmt.Errorf("%w: %s", ErrTableNotFound, id)
		}
		return Outcome{}, fmt.Errorf("%w: %s", ErrDestinationNotOffered, id)
	}
	cm := w.prepareMerge(ctx, cur.Source, dst)
	w.state = cm
	return Outcome{Confirm: &cm}, nil
}

// ChooseMergeTarget enters ConfirmMerge for an occupied destination without loading orders
// or tax rates. It is for callers whose user already saw and accepted the preview; the
// resulting ConfirmMerge is degraded.
func (w *Workflow) ChooseMergeTarget(id model.FlexString) (ConfirmMerge, error) {
	cur, ok := w.state.(SelectDestination)
	if !ok {
		return ConfirmMerge{}, &StateError{Transition: "choose merge target", From: w.state.Name()}
	}
	if id == cur.Source.ID {
		return ConfirmMerge{}, ErrSameTable
	}
	dst, found := model.FindTable(cur.Occupied, id)
	if !found {
		if _, exists := model.FindTable(w.snapshot, id); !exists {
			return ConfirmMerge{}, fmt.Errorf("%w: %s", ErrTableNotFound, id)
		}
		return ConfirmMerge{}, fmt.Errorf("%w: %s", ErrDestinationNotOffered, id)
	}
	cm := ConfirmMerge{Source: cur.Source, Destination: dst}
	w.state = cm
	return cm, nil
}

func (w *Workflow) prepareMerge(ctx context.Context, src, dst model.Table) ConfirmMerge {
	cm := ConfirmMerge{Source: src, Destination: dst}
	srcOrder, err := w.api.GetOrder(ctx, src.OrderID())
	if err != nil {
		w.log.WithError(err).WithField("order", src.OrderID()).Warn("merge preview unavailable")
		return cm
	}
	dstOrder, err := w.api.GetOrder(ctx, dst.OrderID())
	if err != nil {
		w.log.WithError(err).WithField("order", dst.OrderID()).Warn("merge preview unavailable")
		return cm
	}
	preview := NewMergePreview(srcOrder, dstOrder, w.taxes.Rate(ctx))
	cm.SourceOrder = &srcOrder
	cm.DestinationOrder = &dstOrder
	cm.Preview = &preview
	return cm
}

// ConfirmMerge performs the merge awaiting confirmation.
func (w *Workflow) ConfirmMerge(ctx context.Context) (Result, error) {
	cur, ok := w.state.(ConfirmMerge)
	if !ok {
		return Result{}, &StateError{Transition: "confirm merge", From: w.state.Name()}
	}
	if err := w.api.MergeTables(ctx, cur.Source.ID, cur.Destination.ID); err != nil {
		w.log.WithError(err).WithFields(log.Fields{"from": cur.Source.ID, "to": cur.Destination.ID}).Warn("merge failed")
		return Result{}, newOpError(KindMerge, err)
	}
	return w.finish(ctx, KindMerge, cur.Source, cur.Destination), nil
}

// Back steps from ConfirmMerge to SelectDestination, or from SelectDestination to SelectSource.
func (w *Workflow) Back() State {
	switch cur := w.state.(type) {
	case ConfirmMerge:
		w.state = destinations(cur.Source, w.snapshot)
	case SelectDestination:
		w.Reset()
	}
	return w.state
}

func (w *Workflow) finish(ctx context.Context, kind Kind, src, dst model.Table) Result {
	res := Result{Kind: kind, Source: src, Destination: dst}
	switch kind {
	case KindMove:
		res.Message = fmt.Sprintf("Moved %s to %s", src.Label(), dst.Label())
	default:
		res.Message = fmt.Sprintf("Merged %s into %s", src.Label(), dst.Label())
	}
	w.log.WithFields(log.Fields{"kind": kind, "from": src.ID, "to": dst.ID, "actor": w.actor}).Info(res.Message)

	ev := Event{Kind: kind, Source: src, Destination: &dst, OrderID: src.OrderID(), Actor: w.actor, At: w.now()}
	emit(ctx, w.notifier, w.recorder, w.log, ev)

	tables, err := w.tables.Refetch(ctx)
	if err != nil {
		// the change went through; the next Start will load fresh tables
		w.log.WithError(err).Warn("refetching tables after transfer")
		w.snapshot = nil
		w.state = SelectSource{}
		return res
	}
	res.Tables = tables
	_, _ = w.reset(tables)
	return res
}

func emit(ctx context.Context, n Notifier, r Recorder, l *log.Entry, ev Event) {
	if n != nil {
		if err := n.TablesChanged(ctx, ev); err != nil {
			l.WithError(err).Warn("publishing table event")
		}
	}
	if r != nil {
		if err := r.RecordTransfer(ctx, ev); err != nil {
			l.WithError(err).Warn("recording table event")
		}
	}
}
