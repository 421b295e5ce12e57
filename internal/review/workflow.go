package review

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"strings"
	"time"

	"goserveph/internal/utils"
	"goserveph/pkg/types"

	"github.com/sirupsen/logrus"
)

type ApplicationStore interface {
	Application(ctx context.Context, id string) (*types.Application, error)
	Applications(ctx context.Context, pt types.PermitType, q types.ApplicationQuery) ([]*types.Application, error)
	UpdateApplication(ctx context.Context, app *types.Application) error
}

type EventLog interface {
	RecordEvent(ctx context.Context, event *types.ReviewEvent) error
	EventsByApplication(ctx context.Context, applicationID string) ([]*types.ReviewEvent, error)
}

type OverrideStore interface {
	Overrides(ctx context.Context) (map[string]bool, error)
	Override(ctx context.Context, applicationID string) (*bool, error)
	SetOverride(ctx context.Context, applicationID string, toda bool) error
	ClearOverride(ctx context.Context, applicationID string) error
}

type Option func(*Workflow)

func WithClock(now func() time.Time) Option {
	return func(w *Workflow) {
		w.now = now
	}
}

// Workflow is the staff side of an application. Status changes are not
// ordered: any status may follow any other, and the last writer wins.
type Workflow struct {
	logger    *logrus.Logger
	apps      ApplicationStore
	events    EventLog
	overrides OverrideStore
	now       func() time.Time
}

func NewWorkflow(logger *logrus.Logger, apps ApplicationStore, events EventLog, overrides OverrideStore, opts ...Option) *Workflow {
	w := &Workflow{
		logger:    logger,
		apps:      apps,
		events:    events,
		overrides: overrides,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// List returns a permit type's applications in submission order. Status and
// application type filter in the store; TODA and search filter while the
// sequence is consumed. The sequence can be ranged over more than once.
func (w *Workflow) List(ctx context.Context, pt types.PermitType, filter types.ListFilter) (iter.Seq[types.ApplicationSummary], error) {

	if !slices.Contains(types.PermitTypes, pt) {
		return nil, fmt.Errorf("%w: %q", types.ErrUnknownPermitType, pt)
	}

	query := types.ApplicationQuery{ApplicationType: strings.TrimSpace(filter.ApplicationType)}
	if filter.Status != "" {
		status, err := types.ParseApplicationStatus(filter.Status)
		if err != nil {
			return nil, err
		}
		query.Status = status
	}

	apps, err := w.apps.Applications(ctx, pt, query)
	if err != nil {
		return nil, err
	}

	franchise := pt == types.PermitTypeFranchise

	var overrides map[string]bool
	if franchise {
		overrides = w.loadOverrides(ctx)
	}

	search := strings.ToLower(strings.TrimSpace(filter.Search))

	return func(yield func(types.ApplicationSummary) bool) {
		for _, app := range apps {
			summary := app.Summary()

			if franchise {
				var override *bool
				if v, ok := overrides[app.ID]; ok {
					override = utils.BoolPtr(v)
				}
				final := ResolveTODA(app, override).Final
				summary.TODA = &final

				if filter.TODA != nil && *filter.TODA != final {
					continue
				}
			}

			if search != "" && !matchesSearch(app, search) {
				continue
			}

			if !yield(summary) {
				return
			}
		}
	}, nil
}

// on failure every application falls back to the classifier
func (w *Workflow) loadOverrides(ctx context.Context) map[string]bool {
	overrides, err := w.overrides.Overrides(ctx)
	if err != nil {
		w.logger.WithError(err).Warn("failed to load toda overrides, using classifier only")
		return map[string]bool{}
	}
	return overrides
}

func matchesSearch(app *types.Application, needle string) bool {
	haystack := []string{app.ID, string(app.PermitType), app.ApplicationType, string(app.Status), app.ApplicantName()}
	for _, v := range app.Fields {
		if s, ok := v.(string); ok {
			haystack = append(haystack, s)
		}
	}

	for _, h := range haystack {
		if strings.Contains(strings.ToLower(h), needle) {
			return true
		}
	}
	return false
}

// Aggregate counts applications by status.
func Aggregate(summaries iter.Seq[types.ApplicationSummary]) types.StatusCounts {
	var counts types.StatusCounts
	for s := range summaries {
		counts.Total++
		switch s.Status {
		case types.StatusApproved:
			counts.Approved++
		case types.StatusRejected:
			counts.Rejected++
		case types.StatusPending:
			counts.Pending++
		case types.StatusForCompliance:
			counts.ForCompliance++
		}
	}
	return counts
}

// Detail is read-only.
func (w *Workflow) Detail(ctx context.Context, id string) (*types.Application, error) {
	return w.apps.Application(ctx, id)
}

func (w *Workflow) TODA(ctx context.Context, app *types.Application) (*types.TODAStatus, error) {
	if app.PermitType != types.PermitTypeFranchise {
		return nil, types.ErrTODANotApplicable
	}

	override, err := w.overrides.Override(ctx, app.ID)
	if err != nil {
		w.logger.WithError(err).WithField("application_id", app.ID).Warn("failed to load toda override")
		override = nil
	}

	status := ResolveTODA(app, override)
	return &status, nil
}

func (w *Workflow) AssignOfficer(ctx context.Context, id, officer, actor string) (*types.Application, error) {

	app, err := w.apps.Application(ctx, id)
	if err != nil {
		return nil, err
	}

	app.AssignedOfficer = utils.NonEmptyStringPtr(officer)
	app.LastUpdated = w.now()

	err = w.apps.UpdateApplication(ctx, app)
	if err != nil {
		return nil, err
	}

	w.record(ctx, &types.ReviewEvent{
		ApplicationID: app.ID,
		Action:        types.ReviewActionAssign,
		Comment:       app.AssignedOfficer,
		Actor:         utils.NonEmptyStringPtr(actor),
	})

	w.logger.WithFields(logrus.Fields{
		"application_id": app.ID,
		"officer":        utils.PtrString(app.AssignedOfficer),
		"actor":          actor,
	}).Info("officer assigned")

	return app, nil
}

// Transition sets any valid status, including the current one. A blank
// comment keeps the previous review comment.
func (w *Workflow) Transition(ctx context.Context, id string, status types.ApplicationStatus, comment, actor string) (*types.Application, error) {

	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", types.ErrInvalidStatus, status)
	}

	app, err := w.apps.Application(ctx, id)
	if err != nil {
		return nil, err
	}

	previous := app.Status
	app.Status = status
	if c := utils.NonEmptyStringPtr(comment); c != nil {
		app.ReviewComments = c
	}
	app.LastUpdated = w.now()

	err = w.apps.UpdateApplication(ctx, app)
	if err != nil {
		return nil, err
	}

	w.record(ctx, &types.ReviewEvent{
		ApplicationID: app.ID,
		Action:        types.ReviewActionTransition,
		Status:        &status,
		Comment:       utils.NonEmptyStringPtr(comment),
		Actor:         utils.NonEmptyStringPtr(actor),
	})

	w.logger.WithFields(logrus.Fields{
		"application_id": app.ID,
		"from":           previous,
		"to":             status,
		"actor":          actor,
	}).Info("application status changed")

	return app, nil
}

// SetTODAOverride pins the TODA flag for one franchise application; a nil
// override hands the decision back to the classifier.
func (w *Workflow) SetTODAOverride(ctx context.Context, id string, override *bool, actor string) (*types.TODAStatus, error) {

	app, err := w.apps.Application(ctx, id)
	if err != nil {
		return nil, err
	}

	if app.PermitType != types.PermitTypeFranchise {
		return nil, types.ErrTODANotApplicable
	}

	if override == nil {
		err = w.overrides.ClearOverride(ctx, app.ID)
	} else {
		err = w.overrides.SetOverride(ctx, app.ID, *override)
	}
	if err != nil {
		return nil, err
	}

	comment := "cleared"
	if override != nil {
		comment = fmt.Sprintf("toda=%t", *override)
	}
	w.record(ctx, &types.ReviewEvent{
		ApplicationID: app.ID,
		Action:        types.ReviewActionTODAOverride,
		Comment:       &comment,
		Actor:         utils.NonEmptyStringPtr(actor),
	})

	status := ResolveTODA(app, override)
	return &status, nil
}

func (w *Workflow) Events(ctx context.Context, id string) ([]*types.ReviewEvent, error) {
	if _, err := w.apps.Application(ctx, id); err != nil {
		return nil, err
	}
	return w.events.EventsByApplication(ctx, id)
}

// a failed write is logged and does not fail the action
func (w *Workflow) record(ctx context.Context, event *types.ReviewEvent) {
	event.CreatedAt = w.now()
	if err := w.events.RecordEvent(ctx, event); err != nil {
		w.logger.WithError(err).WithFields(logrus.Fields{
			"application_id": event.ApplicationID,
			"action":         event.Action,
		}).Warn("failed to record review event")
	}
}
