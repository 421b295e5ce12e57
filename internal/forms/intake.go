package forms

import (
	"context"
	"errors"
	"fmt"
	"io"

	"goserveph/internal/utils"
	"goserveph/pkg/types"

	"github.com/sirupsen/logrus"
)

type ApplicationCreator interface {
	CreateApplication(ctx context.Context, app *types.Application) error
}

type FileStore interface {
	Upload(ctx context.Context, key string, body io.Reader) error
	Delete(ctx context.Context, key string) error
}

var errNoFileStore = errors.New("attachment storage is not configured")

// Intake is the server side of the submission boundary. It never trusts the
// wizard's own checks and re-validates every step.
type Intake struct {
	logger   *logrus.Logger
	registry *Registry
	repo     ApplicationCreator
	files    FileStore
	opts     []EngineOption
}

func NewIntake(logger *logrus.Logger, registry *Registry, repo ApplicationCreator, files FileStore, opts ...EngineOption) *Intake {
	return &Intake{
		logger:   logger,
		registry: registry,
		repo:     repo,
		files:    files,
		opts:     opts,
	}
}

func (in *Intake) Registry() *Registry {
	return in.registry
}

// Submit validates, stores attachments and creates the application. Stored
// files are removed again when the record cannot be created.
func (in *Intake) Submit(ctx context.Context, pt types.PermitType, values Values, uploads []Upload) (*types.Application, error) {

	engine, err := in.registry.Engine(pt, in.opts...)
	if err != nil {
		return nil, err
	}

	attachments := engine.CollectAttachments(uploads)

	// file fields are only satisfied by real uploads
	merged := values.Clone()
	for _, f := range engine.Schema().Fields() {
		if f.IsFile() {
			delete(merged, f.Name)
		}
	}
	merged = MergeValues(merged, attachments.Names())

	if step, errs := engine.ValidateAll(merged); len(errs) > 0 {
		return nil, &types.ValidationError{Step: step, Fields: errs}
	}

	stored, err := in.storeAttachments(ctx, engine.Schema(), attachments)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrSubmissionFailed, err)
	}

	app := engine.Assemble(merged, stored).Application()

	err = in.repo.CreateApplication(ctx, app)
	if err != nil {
		in.discard(ctx, stored)
		return nil, fmt.Errorf("%w: %w", types.ErrSubmissionFailed, err)
	}

	in.logger.WithFields(logrus.Fields{
		"application_id": app.ID,
		"permit_type":    app.PermitType,
		"attachments":    attachments.Count(),
	}).Info("application submitted")

	return app, nil
}

func (in *Intake) storeAttachments(ctx context.Context, schema *Schema, attachments Attachments) (map[string][]string, error) {
	stored := make(map[string][]string)
	if len(attachments) == 0 {
		return stored, nil
	}

	if in.files == nil {
		return nil, errNoFileStore
	}

	for _, f := range schema.Fields() {
		for _, u := range attachments[f.Name] {
			key := AttachmentKey(schema.PermitType, u.FileName)
			if err := in.storeOne(ctx, key, u); err != nil {
				in.discard(ctx, stored)
				return nil, fmt.Errorf("failed to store %s: %w", f.Name, err)
			}
			stored[f.Name] = append(stored[f.Name], key)
		}
	}

	return stored, nil
}

func (in *Intake) storeOne(ctx context.Context, key string, u Upload) error {
	body, err := u.Open()
	if err != nil {
		return err
	}
	defer body.Close()

	return in.files.Upload(ctx, key, body)
}

func (in *Intake) discard(ctx context.Context, stored map[string][]string) {
	for _, keys := range stored {
		for _, key := range keys {
			if err := in.files.Delete(ctx, key); err != nil {
				in.logger.WithError(err).WithField("key", key).Warn("failed to remove orphaned attachment")
			}
		}
	}
}

// AttachmentKey builds a collision-free storage key that keeps the
// applicant's file name readable.
func AttachmentKey(pt types.PermitType, fileName string) string {
	return fmt.Sprintf("%s/%s_%s", pt, utils.NanoIDSize(12), SafeFileName(fileName))
}
