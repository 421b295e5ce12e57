package store

import (
	"maps"
	"strings"

	"goserveph/pkg/types"

	sq "github.com/Masterminds/squirrel"
)

func psql() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

func nullable(v *string) any {
	if v == nil || strings.TrimSpace(*v) == "" {
		return nil
	}
	return strings.TrimSpace(*v)
}

func cloneApplication(app *types.Application) *types.Application {
	out := *app
	out.Fields = maps.Clone(app.Fields)
	out.Attachments = make(map[string][]string, len(app.Attachments))
	for k, v := range app.Attachments {
		out.Attachments[k] = append([]string(nil), v...)
	}
	if app.AssignedOfficer != nil {
		officer := *app.AssignedOfficer
		out.AssignedOfficer = &officer
	}
	if app.ReviewComments != nil {
		comments := *app.ReviewComments
		out.ReviewComments = &comments
	}
	return &out
}

func prepareNew(app *types.Application) {
	if app.Fields == nil {
		app.Fields = map[string]any{}
	}
	if app.Attachments == nil {
		app.Attachments = map[string][]string{}
	}
	app.Status = types.StatusPending
	app.AssignedOfficer = nil
	app.ReviewComments = nil
}

func matches(app *types.Application, pt types.PermitType, q types.ApplicationQuery) bool {
	if app.PermitType != pt {
		return false
	}
	if q.Status != "" && app.Status != q.Status {
		return false
	}
	if q.ApplicationType != "" && !strings.EqualFold(app.ApplicationType, q.ApplicationType) {
		return false
	}
	return true
}
