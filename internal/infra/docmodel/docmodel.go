// Package docmodel maps schemaless document fields to domain types.
// Both store adapters decode into map[string]any first and then go
// through these functions, so timestamp coercion lives in one place.
package docmodel

import (
	"strings"
	"time"

	"github.com/leaderforge/leaderforge-bfa-go/internal/calendar"
	"github.com/leaderforge/leaderforge-bfa-go/internal/domain"
)

// Fields is a decoded document body.
type Fields = map[string]any

// Document field names shared by every backend.
const (
	FieldRole         = "role"
	FieldCompanyName  = "companyName"
	FieldSupervisorID = "supervisorId"
	FieldStatus       = "status"
	FieldCreatedAt    = "createdAt"
	FieldCompletedAt  = "completedAt"
	FieldScheduledFor = "scheduledFor"
	FieldCode         = "code"
	FieldLastUpdated  = "lastUpdated"
)

// ============================================================
// Decoding
// ============================================================

// User decodes a users/{id} document.
func User(id string, f Fields) domain.User {
	u := domain.User{
		ID:           id,
		Email:        str(f, "email"),
		FirstName:    str(f, "firstName"),
		LastName:     str(f, "lastName"),
		Role:         domain.Role(str(f, FieldRole)),
		CompanyName:  str(f, FieldCompanyName),
		SupervisorID: str(f, FieldSupervisorID),
		Permissions:  strList(f, "permissions"),
		CreatedAt:    instant(f, FieldCreatedAt),
	}
	if tp := sub(f, "trainingProgress"); tp != nil {
		u.TrainingProgress = domain.TrainingProgressSummary{
			CompletedVideos: integer(tp, "completedVideos"),
			TotalVideos:     integer(tp, "totalVideos"),
			Progress:        float(tp, "progress"),
			LastUpdated:     instant(tp, FieldLastUpdated),
		}
	}
	if u.Role == "" {
		u.Role = domain.RoleTeamMember
	}
	return u
}

// Company decodes a companies/{name} document. Older documents omit the
// name field, so the document id is used as a fallback.
func Company(id string, f Fields) domain.Company {
	c := domain.Company{
		Name:         str(f, "name"),
		Size:         integer(f, "size"),
		Code:         str(f, FieldCode),
		ExecutiveUID: str(f, "executiveUid"),
		CreatedAt:    instant(f, FieldCreatedAt),
	}
	if c.Name == "" {
		c.Name = id
	}
	if s := sub(f, "settings"); s != nil {
		c.Settings = domain.CompanySettings{
			TrainingEnabled:     boolean(s, "trainingEnabled"),
			WorksheetsEnabled:   boolean(s, "worksheetsEnabled"),
			StandupNotesEnabled: boolean(s, "standupNotesEnabled"),
		}
	}
	return c
}

// TrainingProgress decodes the progress/trainings document.
// Entries that are not maps are skipped.
func TrainingProgress(f Fields) domain.TrainingProgressMap {
	out := make(domain.TrainingProgressMap, len(f))
	for id, v := range f {
		entry, ok := v.(map[string]any)
		if !ok {
			continue
		}
		out[id] = domain.TrainingProgress{
			VideoCompleted:     boolean(entry, "videoCompleted"),
			WorksheetCompleted: boolean(entry, "worksheetCompleted"),
			LastUpdated:        instant(entry, FieldLastUpdated),
		}
	}
	return out
}

// BoldAction decodes a users/{uid}/boldActions/{id} document.
func BoldAction(id string, f Fields) domain.BoldAction {
	b := domain.BoldAction{
		ID:              id,
		Action:          str(f, "action"),
		Status:          str(f, FieldStatus),
		Timeframe:       str(f, "timeframe"),
		ActualTimeframe: str(f, "actualTimeframe"),
		ReflectionNotes: str(f, "reflectionNotes"),
		TrainingID:      str(f, "trainingId"),
		CreatedAt:       instant(f, FieldCreatedAt),
		CompletedAt:     instantPtr(f, FieldCompletedAt),
	}
	if b.Status == "" {
		b.Status = domain.BoldActionActive
	}
	return b
}

// Standup decodes a users/{memberID}/standups/{id} document.
func Standup(memberID, id string, f Fields) domain.Standup {
	s := domain.Standup{
		ID:           id,
		MemberID:     memberID,
		SupervisorID: str(f, FieldSupervisorID),
		Status:       str(f, FieldStatus),
		ScheduledFor: instant(f, FieldScheduledFor),
		CompletedAt:  instantPtr(f, FieldCompletedAt),
		Notes:        str(f, "notes"),
	}
	if s.Status == "" {
		s.Status = domain.StandupScheduled
	}
	return s
}

// ============================================================
// Encoding
// ============================================================

// BoldActionFields encodes a new bold action.
func BoldActionFields(b *domain.BoldAction) Fields {
	f := Fields{
		"action":         b.Action,
		FieldStatus:      b.Status,
		"timeframe":      b.Timeframe,
		FieldCreatedAt:   b.CreatedAt.UTC(),
		FieldCompletedAt: nil,
	}
	if b.TrainingID != "" {
		f["trainingId"] = b.TrainingID
	}
	if b.CompletedAt != nil {
		f[FieldCompletedAt] = b.CompletedAt.UTC()
	}
	return f
}

// BoldActionCompletionFields encodes the completion update.
func BoldActionCompletionFields(c domain.BoldActionCompletion) Fields {
	return Fields{
		FieldStatus:       domain.BoldActionCompleted,
		"actualTimeframe": c.ActualTimeframe,
		"reflectionNotes": c.ReflectionNotes,
		FieldCompletedAt:  c.CompletedAt.UTC(),
	}
}

// StandupFields encodes a new standup.
func StandupFields(s *domain.Standup) Fields {
	f := Fields{
		FieldSupervisorID: s.SupervisorID,
		FieldStatus:       s.Status,
		FieldScheduledFor: s.ScheduledFor.UTC(),
		FieldCompletedAt:  nil,
	}
	if s.CompletedAt != nil {
		f[FieldCompletedAt] = s.CompletedAt.UTC()
	}
	if s.Notes != "" {
		f["notes"] = s.Notes
	}
	return f
}

// StandupCompletionFields encodes the completion update.
func StandupCompletionFields(completedAt time.Time, notes string) Fields {
	return Fields{
		FieldStatus:      domain.StandupCompleted,
		FieldCompletedAt: completedAt.UTC(),
		"notes":          notes,
	}
}

// UserUpdateFields encodes the non-nil parts of upd.
func UserUpdateFields(upd domain.UserUpdate) Fields {
	f := Fields{}
	if upd.Role != nil {
		f[FieldRole] = string(*upd.Role)
	}
	if upd.SupervisorID != nil {
		f[FieldSupervisorID] = *upd.SupervisorID
	}
	return f
}

// ProgressEntryFields encodes the merged fields of one progress entry.
func ProgressEntryFields(upd domain.TrainingProgressUpdate) Fields {
	f := Fields{FieldLastUpdated: upd.LastUpdated.UTC()}
	if upd.VideoCompleted != nil {
		f["videoCompleted"] = *upd.VideoCompleted
	}
	if upd.WorksheetCompleted != nil {
		f["worksheetCompleted"] = *upd.WorksheetCompleted
	}
	return f
}

// ============================================================
// Field helpers
// ============================================================

func str(f Fields, key string) string {
	v, _ := f[key].(string)
	return strings.TrimSpace(v)
}

func boolean(f Fields, key string) bool {
	switch v := f[key].(type) {
	case bool:
		return v
	case string:
		return v == "true"
	}
	return false
}

func integer(f Fields, key string) int {
	switch v := f[key].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func float(f Fields, key string) float64 {
	switch v := f[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

func strList(f Fields, key string) []string {
	var out []string
	switch v := f[key].(type) {
	case []string:
		out = append(out, v...)
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
	}
	return out
}

func sub(f Fields, key string) Fields {
	if m, ok := f[key].(map[string]any); ok {
		return m
	}
	return nil
}

func instant(f Fields, key string) time.Time {
	t, _ := calendar.ToInstant(f[key])
	return t
}

func instantPtr(f Fields, key string) *time.Time {
	t, ok := calendar.ToInstant(f[key])
	if !ok {
		return nil
	}
	return &t
}
