package timeentries

import (
	"context"
	"errors"

	"horas-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrEntryNotFound = errors.New("Registro de horas no encontrado")
	ErrNotOwner      = errors.New("No tiene permiso sobre este registro")
)

type Service struct {
	DB *gorm.DB
}

type CreateEntryInput struct {
	EntryDate   string
	Hours       float64
	Project     string
	Description string
}

// Create inserts a work-hour entry for the caller.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, in CreateEntryInput) (*domain.TimeEntry, error) {
	if in.EntryDate == "" {
		return nil, errors.New("La fecha es requerida")
	}
	date, err := domain.ParseDateOnly(in.EntryDate)
	if err != nil {
		return nil, errors.New("Formato de fecha inválido (se espera YYYY-MM-DD)")
	}
	if in.Hours <= 0 || in.Hours > 24 {
		return nil, errors.New("Las horas deben estar entre 0 y 24")
	}
	if in.Project == "" {
		return nil, errors.New("El proyecto es requerido")
	}
	entry := &domain.TimeEntry{
		UserID:      userID,
		EntryDate:   date,
		Hours:       in.Hours,
		Project:     in.Project,
		Description: in.Description,
	}
	if err := s.DB.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

// ListFilter narrows entry listings. Zero values mean "no filter".
type ListFilter struct {
	UserID   uuid.UUID
	DateFrom *domain.DateOnly
	DateTo   *domain.DateOnly
	Project  string
}

// List returns entries matching the filter, newest date first.
func (s *Service) List(ctx context.Context, f ListFilter) ([]domain.TimeEntry, error) {
	q := s.DB.WithContext(ctx).Model(&domain.TimeEntry{})
	if f.UserID != uuid.Nil {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.DateFrom != nil {
		q = q.Where("entry_date >= ?", f.DateFrom.String())
	}
	if f.DateTo != nil {
		q = q.Where("entry_date <= ?", f.DateTo.String())
	}
	if f.Project != "" {
		q = q.Where("project = ?", f.Project)
	}
	var entries []domain.TimeEntry
	if err := q.Order("entry_date DESC, created_at DESC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// Update modifies hours/project/description of an entry owned by the caller.
func (s *Service) Update(ctx context.Context, id, userID uuid.UUID, fields map[string]interface{}) (*domain.TimeEntry, error) {
	allowed := map[string]bool{"hours": true, "project": true, "description": true, "entry_date": true}
	upd := make(map[string]interface{})
	for k, v := range fields {
		if allowed[k] {
			upd[k] = v
		}
	}
	if len(upd) == 0 {
		return nil, errors.New("Sin campos válidos para actualizar")
	}
	if h, ok := upd["hours"].(float64); ok && (h <= 0 || h > 24) {
		return nil, errors.New("Las horas deben estar entre 0 y 24")
	}
	if d, ok := upd["entry_date"].(string); ok {
		date, err := domain.ParseDateOnly(d)
		if err != nil {
			return nil, errors.New("Formato de fecha inválido (se espera YYYY-MM-DD)")
		}
		upd["entry_date"] = date.String()
	}

	res := s.DB.WithContext(ctx).Model(&domain.TimeEntry{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(upd)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrEntryNotFound
	}
	var entry domain.TimeEntry
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

// Delete removes an entry owned by the caller.
func (s *Service) Delete(ctx context.Context, id, userID uuid.UUID) error {
	res := s.DB.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&domain.TimeEntry{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrEntryNotFound
	}
	return nil
}

// SummaryRow is one aggregation bucket of the hours report.
type SummaryRow struct {
	UserID  uuid.UUID `json:"user_id,omitempty"`
	Project string    `json:"project,omitempty"`
	Hours   float64   `json:"hours"`
	Entries int64     `json:"entries"`
}

// Summary aggregates hours over a date range, grouped by user and by project.
// Admin only (handler).
func (s *Service) Summary(ctx context.Context, from, to *domain.DateOnly) (map[string][]SummaryRow, error) {
	base := func() *gorm.DB {
		q := s.DB.WithContext(ctx).Model(&domain.TimeEntry{})
		if from != nil {
			q = q.Where("entry_date >= ?", from.String())
		}
		if to != nil {
			q = q.Where("entry_date <= ?", to.String())
		}
		return q
	}

	var byUser []SummaryRow
	if err := base().
		Select("user_id, SUM(hours) as hours, COUNT(*) as entries").
		Group("user_id").
		Scan(&byUser).Error; err != nil {
		return nil, err
	}
	var byProject []SummaryRow
	if err := base().
		Select("project, SUM(hours) as hours, COUNT(*) as entries").
		Group("project").
		Scan(&byProject).Error; err != nil {
		return nil, err
	}
	return map[string][]SummaryRow{
		"by_user":    byUser,
		"by_project": byProject,
	}, nil
}
