package vacations

import (
	"context"
	"encoding/json"
	"time"

	"horas-backend/internal/application/policies"
	"horas-backend/internal/domain"
	"horas-backend/internal/pkg/dates"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Service is the vacation request ledger: admission, listing, cancellation,
// decision with balance accounting, and balance queries.
type Service struct {
	DB       *gorm.DB
	Policies *policies.Service
}

type CreateRequestInput struct {
	StartDate string
	EndDate   string
	Reason    *string
}

// CreateRequest validates a new request against the policy set and inserts it
// as "pendiente". Validation short-circuits on the first failure; no mutating
// statement runs before all checks pass.
func (s *Service) CreateRequest(ctx context.Context, userID uuid.UUID, in CreateRequestInput) (*domain.VacationRequest, error) {
	if in.StartDate == "" || in.EndDate == "" {
		return nil, ValidationError("Fecha de inicio y fecha de fin son requeridas")
	}
	start, err := domain.ParseDateOnly(in.StartDate)
	if err != nil {
		return nil, ValidationError("Formato de fecha inválido (se espera YYYY-MM-DD)")
	}
	end, err := domain.ParseDateOnly(in.EndDate)
	if err != nil {
		return nil, ValidationError("Formato de fecha inválido (se espera YYYY-MM-DD)")
	}

	pol := s.Policies.Load(ctx)

	if dates.DaysUntil(start.Time, time.Now()) < pol.MinAdvanceDays {
		return nil, PolicyViolation("La solicitud debe hacerse con más antelación")
	}

	totalDays := dates.BusinessDays(start.Time, end.Time)
	if totalDays <= 0 {
		return nil, ValidationError("Rango de fechas inválido")
	}
	if totalDays > pol.MaxConsecutiveDays {
		return nil, PolicyViolation("Excede el máximo de días consecutivos permitidos")
	}

	// Per-year request cap, counted by created_at. Check-then-insert is not
	// serialized; two concurrent requests can both pass (accepted limitation).
	yearFrom, yearTo := dates.YearBounds(time.Now().Year())
	var count int64
	if err := s.DB.WithContext(ctx).Model(&domain.VacationRequest{}).
		Where("user_id = ? AND created_at >= ? AND created_at < ?", userID, yearFrom, yearTo).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count >= int64(pol.MaxRequestsPerYear) {
		return nil, PolicyViolation("Límite anual de solicitudes alcanzado")
	}

	// Balance check only if a balance row is configured for the start year.
	var bal domain.VacationBalance
	err = s.DB.WithContext(ctx).Where("user_id = ? AND year = ?", userID, start.Year()).First(&bal).Error
	if err == nil {
		used, err := s.usedDays(ctx, userID, start.Year())
		if err != nil {
			return nil, err
		}
		available := bal.DaysAllocated + bal.DaysCarried - used
		if available < 0 {
			available = 0
		}
		if totalDays > available {
			return nil, PolicyViolation("Saldo de días de vacaciones insuficiente")
		}
	} else if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	req := &domain.VacationRequest{
		UserID:    userID,
		StartDate: start,
		EndDate:   end,
		TotalDays: totalDays,
		Status:    domain.StatusPending,
		Reason:    in.Reason,
	}

	tx := s.DB.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()
	if err := tx.Create(req).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	eventData, _ := json.Marshal(map[string]interface{}{
		"total_days": totalDays,
		"start_date": start.String(),
		"end_date":   end.String(),
	})
	if err := tx.Create(&domain.VacationEvent{
		RequestID: req.ID,
		EventType: domain.EventRequestCreated,
		ActorID:   &userID,
		EventData: datatypes.JSON(eventData),
	}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return req, nil
}

// ListMine returns all requests of the caller, newest first.
func (s *Service) ListMine(ctx context.Context, userID uuid.UUID) ([]domain.VacationRequest, error) {
	var reqs []domain.VacationRequest
	if err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&reqs).Error; err != nil {
		return nil, err
	}
	return reqs, nil
}

// ListFilter narrows the admin listing. Zero values mean "no filter".
type ListFilter struct {
	Status   string
	UserID   uuid.UUID
	DateFrom *domain.DateOnly
	DateTo   *domain.DateOnly
}

// ListAll returns requests matching the filter, newest first. Admin only
// (enforced at the handler).
func (s *Service) ListAll(ctx context.Context, f ListFilter) ([]domain.VacationRequest, error) {
	q := s.DB.WithContext(ctx).Model(&domain.VacationRequest{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.UserID != uuid.Nil {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.DateFrom != nil {
		q = q.Where("start_date >= ?", f.DateFrom.String())
	}
	if f.DateTo != nil {
		q = q.Where("end_date <= ?", f.DateTo.String())
	}
	var reqs []domain.VacationRequest
	if err := q.Order("created_at DESC").Find(&reqs).Error; err != nil {
		return nil, err
	}
	return reqs, nil
}

// GetDetail returns one request; non-admin callers may only see their own.
func (s *Service) GetDetail(ctx context.Context, id, callerID uuid.UUID, callerRole string) (*domain.VacationRequest, error) {
	var req domain.VacationRequest
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&req).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !domain.IsAdmin(callerRole) && req.UserID != callerID {
		return nil, ErrForbidden
	}
	return &req, nil
}

// Cancel moves a pending request of the owner to "cancelada". The single
// conditional update collapses not-found / not-owner / not-pending into one
// zero-rows-affected failure.
func (s *Service) Cancel(ctx context.Context, id, userID uuid.UUID) (*domain.VacationRequest, error) {
	tx := s.DB.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()
	res := tx.Model(&domain.VacationRequest{}).
		Where("id = ? AND user_id = ? AND status = ?", id, userID, domain.StatusPending).
		Update("status", domain.StatusCancelled)
	if res.Error != nil {
		tx.Rollback()
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		tx.Rollback()
		return nil, ErrInvalidTransition
	}
	if err := tx.Create(&domain.VacationEvent{
		RequestID: id,
		EventType: domain.EventRequestCancelled,
		ActorID:   &userID,
	}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	var req domain.VacationRequest
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&req).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

// Decide approves or rejects a pending request inside one transaction.
// Approval lazily creates the (user, year) balance row and decrements
// days_allocated by total_days, floored at 0. Rejection touches no balance.
// Concurrent decisions are safe: the guarded WHERE status = 'pendiente'
// update lets only the first commit through.
func (s *Service) Decide(ctx context.Context, id, approverID uuid.UUID, status string, adminComment *string) (*domain.VacationRequest, error) {
	if status != domain.StatusApproved && status != domain.StatusRejected {
		return nil, ValidationError("Estado de decisión inválido")
	}

	tx := s.DB.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	now := time.Now()
	res := tx.Model(&domain.VacationRequest{}).
		Where("id = ? AND status = ?", id, domain.StatusPending).
		Updates(map[string]interface{}{
			"status":        status,
			"approver_id":   approverID,
			"decision_at":   now,
			"admin_comment": adminComment,
		})
	if res.Error != nil {
		tx.Rollback()
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		tx.Rollback()
		return nil, ErrInvalidTransition
	}

	var req domain.VacationRequest
	if err := tx.Where("id = ?", id).First(&req).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if status == domain.StatusApproved {
		year := req.StartDate.Year()
		var bal domain.VacationBalance
		if err := tx.Where("user_id = ? AND year = ?", req.UserID, year).
			FirstOrCreate(&bal, domain.VacationBalance{UserID: req.UserID, Year: year}).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		newAllocated := bal.DaysAllocated - req.TotalDays
		if newAllocated < 0 {
			newAllocated = 0
		}
		if err := tx.Model(&domain.VacationBalance{}).
			Where("user_id = ? AND year = ?", req.UserID, year).
			Update("days_allocated", newAllocated).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	eventType := domain.EventRequestApproved
	if status == domain.StatusRejected {
		eventType = domain.EventRequestRejected
	}
	eventData, _ := json.Marshal(map[string]interface{}{
		"total_days":    req.TotalDays,
		"admin_comment": adminComment,
	})
	if err := tx.Create(&domain.VacationEvent{
		RequestID: req.ID,
		EventType: eventType,
		ActorID:   &approverID,
		EventData: datatypes.JSON(eventData),
	}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &req, nil
}

// BalanceView is the balance plus fields derived fresh on each call.
type BalanceView struct {
	UserID        uuid.UUID `json:"user_id"`
	Year          int       `json:"year"`
	DaysAllocated int       `json:"days_allocated"`
	DaysCarried   int       `json:"days_carried"`
	UsedDays      int       `json:"used_days"`
	AvailableDays int       `json:"available_days"`
}

// GetBalance returns the (user, year) balance with derived used/available
// days. A missing balance row reads as all zeros.
func (s *Service) GetBalance(ctx context.Context, userID uuid.UUID, year int) (*BalanceView, error) {
	if year == 0 {
		year = time.Now().Year()
	}
	view := &BalanceView{UserID: userID, Year: year}

	var bal domain.VacationBalance
	err := s.DB.WithContext(ctx).Where("user_id = ? AND year = ?", userID, year).First(&bal).Error
	if err == nil {
		view.DaysAllocated = bal.DaysAllocated
		view.DaysCarried = bal.DaysCarried
	} else if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	used, err := s.usedDays(ctx, userID, year)
	if err != nil {
		return nil, err
	}
	view.UsedDays = used
	view.AvailableDays = view.DaysAllocated + view.DaysCarried - used
	if view.AvailableDays < 0 {
		view.AvailableDays = 0
	}
	return view, nil
}

// UpsertBalance sets both fields of the (user, year) balance, creating the
// row if needed. Full overwrite, not incremental. Admin only (handler).
func (s *Service) UpsertBalance(ctx context.Context, userID uuid.UUID, year, daysAllocated, daysCarried int) (*BalanceView, error) {
	if year <= 0 {
		return nil, ValidationError("Año inválido")
	}
	if daysAllocated < 0 || daysCarried < 0 {
		return nil, ValidationError("Los días no pueden ser negativos")
	}
	var bal domain.VacationBalance
	err := s.DB.WithContext(ctx).Where("user_id = ? AND year = ?", userID, year).First(&bal).Error
	if err == gorm.ErrRecordNotFound {
		bal = domain.VacationBalance{UserID: userID, Year: year, DaysAllocated: daysAllocated, DaysCarried: daysCarried}
		if err := s.DB.WithContext(ctx).Create(&bal).Error; err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	} else {
		if err := s.DB.WithContext(ctx).Model(&domain.VacationBalance{}).
			Where("user_id = ? AND year = ?", userID, year).
			Updates(map[string]interface{}{"days_allocated": daysAllocated, "days_carried": daysCarried}).Error; err != nil {
			return nil, err
		}
	}
	return s.GetBalance(ctx, userID, year)
}

// Stats returns request counts by status plus a total. Admin only (handler).
func (s *Service) Stats(ctx context.Context) (map[string]int64, error) {
	type row struct {
		Status string
		N      int64
	}
	var rows []row
	if err := s.DB.WithContext(ctx).Model(&domain.VacationRequest{}).
		Select("status, COUNT(*) as n").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := map[string]int64{
		domain.StatusPending:   0,
		domain.StatusApproved:  0,
		domain.StatusRejected:  0,
		domain.StatusCancelled: 0,
	}
	var total int64
	for _, r := range rows {
		out[r.Status] = r.N
		total += r.N
	}
	out["total"] = total
	return out, nil
}

// usedDays sums total_days of approved requests whose start_date falls in the
// given calendar year.
func (s *Service) usedDays(ctx context.Context, userID uuid.UUID, year int) (int, error) {
	from, to := dates.YearBounds(year)
	var used int
	err := s.DB.WithContext(ctx).Model(&domain.VacationRequest{}).
		Select("COALESCE(SUM(total_days), 0)").
		Where("user_id = ? AND status = ? AND start_date >= ? AND start_date < ?",
			userID, domain.StatusApproved, from.Format("2006-01-02"), to.Format("2006-01-02")).
		Scan(&used).Error
	if err != nil {
		return 0, err
	}
	return used, nil
}
