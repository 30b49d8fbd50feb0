package policies

import (
	"context"
	"strconv"
	"strings"

	"horas-backend/internal/domain"

	"gorm.io/gorm"
)

// Policy keys stored in vacation_policies.
const (
	KeyMinAdvanceDays     = "min_advance_days"
	KeyMaxConsecutiveDays = "max_consecutive_days"
	KeyMaxRequestsPerYear = "max_requests_per_year"
	KeyDefaultDaysPerYear = "default_days_per_year"
	KeyMaxCarryOverDays   = "max_carry_over_days"
	KeyAutoApproveDays    = "auto_approve_days"
	KeyNotifyOnRequest    = "notify_on_request"
	KeyNotifyOnDecision   = "notify_on_decision"
	KeyAutoReminderDays   = "auto_reminder_days"
)

// descriptions shown in the admin policy listing.
var descriptions = map[string]string{
	KeyMinAdvanceDays:     "Días mínimos de antelación para solicitar vacaciones",
	KeyMaxConsecutiveDays: "Máximo de días hábiles consecutivos por solicitud",
	KeyMaxRequestsPerYear: "Máximo de solicitudes por usuario por año",
	KeyDefaultDaysPerYear: "Días de vacaciones asignados por defecto al año",
	KeyMaxCarryOverDays:   "Máximo de días trasladables al año siguiente",
	KeyAutoApproveDays:    "Solicitudes de hasta N días se aprueban automáticamente (0 = desactivado)",
	KeyNotifyOnRequest:    "Notificar al administrador al crear una solicitud",
	KeyNotifyOnDecision:   "Notificar al usuario al decidir una solicitud",
	KeyAutoReminderDays:   "Días antes del inicio para recordatorio automático",
}

// PolicySet is the typed view of the policy store. Values are parsed once at
// this boundary; consumers never see raw strings.
type PolicySet struct {
	MinAdvanceDays     int
	MaxConsecutiveDays int
	MaxRequestsPerYear int
	DefaultDaysPerYear int
	MaxCarryOverDays   int
	// Reserved configuration: stored and served but consumed by no workflow.
	AutoApproveDays  int
	NotifyOnRequest  bool
	NotifyOnDecision bool
	AutoReminderDays int
}

// Defaults returns the hardcoded policy set used when the store is empty or
// unreachable.
func Defaults() PolicySet {
	return PolicySet{
		MinAdvanceDays:     7,
		MaxConsecutiveDays: 30,
		MaxRequestsPerYear: 5,
		DefaultDaysPerYear: 22,
		MaxCarryOverDays:   5,
		AutoApproveDays:    0,
		NotifyOnRequest:    true,
		NotifyOnDecision:   true,
		AutoReminderDays:   7,
	}
}

// PolicyValue is the admin listing shape: value plus description.
type PolicyValue struct {
	Value       string `json:"value"`
	Description string `json:"description"`
}

type Service struct {
	DB *gorm.DB
}

// Load reads the policy store into a typed PolicySet. Missing keys, parse
// failures, an empty table, or a store error all fall back to defaults.
func (s *Service) Load(ctx context.Context) PolicySet {
	set := Defaults()
	var rows []domain.VacationPolicy
	if err := s.DB.WithContext(ctx).Find(&rows).Error; err != nil || len(rows) == 0 {
		return set
	}
	for _, row := range rows {
		switch row.Key {
		case KeyMinAdvanceDays:
			parseInt(row.Value, &set.MinAdvanceDays)
		case KeyMaxConsecutiveDays:
			parseInt(row.Value, &set.MaxConsecutiveDays)
		case KeyMaxRequestsPerYear:
			parseInt(row.Value, &set.MaxRequestsPerYear)
		case KeyDefaultDaysPerYear:
			parseInt(row.Value, &set.DefaultDaysPerYear)
		case KeyMaxCarryOverDays:
			parseInt(row.Value, &set.MaxCarryOverDays)
		case KeyAutoApproveDays:
			parseInt(row.Value, &set.AutoApproveDays)
		case KeyNotifyOnRequest:
			set.NotifyOnRequest = parseBool(row.Value)
		case KeyNotifyOnDecision:
			set.NotifyOnDecision = parseBool(row.Value)
		case KeyAutoReminderDays:
			parseInt(row.Value, &set.AutoReminderDays)
		}
	}
	return set
}

// GetAll returns every stored policy with its description. Keys absent from
// the store are filled in from defaults so admins always see the full set.
func (s *Service) GetAll(ctx context.Context) (map[string]PolicyValue, error) {
	out := make(map[string]PolicyValue)
	for k, v := range defaultStrings() {
		out[k] = PolicyValue{Value: v, Description: descriptions[k]}
	}
	var rows []domain.VacationPolicy
	if err := s.DB.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		desc := row.Description
		if desc == "" {
			desc = descriptions[row.Key]
		}
		out[row.Key] = PolicyValue{Value: row.Value, Description: desc}
	}
	return out, nil
}

// GetPublic returns the subset of policy values exposed without auth.
func (s *Service) GetPublic(ctx context.Context) map[string]string {
	set := s.Load(ctx)
	return map[string]string{
		KeyMinAdvanceDays:     strconv.Itoa(set.MinAdvanceDays),
		KeyMaxConsecutiveDays: strconv.Itoa(set.MaxConsecutiveDays),
		KeyMaxRequestsPerYear: strconv.Itoa(set.MaxRequestsPerYear),
	}
}

// Set upserts each provided key inside one transaction; if any single key
// update fails, all are rolled back. Unknown keys are rejected.
func (s *Service) Set(ctx context.Context, values map[string]string) error {
	for k := range values {
		if _, ok := descriptions[k]; !ok {
			return ErrUnknownPolicyKey(k)
		}
	}
	tx := s.DB.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()
	for k, v := range values {
		var existing domain.VacationPolicy
		err := tx.Where("key = ?", k).First(&existing).Error
		if err == gorm.ErrRecordNotFound {
			err = tx.Create(&domain.VacationPolicy{Key: k, Value: v, Description: descriptions[k]}).Error
		} else if err == nil {
			err = tx.Model(&domain.VacationPolicy{}).Where("key = ?", k).Update("value", v).Error
		}
		if err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit().Error
}

func defaultStrings() map[string]string {
	d := Defaults()
	return map[string]string{
		KeyMinAdvanceDays:     strconv.Itoa(d.MinAdvanceDays),
		KeyMaxConsecutiveDays: strconv.Itoa(d.MaxConsecutiveDays),
		KeyMaxRequestsPerYear: strconv.Itoa(d.MaxRequestsPerYear),
		KeyDefaultDaysPerYear: strconv.Itoa(d.DefaultDaysPerYear),
		KeyMaxCarryOverDays:   strconv.Itoa(d.MaxCarryOverDays),
		KeyAutoApproveDays:    strconv.Itoa(d.AutoApproveDays),
		KeyNotifyOnRequest:    strconv.FormatBool(d.NotifyOnRequest),
		KeyNotifyOnDecision:   strconv.FormatBool(d.NotifyOnDecision),
		KeyAutoReminderDays:   strconv.Itoa(d.AutoReminderDays),
	}
}

func parseInt(s string, dst *int) {
	if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil && n >= 0 {
		*dst = n
	}
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "si", "sí":
		return true
	}
	return false
}
