package user

import (
	"context"
	"errors"
	"strings"

	"horas-backend/internal/domain"
	"horas-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Service holds the DB handle for user administration.
type Service struct {
	DB *gorm.DB
}

type CreateUserInput struct {
	Fullname string `json:"fullname"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// CreateUser creates a user. Role defaults to consultor.
func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (*domain.User, error) {
	if strings.TrimSpace(in.Fullname) == "" {
		return nil, errors.New("El nombre completo es requerido")
	}
	if !validation.IsValidFullname(strings.TrimSpace(in.Fullname)) {
		return nil, errors.New("El nombre completo contiene caracteres inválidos")
	}
	if in.Email == "" || !validation.IsValidEmail(in.Email) {
		return nil, errors.New("Formato de email inválido")
	}
	if in.Password == "" || !validation.IsValidPassword(in.Password) {
		return nil, errors.New("La contraseña debe tener al menos 8 caracteres con letras y números")
	}
	role := in.Role
	if role == "" {
		role = domain.RoleConsultant
	}
	if role != domain.RoleAdmin && role != domain.RoleConsultant {
		return nil, errors.New("Rol inválido")
	}

	email := strings.TrimSpace(strings.ToLower(in.Email))
	var existing domain.User
	if err := s.DB.WithContext(ctx).Where("email = ?", email).First(&existing).Error; err == nil {
		return nil, errors.New("El email ya está registrado")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), 10)
	if err != nil {
		return nil, err
	}

	u := &domain.User{
		Fullname:     strings.TrimSpace(in.Fullname),
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		Active:       true,
	}
	if err := s.DB.WithContext(ctx).Create(u).Error; err != nil {
		return nil, err
	}
	return u, nil
}

// ListUsers returns all users ordered by fullname.
func (s *Service) ListUsers(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	if err := s.DB.WithContext(ctx).Order("fullname ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// ViewUser returns one user by id.
func (s *Service) ViewUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	var u domain.User
	if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&u).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.New("Usuario no encontrado")
		}
		return nil, err
	}
	return &u, nil
}

// UpdateUser updates allowed fields: fullname, email, password, role, active.
func (s *Service) UpdateUser(ctx context.Context, userID uuid.UUID, fields map[string]interface{}) (*domain.User, error) {
	if len(fields) == 0 {
		return nil, errors.New("Sin campos para actualizar")
	}
	allowed := map[string]bool{"fullname": true, "email": true, "password": true, "role": true, "active": true}
	upd := make(map[string]interface{})
	for k, v := range fields {
		if allowed[k] {
			upd[k] = v
		}
	}
	if len(upd) == 0 {
		return nil, errors.New("Sin campos válidos para actualizar")
	}

	if e, ok := upd["email"].(string); ok && e != "" {
		if !validation.IsValidEmail(e) {
			return nil, errors.New("Formato de email inválido")
		}
		upd["email"] = strings.TrimSpace(strings.ToLower(e))
	}
	if p, ok := upd["password"].(string); ok && p != "" {
		if !validation.IsValidPassword(p) {
			return nil, errors.New("La contraseña debe tener al menos 8 caracteres con letras y números")
		}
		hash, _ := bcrypt.GenerateFromPassword([]byte(p), 10)
		upd["password_hash"] = string(hash)
	}
	delete(upd, "password")
	if r, ok := upd["role"].(string); ok {
		if r != domain.RoleAdmin && r != domain.RoleConsultant {
			return nil, errors.New("Rol inválido")
		}
	}

	res := s.DB.WithContext(ctx).Model(&domain.User{}).Where("user_id = ?", userID).Updates(upd)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, errors.New("Usuario no encontrado")
	}
	return s.ViewUser(ctx, userID)
}
