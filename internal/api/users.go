package api

import (
	"encoding/json"
	"net/http"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"southerniot.dev/erp/internal/model"
	"southerniot.dev/erp/internal/store"
)

type userCreateRequest struct {
	Email            string          `json:"email"`
	Username         string          `json:"username"`
	Password         string          `json:"password"`
	FullName         string          `json:"full_name"`
	IsActive         *bool           `json:"is_active"`
	IsSuperuser      bool            `json:"is_superuser"`
	Department       string          `json:"department"`
	Designation      string          `json:"designation"`
	DepartmentAccess json.RawMessage `json:"department_access"`
}

type userUpdateRequest struct {
	Email            *string         `json:"email"`
	Password         *string         `json:"password"`
	FullName         *string         `json:"full_name"`
	IsActive         *bool           `json:"is_active"`
	IsSuperuser      *bool           `json:"is_superuser"`
	Department       *string         `json:"department"`
	Designation      *string         `json:"designation"`
	DepartmentAccess json.RawMessage `json:"department_access"`
}

// handleCreateUser creates an operator account. The password is hashed
// before it touches the store; nothing ever returns it.
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req userCreateRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Username == "" || req.Password == "" {
		s.writeDetail(w, http.StatusBadRequest, "email, username and password are required")
		return
	}

	hashed, err := s.hasher.Hash(req.Password)
	if err != nil {
		s.logger.Error("failed to hash password", "error", err)
		s.writeDetail(w, http.StatusInternalServerError, "Internal server error. Please try again later.")
		return
	}

	user := model.User{
		Email:          req.Email,
		Username:       req.Username,
		HashedPassword: hashed,
		FullName:       req.FullName,
		IsActive:       true,
		IsSuperuser:    req.IsSuperuser,
		Department:     req.Department,
		Designation:    req.Designation,
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
	if len(req.DepartmentAccess) > 0 {
		user.DepartmentAccess = datatypes.JSON(req.DepartmentAccess)
	}

	err = s.registry.WithSession(r.Context(), store.Users, func(tx *gorm.DB) error {
		return tx.Create(&user).Error
	})
	if err != nil {
		s.writeStoreError(w, r, err, "User")
		return
	}

	s.writeJSON(w, http.StatusCreated, user)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	skip, limit := listParams(r, 10000)

	var users []model.User
	err := s.registry.WithSession(r.Context(), store.Users, func(tx *gorm.DB) error {
		return tx.Order("id DESC").Offset(skip).Limit(limit).Find(&users).Error
	})
	if err != nil {
		s.writeStoreError(w, r, err, "User")
		return
	}

	s.writeJSON(w, http.StatusOK, users)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.writeDetail(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var user model.User
	err := s.registry.WithSession(r.Context(), store.Users, func(tx *gorm.DB) error {
		return tx.First(&user, id).Error
	})
	if err != nil {
		s.writeStoreError(w, r, err, "User")
		return
	}

	s.writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.writeDetail(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req userUpdateRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	updates := map[string]any{}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if req.Password != nil {
		hashed, err := s.hasher.Hash(*req.Password)
		if err != nil {
			s.logger.Error("failed to hash password", "error", err)
			s.writeDetail(w, http.StatusInternalServerError, "Internal server error. Please try again later.")
			return
		}
		updates["hashed_password"] = hashed
	}
	if req.FullName != nil {
		updates["full_name"] = *req.FullName
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.IsSuperuser != nil {
		updates["is_superuser"] = *req.IsSuperuser
	}
	if req.Department != nil {
		updates["department"] = *req.Department
	}
	if req.Designation != nil {
		updates["designation"] = *req.Designation
	}
	if len(req.DepartmentAccess) > 0 {
		updates["department_access"] = datatypes.JSON(req.DepartmentAccess)
	}

	var user model.User
	err := s.registry.WithSession(r.Context(), store.Users, func(tx *gorm.DB) error {
		if err := tx.First(&user, id).Error; err != nil {
			return err
		}
		if len(updates) == 0 {
			return nil
		}
		return tx.Model(&user).Updates(updates).Error
	})
	if err != nil {
		s.writeStoreError(w, r, err, "User")
		return
	}

	s.writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.writeDetail(w, http.StatusBadRequest, "invalid user id")
		return
	}

	err := s.registry.WithSession(r.Context(), store.Users, func(tx *gorm.DB) error {
		var user model.User
		if err := tx.First(&user, id).Error; err != nil {
			return err
		}
		return tx.Delete(&user).Error
	})
	if err != nil {
		s.writeStoreError(w, r, err, "User")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
