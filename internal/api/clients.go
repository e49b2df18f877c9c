package api

import (
	"net/http"

	"gorm.io/gorm"

	"southerniot.dev/erp/internal/model"
	"southerniot.dev/erp/internal/sequence"
	"southerniot.dev/erp/internal/store"
)

type clientCreateRequest struct {
	ClientName string `json:"client_name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
}

type clientUpdateRequest struct {
	ClientName *string `json:"client_name"`
	Email      *string `json:"email"`
	Phone      *string `json:"phone"`
	Address    *string `json:"address"`
}

// handleCreateClient creates a client with an auto-generated CLI-YYYY-NNNN id.
func (s *Server) handleCreateClient(w http.ResponseWriter, r *http.Request) {
	var req clientCreateRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if req.ClientName == "" {
		s.writeDetail(w, http.StatusBadRequest, "client_name is required")
		return
	}

	client := model.Client{
		ClientName: req.ClientName,
		Email:      req.Email,
		Phone:      req.Phone,
		Address:    req.Address,
	}

	if err := sequence.Create(r.Context(), s.registry, store.Clients, sequence.ClientIDs, &client, s.logger); err != nil {
		s.writeStoreError(w, r, err, "Client")
		return
	}

	s.writeJSON(w, http.StatusCreated, client)
}

func (s *Server) handleListClients(w http.ResponseWriter, r *http.Request) {
	skip, limit := listParams(r, 10000)

	var clients []model.Client
	err := s.registry.WithSession(r.Context(), store.Clients, func(tx *gorm.DB) error {
		return tx.Order("id DESC").Offset(skip).Limit(limit).Find(&clients).Error
	})
	if err != nil {
		s.writeStoreError(w, r, err, "Client")
		return
	}

	s.writeJSON(w, http.StatusOK, clients)
}

// handleGetClient looks up a client by surrogate key or public identifier.
func (s *Server) handleGetClient(w http.ResponseWriter, r *http.Request) {
	ref := model.ParseRef(r.PathValue("ref"))

	var client model.Client
	err := s.registry.WithSession(r.Context(), store.Clients, func(tx *gorm.DB) error {
		switch ref.Kind {
		case model.BySurrogate:
			return tx.First(&client, ref.Surrogate).Error
		default:
			return tx.Where("client_id = ?", ref.PublicID).First(&client).Error
		}
	})
	if err != nil {
		s.writeStoreError(w, r, err, "Client")
		return
	}

	s.writeJSON(w, http.StatusOK, client)
}

func (s *Server) handleUpdateClient(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.writeDetail(w, http.StatusBadRequest, "invalid client id")
		return
	}

	var req clientUpdateRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	updates := map[string]any{}
	if req.ClientName != nil {
		updates["client_name"] = *req.ClientName
	}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.Address != nil {
		updates["address"] = *req.Address
	}

	var client model.Client
	err := s.registry.WithSession(r.Context(), store.Clients, func(tx *gorm.DB) error {
		if err := tx.First(&client, id).Error; err != nil {
			return err
		}
		if len(updates) == 0 {
			return nil
		}
		return tx.Model(&client).Updates(updates).Error
	})
	if err != nil {
		s.writeStoreError(w, r, err, "Client")
		return
	}

	s.writeJSON(w, http.StatusOK, client)
}

func (s *Server) handleDeleteClient(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.writeDetail(w, http.StatusBadRequest, "invalid client id")
		return
	}

	err := s.registry.WithSession(r.Context(), store.Clients, func(tx *gorm.DB) error {
		var client model.Client
		if err := tx.First(&client, id).Error; err != nil {
			return err
		}
		return tx.Delete(&client).Error
	})
	if err != nil {
		s.writeStoreError(w, r, err, "Client")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
