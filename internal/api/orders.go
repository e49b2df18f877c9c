package api

import (
	"net/http"

	"gorm.io/gorm"

	"southerniot.dev/erp/internal/model"
	"southerniot.dev/erp/internal/sequence"
	"southerniot.dev/erp/internal/store"
)

type orderCreateRequest struct {
	OrderName  string `json:"order_name"`
	OrderDesc  string `json:"order_desc"`
	ClientName string `json:"client_name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
}

type orderUpdateRequest struct {
	OrderName  *string `json:"order_name"`
	OrderDesc  *string `json:"order_desc"`
	ClientName *string `json:"client_name"`
	Email      *string `json:"email"`
	Phone      *string `json:"phone"`
	Address    *string `json:"address"`
}

// handleCreateOrder creates an order with an auto-generated ORD-YYYY-NNNN id.
// client_name is stored as free text; the orders and clients databases are
// independent, so no relationship is verified.
func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req orderCreateRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	order := model.Order{
		OrderName:  req.OrderName,
		OrderDesc:  req.OrderDesc,
		ClientName: req.ClientName,
		Email:      req.Email,
		Phone:      req.Phone,
		Address:    req.Address,
	}

	if err := sequence.Create(r.Context(), s.registry, store.Orders, sequence.OrderIDs, &order, s.logger); err != nil {
		s.writeStoreError(w, r, err, "Order")
		return
	}

	s.writeJSON(w, http.StatusCreated, order)
}

// handleListOrders lists orders, optionally filtered by client_name.
func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	skip, limit := listParams(r, 10000)
	clientName := r.URL.Query().Get("client_name")

	var orders []model.Order
	err := s.registry.WithSession(r.Context(), store.Orders, func(tx *gorm.DB) error {
		q := tx.Order("id DESC")
		if clientName != "" {
			q = q.Where("client_name = ?", clientName)
		}
		return q.Offset(skip).Limit(limit).Find(&orders).Error
	})
	if err != nil {
		s.writeStoreError(w, r, err, "Order")
		return
	}

	s.writeJSON(w, http.StatusOK, orders)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	ref := model.ParseRef(r.PathValue("ref"))

	var order model.Order
	err := s.registry.WithSession(r.Context(), store.Orders, func(tx *gorm.DB) error {
		switch ref.Kind {
		case model.BySurrogate:
			return tx.First(&order, ref.Surrogate).Error
		default:
			return tx.Where("order_id = ?", ref.PublicID).First(&order).Error
		}
	})
	if err != nil {
		s.writeStoreError(w, r, err, "Order")
		return
	}

	s.writeJSON(w, http.StatusOK, order)
}

func (s *Server) handleUpdateOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.writeDetail(w, http.StatusBadRequest, "invalid order id")
		return
	}

	var req orderUpdateRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	updates := map[string]any{}
	if req.OrderName != nil {
		updates["order_name"] = *req.OrderName
	}
	if req.OrderDesc != nil {
		updates["order_desc"] = *req.OrderDesc
	}
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

	var order model.Order
	err := s.registry.WithSession(r.Context(), store.Orders, func(tx *gorm.DB) error {
		if err := tx.First(&order, id).Error; err != nil {
			return err
		}
		if len(updates) == 0 {
			return nil
		}
		return tx.Model(&order).Updates(updates).Error
	})
	if err != nil {
		s.writeStoreError(w, r, err, "Order")
		return
	}

	s.writeJSON(w, http.StatusOK, order)
}

func (s *Server) handleDeleteOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.writeDetail(w, http.StatusBadRequest, "invalid order id")
		return
	}

	err := s.registry.WithSession(r.Context(), store.Orders, func(tx *gorm.DB) error {
		var order model.Order
		if err := tx.First(&order, id).Error; err != nil {
			return err
		}
		return tx.Delete(&order).Error
	})
	if err != nil {
		s.writeStoreError(w, r, err, "Order")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
