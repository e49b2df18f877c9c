package api

import (
	"net/http"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"southerniot.dev/erp/internal/model"
	"southerniot.dev/erp/internal/sequence"
	"southerniot.dev/erp/internal/store"
)

type gatewayCreateRequest struct {
	TenantName             string `json:"tenant_name"`
	ApplicationName        string `json:"application_name"`
	ApplicationDescription string `json:"application_description"`
	ApplicationTags        string `json:"application_tags"`
	GatewayName            string `json:"gateway_name"`
	GatewayStatsInterval   string `json:"gateway_stats_interval"`
}

type gatewayUpdateRequest struct {
	TenantName             *string `json:"tenant_name"`
	ApplicationName        *string `json:"application_name"`
	ApplicationDescription *string `json:"application_description"`
	ApplicationTags        *string `json:"application_tags"`
	GatewayName            *string `json:"gateway_name"`
	GatewayStatsInterval   *string `json:"gateway_stats_interval"`
}

// handleCreateGateway registers a gateway with an auto-generated G-YYYY-NNNN id.
func (s *Server) handleCreateGateway(w http.ResponseWriter, r *http.Request) {
	var req gatewayCreateRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if req.GatewayName == "" {
		s.writeDetail(w, http.StatusBadRequest, "gateway_name is required")
		return
	}
	if req.TenantName == "" {
		s.writeDetail(w, http.StatusBadRequest, "tenant_name is required")
		return
	}

	gateway := model.Gateway{
		TenantName:             req.TenantName,
		ApplicationName:        req.ApplicationName,
		ApplicationDescription: req.ApplicationDescription,
		ApplicationTags:        req.ApplicationTags,
		GatewayName:            req.GatewayName,
		GatewayStatsInterval:   req.GatewayStatsInterval,
	}

	if err := sequence.Create(r.Context(), s.registry, store.Gateways, sequence.GatewayIDs, &gateway, s.logger); err != nil {
		s.writeStoreError(w, r, err, "Gateway")
		return
	}

	s.writeJSON(w, http.StatusCreated, gateway)
}

func (s *Server) handleListGateways(w http.ResponseWriter, r *http.Request) {
	skip, limit := listParams(r, 10000)

	var gateways []model.Gateway
	err := s.registry.WithSession(r.Context(), store.Gateways, func(tx *gorm.DB) error {
		return tx.Order("id DESC").Offset(skip).Limit(limit).Find(&gateways).Error
	})
	if err != nil {
		s.writeStoreError(w, r, err, "Gateway")
		return
	}

	s.writeJSON(w, http.StatusOK, gateways)
}

func (s *Server) handleGetGateway(w http.ResponseWriter, r *http.Request) {
	ref := model.ParseRef(r.PathValue("ref"))

	var gateway model.Gateway
	err := s.registry.WithSession(r.Context(), store.Gateways, func(tx *gorm.DB) error {
		switch ref.Kind {
		case model.BySurrogate:
			return tx.First(&gateway, ref.Surrogate).Error
		default:
			return tx.Where("gateway_id = ?", ref.PublicID).First(&gateway).Error
		}
	})
	if err != nil {
		s.writeStoreError(w, r, err, "Gateway")
		return
	}

	s.writeJSON(w, http.StatusOK, gateway)
}

func (s *Server) handleUpdateGateway(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.writeDetail(w, http.StatusBadRequest, "invalid gateway id")
		return
	}

	var req gatewayUpdateRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	updates := map[string]any{}
	if req.TenantName != nil {
		updates["tenant_name"] = *req.TenantName
	}
	if req.ApplicationName != nil {
		updates["application_name"] = *req.ApplicationName
	}
	if req.ApplicationDescription != nil {
		updates["application_description"] = *req.ApplicationDescription
	}
	if req.ApplicationTags != nil {
		updates["application_tags"] = *req.ApplicationTags
	}
	if req.GatewayName != nil {
		updates["gateway_name"] = *req.GatewayName
	}
	if req.GatewayStatsInterval != nil {
		updates["gateway_stats_interval"] = *req.GatewayStatsInterval
	}

	var gateway model.Gateway
	err := s.registry.WithSession(r.Context(), store.Gateways, func(tx *gorm.DB) error {
		if err := tx.First(&gateway, id).Error; err != nil {
			return err
		}
		if len(updates) == 0 {
			return nil
		}
		return tx.Model(&gateway).Updates(updates).Error
	})
	if err != nil {
		s.writeStoreError(w, r, err, "Gateway")
		return
	}

	s.writeJSON(w, http.StatusOK, gateway)
}

func (s *Server) handleDeleteGateway(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.writeDetail(w, http.StatusBadRequest, "invalid gateway id")
		return
	}

	err := s.registry.WithSession(r.Context(), store.Gateways, func(tx *gorm.DB) error {
		var gateway model.Gateway
		if err := tx.First(&gateway, id).Error; err != nil {
			return err
		}
		return tx.Delete(&gateway).Error
	})
	if err != nil {
		s.writeStoreError(w, r, err, "Gateway")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleCreateGatewayTelemetry appends a telemetry record for a gateway.
func (s *Server) handleCreateGatewayTelemetry(w http.ResponseWriter, r *http.Request) {
	publicID := r.PathValue("publicID")

	var req telemetryCreateRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if len(req.Data) == 0 {
		s.writeDetail(w, http.StatusBadRequest, "data is required")
		return
	}

	var record model.GatewayTelemetry
	err := s.registry.WithSession(r.Context(), store.Gateways, func(tx *gorm.DB) error {
		var gateway model.Gateway
		if err := tx.Where("gateway_id = ?", publicID).First(&gateway).Error; err != nil {
			return err
		}
		record = model.GatewayTelemetry{
			GatewayID: publicID,
			Data:      datatypes.JSON(req.Data),
		}
		return tx.Create(&record).Error
	})
	if err != nil {
		if s.metrics != nil {
			s.metrics.TelemetryWritesTotal.WithLabelValues("gateway", "error").Inc()
		}
		s.writeStoreError(w, r, err, "Gateway")
		return
	}

	if s.metrics != nil {
		s.metrics.TelemetryWritesTotal.WithLabelValues("gateway", "success").Inc()
	}
	s.writeJSON(w, http.StatusCreated, record)
}

func (s *Server) handleListGatewayTelemetry(w http.ResponseWriter, r *http.Request) {
	publicID := r.PathValue("publicID")
	skip, limit := listParams(r, 100)

	var records []model.GatewayTelemetry
	err := s.registry.WithSession(r.Context(), store.Gateways, func(tx *gorm.DB) error {
		return tx.Where("gateway_id = ?", publicID).
			Order("timestamp DESC").
			Offset(skip).Limit(limit).
			Find(&records).Error
	})
	if err != nil {
		s.writeStoreError(w, r, err, "Gateway")
		return
	}

	s.writeJSON(w, http.StatusOK, records)
}
