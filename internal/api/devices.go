package api

import (
	"encoding/json"
	"net/http"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"southerniot.dev/erp/internal/model"
	"southerniot.dev/erp/internal/sequence"
	"southerniot.dev/erp/internal/store"
)

type endDeviceCreateRequest struct {
	EndDeviceName     string `json:"end_device_name"`
	MaximumBus        int    `json:"maximum_bus"`
	FotaUpdateVersion string `json:"fota_update_version"`
	Address           string `json:"address"`
}

type endDeviceUpdateRequest struct {
	EndDeviceName     *string `json:"end_device_name"`
	MaximumBus        *int    `json:"maximum_bus"`
	FotaUpdateVersion *string `json:"fota_update_version"`
	Address           *string `json:"address"`
}

// telemetryCreateRequest carries an opaque structured payload. The contents
// are stored verbatim and never interpreted.
type telemetryCreateRequest struct {
	Data json.RawMessage `json:"data"`
}

// handleCreateEndDevice creates an end device with an auto-generated
// ED-YYYY-NNNN id.
func (s *Server) handleCreateEndDevice(w http.ResponseWriter, r *http.Request) {
	var req endDeviceCreateRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if req.EndDeviceName == "" {
		s.writeDetail(w, http.StatusBadRequest, "end_device_name is required")
		return
	}
	if req.MaximumBus <= 0 {
		s.writeDetail(w, http.StatusBadRequest, "maximum_bus must be positive")
		return
	}

	device := model.EndDevice{
		EndDeviceName:     req.EndDeviceName,
		MaximumBus:        req.MaximumBus,
		FotaUpdateVersion: req.FotaUpdateVersion,
		Address:           req.Address,
	}

	if err := sequence.Create(r.Context(), s.registry, store.EndDevices, sequence.EndDeviceIDs, &device, s.logger); err != nil {
		s.writeStoreError(w, r, err, "End device")
		return
	}

	s.writeJSON(w, http.StatusCreated, device)
}

func (s *Server) handleListEndDevices(w http.ResponseWriter, r *http.Request) {
	skip, limit := listParams(r, 10000)

	var devices []model.EndDevice
	err := s.registry.WithSession(r.Context(), store.EndDevices, func(tx *gorm.DB) error {
		return tx.Order("id DESC").Offset(skip).Limit(limit).Find(&devices).Error
	})
	if err != nil {
		s.writeStoreError(w, r, err, "End device")
		return
	}

	s.writeJSON(w, http.StatusOK, devices)
}

func (s *Server) handleGetEndDevice(w http.ResponseWriter, r *http.Request) {
	ref := model.ParseRef(r.PathValue("ref"))

	var device model.EndDevice
	err := s.registry.WithSession(r.Context(), store.EndDevices, func(tx *gorm.DB) error {
		switch ref.Kind {
		case model.BySurrogate:
			return tx.First(&device, ref.Surrogate).Error
		default:
			return tx.Where("end_device_id = ?", ref.PublicID).First(&device).Error
		}
	})
	if err != nil {
		s.writeStoreError(w, r, err, "End device")
		return
	}

	s.writeJSON(w, http.StatusOK, device)
}

func (s *Server) handleUpdateEndDevice(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.writeDetail(w, http.StatusBadRequest, "invalid end device id")
		return
	}

	var req endDeviceUpdateRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	updates := map[string]any{}
	if req.EndDeviceName != nil {
		updates["end_device_name"] = *req.EndDeviceName
	}
	if req.MaximumBus != nil {
		updates["maximum_bus"] = *req.MaximumBus
	}
	if req.FotaUpdateVersion != nil {
		updates["fota_update_version"] = *req.FotaUpdateVersion
	}
	if req.Address != nil {
		updates["address"] = *req.Address
	}

	var device model.EndDevice
	err := s.registry.WithSession(r.Context(), store.EndDevices, func(tx *gorm.DB) error {
		if err := tx.First(&device, id).Error; err != nil {
			return err
		}
		if len(updates) == 0 {
			return nil
		}
		return tx.Model(&device).Updates(updates).Error
	})
	if err != nil {
		s.writeStoreError(w, r, err, "End device")
		return
	}

	s.writeJSON(w, http.StatusOK, device)
}

func (s *Server) handleDeleteEndDevice(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.writeDetail(w, http.StatusBadRequest, "invalid end device id")
		return
	}

	err := s.registry.WithSession(r.Context(), store.EndDevices, func(tx *gorm.DB) error {
		var device model.EndDevice
		if err := tx.First(&device, id).Error; err != nil {
			return err
		}
		return tx.Delete(&device).Error
	})
	if err != nil {
		s.writeStoreError(w, r, err, "End device")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleCreateDeviceTelemetry appends a telemetry record for an end device.
// The caller authenticated with the device token; the parent device must
// exist. The existence check and the insert share one session.
func (s *Server) handleCreateDeviceTelemetry(w http.ResponseWriter, r *http.Request) {
	publicID := r.PathValue("publicID")

	var req telemetryCreateRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if len(req.Data) == 0 {
		s.writeDetail(w, http.StatusBadRequest, "data is required")
		return
	}

	var record model.DeviceTelemetry
	err := s.registry.WithSession(r.Context(), store.EndDevices, func(tx *gorm.DB) error {
		var device model.EndDevice
		if err := tx.Where("end_device_id = ?", publicID).First(&device).Error; err != nil {
			return err
		}
		record = model.DeviceTelemetry{
			EndDeviceID: publicID,
			Data:        datatypes.JSON(req.Data),
		}
		return tx.Create(&record).Error
	})
	if err != nil {
		if s.metrics != nil {
			s.metrics.TelemetryWritesTotal.WithLabelValues("end_device", "error").Inc()
		}
		s.writeStoreError(w, r, err, "End device")
		return
	}

	if s.metrics != nil {
		s.metrics.TelemetryWritesTotal.WithLabelValues("end_device", "success").Inc()
	}
	s.writeJSON(w, http.StatusCreated, record)
}

func (s *Server) handleListDeviceTelemetry(w http.ResponseWriter, r *http.Request) {
	publicID := r.PathValue("publicID")
	skip, limit := listParams(r, 100)

	var records []model.DeviceTelemetry
	err := s.registry.WithSession(r.Context(), store.EndDevices, func(tx *gorm.DB) error {
		return tx.Where("end_device_id = ?", publicID).
			Order("timestamp DESC").
			Offset(skip).Limit(limit).
			Find(&records).Error
	})
	if err != nil {
		s.writeStoreError(w, r, err, "End device")
		return
	}

	s.writeJSON(w, http.StatusOK, records)
}
