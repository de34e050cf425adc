package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/akarpov/homehub/internal/control"
	"github.com/akarpov/homehub/internal/device"
	"github.com/akarpov/homehub/internal/infrastructure/mqtt"
)

// handleGetDeviceState returns the live state of a device: the stored record
// plus online presence and the queried power state.
func (s *Server) handleGetDeviceState(w http.ResponseWriter, r *http.Request) {
	id, ok := deviceIDParam(w, r)
	if !ok {
		return
	}

	info, err := s.states.GetDeviceInfo(r.Context(), id)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		writeInternalError(w, "failed to query device state")
		return
	}

	writeJSON(w, http.StatusOK, info)
}

// handleListDeviceState returns the live state of every registered device.
func (s *Server) handleListDeviceState(w http.ResponseWriter, r *http.Request) {
	infos, err := s.states.ListDeviceInfo(r.Context())
	if err != nil {
		writeInternalError(w, "failed to query device state")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"devices": infos, "count": len(infos)})
}

// handleUnknownDevices returns router clients that match no registered device.
func (s *Server) handleUnknownDevices(w http.ResponseWriter, r *http.Request) {
	entries, err := s.states.UnknownDevices(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeInternal, "router snapshot unavailable")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"unknown": entries, "count": len(entries)})
}

// handleTurnOn routes a power-on command to the device's backend.
func (s *Server) handleTurnOn(w http.ResponseWriter, r *http.Request) {
	s.handlePower(w, r, true)
}

// handleTurnOff routes a power-off command to the device's backend.
func (s *Server) handleTurnOff(w http.ResponseWriter, r *http.Request) {
	s.handlePower(w, r, false)
}

func (s *Server) handlePower(w http.ResponseWriter, r *http.Request, on bool) {
	id, ok := deviceIDParam(w, r)
	if !ok {
		return
	}

	var err error
	if on {
		err = s.commander.TurnOn(r.Context(), id)
	} else {
		err = s.commander.TurnOff(r.Context(), id)
	}
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		if errors.Is(err, control.ErrUnsupported) {
			writeError(w, http.StatusUnprocessableEntity, ErrCodeValidation, err.Error())
			return
		}
		writeError(w, http.StatusBadGateway, ErrCodeInternal, err.Error())
		return
	}

	power := device.PowerOff
	if on {
		power = device.PowerOn
	}
	s.publishDeviceState(id, power)

	writeJSON(w, http.StatusOK, map[string]any{
		"device_id": id,
		"power":     power,
	})
}

// commissionRequest is the request body for POST /devices/{id}/commission.
type commissionRequest struct {
	PairingCode string `json:"pairing_code"`
}

// handleCommission pairs a device onto the mesh and stores its node id.
func (s *Server) handleCommission(w http.ResponseWriter, r *http.Request) {
	id, ok := deviceIDParam(w, r)
	if !ok {
		return
	}

	var req commissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.PairingCode == "" {
		writeBadRequest(w, "pairing_code field is required")
		return
	}

	if err := s.commander.Commission(r.Context(), id, req.PairingCode); err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		writeError(w, http.StatusBadGateway, ErrCodeInternal, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"device_id": id,
		"status":    "commissioned",
	})
}

// handleDecommission removes a device from the mesh.
func (s *Server) handleDecommission(w http.ResponseWriter, r *http.Request) {
	id, ok := deviceIDParam(w, r)
	if !ok {
		return
	}

	if err := s.commander.Decommission(r.Context(), id); err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		if errors.Is(err, control.ErrNotCommissioned) {
			writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
			return
		}
		writeError(w, http.StatusBadGateway, ErrCodeInternal, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"device_id": id,
		"status":    "decommissioned",
	})
}

// publishDeviceState pushes a confirmed power change onto the bus and to
// WebSocket subscribers. Best effort; command success is already reported.
func (s *Server) publishDeviceState(deviceID int64, power device.PowerState) {
	payload := map[string]any{
		"device_id": deviceID,
		"power":     power,
	}

	if s.hub != nil {
		s.hub.Broadcast("device.state_changed", payload)
	}

	if s.mqtt == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	topic := mqtt.Topics{}.CoreDeviceState(strconv.FormatInt(deviceID, 10))
	if err := s.mqtt.Publish(topic, data, 1, false); err != nil {
		s.logger.Debug("device state publish failed", "device_id", deviceID, "error", err)
	}
}
