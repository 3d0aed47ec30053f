package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/bunker-backend/internal/engine"
	"github.com/DoyleJ11/bunker-backend/internal/hub"
	"github.com/DoyleJ11/bunker-backend/internal/types"
	wire "github.com/DoyleJ11/bunker-backend/pkg/types"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"
	switch {
	case errors.Is(err, engine.ErrRoomClosed), errors.Is(err, engine.ErrNotFound):
		status, msg = http.StatusNotFound, err.Error()
	case errors.Is(err, engine.ErrValidation):
		status, msg = http.StatusBadRequest, err.Error()
	}
	writeJSON(w, status, types.ErrorPayload{Kind: engine.Kind(err), Message: msg})
}

// GetRoom reports whether a room exists and can still be joined.
func GetRoom(h *hub.Hub, maxPlayers int, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code, ok := hub.NormalizeCode(chi.URLParam(r, "code"), h.CodeLength())
		if !ok {
			writeError(w, engine.ErrValidation)
			return
		}
		lb, err := h.Get(r.Context(), code)
		if err != nil {
			writeError(w, err)
			return
		}

		var info wire.RoomInfo
		err = lb.Do(r.Context(), func(room *engine.Room) error {
			st := room.Snapshot()
			info = wire.RoomInfo{
				Code:       room.Code(),
				Phase:      string(st.Phase),
				Players:    len(st.Players),
				Spectators: len(st.Spectators),
				MaxPlayers: maxPlayers,
				Joinable:   st.Phase == engine.PhaseLobby && len(st.Players) < maxPlayers,
			}
			return nil
		})
		if err != nil {
			if !errors.Is(err, engine.ErrRoomClosed) {
				log.Warn("room lookup failed", zap.String("room", code), zap.Error(err))
			}
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, info)
	}
}

func Healthz(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := h.Stats(r.Context())
		if err != nil {
			writeJSON(w, http.StatusServiceUnavailable, wire.Health{Status: "unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, wire.Health{Status: "ok", Rooms: stats.Rooms, MaxRooms: stats.MaxRooms})
	}
}
