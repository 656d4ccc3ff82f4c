package snapshot

import (
	"net/http"

	"github.com/EmpoweredVote/EV-PublicMap/internal/apierr"
	"github.com/EmpoweredVote/EV-PublicMap/internal/utils"
)

type Handlers struct {
	task          *Task
	systemActorID string
}

func NewHandlers(task *Task, systemActorID string) *Handlers {
	return &Handlers{task: task, systemActorID: systemActorID}
}

// SyncPublicMap handles POST /admin/sync/public-map. The refresh runs
// synchronously; there is no debounce, every call rebuilds today's rows.
func (h *Handlers) SyncPublicMap(w http.ResponseWriter, r *http.Request) {
	actor := utils.ActorID(r.Context(), h.systemActorID)
	if _, err := h.task.Run(r.Context(), TriggerManual, actor); err != nil {
		apierr.Write(w, apierr.Internal(err, "Snapshot refresh failed"))
		return
	}
	apierr.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// SyncStatus handles GET /admin/sync/public-map
func (h *Handlers) SyncStatus(w http.ResponseWriter, r *http.Request) {
	apierr.WriteJSON(w, http.StatusOK, h.task.Status())
}
