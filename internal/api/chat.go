package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"steuerpilot/internal/domain/expense"
	"steuerpilot/internal/domain/profile"
	"steuerpilot/internal/workflow"
	"steuerpilot/pkg/errors"
	"steuerpilot/pkg/logger"
)

const wsChunkSize = 80

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ChatHandler serves the assistant's HTTP and WebSocket endpoints
type ChatHandler struct {
	processor *workflow.Processor
	expenses  expense.Repository
	profiles  profile.Repository
	log       *logger.Logger
}

// NewChatHandler creates the assistant HTTP handler
func NewChatHandler(processor *workflow.Processor, expenses expense.Repository, profiles profile.Repository) *ChatHandler {
	return &ChatHandler{
		processor: processor,
		expenses:  expenses,
		profiles:  profiles,
		log:       logger.Get().With("component", "api"),
	}
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
}

func (req *chatRequest) validate() error {
	if strings.TrimSpace(req.Message) == "" {
		return errors.Wrap(errors.ErrInvalidInput, "message is required")
	}
	if req.SessionID == "" {
		return errors.Wrap(errors.ErrInvalidInput, "session_id is required")
	}
	if req.UserID == "" {
		return errors.Wrap(errors.ErrInvalidInput, "user_id is required")
	}
	return nil
}

// HandleChat processes one user message and returns the merged reply
func (h *ChatHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.processor.ProcessMessage(r.Context(), req.Message, req.SessionID, req.UserID)
	if err != nil {
		h.log.Errorw("turn processing failed", "session_id", req.SessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "processing failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

type wsFrame struct {
	Type           string  `json:"type"` // chunk | done | error
	Content        string  `json:"content,omitempty"`
	Confidence     float64 `json:"confidence,omitempty"`
	ConversationID string  `json:"conversation_id,omitempty"`
	Error          string  `json:"error,omitempty"`
}

// HandleChatWS streams replies over a WebSocket: the finished content is sent
// in chunks followed by a done frame, one exchange per incoming message
func (h *ChatHandler) HandleChatWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnw("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	for {
		var req chatRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warnw("websocket read failed", "error", err)
			}
			return
		}
		if err := req.validate(); err != nil {
			_ = conn.WriteJSON(wsFrame{Type: "error", Error: err.Error()})
			continue
		}

		result, err := h.processor.ProcessMessage(r.Context(), req.Message, req.SessionID, req.UserID)
		if err != nil {
			h.log.Errorw("turn processing failed", "session_id", req.SessionID, "error", err)
			_ = conn.WriteJSON(wsFrame{Type: "error", Error: "processing failed"})
			continue
		}

		for _, chunk := range splitChunks(result.Content, wsChunkSize) {
			if err := conn.WriteJSON(wsFrame{Type: "chunk", Content: chunk}); err != nil {
				return
			}
		}
		if err := conn.WriteJSON(wsFrame{
			Type:           "done",
			Confidence:     result.Confidence,
			ConversationID: result.ConversationID,
		}); err != nil {
			return
		}
	}
}

// HandleExpenses lists the caller's tracked expenses
func (h *ChatHandler) HandleExpenses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET required")
		return
	}
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	items, err := h.expenses.ListByUser(r.Context(), userID, 50)
	if err != nil {
		h.log.Errorw("expense listing failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "listing failed")
		return
	}
	total, err := h.expenses.TotalByUser(r.Context(), userID)
	if err != nil {
		h.log.Errorw("expense total failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "listing failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"expenses": items,
		"total":    total.StringFixed(2),
	})
}

// HandleProfile returns the caller's stored tax profile
func (h *ChatHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET required")
		return
	}
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	p, err := h.profiles.Get(r.Context(), userID)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no profile on file")
			return
		}
		h.log.Errorw("profile load failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "profile load failed")
		return
	}

	writeJSON(w, http.StatusOK, p)
}

func splitChunks(s string, size int) []string {
	if s == "" {
		return nil
	}
	runes := []rune(s)
	var chunks []string
	for len(runes) > size {
		chunks = append(chunks, string(runes[:size]))
		runes = runes[size:]
	}
	return append(chunks, string(runes))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
