package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/go_shopbot/internal/action"
	"github.com/fjod/go_shopbot/internal/bot"
	"github.com/fjod/go_shopbot/internal/logger"
	"go.uber.org/zap"
)

// EventHandler is the dialog entry point served over HTTP.
type EventHandler interface {
	Handle(ctx context.Context, ev bot.Event) ([]bot.Reply, error)
}

type EventsHandler struct {
	bot     EventHandler
	timeout time.Duration
	log     *zap.Logger
}

func NewEventsHandler(b EventHandler, timeout time.Duration, log *zap.Logger) *EventsHandler {
	return &EventsHandler{bot: b, timeout: timeout, log: log}
}

type EventRequestDTO struct {
	UserID  int64        `json:"user_id"`
	Type    string       `json:"type"`
	Text    string       `json:"text,omitempty"`
	Contact *bot.Contact `json:"contact,omitempty"`
	Media   *bot.Media   `json:"media,omitempty"`
	Token   string       `json:"token,omitempty"`
}

type EventResponseDTO struct {
	Replies []bot.Reply `json:"replies"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func (h *EventsHandler) PostEvent(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req EventRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	ev, err := toEvent(req)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_event", err.Error())
		return
	}

	log := logger.WithTrace(ctx, h.log)
	if ev.Kind == bot.EventSelection && ev.Action.Kind == action.Unknown {
		log.Warn("undecodable selection token", zap.Int64("user_id", ev.UserID), zap.String("token", req.Token))
	}

	replies, err := h.bot.Handle(ctx, ev)
	if err != nil {
		log.Error("event handling failed", zap.Int64("user_id", ev.UserID), zap.Error(err))
		if errors.Is(err, context.DeadlineExceeded) {
			respondError(w, http.StatusGatewayTimeout, "timeout", "event handling timed out")
			return
		}
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	if replies == nil {
		replies = []bot.Reply{}
	}

	respondJSON(w, http.StatusOK, EventResponseDTO{Replies: replies})
}

func toEvent(req EventRequestDTO) (bot.Event, error) {
	if req.UserID <= 0 {
		return bot.Event{}, errors.New("user_id must be positive")
	}

	ev := bot.Event{
		Kind:   bot.EventKind(strings.ToLower(strings.TrimSpace(req.Type))),
		UserID: req.UserID,
		Text:   req.Text,
	}
	switch ev.Kind {
	case bot.EventContact:
		if req.Contact == nil {
			return bot.Event{}, errors.New("contact event without contact")
		}
		ev.Contact = req.Contact
	case bot.EventMedia:
		if req.Media == nil {
			return bot.Event{}, errors.New("media event without media")
		}
		ev.Media = req.Media
	case bot.EventSelection:
		// undecodable tokens reach the dialog as the unknown action
		a, _ := action.Parse(req.Token)
		ev.Action = a
	case bot.EventText, bot.EventCommand:
	default:
		return bot.Event{}, errors.New("unknown event type")
	}
	return ev, nil
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
