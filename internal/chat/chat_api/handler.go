package chat_api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"ms-marketplace/internal/apperrors"
	"ms-marketplace/internal/auth"
	"ms-marketplace/internal/chat"
	"ms-marketplace/internal/logger"
	"ms-marketplace/internal/models"
	"ms-marketplace/internal/utils"

	"github.com/go-chi/chi/v5"
)

const heartbeatInterval = 20 * time.Second

type ChatService interface {
	Roster(ctx context.Context, channelID string) ([]models.Participant, error)
	Suggest(ctx context.Context, channelID, userID, text string, cursor int) (*chat.Suggestion, error)
	Render(ctx context.Context, channelID, userID, text string) ([]models.Segment, error)
	SendMessage(ctx context.Context, channelID, senderID, content string) (*models.RenderedMessage, error)
	Messages(ctx context.Context, channelID, userID string, limit int) ([]models.RenderedMessage, error)
	Keystroke(ctx context.Context, channelID, userID, text string) error
	StopTyping(ctx context.Context, channelID, userID string) bool
	CanAccess(ctx context.Context, channelID, userID string) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, channelID string) <-chan models.ChatEvent
}

type MentionLister interface {
	List(ctx context.Context, participantID string, limit int) ([]models.MentionEvent, error)
}

type Handler struct {
	Service ChatService
	Events  Subscriber
	Inbox   MentionLister
	Logger  *logger.Logger
}

func NewHandler(service ChatService, events Subscriber, inbox MentionLister, log *logger.Logger) *Handler {
	return &Handler{Service: service, Events: events, Inbox: inbox, Logger: log}
}

// RegisterRoutes mounts the chat endpoints on an authenticated router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/chat", func(r chi.Router) {
		r.Get("/mentions", h.ListMentions)
		r.Route("/channels/{channelID}", func(r chi.Router) {
			r.Get("/participants", h.GetParticipants)
			r.Post("/suggest", h.Suggest)
			r.Post("/render", h.Render)
			r.Get("/messages", h.ListMessages)
			r.Post("/messages", h.SendMessage)
			r.Post("/typing", h.Typing)
			r.Delete("/typing", h.StopTyping)
			r.Get("/stream", h.Stream)
		})
	})
}

func (h *Handler) GetParticipants(w http.ResponseWriter, r *http.Request) {
	channelID := chi.URLParam(r, "channelID")
	h.Logger.Info("API", fmt.Sprintf("GetParticipants: channelID=%s", channelID))

	if err := h.Service.CanAccess(r.Context(), channelID, auth.UserID(r.Context())); err != nil {
		h.fail(w, "GetParticipants", err)
		return
	}
	roster, err := h.Service.Roster(r.Context(), channelID)
	if err != nil {
		h.fail(w, "GetParticipants", err)
		return
	}
	_ = utils.WriteSuccess(w, http.StatusOK, "participants", roster)
}

func (h *Handler) Suggest(w http.ResponseWriter, r *http.Request) {
	channelID := chi.URLParam(r, "channelID")

	var req models.SuggestRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		h.fail(w, "Suggest", err)
		return
	}

	suggestion, err := h.Service.Suggest(r.Context(), channelID, auth.UserID(r.Context()), req.Text, req.Cursor)
	if err != nil {
		h.fail(w, "Suggest", err)
		return
	}
	_ = utils.WriteSuccess(w, http.StatusOK, "suggestion", suggestion)
}

func (h *Handler) Render(w http.ResponseWriter, r *http.Request) {
	channelID := chi.URLParam(r, "channelID")

	var req models.RenderRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		h.fail(w, "Render", err)
		return
	}

	segments, err := h.Service.Render(r.Context(), channelID, auth.UserID(r.Context()), req.Text)
	if err != nil {
		h.fail(w, "Render", err)
		return
	}
	_ = utils.WriteSuccess(w, http.StatusOK, "segments", segments)
}

func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	channelID := chi.URLParam(r, "channelID")
	userID := auth.UserID(r.Context())
	h.Logger.Info("API", fmt.Sprintf("ListMessages: channelID=%s userID=%s", channelID, userID))

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.fail(w, "ListMessages", apperrors.Validation("invalid_limit", "limit must be a positive number"))
			return
		}
		limit = parsed
	}

	messages, err := h.Service.Messages(r.Context(), channelID, userID, limit)
	if err != nil {
		h.fail(w, "ListMessages", err)
		return
	}
	_ = utils.WriteSuccess(w, http.StatusOK, "messages", messages)
}

func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	channelID := chi.URLParam(r, "channelID")
	userID := auth.UserID(r.Context())
	h.Logger.Info("API", fmt.Sprintf("SendMessage: channelID=%s userID=%s", channelID, userID))

	var req models.SendMessageRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		h.fail(w, "SendMessage", err)
		return
	}

	msg, err := h.Service.SendMessage(r.Context(), channelID, userID, req.Content)
	if err != nil {
		h.fail(w, "SendMessage", err)
		return
	}
	_ = utils.WriteSuccess(w, http.StatusCreated, "message sent", msg)
}

func (h *Handler) Typing(w http.ResponseWriter, r *http.Request) {
	channelID := chi.URLParam(r, "channelID")

	var req models.TypingRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		h.fail(w, "Typing", err)
		return
	}

	if err := h.Service.Keystroke(r.Context(), channelID, auth.UserID(r.Context()), req.Text); err != nil {
		h.fail(w, "Typing", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) StopTyping(w http.ResponseWriter, r *http.Request) {
	channelID := chi.URLParam(r, "channelID")
	h.Service.StopTyping(r.Context(), channelID, auth.UserID(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListMentions(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	mentions, err := h.Inbox.List(r.Context(), userID, 0)
	if err != nil {
		h.fail(w, "ListMentions", err)
		return
	}
	_ = utils.WriteSuccess(w, http.StatusOK, "mentions", mentions)
}

// Stream sends the channel's chat events as Server-Sent Events until the
// client goes away.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	channelID := chi.URLParam(r, "channelID")
	userID := auth.UserID(r.Context())

	if err := h.Service.CanAccess(r.Context(), channelID, userID); err != nil {
		h.fail(w, "Stream", err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	setupSSEHeaders(w)
	ctx := r.Context()
	eventChan := h.Events.Subscribe(ctx, channelID)

	fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"connected\",\"channelID\":%q}\n\n", channelID)
	flusher.Flush()
	h.Logger.Info("SSE", fmt.Sprintf("Client %s connected to channel %s", userID, channelID))

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			jsonData, err := json.Marshal(event)
			if err != nil {
				h.Logger.Error("SSE", fmt.Sprintf("Failed to serialize chat event: %v", err))
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, jsonData)
			flusher.Flush()

		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()

		case <-ctx.Done():
			h.Logger.Debug("SSE", fmt.Sprintf("Client %s disconnected from channel %s", userID, channelID))
			return
		}
	}
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if apperrors.HTTPStatus(err) >= http.StatusInternalServerError {
		h.Logger.Error("API", fmt.Sprintf("%s: %v", op, err))
	} else {
		h.Logger.Warn("API", fmt.Sprintf("%s: %v", op, err))
	}
	_ = utils.WriteError(w, err)
}

func setupSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream;charset=UTF-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, max-age=0, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.Header().Set("X-Content-Type-Options", "nosniff")
}
