package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"poll-chat/domain"
	apperrors "poll-chat/errors"
	"poll-chat/services"

	"github.com/samber/lo"
)

// MessageView is the public shape of a message on the list endpoints.
type MessageView struct {
	NickName string `json:"nickName"`
	Message  string `json:"message"`
}

// CursorMessageView adds identity and sequence for cursor-aware clients.
type CursorMessageView struct {
	ID       string        `json:"id"`
	Seq      domain.Cursor `json:"seq"`
	NickName string        `json:"nickName"`
	Message  string        `json:"message"`
	At       time.Time     `json:"at"`
}

type SinceResponse struct {
	Cursor   domain.Cursor       `json:"cursor"`
	Messages []CursorMessageView `json:"messages"`
}

type HeadResponse struct {
	Cursor domain.Cursor `json:"cursor"`
	Count  int           `json:"count"`
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorBody is the structured error envelope: {"error":{"kind":...,"message":...}}.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Kind    apperrors.Kind `json:"kind"`
	Message string         `json:"message"`
}

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	log     *slog.Logger
	service services.IChatService
}

func NewHandler(log *slog.Logger, service services.IChatService) *Handler {
	return &Handler{log: log, service: service}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Warn("Response encoding failed", "error", err)
	}
}

// Error maps err to the error envelope. Store failures are not detailed to callers.
func (h *Handler) Error(w http.ResponseWriter, err error) {
	kind := apperrors.KindOf(err)
	status, message := http.StatusInternalServerError, "internal error"
	switch kind {
	case apperrors.KindPersistence:
		message = "message store unavailable"
	case apperrors.KindBadRequest, apperrors.KindValidation:
		status, message = http.StatusBadRequest, err.Error()
	}
	h.log.Error("Request failed", "kind", kind, "error", err)
	h.JSON(w, status, ErrorBody{Error: ErrorDetail{Kind: kind, Message: message}})
}

// ListMessages returns the whole log in insertion order.
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := h.service.List(r.Context())
	if err != nil {
		h.Error(w, err)
		return
	}
	h.JSON(w, http.StatusOK, toMessageViews(messages))
}

// PostMessage appends one message and answers with the full updated log.
// Fields are taken as given; missing ones are stored as empty strings.
func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	cmd, err := decodePostMessage(r)
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		h.JSON(w, http.StatusRequestEntityTooLarge, ErrorBody{Error: ErrorDetail{
			Kind:    apperrors.KindBadRequest,
			Message: fmt.Sprintf("body exceeds %d bytes", tooLarge.Limit),
		}})
		return
	}
	if err != nil {
		h.log.Debug("Unreadable message body, storing empty fields", "error", err)
	}

	messages, err := h.service.Append(r.Context(), cmd)
	if err != nil {
		h.Error(w, err)
		return
	}
	h.JSON(w, http.StatusOK, toMessageViews(messages))
}

func (h *Handler) MessagesSince(w http.ResponseWriter, r *http.Request) {
	cursor, err := domain.ParseCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		h.Error(w, fmt.Errorf("%w: %w", apperrors.ErrBadCursor, err))
		return
	}
	page, err := h.service.Since(r.Context(), cursor)
	if err != nil {
		h.Error(w, err)
		return
	}
	h.JSON(w, http.StatusOK, SinceResponse{
		Cursor: page.Cursor,
		Messages: lo.Map(page.Messages, func(m domain.Message, _ int) CursorMessageView {
			return CursorMessageView{ID: m.ID, Seq: m.Seq, NickName: m.NickName, Message: m.Text, At: m.At}
		}),
	})
}

func (h *Handler) MessagesHead(w http.ResponseWriter, r *http.Request) {
	head, err := h.service.Head(r.Context())
	if err != nil {
		h.Error(w, err)
		return
	}
	h.JSON(w, http.StatusOK, HeadResponse{Cursor: head.Cursor, Count: head.Count})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if _, err := h.service.Head(ctx); err != nil {
		h.log.Warn("Health check failed", "error", err)
		h.JSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "DOWN", Timestamp: time.Now().UTC()})
		return
	}
	h.JSON(w, http.StatusOK, HealthResponse{Status: "UP", Timestamp: time.Now().UTC()})
}

func toMessageViews(messages []domain.Message) []MessageView {
	return lo.Map(messages, func(m domain.Message, _ int) MessageView {
		return MessageView{NickName: m.NickName, Message: m.Text}
	})
}

// decodePostMessage reads nickName and message from a JSON or form body.
// On a decoding error the fields decoded so far are returned with the error.
func decodePostMessage(r *http.Request) (domain.PostMessageCommand, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			return domain.PostMessageCommand{}, err
		}
		return domain.PostMessageCommand{
			NickName: looseString(body["nickName"]),
			Text:     looseString(body["message"]),
		}, nil
	}
	if err := r.ParseForm(); err != nil {
		return domain.PostMessageCommand{}, err
	}
	return domain.PostMessageCommand{
		NickName: r.PostForm.Get("nickName"),
		Text:     r.PostForm.Get("message"),
	}, nil
}

// looseString renders any decoded JSON value as text: strings as-is, null as
// empty, scalars in their usual form and composites as JSON.
func looseString(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case float64, bool:
		return fmt.Sprint(value)
	default:
		bytes, err := json.Marshal(value)
		if err != nil {
			return fmt.Sprint(value)
		}
		return string(bytes)
	}
}
