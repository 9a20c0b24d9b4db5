package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/contact-book/internal/service"
)

type EmailHandler struct {
	email  *service.EmailService
	logger *slog.Logger
}

func NewEmailHandler(email *service.EmailService, logger *slog.Logger) *EmailHandler {
	return &EmailHandler{email: email, logger: logger}
}

// HandleSend: POST /email/send {"to","subject","message"} -> 204
func (h *EmailHandler) HandleSend(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	var in service.SendEmailInput
	if err := decodeJSON(w, r, &in); err != nil {
		WriteError(w, r, err)
		return
	}

	if err := h.email.Send(r.Context(), p.UserID(), in); err != nil {
		WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
