package api

import (
	"encoding/json"
	"net/http"

	"github.com/PRautomacao/saude-certa/internal/chatbot"
)

type ChatRequest struct {
	State   chatbot.State `json:"state,omitempty"`
	Form    chatbot.Form  `json:"form,omitempty"`
	Message string        `json:"message"`
}

type ChatResponse struct {
	State        chatbot.State `json:"state"`
	Form         chatbot.Form  `json:"form"`
	Reply        string        `json:"reply"`
	WhatsAppLink string        `json:"whatsapp_link,omitempty"`
}

// chatHandler steps the scripted assistant. The endpoint is stateless: the
// client echoes state and form back with each message, so there is nothing
// to store or expire server-side.
func chatHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		resp := ChatResponse{}
		if req.State == "" || req.State == chatbot.StateStart {
			resp.State, resp.Reply = chatbot.Start()
			resp.Form = req.Form
		} else {
			resp.State, resp.Form, resp.Reply = chatbot.Step(req.State, req.Form, req.Message)
		}

		if resp.State == chatbot.StateDone {
			resp.WhatsAppLink = chatbot.WhatsAppLink(resp.Form)
		}

		writeJSON(w, http.StatusOK, resp)
	}
}
