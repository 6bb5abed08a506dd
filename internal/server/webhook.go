package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"casino-webhook-backend/internal/conversation"
	"casino-webhook-backend/internal/types"
)

const payloadSource = "casino-webhook-backend"

// handleWebhook is the main Dialogflow fulfillment endpoint: it accepts
// the official request envelope and answers in the official response
// format. Errors are reported in fulfillment shape so the platform can
// still speak them to the user.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var req types.WebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeFulfillmentError(w, http.StatusBadRequest, "Error: el cuerpo debe ser un objeto JSON válido")
		return
	}
	if errs := validateWebhookRequest(req); len(errs) > 0 {
		s.log.Warn().Strs("errors", errs).Msg("invalid Dialogflow request")
		s.writeFulfillmentError(w, http.StatusBadRequest, "Error en formato: "+strings.Join(errs, ", "))
		return
	}

	intent := req.QueryResult.Intent.DisplayName
	parameters := stringParameters(req.QueryResult.Parameters)
	sessionID := extractSessionID(req.Session)
	language := req.QueryResult.LanguageCode

	reply := s.orchestrator.ProcessTurn(r.Context(), intent, parameters, sessionID, language)
	s.writeReply(w, reply)
}

// handleWebhookTest accepts the already-extracted turn shape, useful
// for exercising the flow without building the full Dialogflow envelope.
func (s *Server) handleWebhookTest(w http.ResponseWriter, r *http.Request) {
	var req types.TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Intent) == "" {
		s.writeError(w, http.StatusBadRequest, "intent is required")
		return
	}

	reply := s.orchestrator.ProcessTurn(r.Context(), req.Intent, req.Parameters, req.SessionID, req.LanguageCode)
	s.writeReply(w, reply)
}

func (s *Server) writeReply(w http.ResponseWriter, reply *conversation.Reply) {
	if reply.SessionID != "" {
		w.Header().Set("X-Session-Id", reply.SessionID)
	}
	resp := types.NewWebhookResponse(reply.Text, &types.WebhookPayload{
		Intent:       reply.Intent,
		Confidence:   reply.Confidence,
		ResponseID:   reply.ResponseID,
		Conditions:   reply.Parameters,
		SessionState: reply.SessionState,
		Source:       payloadSource,
	})
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeFulfillmentError(w http.ResponseWriter, code int, msg string) {
	s.writeJSON(w, code, types.NewWebhookResponse(msg, nil))
}

func validateWebhookRequest(req types.WebhookRequest) []string {
	var errs []string
	if req.ResponseID == "" {
		errs = append(errs, "responseId es requerido")
	}
	if req.QueryResult.Intent.DisplayName == "" {
		errs = append(errs, "queryResult.intent.displayName es requerido")
	}
	return errs
}

// extractSessionID pulls the bare id out of the Dialogflow session path
// ("projects/<p>/agent/sessions/<id>"). Anything without the sessions/
// segment is passed through as-is.
func extractSessionID(session string) string {
	if session == "" {
		return ""
	}
	if idx := strings.LastIndex(session, "sessions/"); idx >= 0 {
		return session[idx+len("sessions/"):]
	}
	return session
}

// stringParameters flattens the Dialogflow parameter object into the
// string map the engine works with. Scalars are stringified; nested
// structures and empty values are dropped.
func stringParameters(in map[string]any) map[string]string {
	out := make(map[string]string, len(in))
	for key, value := range in {
		switch v := value.(type) {
		case string:
			if v != "" {
				out[key] = v
			}
		case float64:
			out[key] = fmt.Sprintf("%v", v)
		case bool:
			out[key] = fmt.Sprintf("%t", v)
		}
	}
	return out
}
