package conversation

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"casino-webhook-backend/internal/catalog"
	"casino-webhook-backend/internal/store"
)

const (
	// Confidence values are a fixed heuristic, not probabilities.
	confidenceResponse = 1.0
	confidencePrompt   = 0.5
	confidenceFallback = 0.3

	internalErrorText  = "Error interno del servidor"
	noResponseText     = "No se encontró respuesta específica"
	intentNotFoundText = "Intención no encontrada"
	unknownIntentName  = "unknown"
)

// Reply is the outcome of one conversational turn.
type Reply struct {
	Text         string            `json:"fulfillmentText"`
	Intent       string            `json:"intent"`
	Confidence   float64           `json:"confidence"`
	ResponseID   *int64            `json:"responseId"`
	Parameters   map[string]string `json:"parameters"`
	SessionID    string            `json:"sessionId,omitempty"`
	SessionState string            `json:"sessionState,omitempty"`
}

// FallbackResponder can produce a reply when the catalog has no
// matching response. Optional; the orchestrator works without one.
type FallbackResponder interface {
	Reply(ctx context.Context, intent string) (string, error)
}

// SessionStore is the slot-filling state the orchestrator advances
// across turns.
type SessionStore interface {
	CreateOrUpdate(sessionID, intent string, parameters map[string]string) store.View
	Get(sessionID string) (store.View, bool)
	UpdateState(sessionID, state string, parameters map[string]string) bool
	Clear(sessionID string) bool
}

// Orchestrator runs the turn state machine: validate the intent, then
// either answer immediately or walk the session through slot-filling
// until every required entity is present.
type Orchestrator struct {
	intents   catalog.IntentCatalog
	vocab     catalog.EntityVocabulary
	responses catalog.ResponseCatalog
	history   catalog.HistorySink
	sessions  SessionStore
	fallback  FallbackResponder

	defaultLanguage string
	newSessionID    func() string
	log             zerolog.Logger
}

func NewOrchestrator(
	intents catalog.IntentCatalog,
	vocab catalog.EntityVocabulary,
	responses catalog.ResponseCatalog,
	history catalog.HistorySink,
	sessions SessionStore,
	logger zerolog.Logger,
) *Orchestrator {
	return &Orchestrator{
		intents:         intents,
		vocab:           vocab,
		responses:       responses,
		history:         history,
		sessions:        sessions,
		defaultLanguage: "es",
		newSessionID:    NewSessionID,
		log:             logger.With().Str("component", "conversation").Logger(),
	}
}

// WithFallbackResponder attaches an optional responder consulted when
// no catalog response matches.
func (o *Orchestrator) WithFallbackResponder(f FallbackResponder) *Orchestrator {
	o.fallback = f
	return o
}

// WithDefaultLanguage sets the language used for turns that carry no
// language code. Empty input keeps the current default.
func (o *Orchestrator) WithDefaultLanguage(language string) *Orchestrator {
	if language != "" {
		o.defaultLanguage = language
	}
	return o
}

// ProcessTurn handles one inbound turn. It never propagates collaborator
// failures: anything that goes wrong mid-turn is converted into a
// generic fallback reply tagged with the original intent name.
func (o *Orchestrator) ProcessTurn(ctx context.Context, intent string, parameters map[string]string, sessionID, languageCode string) *Reply {
	if languageCode == "" {
		languageCode = o.defaultLanguage
	}
	log := o.log.With().Str("intent", intent).Str("session_id", sessionID).Logger()
	log.Info().Interface("parameters", parameters).Str("language", languageCode).Msg("processing turn")

	validation, err := o.intents.ValidateIntent(ctx, intent)
	if err != nil {
		log.Error().Err(err).Msg("intent validation failed")
		return fallbackReply(intent, internalErrorText)
	}
	if !validation.Valid {
		log.Warn().Str("reason", validation.Message).Msg("unknown intent")
		return fallbackReply(intent, validation.Message)
	}

	required, err := o.intents.RequiredEntities(ctx, validation.IntentID)
	if err != nil {
		log.Error().Err(err).Msg("required entity lookup failed")
		return fallbackReply(intent, internalErrorText)
	}

	if len(required) == 0 {
		log.Info().Msg("no required entities, responding immediately")
		return o.respond(ctx, intent, parameters, languageCode)
	}

	if sessionID == "" {
		sessionID = o.newSessionID()
		log.Info().Str("session_id", sessionID).Msg("session id generated")
	}
	return o.slotFill(ctx, intent, parameters, sessionID, languageCode, required)
}

// slotFill advances the multi-turn flow: merge the incoming parameters
// into the session, normalize them, then either prompt for the first
// missing required entity or produce the final response and delete the
// session.
func (o *Orchestrator) slotFill(ctx context.Context, intent string, parameters map[string]string, sessionID, languageCode string, required []catalog.RequiredEntity) *Reply {
	log := o.log.With().Str("intent", intent).Str("session_id", sessionID).Logger()

	view := o.sessions.CreateOrUpdate(sessionID, intent, parameters)

	normalized, err := o.normalizeParameters(ctx, parameters)
	if err != nil {
		log.Error().Err(err).Msg("parameter normalization failed")
		return fallbackReply(intent, internalErrorText)
	}

	// Persist normalized values over the raw ones, keeping the state as is.
	if !o.sessions.UpdateState(sessionID, view.State, normalized) {
		log.Warn().Msg("session could not be advanced, it likely expired mid-turn")
	}

	// Missing slots are judged against the session's accumulated
	// parameters, so values collected on earlier turns count.
	collected := normalized
	if current, ok := o.sessions.Get(sessionID); ok {
		collected = current.Parameters
	}

	var missing []catalog.RequiredEntity
	for _, entity := range required {
		if collected[entity.EntityName] == "" {
			missing = append(missing, entity)
		}
	}

	if len(missing) > 0 {
		next := missing[0]
		prompt := next.Prompt
		if prompt == "" {
			prompt = fmt.Sprintf("Por favor proporciona %s", next.EntityName)
		}
		state := "esperando_" + next.EntityName
		if !o.sessions.UpdateState(sessionID, state, nil) {
			log.Warn().Str("entity", next.EntityName).Msg("session could not be advanced, it likely expired mid-turn")
		}
		log.Info().Str("entity", next.EntityName).Str("prompt", prompt).Msg("requesting required entity")

		reply := promptReply(intent, prompt, collected, state)
		reply.SessionID = sessionID
		return reply
	}

	log.Info().Interface("parameters", collected).Msg("all required entities present, responding")
	reply := o.respond(ctx, intent, collected, languageCode)
	o.sessions.Clear(sessionID)
	return reply
}

// respond is the immediate path: fetch the candidates, select the best
// one and record the interaction.
func (o *Orchestrator) respond(ctx context.Context, intent string, parameters map[string]string, languageCode string) *Reply {
	log := o.log.With().Str("intent", intent).Logger()

	intentID, found, err := o.responses.IntentIDByName(ctx, intent)
	if err != nil {
		log.Error().Err(err).Msg("intent lookup failed")
		return fallbackReply(intent, internalErrorText)
	}
	if !found {
		return fallbackReply(intent, intentNotFoundText)
	}

	candidates, err := o.responses.FindResponses(ctx, intentID, languageCode)
	if err != nil {
		log.Error().Err(err).Msg("response lookup failed")
		return fallbackReply(intent, internalErrorText)
	}

	selected, ok := SelectResponse(candidates, parameters)
	if !ok {
		log.Warn().Int("candidates", len(candidates)).Msg("no matching response found")
		reply := o.noResponseFallback(ctx, intent)
		o.record(ctx, intent, parameters, reply.Text)
		return reply
	}

	log.Info().Int64("response_id", selected.ID).Msg("response selected")
	o.record(ctx, intent, parameters, selected.Text)

	id := selected.ID
	return &Reply{
		Text:       selected.Text,
		Intent:     intent,
		Confidence: confidenceResponse,
		ResponseID: &id,
		Parameters: parameters,
	}
}

// noResponseFallback consults the optional fallback responder before
// settling for the static no-response text.
func (o *Orchestrator) noResponseFallback(ctx context.Context, intent string) *Reply {
	if o.fallback != nil {
		if text, err := o.fallback.Reply(ctx, intent); err == nil && text != "" {
			return fallbackReply(intent, text)
		} else if err != nil {
			o.log.Error().Err(err).Str("intent", intent).Msg("fallback responder failed")
		}
	}
	return fallbackReply(unknownIntentName, noResponseText)
}

// normalizeParameters resolves every non-empty incoming value to its
// canonical form. Normalization never fails for a single value; only a
// cancelled context surfaces as an error.
func (o *Orchestrator) normalizeParameters(ctx context.Context, parameters map[string]string) (map[string]string, error) {
	normalized := make(map[string]string, len(parameters))
	for key, value := range parameters {
		if value == "" {
			continue
		}
		canonical, err := o.vocab.Normalize(ctx, value, key)
		if err != nil {
			return nil, err
		}
		if canonical != "" {
			normalized[key] = canonical
		}
	}
	return normalized, nil
}

// record appends the turn to the interaction history. Failures are
// logged and swallowed so history never aborts a turn.
func (o *Orchestrator) record(ctx context.Context, intent string, parameters map[string]string, responseText string) {
	if err := o.history.Record(ctx, intent, parameters, responseText); err != nil {
		o.log.Error().Err(err).Str("intent", intent).Msg("failed to record interaction")
	}
}

func fallbackReply(intent, message string) *Reply {
	return &Reply{
		Text:       message,
		Intent:     intent,
		Confidence: confidenceFallback,
		Parameters: map[string]string{},
	}
}

func promptReply(intent, prompt string, parameters map[string]string, state string) *Reply {
	return &Reply{
		Text:         prompt,
		Intent:       intent,
		Confidence:   confidencePrompt,
		Parameters:   parameters,
		SessionState: state,
	}
}
