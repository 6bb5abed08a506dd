package conversation

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casino-webhook-backend/internal/catalog"
	"casino-webhook-backend/internal/store"
)

type recordedInteraction struct {
	intent     string
	parameters map[string]string
	response   string
}

// fakeCatalog implements every catalog port from in-memory fixtures.
type fakeCatalog struct {
	intents   map[string]int64
	required  map[int64][]catalog.RequiredEntity
	synonyms  map[string]map[string]string
	responses map[int64][]catalog.CandidateResponse
	recorded  []recordedInteraction

	validateErr  error
	responsesErr error
}

func (f *fakeCatalog) ValidateIntent(_ context.Context, name string) (catalog.ValidationResult, error) {
	if f.validateErr != nil {
		return catalog.ValidationResult{}, f.validateErr
	}
	if id, ok := f.intents[name]; ok {
		return catalog.ValidationResult{Valid: true, IntentID: id, IntentName: name}, nil
	}
	return catalog.ValidationResult{Valid: false, Message: "Intención no reconocida"}, nil
}

func (f *fakeCatalog) RequiredEntities(_ context.Context, intentID int64) ([]catalog.RequiredEntity, error) {
	return f.required[intentID], nil
}

func (f *fakeCatalog) Normalize(_ context.Context, value, entityName string) (string, error) {
	if canonical, ok := f.synonyms[entityName][strings.ToLower(value)]; ok {
		return canonical, nil
	}
	return value, nil
}

func (f *fakeCatalog) FindResponses(_ context.Context, intentID int64, languageCode string) ([]catalog.CandidateResponse, error) {
	if f.responsesErr != nil {
		return nil, f.responsesErr
	}
	var out []catalog.CandidateResponse
	for _, r := range f.responses[intentID] {
		if r.LanguageCode == languageCode {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeCatalog) IntentIDByName(_ context.Context, name string) (int64, bool, error) {
	id, ok := f.intents[name]
	return id, ok, nil
}

func (f *fakeCatalog) Record(_ context.Context, intent string, parameters map[string]string, responseText string) error {
	f.recorded = append(f.recorded, recordedInteraction{intent: intent, parameters: parameters, response: responseText})
	return nil
}

func (f *fakeCatalog) Recent(_ context.Context, limit int) ([]catalog.Interaction, error) {
	return nil, nil
}

func newFixture() *fakeCatalog {
	return &fakeCatalog{
		intents: map[string]int64{
			"saludo":        1,
			"reservar_mesa": 2,
		},
		required: map[int64][]catalog.RequiredEntity{
			2: {
				{EntityName: "fecha", Required: true, Prompt: "¿Para qué fecha?"},
				{EntityName: "hora", Required: true, Prompt: "¿A qué hora?"},
			},
		},
		synonyms: map[string]map[string]string{
			"fecha": {"mañana": "2024-01-16"},
		},
		responses: map[int64][]catalog.CandidateResponse{
			1: {{ID: 10, IntentID: 1, Text: "¡Hola!", LanguageCode: "es"}},
			2: {{ID: 20, IntentID: 2, Text: "Mesa reservada.", LanguageCode: "es"}},
		},
	}
}

func newTestOrchestrator(f *fakeCatalog) (*Orchestrator, *store.Memory) {
	sessions := store.NewMemory(0, zerolog.Nop())
	return NewOrchestrator(f, f, f, f, sessions, zerolog.Nop()), sessions
}

func TestProcessTurnUnknownIntent(t *testing.T) {
	f := newFixture()
	o, sessions := newTestOrchestrator(f)

	reply := o.ProcessTurn(context.Background(), "no_existe", map[string]string{}, "", "es")

	assert.Equal(t, 0.3, reply.Confidence)
	assert.Equal(t, "Intención no reconocida", reply.Text)
	assert.Equal(t, "no_existe", reply.Intent)
	assert.Zero(t, sessions.Stats().Total, "validation failure must not create a session")
	assert.Empty(t, f.recorded)
}

func TestProcessTurnImmediate(t *testing.T) {
	f := newFixture()
	o, sessions := newTestOrchestrator(f)

	reply := o.ProcessTurn(context.Background(), "saludo", map[string]string{}, "", "es")

	assert.Equal(t, 1.0, reply.Confidence)
	assert.Equal(t, "¡Hola!", reply.Text)
	require.NotNil(t, reply.ResponseID)
	assert.Equal(t, int64(10), *reply.ResponseID)
	assert.Zero(t, sessions.Stats().Total, "immediate path must not create a session")

	require.Len(t, f.recorded, 1)
	assert.Equal(t, "saludo", f.recorded[0].intent)
	assert.Equal(t, "¡Hola!", f.recorded[0].response)
}

func TestProcessTurnSlotFilling(t *testing.T) {
	f := newFixture()
	o, sessions := newTestOrchestrator(f)
	ctx := context.Background()

	// Turn 1: fecha provided, hora missing.
	first := o.ProcessTurn(ctx, "reservar_mesa", map[string]string{"fecha": "2024-01-15"}, "", "es")

	assert.Equal(t, 0.5, first.Confidence)
	assert.Equal(t, "¿A qué hora?", first.Text)
	assert.Equal(t, "esperando_hora", first.SessionState)
	assert.Regexp(t, regexp.MustCompile(`^session-[a-zA-Z0-9]{8}$`), first.SessionID)
	assert.Equal(t, "2024-01-15", first.Parameters["fecha"])
	assert.Empty(t, f.recorded, "prompting turns are not recorded")

	view, ok := sessions.Get(first.SessionID)
	require.True(t, ok)
	assert.Equal(t, "esperando_hora", view.State)

	// Turn 2: hora arrives on the same session.
	second := o.ProcessTurn(ctx, "reservar_mesa", map[string]string{"hora": "19:00"}, first.SessionID, "es")

	assert.Equal(t, 1.0, second.Confidence)
	assert.Equal(t, "Mesa reservada.", second.Text)
	assert.Equal(t, "2024-01-15", second.Parameters["fecha"], "earlier turns' parameters are kept")
	assert.Equal(t, "19:00", second.Parameters["hora"])

	_, ok = sessions.Get(first.SessionID)
	assert.False(t, ok, "completed session is deleted")
	require.Len(t, f.recorded, 1)
}

func TestProcessTurnSingleTurnCompletion(t *testing.T) {
	f := newFixture()
	o, sessions := newTestOrchestrator(f)

	reply := o.ProcessTurn(context.Background(), "reservar_mesa",
		map[string]string{"fecha": "2024-01-15", "hora": "19:00"}, "caller-1", "es")

	assert.Equal(t, 1.0, reply.Confidence)
	assert.Equal(t, "Mesa reservada.", reply.Text)
	_, ok := sessions.Get("caller-1")
	assert.False(t, ok)
}

func TestProcessTurnNormalizesParameters(t *testing.T) {
	f := newFixture()
	o, _ := newTestOrchestrator(f)

	reply := o.ProcessTurn(context.Background(), "reservar_mesa", map[string]string{"fecha": "mañana"}, "", "es")

	assert.Equal(t, "2024-01-16", reply.Parameters["fecha"], "synonyms resolve to the canonical value")
	assert.Equal(t, "esperando_hora", reply.SessionState)
}

func TestProcessTurnSkipsEmptyParameterValues(t *testing.T) {
	f := newFixture()
	o, _ := newTestOrchestrator(f)

	reply := o.ProcessTurn(context.Background(), "reservar_mesa", map[string]string{"fecha": ""}, "", "es")

	assert.Equal(t, "esperando_fecha", reply.SessionState, "empty values do not fill slots")
	assert.Equal(t, "¿Para qué fecha?", reply.Text)
}

func TestProcessTurnGeneratedPromptWhenUnconfigured(t *testing.T) {
	f := newFixture()
	f.required[2][1].Prompt = ""
	o, _ := newTestOrchestrator(f)

	reply := o.ProcessTurn(context.Background(), "reservar_mesa", map[string]string{"fecha": "2024-01-15"}, "", "es")

	assert.Equal(t, "Por favor proporciona hora", reply.Text)
}

func TestProcessTurnCollaboratorFailure(t *testing.T) {
	f := newFixture()
	f.responsesErr = errors.New("db down")
	o, _ := newTestOrchestrator(f)

	reply := o.ProcessTurn(context.Background(), "saludo", map[string]string{}, "", "es")

	assert.Equal(t, "Error interno del servidor", reply.Text)
	assert.Equal(t, "saludo", reply.Intent, "original intent name is preserved")
	assert.Equal(t, 0.3, reply.Confidence)
}

func TestProcessTurnValidateFailure(t *testing.T) {
	f := newFixture()
	f.validateErr = errors.New("db down")
	o, sessions := newTestOrchestrator(f)

	reply := o.ProcessTurn(context.Background(), "saludo", map[string]string{}, "", "es")

	assert.Equal(t, "Error interno del servidor", reply.Text)
	assert.Zero(t, sessions.Stats().Total)
}

func TestProcessTurnNoResponseFound(t *testing.T) {
	f := newFixture()
	f.responses[1] = nil
	o, _ := newTestOrchestrator(f)

	reply := o.ProcessTurn(context.Background(), "saludo", map[string]string{}, "", "es")

	assert.Equal(t, "unknown", reply.Intent)
	assert.Equal(t, "No se encontró respuesta específica", reply.Text)
	assert.Equal(t, 0.3, reply.Confidence)
}

type staticResponder struct{ text string }

func (s staticResponder) Reply(context.Context, string) (string, error) { return s.text, nil }

func TestProcessTurnFallbackResponder(t *testing.T) {
	f := newFixture()
	f.responses[1] = nil
	o, _ := newTestOrchestrator(f)
	o.WithFallbackResponder(staticResponder{text: "¿Te puedo ayudar con algo más?"})

	reply := o.ProcessTurn(context.Background(), "saludo", map[string]string{}, "", "es")

	assert.Equal(t, "¿Te puedo ayudar con algo más?", reply.Text)
	assert.Equal(t, "saludo", reply.Intent)
	require.Len(t, f.recorded, 1, "the generated fallback is still recorded")
}

func TestProcessTurnDefaultLanguage(t *testing.T) {
	f := newFixture()
	o, _ := newTestOrchestrator(f)

	reply := o.ProcessTurn(context.Background(), "saludo", map[string]string{}, "", "")

	assert.Equal(t, "¡Hola!", reply.Text, "empty language code falls back to es")
}

func TestProcessTurnConfiguredDefaultLanguage(t *testing.T) {
	f := newFixture()
	f.responses[1] = []catalog.CandidateResponse{
		{ID: 11, IntentID: 1, Text: "Hello!", LanguageCode: "en"},
	}
	o, _ := newTestOrchestrator(f)
	o.WithDefaultLanguage("en")

	reply := o.ProcessTurn(context.Background(), "saludo", map[string]string{}, "", "")

	assert.Equal(t, "Hello!", reply.Text, "configured default language drives response lookup")
	assert.Equal(t, 1.0, reply.Confidence)
}

// stalledSessions refuses every state advance, the shape a session takes
// when it expires between the touches of a single turn.
type stalledSessions struct{ *store.Memory }

func (s stalledSessions) UpdateState(string, string, map[string]string) bool { return false }

func TestProcessTurnFailedSessionAdvanceStillPrompts(t *testing.T) {
	f := newFixture()
	var buf bytes.Buffer
	sessions := stalledSessions{store.NewMemory(0, zerolog.Nop())}
	o := NewOrchestrator(f, f, f, f, sessions, zerolog.New(&buf))

	reply := o.ProcessTurn(context.Background(), "reservar_mesa", map[string]string{"fecha": "2024-01-15"}, "", "es")

	assert.Equal(t, 0.5, reply.Confidence)
	assert.Equal(t, "¿A qué hora?", reply.Text)
	assert.Contains(t, buf.String(), "session could not be advanced")
}

func TestNewSessionIDFormat(t *testing.T) {
	pattern := regexp.MustCompile(`^session-[a-zA-Z0-9]{8}$`)
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		id := NewSessionID()
		assert.Regexp(t, pattern, id)
		seen[id] = true
	}
	assert.Greater(t, len(seen), 1, "ids should not collide constantly")
}
