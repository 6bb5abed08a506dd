package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"casino-webhook-backend/internal/db"
)

// Postgres serves the intent, entity, response and history tables from
// the relational catalog. It implements IntentCatalog, EntityVocabulary,
// ResponseCatalog and HistorySink.
type Postgres struct {
	db  *db.DB
	log zerolog.Logger
}

func NewPostgres(database *db.DB, logger zerolog.Logger) *Postgres {
	return &Postgres{db: database, log: logger.With().Str("component", "catalog").Logger()}
}

func (p *Postgres) ValidateIntent(ctx context.Context, name string) (ValidationResult, error) {
	var result ValidationResult
	err := p.db.QueryRowContext(ctx, `
		SELECT intencion_id, nombre
		FROM intenciones
		WHERE nombre = $1 AND estado_activo = TRUE
	`, name).Scan(&result.IntentID, &result.IntentName)

	if err == sql.ErrNoRows {
		p.log.Warn().Str("intent", name).Msg("intent not found or inactive")
		return ValidationResult{Valid: false, Message: "Intención no reconocida"}, nil
	}
	if err != nil {
		return ValidationResult{}, fmt.Errorf("failed to validate intent: %w", err)
	}

	result.Valid = true
	return result, nil
}

func (p *Postgres) RequiredEntities(ctx context.Context, intentID int64) ([]RequiredEntity, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT e.nombre, ie.requerida, COALESCE(ie.prompt, '')
		FROM intencion_entidad ie
		JOIN entidades e ON ie.entidad_id = e.entidad_id
		WHERE ie.intencion_id = $1 AND ie.requerida = TRUE
		ORDER BY ie.id
	`, intentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query required entities: %w", err)
	}
	defer rows.Close()

	var entities []RequiredEntity
	for rows.Next() {
		var e RequiredEntity
		if err := rows.Scan(&e.EntityName, &e.Required, &e.Prompt); err != nil {
			return nil, fmt.Errorf("failed to scan required entity: %w", err)
		}
		entities = append(entities, e)
	}
	return entities, rows.Err()
}

// Normalize resolves a raw value to its canonical form using the
// entity's values and synonyms, case-insensitively. Lookup misses and
// database failures both pass the input through unchanged.
func (p *Postgres) Normalize(ctx context.Context, value, entityName string) (string, error) {
	var canonical string
	err := p.db.QueryRowContext(ctx, `
		SELECT ve.valor_canonico
		FROM valores_entidad ve
		LEFT JOIN sinonimos_entidad se
			ON ve.entidad_id = se.entidad_id AND ve.valor_canonico = se.valor_canonico
		WHERE ve.entidad_id = (SELECT entidad_id FROM entidades WHERE nombre = $1)
			AND (LOWER(ve.valor_canonico) = LOWER($2) OR LOWER(se.sinonimo) = LOWER($2))
		ORDER BY ve.valor_id
		LIMIT 1
	`, entityName, value).Scan(&canonical)

	if err == sql.ErrNoRows {
		return value, nil
	}
	if err != nil {
		p.log.Error().Err(err).Str("entity", entityName).Msg("normalization lookup failed, passing value through")
		return value, nil
	}
	return canonical, nil
}

func (p *Postgres) FindResponses(ctx context.Context, intentID int64, languageCode string) ([]CandidateResponse, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT respuesta_id, intencion_id, respuesta_texto, idioma, condicion
		FROM respuestas
		WHERE intencion_id = $1 AND idioma = $2
		ORDER BY respuesta_id ASC
	`, intentID, languageCode)
	if err != nil {
		return nil, fmt.Errorf("failed to query responses: %w", err)
	}
	defer rows.Close()

	var responses []CandidateResponse
	for rows.Next() {
		var r CandidateResponse
		var condition sql.NullString
		if err := rows.Scan(&r.ID, &r.IntentID, &r.Text, &r.LanguageCode, &condition); err != nil {
			return nil, fmt.Errorf("failed to scan response: %w", err)
		}
		if condition.Valid && condition.String != "" {
			if err := json.Unmarshal([]byte(condition.String), &r.Condition); err != nil {
				// A malformed condition demotes the row to a default response.
				p.log.Error().Err(err).Int64("response_id", r.ID).Msg("invalid condition JSON, treating as default")
				r.Condition = nil
			}
		}
		responses = append(responses, r)
	}
	return responses, rows.Err()
}

func (p *Postgres) IntentIDByName(ctx context.Context, name string) (int64, bool, error) {
	var id int64
	err := p.db.QueryRowContext(ctx, `
		SELECT intencion_id FROM intenciones WHERE nombre = $1 AND estado_activo = TRUE
	`, name).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to look up intent: %w", err)
	}
	return id, true, nil
}

func (p *Postgres) Record(ctx context.Context, intent string, parameters map[string]string, responseText string) error {
	if responseText == "" {
		responseText = "No response"
	}
	params, err := json.Marshal(parameters)
	if err != nil {
		return fmt.Errorf("failed to encode parameters: %w", err)
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO historial_interacciones
			(intencion_detectada, entidades_detectadas, respuesta_devuelta, fecha)
		VALUES ($1, $2, $3, NOW())
	`, intent, string(params), responseText)
	if err != nil {
		return fmt.Errorf("failed to save interaction: %w", err)
	}
	return nil
}

func (p *Postgres) Recent(ctx context.Context, limit int) ([]Interaction, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT historial_id, intencion_detectada, entidades_detectadas, respuesta_devuelta, fecha
		FROM historial_interacciones
		ORDER BY fecha DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var history []Interaction
	for rows.Next() {
		var in Interaction
		var params string
		if err := rows.Scan(&in.ID, &in.Intent, &params, &in.Response, &in.Date); err != nil {
			return nil, fmt.Errorf("failed to scan interaction: %w", err)
		}
		if params != "" {
			if err := json.Unmarshal([]byte(params), &in.Parameters); err != nil {
				in.Parameters = map[string]string{}
			}
		}
		history = append(history, in)
	}
	return history, rows.Err()
}
