package catalog

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casino-webhook-backend/internal/db"
)

func newMockCatalog(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return NewPostgres(&db.DB{DB: sqlDB}, zerolog.Nop()), mock
}

func TestPostgresValidateIntent(t *testing.T) {
	p, mock := newMockCatalog(t)
	mock.ExpectQuery("FROM intenciones").
		WithArgs("saludo").
		WillReturnRows(sqlmock.NewRows([]string{"intencion_id", "nombre"}).AddRow(int64(1), "saludo"))

	result, err := p.ValidateIntent(context.Background(), "saludo")
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, int64(1), result.IntentID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresValidateIntentUnknown(t *testing.T) {
	p, mock := newMockCatalog(t)
	mock.ExpectQuery("FROM intenciones").
		WithArgs("no_existe").
		WillReturnError(sql.ErrNoRows)

	result, err := p.ValidateIntent(context.Background(), "no_existe")
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, "Intención no reconocida", result.Message)
}

func TestPostgresNormalizeOrdersByCatalog(t *testing.T) {
	p, mock := newMockCatalog(t)
	// The lookup must be ordered so ties always resolve the same way.
	mock.ExpectQuery(`SELECT ve.valor_canonico[\s\S]+ORDER BY ve.valor_id`).
		WithArgs("ciudad", "la capital").
		WillReturnRows(sqlmock.NewRows([]string{"valor_canonico"}).AddRow("Lima"))

	got, err := p.Normalize(context.Background(), "la capital", "ciudad")
	require.NoError(t, err)
	assert.Equal(t, "Lima", got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresNormalizeMissPassesThrough(t *testing.T) {
	p, mock := newMockCatalog(t)
	mock.ExpectQuery("SELECT ve.valor_canonico").
		WithArgs("ciudad", "Cusco").
		WillReturnError(sql.ErrNoRows)

	got, err := p.Normalize(context.Background(), "Cusco", "ciudad")
	require.NoError(t, err)
	assert.Equal(t, "Cusco", got)
}

func TestPostgresFindResponsesDecodesConditions(t *testing.T) {
	p, mock := newMockCatalog(t)
	rows := sqlmock.NewRows([]string{"respuesta_id", "intencion_id", "respuesta_texto", "idioma", "condicion"}).
		AddRow(int64(1), int64(3), "Estamos en Lima.", "es", `{"ciudad":"Lima"}`).
		AddRow(int64(2), int64(3), "Consulta nuestras sedes.", "es", nil).
		AddRow(int64(3), int64(3), "Variante rota.", "es", "{not json")
	mock.ExpectQuery("FROM respuestas").
		WithArgs(int64(3), "es").
		WillReturnRows(rows)

	candidates, err := p.FindResponses(context.Background(), 3, "es")
	require.NoError(t, err)
	require.Len(t, candidates, 3)
	assert.Equal(t, map[string]string{"ciudad": "Lima"}, candidates[0].Condition)
	assert.False(t, candidates[1].HasCondition())
	assert.False(t, candidates[2].HasCondition(), "malformed condition is demoted to a default")
}

func TestPostgresRecordSubstitutesEmptyResponse(t *testing.T) {
	p, mock := newMockCatalog(t)
	mock.ExpectExec("INSERT INTO historial_interacciones").
		WithArgs("saludo", "{}", "No response").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := p.Record(context.Background(), "saludo", map[string]string{}, "")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
