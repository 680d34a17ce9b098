package seed

import (
	"context"
	"errors"
	"testing"

	"api-tester-mcp/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	rows    map[string]map[string]any
	err     error
	queried []string
}

func (f *fakeSource) SampleRow(_ context.Context, table string) (map[string]any, error) {
	f.queried = append(f.queried, table)
	return f.rows[table], f.err
}

func TestTableCandidates(t *testing.T) {
	tests := []struct {
		path string
		want []string
	}{
		{"/api/users/{userId}", []string{"users", "user"}},
		{"/categories", []string{"categories", "category"}},
		{"/order-item", []string{"order_item", "order_items"}},
		{"/company", []string{"company", "companies"}},
		{"/boxes/{id}", []string{"boxes", "box"}},
		{"/{id}", nil},
		{"/", nil},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, tableCandidates(tt.path))
		})
	}
}

func TestSuggestExamples(t *testing.T) {
	src := &fakeSource{rows: map[string]map[string]any{
		"user": {"user_id": int64(42), "First_Name": "Ada", "email": "ada@example.com", "api_key": "secret", "deleted_at": nil},
	}}
	s := NewSampler(src, nil)

	ep := types.Endpoint{
		Method:       "PUT",
		Path:         "/users/{userId}",
		AuthRequired: true,
		Security:     []types.SecurityScheme{{Kind: types.SecurityAPIKey, In: "header", ParamName: "api_key"}},
		Parameters: []types.Parameter{
			{Name: "userId", In: types.LocationPath, Required: true},
			{Name: "api_key", In: types.LocationHeader},
			{Name: "deleted-at", In: types.LocationQuery},
		},
		RequestBody: &types.RequestBody{Schema: &types.Schema{
			Type: "object",
			Properties: map[string]*types.Schema{
				"firstName": {Type: "string"},
				"email":     {Type: "string", Example: "declared@example.com"},
			},
		}},
	}

	got, err := s.SuggestExamples(context.Background(), ep)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"path.userId":    int64(42),
		"body.firstName": "Ada",
	}, got)
	assert.Equal(t, []string{"users", "user"}, src.queried)
}

func TestSuggestExamplesNoTable(t *testing.T) {
	s := NewSampler(&fakeSource{}, nil)
	got, err := s.SuggestExamples(context.Background(), types.Endpoint{Method: "GET", Path: "/widgets"})
	require.NoError(t, err)
	assert.Nil(t, got)

	s = NewSampler(&fakeSource{err: errors.New("connection reset")}, nil)
	_, err = s.SuggestExamples(context.Background(), types.Endpoint{Method: "GET", Path: "/widgets"})
	assert.Error(t, err)
}

func TestSampleQuery(t *testing.T) {
	q, err := sampleQuery("postgres", "users")
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "users" LIMIT 1`, q)

	q, err = sampleQuery("mysql", "users")
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM `users` LIMIT 1", q)

	q, err = sampleQuery("sqlserver", "users")
	require.NoError(t, err)
	assert.Equal(t, "SELECT TOP 1 * FROM [users]", q)

	_, err = sampleQuery("postgres", "users; DROP TABLE x")
	assert.Error(t, err)
	_, err = sampleQuery("oracle", "users")
	assert.Error(t, err)
}

func TestDSN(t *testing.T) {
	cfg := DBConfig{Host: "db", Port: 5432, Database: "app", User: "u", Password: "p"}

	cfg.Type = "postgres"
	dsn, err := cfg.DSN()
	require.NoError(t, err)
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=app sslmode=disable", dsn)

	cfg.Type = "mysql"
	cfg.Port = 3306
	dsn, err = cfg.DSN()
	require.NoError(t, err)
	assert.Equal(t, "u:p@tcp(db:3306)/app", dsn)

	cfg.Type = "sqlserver"
	cfg.Port = 1433
	dsn, err = cfg.DSN()
	require.NoError(t, err)
	assert.Equal(t, "sqlserver://u:p@db:1433?database=app", dsn)

	cfg.Type = "sqlite"
	_, err = cfg.DSN()
	assert.Error(t, err)
}

func TestOpenUnsupported(t *testing.T) {
	_, err := Open(context.Background(), DBConfig{Type: "sqlite"}, nil)
	assert.Error(t, err)
}
