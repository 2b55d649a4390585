package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heirloom/models"
	"heirloom/pkg/auth"
	svc "heirloom/pkg/services"
	"heirloom/pkg/testutil"
)

func TestParseQueries(t *testing.T) {
	qs, err := parseQueries([]byte(`["  how do we deploy? ", "", {"q": "who owns billing"}, {"x": 1}, 3]`))
	require.NoError(t, err)
	assert.Equal(t, []string{"how do we deploy?", "who owns billing"}, qs)

	_, err = parseQueries([]byte(`[]`))
	assert.Error(t, err)
	_, err = parseQueries([]byte(`{"q": "not a list"}`))
	assert.Error(t, err)
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestReadRecords(t *testing.T) {
	jsonPath := writeFile(t, "records.json", `[{"title":"Deploys","content":"Use the pipeline.","tags":["ops"],"priority":3}]`)
	recs, err := readRecords(jsonPath)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Deploys", recs[0].Title)
	require.NotNil(t, recs[0].Priority)
	assert.Equal(t, 3, *recs[0].Priority)

	yamlPath := writeFile(t, "records.yaml", "- title: On-call\n  content: Page the secondary after 15 minutes.\n  source: kaggle\n  tags: [ops, oncall]\n")
	recs, err = readRecords(yamlPath)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "kaggle", recs[0].Source)
	assert.Equal(t, []string{"ops", "oncall"}, recs[0].Tags)
	assert.Nil(t, recs[0].Priority)

	_, err = readRecords(writeFile(t, "records.csv", "title,content\n"))
	assert.Error(t, err)
	_, err = readRecords(writeFile(t, "empty.json", "[]"))
	assert.Error(t, err)
}

func TestSeedAccountsIsIdempotent(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()

	n, err := seedAccounts(ctx, db, "password123")
	require.NoError(t, err)
	assert.Equal(t, len(demoAccounts), n)

	n, err = seedAccounts(ctx, db, "password123")
	require.NoError(t, err)
	assert.Zero(t, n)

	var users []models.User
	require.NoError(t, db.Order("id").Find(&users).Error)
	require.Len(t, users, len(demoAccounts))
	roles := map[auth.Role]bool{}
	for _, u := range users {
		roles[u.Role] = true
		assert.True(t, u.CheckPassword("password123"))
	}
	for _, r := range auth.Roles {
		assert.True(t, roles[r], "missing demo account for %s", r)
	}
}

func TestProbeSummarizesRun(t *testing.T) {
	var seen []string
	s := probe(context.Background(), svc.NewMockProvider(), []string{"one", "two"}, auth.RoleEmployee, "", 0,
		func(r probeResult) { seen = append(seen, r.Query) })

	assert.Equal(t, []string{"one", "two"}, seen)
	assert.Equal(t, 2, s.TotalQueries)
	assert.Equal(t, svc.MockModelName, s.Provider)
	assert.Zero(t, s.Fallbacks)
	for _, r := range s.Results {
		assert.NotEmpty(t, r.Response)
		assert.Equal(t, svc.MockModelName, r.Model)
	}
}

func TestProbeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := probe(ctx, svc.NewMockProvider(), []string{"one"}, auth.RoleAdmin, "", 0, nil)
	assert.Zero(t, s.TotalQueries)
	assert.Empty(t, s.Results)
}
