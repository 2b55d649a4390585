package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heirloom/models"
	"heirloom/pkg/apperror"
	"heirloom/pkg/auth"
	"heirloom/pkg/testutil"
)

func boolPtr(b bool) *bool { return &b }

func TestLegacyVisibility(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewLegacyService(db, &stubProvider{}, testutil.Logger())
	ctx := context.Background()

	senior := testutil.Principal(testutil.CreateUser(t, db, "senior@example.com", auth.RoleSeniorDev))
	other := testutil.Principal(testutil.CreateUser(t, db, "other@example.com", auth.RoleSeniorDev))
	emp := testutil.Principal(testutil.CreateUser(t, db, "emp@example.com", auth.RoleEmployee))
	admin := testutil.Principal(testutil.CreateUser(t, db, "admin@example.com", auth.RoleAdmin))

	public, err := svc.Create(ctx, senior, LegacyInput{Title: "Ship small", Content: "Small diffs review faster."})
	require.NoError(t, err)
	assert.True(t, public.IsPublic)
	assert.Equal(t, models.DefaultLegacyCategory, public.Category)
	require.NotNil(t, public.SeniorDev)
	assert.Equal(t, "senior", public.SeniorDev.Name)

	private, err := svc.Create(ctx, senior, LegacyInput{Title: "Notes", Content: "draft", IsPublic: boolPtr(false)})
	require.NoError(t, err)
	special, err := svc.Create(ctx, other, LegacyInput{Title: "Farewell", Content: "Bye all", Category: "farewell", IsSpecial: boolPtr(true)})
	require.NoError(t, err)

	list, err := svc.List(ctx, emp, "")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, special.ID, list[0].ID)
	assert.Equal(t, public.ID, list[1].ID)

	list, err = svc.List(ctx, senior, "")
	require.NoError(t, err)
	assert.Len(t, list, 2)
	for _, m := range list {
		assert.Equal(t, senior.UserID, m.SeniorDevID)
	}

	list, err = svc.List(ctx, admin, "")
	require.NoError(t, err)
	assert.Len(t, list, 3)

	list, err = svc.List(ctx, admin, "farewell")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = svc.Get(ctx, emp, private.ID)
	assert.True(t, apperror.Is(err, apperror.KindForbidden))
	_, err = svc.Get(ctx, other, public.ID)
	assert.True(t, apperror.Is(err, apperror.KindForbidden))
	_, err = svc.Get(ctx, admin, private.ID)
	assert.NoError(t, err)
	_, err = svc.Get(ctx, emp, 9999)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestLegacyWritePermissions(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewLegacyService(db, &stubProvider{}, testutil.Logger())
	ctx := context.Background()

	senior := testutil.Principal(testutil.CreateUser(t, db, "senior@example.com", auth.RoleSeniorDev))
	other := testutil.Principal(testutil.CreateUser(t, db, "other@example.com", auth.RoleSeniorDev))
	emp := testutil.Principal(testutil.CreateUser(t, db, "emp@example.com", auth.RoleEmployee))
	admin := testutil.Principal(testutil.CreateUser(t, db, "admin@example.com", auth.RoleAdmin))

	_, err := svc.Create(ctx, emp, LegacyInput{Title: "x", Content: "y"})
	assert.True(t, apperror.Is(err, apperror.KindForbidden))
	_, err = svc.Create(ctx, senior, LegacyInput{Title: " ", Content: "y"})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	m, err := svc.Create(ctx, senior, LegacyInput{Title: "Oncall", Content: "Write runbooks."})
	require.NoError(t, err)

	_, err = svc.Update(ctx, other, m.ID, LegacyInput{Title: "Mine now"})
	assert.True(t, apperror.Is(err, apperror.KindForbidden))

	updated, err := svc.Update(ctx, senior, m.ID, LegacyInput{Content: "Write and test runbooks.", IsPublic: boolPtr(false)})
	require.NoError(t, err)
	assert.Equal(t, "Oncall", updated.Title)
	assert.Equal(t, "Write and test runbooks.", updated.Content)
	assert.False(t, updated.IsPublic)

	assert.True(t, apperror.Is(svc.Delete(ctx, other, m.ID), apperror.KindForbidden))
	require.NoError(t, svc.Delete(ctx, admin, m.ID))
	assert.True(t, apperror.Is(svc.Delete(ctx, admin, m.ID), apperror.KindNotFound))
}

func TestLegacyDraftWithAI(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewLegacyService(db, &stubProvider{}, testutil.Logger())
	senior := testutil.Principal(testutil.CreateUser(t, db, "senior@example.com", auth.RoleSeniorDev))

	m, err := svc.Create(context.Background(), senior, LegacyInput{
		Title: "Incidents", GenerateWithAI: true, AIPrompt: "blameless postmortems",
	})
	require.NoError(t, err)
	assert.Equal(t, "drafted: blameless postmortems", m.Content)
}

func TestDailyWisdom(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewLegacyService(db, &stubProvider{}, testutil.Logger())
	ctx := context.Background()
	senior := testutil.Principal(testutil.CreateUser(t, db, "senior@example.com", auth.RoleSeniorDev))
	emp := testutil.Principal(testutil.CreateUser(t, db, "emp@example.com", auth.RoleEmployee))

	_, err := svc.DailyWisdom(ctx, senior)
	assert.True(t, apperror.Is(err, apperror.KindForbidden))

	w, err := svc.DailyWisdom(ctx, emp)
	require.NoError(t, err)
	assert.Equal(t, DefaultWisdom().Title, w.Title)
	assert.Equal(t, "Knowledge Heirloom Team", w.SeniorDev.Name)

	_, err = svc.Create(ctx, senior, LegacyInput{Title: "Tech note", Content: "x", Category: "technical"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, senior, LegacyInput{Title: "Keep going", Content: "You got this", Category: "motivational"})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		w, err = svc.DailyWisdom(ctx, emp)
		require.NoError(t, err)
		assert.Equal(t, "Keep going", w.Title)
	}
}
