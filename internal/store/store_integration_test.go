package store

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/mkhedmin/mkhedmin-api/internal/db"
	"github.com/mkhedmin/mkhedmin-api/internal/models"
	"github.com/mkhedmin/mkhedmin-api/internal/services/search"
	"github.com/mkhedmin/mkhedmin-api/internal/validation"
)

// These tests run the store against a real Postgres. Every row is tagged with a
// per-run city so totals ignore whatever else lives in the database.

func integrationDB(t *testing.T) *gorm.DB {
	t.Helper()
	if os.Getenv("RUN_STORE_INTEGRATION") != "true" {
		t.Skip("set RUN_STORE_INTEGRATION=true and DB_DSN to run store integration tests")
	}
	_ = godotenv.Load("../../.env")
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		t.Fatal("DB_DSN is required")
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	gdb, err := db.NewConnector(dsn, 1, time.Second, time.Second, log).Connect(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(gdb) })
	require.NoError(t, db.Migrate(gdb))
	return gdb
}

type fixture struct {
	t     *testing.T
	gdb   *gorm.DB
	users *Users
	fl    *Freelancers
	leads *Leads
	city  string
	seq   int
}

func newFixture(t *testing.T) *fixture {
	gdb := integrationDB(t)
	fx := &fixture{
		t:     t,
		gdb:   gdb,
		users: NewUsers(gdb),
		fl:    NewFreelancers(gdb),
		leads: NewLeads(gdb),
		city:  fmt.Sprintf("itest-%d", time.Now().UnixNano()),
	}
	t.Cleanup(fx.cleanup)
	return fx
}

func (fx *fixture) cleanup() {
	var ids []uuid.UUID
	fx.gdb.Model(&models.Freelancer{}).Where("location_city = ?", fx.city).Pluck("id", &ids)
	if len(ids) > 0 {
		fx.gdb.Where("freelancer_id IN ?", ids).Delete(&models.Lead{})
		fx.gdb.Where("id IN ?", ids).Delete(&models.Freelancer{})
	}
	fx.gdb.Where("email LIKE ?", "%@"+fx.city+".test").Delete(&models.User{})
}

func (fx *fixture) user() *models.User {
	fx.t.Helper()
	fx.seq++
	u := &models.User{
		Email:       fmt.Sprintf("user%d@%s.test", fx.seq, fx.city),
		Password:    "hash",
		Role:        models.RoleFreelancer,
		IsActive:    true,
		Preferences: models.DefaultPreferences(""),
	}
	require.NoError(fx.t, fx.users.Create(context.Background(), u))
	return u
}

func (fx *fixture) freelancer(vis models.Visibility, mutate func(*models.Freelancer)) *models.Freelancer {
	fx.t.Helper()
	u := fx.user()
	f := &models.Freelancer{
		UserID:     u.ID,
		Slug:       fmt.Sprintf("%s-%d", fx.city, fx.seq),
		Name:       fmt.Sprintf("Freelancer %d", fx.seq),
		Title:      "Développeur web",
		Category:   models.CategoryDevelopment,
		Location:   models.Location{City: fx.city, Region: "Casablanca-Settat"},
		Mode:       models.ModeRemote,
		Rate:       models.Rate{Type: models.RateNegotiable, Currency: "MAD"},
		Visibility: vis,
	}
	if mutate != nil {
		mutate(f)
	}
	require.NoError(fx.t, fx.fl.Create(context.Background(), f))
	return f
}

func (fx *fixture) search(in validation.SearchInput) ([]models.Freelancer, int64) {
	fx.t.Helper()
	in.City = fx.city
	if in.Sort == "" {
		in.Sort = "newest"
	}
	rows, total, err := fx.fl.Search(context.Background(), search.Build(in))
	require.NoError(fx.t, err)
	return rows, total
}

func TestIntegration_SearchVisibilityAndPaging(t *testing.T) {
	fx := newFixture(t)
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 25; i++ {
		at := base.Add(time.Duration(i) * time.Second)
		fx.freelancer(models.VisibilityPublic, func(f *models.Freelancer) { f.CreatedAt = at })
	}
	fx.freelancer(models.VisibilityHidden, nil)
	fx.freelancer(models.VisibilityPending, nil)

	seen := map[uuid.UUID]bool{}
	for page, want := range map[int]int{1: 12, 2: 12, 3: 1} {
		rows, total := fx.search(validation.SearchInput{Page: page, Limit: 12})
		assert.EqualValues(t, 25, total, "page %d", page)
		require.Len(t, rows, want, "page %d", page)
		for _, r := range rows {
			assert.Equal(t, models.VisibilityPublic, r.Visibility)
			assert.False(t, seen[r.ID], "row repeated across pages")
			seen[r.ID] = true
		}
	}
	assert.Len(t, seen, 25)

	first, _ := fx.search(validation.SearchInput{Page: 1, Limit: 12})
	for i := 1; i < len(first); i++ {
		assert.False(t, first[i].CreatedAt.After(first[i-1].CreatedAt), "newest first")
	}
}

func TestIntegration_PendingProfileAppearsOncePublic(t *testing.T) {
	fx := newFixture(t)
	f := fx.freelancer(models.VisibilityPending, nil)

	_, total := fx.search(validation.SearchInput{Page: 1, Limit: 12})
	assert.Zero(t, total)

	f.Visibility = models.VisibilityPublic
	require.NoError(t, fx.fl.Save(context.Background(), f))

	rows, total := fx.search(validation.SearchInput{Page: 1, Limit: 12})
	assert.EqualValues(t, 1, total)
	require.Len(t, rows, 1)
	assert.Equal(t, f.ID, rows[0].ID)
}

func TestIntegration_SearchTermAndStacks(t *testing.T) {
	fx := newFixture(t)
	word := strings.ReplaceAll(fx.city, "-", "")
	goDev := fx.freelancer(models.VisibilityPublic, func(f *models.Freelancer) {
		f.Stacks = datatypes.JSONSlice[string]{"Go", "PostgreSQL"}
		f.Bio = "Backend " + word
	})
	fx.freelancer(models.VisibilityPublic, func(f *models.Freelancer) {
		f.Stacks = datatypes.JSONSlice[string]{"Figma"}
	})

	rows, total := fx.search(validation.SearchInput{Stacks: []string{"Go", "Rust"}, Page: 1, Limit: 12})
	assert.EqualValues(t, 1, total)
	require.Len(t, rows, 1)
	assert.Equal(t, goDev.ID, rows[0].ID)

	rows, total = fx.search(validation.SearchInput{Q: word, Sort: "best", Page: 1, Limit: 12})
	assert.EqualValues(t, 1, total)
	require.Len(t, rows, 1)
	assert.Equal(t, goDev.ID, rows[0].ID)
}

func TestIntegration_SaveKeepsCounters(t *testing.T) {
	fx := newFixture(t)
	f := fx.freelancer(models.VisibilityPublic, nil)
	ctx := context.Background()

	stale, err := fx.fl.FindByID(ctx, f.ID)
	require.NoError(t, err)
	require.NoError(t, fx.fl.IncrementStat(ctx, f.ID, models.StatProfileViews))
	require.NoError(t, fx.fl.IncrementStat(ctx, f.ID, models.StatProfileViews))
	require.NoError(t, fx.fl.IncrementSearchAppearances(ctx, []uuid.UUID{f.ID}))

	stale.Title = "Architecte logiciel"
	require.NoError(t, fx.fl.Save(ctx, stale))

	got, err := fx.fl.FindByID(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, "Architecte logiciel", got.Title)
	assert.EqualValues(t, 2, got.Stats.ProfileViews)
	assert.EqualValues(t, 1, got.Stats.SearchAppearances)

	assert.ErrorIs(t, fx.fl.IncrementStat(ctx, uuid.New(), models.StatProfileViews), ErrNotFound)
}

func (fx *fixture) lead(f *models.Freelancer, mutate func(*models.Lead)) *models.Lead {
	fx.t.Helper()
	l := &models.Lead{
		FreelancerID: f.ID,
		Channel:      models.ChannelForm,
		Name:         "Client",
		Email:        "client@example.com",
		Message:      "Besoin d'un site vitrine",
		Urgency:      models.UrgencyMedium,
		Status:       models.LeadNew,
		Priority:     models.PriorityMedium,
		Source:       models.SourceDirect,
	}
	if mutate != nil {
		mutate(l)
	}
	require.NoError(fx.t, fx.leads.Create(context.Background(), l))
	return l
}

func TestIntegration_AppendNote(t *testing.T) {
	fx := newFixture(t)
	f := fx.freelancer(models.VisibilityPublic, nil)
	l := fx.lead(f, nil)
	ctx := context.Background()
	now := time.Now()

	first, err := models.NewLeadNote("Appelé, rappeler lundi", "owner", now)
	require.NoError(t, err)
	second, err := models.NewLeadNote("Devis envoyé", "owner", now.Add(time.Minute))
	require.NoError(t, err)
	require.NoError(t, fx.leads.AppendNote(ctx, l.ID, f.ID, first))
	require.NoError(t, fx.leads.AppendNote(ctx, l.ID, f.ID, second))

	got, err := fx.leads.FindForFreelancer(ctx, l.ID, f.ID)
	require.NoError(t, err)
	require.Len(t, got.Notes, 2)
	assert.Equal(t, first.ID, got.Notes[0].ID)
	assert.Equal(t, "Devis envoyé", got.Notes[1].Content)

	// Save must not clobber notes appended in between.
	got.Status = models.LeadInProgress
	got.Notes = nil
	require.NoError(t, fx.leads.Save(ctx, got))
	again, err := fx.leads.FindForFreelancer(ctx, l.ID, f.ID)
	require.NoError(t, err)
	assert.Len(t, again.Notes, 2)
	assert.Equal(t, models.LeadInProgress, again.Status)

	assert.ErrorIs(t, fx.leads.AppendNote(ctx, l.ID, uuid.New(), first), ErrNotFound)
}

func TestIntegration_WindowStats(t *testing.T) {
	fx := newFixture(t)
	f := fx.freelancer(models.VisibilityPublic, nil)
	now := time.Now()

	created := now.Add(-3 * time.Hour)
	responded := now.Add(-time.Hour)
	fx.lead(f, func(l *models.Lead) {
		l.CreatedAt = created
		l.Status = models.LeadContacted
		l.IsResponded = true
		l.ResponseTime = &responded
	})
	fx.lead(f, func(l *models.Lead) { l.Status = models.LeadConverted })
	fx.lead(f, nil)
	fx.lead(f, func(l *models.Lead) { l.CreatedAt = now.AddDate(0, 0, -60) })

	out, err := fx.leads.WindowStats(context.Background(), f.ID, now.AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.EqualValues(t, 3, out.Total)
	assert.EqualValues(t, 1, out.Responded)
	assert.EqualValues(t, 1, out.Converted)
	require.NotNil(t, out.AvgResponseHours)
	assert.InDelta(t, 2.0, *out.AvgResponseHours, 0.01)
}

func TestIntegration_SoftDeleteCascades(t *testing.T) {
	fx := newFixture(t)
	f := fx.freelancer(models.VisibilityPublic, nil)
	l := fx.lead(f, nil)
	ctx := context.Background()

	u, err := fx.users.FindByID(ctx, f.UserID)
	require.NoError(t, err)
	originalEmail := u.Email
	require.NoError(t, fx.users.SoftDelete(ctx, u, time.Now()))

	_, err = fx.fl.FindByID(ctx, f.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = fx.leads.FindForFreelancer(ctx, l.ID, f.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := fx.users.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.True(t, strings.HasPrefix(got.Email, "deleted_"))
	assert.True(t, strings.HasSuffix(got.Email, originalEmail))

	_, err = fx.users.FindByEmail(ctx, originalEmail)
	assert.ErrorIs(t, err, ErrNotFound)
}
