package freelancers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkhedmin/mkhedmin-api/internal/apperr"
	"github.com/mkhedmin/mkhedmin-api/internal/models"
	"github.com/mkhedmin/mkhedmin-api/internal/services/search"
	"github.com/mkhedmin/mkhedmin-api/internal/store"
	"github.com/mkhedmin/mkhedmin-api/internal/validation"
)

type fakeStore struct {
	mu          sync.Mutex
	rows        map[uuid.UUID]*models.Freelancer
	stats       map[string]int
	appearances []uuid.UUID
	lastPlan    search.Plan
	searchTotal int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: map[uuid.UUID]*models.Freelancer{}, stats: map[string]int{}}
}

func (s *fakeStore) Create(_ context.Context, f *models.Freelancer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows {
		if r.UserID == f.UserID || r.Slug == f.Slug {
			return store.ErrDuplicate
		}
	}
	f.ID = uuid.New()
	f.Completeness = f.ComputeCompleteness()
	cp := *f
	s.rows[f.ID] = &cp
	return nil
}

func (s *fakeStore) Save(_ context.Context, f *models.Freelancer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[f.ID]; !ok {
		return store.ErrNotFound
	}
	f.Completeness = f.ComputeCompleteness()
	cp := *f
	s.rows[f.ID] = &cp
	return nil
}

func (s *fakeStore) FindByID(_ context.Context, id uuid.UUID) (*models.Freelancer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.rows[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, store.ErrNotFound
}

func (s *fakeStore) FindBySlug(_ context.Context, slug string) (*models.Freelancer, error) {
	return s.findBy(func(f *models.Freelancer) bool { return f.Slug == slug })
}

func (s *fakeStore) FindByUserID(_ context.Context, userID uuid.UUID) (*models.Freelancer, error) {
	return s.findBy(func(f *models.Freelancer) bool { return f.UserID == userID })
}

func (s *fakeStore) findBy(match func(*models.Freelancer) bool) (*models.Freelancer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows {
		if match(r) {
			cp := *r
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *fakeStore) SlugTaken(_ context.Context, slug string, except uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows {
		if r.Slug == slug && r.ID != except {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) IncrementStat(_ context.Context, id uuid.UUID, stat string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats[stat]++
	return nil
}

func (s *fakeStore) IncrementSearchAppearances(_ context.Context, ids []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appearances = append(s.appearances, ids...)
	return nil
}

func (s *fakeStore) Search(_ context.Context, plan search.Plan) ([]models.Freelancer, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastPlan = plan
	var out []models.Freelancer
	for _, r := range s.rows {
		if r.IsPublic() {
			out = append(out, *r)
		}
	}
	return out, s.searchTotal, nil
}

func (s *fakeStore) Featured(_ context.Context, limit int) ([]models.Freelancer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Freelancer
	for _, r := range s.rows {
		if len(out) == limit {
			break
		}
		out = append(out, *r)
	}
	return out, nil
}

func (s *fakeStore) PlatformStats(context.Context) (models.PlatformStats, error) {
	return models.PlatformStats{TotalFreelancers: int64(len(s.rows))}, nil
}

func newService() (*Service, *fakeStore) {
	st := newFakeStore()
	return NewService(st, slog.New(slog.NewTextHandler(io.Discard, nil))), st
}

func newUser() *models.User {
	return &models.User{ID: uuid.New(), Role: models.RoleFreelancer, IsActive: true}
}

func profileInput(name string) validation.FreelancerInput {
	return validation.FreelancerInput{
		Name:     name,
		Title:    "Développeur Go",
		Category: "development",
		Stacks:   []string{"go", "postgres"},
		Location: validation.LocationInput{City: "Casablanca", Region: "Casablanca-Settat"},
	}
}

func requireCode(t *testing.T, err error, status int, code string) {
	t.Helper()
	ae, ok := apperr.As(err)
	require.True(t, ok, "expected *apperr.Error, got %v", err)
	assert.Equal(t, status, ae.Status)
	assert.Equal(t, code, ae.Code)
}

func TestCreate(t *testing.T) {
	svc, _ := newService()
	owner := newUser()

	f, err := svc.Create(context.Background(), owner, profileInput("Yassine Alaoui"))
	require.NoError(t, err)
	assert.Equal(t, "yassine-alaoui", f.Slug)
	assert.Equal(t, owner.ID, f.UserID)
	assert.Equal(t, models.VisibilityPublic, f.Visibility)
	assert.Equal(t, models.RateNegotiable, f.Rate.Type)
	assert.Equal(t, "MAD", f.Rate.Currency)

	_, err = svc.Create(context.Background(), owner, profileInput("Another Name"))
	requireCode(t, err, http.StatusConflict, "PROFILE_EXISTS")
}

func TestCreate_SameNameGetsDistinctSlugs(t *testing.T) {
	svc, _ := newService()

	a, err := svc.Create(context.Background(), newUser(), profileInput("Salma Bennani"))
	require.NoError(t, err)
	b, err := svc.Create(context.Background(), newUser(), profileInput("Salma Bennani"))
	require.NoError(t, err)
	c, err := svc.Create(context.Background(), newUser(), profileInput("Salma Bennani"))
	require.NoError(t, err)

	assert.Equal(t, "salma-bennani", a.Slug)
	assert.Equal(t, "salma-bennani-1", b.Slug)
	assert.Equal(t, "salma-bennani-2", c.Slug)
}

func TestUpdate(t *testing.T) {
	svc, _ := newService()
	owner := newUser()
	f, err := svc.Create(context.Background(), owner, profileInput("Omar Tazi"))
	require.NoError(t, err)

	t.Run("not owner", func(t *testing.T) {
		_, err := svc.Update(context.Background(), newUser(), f.ID, profileInput("Omar Tazi"))
		requireCode(t, err, http.StatusForbidden, "NOT_OWNER")
	})

	t.Run("missing", func(t *testing.T) {
		_, err := svc.Update(context.Background(), owner, uuid.New(), profileInput("Omar Tazi"))
		requireCode(t, err, http.StatusNotFound, "FREELANCER_NOT_FOUND")
	})

	t.Run("rename regenerates slug", func(t *testing.T) {
		up, err := svc.Update(context.Background(), owner, f.ID, profileInput("Omar El Fassi"))
		require.NoError(t, err)
		assert.Equal(t, "omar-el-fassi", up.Slug)
	})

	t.Run("keeps visibility when omitted", func(t *testing.T) {
		_, err := svc.SetVisibility(context.Background(), owner, f.ID, validation.VisibilityInput{Visibility: "hidden"})
		require.NoError(t, err)
		up, err := svc.Update(context.Background(), owner, f.ID, profileInput("Omar El Fassi"))
		require.NoError(t, err)
		assert.Equal(t, models.VisibilityHidden, up.Visibility)
		assert.Equal(t, "omar-el-fassi", up.Slug)
	})
}

func TestGet_VisibilityAndViews(t *testing.T) {
	svc, st := newService()
	owner := newUser()
	in := profileInput("Hajar Idrissi")
	in.Visibility = "pending"
	f, err := svc.Create(context.Background(), owner, in)
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), f.Slug, nil)
	requireCode(t, err, http.StatusNotFound, "FREELANCER_NOT_FOUND")

	got, err := svc.Get(context.Background(), f.ID.String(), owner)
	require.NoError(t, err)
	assert.Equal(t, f.ID, got.ID)
	assert.Zero(t, st.stats[models.StatProfileViews])

	admin := &models.User{ID: uuid.New(), Role: models.RoleAdmin}
	_, err = svc.Get(context.Background(), f.Slug, admin)
	require.NoError(t, err)
	assert.Equal(t, 1, st.stats[models.StatProfileViews])

	_, err = svc.SetVisibility(context.Background(), owner, f.ID, validation.VisibilityInput{Visibility: "public"})
	require.NoError(t, err)
	_, err = svc.Get(context.Background(), f.Slug, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, st.stats[models.StatProfileViews])
}

func TestPortfolioLifecycle(t *testing.T) {
	svc, st := newService()
	owner := newUser()
	f, err := svc.Create(context.Background(), owner, profileInput("Reda Chraibi"))
	require.NoError(t, err)

	item, err := svc.AddPortfolioItem(context.Background(), owner, f.ID, validation.PortfolioInput{Title: "Marketplace"})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, item.ID)
	assert.True(t, item.IsPublic)

	hidden := false
	updated, err := svc.UpdatePortfolioItem(context.Background(), owner, f.ID, item.ID, validation.PortfolioInput{Title: "Marketplace v2", IsPublic: &hidden})
	require.NoError(t, err)
	assert.Equal(t, item.ID, updated.ID)
	assert.Equal(t, "Marketplace v2", updated.Title)

	_, err = svc.GetPortfolioItem(context.Background(), f.ID, item.ID)
	requireCode(t, err, http.StatusNotFound, "PORTFOLIO_ITEM_NOT_FOUND")

	_, err = svc.UpdatePortfolioItem(context.Background(), owner, f.ID, uuid.New(), validation.PortfolioInput{Title: "Ghost"})
	requireCode(t, err, http.StatusNotFound, "PORTFOLIO_ITEM_NOT_FOUND")

	shown := true
	_, err = svc.UpdatePortfolioItem(context.Background(), owner, f.ID, item.ID, validation.PortfolioInput{Title: "Marketplace v2", IsPublic: &shown})
	require.NoError(t, err)
	got, err := svc.GetPortfolioItem(context.Background(), f.ID, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Marketplace v2", got.Title)
	assert.Equal(t, 1, st.stats[models.StatPortfolioViews])

	require.NoError(t, svc.RemovePortfolioItem(context.Background(), owner, f.ID, item.ID))
	err = svc.RemovePortfolioItem(context.Background(), owner, f.ID, item.ID)
	requireCode(t, err, http.StatusNotFound, "PORTFOLIO_ITEM_NOT_FOUND")

	stored, _ := st.FindByID(context.Background(), f.ID)
	assert.Empty(t, stored.Portfolio)
}

func TestAddTestimonial_Unverified(t *testing.T) {
	svc, st := newService()
	f, err := svc.Create(context.Background(), newUser(), profileInput("Imane Berrada"))
	require.NoError(t, err)

	tm, err := svc.AddTestimonial(context.Background(), f.ID, validation.TestimonialInput{
		ClientName: "Atlas Corp",
		Rating:     5,
		Comment:    "Excellent travail, livré à temps.",
	})
	require.NoError(t, err)
	assert.False(t, tm.IsVerified)

	stored, _ := st.FindByID(context.Background(), f.ID)
	require.Len(t, stored.Testimonials, 1)
	assert.Empty(t, stored.Detail().Testimonials)
	assert.Equal(t, 0.0, stored.AverageRating())
}

func TestSetFlags(t *testing.T) {
	svc, _ := newService()
	f, err := svc.Create(context.Background(), newUser(), profileInput("Anas Kettani"))
	require.NoError(t, err)

	yes := true
	up, err := svc.SetFlags(context.Background(), f.ID, validation.FlagsInput{IsPremium: &yes})
	require.NoError(t, err)
	assert.True(t, up.IsPremium)
	assert.False(t, up.IsVerified)
}

func TestSearch(t *testing.T) {
	svc, st := newService()
	st.searchTotal = 25
	pub, err := svc.Create(context.Background(), newUser(), profileInput("Public One"))
	require.NoError(t, err)
	in := profileInput("Hidden One")
	in.Visibility = "hidden"
	_, err = svc.Create(context.Background(), newUser(), in)
	require.NoError(t, err)

	res, err := svc.Search(context.Background(), validation.SearchInput{Stacks: []string{"go,react"}, Page: 2})
	require.NoError(t, err)

	require.Len(t, res.Freelancers, 1)
	assert.Equal(t, pub.ID, res.Freelancers[0].ID)
	assert.Equal(t, []uuid.UUID{pub.ID}, st.appearances)
	assert.Equal(t, 12, st.lastPlan.Limit)
	assert.Equal(t, 12, st.lastPlan.Offset)
	assert.Equal(t, 3, res.Pagination.TotalPages)
	assert.True(t, res.Pagination.HasNext)
	assert.True(t, res.Pagination.HasPrev)
	assert.Equal(t, []string{"go", "react"}, res.Filters.Stacks)
}

func TestSearch_RejectsOversizedLimit(t *testing.T) {
	svc, _ := newService()
	_, err := svc.Search(context.Background(), validation.SearchInput{Limit: 51})
	requireCode(t, err, http.StatusBadRequest, "VALIDATION_ERROR")
}

func TestFeatured_ClampsLimit(t *testing.T) {
	svc, _ := newService()
	for i := 0; i < 15; i++ {
		_, err := svc.Create(context.Background(), newUser(), profileInput("Featured Person"))
		require.NoError(t, err)
	}

	out, err := svc.Featured(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, out, defaultFeatured)

	out, err = svc.Featured(context.Background(), 100)
	require.NoError(t, err)
	assert.Len(t, out, maxFeatured)
}
