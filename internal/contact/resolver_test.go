package contact_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/floodwatch/floodwatch/internal/contact"
	"github.com/floodwatch/floodwatch/internal/fault"
	"github.com/floodwatch/floodwatch/internal/geo"
)

// mockRepository fails the configured levels and delegates the rest.
type mockRepository struct {
	mu      sync.Mutex
	inner   contact.Repository
	failing map[contact.Level]bool
	queries []contact.Filter
}

func (m *mockRepository) List(ctx context.Context, f contact.Filter) ([]contact.Contact, error) {
	m.mu.Lock()
	m.queries = append(m.queries, f)
	fail := m.failing[f.Level]
	m.mu.Unlock()
	if fail {
		return nil, errors.New("connection reset")
	}
	return m.inner.List(ctx, f)
}

func (m *mockRepository) Upsert(ctx context.Context, c *contact.Contact) error {
	return m.inner.Upsert(ctx, c)
}

func newResolver(repo contact.Repository) *contact.Resolver {
	return contact.NewResolver(contact.ResolverConfig{Repository: repo, Logger: zerolog.Nop()})
}

func phones(contacts []contact.Contact) []string {
	out := make([]string, 0, len(contacts))
	for _, c := range contacts {
		out = append(out, c.Phone)
	}
	return out
}

func assertUniquePhones(t *testing.T, contacts []contact.Contact) {
	t.Helper()
	seen := make(map[string]bool)
	for _, c := range contacts {
		key := contact.NormalizePhone(c.Phone)
		assert.False(t, seen[key], "duplicate phone %s", c.Phone)
		seen[key] = true
	}
}

var kolkata = geo.Region{State: "West Bengal", District: "Kolkata", Country: "India"}

func TestResolve_LayeredOrder(t *testing.T) {
	repo := contact.NewSeededRepository()
	require.NoError(t, repo.Upsert(context.Background(), &contact.Contact{
		ID: "kmc-control", Name: "KMC Control Room", Phone: "033 2286 1212", Department: "Municipal",
		Level: contact.LevelDistrict, State: "West Bengal", District: "Kolkata", Priority: 1, IsActive: true,
	}))

	res := newResolver(repo).Resolve(context.Background(), kolkata)

	require.NoError(t, res.Err)
	assert.False(t, res.Floor)
	assert.Equal(t, []string{"033 2286 1212", "1070", "033-2214-5555", "112", "100", "101", "108", "1078"}, phones(res.Contacts))
	assertUniquePhones(t, res.Contacts)
}

func TestResolve_RegionalNumberTakesPrecedence(t *testing.T) {
	repo := contact.NewSeededRepository()
	require.NoError(t, repo.Upsert(context.Background(), &contact.Contact{
		ID: "wb-112", Name: "West Bengal ERSS", Phone: "1-1-2", Department: "Emergency",
		Level: contact.LevelState, State: "West Bengal", Priority: 0, IsActive: true,
	}))

	res := newResolver(repo).Resolve(context.Background(), kolkata)

	assertUniquePhones(t, res.Contacts)
	require.NotEmpty(t, res.Contacts)
	assert.Equal(t, "wb-112", res.Contacts[0].ID)
	for _, c := range res.Contacts {
		assert.NotEqual(t, "national-112", c.ID)
	}
}

func TestResolve_UnknownStateGetsNationalOnly(t *testing.T) {
	repo := &mockRepository{inner: contact.NewSeededRepository()}
	res := newResolver(repo).Resolve(context.Background(), geo.Region{State: geo.UnknownState, District: geo.UnknownDistrict})

	assert.Equal(t, []string{"112", "100", "101", "108", "1078"}, phones(res.Contacts))
	require.Len(t, repo.queries, 1)
	assert.Equal(t, contact.LevelNational, repo.queries[0].Level)
}

func TestResolve_StateWithoutDirectoryEntry(t *testing.T) {
	res := newResolver(contact.NewSeededRepository()).Resolve(context.Background(), geo.Region{State: "Rajasthan", District: "Jaipur"})
	assert.Equal(t, []string{"112", "100", "101", "108", "1078"}, phones(res.Contacts))
}

func TestResolve_PartialFailureKeepsOtherLayers(t *testing.T) {
	repo := &mockRepository{
		inner:   contact.NewSeededRepository(),
		failing: map[contact.Level]bool{contact.LevelDistrict: true},
	}

	res := newResolver(repo).Resolve(context.Background(), kolkata)

	assert.ErrorIs(t, res.Err, fault.ErrUnavailable)
	assert.False(t, res.Floor)
	assert.Equal(t, []string{"1070", "033-2214-5555", "112", "100", "101", "108", "1078"}, phones(res.Contacts))
}

func TestResolve_NationalFailureUsesFloor(t *testing.T) {
	repo := &mockRepository{
		inner:   contact.NewSeededRepository(),
		failing: map[contact.Level]bool{contact.LevelNational: true},
	}

	res := newResolver(repo).Resolve(context.Background(), kolkata)

	assert.True(t, res.Floor)
	assert.Equal(t, []string{"1070", "033-2214-5555", "112", "100", "101", "108"}, phones(res.Contacts))
}

func TestResolve_TotalFailureNeverEmpty(t *testing.T) {
	repo := &mockRepository{
		inner: contact.NewInMemoryRepository(),
		failing: map[contact.Level]bool{
			contact.LevelDistrict: true,
			contact.LevelState:    true,
			contact.LevelNational: true,
		},
	}

	for _, region := range []geo.Region{kolkata, {State: geo.UnknownState}, {State: "Bihar", District: "Patna"}} {
		res := newResolver(repo).Resolve(context.Background(), region)
		assert.True(t, res.Floor)
		assert.Error(t, res.Err)
		assert.Equal(t, []string{"112", "100", "101", "108"}, phones(res.Contacts))
	}

	res := newResolver(nil).Resolve(context.Background(), kolkata)
	assert.Equal(t, []string{"112", "100", "101", "108"}, phones(res.Contacts))
}

func TestMerge_NormalizesPhones(t *testing.T) {
	merged := contact.Merge(
		[]contact.Contact{{ID: "a", Phone: "0172-270-8080"}, {ID: "b", Phone: ""}},
		[]contact.Contact{{ID: "c", Phone: "0172 270 8080"}, {ID: "d", Phone: "1078"}},
	)
	assert.Equal(t, []string{"0172-270-8080", "1078"}, phones(merged))
}

func TestSeedDirectory_UniqueIDs(t *testing.T) {
	seen := make(map[string]bool)
	for _, c := range contact.SeedDirectory() {
		assert.False(t, seen[c.ID], c.ID)
		seen[c.ID] = true
	}
	assert.Contains(t, seen, "state-west-bengal-flood-control")
	assert.Contains(t, seen, "state-assam-disaster-management")
}

// unorderedRepository returns each layer in reverse priority order.
type unorderedRepository struct {
	layers map[contact.Level][]contact.Contact
}

func (u unorderedRepository) List(_ context.Context, f contact.Filter) ([]contact.Contact, error) {
	return u.layers[f.Level], nil
}

func (u unorderedRepository) Upsert(context.Context, *contact.Contact) error { return nil }

func TestResolve_OrdersEachLayerByPriority(t *testing.T) {
	repo := unorderedRepository{layers: map[contact.Level][]contact.Contact{
		contact.LevelDistrict: {
			{ID: "d2", Phone: "033 2222 0002", Level: contact.LevelDistrict, Priority: 2},
			{ID: "d1", Phone: "033 2222 0001", Level: contact.LevelDistrict, Priority: 1},
		},
		contact.LevelState: {
			{ID: "s3", Phone: "033 3333 0003", Level: contact.LevelState, Priority: 3},
			{ID: "s1", Phone: "033 3333 0001", Level: contact.LevelState, Priority: 1},
		},
		contact.LevelNational: {
			{ID: "n2", Phone: "100", Level: contact.LevelNational, Priority: 2},
			{ID: "n1", Phone: "112", Level: contact.LevelNational, Priority: 1},
		},
	}}

	res := newResolver(repo).Resolve(context.Background(), kolkata)

	require.NoError(t, res.Err)
	assert.Equal(t, []string{"033 2222 0001", "033 2222 0002", "033 3333 0001", "033 3333 0003", "112", "100"}, phones(res.Contacts))
	assert.Equal(t, "d2", repo.layers[contact.LevelDistrict][0].ID, "repository data is not reordered in place")
}
