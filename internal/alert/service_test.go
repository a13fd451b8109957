package alert_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/floodwatch/floodwatch/internal/alert"
	"github.com/floodwatch/floodwatch/internal/changefeed"
)

type mockPublisher struct {
	mu      sync.Mutex
	changes []changefeed.Change
}

func (m *mockPublisher) Publish(_ context.Context, c changefeed.Change) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.changes = append(m.changes, c)
	return nil
}

func (m *mockPublisher) published() []changefeed.Change {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]changefeed.Change(nil), m.changes...)
}

func newService() (*alert.Service, *mockPublisher, *clockwork.FakeClock) {
	clock := clockwork.NewFakeClockAt(now)
	pub := &mockPublisher{}
	svc := alert.NewService(alert.ServiceConfig{
		Repository: alert.NewInMemoryRepository(),
		Publisher:  pub,
		Logger:     zerolog.Nop(),
		Clock:      clock,
	})
	return svc, pub, clock
}

func TestService_Create(t *testing.T) {
	svc, pub, _ := newService()
	ctx := context.Background()

	a, err := svc.Create(ctx, alert.CreateInput{
		Title:    "  Evacuation ordered  ",
		Message:  "Move to relief camps in Darbhanga",
		Severity: alert.SeverityCritical,
		State:    "Bihar",
		District: "Darbhanga",
		IssuedBy: "BSDMA",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, a.ID)
	assert.Equal(t, "Evacuation ordered", a.Title)
	assert.Equal(t, alert.CategoryEvacuation, a.Category)
	assert.True(t, a.EvacuationRequired)
	assert.True(t, a.IsActive)
	assert.Equal(t, now, a.CreatedAt)
	assert.Equal(t, []string{}, a.AffectedAreas)

	changes := pub.published()
	require.Len(t, changes, 1)
	assert.Equal(t, changefeed.Change{Table: changefeed.TableAlerts, State: "Bihar", ID: a.ID, At: now}, changes[0])
}

func TestService_Create_ValidationErrors(t *testing.T) {
	svc, pub, _ := newService()
	past := now.Add(-time.Hour)

	tests := []struct {
		name  string
		input alert.CreateInput
	}{
		{"empty title", alert.CreateInput{Message: "m", Severity: alert.SeverityInfo, State: "Bihar"}},
		{"empty message", alert.CreateInput{Title: "t", Severity: alert.SeverityInfo, State: "Bihar"}},
		{"no state", alert.CreateInput{Title: "t", Message: "m", Severity: alert.SeverityInfo}},
		{"bad severity", alert.CreateInput{Title: "t", Message: "m", Severity: "SEVERE", State: "Bihar"}},
		{"bad category", alert.CreateInput{Title: "t", Message: "m", Severity: alert.SeverityInfo, Category: "FIRE", State: "Bihar"}},
		{"expired", alert.CreateInput{Title: "t", Message: "m", Severity: alert.SeverityInfo, State: "Bihar", ExpiresAt: &past}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.input)
			assert.ErrorIs(t, err, alert.ErrInvalidAlert)
		})
	}
	assert.Empty(t, pub.published())
}

func TestService_DeactivateAndListActive(t *testing.T) {
	svc, pub, clock := newService()
	ctx := context.Background()

	first, err := svc.Create(ctx, alert.CreateInput{Title: "River rising", Message: "Kosi above danger mark", Severity: alert.SeverityDanger, State: "Bihar"})
	require.NoError(t, err)
	clock.Advance(time.Minute)
	second, err := svc.Create(ctx, alert.CreateInput{Title: "Rain", Message: "Heavy rain", Severity: alert.SeverityWarning, State: "Bihar"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, alert.CreateInput{Title: "Rain", Message: "Heavy rain", Severity: alert.SeverityWarning, State: "Assam"})
	require.NoError(t, err)

	active, err := svc.ListActive(ctx, "Bihar")
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, first.ID, active[0].ID)

	deactivated, err := svc.Deactivate(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, deactivated.IsActive)

	active, err = svc.ListActive(ctx, "Bihar")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, second.ID, active[0].ID)

	all, err := svc.ListActive(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	assert.Len(t, pub.published(), 4)

	_, err = svc.Deactivate(ctx, "missing")
	assert.ErrorIs(t, err, alert.ErrAlertNotFound)
}

func TestService_ExpiredAlertsAreInactive(t *testing.T) {
	svc, _, clock := newService()
	ctx := context.Background()

	expires := now.Add(30 * time.Minute)
	_, err := svc.Create(ctx, alert.CreateInput{Title: "Cyclone", Message: "Landfall expected", Severity: alert.SeverityCritical, State: "Odisha", ExpiresAt: &expires})
	require.NoError(t, err)

	active, err := svc.ListActive(ctx, "Odisha")
	require.NoError(t, err)
	assert.Len(t, active, 1)

	clock.Advance(time.Hour)
	active, err = svc.ListActive(ctx, "Odisha")
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestParseSeverity(t *testing.T) {
	sev, err := alert.ParseSeverity("danger")
	require.NoError(t, err)
	assert.Equal(t, alert.SeverityDanger, sev)

	_, err = alert.ParseSeverity("extreme")
	assert.ErrorIs(t, err, alert.ErrInvalidAlert)
}
