package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/monocle-dev/workspace/internal/apitest"
	"github.com/monocle-dev/workspace/internal/billing"
	"github.com/monocle-dev/workspace/internal/models"
	"github.com/monocle-dev/workspace/internal/projects"
	"github.com/monocle-dev/workspace/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*Client, *apitest.Server) {
	t.Helper()
	srv := apitest.New(t, apitest.Options{AutoRegister: true})
	ts := httptest.NewServer(srv.Engine)
	t.Cleanup(ts.Close)

	c, err := New(ts.URL + "/")
	require.NoError(t, err)
	return c, srv
}

func loggedIn(t *testing.T) (*Client, *Session, *apitest.Server) {
	t.Helper()
	c, srv := newTestClient(t)
	sess := NewSession(c)
	_, err := sess.Login(context.Background(), "jane@example.com", "secret1")
	require.NoError(t, err)
	return c, sess, srv
}

func TestNewRejectsNonHTTP(t *testing.T) {
	_, err := New("ftp://example.com")
	assert.Error(t, err)

	_, err = New("http://localhost:3000")
	assert.NoError(t, err)
}

func TestSessionLifecycle(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()
	sess := NewSession(c)

	require.NoError(t, sess.Init(ctx))
	assert.False(t, sess.Authenticated())
	assert.Equal(t, "/login", sess.Guard("/projects"))
	assert.Equal(t, "", sess.Guard("/login"))

	user, err := sess.Login(ctx, "Jane@Example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", user.Email)
	assert.True(t, sess.Authenticated())
	assert.Equal(t, "/projects", sess.Guard("/login"))
	assert.Equal(t, "", sess.Guard("/settings/billing"))

	// A fresh session over the same cookie jar restores the login.
	restored := NewSession(c)
	require.NoError(t, restored.Init(ctx))
	got, ok := restored.User()
	require.True(t, ok)
	assert.Equal(t, user, got)

	require.NoError(t, sess.Teardown(ctx))
	assert.False(t, sess.Authenticated())

	_, err = c.Me(ctx)
	assert.True(t, IsUnauthorized(err))
}

func TestLoginFailureLeavesSessionEmpty(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	_, err := c.Register(ctx, "Jane", "jane@example.com", "secret1")
	require.NoError(t, err)
	require.NoError(t, c.Logout(ctx))

	sess := NewSession(c)
	_, err = sess.Login(ctx, "jane@example.com", "wrong-password")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Invalid email or password", apiErr.UserMessage())
	assert.False(t, sess.Authenticated())
}

func TestProjects(t *testing.T) {
	c, _, _ := loggedIn(t)
	ctx := context.Background()

	list, err := c.ListProjects(ctx, types.ProjectQuery{Status: "Paused"})
	require.NoError(t, err)
	assert.Len(t, list.Data, 4)
	assert.Equal(t, 4, list.Pagination.Total)

	list, err = c.ListProjects(ctx, types.ProjectQuery{Search: "website", Status: types.StatusFilterAll})
	require.NoError(t, err)
	require.Len(t, list.Data, 1)
	assert.Equal(t, "Website Redesign", list.Data[0].Name)

	detail, err := c.GetProject(ctx, "1")
	require.NoError(t, err)
	assert.Len(t, detail.Members, 2)

	_, err = c.GetProject(ctx, "404")
	assert.ErrorIs(t, err, types.ErrNotFound)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Project not found", apiErr.UserMessage())

	status := models.StatusArchived
	updated, err := c.UpdateProject(ctx, "1", models.ProjectPatch{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, models.StatusArchived, updated.Project.Status)
}

func TestBillingRoundTrip(t *testing.T) {
	c, _, _ := loggedIn(t)
	ctx := context.Background()

	records, err := c.GetBilling(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)

	w := billing.NewWizard()
	for field, value := range map[string]string{
		billing.FieldCompanyName: "Acme",
		billing.FieldEmail:       "billing@acme.test",
		billing.FieldPhone:       "5550100",
	} {
		_, err := w.SetField(field, value)
		require.NoError(t, err)
	}
	require.True(t, w.Next())
	for field, value := range map[string]string{
		billing.FieldCountry:    "Canada",
		billing.FieldCity:       "Toronto",
		billing.FieldAddress:    "1 King Street",
		billing.FieldPostalCode: "12345",
	} {
		_, err := w.SetField(field, value)
		require.NoError(t, err)
	}
	require.True(t, w.Next())
	for field, value := range map[string]string{
		billing.FieldCardNumber: "4242424242424242",
		billing.FieldCardHolder: "jane cooper",
		billing.FieldExpiryDate: "1230",
		billing.FieldCVV:        "123",
	} {
		_, err := w.SetField(field, value)
		require.NoError(t, err)
	}
	pm, err := w.AddPaymentMethod()
	require.NoError(t, err)

	require.NoError(t, w.Submit(ctx, c.BillingSaver()))
	assert.True(t, w.Submitted())

	records, err = c.GetBilling(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Len(t, records[0].PaymentMethods, 1)
	assert.Equal(t, "4242 4242 4242 4242", records[0].PaymentMethods[0].CardNumber)
	assert.Equal(t, "JANE COOPER", records[0].PaymentMethods[0].CardHolder)
	assert.True(t, records[0].PaymentMethods[0].IsDefault)

	err = c.RemovePaymentMethod(ctx, "missing")
	assert.ErrorIs(t, err, types.ErrNotFound)

	require.NoError(t, c.RemovePaymentMethod(ctx, pm.ID))
	records, err = c.GetBilling(ctx)
	require.NoError(t, err)
	assert.Empty(t, records[0].PaymentMethods)
}

func TestBillingSubmitFailureSurfacesServerMessage(t *testing.T) {
	c, _ := newTestClient(t)

	w := billing.NewWizard(billing.WithData(models.BillingData{
		CompanyProfile: models.CompanyProfile{CompanyName: "Acme", Email: "billing@acme.test", Phone: "555 0100"},
		BillingAddress: models.BillingAddress{Country: "Canada", City: "Toronto", Address: "1 King Street", PostalCode: "12345"},
	}))
	require.True(t, w.Next())
	require.True(t, w.Next())

	// Not logged in, so the server answers 401.
	err := w.Submit(context.Background(), c.BillingSaver())
	assert.ErrorIs(t, err, types.ErrUnauthorized)
	assert.False(t, w.Submitted())
	assert.Equal(t, "Authorization token is required", w.SubmitMessage())
	assert.Equal(t, "Acme", w.Data().CompanyProfile.CompanyName)
}

func TestDecodeBillingAcceptsObject(t *testing.T) {
	one, err := json.Marshal(models.BillingRecord{ID: "r1"})
	require.NoError(t, err)

	records, err := decodeBilling(one)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "r1", records[0].ID)

	records, err = decodeBilling(json.RawMessage("null"))
	require.NoError(t, err)
	assert.Empty(t, records)

	_, err = decodeBilling(json.RawMessage(`"nope"`))
	assert.Error(t, err)
}

func TestAPIErrorIs(t *testing.T) {
	assert.True(t, errors.Is(&APIError{Status: 404}, types.ErrNotFound))
	assert.False(t, errors.Is(&APIError{Status: 500}, types.ErrNotFound))
	assert.True(t, errors.Is(&APIError{Status: 401}, types.ErrUnauthorized))
	assert.Equal(t, "Internal Server Error", (&APIError{Status: 500}).UserMessage())
}

func TestWatchProject(t *testing.T) {
	c, _, srv := loggedIn(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := c.WatchProject(ctx, "1")
	require.NoError(t, err)

	select {
	case ev := <-events:
		assert.Equal(t, types.EventConnected, ev.Type)
	case <-time.After(5 * time.Second):
		t.Fatal("no connected event")
	}
	require.Equal(t, 1, srv.Hub.Subscribers("1"))

	status := models.StatusPaused
	_, err = c.UpdateProject(ctx, "1", models.ProjectPatch{Status: &status})
	require.NoError(t, err)

	select {
	case ev := <-events:
		assert.Equal(t, types.EventRefresh, ev.Type)
		assert.Equal(t, "1", ev.ProjectID)
	case <-time.After(5 * time.Second):
		t.Fatal("no refresh event")
	}

	cancel()
	for range events {
	}
}

func TestWatchUnknownProject(t *testing.T) {
	c, _, _ := loggedIn(t)

	_, err := c.WatchProject(context.Background(), "404")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestControllersOverHTTP(t *testing.T) {
	c, _, _ := loggedIn(t)

	list := projects.NewListController(c, projects.WithSearchDelay(10*time.Millisecond))
	defer list.Close()

	list.Start()
	list.Wait()
	state := list.State()
	require.NoError(t, state.Err)
	assert.Len(t, state.Projects, 10)
	assert.True(t, state.CanNext())

	list.SetStatus(string(models.StatusArchived))
	list.Wait()
	assert.Len(t, list.State().Projects, 4)

	detail := projects.NewDetailController(c, "3")
	defer detail.Close()

	detail.Load()
	detail.Wait()
	require.NotNil(t, detail.State().Project)

	require.NoError(t, detail.ChangeStatus(models.StatusActive))
	detail.Wait()
	ds := detail.State()
	require.NoError(t, ds.UpdateErr)
	assert.Equal(t, models.StatusActive, ds.Project.Status)
}
