package routes_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	appgraphql "github.com/usgears/storefront/app/graphql"
	"github.com/usgears/storefront/app/jobs"
	"github.com/usgears/storefront/app/listeners"
	"github.com/usgears/storefront/app/models"
	"github.com/usgears/storefront/app/repositories/memory"
	"github.com/usgears/storefront/app/routes"
	"github.com/usgears/storefront/app/services"
	"github.com/usgears/storefront/pkg/app"
	"github.com/usgears/storefront/pkg/auth"
	"github.com/usgears/storefront/pkg/event"
	"github.com/usgears/storefront/pkg/mail"
	"github.com/usgears/storefront/pkg/queue"
	"github.com/usgears/storefront/pkg/router"
	"github.com/usgears/storefront/pkg/storage"
	"github.com/usgears/storefront/pkg/testkit"
	"github.com/usgears/storefront/pkg/workerpool"
)

const (
	adminEmail    = "owner@usgears.test"
	adminPassword = "s3cret-pass"
)

var (
	helmetID = oid("64b7f0c2e4b0a1a2b3c4d5e6")
	glovesID = oid("64b7f0c2e4b0a1a2b3c4d5e7")

	// A few bytes that sniff as image/png.
	pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), bytes.Repeat([]byte{0}, 64)...)
)

func oid(hex string) primitive.ObjectID {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		panic(err)
	}
	return id
}

type env struct {
	handler http.Handler
	users   *memory.Users
}

// newEnv wires the full API over in-memory repositories, seeded with two
// products and three orders.
func newEnv(t *testing.T) *env {
	t.Helper()
	event.Flush()
	t.Cleanup(event.Flush)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	now := time.Now().UTC()
	products := memory.NewProducts(
		models.Product{
			ID: helmetID, Name: "Helmet", Category: "helmets", Price: 150, Stock: 5, InStock: true,
			Description: "Full face", Specifications: []string{"DOT"}, AdditionalImages: []string{},
			CreatedAt: now.Add(-time.Hour), UpdatedAt: now.Add(-time.Hour),
		},
		models.Product{
			ID: glovesID, Name: "Gloves", Category: "gloves", Price: 35.5, Stock: 0, InStock: false,
			Description: "Mesh", Specifications: []string{}, AdditionalImages: []string{},
			CreatedAt: now.Add(-2 * time.Hour), UpdatedAt: now.Add(-2 * time.Hour),
		},
	)

	orders := memory.NewOrders()
	asha := models.Billing{FirstName: "Asha", LastName: "Rai", Email: "asha@example.com", Phone: "9800000001", City: "Kathmandu"}
	orders.Put(models.Order{
		ID:             oid("64b7f0c2e4b0a1a2b3c4d601"),
		Billing:        asha,
		CartItems:      []models.CartItem{{ID: helmetID.Hex(), Name: "Helmet", Price: 150, Quantity: 1}},
		Subtotal:       150,
		ShippingCost:   119.99,
		Total:          269.99,
		ShippingMethod: "inside",
		Status:         models.StatusUnverified,
		CreatedAt:      now.Add(-48 * time.Hour),
	})
	upper := asha
	upper.Email = "ASHA@example.com"
	orders.Put(models.Order{
		ID:             oid("64b7f0c2e4b0a1a2b3c4d602"),
		Billing:        upper,
		CartItems:      []models.CartItem{{ID: glovesID.Hex(), Name: "Gloves", Price: 35.5, Quantity: 1}},
		Subtotal:       35.5,
		ShippingCost:   119.99,
		Total:          155.49,
		ShippingMethod: "inside",
		Status:         models.StatusUnverified,
		CreatedAt:      now.Add(-24 * time.Hour),
	})
	orders.Put(models.Order{
		ID:             oid("64b7f0c2e4b0a1a2b3c4d603"),
		Billing:        models.Billing{FirstName: "Bikash", LastName: "Thapa", Email: "bikash@example.com", Phone: "9800000002", City: "Lalitpur"},
		CartItems:      []models.CartItem{{ID: helmetID.Hex(), Name: "Helmet", Price: 150, Quantity: 1}},
		Subtotal:       150,
		ShippingCost:   119.99,
		Total:          269.99,
		ShippingMethod: "inside",
		Status:         models.StatusConfirmed,
		TrackingID:     "USG-20240101-SEEDED01",
		CreatedAt:      now.Add(-time.Hour),
	})

	pool := workerpool.New(2)
	t.Cleanup(pool.Shutdown)

	q := queue.NewManager(queue.NewMemoryDriver())
	jobs.Register(q, orders)
	q.StartWorkers(ctx, 1)
	confirmations := jobs.Confirmations{Queue: q}
	listeners.Register(listeners.Deps{Confirmations: confirmations})

	files := services.NewFileService(memory.NewFiles(), storage.NewLocal(t.TempDir(), ""))
	catalog := services.NewCatalogService(products, files, pool)
	users := memory.NewUsers()
	authSvc := services.NewAuthService(users)
	_, _, err := authSvc.EnsureUser(ctx, adminEmail, "Owner", adminPassword, auth.RoleAdmin)
	require.NoError(t, err)

	schema, err := appgraphql.CatalogSchema(catalog)
	require.NoError(t, err)

	svcs := routes.Services{
		Catalog:   catalog,
		Cart:      services.NewCartService(products),
		Orders:    services.NewOrderService(orders, products, confirmations, catalog),
		Contacts:  services.NewContactService(&memory.Contacts{}),
		Files:     files,
		Auth:      authSvc,
		Dashboard: services.NewDashboardService(orders, products),
		Schema:    &schema,
	}
	h := app.New().Routes(func(r *router.Router) { routes.RegisterAPI(r, svcs) }).Handler()
	return &env{handler: h, users: users}
}

func (e *env) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func bearer(t *testing.T, id auth.Identity) string {
	t.Helper()
	token, err := auth.GenerateToken(id)
	require.NoError(t, err)
	return "Bearer " + token
}

// TestScenarios runs each testdata file against a freshly seeded API, so
// scenarios within a file share state and files do not.
func TestScenarios(t *testing.T) {
	paths, err := filepath.Glob("testdata/*.json")
	require.NoError(t, err)
	for _, p := range paths {
		if strings.HasSuffix(p, "_req.json") || strings.HasSuffix(p, "_res.json") {
			continue
		}
		t.Run(strings.TrimSuffix(filepath.Base(p), ".json"), func(t *testing.T) {
			testkit.Run(t, newEnv(t).handler, p)
		})
	}
}

func TestLoginThenMe(t *testing.T) {
	e := newEnv(t)

	body := `{"email":"OWNER@usgears.test","password":"` + adminPassword + `"}`
	rec := e.do(httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	pair := decode[services.TokenPair](t, rec)
	assert.Equal(t, "Bearer", pair.TokenType)
	require.NotEmpty(t, pair.AccessToken)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	rec = e.do(req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), adminEmail)
	assert.NotContains(t, rec.Body.String(), "password")

	// A refresh token is not accepted as an access token, and vice versa.
	req = httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+pair.RefreshToken)
	assert.Equal(t, http.StatusUnauthorized, e.do(req).Code)

	rec = e.do(httptest.NewRequest(http.MethodPost, "/api/auth/refresh",
		strings.NewReader(`{"refresh_token":"`+pair.AccessToken+`"}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = e.do(httptest.NewRequest(http.MethodPost, "/api/auth/refresh",
		strings.NewReader(`{"refresh_token":"`+pair.RefreshToken+`"}`)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, decode[services.TokenPair](t, rec).AccessToken)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	e := newEnv(t)

	for _, body := range []string{
		`{"email":"owner@usgears.test","password":"wrong"}`,
		`{"email":"nobody@usgears.test","password":"` + adminPassword + `"}`,
	} {
		rec := e.do(httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body)))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "Invalid credentials")
	}

	rec := e.do(httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"not-an-email"}`)))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestAdminRoutesNeedTheAdminRole(t *testing.T) {
	e := newEnv(t)
	customer := bearer(t, auth.Identity{UserID: primitive.NewObjectID().Hex(), Email: "c@example.com", Role: auth.RoleUser})

	for _, rt := range []struct{ method, path string }{
		{http.MethodGet, "/api/order"},
		{http.MethodPatch, "/api/order?orderId=64b7f0c2e4b0a1a2b3c4d601"},
		{http.MethodPost, "/api/product"},
		{http.MethodDelete, "/api/upload?fileId=64b7f0c2e4b0a1a2b3c4d601"},
		{http.MethodGet, "/api/admin/stats"},
	} {
		req := httptest.NewRequest(rt.method, rt.path, strings.NewReader(`{}`))
		assert.Equal(t, http.StatusUnauthorized, e.do(req).Code, "%s %s without token", rt.method, rt.path)

		req = httptest.NewRequest(rt.method, rt.path, strings.NewReader(`{}`))
		req.Header.Set("Authorization", customer)
		assert.Equal(t, http.StatusForbidden, e.do(req).Code, "%s %s as customer", rt.method, rt.path)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/order", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, e.do(req).Code)
}

func TestCheckoutToConfirmation(t *testing.T) {
	e := newEnv(t)
	admin := bearer(t, testkit.AdminIdentity)
	outbox := &mail.Recorder{}
	t.Cleanup(mail.SetTransport(outbox))

	place := `{
		"billing": {"firstName": "Nima", "lastName": "Sherpa", "email": "nima@example.com", "phone": "9800000003"},
		"cartItems": [{"id": "` + helmetID.Hex() + `", "name": "Helmet", "price": 1, "quantity": 2}],
		"deliveryMethod": "outside"
	}`
	rec := e.do(httptest.NewRequest(http.MethodPost, "/api/order", strings.NewReader(place)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	orderID := decode[map[string]any](t, rec)["orderId"].(string)

	rec = e.do(httptest.NewRequest(http.MethodGet, "/api/order/info?id="+orderID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	info := decode[models.OrderInfo](t, rec)
	assert.Equal(t, "outside", info.ShippingMethod)
	assert.Equal(t, models.StatusUnverified, info.Status)

	patch := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPatch, "/api/order?orderId="+orderID, strings.NewReader(body))
		req.Header.Set("Authorization", admin)
		return e.do(req)
	}

	require.Equal(t, http.StatusOK, patch(`{"status":"verified"}`).Code)
	assert.Empty(t, outbox.Sent())

	require.Equal(t, http.StatusOK, patch(`{"status":"confirmed"}`).Code)
	require.Eventually(t, func() bool { return len(outbox.Sent()) == 1 }, 2*time.Second, 10*time.Millisecond)
	msg := outbox.Sent()[0]
	assert.Equal(t, []string{"nima@example.com"}, msg.Recipients())

	rec = e.do(httptest.NewRequest(http.MethodGet, "/api/order/info?id="+orderID, nil))
	info = decode[models.OrderInfo](t, rec)
	assert.Equal(t, models.StatusConfirmed, info.Status)
	assert.Regexp(t, `^USG-\d{8}-[A-Z0-9]{8}$`, info.TrackingID)
	assert.Contains(t, msg.HTMLBody(), info.TrackingID)

	// Going back is refused.
	assert.Equal(t, http.StatusConflict, patch(`{"status":"verified"}`).Code)

	// The tracking id alone may still change.
	require.Equal(t, http.StatusOK, patch(`{"trackingId":"TRK-2002"}`).Code)
	rec = e.do(httptest.NewRequest(http.MethodGet, "/api/order/info?id="+orderID, nil))
	assert.Equal(t, "TRK-2002", decode[models.OrderInfo](t, rec).TrackingID)

	rec = e.do(httptest.NewRequest(http.MethodGet, "/api/product/"+helmetID.Hex(), nil))
	assert.Equal(t, 3, decode[models.Product](t, rec).Stock)
}

func TestResendConfirmationUsesBillingContact(t *testing.T) {
	e := newEnv(t)
	outbox := &mail.Recorder{}
	t.Cleanup(mail.SetTransport(outbox))

	req := httptest.NewRequest(http.MethodPost, "/api/order/confirm", strings.NewReader(`{
		"orderId": "64b7f0c2e4b0a1a2b3c4d603",
		"email": "someone-else@example.com",
		"name": "Hey",
		"trackingId": "T1"
	}`))
	req.Header.Set("Authorization", bearer(t, testkit.AdminIdentity))
	rec := e.do(req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	require.Eventually(t, func() bool { return len(outbox.Sent()) == 1 }, 2*time.Second, 10*time.Millisecond)
	msg := outbox.Sent()[0]
	assert.Equal(t, []string{"bikash@example.com"}, msg.Recipients())
	assert.True(t, strings.HasPrefix(msg.TextBody(), "Dear Bikash Thapa,"), msg.TextBody())
	assert.Contains(t, msg.TextBody(), "Tracking ID: T1")
}

type part struct {
	field, name string
	data        []byte
}

func multipartRequest(t *testing.T, target string, fields map[string]string, parts ...part) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, p := range parts {
		fw, err := w.CreateFormFile(p.field, p.name)
		require.NoError(t, err)
		_, err = fw.Write(p.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestMediaUploadServeAndDelete(t *testing.T) {
	e := newEnv(t)
	admin := bearer(t, testkit.AdminIdentity)

	req := multipartRequest(t, "/api/upload", map[string]string{"category": "helmets"},
		part{"file", "front.png", pngBytes})
	req.Header.Set("Authorization", admin)
	rec := e.do(req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	up := decode[services.UploadResult](t, rec)
	require.NotEmpty(t, up.FileID)
	assert.Equal(t, "/api/file/"+up.FileID, up.URL)
	assert.True(t, strings.HasPrefix(up.Path, "/media/photo/helmets/"), up.Path)
	assert.Equal(t, testkit.AdminIdentity.Email, up.Uploader)

	rec = e.do(httptest.NewRequest(http.MethodGet, up.URL, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, `inline; filename="front.png"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, pngBytes, rec.Body.Bytes())

	del := httptest.NewRequest(http.MethodDelete, "/api/upload?fileId="+up.FileID, nil)
	del.Header.Set("Authorization", admin)
	rec = e.do(del)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "front.png", decode[map[string]any](t, rec)["originalFilename"])

	rec = e.do(httptest.NewRequest(http.MethodGet, up.URL, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "File not found in database")

	del = httptest.NewRequest(http.MethodDelete, "/api/upload?fileId=bogus", nil)
	del.Header.Set("Authorization", admin)
	rec = e.do(del)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid file ID format")
}

func TestMediaUploadReportsRejectedFiles(t *testing.T) {
	e := newEnv(t)
	admin := bearer(t, testkit.AdminIdentity)

	req := multipartRequest(t, "/api/upload", nil,
		part{"files", "a.png", pngBytes},
		part{"files", "notes.txt", []byte("plain text")})
	req.Header.Set("Authorization", admin)
	rec := e.do(req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	results := decode[[]services.UploadResult](t, rec)
	require.Len(t, results, 2)
	assert.NotEmpty(t, results[0].FileID)
	assert.Empty(t, results[1].FileID)
	assert.Contains(t, results[1].Error, "Invalid file type")

	req = multipartRequest(t, "/api/upload", nil, part{"files", "notes.txt", []byte("plain text")})
	req.Header.Set("Authorization", admin)
	rec = e.do(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "No valid files uploaded")

	req = multipartRequest(t, "/api/upload", map[string]string{"category": "x"})
	req.Header.Set("Authorization", admin)
	rec = e.do(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "No file uploaded")
}

func TestPaymentProofUpload(t *testing.T) {
	e := newEnv(t)
	orderData := `{"billing":{"email":"nima@example.com"}}`

	rec := e.do(multipartRequest(t, "/api/public-upload", map[string]string{"orderData": orderData},
		part{"files", "receipt.png", pngBytes}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[services.ProofResult](t, rec)
	assert.True(t, res.Success)
	require.Len(t, res.IDs, 1)
	require.Len(t, res.Files, 1)
	assert.True(t, strings.HasPrefix(res.Files[0], "/payment/general/"), res.Files[0])

	for _, ref := range []string{res.IDs[0], res.Entries[0].Filename} {
		rec = e.do(httptest.NewRequest(http.MethodGet, "/api/file/"+ref, nil))
		require.Equal(t, http.StatusOK, rec.Code, ref)
		body, _ := io.ReadAll(rec.Body)
		assert.Equal(t, pngBytes, body)
	}

	// One bad file rejects the whole batch.
	rec = e.do(multipartRequest(t, "/api/public-upload", map[string]string{"orderData": orderData},
		part{"files", "receipt.png", pngBytes},
		part{"files", "receipt.txt", []byte("not an image")}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(multipartRequest(t, "/api/public-upload", nil, part{"files", "receipt.png", pngBytes}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Missing files or order data")

	rec = e.do(httptest.NewRequest(http.MethodPost, "/api/public-upload", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
