package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	handler "github.com/waypoint-labs/waypoint/internal/adapters/http"
	"github.com/waypoint-labs/waypoint/internal/adapters/memory"
	"github.com/waypoint-labs/waypoint/internal/core/domain"
	"github.com/waypoint-labs/waypoint/internal/core/usecases"
)

// ---- Test helpers ----

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps, handler.RouterConfig{RequestTimeout: 5 * time.Second})
	return app
}

// equatorCatalog places stops east of (0,0) at 0.01° steps, about 1112 m each.
func equatorCatalog() []domain.Address {
	return []domain.Address{
		{ID: "c", Name: "Gamma", Latitude: 0, Longitude: 0.03},
		{ID: "a", Name: "Alpha", Latitude: 0, Longitude: 0.01},
		{ID: "e", Name: "Epsilon", Latitude: 0, Longitude: 0.05},
		{ID: "b", Name: "Beta", Latitude: 0, Longitude: 0.02},
		{ID: "d", Name: "Delta", Latitude: 0, Longitude: 0.04},
		{ID: "f", Name: "Foxtrot", Latitude: 0, Longitude: 0.06},
		{ID: "g", Name: "Golf", Latitude: 0, Longitude: 0.07},
	}
}

func makeDeps(addrs []domain.Address, opts ...func(*handler.Dependencies)) *handler.Dependencies {
	addresses := usecases.NewAddressService(memory.NewAddressRepo(addrs), nil, nil)
	d := &handler.Dependencies{
		Addresses:     addresses,
		Routes:        usecases.NewRouteService(addresses, nil, usecases.DefaultRouteOptions()),
		CatalogSource: "file",
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

func readBody(t *testing.T, body io.Reader) []byte {
	t.Helper()
	b, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return b
}

func postJSON(t *testing.T, app *fiber.App, path, body string) (int, []byte, map[string][]string) {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, readBody(t, resp.Body), resp.Header
}

func decodeError(t *testing.T, body []byte) handler.APIError {
	t.Helper()
	var e handler.APIError
	if err := json.Unmarshal(body, &e); err != nil {
		t.Fatalf("decode error body %s: %v", body, err)
	}
	return e
}

// ---- Address handler tests ----

func TestListAddresses_Pagination(t *testing.T) {
	app := setupApp(makeDeps(equatorCatalog()))

	req := httptest.NewRequest("GET", "/v1/addresses?offset=2&limit=2", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Data       []domain.Address   `json:"data"`
		Pagination handler.Pagination `json:"pagination"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if result.Pagination.Total != 7 {
		t.Errorf("expected total 7, got %d", result.Pagination.Total)
	}
	if len(result.Data) != 2 {
		t.Fatalf("expected 2 addresses in page, got %d", len(result.Data))
	}
	// Ordered by name: Alpha, Beta, Delta, Epsilon, ...
	if result.Data[0].Name != "Delta" || result.Data[1].Name != "Epsilon" {
		t.Errorf("unexpected page: %s, %s", result.Data[0].Name, result.Data[1].Name)
	}

	link := resp.Header.Get("Link")
	for _, rel := range []string{`rel="first"`, `rel="prev"`, `rel="next"`, `rel="last"`} {
		if !strings.Contains(link, rel) {
			t.Errorf("expected %s in Link header, got %s", rel, link)
		}
	}
}

func TestListAddresses_BBox(t *testing.T) {
	app := setupApp(makeDeps(equatorCatalog()))

	req := httptest.NewRequest("GET", "/v1/addresses?bbox=-1,0.015,1,0.035", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Data []domain.Address `json:"data"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if len(result.Data) != 2 {
		t.Fatalf("expected 2 addresses in bbox, got %d", len(result.Data))
	}
	if result.Data[0].ID != "b" || result.Data[1].ID != "c" {
		t.Errorf("expected b, c; got %s, %s", result.Data[0].ID, result.Data[1].ID)
	}
}

func TestListAddresses_Near(t *testing.T) {
	app := setupApp(makeDeps(equatorCatalog()))

	req := httptest.NewRequest("GET", "/v1/addresses?near=0,0.03&radius=1500", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Data []domain.Address `json:"data"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	var ids []string
	for _, a := range result.Data {
		ids = append(ids, a.ID)
	}
	// Name order: Beta, Delta, Gamma.
	if strings.Join(ids, ",") != "b,d,c" {
		t.Errorf("expected b,d,c within 1500 m, got %v", ids)
	}

	for _, q := range []string{"near=0&radius=10", "near=0,0&radius=abc", "near=0,0&radius=-1", "near=x,0&radius=10"} {
		req := httptest.NewRequest("GET", "/v1/addresses?"+q, nil)
		resp, _ := app.Test(req, -1)
		if resp.StatusCode != 400 {
			t.Errorf("%s: expected 400, got %d", q, resp.StatusCode)
		}
	}
}

func TestListAddresses_BadBBox(t *testing.T) {
	app := setupApp(makeDeps(equatorCatalog()))

	for _, q := range []string{"1,2,3", "a,b,c,d", "1,1,0,0", "-91,0,0,0"} {
		req := httptest.NewRequest("GET", "/v1/addresses?bbox="+q, nil)
		resp, _ := app.Test(req, -1)
		if resp.StatusCode != 400 {
			t.Errorf("bbox=%s: expected 400, got %d", q, resp.StatusCode)
		}
	}
}

func TestGetAddress(t *testing.T) {
	app := setupApp(makeDeps(equatorCatalog()))

	req := httptest.NewRequest("GET", "/v1/addresses/b", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var a domain.Address
	json.NewDecoder(resp.Body).Decode(&a)
	if a.Name != "Beta" {
		t.Errorf("expected Beta, got %s", a.Name)
	}
}

func TestGetAddress_NotFound(t *testing.T) {
	app := setupApp(makeDeps(equatorCatalog()))

	req := httptest.NewRequest("GET", "/v1/addresses/nope", nil)
	req.Header.Set("X-Request-ID", "req-404")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	e := decodeError(t, readBody(t, resp.Body))
	if e.Code != "not_found" {
		t.Errorf("expected code not_found, got %q", e.Code)
	}
	if e.RequestID != "req-404" {
		t.Errorf("expected request id req-404, got %q", e.RequestID)
	}
}

func TestCreateAddress(t *testing.T) {
	app := setupApp(makeDeps(nil))

	status, body, hdr := postJSON(t, app, "/v1/addresses",
		`{"name":"  Depot ","street":"1 Main St","city":"Vancouver","state":"BC","zipCode":"12345","latitude":49.2827,"longitude":-123.1207}`)
	if status != 201 {
		t.Fatalf("expected 201, got %d: %s", status, body)
	}

	var a domain.Address
	if err := json.Unmarshal(body, &a); err != nil {
		t.Fatal(err)
	}
	if a.ID == "" {
		t.Fatal("expected generated id")
	}
	if a.Name != "Depot" {
		t.Errorf("expected trimmed name, got %q", a.Name)
	}
	if a.Country != usecases.DefaultCountry {
		t.Errorf("expected default country %s, got %q", usecases.DefaultCountry, a.Country)
	}
	if a.ZipCode != "12345" {
		t.Errorf("expected zipCode alias to fill zip_code, got %q", a.ZipCode)
	}
	if loc := hdr["Location"]; len(loc) == 0 || loc[0] != "/v1/addresses/"+a.ID {
		t.Errorf("unexpected Location header %v", loc)
	}

	req := httptest.NewRequest("GET", "/v1/addresses/"+a.ID, nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Errorf("expected created address to be readable, got %d", resp.StatusCode)
	}
}

func TestCreateAddress_Invalid(t *testing.T) {
	app := setupApp(makeDeps(nil))

	cases := map[string]string{
		"missing coordinates": `{"name":"No coords"}`,
		"latitude range":      `{"name":"North","latitude":91,"longitude":0}`,
		"longitude range":     `{"name":"East","latitude":0,"longitude":181}`,
		"missing name":        `{"latitude":1,"longitude":1}`,
		"malformed":           `{"name":`,
	}
	for name, body := range cases {
		status, out, _ := postJSON(t, app, "/v1/addresses", body)
		if status != 400 {
			t.Errorf("%s: expected 400, got %d: %s", name, status, out)
		}
	}
}

func TestUpdateAndDeleteAddress(t *testing.T) {
	app := setupApp(makeDeps(equatorCatalog()))

	req := httptest.NewRequest("PUT", "/v1/addresses/a",
		strings.NewReader(`{"name":"Alpha Prime","latitude":0,"longitude":0.011}`))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("update: expected 200, got %d", resp.StatusCode)
	}
	var a domain.Address
	json.NewDecoder(resp.Body).Decode(&a)
	if a.Name != "Alpha Prime" || a.Longitude != 0.011 {
		t.Errorf("unexpected updated address %+v", a)
	}

	req = httptest.NewRequest("PUT", "/v1/addresses/zzz",
		strings.NewReader(`{"name":"Ghost","latitude":0,"longitude":0}`))
	req.Header.Set("Content-Type", "application/json")
	resp, _ = app.Test(req, -1)
	if resp.StatusCode != 404 {
		t.Errorf("update missing: expected 404, got %d", resp.StatusCode)
	}

	resp, _ = app.Test(httptest.NewRequest("DELETE", "/v1/addresses/a", nil), -1)
	if resp.StatusCode != 204 {
		t.Fatalf("delete: expected 204, got %d", resp.StatusCode)
	}
	resp, _ = app.Test(httptest.NewRequest("DELETE", "/v1/addresses/a", nil), -1)
	if resp.StatusCode != 404 {
		t.Errorf("second delete: expected 404, got %d", resp.StatusCode)
	}
}

// ---- Route handler tests ----

func TestNearest(t *testing.T) {
	app := setupApp(makeDeps(equatorCatalog()))

	status, body, _ := postJSON(t, app, "/v1/routes/nearest", `{"latitude":0,"longitude":0,"limit":3}`)
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}

	var result struct {
		Limit   int                    `json:"limit"`
		Results []domain.RankedAddress `json:"results"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatal(err)
	}
	if len(result.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(result.Results))
	}
	for i, want := range []string{"a", "b", "c"} {
		if result.Results[i].Address.ID != want {
			t.Errorf("result %d: expected %s, got %s", i, want, result.Results[i].Address.ID)
		}
	}
	if d := result.Results[0].Distance; math.Abs(d-1111.95) > 1 {
		t.Errorf("expected ~1112 m to nearest, got %.2f", d)
	}
}

func TestNearest_DefaultLimit(t *testing.T) {
	app := setupApp(makeDeps(equatorCatalog()))

	status, body, _ := postJSON(t, app, "/v1/routes/nearest", `{"latitude":0,"longitude":0}`)
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	var result struct {
		Results []domain.RankedAddress `json:"results"`
	}
	json.Unmarshal(body, &result)
	if len(result.Results) != usecases.DefaultRouteOptions().DefaultStops {
		t.Errorf("expected %d results, got %d", usecases.DefaultRouteOptions().DefaultStops, len(result.Results))
	}
}

func TestNearest_EmptyCatalog(t *testing.T) {
	app := setupApp(makeDeps(nil))

	status, body, _ := postJSON(t, app, "/v1/routes/nearest", `{"latitude":10,"longitude":10,"limit":4}`)
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	if !strings.Contains(string(body), `"results":[]`) {
		t.Errorf("expected empty results array, got %s", body)
	}
}

func TestNearest_BadRequest(t *testing.T) {
	app := setupApp(makeDeps(equatorCatalog()))

	cases := map[string]string{
		"zero limit":      `{"latitude":0,"longitude":0,"limit":0}`,
		"negative limit":  `{"latitude":0,"longitude":0,"limit":-2}`,
		"missing lat":     `{"longitude":0,"limit":2}`,
		"latitude range":  `{"latitude":-90.5,"longitude":0,"limit":2}`,
		"longitude range": `{"latitude":0,"longitude":200,"limit":2}`,
	}
	for name, body := range cases {
		status, out, _ := postJSON(t, app, "/v1/routes/nearest", body)
		if status != 400 {
			t.Errorf("%s: expected 400, got %d: %s", name, status, out)
		}
	}
}

func TestOptimize(t *testing.T) {
	app := setupApp(makeDeps(equatorCatalog()))

	status, body, _ := postJSON(t, app, "/v1/routes/optimize",
		`{"start":{"lat":0,"lng":0},"addressIds":["c","a","b"]}`)
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}

	var route domain.Route
	if err := json.Unmarshal(body, &route); err != nil {
		t.Fatal(err)
	}
	if got := route.AddressIDs(); strings.Join(got, ",") != "a,b,c" {
		t.Errorf("expected a,b,c, got %v", got)
	}
	for i, leg := range route.Legs {
		if leg.Order != i {
			t.Errorf("leg %d has order %d", i, leg.Order)
		}
	}
	if math.Abs(route.TotalDistance-3335.85) > 2 {
		t.Errorf("expected ~3336 m total, got %.2f", route.TotalDistance)
	}
	if route.TotalDuration <= 0 {
		t.Errorf("expected positive duration, got %f", route.TotalDuration)
	}
}

func TestOptimize_Empty(t *testing.T) {
	app := setupApp(makeDeps(equatorCatalog()))

	status, body, _ := postJSON(t, app, "/v1/routes/optimize", `{"start":{"lat":0,"lng":0},"addressIds":[]}`)
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	if !strings.Contains(string(body), `"route":[]`) {
		t.Errorf("expected empty route array, got %s", body)
	}
}

func TestOptimize_Errors(t *testing.T) {
	app := setupApp(makeDeps(equatorCatalog()))

	status, _, _ := postJSON(t, app, "/v1/routes/optimize", `{"start":{"lat":0,"lng":0},"addressIds":["a","missing"]}`)
	if status != 404 {
		t.Errorf("unknown id: expected 404, got %d", status)
	}

	status, _, _ = postJSON(t, app, "/v1/routes/optimize", `{"addressIds":["a"]}`)
	if status != 400 {
		t.Errorf("missing start: expected 400, got %d", status)
	}

	ids := make([]string, usecases.DefaultRouteOptions().MaxStops+1)
	for i := range ids {
		ids[i] = fmt.Sprintf("%q", "a")
	}
	status, _, _ = postJSON(t, app, "/v1/routes/optimize",
		`{"start":{"lat":0,"lng":0},"addressIds":[`+strings.Join(ids, ",")+`]}`)
	if status != 400 {
		t.Errorf("too many stops: expected 400, got %d", status)
	}
}

func TestPlan(t *testing.T) {
	app := setupApp(makeDeps(equatorCatalog()))

	status, body, _ := postJSON(t, app, "/v1/routes/plan", `{"latitude":0,"longitude":0,"limit":4}`)
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	var route domain.Route
	json.Unmarshal(body, &route)
	if got := strings.Join(route.AddressIDs(), ","); got != "a,b,c,d" {
		t.Errorf("expected a,b,c,d, got %s", got)
	}
}

// ---- Legacy /api surface ----

func TestLegacyNearest(t *testing.T) {
	app := setupApp(makeDeps(equatorCatalog()))

	status, body, hdr := postJSON(t, app, "/api/routes/nearest", `{"latitude":0,"longitude":0,"limit":2}`)
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}

	var flat []struct {
		ID       string  `json:"id"`
		Name     string  `json:"name"`
		Distance float64 `json:"distance"`
	}
	if err := json.Unmarshal(body, &flat); err != nil {
		t.Fatalf("expected flat array: %v (%s)", err, body)
	}
	if len(flat) != 2 || flat[0].ID != "a" || flat[1].ID != "b" {
		t.Errorf("unexpected legacy result %+v", flat)
	}
	if flat[0].Distance <= 0 {
		t.Errorf("expected distance on legacy result")
	}

	if v := hdr["Deprecation"]; len(v) == 0 || v[0] != "true" {
		t.Errorf("expected Deprecation header, got %v", v)
	}
	if v := hdr["Link"]; len(v) == 0 || !strings.Contains(v[0], "/v1/routes/nearest") {
		t.Errorf("expected successor Link header, got %v", v)
	}
	if len(hdr["Sunset"]) == 0 {
		t.Error("expected Sunset header")
	}
}

func TestLegacyAddresses(t *testing.T) {
	app := setupApp(makeDeps(equatorCatalog()))

	resp, _ := app.Test(httptest.NewRequest("GET", "/api/addresses", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var all []domain.Address
	if err := json.NewDecoder(resp.Body).Decode(&all); err != nil {
		t.Fatalf("expected bare array: %v", err)
	}
	if len(all) != 7 {
		t.Errorf("expected 7 addresses, got %d", len(all))
	}

	req := httptest.NewRequest("PUT", "/api/addresses",
		strings.NewReader(`{"id":"g","name":"Golf Course","latitude":0,"longitude":0.07}`))
	req.Header.Set("Content-Type", "application/json")
	resp, _ = app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Errorf("legacy update: expected 200, got %d", resp.StatusCode)
	}

	resp, _ = app.Test(httptest.NewRequest("DELETE", "/api/addresses?id=g", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("legacy delete: expected 200, got %d", resp.StatusCode)
	}
	if body := readBody(t, resp.Body); !strings.Contains(string(body), `"success":true`) {
		t.Errorf("expected success body, got %s", body)
	}

	resp, _ = app.Test(httptest.NewRequest("DELETE", "/api/addresses", nil), -1)
	if resp.StatusCode != 400 {
		t.Errorf("legacy delete without id: expected 400, got %d", resp.StatusCode)
	}
}

// ---- GraphQL ----

func TestGraphQL_NearestAndOptimize(t *testing.T) {
	app := setupApp(makeDeps(equatorCatalog()))

	query := `{"query":"{ nearest(lat: 0, lon: 0, limit: 2) { distance address { id name } } optimizeRoute(lat: 0, lon: 0, addressIds: [\"b\", \"a\"]) { total_distance route { order address { id } } } }"}`
	status, body, _ := postJSON(t, app, "/graphql", query)
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}

	var result struct {
		Data struct {
			Nearest []struct {
				Distance float64 `json:"distance"`
				Address  struct {
					ID   string `json:"id"`
					Name string `json:"name"`
				} `json:"address"`
			} `json:"nearest"`
			OptimizeRoute struct {
				TotalDistance float64 `json:"total_distance"`
				Route         []struct {
					Order   int `json:"order"`
					Address struct {
						ID string `json:"id"`
					} `json:"address"`
				} `json:"route"`
			} `json:"optimizeRoute"`
		} `json:"data"`
		Errors []any `json:"errors"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatal(err)
	}
	if len(result.Errors) > 0 {
		t.Fatalf("unexpected graphql errors: %s", body)
	}
	if len(result.Data.Nearest) != 2 || result.Data.Nearest[0].Address.Name != "Alpha" {
		t.Errorf("unexpected nearest: %+v", result.Data.Nearest)
	}
	r := result.Data.OptimizeRoute.Route
	if len(r) != 2 || r[0].Address.ID != "a" || r[1].Address.ID != "b" {
		t.Errorf("unexpected route: %+v", r)
	}
}

func TestGraphQL_CreateAddress(t *testing.T) {
	app := setupApp(makeDeps(nil))

	query := `{"query":"mutation { createAddress(name: \"Kiosk\", latitude: 49.1, longitude: -123.1) { id country created_at } }"}`
	_, body, _ := postJSON(t, app, "/graphql", query)

	var result struct {
		Data struct {
			CreateAddress struct {
				ID        string `json:"id"`
				Country   string `json:"country"`
				CreatedAt string `json:"created_at"`
			} `json:"createAddress"`
		} `json:"data"`
	}
	json.Unmarshal(body, &result)
	got := result.Data.CreateAddress
	if got.ID == "" || got.Country != "USA" || got.CreatedAt == "" {
		t.Errorf("unexpected mutation result: %s", body)
	}
}

// ---- Health, readiness, middleware ----

func TestHealth_Returns200(t *testing.T) {
	app := setupApp(makeDeps(nil))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/health", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body map[string]string
	json.NewDecoder(resp.Body).Decode(&body)
	if body["status"] != "healthy" || body["catalog"] != "file" {
		t.Errorf("unexpected health body %v", body)
	}
}

func TestReady_FileCatalog(t *testing.T) {
	app := setupApp(makeDeps(nil))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/ready", nil), -1)
	if resp.StatusCode != 200 {
		t.Errorf("expected 200 for file-backed catalog, got %d", resp.StatusCode)
	}
}

func TestReady_DatabaseDown(t *testing.T) {
	deps := makeDeps(nil, func(d *handler.Dependencies) {
		d.DB = pingerFunc(func(ctx context.Context) error { return errors.New("connection refused") })
		d.Cache = pingerFunc(func(ctx context.Context) error { return nil })
	})
	app := setupApp(deps)

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/ready", nil), -1)
	if resp.StatusCode != 503 {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
	var body struct {
		Checks map[string]string `json:"checks"`
	}
	json.NewDecoder(resp.Body).Decode(&body)
	if !strings.Contains(body.Checks["database"], "connection refused") {
		t.Errorf("expected database error, got %q", body.Checks["database"])
	}
	if body.Checks["cache"] != "ok" {
		t.Errorf("expected cache ok, got %q", body.Checks["cache"])
	}
}

func TestWebSocket_WithoutNATS(t *testing.T) {
	app := setupApp(makeDeps(nil))

	resp, _ := app.Test(httptest.NewRequest("GET", "/ws", nil), -1)
	if resp.StatusCode != 503 {
		t.Errorf("expected 503 without NATS, got %d", resp.StatusCode)
	}
}

func TestAPIVersionHeader(t *testing.T) {
	app := setupApp(makeDeps(nil))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/health", nil), -1)
	if v := resp.Header.Get("X-API-Version"); v != handler.APIVersion {
		t.Errorf("expected X-API-Version %s, got %q", handler.APIVersion, v)
	}
}

func TestETag_NotModified(t *testing.T) {
	app := setupApp(makeDeps(equatorCatalog()))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/addresses/a", nil), -1)
	etag := resp.Header.Get("ETag")
	if etag == "" {
		t.Fatal("expected ETag header")
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "private, max-age=60" {
		t.Errorf("unexpected Cache-Control %q", cc)
	}

	req := httptest.NewRequest("GET", "/v1/addresses/a", nil)
	req.Header.Set("If-None-Match", `"other", `+etag)
	resp, _ = app.Test(req, -1)
	if resp.StatusCode != 304 {
		t.Errorf("expected 304, got %d", resp.StatusCode)
	}
}

func TestRateLimit(t *testing.T) {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, makeDeps(nil), handler.RouterConfig{RateLimit: 2})

	var last int
	for i := 0; i < 3; i++ {
		resp, _ := app.Test(httptest.NewRequest("GET", "/v1/health", nil), -1)
		last = resp.StatusCode
	}
	if last != 429 {
		t.Errorf("expected 429 after limit, got %d", last)
	}
}

// TestAccessLogMiddleware verifies structured access logging is emitted.
func TestAccessLogMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(handler.AccessLogMiddleware())
	app.Get("/test", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
	})

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("X-Request-ID", "test-req-123")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "ok") {
		t.Errorf("expected response body to contain 'ok', got %s", string(body))
	}
}
