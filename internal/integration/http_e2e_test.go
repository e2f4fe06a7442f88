//go:build integration

package integration

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	"monobook/internal/adapters/agenttools"
	server "monobook/internal/adapters/http_server"
	mcpad "monobook/internal/adapters/mcp"
	"monobook/internal/adapters/ratelimit"
	"monobook/internal/app"
	mysqlrepo "monobook/internal/storage/mysql"
)

// ---------- helpers ----------
func migrationsDir() string {
	if v := os.Getenv("MIGRATIONS_DIR"); v != "" {
		return v
	}
	return filepath.Join("..", "..", "migrations")
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := migrationsDir()

	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir %s: %v", dir, err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		t.Fatalf("no .sql files in %s", dir)
	}
	sort.Strings(files)
	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

func startMySQL(t *testing.T) *sql.DB {
	t.Helper()
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("dockertest: %v", err)
	}
	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env:        []string{"MYSQL_ROOT_PASSWORD=root", "MYSQL_DATABASE=monobook"},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	dsn := fmt.Sprintf("root:root@tcp(127.0.0.1:%s)/monobook?parseTime=true&multiStatements=true&charset=utf8mb4,utf8&loc=UTC",
		resource.GetPort("3306/tcp"))

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	applyMigrations(t, db)
	return db
}

func seed(t *testing.T, db *sql.DB) {
	t.Helper()
	stmts := []string{
		`INSERT INTO accounts (id, display_name) VALUES ('acc-1', 'Volosyanka Hills Hotel')`,
		`INSERT INTO properties (id, account_id, description, city, country, lat, lng, rating)
		 VALUES ('prop-1', 'acc-1', 'Mountain hotel', 'Volosyanka', 'Ukraine', 48.8470, 23.4219, 4.80)`,
		`INSERT INTO rooms (id, property_id, name, type, description, price_per_night, currency_code, max_guests, amenities, images, status)
		 VALUES ('room-1', 'prop-1', 'Panorama Suite', 'Suite', 'Mountain view', 120.00, 'USD', 2, '["WiFi","Pet Friendly"]', '[]', 'active'),
		        ('room-2', 'prop-1', 'Family Loft', 'Family Room', 'Two levels', 180.00, 'UAH', 5, '["Kitchen"]', '[]', 'active')`,
		`INSERT INTO room_guest_tiers (room_id, min_guests, max_guests, price_per_night)
		 VALUES ('room-2', 1, 2, 150.00), ('room-2', 3, 5, 220.00)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
}

func newAPI(t *testing.T, db *sql.DB) *httptest.Server {
	t.Helper()
	repo := mysqlrepo.New(db)
	deps := app.Deps{
		Store:    repo,
		Currency: app.NewCurrencyService(repo, nil, 0),
		Auditor:  app.NewAuditor(repo),
	}
	search := app.NewSearchService(deps)
	booking := app.NewBookingService(deps)

	srv := server.New()
	srv.Mount("/mcp", mcpad.Handler(mcpad.New(search, booking, "e2e"), ""))
	srv.MountHandlers(&server.Handlers{
		Search:  search,
		Booking: booking,
		Audit:   deps.Auditor,
		Tools:   agenttools.New(search, booking),
		Limiter: ratelimit.NewMemory(100, time.Minute),
	})
	ts := httptest.NewServer(srv.Mux())
	t.Cleanup(ts.Close)
	return ts
}

func call(t *testing.T, method, url, body string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer res.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(res.Body).Decode(&out)
	return res.StatusCode, out
}

func date(offset int) string {
	return time.Now().UTC().AddDate(0, 0, offset).Format("2006-01-02")
}

// ---------- the tests ----------
func TestHTTP_EndToEnd_SearchAndBook(t *testing.T) {
	db := startMySQL(t)
	seed(t, db)
	ts := newAPI(t, db)

	status, body := call(t, http.MethodGet, ts.URL+"/v1/hotels/search?city=volosyanka&guests=4&check_in="+date(10)+"&check_out="+date(13), "")
	if status != http.StatusOK {
		t.Fatalf("search status %d: %v", status, body)
	}
	hotels := body["hotels"].([]any)
	if len(hotels) != 1 {
		t.Fatalf("want 1 hotel, got %v", body)
	}
	room := hotels[0].(map[string]any)["matching_rooms"].([]any)[0].(map[string]any)
	// 3 nights at the 3-5 guest tier: 660 + 12% tax + 4% fee
	if room["id"] != "room-2" || room["estimated_total_price"] != 765.6 || room["currency_display"] != "₴" {
		t.Fatalf("unexpected room: %v", room)
	}

	payload := fmt.Sprintf(`{"room_id":"room-1","guest_name":"Ivan","check_in":%q,"check_out":%q,"guests":2}`, date(10), date(12))
	status, body = call(t, http.MethodPost, ts.URL+"/v1/properties/prop-1/bookings", payload)
	if status != http.StatusCreated {
		t.Fatalf("create status %d: %v", status, body)
	}
	id := body["booking_id"].(string)

	status, _ = call(t, http.MethodPost, ts.URL+"/v1/properties/prop-1/bookings", payload)
	if status != http.StatusConflict {
		t.Fatalf("want 409 on overlap, got %d", status)
	}

	status, body = call(t, http.MethodGet, ts.URL+"/v1/properties/prop-1/bookings/"+id, "")
	if status != http.StatusOK || body["status"] != "pending" || body["guest_name"] != "Ivan" {
		t.Fatalf("status lookup %d: %v", status, body)
	}

	status, body = call(t, http.MethodGet, ts.URL+"/v1/properties/prop-1/audit?source=api", "")
	if status != http.StatusOK || len(body["items"].([]any)) == 0 {
		t.Fatalf("audit %d: %v", status, body)
	}
}

func TestHTTP_EndToEnd_ConcurrentBookings(t *testing.T) {
	db := startMySQL(t)
	seed(t, db)
	ts := newAPI(t, db)

	payload := fmt.Sprintf(`{"room_id":"room-2","guest_name":"Racer","check_in":%q,"check_out":%q,"guests":3}`, date(20), date(22))
	const n = 6
	codes := make(chan int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status, _ := call(t, http.MethodPost, ts.URL+"/v1/properties/prop-1/bookings", payload)
			codes <- status
		}()
	}
	wg.Wait()
	close(codes)

	created := 0
	for c := range codes {
		switch c {
		case http.StatusCreated:
			created++
		case http.StatusConflict:
		default:
			t.Fatalf("unexpected status %d", c)
		}
	}
	if created != 1 {
		t.Fatalf("want exactly one booking, got %d", created)
	}
}

func TestMCP_EndToEnd_CreateBooking(t *testing.T) {
	db := startMySQL(t)
	seed(t, db)
	ts := newAPI(t, db)

	rpc := fmt.Sprintf(`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"create_booking","arguments":`+
		`{"property_id":"prop-1","room_id":"room-1","guest_name":"Oksana","check_in":%q,"check_out":%q,"guests":2}}}`, date(40), date(41))
	status, body := call(t, http.MethodPost, ts.URL+"/mcp", rpc)
	if status != http.StatusOK {
		t.Fatalf("mcp status %d", status)
	}
	res := body["result"].(map[string]any)
	sc := res["structuredContent"].(map[string]any)
	if res["isError"] == true || sc["status"] != "confirmed" {
		t.Fatalf("unexpected result: %v", res)
	}

	var source string
	var ai bool
	if err := db.QueryRow(`SELECT source, ai_handled FROM bookings WHERE id = ?`, sc["booking_id"]).Scan(&source, &ai); err != nil {
		t.Fatalf("lookup booking: %v", err)
	}
	if source != "chatgpt" || !ai {
		t.Fatalf("want chatgpt/ai_handled, got %s/%v", source, ai)
	}
}
