package records_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/JaimeStill/docket/internal/fingerprint"
	"github.com/JaimeStill/docket/internal/records"
	"github.com/JaimeStill/docket/migrations"
	"github.com/JaimeStill/docket/pkg/database"
	"github.com/JaimeStill/docket/pkg/pagination"
	"github.com/JaimeStill/docket/pkg/routes"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openStore(t *testing.T) records.System {
	t.Helper()

	cfg := &database.Config{Driver: database.DriverSQLite, Path: filepath.Join(t.TempDir(), "docket.db")}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatal(err)
	}
	db, err := database.New(cfg, discard())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	if err := migrations.Up(db.Connection(), db.Driver()); err != nil {
		t.Fatal(err)
	}
	return records.New(db, discard(), pagination.Config{DefaultPageSize: 25, MaxPageSize: 200})
}

func fp(t *testing.T, text string) fingerprint.Fingerprint {
	t.Helper()
	h, err := fingerprint.New(fingerprint.SHA256)
	if err != nil {
		t.Fatal(err)
	}
	return h.Compute(text, []byte(text))
}

func command(f fingerprint.Fingerprint, route string) records.RecordCommand {
	return records.RecordCommand{
		Fingerprint:  f,
		RouteTag:     route,
		PriorityTier: "P1",
		FinalPath:    "/processed/" + route + "/" + f.Prefix(8) + ".pdf",
		OriginalPath: "/incoming/" + f.Prefix(8) + ".pdf",
		Confidence:   0.8,
		RecordedAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestRecordAndFind(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	f := fp(t, "invoice")

	cmd := command(f, "AP")
	cmd.Attributes = map[string]string{
		"client_code":   "ACME",
		"document_type": "invoice",
		"amount":        "1296.50",
		"vendor":        "Acme Supply Co",
	}

	rec, err := store.Record(ctx, cmd)
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if rec.Status != records.StatusOK || rec.Source != records.SourceLocal {
		t.Errorf("defaults not applied: %+v", rec)
	}

	got, err := store.Find(ctx, f)
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if got.ID != rec.ID || got.RouteTag != "AP" || got.PriorityTier != "P1" {
		t.Errorf("Find() = %+v", got)
	}
	if got.ClientCode == nil || *got.ClientCode != "ACME" {
		t.Errorf("client code = %v", got.ClientCode)
	}
	if got.Amount == nil || *got.Amount != 1296.50 {
		t.Errorf("amount = %v", got.Amount)
	}
	if got.Attributes["vendor"] != "Acme Supply Co" || len(got.Attributes) != 1 {
		t.Errorf("attributes = %v", got.Attributes)
	}
	if !got.RecordedAt.Equal(cmd.RecordedAt) {
		t.Errorf("recorded at = %v, want %v", got.RecordedAt, cmd.RecordedAt)
	}

	byPath, err := store.FindByPath(ctx, cmd.FinalPath)
	if err != nil || byPath.Fingerprint != f {
		t.Errorf("FindByPath() = %v, %v", byPath, err)
	}
}

func TestRecordIsAtMostOnce(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	f := fp(t, "dup")

	if _, err := store.Record(ctx, command(f, "AP")); err != nil {
		t.Fatal(err)
	}

	_, err := store.Record(ctx, command(f, "AR"))
	if !errors.Is(err, records.ErrAlreadyRecorded) {
		t.Fatalf("second Record() error = %v, want ErrAlreadyRecorded", err)
	}

	got, err := store.Find(ctx, f)
	if err != nil || got.RouteTag != "AP" {
		t.Errorf("original record changed: %+v, %v", got, err)
	}
}

func TestConcurrentRecordSingleWinner(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	f := fp(t, "race")

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		wins    int
		dupes   int
		unknown []error
	)
	for range 8 {
		wg.Go(func() {
			_, err := store.Record(ctx, command(f, "AP"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, records.ErrAlreadyRecorded):
				dupes++
			default:
				unknown = append(unknown, err)
			}
		})
	}
	wg.Wait()

	if wins != 1 || dupes != 7 || len(unknown) > 0 {
		t.Errorf("wins=%d dupes=%d errors=%v", wins, dupes, unknown)
	}
}

func TestExists(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	f := fp(t, "exists")

	ok, err := store.Exists(ctx, f)
	if err != nil || ok {
		t.Fatalf("Exists() before record = %v, %v", ok, err)
	}

	if _, err := store.Record(ctx, command(f, "AP")); err != nil {
		t.Fatal(err)
	}

	ok, err = store.Exists(ctx, f)
	if err != nil || !ok {
		t.Errorf("Exists() after record = %v, %v", ok, err)
	}
}

func TestFindNotFound(t *testing.T) {
	store := openStore(t)
	if _, err := store.Find(context.Background(), fp(t, "missing")); !errors.Is(err, records.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestRecordValidation(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	tooMany := map[string]string{}
	for i := range records.MaxExtraAttributes + 1 {
		tooMany[fmt.Sprintf("key_%d", i)] = "v"
	}

	tests := []struct {
		name   string
		mutate func(*records.RecordCommand)
		want   error
	}{
		{"bad fingerprint", func(c *records.RecordCommand) { c.Fingerprint = "abc" }, records.ErrInvalidRecord},
		{"missing route", func(c *records.RecordCommand) { c.RouteTag = "" }, records.ErrInvalidRecord},
		{"confidence range", func(c *records.RecordCommand) { c.Confidence = 1.2 }, records.ErrInvalidRecord},
		{"bad key", func(c *records.RecordCommand) { c.Attributes = map[string]string{"Drop Table": "x"} }, records.ErrInvalidAttribute},
		{"bad amount", func(c *records.RecordCommand) { c.Attributes = map[string]string{"amount": "lots"} }, records.ErrInvalidAttribute},
		{"too many", func(c *records.RecordCommand) { c.Attributes = tooMany }, records.ErrInvalidAttribute},
		{"long value", func(c *records.RecordCommand) {
			c.Attributes = map[string]string{"note": strings.Repeat("x", records.MaxAttributeValue+1)}
		}, records.ErrInvalidAttribute},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := command(fp(t, fmt.Sprintf("validation-%d", i)), "AP")
			tt.mutate(&cmd)
			if _, err := store.Record(ctx, cmd); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func seed(t *testing.T, store records.System) {
	t.Helper()
	ctx := context.Background()
	for i, route := range []string{"AP", "AP", "AR", "Misc"} {
		cmd := command(fp(t, fmt.Sprintf("seed-%d", i)), route)
		cmd.RecordedAt = cmd.RecordedAt.Add(time.Duration(i) * time.Hour)
		cmd.Attributes = map[string]string{"dates": fmt.Sprintf("2026-01-0%d", i+1)}
		if _, err := store.Record(ctx, cmd); err != nil {
			t.Fatal(err)
		}
	}
}

func TestList(t *testing.T) {
	store := openStore(t)
	seed(t, store)
	ctx := context.Background()

	all, err := store.List(ctx, pagination.PageRequest{Page: 1, PageSize: 2}, records.Filters{})
	if err != nil {
		t.Fatal(err)
	}
	if all.Total != 4 || all.TotalPages != 2 || len(all.Data) != 2 {
		t.Errorf("page = total %d pages %d len %d", all.Total, all.TotalPages, len(all.Data))
	}
	if all.Data[0].RouteTag != "Misc" {
		t.Errorf("default sort should be newest first, got %s", all.Data[0].RouteTag)
	}
	if all.Data[0].Attributes["dates"] != "2026-01-04" {
		t.Errorf("attributes not loaded: %v", all.Data[0].Attributes)
	}

	route := "AP"
	ap, err := store.List(ctx, pagination.PageRequest{}, records.Filters{RouteTag: &route})
	if err != nil {
		t.Fatal(err)
	}
	if ap.Total != 2 {
		t.Errorf("AP total = %d, want 2", ap.Total)
	}
}

func TestHandler(t *testing.T) {
	store := openStore(t)
	seed(t, store)

	mux := http.NewServeMux()
	routes.Register(mux, "/api", store.Handler().Routes())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/api/records?route_tag=AR", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d: %s", rec.Code, rec.Body)
	}

	var page pagination.PageResult[records.Record]
	if err := json.NewDecoder(rec.Body).Decode(&page); err != nil {
		t.Fatal(err)
	}
	if page.Total != 1 || page.Data[0].RouteTag != "AR" {
		t.Fatalf("page = %+v", page)
	}

	target := page.Data[0].Fingerprint.String()
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/api/records/"+target, nil))
	if rec.Code != http.StatusOK {
		t.Errorf("find status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/api/records/not-a-fingerprint", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad fingerprint status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/api/records/"+fp(t, "nobody").String(), nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing status = %d", rec.Code)
	}
}
