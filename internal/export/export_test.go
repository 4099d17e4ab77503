package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rodstewart/modelosctl/internal/api"
	"github.com/rodstewart/modelosctl/internal/catalog"
	"github.com/rodstewart/modelosctl/internal/models"
)

func testEntries() []models.Entry {
	return []models.Entry{
		{
			ID:          "1",
			Title:       "Relevo <3D>",
			Description: "Modelo de relevo & erosão",
			Format:      "3D",
			DateLabel:   "2024-01-10",
			Link:        "https://example.com/relevo?a=1&b=2",
			Area:        []string{"Geografia"},
			Tags:        []string{"terra", "erosão"},
		},
		{
			ID:        "2",
			Title:     "Átomo",
			Format:    "Vídeo",
			DateLabel: "2024-02-10",
			Area:      []string{"Química", "Física"},
		},
		{
			ID:        "3",
			Title:     "Célula",
			Format:    "3D",
			DateLabel: "2024-03-10",
			Course:    []string{"Biologia"},
		},
	}
}

// newTestClient returns a client backed by a server listing entries
func newTestClient(t *testing.T, entries []models.Entry) *api.Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/modelos/list" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(models.EntryList{Count: len(entries), Results: entries})
	}))
	t.Cleanup(server.Close)
	return api.NewClient(server.URL, "")
}

func TestExportJSON(t *testing.T) {
	client := newTestClient(t, testEntries())

	var buf bytes.Buffer
	err := ExportJSON(context.Background(), client, &buf, ExportOptions{
		Criteria: catalog.Criteria{"formato": "3d", "area": "todas"},
		Sort:     catalog.SortAlphabetical,
	})
	if err != nil {
		t.Fatalf("ExportJSON() failed: %v", err)
	}

	var data ExportData
	if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
		t.Fatalf("failed to parse exported JSON: %v", err)
	}

	if data.Version != "1" || data.Source != "modelos" {
		t.Errorf("unexpected header: version=%s source=%s", data.Version, data.Source)
	}
	if data.ExportedAt.IsZero() {
		t.Error("expected exported_at to be set")
	}
	if len(data.Entries) != 2 {
		t.Fatalf("expected 2 filtered entries, got %d", len(data.Entries))
	}
	if data.Entries[0].ID != "3" || data.Entries[1].ID != "1" {
		t.Errorf("expected alphabetical order [3 1], got [%s %s]", data.Entries[0].ID, data.Entries[1].ID)
	}
	if len(data.Filters) != 1 || data.Filters["formato"] != "3d" {
		t.Errorf("expected only active filters recorded, got %v", data.Filters)
	}
}

func TestExportJSON_DefaultSort(t *testing.T) {
	client := newTestClient(t, testEntries())

	var buf bytes.Buffer
	if err := ExportJSON(context.Background(), client, &buf, ExportOptions{}); err != nil {
		t.Fatalf("ExportJSON() failed: %v", err)
	}

	var data ExportData
	_ = json.Unmarshal(buf.Bytes(), &data)
	got := []string{data.Entries[0].ID, data.Entries[1].ID, data.Entries[2].ID}
	if strings.Join(got, ",") != "3,2,1" {
		t.Errorf("expected newest first [3 2 1], got %v", got)
	}
}

func TestExportJSON_Empty(t *testing.T) {
	client := newTestClient(t, []models.Entry{})

	var buf bytes.Buffer
	if err := ExportJSON(context.Background(), client, &buf, ExportOptions{}); err != nil {
		t.Fatalf("ExportJSON() failed: %v", err)
	}
	if !strings.Contains(buf.String(), `"modelos": []`) {
		t.Errorf("expected empty modelos array, got %s", buf.String())
	}
}

func TestExportJSON_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	var buf bytes.Buffer
	err := ExportJSON(context.Background(), api.NewClient(server.URL, ""), &buf, ExportOptions{})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if buf.Len() != 0 {
		t.Error("expected nothing written on error")
	}
}

func TestExportCSV(t *testing.T) {
	client := newTestClient(t, testEntries())

	var buf bytes.Buffer
	if err := ExportCSV(context.Background(), client, &buf, ExportOptions{Sort: catalog.SortOldest}); err != nil {
		t.Fatalf("ExportCSV() failed: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("failed to parse CSV: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("expected header + 3 rows, got %d", len(records))
	}
	if strings.Join(records[0], ",") != strings.Join(csvHeader, ",") {
		t.Errorf("unexpected header: %v", records[0])
	}

	first := records[1]
	if first[0] != "1" || first[1] != "Relevo <3D>" {
		t.Errorf("expected oldest entry first, got %v", first)
	}
	if first[9] != "terra;erosão" {
		t.Errorf("expected tags joined with ';', got %q", first[9])
	}
	if records[2][11] != "Química;Física" {
		t.Errorf("expected areas joined with ';', got %q", records[2][11])
	}
}

func TestExportHTML(t *testing.T) {
	client := newTestClient(t, testEntries())

	var buf bytes.Buffer
	if err := ExportHTML(context.Background(), client, &buf, ExportOptions{Criteria: catalog.Criteria{"search": "relevo"}}); err != nil {
		t.Fatalf("ExportHTML() failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"<!DOCTYPE html>",
		"<p>1 modelos</p>",
		`<a href="https://example.com/relevo?a=1&amp;b=2">Relevo &lt;3D&gt;</a>`,
		"Modelo de relevo &amp; erosão",
		`<dd class="tags">terra, erosão</dd>`,
		"</html>",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected HTML to contain %q\n%s", want, out)
		}
	}
	if strings.Contains(out, "Átomo") {
		t.Error("expected filtered-out entry to be absent")
	}
}

func TestExportPDF(t *testing.T) {
	client := newTestClient(t, testEntries())

	var buf bytes.Buffer
	if err := ExportPDF(context.Background(), client, &buf, ExportOptions{}); err != nil {
		t.Fatalf("ExportPDF() failed: %v", err)
	}

	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Errorf("expected PDF header, got %q", buf.Bytes()[:min(8, buf.Len())])
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"curto", 10, "curto"},
		{"Mudanças Climáticas", 10, "Mudança..."},
		{"abcdef", 3, "abc"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}
