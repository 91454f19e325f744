package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func setupMockServer(t *testing.T) (*httptest.Server, *[]string) {
	t.Helper()

	var calls []string
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/identities", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-Key") != "secret" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":"u1","name":"Alice","embedding":[0.1,0.2],"createdAt":"2026-01-05T08:00:00Z"}]`))
	})
	mux.HandleFunc("GET /api/v1/identities/{id}/attendance/last", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.PathValue("id") {
		case "u1":
			w.Write([]byte(`{"status":"in","at":"2026-01-05T08:00:00Z"}`))
		case "u2":
			w.Write([]byte(`{"status":"none"}`))
		case "bad":
			w.Write([]byte(`{"status":"maybe"}`))
		default:
			http.Error(w, "identity not found", http.StatusNotFound)
		}
	})
	mux.HandleFunc("POST /api/v1/identities/{id}/attendance/in", func(w http.ResponseWriter, r *http.Request) {
		var req RecordRequest
		json.NewDecoder(r.Body).Decode(&req)
		calls = append(calls, "in:"+r.PathValue("id")+":"+req.Name)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"timeIn":"2026-01-05T08:00:00Z","entryNumber":2}`))
	})
	mux.HandleFunc("POST /api/v1/identities/{id}/attendance/out", func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, "out:"+r.PathValue("id"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"timeOut":"2026-01-05T12:00:00Z","sessionDuration":14400,"breakType":"lunch","breakLabel":"Lunch break","todayTotal":14400}`))
	})
	mux.HandleFunc("POST /api/v1/unknowns", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		calls = append(calls, "unknown:"+string(body))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"isNew":true,"displayName":"Unknown #3","timestamp":"2026-01-05T09:00:00Z","totalDetections":1}`))
	})
	mux.HandleFunc("GET /api/v1/unknowns", func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, "list:"+r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":"s1","displayName":"Unknown #1","confidence":20,"firstSeen":"2026-01-05T09:00:00Z","lastSeen":"2026-01-05T09:01:00Z","detections":4}]`))
	})
	mux.HandleFunc("DELETE /api/v1/unknowns/{id}", func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, "delete:"+r.PathValue("id"))
		w.WriteHeader(http.StatusNoContent)
	})

	return httptest.NewServer(mux), &calls
}

func TestListIdentities(t *testing.T) {
	server, _ := setupMockServer(t)
	defer server.Close()

	c, err := NewClient(server.URL, "secret", time.Second)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	identities, err := c.ListIdentities(context.Background())
	if err != nil {
		t.Fatalf("ListIdentities failed: %v", err)
	}
	if len(identities) != 1 {
		t.Fatalf("expected 1 identity, got %d", len(identities))
	}
	if identities[0].ID != "u1" || identities[0].Name != "Alice" {
		t.Errorf("unexpected identity %+v", identities[0])
	}
	if len(identities[0].Embedding) != 2 {
		t.Errorf("expected 2-dim embedding, got %d", len(identities[0].Embedding))
	}
}

func TestListIdentities_Unauthorized(t *testing.T) {
	server, _ := setupMockServer(t)
	defer server.Close()

	c, _ := NewClient(server.URL, "", time.Second)
	_, err := c.ListIdentities(context.Background())

	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", se.Code)
	}
}

func TestLastEvent(t *testing.T) {
	server, _ := setupMockServer(t)
	defer server.Close()
	c, _ := NewClient(server.URL, "secret", time.Second)

	ev, err := c.LastEvent(context.Background(), "u1")
	if err != nil {
		t.Fatalf("LastEvent failed: %v", err)
	}
	if ev.Status != StatusIn {
		t.Errorf("expected status in, got %s", ev.Status)
	}
	if ev.At == nil || !ev.At.Equal(time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected At %v", ev.At)
	}

	ev, err = c.LastEvent(context.Background(), "u2")
	if err != nil {
		t.Fatalf("LastEvent failed: %v", err)
	}
	if ev.Status != StatusNone || ev.At != nil {
		t.Errorf("expected none without timestamp, got %+v", ev)
	}

	if _, err := c.LastEvent(context.Background(), "bad"); !errors.Is(err, ErrUnknownStatus) {
		t.Errorf("expected ErrUnknownStatus, got %v", err)
	}

	if _, err := c.LastEvent(context.Background(), "ghost"); !IsNotFoundError(err) {
		t.Errorf("expected not found error, got %v", err)
	}
}

func TestLastEvent_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    EventStatus
		wantErr error
	}{
		{"none", `{"status":"none"}`, StatusNone, nil},
		{"in", `{"status":"in","at":"2026-01-05T08:00:00Z"}`, StatusIn, nil},
		{"out", `{"status":"out","at":"2026-01-05T08:00:00Z"}`, StatusOut, nil},
		{"cooldown", `{"status":"cooldown","at":"2026-01-05T08:00:00Z"}`, StatusCooldown, nil},
		{"missing status", `{"at":"2026-01-05T08:00:00Z"}`, "", ErrMissingStatus},
		{"unknown status", `{"status":"IN"}`, "", ErrUnknownStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ev LastEvent
			err := json.Unmarshal([]byte(tt.input), &ev)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ev.Status != tt.want {
				t.Errorf("status = %s, want %s", ev.Status, tt.want)
			}
		})
	}
}

func TestRecordInOut(t *testing.T) {
	server, calls := setupMockServer(t)
	defer server.Close()
	c, _ := NewClient(server.URL, "secret", time.Second)

	in, err := c.RecordIn(context.Background(), "u1", "Alice")
	if err != nil {
		t.Fatalf("RecordIn failed: %v", err)
	}
	if in.EntryNumber != 2 {
		t.Errorf("expected entry number 2, got %d", in.EntryNumber)
	}

	out, err := c.RecordOut(context.Background(), "u1", "Alice")
	if err != nil {
		t.Fatalf("RecordOut failed: %v", err)
	}
	if out.BreakType != "lunch" || out.BreakLabel != "Lunch break" {
		t.Errorf("unexpected break %s/%s", out.BreakType, out.BreakLabel)
	}
	if out.SessionDuration != 14400 || out.TodayTotal != 14400 {
		t.Errorf("unexpected durations %d/%d", out.SessionDuration, out.TodayTotal)
	}

	want := []string{"in:u1:Alice", "out:u1"}
	if strings.Join(*calls, ",") != strings.Join(want, ",") {
		t.Errorf("calls = %v, want %v", *calls, want)
	}
}

func TestUnknowns(t *testing.T) {
	server, calls := setupMockServer(t)
	defer server.Close()
	c, _ := NewClient(server.URL, "secret", time.Second)

	res, err := c.LogUnknown(context.Background(), UnknownReport{
		Embedding:  []float32{0.5, 0.25},
		Confidence: 20,
		Image:      "data:image/jpeg;base64,AAAA",
	})
	if err != nil {
		t.Fatalf("LogUnknown failed: %v", err)
	}
	if !res.IsNew || res.DisplayName != "Unknown #3" || res.TotalDetections != 1 {
		t.Errorf("unexpected result %+v", res)
	}

	sightings, err := c.ListUnknowns(context.Background(), 5)
	if err != nil {
		t.Fatalf("ListUnknowns failed: %v", err)
	}
	if len(sightings) != 1 || sightings[0].Detections != 4 {
		t.Errorf("unexpected sightings %+v", sightings)
	}

	if err := c.DeleteUnknown(context.Background(), "s1"); err != nil {
		t.Fatalf("DeleteUnknown failed: %v", err)
	}

	if len(*calls) != 3 {
		t.Fatalf("expected 3 calls, got %v", *calls)
	}
	if !strings.Contains((*calls)[0], `"embedding":[0.5,0.25]`) {
		t.Errorf("expected embedding in request body, got %s", (*calls)[0])
	}
	if (*calls)[1] != "list:5" || (*calls)[2] != "delete:s1" {
		t.Errorf("unexpected calls %v", *calls)
	}
}

func TestNewClient_RequiresURL(t *testing.T) {
	if _, err := NewClient("", "", time.Second); err == nil {
		t.Error("expected error for empty URL")
	}
}

func TestResolveURL(t *testing.T) {
	c, _ := NewClient("http://svc:8080/", "", time.Second)

	if got := c.resolveURL("unknowns?limit=10"); got != "http://svc:8080/api/v1/unknowns?limit=10" {
		t.Errorf("resolveURL = %s", got)
	}
	if got := c.resolveURL("identities/u1/attendance/last"); got != "http://svc:8080/api/v1/identities/u1/attendance/last" {
		t.Errorf("resolveURL = %s", got)
	}
}
