package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/zmuhls/cloze-reader/backend/internal/board"
	"github.com/zmuhls/cloze-reader/backend/internal/leaderboard"
	"go.uber.org/zap"
)

type stubService struct {
	records      []board.Record
	writeOutcome leaderboard.Outcome

	added    []board.Record
	replaced [][]board.Record
	cleared  int
}

func (s *stubService) Read(ctx context.Context) []board.Record {
	return s.records
}

func (s *stubService) Add(ctx context.Context, record board.Record) leaderboard.Outcome {
	s.added = append(s.added, record)
	return s.writeOutcome
}

func (s *stubService) Replace(ctx context.Context, records []board.Record) leaderboard.Outcome {
	s.replaced = append(s.replaced, records)
	return s.writeOutcome
}

func (s *stubService) Clear(ctx context.Context) leaderboard.Outcome {
	s.cleared++
	return s.writeOutcome
}

func newTestHandler(testContext *testing.T, service LeaderboardService) http.Handler {
	testContext.Helper()
	gin.SetMode(gin.TestMode)
	handler, err := NewHTTPHandler(Dependencies{
		Leaderboard: service,
		Logger:      zap.NewNop(),
	})
	if err != nil {
		testContext.Fatalf("unexpected handler construction error: %v", err)
	}
	return handler
}

func TestNewHTTPHandlerRequiresService(testContext *testing.T) {
	if _, err := NewHTTPHandler(Dependencies{}); err == nil {
		testContext.Fatalf("expected construction to fail without a leaderboard service")
	}
}

func TestGetLeaderboardReturnsRecords(testContext *testing.T) {
	service := &stubService{records: []board.Record{
		{Initials: "AAA", Level: 7, Round: 2, PassagesPassed: 5, Date: "2024-06-01"},
	}}
	handler := newTestHandler(testContext, service)

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "/api/leaderboard", http.NoBody)
	handler.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusOK {
		testContext.Fatalf("expected status 200, got %d", recorder.Code)
	}
	var payload struct {
		Leaderboard []board.Record `json:"leaderboard"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
		testContext.Fatalf("failed to decode response: %v", err)
	}
	if len(payload.Leaderboard) != 1 || payload.Leaderboard[0].Initials != "AAA" {
		testContext.Fatalf("unexpected payload: %s", recorder.Body.String())
	}
}

func TestGetLeaderboardAlwaysSucceedsOnEmptyBoard(testContext *testing.T) {
	handler := newTestHandler(testContext, &stubService{records: []board.Record{}})

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "/api/leaderboard", http.NoBody)
	handler.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusOK {
		testContext.Fatalf("expected status 200 for empty board, got %d", recorder.Code)
	}
	if !strings.Contains(recorder.Body.String(), `"leaderboard":[]`) {
		testContext.Fatalf("empty board must serialize as an empty list: %s", recorder.Body.String())
	}
}

func TestPostEntryRejectsMalformedBody(testContext *testing.T) {
	service := &stubService{writeOutcome: leaderboard.Outcome{Status: leaderboard.StatusOK}}
	handler := newTestHandler(testContext, service)

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodPost, "/api/leaderboard", strings.NewReader(`{"level":"seven"}`))
	request.Header.Set("Content-Type", "application/json")
	handler.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusBadRequest {
		testContext.Fatalf("expected status 400, got %d", recorder.Code)
	}
	if len(service.added) != 0 {
		testContext.Fatalf("malformed body must not reach the service")
	}
}

func TestPostEntryPassesRecordThrough(testContext *testing.T) {
	service := &stubService{writeOutcome: leaderboard.Outcome{Status: leaderboard.StatusOK}}
	handler := newTestHandler(testContext, service)

	body := `{"initials":"ZMB","level":6,"round":3,"passagesPassed":12,"date":"2024-06-15"}`
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodPost, "/api/leaderboard", strings.NewReader(body))
	request.Header.Set("Content-Type", "application/json")
	handler.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusOK {
		testContext.Fatalf("expected status 200, got %d: %s", recorder.Code, recorder.Body.String())
	}
	if len(service.added) != 1 {
		testContext.Fatalf("expected one add call, got %d", len(service.added))
	}
	added := service.added[0]
	if added.Initials != "ZMB" || added.Level != 6 || added.PassagesPassed != 12 {
		testContext.Fatalf("record fields lost in transit: %#v", added)
	}
}

func TestWriteOutcomeStatusMapping(testContext *testing.T) {
	testCases := []struct {
		name       string
		outcome    leaderboard.Outcome
		wantStatus int
		wantError  string
	}{
		{
			name:       "ok",
			outcome:    leaderboard.Outcome{Status: leaderboard.StatusOK},
			wantStatus: http.StatusOK,
		},
		{
			name:       "read-only",
			outcome:    leaderboard.Outcome{Status: leaderboard.StatusRejected, Err: leaderboard.ErrReadOnly},
			wantStatus: http.StatusForbidden,
			wantError:  "read_only_mode",
		},
		{
			name:       "backend-failure",
			outcome:    leaderboard.Outcome{Status: leaderboard.StatusFailed, Err: errors.New("store down")},
			wantStatus: http.StatusBadGateway,
			wantError:  "sync_failed",
		},
	}

	for _, testCase := range testCases {
		testContext.Run(testCase.name, func(testContext *testing.T) {
			service := &stubService{writeOutcome: testCase.outcome}
			handler := newTestHandler(testContext, service)

			recorder := httptest.NewRecorder()
			request := httptest.NewRequest(http.MethodDelete, "/api/leaderboard", http.NoBody)
			handler.ServeHTTP(recorder, request)

			if recorder.Code != testCase.wantStatus {
				testContext.Fatalf("unexpected status: got %d want %d", recorder.Code, testCase.wantStatus)
			}
			if testCase.wantError == "" {
				return
			}
			var payload map[string]any
			if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
				testContext.Fatalf("failed to decode payload: %v", err)
			}
			if payload["error"] != testCase.wantError {
				testContext.Fatalf("expected error %q, got %v", testCase.wantError, payload["error"])
			}
		})
	}
}

func TestPutLeaderboardReplacesWholeBoard(testContext *testing.T) {
	service := &stubService{writeOutcome: leaderboard.Outcome{Status: leaderboard.StatusOK}}
	handler := newTestHandler(testContext, service)

	body := `{"leaderboard":[{"initials":"AAA","level":1},{"initials":"BBB","level":2}]}`
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodPut, "/api/leaderboard", strings.NewReader(body))
	request.Header.Set("Content-Type", "application/json")
	handler.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusOK {
		testContext.Fatalf("expected status 200, got %d", recorder.Code)
	}
	if len(service.replaced) != 1 || len(service.replaced[0]) != 2 {
		testContext.Fatalf("expected one replace call with two records, got %#v", service.replaced)
	}
}

func TestFailedWriteIncludesServiceErrorCode(testContext *testing.T) {
	failure := leaderboard.Outcome{
		Status: leaderboard.StatusFailed,
		Err:    serviceFailure(testContext),
	}
	service := &stubService{writeOutcome: failure}
	handler := newTestHandler(testContext, service)

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodDelete, "/api/leaderboard", http.NoBody)
	handler.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusBadGateway {
		testContext.Fatalf("expected status 502, got %d", recorder.Code)
	}
	var payload map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
		testContext.Fatalf("failed to decode payload: %v", err)
	}
	if payload["code"] != "leaderboard.clear.commit_failed" {
		testContext.Fatalf("expected service error code, got %v", payload["code"])
	}
}

func TestResponsesCarryRequestID(testContext *testing.T) {
	handler := newTestHandler(testContext, &stubService{})

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "/api/leaderboard", http.NoBody)
	handler.ServeHTTP(recorder, request)

	if recorder.Header().Get("X-Request-ID") == "" {
		testContext.Fatalf("expected a generated request id header")
	}

	recorder = httptest.NewRecorder()
	request = httptest.NewRequest(http.MethodGet, "/api/leaderboard", http.NoBody)
	request.Header.Set("X-Request-ID", "caller-supplied")
	handler.ServeHTTP(recorder, request)

	if recorder.Header().Get("X-Request-ID") != "caller-supplied" {
		testContext.Fatalf("expected the caller's request id to be echoed")
	}
}

// serviceFailure produces a failed clear outcome through the real service so
// the router test exercises a genuine ServiceError code.
func serviceFailure(testContext *testing.T) error {
	testContext.Helper()
	svc, err := leaderboard.NewService(leaderboard.ServiceConfig{Store: failingStore{}})
	if err != nil {
		testContext.Fatalf("unexpected service construction error: %v", err)
	}
	outcome := svc.Clear(context.Background())
	if outcome.Status != leaderboard.StatusFailed {
		testContext.Fatalf("expected a failed outcome, got %q", outcome.Status)
	}
	return outcome.Err
}

type failingStore struct{}

func (failingStore) Fetch(ctx context.Context, key string) ([]byte, error) {
	return nil, errors.New("store down")
}

func (failingStore) Commit(ctx context.Context, key string, content []byte, message string) error {
	return errors.New("store down")
}

func (failingStore) CanWrite() bool {
	return true
}
