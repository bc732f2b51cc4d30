package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"history-stairs/internal/app"
	"history-stairs/internal/auth"
	"history-stairs/internal/bank"
	"history-stairs/internal/domain"
	"history-stairs/internal/infra/memory"
)

type testServer struct {
	*httptest.Server
	accounts *app.AccountService
	games    *app.GameService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	b, err := bank.New(sampleQuestions())
	if err != nil {
		t.Fatalf("bank: %v", err)
	}

	profiles := memory.NewProfileStore()
	authenticator := auth.NewTokenAuthenticator(memory.NewTokenStore(), time.Hour, []string{"google", "guest"})
	accounts := app.NewAccountService(authenticator, profiles, profiles)
	games := app.NewGameService(memory.NewGameStore(), accounts, bank.NewSelector(b), app.GameConfig{
		CorrectDelay:   10 * time.Millisecond,
		IncorrectDelay: 10 * time.Millisecond,
	})

	mux := http.NewServeMux()
	NewAPIHandler(accounts, 10).Register(mux)
	mux.HandleFunc("/ws", NewWSHandler(accounts, games, 10).ServeWS)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return &testServer{Server: server, accounts: accounts, games: games}
}

func sampleQuestions() []domain.Question {
	return []domain.Question{
		{ID: "q1", Prompt: "Q1", Options: []string{"right", "wrong"}, Answer: "right"},
		{ID: "q2", Prompt: "Q2", Options: []string{"right", "wrong"}, Answer: "right"},
		{ID: "q3", Prompt: "Q3", Options: []string{"right", "wrong"}, Answer: "right"},
	}
}

func signIn(t *testing.T, s *testServer, subject, name string) app.SignedIn {
	t.Helper()
	body, _ := json.Marshal(domain.Credentials{Provider: "guest", Subject: subject, DisplayName: name})
	resp, err := http.Post(s.URL+"/api/auth/signin", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("signin: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("signin status %d", resp.StatusCode)
	}
	var signed app.SignedIn
	if err := json.NewDecoder(resp.Body).Decode(&signed); err != nil {
		t.Fatalf("decode signin: %v", err)
	}
	return signed
}

func authorized(t *testing.T, method, url, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	return resp
}
