package main

import (
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"time"
)

// mockState tracks the current status code and next change time for one service.
type mockState struct {
	codeIdx      int
	nextChangeAt time.Time
}

// mockCodes is the cycle each service walks through.
var mockCodes = []int{http.StatusOK, http.StatusServiceUnavailable, http.StatusOK, http.StatusInternalServerError}

// StartMockHealthServer runs a mock health endpoint whose status code cycles
// per service (?svc=name). Each service changes every 10-30 seconds.
// Call this in a goroutine before appearing buttons.
func StartMockHealthServer(addr string) {
	var (
		states = make(map[string]*mockState)
		mu     sync.Mutex
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		svc := r.URL.Query().Get("svc")

		// simulate small latency variance
		time.Sleep(time.Duration(20+rand.Intn(80)) * time.Millisecond)

		mu.Lock()
		state, exists := states[svc]
		if !exists {
			state = &mockState{nextChangeAt: time.Now().Add(time.Duration(10+rand.Intn(21)) * time.Second)}
			states[svc] = state
		}
		if time.Now().After(state.nextChangeAt) {
			from := mockCodes[state.codeIdx]
			state.codeIdx = (state.codeIdx + 1) % len(mockCodes)
			state.nextChangeAt = time.Now().Add(time.Duration(10+rand.Intn(21)) * time.Second)
			slog.Info("status change", "svc", svc, "from", from, "to", mockCodes[state.codeIdx])
		}
		code := mockCodes[state.codeIdx]
		mu.Unlock()

		w.WriteHeader(code)
	})

	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("mock server error", "error", err)
	}
}
