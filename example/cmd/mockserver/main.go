// Standalone mock server for trying the watch command.
//
// Usage:
//
//	go run ./example/cmd/mockserver
//
// Then in another terminal:
//
//	go run ./cmd/pulsedeck watch -c example/config.yaml
package main

import (
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"time"
)

func main() {
	fmt.Println("Mock health server starting on 127.0.0.1:9999")
	fmt.Println("Services cycle through: 200 → 503 → 200 → 500")
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	var (
		states = make(map[string]*mockState)
		mu     sync.Mutex
		codes  = []int{http.StatusOK, http.StatusServiceUnavailable, http.StatusOK, http.StatusInternalServerError}
	)

	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		svc := r.URL.Query().Get("svc")

		time.Sleep(time.Duration(20+rand.Intn(80)) * time.Millisecond)

		mu.Lock()
		state, exists := states[svc]
		if !exists {
			state = &mockState{nextChangeAt: time.Now().Add(time.Duration(10+rand.Intn(21)) * time.Second)}
			states[svc] = state
		}
		if time.Now().After(state.nextChangeAt) {
			from := codes[state.codeIdx]
			state.codeIdx = (state.codeIdx + 1) % len(codes)
			state.nextChangeAt = time.Now().Add(time.Duration(10+rand.Intn(21)) * time.Second)
			slog.Info("status change", "svc", svc, "from", from, "to", codes[state.codeIdx])
		}
		code := codes[state.codeIdx]
		mu.Unlock()

		w.WriteHeader(code)
	})

	if err := http.ListenAndServe("127.0.0.1:9999", nil); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

type mockState struct {
	codeIdx      int
	nextChangeAt time.Time
}
