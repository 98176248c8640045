package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"

	ws "learnkit/adapters/websocket"
	"learnkit/core"
	"learnkit/engine"
	"learnkit/learn"
	"learnkit/realtime"
)

// Demo server with a seeded course so the lesson/quiz flow can be explored
// end to end without any external storage.
func main() {
	// Use readable text logging for development/demo
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(textHandler))

	ctx := context.Background()
	hub := realtime.NewHub()
	svc := learn.New(
		learn.WithRealtime(hub),
		learn.WithDispatchMode(engine.DispatchAsync),
	)

	var mu sync.Mutex
	course := sampleCourse()
	core.ApplySequentialProgression(course.Modules)

	http.Handle("/ws", ws.Handler(hub))

	http.HandleFunc("/course", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		writeJSON(w, course)
	})

	// routes: /users/{id}/enroll, /users/{id}/lessons/{lesson}/complete,
	// /users/{id}/lessons/{lesson}/quiz?answers=1,0, GET /users/{id}
	http.HandleFunc("/users/", func(w http.ResponseWriter, r *http.Request) {
		parts := split(r.URL.Path, '/')
		if len(parts) < 2 {
			http.NotFound(w, r)
			return
		}
		user := core.UserID(parts[1])

		mu.Lock()
		defer mu.Unlock()

		switch {
		case r.Method == http.MethodPost && len(parts) == 3 && parts[2] == "enroll":
			err := svc.Enrollments().Enroll(ctx, user, course.ID)
			writeJSON(w, map[string]any{"ok": err == nil, "err": errString(err)})
		case r.Method == http.MethodPost && len(parts) == 5 && parts[2] == "lessons" && parts[4] == "complete":
			err := svc.CompleteLesson(ctx, user, course, core.LessonID(parts[3]))
			writeJSON(w, map[string]any{"ok": err == nil, "err": errString(err)})
		case r.Method == http.MethodPost && len(parts) == 5 && parts[2] == "lessons" && parts[4] == "quiz":
			res, err := svc.SubmitQuiz(ctx, user, course, core.LessonID(parts[3]), parseAnswers(r.URL.Query().Get("answers")))
			writeJSON(w, map[string]any{"result": res, "err": errString(err)})
		case r.Method == http.MethodGet && len(parts) == 2:
			rec, err := svc.Progress(ctx, user)
			if err != nil {
				http.Error(w, err.Error(), 500)
				return
			}
			writeJSON(w, rec)
		default:
			http.NotFound(w, r)
		}
	})

	slog.Info("starting demo server on :8080")

	if err := http.ListenAndServe(":8080", nil); err != nil {
		slog.Error("demo server crashed", "error", err)
		os.Exit(1)
	}
}

func sampleCourse() *core.Course {
	return &core.Course{
		ID:        "go-101",
		Title:     "Introduction to Go",
		Published: true,
		Modules: []core.Module{
			{
				ID: "basics", Title: "Basics", Order: 0,
				Lessons: []core.Lesson{
					{ID: "hello", Title: "Hello, World", Order: 0, Type: core.ContentText},
					{ID: "types", Title: "Types and Values", Order: 1, Type: core.ContentVideo},
					{ID: "basics-quiz", Title: "Basics Quiz", Order: 2, Type: core.ContentQuiz,
						Questions: []core.QuizQuestion{
							{Question: "Which keyword declares a variable?", Options: []string{"var", "let", "dim"}, CorrectIndex: 0},
							{Question: "What is the zero value of an int?", Options: []string{"nil", "0", "undefined"}, CorrectIndex: 1},
						}},
				},
			},
			{
				ID: "flow", Title: "Control Flow", Order: 1,
				Lessons: []core.Lesson{
					{ID: "loops", Title: "Loops", Order: 0, Type: core.ContentText},
					{ID: "errors", Title: "Error Handling", Order: 1, Type: core.ContentText},
				},
			},
		},
	}
}

func parseAnswers(raw string) []int {
	if raw == "" {
		return nil
	}
	fields := strings.Split(raw, ",")
	answers := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			n = -1
		}
		answers = append(answers, n)
	}
	return answers
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func errString(err error) any {
	if err == nil {
		return nil
	}
	return err.Error()
}

func split(p string, sep rune) []string {
	var parts []string
	current := make([]rune, 0, len(p))

	for _, r := range p {
		if r == sep {
			if len(current) > 0 {
				parts = append(parts, string(current))
				current = current[:0]
			}
			continue
		}
		current = append(current, r)
	}

	if len(current) > 0 {
		parts = append(parts, string(current))
	}

	return parts
}
