// Seed adds demo users and tasks to the database. Run from project root:
// go run ./scripts/seed
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Arshlankhann/Collaborative-AI-Todo-Board/internal/config"
	"github.com/Arshlankhann/Collaborative-AI-Todo-Board/internal/models"
	"github.com/Arshlankhann/Collaborative-AI-Todo-Board/internal/store"
)

func main() {
	loadEnvFile(".env")

	ctx := context.Background()
	cfg := config.Get()
	if cfg.DatabaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL not set")
		os.Exit(1)
	}
	st, err := store.NewPostgres(ctx, cfg.DatabaseURL, cfg.DBPoolSize)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Store init failed:", err)
		os.Exit(1)
	}
	defer st.Close()

	usernames := []string{"alice", "bob", "carol"}
	var users []*models.User
	for _, name := range usernames {
		hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Hash failed:", err)
			os.Exit(1)
		}
		u := &models.User{
			ID:           uuid.New().String(),
			Username:     name,
			PasswordHash: string(hash),
			CreatedAt:    time.Now().UTC(),
		}
		if err := st.CreateUser(ctx, u); err != nil {
			if err == store.ErrDuplicate {
				existing, _ := st.UserByUsername(ctx, name)
				users = append(users, existing)
				continue
			}
			fmt.Fprintln(os.Stderr, "Create user failed:", err)
			os.Exit(1)
		}
		users = append(users, u)
	}

	seedTasks := []struct {
		title    string
		status   string
		priority string
		assignee int // index into users, -1 for unassigned
	}{
		{"Design board layout", models.StatusDone, models.PriorityMedium, 0},
		{"Implement conflict modal", models.StatusInProgress, models.PriorityHigh, 1},
		{"Write onboarding copy", models.StatusTodo, models.PriorityLow, -1},
		{"Fix drag-and-drop jitter", models.StatusInProgress, models.PriorityHigh, 2},
		{"Prepare launch checklist", models.StatusTodo, models.PriorityMedium, -1},
	}

	created := 0
	for i, s := range seedTasks {
		now := time.Now().UTC().Add(time.Duration(i) * time.Millisecond)
		t := &models.Task{
			ID:          uuid.New().String(),
			Title:       s.title,
			Description: fmt.Sprintf("Seeded task: %s.", strings.ToLower(s.title)),
			Status:      s.status,
			Priority:    s.priority,
			Version:     1,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if s.assignee >= 0 && s.assignee < len(users) && users[s.assignee] != nil {
			t.AssignedUserID = users[s.assignee].ID
		}
		if err := st.CreateTask(ctx, t); err != nil {
			if err == store.ErrDuplicate {
				continue
			}
			fmt.Fprintln(os.Stderr, "Create task failed:", err)
			os.Exit(1)
		}
		created++
	}

	fmt.Printf("Done: %d users, %d tasks\n", len(users), created)
}

func loadEnvFile(path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		idx := strings.Index(line, "=")
		if idx <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		val := strings.TrimSpace(line[idx+1:])
		if strings.HasPrefix(val, `"`) && strings.HasSuffix(val, `"`) {
			val = strings.Trim(val, `"`)
		} else if strings.HasPrefix(val, "'") && strings.HasSuffix(val, "'") {
			val = strings.Trim(val, "'")
		}
		if key != "" && os.Getenv(key) == "" {
			_ = os.Setenv(key, val)
		}
	}
}
