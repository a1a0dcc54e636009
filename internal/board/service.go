// Package board implements the mutation path of the collaborative kanban
// board: version-checked updates, conflict reporting, the smart-assign
// heuristic, AI-augmented mutations and the activity log. Every accepted
// mutation bumps the task version by exactly 1, appends one log entry and
// publishes the matching event on the injected bus.
package board

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Arshlankhann/Collaborative-AI-Todo-Board/internal/bus"
	"github.com/Arshlankhann/Collaborative-AI-Todo-Board/internal/models"
	"github.com/Arshlankhann/Collaborative-AI-Todo-Board/internal/store"
	"github.com/Arshlankhann/Collaborative-AI-Todo-Board/pkg/logger"
)

// RecentLogLimit bounds the activity feed returned with the board.
const RecentLogLimit = 20

// assignRetries bounds the reload-and-reapply loop used by mutations that
// operate on the current version (smart assign, AI sub-tasks) when another
// writer slips in between the read and the conditional write.
const assignRetries = 3

// TextGenerator is the black-box AI collaborator. Implementations must fail
// soft: a string always comes back, never an error.
type TextGenerator interface {
	GenerateDescription(ctx context.Context, title string) string
	SuggestSubtasks(ctx context.Context, title, description string) string
}

// Service is the mutation handler. It owns no transport: events leave through
// the injected bus and state through the injected store.
type Service struct {
	store store.Store
	bus   bus.Bus
	ai    TextGenerator
}

// NewService wires the mutation handler.
func NewService(st store.Store, b bus.Bus, gen TextGenerator) *Service {
	return &Service{store: st, bus: b, ai: gen}
}

// Board returns the full board state: tasks newest first, users without
// credentials, and the most recent log entries newest first.
func (s *Service) Board(ctx context.Context) (*models.Board, error) {
	tasks, err := s.store.Tasks(ctx)
	if err != nil {
		return nil, err
	}
	users, err := s.store.Users(ctx)
	if err != nil {
		return nil, err
	}
	logs, err := s.store.RecentLogs(ctx, RecentLogLimit)
	if err != nil {
		return nil, err
	}
	refs := make([]models.UserRef, 0, len(users))
	for i := range users {
		refs = append(refs, *users[i].Ref())
	}
	return &models.Board{Tasks: tasks, Users: refs, Logs: logs}, nil
}

// CreateTask validates the title, persists a new task at version 1 and
// broadcasts it.
func (s *Service) CreateTask(ctx context.Context, actor *models.User, title, description, priority string) (*models.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrEmptyTitle
	}
	if isColumnName(title) {
		return nil, ErrReservedTitle
	}
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !models.ValidPriority(priority) {
		return nil, ErrInvalidPriority
	}
	if _, err := s.store.TaskByTitle(ctx, title); err == nil {
		return nil, ErrDuplicateTitle
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	task := &models.Task{
		ID:          uuid.New().String(),
		Title:       title,
		Description: description,
		Status:      models.StatusTodo,
		Priority:    priority,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateTask(ctx, task); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrDuplicateTitle
		}
		return nil, err
	}

	s.log(ctx, actor, fmt.Sprintf("created task %q", task.Title))
	s.bus.Publish(ctx, bus.Broadcast(bus.TaskCreated, task))
	return task, nil
}

// UpdateTask applies a partial update if clientVersion matches the stored
// version. On a mismatch nothing is written: the conflict carrying both the
// authoritative state and the attempted fields is routed to the acting user's
// sessions and returned as a *ConflictError.
func (s *Service) UpdateTask(ctx context.Context, actor *models.User, id string, patch models.TaskPatch, clientVersion int) (*models.Task, error) {
	task, err := s.store.Task(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.Version != clientVersion {
		return nil, s.conflict(ctx, actor, task, patch, clientVersion)
	}

	prevStatus := task.Status
	if err := s.applyPatch(ctx, task, patch); err != nil {
		return nil, err
	}

	err = s.store.UpdateTask(ctx, task, clientVersion)
	if errors.Is(err, store.ErrVersionMismatch) {
		// Another writer committed between our read and write. Reload the
		// authoritative state; the caller is the loser.
		current, lerr := s.store.Task(ctx, id)
		if lerr != nil {
			return nil, lerr
		}
		return nil, s.conflict(ctx, actor, current, patch, clientVersion)
	}
	if errors.Is(err, store.ErrDuplicate) {
		return nil, ErrDuplicateTitle
	}
	if err != nil {
		return nil, err
	}

	if prevStatus != task.Status {
		s.log(ctx, actor, fmt.Sprintf("moved task %q to %s", task.Title, task.Status))
	} else {
		s.log(ctx, actor, fmt.Sprintf("updated task %q", task.Title))
	}
	s.bus.Publish(ctx, bus.Broadcast(bus.TaskUpdated, task))
	return task, nil
}

// DeleteTask removes a task. It emits a single task:deleted event and a
// single log entry; no task:updated is produced.
func (s *Service) DeleteTask(ctx context.Context, actor *models.User, id string) error {
	task, err := s.store.Task(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteTask(ctx, id); err != nil {
		return err
	}
	s.log(ctx, actor, fmt.Sprintf("deleted task %q", task.Title))
	s.bus.Publish(ctx, bus.Broadcast(bus.TaskDeleted, map[string]string{"taskId": id}))
	return nil
}

// SmartAssign assigns the task to the least-loaded user: lowest count of
// non-Done assigned tasks, ties broken by user listing order. The mutation
// goes through the same version-increment-and-log path as a normal update,
// using the version the handler itself just read.
func (s *Service) SmartAssign(ctx context.Context, actor *models.User, id string) (*models.Task, error) {
	users, err := s.store.Users(ctx)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, ErrNoUsersAvailable
	}

	var task *models.Task
	var chosen *models.User
	for attempt := 0; attempt < assignRetries; attempt++ {
		task, err = s.store.Task(ctx, id)
		if err != nil {
			return nil, err
		}
		tasks, err := s.store.Tasks(ctx)
		if err != nil {
			return nil, err
		}

		counts := make(map[string]int, len(users))
		for _, t := range tasks {
			if t.Status != models.StatusDone && t.AssignedUserID != "" {
				counts[t.AssignedUserID]++
			}
		}
		// First user in listing order wins ties, so only a strictly
		// smaller count displaces the current choice.
		chosen = &users[0]
		for i := 1; i < len(users); i++ {
			if counts[users[i].ID] < counts[chosen.ID] {
				chosen = &users[i]
			}
		}

		task.AssignedUserID = chosen.ID
		task.AssignedUser = chosen.Ref()
		err = s.store.UpdateTask(ctx, task, task.Version)
		if errors.Is(err, store.ErrVersionMismatch) {
			continue
		}
		if err != nil {
			return nil, err
		}

		s.log(ctx, actor, fmt.Sprintf("smart-assigned task %q to %s", task.Title, chosen.Username))
		s.bus.Publish(ctx, bus.Broadcast(bus.TaskUpdated, task))
		return task, nil
	}
	return nil, store.ErrVersionMismatch
}

// GenerateDescription drafts a description for a prospective task. Nothing is
// persisted; the client saves through the normal update path.
func (s *Service) GenerateDescription(ctx context.Context, title string) string {
	return s.ai.GenerateDescription(ctx, title)
}

// SuggestSubtasks asks the AI collaborator for a checklist and appends it to
// the task description as a normal versioned mutation.
func (s *Service) SuggestSubtasks(ctx context.Context, actor *models.User, id string) (*models.Task, error) {
	for attempt := 0; attempt < assignRetries; attempt++ {
		task, err := s.store.Task(ctx, id)
		if err != nil {
			return nil, err
		}

		subtasks := s.ai.SuggestSubtasks(ctx, task.Title, task.Description)
		task.Description += fmt.Sprintf("\n\n**Suggested Sub-tasks:**\n%s", subtasks)

		err = s.store.UpdateTask(ctx, task, task.Version)
		if errors.Is(err, store.ErrVersionMismatch) {
			continue
		}
		if err != nil {
			return nil, err
		}

		s.log(ctx, actor, fmt.Sprintf("added AI sub-tasks to %q", task.Title))
		s.bus.Publish(ctx, bus.Broadcast(bus.TaskUpdated, task))
		return task, nil
	}
	return nil, store.ErrVersionMismatch
}

// applyPatch merges present fields onto task. A present-but-empty assignee
// clears the assignment; an omitted field leaves the stored value alone.
func (s *Service) applyPatch(ctx context.Context, task *models.Task, patch models.TaskPatch) error {
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return ErrEmptyTitle
		}
		if isColumnName(title) {
			return ErrReservedTitle
		}
		task.Title = title
	}
	if patch.Description != nil {
		task.Description = *patch.Description
	}
	if patch.Status != nil {
		if !models.ValidStatus(*patch.Status) {
			return ErrInvalidStatus
		}
		task.Status = *patch.Status
	}
	if patch.Priority != nil {
		if !models.ValidPriority(*patch.Priority) {
			return ErrInvalidPriority
		}
		task.Priority = *patch.Priority
	}
	if patch.AssignedUser != nil {
		if *patch.AssignedUser == "" {
			task.AssignedUserID = ""
			task.AssignedUser = nil
		} else {
			u, err := s.store.User(ctx, *patch.AssignedUser)
			if err != nil {
				return err
			}
			task.AssignedUserID = u.ID
			task.AssignedUser = u.Ref()
		}
	}
	return nil
}

// conflict routes a conflict event to the acting user's sessions only and
// returns the matching error. The stored task is left untouched and no log
// entry is appended.
func (s *Service) conflict(ctx context.Context, actor *models.User, current *models.Task, patch models.TaskPatch, clientVersion int) error {
	c := &ConflictError{
		TaskID:      current.ID,
		ServerState: *current,
		AttemptedState: AttemptedState{
			TaskID:    current.ID,
			Version:   clientVersion,
			TaskPatch: patch,
		},
	}
	s.bus.Publish(ctx, bus.To(actor.ID, bus.TaskConflict, c))
	return c
}

// log appends one activity entry and broadcasts it. The mutation has already
// committed by the time this runs, so an append failure is logged server-side
// rather than failing the request.
func (s *Service) log(ctx context.Context, actor *models.User, action string) {
	entry := &models.ActivityLog{
		ID:        uuid.New().String(),
		User:      actor.Username,
		Action:    action,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.AppendLog(ctx, entry); err != nil {
		logger.Error(ctx, "Append activity log failed", "error", err, "action", action)
		return
	}
	s.bus.Publish(ctx, bus.Broadcast(bus.LogNew, entry))
}

func isColumnName(title string) bool {
	switch strings.ToLower(title) {
	case "todo", "in progress", "done":
		return true
	}
	return false
}
