package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type ChangeUserRoleMessage struct {
	UserID     string `json:"user_id"`
	Role       string `json:"role"`
	Actor      ActorRef
	OnResponse func(user *User)
}

func (m ChangeUserRoleMessage) Type() string { return "user.role_change" }

type ChangeUserStatusMessage struct {
	UserID     string `json:"user_id"`
	Status     string `json:"status"`
	Reason     string `json:"reason"`
	Actor      ActorRef
	OnResponse func(user *User)
}

func (m ChangeUserStatusMessage) Type() string { return "user.status_change" }

// AccountReviewHandler is the admin surface for pending registrations:
// listing them, assigning roles, and moving accounts through the status
// lifecycle.
type AccountReviewHandler struct {
	repo         RepositoryManager
	states       UserStateMachine
	customStates bool
	activity     ActivitySink
	logger       Logger
}

// NewAccountReviewHandler creates a handler with sane defaults.
func NewAccountReviewHandler(repo RepositoryManager) *AccountReviewHandler {
	return &AccountReviewHandler{
		repo:     repo,
		states:   NewUserStateMachine(repo.Users()),
		activity: noopActivitySink{},
		logger:   defLogger{},
	}
}

// WithActivitySink sets the sink used to emit review events. The sink is
// also forwarded to the default status state machine, a machine installed
// through WithStateMachine keeps its own sink.
func (h *AccountReviewHandler) WithActivitySink(sink ActivitySink) *AccountReviewHandler {
	h.activity = normalizeActivitySink(sink)
	if !h.customStates {
		h.states = NewUserStateMachine(h.repo.Users(), WithStateMachineActivitySink(h.activity))
	}
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *AccountReviewHandler) WithLogger(logger Logger) *AccountReviewHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// WithStateMachine overrides the status lifecycle implementation.
func (h *AccountReviewHandler) WithStateMachine(sm UserStateMachine) *AccountReviewHandler {
	if sm != nil {
		h.states = sm
		h.customStates = true
	}
	return h
}

// ListPending returns accounts awaiting review, oldest first.
func (h *AccountReviewHandler) ListPending(ctx context.Context) ([]*User, error) {
	return h.repo.Users().ListByStatus(ctx, UserStatusPending)
}

// ChangeRole assigns a role to an account. Assigning a role implies the
// reviewing admin vouches for the account, so a pending account is approved
// in the same transaction. Suspended and banned accounts keep their status,
// reinstating them is an explicit ChangeStatus call.
func (h *AccountReviewHandler) ChangeRole(ctx context.Context, event ChangeUserRoleMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during role change",
		)
	default:
		return h.changeRole(ctx, event)
	}
}

func (h *AccountReviewHandler) changeRole(ctx context.Context, event ChangeUserRoleMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	id, err := uuid.Parse(event.UserID)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid user id").
			WithMetadata(map[string]any{"user_id": event.UserID})
	}

	role, ok := ParseRole(event.Role)
	if !ok {
		return ErrInvalidRole.Clone().WithMetadata(map[string]any{
			"role":          event.Role,
			"allowed_roles": GetAllRoles(),
		})
	}

	user := &User{}

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		if user, err = h.repo.Users().UpdateRoleTx(ctx, tx, id, role); err != nil {
			return err
		}

		if user == nil || user.Status != UserStatusPending {
			return nil
		}

		if user, err = h.repo.Users().UpdateStatusTx(ctx, tx, id, UserStatusApproved); err != nil {
			return err
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "role change transaction failed")
	}

	h.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventUserRoleChanged,
		Actor:     event.Actor,
		UserID:    id.String(),
		Metadata: map[string]any{
			"role": role,
		},
	})

	if event.OnResponse != nil {
		event.OnResponse(user)
	}

	return nil
}

// ChangeStatus moves an account through the status lifecycle, enforcing the
// allowed transitions.
func (h *AccountReviewHandler) ChangeStatus(ctx context.Context, event ChangeUserStatusMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during status change",
		)
	default:
		return h.changeStatus(ctx, event)
	}
}

func (h *AccountReviewHandler) changeStatus(ctx context.Context, event ChangeUserStatusMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	status, ok := ParseStatus(event.Status)
	if !ok {
		return ErrInvalidStatus.Clone().WithMetadata(map[string]any{
			"status":           event.Status,
			"allowed_statuses": GetAllStatuses(),
		})
	}

	user, err := h.repo.Users().GetByID(ctx, event.UserID)
	if err != nil {
		return err
	}

	opts := []TransitionOption{}
	if event.Reason != "" {
		opts = append(opts, WithTransitionReason(event.Reason))
	}

	user, err = h.states.Transition(ctx, event.Actor, user, status, opts...)
	if err != nil {
		return err
	}

	if event.OnResponse != nil {
		event.OnResponse(user)
	}

	return nil
}

func (h *AccountReviewHandler) recordActivity(ctx context.Context, event ActivityEvent) {
	if event.Actor == (ActorRef{}) {
		event.Actor = ActorRef{Type: "system"}
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	if err := normalizeActivitySink(h.activity).Record(ctx, event); err != nil {
		h.logger.Warn("activity sink error during account review: %v", err)
	}
}
