package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type FinalizePasswordResetMessage struct {
	Secret     string `json:"token" doc:"Reset secret from the email link"`
	Password   string `json:"password" doc:"New password"`
	OnResponse func(user *User)
}

func (p FinalizePasswordResetMessage) Type() string { return "user.password_reset_finalize" }

type FinalizePasswordResetHandler struct {
	repo              RepositoryManager
	activity          ActivitySink
	logger            Logger
	minPasswordLength int
	now               func() time.Time
}

// NewFinalizePasswordResetHandler creates a handler with sane defaults.
func NewFinalizePasswordResetHandler(repo RepositoryManager) *FinalizePasswordResetHandler {
	return &FinalizePasswordResetHandler{
		repo:              repo,
		activity:          noopActivitySink{},
		logger:            defLogger{},
		minPasswordLength: DefaultMinPasswordLength,
		now:               time.Now,
	}
}

// WithActivitySink sets the sink used to emit password reset events.
func (h *FinalizePasswordResetHandler) WithActivitySink(sink ActivitySink) *FinalizePasswordResetHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *FinalizePasswordResetHandler) WithLogger(logger Logger) *FinalizePasswordResetHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// WithMinPasswordLength overrides the minimum password policy.
func (h *FinalizePasswordResetHandler) WithMinPasswordLength(n int) *FinalizePasswordResetHandler {
	if n > 0 {
		h.minPasswordLength = n
	}
	return h
}

// WithClock injects a custom clock (useful for tests).
func (h *FinalizePasswordResetHandler) WithClock(now func() time.Time) *FinalizePasswordResetHandler {
	if now != nil {
		h.now = now
	}
	return h
}

func (h *FinalizePasswordResetHandler) Execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset finalization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *FinalizePasswordResetHandler) execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	user := &User{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if event.Secret == "" {
		return ErrResetTicketInvalid
	}

	if len(event.Password) < h.minPasswordLength {
		return ErrPasswordTooShort.Clone().WithMetadata(map[string]any{
			"min_length": h.minPasswordLength,
		})
	}

	digest := DigestResetSecret(event.Secret)

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		user, err = h.repo.Users().GetByResetDigestTx(ctx, tx, digest)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrResetTicketInvalid
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not retrieve password reset ticket")
		}

		// The row came back by digest lookup, re-check the presented secret
		// against it in constant time before acting on the ticket.
		if !MatchResetDigest(event.Secret, user.PasswordResetTokenHash) {
			return ErrResetTicketInvalid
		}

		now := h.now()

		if user.PasswordResetExpiresAt == nil {
			return ErrResetTicketInvalid
		}

		// An expired ticket is cleared on presentation so the row returns to
		// the no-active-reset state.
		if now.After(*user.PasswordResetExpiresAt) {
			if err := h.repo.Users().ClearResetTicketTx(ctx, tx, user.ID); err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to clear expired reset ticket")
			}
			return ErrResetTicketExpired
		}

		passwordHash, err := HashPassword(event.Password)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid new password provided")
		}

		// Conditional update keyed on the stored digest: if a concurrent
		// completion or a fresh ticket got there first, this spends nothing.
		if err := h.repo.Users().ConsumeResetTicketTx(ctx, tx, user.ID, digest, passwordHash, now); err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrResetTicketInvalid
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update user password")
		}

		user.PasswordHash = passwordHash
		user.PasswordChangedAt = &now
		user.PasswordResetTokenHash = ""
		user.PasswordResetExpiresAt = nil

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to finalize password reset")
	}

	h.recordActivity(ctx, user)

	if event.OnResponse != nil {
		event.OnResponse(user)
	}

	return nil
}

func (h *FinalizePasswordResetHandler) recordActivity(ctx context.Context, user *User) {
	if user == nil {
		return
	}

	event := ActivityEvent{
		EventType: ActivityEventPasswordResetSuccess,
		Actor: ActorRef{
			ID:   user.ID.String(),
			Type: "user",
		},
		UserID:     user.ID.String(),
		Metadata:   map[string]any{},
		OccurredAt: h.now(),
	}

	if err := normalizeActivitySink(h.activity).Record(ctx, event); err != nil {
		h.logger.Warn("activity sink error during password reset: %v", err)
	}
}
